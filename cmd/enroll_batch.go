package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/clinicware/face-finder/internal/config"
	"github.com/clinicware/face-finder/internal/identity"
)

var enrollBatchCmd = &cobra.Command{
	Use:   "enroll-batch <manifest.csv>",
	Short: "Enroll many patient faces from a CSV manifest",
	Long: `Enroll faces in bulk from a CSV manifest. Each row is

    patient_id,image_path

Rows that fail (unknown patient, unreadable file, no detectable face)
are reported at the end; the rest of the batch still goes through.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnrollBatch,
}

func init() {
	rootCmd.AddCommand(enrollBatchCmd)

	enrollBatchCmd.Flags().Int("concurrency", 4, "Number of parallel enrollments")
}

type batchRow struct {
	patientID int64
	imagePath string
}

func readManifest(path string) ([]batchRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	var rows []batchRow
	for i, rec := range records {
		if len(rec) != 2 {
			return nil, fmt.Errorf("manifest line %d: expected 2 columns, got %d", i+1, len(rec))
		}
		id, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("manifest line %d: invalid patient id %q", i+1, rec[0])
		}
		rows = append(rows, batchRow{patientID: id, imagePath: rec[1]})
	}
	return rows, nil
}

func runEnrollBatch(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	log := newLogger()
	ctx := context.Background()
	concurrency := mustGetInt(cmd, "concurrency")

	rows, err := readManifest(args[0])
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("Manifest is empty, nothing to enroll")
		return nil
	}

	st, _, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	svc, err := newIdentityService(cfg, st, log)
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(len(rows),
		progressbar.OptionSetDescription("Enrolling faces"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("faces"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var mu sync.Mutex
	var failures []string
	successCount := 0

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, row := range rows {
		wg.Add(1)
		go func(row batchRow) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			err := enrollOne(ctx, svc, row, cfg.Embedding.Model)

			mu.Lock()
			if err != nil {
				failures = append(failures, fmt.Sprintf("patient %d (%s): %v", row.patientID, row.imagePath, err))
			} else {
				successCount++
			}
			mu.Unlock()
			bar.Add(1)
		}(row)
	}
	wg.Wait()

	fmt.Printf("\n\nEnrolled %d/%d faces\n", successCount, len(rows))
	if len(failures) > 0 {
		fmt.Printf("Failures (%d):\n", len(failures))
		for _, f := range failures {
			fmt.Printf("  - %s\n", f)
		}
	}
	return nil
}

func enrollOne(ctx context.Context, svc *identity.Service, row batchRow, model string) error {
	imageData, err := os.ReadFile(row.imagePath)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	_, err = svc.Enroll(ctx, row.patientID, imageData, model)
	return err
}
