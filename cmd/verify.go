package cmd

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/clinicware/face-finder/internal/config"
	"github.com/clinicware/face-finder/internal/store"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the integrity of stored embeddings",
	Long: `Scan every stored embedding for problems that would break or
degrade matching: zero-norm vectors and dimensionality drift against
the configured model. A mixed-dimension corpus fails every lookup, so
this is the first thing to run after changing embedding models.`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	st, _, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	faces, err := st.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load embeddings: %w", err)
	}
	if len(faces) == 0 {
		fmt.Println("No embeddings stored")
		return nil
	}

	bar := progressbar.NewOptions(len(faces),
		progressbar.OptionSetDescription("Verifying embeddings"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("faces"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	var zeroNorm, dimDrift []store.PatientFace
	for _, f := range faces {
		if isZeroVector(f.Embedding) {
			zeroNorm = append(zeroNorm, f)
		}
		if len(f.Embedding) != cfg.Embedding.Dim {
			dimDrift = append(dimDrift, f)
		}
		bar.Add(1)
	}

	fmt.Printf("\n\nChecked %d embedding(s)\n", len(faces))
	if len(zeroNorm) == 0 && len(dimDrift) == 0 {
		fmt.Println("No problems found")
		return nil
	}

	if len(zeroNorm) > 0 {
		fmt.Printf("Zero-norm embeddings (%d) - skipped during matching, re-enroll these patients:\n", len(zeroNorm))
		for _, f := range zeroNorm {
			fmt.Printf("  face %s patient #%d\n", f.FaceUID, f.PatientID)
		}
	}
	if len(dimDrift) > 0 {
		fmt.Printf("Dimension drift (%d) - expected dim %d, these fail every lookup:\n", len(dimDrift), cfg.Embedding.Dim)
		for _, f := range dimDrift {
			fmt.Printf("  face %s patient #%d dim=%d model=%s\n", f.FaceUID, f.PatientID, len(f.Embedding), f.Model)
		}
	}
	return fmt.Errorf("found %d problem embedding(s)", len(zeroNorm)+len(dimDrift))
}

func isZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
