package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clinicware/face-finder/internal/config"
	"github.com/clinicware/face-finder/internal/identity"
	"github.com/clinicware/face-finder/internal/matcher"
)

var identifyCmd = &cobra.Command{
	Use:   "identify <image>",
	Short: "Identify a patient from a photo",
	Long: `Identify a patient by scanning the enrolled face corpus for the
photo's best match. The result is one of: an identified patient, no
match above the similarity threshold, or a photo with no detectable
face.`,
	Args: cobra.ExactArgs(1),
	RunE: runIdentify,
}

func init() {
	rootCmd.AddCommand(identifyCmd)

	identifyCmd.Flags().Float64("threshold", 0, "Override the similarity threshold for this lookup")
}

func runIdentify(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	log := newLogger()
	ctx := context.Background()

	if threshold := mustGetFloat64(cmd, "threshold"); threshold != 0 {
		if err := matcher.ValidateThreshold(threshold); err != nil {
			return err
		}
		cfg.Matching.Threshold = threshold
	}

	imageData, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image %s: %w", args[0], err)
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

	result, err := svc.Identify(ctx, imageData)
	if err != nil {
		return fmt.Errorf("identification failed: %w", err)
	}

	switch result.Outcome {
	case identity.OutcomeNotAnalyzable:
		fmt.Printf("Photo not analyzable: %s\n", result.Reason)
	case identity.OutcomeNoMatch:
		if result.Compared == 0 {
			fmt.Println("No match: no usable faces enrolled")
		} else {
			fmt.Printf("No match above threshold %.2f (best score %.4f over %d faces)\n",
				svc.Threshold(), result.Confidence, result.Compared)
		}
	case identity.OutcomeMatch:
		p := result.Patient
		fmt.Printf("Matched patient #%d: %s %s (confidence %.4f, %d faces compared)\n",
			p.PatientID, p.FirstName, p.LastName, result.Confidence, result.Compared)
		if p.DateOfBirth != "" {
			fmt.Printf("  Born:        %s\n", p.DateOfBirth)
		}
		if p.ActiveConditions != "" {
			fmt.Printf("  Conditions:  %s\n", p.ActiveConditions)
		}
		if p.ActiveMedications != "" {
			fmt.Printf("  Medications: %s\n", p.ActiveMedications)
		}
		if p.ActiveAllergies != "" {
			fmt.Printf("  Allergies:   %s\n", p.ActiveAllergies)
		}
	}

	if result.Skipped > 0 {
		fmt.Printf("Warning: %d corrupt embedding(s) skipped during the scan\n", result.Skipped)
	}
	return nil
}
