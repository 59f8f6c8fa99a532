package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clinicware/face-finder/internal/config"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <image>",
	Short: "Enroll a patient's face from a photo",
	Long: `Enroll a face embedding for a patient from a photo file.
The patient is selected either by id (--patient-id) or by name
(--patient). Name lookup tolerates missing diacritics: "Novakova"
finds "Nováková". Enrollment appends; a patient may hold multiple
embeddings and all of them participate in matching.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().Int64("patient-id", 0, "Patient id to enroll the face for")
	enrollCmd.Flags().String("patient", "", "Patient name to enroll the face for")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	log := newLogger()
	ctx := context.Background()

	patientID := mustGetInt64(cmd, "patient-id")
	patientName := mustGetString(cmd, "patient")
	if patientID == 0 && patientName == "" {
		return errors.New("either --patient-id or --patient is required")
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

	if patientID == 0 {
		patient, err := svc.ResolvePatientByName(ctx, patientName)
		if err != nil {
			return err
		}
		patientID = patient.PatientID
		fmt.Printf("Resolved %q to %s %s (#%d)\n", patientName, patient.FirstName, patient.LastName, patient.PatientID)
	}

	face, err := svc.Enroll(ctx, patientID, imageData, cfg.Embedding.Model)
	if err != nil {
		return fmt.Errorf("enrollment failed: %w", err)
	}

	fmt.Printf("Enrolled face %s for patient #%d (model %s, dim %d)\n",
		face.FaceUID, face.PatientID, face.Model, face.Dim)
	return nil
}
