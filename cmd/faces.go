package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clinicware/face-finder/internal/config"
)

var facesCmd = &cobra.Command{
	Use:   "faces",
	Short: "Manage enrolled faces",
}

var facesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled faces for a patient",
	RunE:  runFacesList,
}

var facesDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete all enrolled faces for a patient",
	RunE:  runFacesDelete,
}

func init() {
	rootCmd.AddCommand(facesCmd)
	facesCmd.AddCommand(facesListCmd)
	facesCmd.AddCommand(facesDeleteCmd)

	facesListCmd.Flags().Int64("patient-id", 0, "Patient id")
	facesListCmd.MarkFlagRequired("patient-id")

	facesDeleteCmd.Flags().Int64("patient-id", 0, "Patient id")
	facesDeleteCmd.Flags().Bool("yes", false, "Skip the confirmation prompt")
	facesDeleteCmd.MarkFlagRequired("patient-id")
}

func runFacesList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()
	patientID := mustGetInt64(cmd, "patient-id")

	st, _, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	faces, err := st.ListByPatient(ctx, patientID)
	if err != nil {
		return fmt.Errorf("failed to list faces: %w", err)
	}

	if len(faces) == 0 {
		fmt.Printf("No faces enrolled for patient #%d\n", patientID)
		return nil
	}

	fmt.Printf("Faces enrolled for patient #%d:\n", patientID)
	for _, f := range faces {
		fmt.Printf("  %s  model=%s dim=%d enrolled=%s\n",
			f.FaceUID, f.Model, f.Dim, f.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runFacesDelete(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()
	patientID := mustGetInt64(cmd, "patient-id")

	st, _, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if !mustGetBool(cmd, "yes") {
		fmt.Printf("Delete ALL enrolled faces for patient #%d? [y/N] ", patientID)
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("Aborted")
			return nil
		}
	}

	deleted, err := st.DeleteByPatient(ctx, patientID)
	if err != nil {
		return fmt.Errorf("failed to delete faces: %w", err)
	}

	fmt.Printf("Deleted %d face(s) for patient #%d\n", deleted, patientID)
	return nil
}
