package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clinicware/face-finder/internal/config"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show embedding store statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	st, searcher, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	faces, err := st.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count faces: %w", err)
	}
	patients, err := st.CountPatients(ctx)
	if err != nil {
		return fmt.Errorf("failed to count patients: %w", err)
	}

	fmt.Printf("Enrolled faces:    %d\n", faces)
	fmt.Printf("Enrolled patients: %d\n", patients)
	fmt.Printf("Match threshold:   %.2f\n", cfg.Matching.Threshold)
	fmt.Printf("Embedding model:   %s (dim %d)\n", cfg.Embedding.Model, cfg.Embedding.Dim)
	if searcher != nil {
		fmt.Println("Similarity search: available (pgvector)")
	} else {
		fmt.Println("Similarity search: unavailable on this backend")
	}
	return nil
}
