package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-finder",
	Short: "Face-based patient lookup for the clinic EMR",
	Long: `Face Finder maintains face embeddings for enrolled patients and
identifies a patient from a photo by cosine similarity against the
enrolled corpus. It serves the EMR face-search API and ships CLI
commands for enrollment, identification and store maintenance.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
