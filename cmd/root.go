package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-registry",
	Short: "A face identity registration and search service",
	Long: `Face Registry stores face embeddings for named identities and finds
the closest registered identities for a query photo. Embeddings come from
a DeepFace-compatible embedding server; the similarity index runs either
against a local file or a PostgreSQL database with pgvector.`,
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
