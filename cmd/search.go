package cmd

import (
	"fmt"
	"os"

	"github.com/kozaktomas/face-registry/internal/config"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <image-path>",
	Short: "Search registered identities by photo",
	Long: `Search the registered identities for the face in a photo.

Candidates are printed best match first with their similarity scores.

Example:
  face-registry search photo.jpg --top-k 3 --threshold 0.6`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().Int("top-k", 0, "Maximum number of candidates (defaults to TOP_K_RESULTS)")
	searchCmd.Flags().Float64("threshold", -1, "Minimum similarity score, 0 returns everything (defaults to SIMILARITY_THRESHOLD)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	topK := mustGetInt(cmd, "top-k")
	threshold := mustGetFloat64(cmd, "threshold")

	image, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	cfg := config.Load()
	eng, idx, err := buildEngine(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer idx.Close()

	result, err := eng.Search(cmd.Context(), image, topK, threshold)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	if len(result.Candidates) == 0 {
		fmt.Printf("No matches above similarity %.2f\n", result.Threshold)
		return nil
	}

	fmt.Printf("Found %d candidate(s):\n", len(result.Candidates))
	for i, c := range result.Candidates {
		fmt.Printf("%2d. %s (%s) similarity %.4f\n", i+1, c.Name, c.RegistrationNumber, c.Similarity)
	}
	return nil
}
