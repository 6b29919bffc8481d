package cmd

import (
	"fmt"

	"github.com/kozaktomas/face-registry/internal/config"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show index and model information",
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	idx, err := buildIndex(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer idx.Close()

	stats, err := idx.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading index stats: %w", err)
	}

	fmt.Printf("Backend:    %s\n", stats.Backend)
	fmt.Printf("Dimension:  %d\n", stats.Dimension)
	fmt.Printf("Identities: %d\n", stats.TotalRecords)
	fmt.Printf("Model:      %s\n", cfg.Face.Model)
	fmt.Printf("Detector:   %s\n", cfg.Face.Detector)
	return nil
}
