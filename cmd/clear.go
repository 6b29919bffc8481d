package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/kozaktomas/face-registry/internal/config"
	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all registered identities",
	Long: `Remove every registered identity from the index.

This cannot be undone. The command asks for confirmation unless --yes
is passed.`,
	RunE: runClear,
}

func init() {
	rootCmd.AddCommand(clearCmd)

	clearCmd.Flags().Bool("yes", false, "Skip confirmation prompt")
}

func confirmAction(prompt string) bool {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

func runClear(cmd *cobra.Command, args []string) error {
	skipConfirm := mustGetBool(cmd, "yes")

	cfg := config.Load()
	idx, err := buildIndex(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer idx.Close()

	count, err := idx.Count(cmd.Context())
	if err != nil {
		return fmt.Errorf("counting identities: %w", err)
	}
	if count == 0 {
		fmt.Println("Index is already empty.")
		return nil
	}

	if !skipConfirm && !confirmAction(fmt.Sprintf("Remove all %d registered identit(ies)? [y/N]: ", count)) {
		fmt.Println("Cancelled.")
		return nil
	}

	if err := idx.Drop(cmd.Context()); err != nil {
		return fmt.Errorf("clearing index: %w", err)
	}

	fmt.Printf("Done! Removed %d identit(ies)\n", count)
	return nil
}
