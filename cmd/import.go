package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kozaktomas/face-registry/internal/config"
	"github.com/kozaktomas/face-registry/internal/registry"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <folder-path>",
	Short: "Bulk register identities from a folder of photos",
	Long: `Register every photo in a folder as an identity.

File names must follow the pattern <number>__<name>.<ext>, for example
EMP001__Jan_Novak.jpg. Underscores in the name part become spaces.
Photos that fail to register are reported at the end; already registered
numbers are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

// parseImportFilename splits <number>__<name>.<ext> into its parts.
func parseImportFilename(filename string) (number, name string, err error) {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	number, name, found := strings.Cut(base, "__")
	if !found || number == "" || name == "" {
		return "", "", fmt.Errorf("file %s does not match <number>__<name>.<ext>", filename)
	}
	return number, strings.ReplaceAll(name, "_", " "), nil
}

// collectImportFiles lists the image files in a folder, non-recursive.
func collectImportFiles(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("reading folder: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp":
			files = append(files, filepath.Join(folder, entry.Name()))
		}
	}
	return files, nil
}

func runImport(cmd *cobra.Command, args []string) error {
	files, err := collectImportFiles(args[0])
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No image files found.")
		return nil
	}

	cfg := config.Load()
	eng, idx, err := buildEngine(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer idx.Close()

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("Registering"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	var registered, skipped int
	var failures []string
	for _, file := range files {
		if err := func() error {
			number, name, err := parseImportFilename(filepath.Base(file))
			if err != nil {
				return err
			}
			image, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading %s: %w", file, err)
			}
			_, err = eng.Register(cmd.Context(), name, number, image)
			if errors.Is(err, registry.ErrDuplicateRegistration) {
				skipped++
				return nil
			}
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(file), err)
			}
			registered++
			return nil
		}(); err != nil {
			failures = append(failures, err.Error())
		}
		bar.Add(1)
	}

	fmt.Printf("\nRegistered %d identit(ies), skipped %d duplicate(s)\n", registered, skipped)
	if len(failures) > 0 {
		fmt.Printf("%d failure(s):\n", len(failures))
		for _, f := range failures {
			fmt.Printf("  - %s\n", f)
		}
	}
	return nil
}
