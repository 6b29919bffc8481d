package cmd

import (
	"fmt"
	"os"

	"github.com/kozaktomas/face-registry/internal/config"
	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register <image-path>",
	Short: "Register an identity from a photo",
	Long: `Register a new identity from a photo containing a face.

The most prominent face in the image is embedded and stored under the
given name and registration number.

Example:
  face-registry register photo.jpg --name "Jan Novak" --number EMP001`,
	Args: cobra.ExactArgs(1),
	RunE: runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)

	registerCmd.Flags().String("name", "", "Full name of the identity (required)")
	registerCmd.Flags().String("number", "", "Unique registration number (required)")
	registerCmd.MarkFlagRequired("name")
	registerCmd.MarkFlagRequired("number")
}

func runRegister(cmd *cobra.Command, args []string) error {
	name := mustGetString(cmd, "name")
	number := mustGetString(cmd, "number")

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

	rec, err := eng.Register(cmd.Context(), name, number, image)
	if err != nil {
		return fmt.Errorf("registering identity: %w", err)
	}

	fmt.Printf("Registered %s (%s) with id %s\n", rec.Name, rec.RegistrationNumber, rec.ID)
	return nil
}
