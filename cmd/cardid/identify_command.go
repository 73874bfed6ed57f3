package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codyseavey/tcg-identify/internal/services"
)

func newIdentifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "identify <image>",
		Short: "Identify a card photo and verify it against its game's catalog",
		Long: `Send a card photo to the vision model, then verify the guess against the
public catalog for the detected game. An unverified first guess gets one
second look before the result is printed.

Requires GOOGLE_API_KEY (or GOOGLE_API_KEY_FILE).

Examples:
  cardid identify ./charizard.jpg
  cardid identify ./scan.png --log-level debug`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			image, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}

			container, err := ctx.ensureContainer(cmd.Context())
			if err != nil {
				return err
			}

			result, err := container.Identify.IdentifyCard(cmd.Context(), image)
			if errors.Is(err, services.ErrOracleDisabled) {
				return fmt.Errorf("identify needs GOOGLE_API_KEY: %w", err)
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd, result)
		},
	}
}
