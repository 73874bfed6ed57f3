package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/codyseavey/tcg-identify/internal/models"
)

func newSetsCommand(ctx *commandContext) *cobra.Command {
	var language string

	cmd := &cobra.Command{
		Use:   "sets <game>",
		Short: "List a game's canonical sets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			game, err := parseGame(args[0])
			if err != nil {
				return err
			}

			container, err := ctx.ensureContainer(cmd.Context())
			if err != nil {
				return err
			}

			sets, err := container.Sets.Sets(cmd.Context(), game, models.NormalizeLanguage(language))
			if err != nil {
				return err
			}
			return writeJSON(cmd, sets)
		},
	}

	cmd.Flags().StringVar(&language, "lang", "en", "Catalog language (en, ja)")
	return cmd
}

type resolveSetOutput struct {
	Game      models.Game `json:"game"`
	GuessedID string      `json:"guessed_id"`
	SetCode   string      `json:"set_code,omitempty"`
	Resolved  bool        `json:"resolved"`
}

func newResolveSetCommand(ctx *commandContext) *cobra.Command {
	var (
		name     string
		language string
	)

	cmd := &cobra.Command{
		Use:   "resolve-set <game> <id>",
		Short: "Map a guessed set code (or set name) to the catalog's code",
		Long: `Resolve a set code the way identification does, including known rewrites
such as sv3pt5 -> sv03.5. Pass --name to fall back to a set name match.

Examples:
  cardid resolve-set pokemon sv3pt5
  cardid resolve-set pokemon "" --name "Paradox Rift"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			game, err := parseGame(args[0])
			if err != nil {
				return err
			}

			container, err := ctx.ensureContainer(cmd.Context())
			if err != nil {
				return err
			}

			guessed := strings.TrimSpace(args[1])
			code, ok := container.Sets.ResolveSetID(cmd.Context(), game, guessed, strings.TrimSpace(name), models.NormalizeLanguage(language))
			return writeJSON(cmd, resolveSetOutput{Game: game, GuessedID: guessed, SetCode: code, Resolved: ok})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Set name to match when the code does not resolve")
	cmd.Flags().StringVar(&language, "lang", "en", "Catalog language (en, ja)")
	return cmd
}
