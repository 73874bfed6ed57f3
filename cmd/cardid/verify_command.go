package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codyseavey/tcg-identify/internal/models"
)

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	var (
		game     string
		name     string
		setID    string
		setName  string
		number   string
		rarity   string
		language string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a typed-in card reading without the vision model",
		Long: `Run the catalog verification ladder on a reading you supply. Useful for
checking why a scan did or did not verify.

Examples:
  cardid verify --game pokemon --name "Mew ex" --set sv3pt5 --number 151
  cardid verify --game yugioh --name "Dark Magician" --set LOB-EN005 --rarity "Ultra Rare"
  cardid verify --game pokemon --name "ミュウex" --set SV2a --number 151 --lang ja`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseGame(game)
			if err != nil {
				return err
			}
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("--name is required")
			}

			container, err := ctx.ensureContainer(cmd.Context())
			if err != nil {
				return err
			}

			result, err := container.Identify.VerifyGuess(cmd.Context(), models.CardGuess{
				Game:       parsed,
				Name:       strings.TrimSpace(name),
				SetID:      strings.TrimSpace(setID),
				SetName:    strings.TrimSpace(setName),
				CardNumber: strings.TrimSpace(number),
				Rarity:     strings.TrimSpace(rarity),
				Language:   models.NormalizeLanguage(language),
				Confidence: 1,
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd, result)
		},
	}

	cmd.Flags().StringVar(&game, "game", "", "Game (pokemon, yugioh, onepiece, mtg)")
	cmd.Flags().StringVar(&name, "name", "", "Card name as printed")
	cmd.Flags().StringVar(&setID, "set", "", "Set code or card ID as printed")
	cmd.Flags().StringVar(&setName, "set-name", "", "Set name, if known")
	cmd.Flags().StringVar(&number, "number", "", "Collector number")
	cmd.Flags().StringVar(&rarity, "rarity", "", "Rarity (used by Yu-Gi-Oh! printings)")
	cmd.Flags().StringVar(&language, "lang", "en", "Card language (en, ja)")
	_ = cmd.MarkFlagRequired("game")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}
