package services

import (
	"math"

	"go.uber.org/zap"

	"github.com/codyseavey/tcg-identify/internal/models"
)

// pokemonRules: TCGdex card IDs are "<set>-<localId>", and reprints of the
// same Pokémon inside one set are told apart by collector number proximity.
type pokemonRules struct {
	baseRules
}

func NewPokemonVerifier(catalog CatalogClient, sets *SetDirectory, opts VerifierOptions, logger *zap.Logger) *LadderVerifier {
	return newLadderVerifier(models.GamePokemon, catalog, sets, pokemonRules{}, opts, logger)
}

func (pokemonRules) directIDs(guess models.NormalizedGuess, width int) []string {
	variants := NumberVariants(guess.Number, width)
	ids := make([]string, 0, len(variants))
	for _, n := range variants {
		ids = append(ids, guess.SetCode+"-"+n)
	}
	return ids
}

func (pokemonRules) tieBreak(guess models.NormalizedGuess, matches []models.Candidate) models.Candidate {
	if c, ok := nearestByNumber(guess.Number, matches, math.MaxInt); ok {
		return c
	}
	return matches[0]
}
