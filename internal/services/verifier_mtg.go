package services

import (
	"context"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/codyseavey/tcg-identify/internal/models"
)

// mtgRules: Scryfall is looked up by "set/number", and since most MTG cards
// have decades of reprints, unranked global results prefer the newest
// printing and a fuzzy all-time lookup runs before giving up.
type mtgRules struct {
	baseRules
}

func NewMTGVerifier(catalog CatalogClient, sets *SetDirectory, opts VerifierOptions, logger *zap.Logger) *LadderVerifier {
	return newLadderVerifier(models.GameMTG, catalog, sets, mtgRules{}, opts, logger)
}

func (mtgRules) directIDs(guess models.NormalizedGuess, width int) []string {
	set := strings.ToLower(strings.TrimSpace(guess.SetCode))
	if set == "" {
		return nil
	}
	var ids []string
	for _, n := range NumberVariants(guess.Number, width) {
		ids = append(ids, set+"/"+strings.ToLower(n))
	}
	return dedupe(ids)
}

func (mtgRules) preferNewest() bool { return true }

// tieBreak compares collector numbers directly; Scryfall IDs are UUIDs and
// say nothing about the number.
func (mtgRules) tieBreak(guess models.NormalizedGuess, matches []models.Candidate) models.Candidate {
	for _, c := range matches {
		if sameCollectorNumber(guess.Number, c.CollectorNumber) {
			return c
		}
	}
	if c, ok := nearestByNumber(guess.Number, matches, math.MaxInt); ok {
		return c
	}
	return matches[0]
}

// lastResort asks the catalog's fuzzy matcher for the card, then looks for
// the printing that best fits the guessed set and number.
func (mtgRules) lastResort(ctx context.Context, v *LadderVerifier, catalog CatalogClient, guess models.NormalizedGuess) (models.Candidate, bool) {
	fuzzy, ok := catalog.(FuzzyCatalog)
	if !ok || strings.TrimSpace(guess.Name) == "" {
		return models.Candidate{}, false
	}

	hit := fuzzy.FetchFuzzy(ctx, guess.Name)
	if hit == nil {
		return models.Candidate{}, false
	}

	if printings := filterByName(catalog.FetchByName(ctx, hit.CatalogName), hit.CatalogName); len(printings) > 0 {
		return v.rankGlobal(guess, printings), true
	}
	return *hit, true
}
