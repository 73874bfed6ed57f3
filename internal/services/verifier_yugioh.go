package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/codyseavey/tcg-identify/internal/models"
)

// yugiohRules: printings are "<SET>-<REGION><NNN>" and one card is often
// printed at several rarities in the same set, so rarity breaks ties.
type yugiohRules struct {
	baseRules
}

func NewYugiohVerifier(catalog CatalogClient, sets *SetDirectory, opts VerifierOptions, logger *zap.Logger) *LadderVerifier {
	return newLadderVerifier(models.GameYugioh, catalog, sets, yugiohRules{}, opts, logger)
}

func (yugiohRules) directIDs(guess models.NormalizedGuess, width int) []string {
	prefix := ygoSetPrefix(guess.SetCode)
	if prefix == "" {
		return nil
	}

	var ids []string
	// The model sometimes reads the whole printing code into the set field
	if full := strings.ToUpper(strings.TrimSpace(guess.SetID)); strings.Contains(full, "-") {
		ids = append(ids, full)
	}
	region := "EN"
	if guess.Language == models.LanguageJapanese {
		region = "JP"
	}
	for _, n := range NumberVariants(guess.Number, width) {
		ids = append(ids, prefix+"-"+region+n, prefix+"-"+n)
	}
	return dedupe(ids)
}

func (yugiohRules) setCodes(guess models.NormalizedGuess) []string {
	if prefix := ygoSetPrefix(guess.SetCode); prefix != "" {
		return []string{prefix}
	}
	return nil
}

func (yugiohRules) tieBreak(guess models.NormalizedGuess, matches []models.Candidate) models.Candidate {
	if c, ok := pickByRarity(guess.Rarity, matches); ok {
		return c
	}
	if c, ok := pickByIDSuffix(guess, matches); ok {
		return c
	}
	return matches[0]
}

// refine swaps a direct hit for the same printing code at the guessed rarity.
// cardsetsinfo returns just one rarity per code, so reprints at a second
// rarity are only visible in the set listing.
func (yugiohRules) refine(ctx context.Context, v *LadderVerifier, catalog CatalogClient, guess models.NormalizedGuess, hit models.Candidate) models.Candidate {
	if guess.Rarity == "" || sameRarity(guess.Rarity, hit.Rarity) {
		return hit
	}

	var samePrinting []models.Candidate
	for _, c := range v.setCards(ctx, catalog, guess.Language, hit.CatalogSetCode) {
		if strings.EqualFold(c.CatalogCardID, hit.CatalogCardID) {
			samePrinting = append(samePrinting, c)
		}
	}
	if c, ok := pickByRarity(guess.Rarity, samePrinting); ok {
		return c
	}
	return hit
}

// pickByRarity prefers an exact rarity, then the longest catalog rarity that
// contains or is contained in the guess. "Ultra Rare" contains "Rare", so
// first-containment-wins would pick the wrong printing.
func pickByRarity(rarity string, candidates []models.Candidate) (models.Candidate, bool) {
	if strings.TrimSpace(rarity) == "" {
		return models.Candidate{}, false
	}
	for _, c := range candidates {
		if sameRarity(rarity, c.Rarity) {
			return c, true
		}
	}

	var best models.Candidate
	found := false
	for _, c := range candidates {
		if !rarityMatches(rarity, c.Rarity) {
			continue
		}
		if !found || len(strings.TrimSpace(c.Rarity)) > len(strings.TrimSpace(best.Rarity)) {
			best, found = c, true
		}
	}
	return best, found
}

func sameRarity(guessed, catalog string) bool {
	return strings.EqualFold(strings.TrimSpace(guessed), strings.TrimSpace(catalog))
}

// rarityMatches is containment either way, ignoring case ("Ultra" vs "Ultra Rare")
func rarityMatches(guessed, catalog string) bool {
	guessed = strings.ToLower(strings.TrimSpace(guessed))
	catalog = strings.ToLower(strings.TrimSpace(catalog))
	return catalog != "" && containsEither(guessed, catalog)
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := values[:0]
	for _, v := range values {
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
