package services

import (
	"strings"

	"go.uber.org/zap"

	"github.com/codyseavey/tcg-identify/internal/models"
)

// onePieceRules: the upstream is inconsistent about "OP01" vs "OP-01", so
// both spellings are probed for card IDs and set listings.
type onePieceRules struct {
	baseRules
}

func NewOnePieceVerifier(catalog CatalogClient, sets *SetDirectory, opts VerifierOptions, logger *zap.Logger) *LadderVerifier {
	return newLadderVerifier(models.GameOnePiece, catalog, sets, onePieceRules{}, opts, logger)
}

func (onePieceRules) directIDs(guess models.NormalizedGuess, width int) []string {
	spellings := onePieceSetSpellings(guess.SetCode)
	if len(spellings) == 0 {
		return nil
	}

	var ids []string
	for _, n := range NumberVariants(guess.Number, width) {
		for _, set := range spellings {
			ids = append(ids, set+"-"+n)
		}
	}
	return dedupe(ids)
}

func (onePieceRules) setCodes(guess models.NormalizedGuess) []string {
	// Listings are keyed by the dashed code, so try that first
	spellings := onePieceSetSpellings(guess.SetCode)
	if len(spellings) == 2 {
		spellings[0], spellings[1] = spellings[1], spellings[0]
	}
	return spellings
}

// onePieceSetSpellings returns the compact then dashed spelling ("OP01", "OP-01")
func onePieceSetSpellings(code string) []string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	m := onePieceSetParts.FindStringSubmatch(code)
	if m == nil {
		return []string{code}
	}
	return []string{m[1] + m[2], m[1] + "-" + m[2]}
}
