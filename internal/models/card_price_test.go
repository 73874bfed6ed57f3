package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePriceCondition(t *testing.T) {
	tests := []struct {
		input    string
		expected PriceCondition
	}{
		{"NM", PriceConditionNM},
		{"NEAR MINT", PriceConditionNM},
		{"LP", PriceConditionLP},
		{"LIGHTLY PLAYED", PriceConditionLP},
		{"MP", PriceConditionMP},
		{"MODERATELY PLAYED", PriceConditionMP},
		{"HP", PriceConditionHP},
		{"HEAVILY PLAYED", PriceConditionHP},
		{"DMG", PriceConditionDMG},
		{"DAMAGED", PriceConditionDMG},
		{"nm", PriceConditionNM}, // lowercase
		{"UNKNOWN", PriceCondition("")},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParsePriceCondition(tt.input))
		})
	}
}

func TestAllPriceConditions(t *testing.T) {
	conditions := AllPriceConditions()
	assert.Len(t, conditions, 5)
	assert.ElementsMatch(t, []PriceCondition{
		PriceConditionNM, PriceConditionLP, PriceConditionMP, PriceConditionHP, PriceConditionDMG,
	}, conditions)
}

func TestPriceQuotePrice(t *testing.T) {
	q := PriceQuote{
		Prices: []ConditionPrice{
			{Condition: PriceConditionNM, PriceUSD: 10},
			{Condition: PriceConditionLP, PriceUSD: 8},
			{Condition: PriceConditionNM, Foil: true, PriceUSD: 25},
		},
	}

	assert.Equal(t, 8.0, q.Price(PriceConditionLP, false))
	// No HP price: falls back to NM of the same finish
	assert.Equal(t, 10.0, q.Price(PriceConditionHP, false))
	assert.Equal(t, 25.0, q.Price(PriceConditionLP, true))
	assert.Equal(t, 0.0, PriceQuote{}.Price(PriceConditionNM, false))
}

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		input    string
		expected Language
	}{
		{"Japanese", LanguageJapanese},
		{"jp", LanguageJapanese},
		{"ja", LanguageJapanese},
		{"JPN", LanguageJapanese},
		{"en", LanguageEnglish},
		{"English", LanguageEnglish},
		{"", LanguageEnglish},
		{"klingon", LanguageEnglish},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeLanguage(tt.input))
		})
	}
}

func TestParseGame(t *testing.T) {
	assert.Equal(t, GamePokemon, ParseGame("Pokémon"))
	assert.Equal(t, GameYugioh, ParseGame("Yu-Gi-Oh!"))
	assert.Equal(t, GameOnePiece, ParseGame("One Piece"))
	assert.Equal(t, GameMTG, ParseGame("magic"))
	assert.Equal(t, Game(""), ParseGame("digimon"))
	assert.False(t, Game("digimon").Valid())
	assert.True(t, GameMTG.Valid())
}

func TestNewScanRecordUsesRetryGuess(t *testing.T) {
	retry := CardGuess{Name: "Raichu", SetID: "base1", CardNumber: "14"}
	result := &IdentifyResult{
		Identity:   VerifiedIdentity{Game: GamePokemon, Name: "Raichu", CardID: "base1-14", Verified: true, Strategy: StrategyDirectID},
		FirstGuess: CardGuess{Name: "Pikachu", SetID: "base1", CardNumber: "58"},
		RetryGuess: &retry,
		Attempts:   2,
	}

	rec := NewScanRecord("abc", result)
	assert.Equal(t, "abc", rec.ID)
	assert.Equal(t, "Raichu", rec.GuessedName)
	assert.Equal(t, "14", rec.GuessedNumber)
	assert.Equal(t, 2, rec.Attempts)
	assert.True(t, rec.Verified)
}
