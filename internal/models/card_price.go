package models

import (
	"strings"
	"time"
)

// PriceCondition represents the condition for pricing purposes
// Maps to JustTCG conditions
type PriceCondition string

const (
	PriceConditionNM  PriceCondition = "NM"  // Near Mint
	PriceConditionLP  PriceCondition = "LP"  // Lightly Played
	PriceConditionMP  PriceCondition = "MP"  // Moderately Played
	PriceConditionHP  PriceCondition = "HP"  // Heavily Played
	PriceConditionDMG PriceCondition = "DMG" // Damaged
)

// AllPriceConditions returns all valid price conditions
func AllPriceConditions() []PriceCondition {
	return []PriceCondition{
		PriceConditionNM,
		PriceConditionLP,
		PriceConditionMP,
		PriceConditionHP,
		PriceConditionDMG,
	}
}

// ParsePriceCondition maps JustTCG condition strings to a PriceCondition.
// Returns "" for unknown values.
func ParsePriceCondition(condition string) PriceCondition {
	switch strings.ToUpper(strings.TrimSpace(condition)) {
	case "NM", "NEAR MINT":
		return PriceConditionNM
	case "LP", "LIGHTLY PLAYED":
		return PriceConditionLP
	case "MP", "MODERATELY PLAYED":
		return PriceConditionMP
	case "HP", "HEAVILY PLAYED":
		return PriceConditionHP
	case "DMG", "DAMAGED":
		return PriceConditionDMG
	default:
		return ""
	}
}

// CardRef identifies one collection card for batch price/metadata lookups
type CardRef struct {
	Game    Game   `json:"game" binding:"required"`
	CardID  string `json:"card_id" binding:"required"`
	Name    string `json:"name"`
	SetCode string `json:"set_code"`
}

// Key returns the cache key for the (game, cardId) pair
func (r CardRef) Key() string {
	return string(r.Game) + ":" + r.CardID
}

// ConditionPrice is a single condition/foil price entry
type ConditionPrice struct {
	Condition PriceCondition `json:"condition"`
	Foil      bool           `json:"foil"`
	PriceUSD  float64        `json:"price_usd"`
}

// PriceQuote holds every known condition price for one card
type PriceQuote struct {
	Game      Game             `json:"game"`
	CardID    string           `json:"card_id"`
	Prices    []ConditionPrice `json:"prices"`
	Source    string           `json:"source"` // "justtcg" or "" when unavailable
	FetchedAt *time.Time       `json:"fetched_at,omitempty"`
}

// Price returns the price for condition/foil, falling back to NM.
func (q PriceQuote) Price(condition PriceCondition, foil bool) float64 {
	var nm float64
	for _, p := range q.Prices {
		if p.Foil != foil {
			continue
		}
		if p.Condition == condition {
			return p.PriceUSD
		}
		if p.Condition == PriceConditionNM {
			nm = p.PriceUSD
		}
	}
	return nm
}
