package models

import (
	"strings"
)

type Game string

const (
	GamePokemon  Game = "pokemon"
	GameYugioh   Game = "yugioh"
	GameOnePiece Game = "onepiece"
	GameMTG      Game = "mtg"
)

// AllGames returns every game with a catalog behind it
func AllGames() []Game {
	return []Game{GamePokemon, GameYugioh, GameOnePiece, GameMTG}
}

// Valid reports whether g is one of the supported games
func (g Game) Valid() bool {
	switch g {
	case GamePokemon, GameYugioh, GameOnePiece, GameMTG:
		return true
	}
	return false
}

// ParseGame maps the spellings the vision model and clients use to a Game.
// Returns "" for anything unrecognized.
func ParseGame(s string) Game {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pokemon", "pokémon", "ptcg":
		return GamePokemon
	case "yugioh", "yu-gi-oh", "yu-gi-oh!", "ygo":
		return GameYugioh
	case "onepiece", "one piece", "one-piece", "optcg":
		return GameOnePiece
	case "mtg", "magic", "magic: the gathering":
		return GameMTG
	default:
		return ""
	}
}

type Language string

const (
	LanguageEnglish  Language = "en"
	LanguageJapanese Language = "ja"
)

// NormalizeLanguage maps various language string formats to a Language.
// Returns LanguageEnglish as default for unknown/empty values.
func NormalizeLanguage(lang string) Language {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "japanese", "jp", "ja", "jpn":
		return LanguageJapanese
	default:
		return LanguageEnglish
	}
}

// CardGuess is the vision model's unverified reading of a scanned card.
// Never mutated after the oracle returns it.
type CardGuess struct {
	Game           Game     `json:"game"`
	Name           string   `json:"name"`
	SetID          string   `json:"set_id"`
	SetName        string   `json:"set_name,omitempty"`
	CardNumber     string   `json:"card_number"`
	Rarity         string   `json:"rarity,omitempty"`
	Language       Language `json:"language"`
	EstimatedValue float64  `json:"estimated_value"`
	Confidence     float64  `json:"confidence"`
	Reasoning      string   `json:"reasoning,omitempty"`
}

// CanonicalSet is one catalog set listing entry
type CanonicalSet struct {
	Code           string `json:"code"`
	DisplayName    string `json:"display_name"`
	TotalCardCount int    `json:"total_card_count"`
	ReleaseDate    string `json:"release_date,omitempty"` // YYYY-MM-DD
}

// Candidate is a catalog card mapped into the shape the verifiers share.
type Candidate struct {
	CatalogName     string   `json:"catalog_name"`
	CatalogCardID   string   `json:"catalog_card_id"`
	CatalogSetCode  string   `json:"catalog_set_code"`
	CollectorNumber string   `json:"collector_number"`
	Rarity          string   `json:"rarity,omitempty"`   // rarity of this printing
	Rarities        []string `json:"rarities,omitempty"` // all printings (Yu-Gi-Oh!)
	ReleasedAt      string   `json:"released_at,omitempty"`
	ImageURL        string   `json:"image_url,omitempty"`
}

type MatchStrategy string

const (
	StrategyDirectID    MatchStrategy = "direct_id"
	StrategyInSet       MatchStrategy = "in_set"
	StrategyNameSearch  MatchStrategy = "name_search"
	StrategyPartialName MatchStrategy = "partial_name"
	StrategyGlobalFuzzy MatchStrategy = "global_fuzzy"
	StrategyNumberOnly  MatchStrategy = "number_only"
	StrategyNone        MatchStrategy = "none"
)

// VerifiedIdentity is the terminal output of verification.
// When Verified is false, CardID and SetCode are a best guess only.
type VerifiedIdentity struct {
	Game          Game          `json:"game"`
	Name          string        `json:"name"`
	CardID        string        `json:"card_id"`
	SetCode       string        `json:"set_code"`
	CardNumber    string        `json:"card_number,omitempty"`
	Rarity        string        `json:"rarity,omitempty"`
	Verified      bool          `json:"verified"`
	LowConfidence bool          `json:"low_confidence"` // number-only acceptance
	Strategy      MatchStrategy `json:"strategy"`
}

// NormalizedGuess is a CardGuess after number cleanup and set resolution
type NormalizedGuess struct {
	CardGuess
	Number      string // cleaned collector number
	SetCode     string // canonical code when resolved, otherwise the raw guess
	SetResolved bool
}

// IdentifyResult is what the orchestrator hands back to callers
type IdentifyResult struct {
	Identity        VerifiedIdentity `json:"identity"`
	FirstGuess      CardGuess        `json:"first_guess"`
	RetryGuess      *CardGuess       `json:"retry_guess,omitempty"`
	Attempts        int              `json:"attempts"`
	ResolvedSetCode string           `json:"resolved_set_code,omitempty"`
}
