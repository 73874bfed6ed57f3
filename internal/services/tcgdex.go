package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/codyseavey/tcg-identify/internal/models"
)

const tcgdexBaseURL = "https://api.tcgdex.net/v2"

// TCGdexClient is the Pokémon catalog. Card data is per language, so one
// client serves a single language and ForLanguage hands out siblings that
// share the HTTP client and rate limiter.
type TCGdexClient struct {
	http *catalogHTTP
	lang models.Language
}

func NewTCGdexClient(opts CatalogOptions) *TCGdexClient {
	return &TCGdexClient{
		http: newCatalogHTTP("tcgdex", tcgdexBaseURL, 10, opts),
		lang: models.LanguageEnglish,
	}
}

type tcgdexCard struct {
	ID      string    `json:"id"`
	LocalID string    `json:"localId"`
	Name    string    `json:"name"`
	Rarity  string    `json:"rarity"`
	Image   string    `json:"image"`
	Set     tcgdexSet `json:"set"`
}

type tcgdexSet struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	ReleaseDate string          `json:"releaseDate"`
	CardCount   tcgdexCardCount `json:"cardCount"`
}

type tcgdexCardCount struct {
	Total    int `json:"total"`
	Official int `json:"official"`
}

type tcgdexCardBrief struct {
	ID      string `json:"id"`
	LocalID string `json:"localId"`
	Name    string `json:"name"`
	Image   string `json:"image"`
}

type tcgdexSetDetail struct {
	tcgdexSet
	Cards []tcgdexCardBrief `json:"cards"`
}

func (s *TCGdexClient) Game() models.Game { return models.GamePokemon }

func (s *TCGdexClient) IDWidth() int { return 3 }

// ForLanguage returns a client bound to lang. English and Japanese are served.
func (s *TCGdexClient) ForLanguage(lang models.Language) CatalogClient {
	if lang == s.lang {
		return s
	}
	return &TCGdexClient{http: s.http, lang: lang}
}

func (s *TCGdexClient) path(format string, args ...any) string {
	return fmt.Sprintf("/%s"+format, append([]any{s.lang}, args...)...)
}

// FetchSets lists every set for lang
func (s *TCGdexClient) FetchSets(ctx context.Context, lang models.Language) ([]models.CanonicalSet, error) {
	var sets []tcgdexSet
	found, err := s.http.getJSON(ctx, "sets", fmt.Sprintf("/%s/sets", lang), nil, &sets)
	if err != nil {
		return nil, fmt.Errorf("failed to list tcgdex sets: %w", err)
	}
	if !found {
		return []models.CanonicalSet{}, nil
	}

	result := make([]models.CanonicalSet, 0, len(sets))
	for _, set := range sets {
		if set.ID == "" {
			continue
		}
		total := set.CardCount.Total
		if total == 0 {
			total = set.CardCount.Official
		}
		result = append(result, models.CanonicalSet{
			Code:           set.ID,
			DisplayName:    set.Name,
			TotalCardCount: total,
			ReleaseDate:    set.ReleaseDate,
		})
	}
	return result, nil
}

// FetchByID fetches one card by its TCGdex ID ("sv03.5-198")
func (s *TCGdexClient) FetchByID(ctx context.Context, id string) *models.Candidate {
	if strings.TrimSpace(id) == "" {
		return nil
	}

	var card tcgdexCard
	found, err := s.http.getJSON(ctx, "card", s.path("/cards/%s", pathEscape(id)), nil, &card)
	if err != nil || !found || card.ID == "" {
		return nil
	}
	return s.convertToCandidate(card)
}

// FetchBySet lists the cards of a set. The set endpoint only returns brief
// cards so rarity is left empty.
func (s *TCGdexClient) FetchBySet(ctx context.Context, set models.CanonicalSet) []models.Candidate {
	if set.Code == "" {
		return nil
	}

	var detail tcgdexSetDetail
	found, err := s.http.getJSON(ctx, "set", s.path("/sets/%s", pathEscape(set.Code)), nil, &detail)
	if err != nil || !found {
		return nil
	}

	setCode := detail.ID
	if setCode == "" {
		setCode = set.Code
	}
	candidates := make([]models.Candidate, 0, len(detail.Cards))
	for _, brief := range detail.Cards {
		c := s.convertBrief(brief)
		c.CatalogSetCode = setCode
		c.ReleasedAt = detail.ReleaseDate
		candidates = append(candidates, c)
	}
	return candidates
}

// FetchByName searches cards whose name contains name. Results are not
// trimmed: the verifier looks for the guessed set's printing among all of them.
func (s *TCGdexClient) FetchByName(ctx context.Context, name string) []models.Candidate {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	var briefs []tcgdexCardBrief
	found, err := s.http.getJSON(ctx, "search", s.path("/cards"), url.Values{"name": {name}}, &briefs)
	if err != nil || !found {
		return nil
	}

	candidates := make([]models.Candidate, 0, len(briefs))
	for _, brief := range briefs {
		candidates = append(candidates, s.convertBrief(brief))
	}
	return candidates
}

func (s *TCGdexClient) convertToCandidate(tc tcgdexCard) *models.Candidate {
	setCode := tc.Set.ID
	if setCode == "" {
		setCode = tcgdexSetFromCardID(tc.ID)
	}
	return &models.Candidate{
		CatalogName:     tc.Name,
		CatalogCardID:   tc.ID,
		CatalogSetCode:  setCode,
		CollectorNumber: tc.LocalID,
		Rarity:          tc.Rarity,
		ReleasedAt:      tc.Set.ReleaseDate,
		ImageURL:        tcgdexImageURL(tc.Image),
	}
}

func (s *TCGdexClient) convertBrief(b tcgdexCardBrief) models.Candidate {
	return models.Candidate{
		CatalogName:     b.Name,
		CatalogCardID:   b.ID,
		CatalogSetCode:  tcgdexSetFromCardID(b.ID),
		CollectorNumber: b.LocalID,
		ImageURL:        tcgdexImageURL(b.Image),
	}
}

// tcgdexSetFromCardID returns the set part of a card ID: everything before
// the last dash, since set IDs may contain dots ("sv03.5-198" -> "sv03.5").
func tcgdexSetFromCardID(id string) string {
	idx := strings.LastIndex(id, "-")
	if idx <= 0 {
		return ""
	}
	return id[:idx]
}

// TCGdex provides a base image URL; we add the quality suffix
func tcgdexImageURL(base string) string {
	if base == "" {
		return ""
	}
	return base + "/high.webp"
}
