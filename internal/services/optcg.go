package services

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/codyseavey/tcg-identify/internal/models"
)

const optcgBaseURL = "https://optcgapi.com/api"

// "OP01-001" -> ("OP", "01"); "ST10-012" -> ("ST", "10"); "P-001" -> ("P", "")
var optcgCardIDPattern = regexp.MustCompile(`^([A-Z]+)-?(\d*)-(\S+)$`)

// OPTCGClient is the One Piece catalog. Booster sets ("OP-01") and starter
// decks ("ST-01") live under separate endpoints, and alternate arts are
// listed as extra rows sharing the base card ID.
type OPTCGClient struct {
	http *catalogHTTP
}

func NewOPTCGClient(opts CatalogOptions) *OPTCGClient {
	return &OPTCGClient{
		http: newCatalogHTTP("optcg", optcgBaseURL, 5, opts),
	}
}

type optcgSet struct {
	SetName string `json:"set_name"`
	SetID   string `json:"set_id"`
}

type optcgDeck struct {
	DeckName string `json:"structure_deck_name"`
	DeckID   string `json:"structure_deck_id"`
}

type optcgCard struct {
	CardName    string `json:"card_name"`
	CardSetID   string `json:"card_set_id"`
	CardImageID string `json:"card_image_id"`
	CardImage   string `json:"card_image"`
	SetID       string `json:"set_id"`
	SetName     string `json:"set_name"`
	Rarity      string `json:"rarity"`
	DateScraped string `json:"date_scraped"`
}

func (s *OPTCGClient) Game() models.Game { return models.GameOnePiece }

func (s *OPTCGClient) IDWidth() int { return 3 }

// FetchSets lists booster sets followed by starter decks
func (s *OPTCGClient) FetchSets(ctx context.Context, _ models.Language) ([]models.CanonicalSet, error) {
	var sets []optcgSet
	if _, err := s.http.getJSON(ctx, "sets", "/allSets/", nil, &sets); err != nil {
		return nil, fmt.Errorf("failed to list optcg sets: %w", err)
	}
	var decks []optcgDeck
	if _, err := s.http.getJSON(ctx, "sets", "/allDecks/", nil, &decks); err != nil {
		return nil, fmt.Errorf("failed to list optcg decks: %w", err)
	}

	result := make([]models.CanonicalSet, 0, len(sets)+len(decks))
	for _, set := range sets {
		if set.SetID == "" {
			continue
		}
		result = append(result, models.CanonicalSet{Code: strings.ToUpper(set.SetID), DisplayName: set.SetName})
	}
	for _, deck := range decks {
		if deck.DeckID == "" {
			continue
		}
		result = append(result, models.CanonicalSet{Code: strings.ToUpper(deck.DeckID), DisplayName: deck.DeckName})
	}
	return result, nil
}

// FetchByID looks up a card by its printed ID ("OP01-001")
func (s *OPTCGClient) FetchByID(ctx context.Context, id string) *models.Candidate {
	id = strings.ToUpper(strings.TrimSpace(id))
	if id == "" {
		return nil
	}

	endpoint := "/sets/card/%s/"
	if optcgIsDeck(id) {
		endpoint = "/decks/card/%s/"
	}

	var rows []optcgCard
	found, err := s.http.getJSON(ctx, "card", fmt.Sprintf(endpoint, pathEscape(id)), nil, &rows)
	if err != nil || !found {
		return nil
	}

	candidates := s.convertToCandidates(rows)
	if len(candidates) == 0 {
		return nil
	}
	return &candidates[0]
}

// FetchBySet lists a booster set or starter deck, keyed by its set code
// ("OP-01", "ST-10")
func (s *OPTCGClient) FetchBySet(ctx context.Context, set models.CanonicalSet) []models.Candidate {
	code := strings.ToUpper(strings.TrimSpace(set.Code))
	if code == "" {
		return nil
	}

	endpoint := "/sets/%s/"
	if optcgIsDeck(code) {
		endpoint = "/decks/%s/"
	}

	var rows []optcgCard
	found, err := s.http.getJSON(ctx, "set", fmt.Sprintf(endpoint, pathEscape(code)), nil, &rows)
	if err != nil || !found {
		return nil
	}
	return s.convertToCandidates(rows)
}

// FetchByName searches booster set cards by name
func (s *OPTCGClient) FetchByName(ctx context.Context, name string) []models.Candidate {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	var rows []optcgCard
	found, err := s.http.getJSON(ctx, "search", "/sets/filtered/", url.Values{"card_name": {name}}, &rows)
	if err != nil || !found {
		return nil
	}
	return s.convertToCandidates(rows)
}

// convertToCandidates collapses alternate-art rows onto their base card,
// keeping upstream order.
func (s *OPTCGClient) convertToCandidates(rows []optcgCard) []models.Candidate {
	index := make(map[string]int, len(rows))
	candidates := make([]models.Candidate, 0, len(rows))

	for _, row := range rows {
		id := strings.ToUpper(strings.TrimSpace(row.CardSetID))
		if id == "" {
			continue
		}
		candidate := models.Candidate{
			CatalogName:     row.CardName,
			CatalogCardID:   id,
			CatalogSetCode:  optcgSetCode(row.SetID, id),
			CollectorNumber: CleanCollectorNumber(id),
			Rarity:          row.Rarity,
			ImageURL:        row.CardImage,
		}

		if i, ok := index[id]; ok {
			// Replace an alternate art that happened to be listed first
			if optcgIsAltArt(row) {
				continue
			}
			candidates[i] = candidate
			continue
		}
		index[id] = len(candidates)
		candidates = append(candidates, candidate)
	}
	return candidates
}

func optcgIsAltArt(row optcgCard) bool {
	return strings.Contains(strings.ToLower(row.CardImageID), "_p")
}

func optcgIsDeck(code string) bool {
	return strings.HasPrefix(strings.ToUpper(code), "ST")
}

// optcgSetCode prefers the set the API reports and otherwise derives the
// dashed set code from the card ID ("OP01-001" -> "OP-01").
func optcgSetCode(reported, cardID string) string {
	if reported = strings.ToUpper(strings.TrimSpace(reported)); reported != "" {
		return reported
	}
	m := optcgCardIDPattern.FindStringSubmatch(cardID)
	if m == nil {
		return ""
	}
	if m[2] == "" {
		return m[1]
	}
	return m[1] + "-" + m[2]
}
