package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/codyseavey/tcg-identify/internal/models"
)

const ygoprodeckBaseURL = "https://db.ygoprodeck.com/api/v7"

// YGOProDeckClient is the Yu-Gi-Oh! catalog. A card ID here is a printing
// code ("LOB-EN005"), and a single card has one printing per set and rarity.
type YGOProDeckClient struct {
	http *catalogHTTP
}

func NewYGOProDeckClient(opts CatalogOptions) *YGOProDeckClient {
	h := newCatalogHTTP("ygoprodeck", ygoprodeckBaseURL, 15, opts)
	// "No card matching your query was found in the database."
	h.emptyStatuses = []int{http.StatusBadRequest}
	return &YGOProDeckClient{http: h}
}

type ygoSet struct {
	SetName    string `json:"set_name"`
	SetCode    string `json:"set_code"`
	NumOfCards int    `json:"num_of_cards"`
	TCGDate    string `json:"tcg_date"`
}

type ygoCardInfoResponse struct {
	Data []ygoCard `json:"data"`
}

type ygoCard struct {
	ID         int           `json:"id"`
	Name       string        `json:"name"`
	CardSets   []ygoPrinting `json:"card_sets"`
	CardImages []ygoImage    `json:"card_images"`
}

type ygoPrinting struct {
	SetName       string `json:"set_name"`
	SetCode       string `json:"set_code"`
	SetRarity     string `json:"set_rarity"`
	SetRarityCode string `json:"set_rarity_code"`
}

type ygoImage struct {
	ImageURL string `json:"image_url"`
}

// cardsetsinfo.php returns a flat printing record
type ygoPrintingInfo struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	SetName   string `json:"set_name"`
	SetCode   string `json:"set_code"`
	SetRarity string `json:"set_rarity"`
}

func (s *YGOProDeckClient) Game() models.Game { return models.GameYugioh }

func (s *YGOProDeckClient) IDWidth() int { return 3 }

// FetchSets lists every TCG set. Yu-Gi-Oh! sets are not language keyed here.
func (s *YGOProDeckClient) FetchSets(ctx context.Context, _ models.Language) ([]models.CanonicalSet, error) {
	var sets []ygoSet
	found, err := s.http.getJSON(ctx, "sets", "/cardsets.php", nil, &sets)
	if err != nil {
		return nil, fmt.Errorf("failed to list ygoprodeck sets: %w", err)
	}
	if !found {
		return []models.CanonicalSet{}, nil
	}

	// Reprints occasionally reuse a set code; the first listing wins
	seen := make(map[string]bool, len(sets))
	result := make([]models.CanonicalSet, 0, len(sets))
	for _, set := range sets {
		code := strings.ToUpper(strings.TrimSpace(set.SetCode))
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		result = append(result, models.CanonicalSet{
			Code:           code,
			DisplayName:    set.SetName,
			TotalCardCount: set.NumOfCards,
			ReleaseDate:    set.TCGDate,
		})
	}
	return result, nil
}

// FetchByID looks up one printing by its full code ("LOB-EN005")
func (s *YGOProDeckClient) FetchByID(ctx context.Context, id string) *models.Candidate {
	id = strings.ToUpper(strings.TrimSpace(id))
	if id == "" {
		return nil
	}

	var info ygoPrintingInfo
	found, err := s.http.getJSON(ctx, "card", "/cardsetsinfo.php", url.Values{"setcode": {id}}, &info)
	if err != nil || !found || info.Name == "" {
		return nil
	}

	code := info.SetCode
	if code == "" {
		code = id
	}
	return &models.Candidate{
		CatalogName:     info.Name,
		CatalogCardID:   code,
		CatalogSetCode:  ygoSetPrefix(code),
		CollectorNumber: CleanCollectorNumber(code),
		Rarity:          info.SetRarity,
		Rarities:        nonEmpty(info.SetRarity),
	}
}

// FetchBySet lists the printings in a set. The upstream filters by set name,
// so each card's printings are narrowed back down to this set's code.
func (s *YGOProDeckClient) FetchBySet(ctx context.Context, set models.CanonicalSet) []models.Candidate {
	if set.DisplayName == "" {
		return nil
	}

	var resp ygoCardInfoResponse
	found, err := s.http.getJSON(ctx, "set", "/cardinfo.php", url.Values{"cardset": {set.DisplayName}}, &resp)
	if err != nil || !found {
		return nil
	}

	var candidates []models.Candidate
	for _, card := range resp.Data {
		candidates = append(candidates, s.convertToCandidates(card, set.Code)...)
	}
	return candidates
}

// FetchByName runs the upstream's fuzzy name search and expands every
// printing of every hit.
func (s *YGOProDeckClient) FetchByName(ctx context.Context, name string) []models.Candidate {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	var resp ygoCardInfoResponse
	found, err := s.http.getJSON(ctx, "search", "/cardinfo.php", url.Values{"fname": {name}}, &resp)
	if err != nil || !found {
		return nil
	}

	var candidates []models.Candidate
	for _, card := range resp.Data {
		candidates = append(candidates, s.convertToCandidates(card, "")...)
	}
	return candidates
}

// convertToCandidates emits one candidate per printing. When setCode is set
// only that set's printings are kept. Rarities lists every rarity the card
// was printed at within the same set.
func (s *YGOProDeckClient) convertToCandidates(card ygoCard, setCode string) []models.Candidate {
	var imageURL string
	if len(card.CardImages) > 0 {
		imageURL = card.CardImages[0].ImageURL
	}

	raritiesBySet := make(map[string][]string)
	for _, p := range card.CardSets {
		prefix := ygoSetPrefix(p.SetCode)
		raritiesBySet[prefix] = append(raritiesBySet[prefix], p.SetRarity)
	}

	var candidates []models.Candidate
	for _, p := range card.CardSets {
		prefix := ygoSetPrefix(p.SetCode)
		if setCode != "" && !strings.EqualFold(prefix, setCode) {
			continue
		}
		candidates = append(candidates, models.Candidate{
			CatalogName:     card.Name,
			CatalogCardID:   strings.ToUpper(p.SetCode),
			CatalogSetCode:  prefix,
			CollectorNumber: CleanCollectorNumber(p.SetCode),
			Rarity:          p.SetRarity,
			Rarities:        raritiesBySet[prefix],
			ImageURL:        imageURL,
		})
	}
	return candidates
}

// ygoSetPrefix returns the set part of a printing code ("LOB-EN005" -> "LOB")
func ygoSetPrefix(code string) string {
	prefix, _, _ := strings.Cut(strings.ToUpper(strings.TrimSpace(code)), "-")
	return prefix
}

func nonEmpty(values ...string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
