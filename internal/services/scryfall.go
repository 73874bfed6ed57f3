package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/codyseavey/tcg-identify/internal/models"
)

const scryfallBaseURL = "https://api.scryfall.com"

// scryfallMaxPages bounds set listings; a page holds 175 cards.
const scryfallMaxPages = 5

// ScryfallClient is the MTG catalog. Card IDs are Scryfall UUIDs; FetchByID
// also accepts "set/number".
type ScryfallClient struct {
	http *catalogHTTP
}

func NewScryfallClient(opts CatalogOptions) *ScryfallClient {
	// Scryfall asks clients to stay at or under 10 requests per second
	return &ScryfallClient{
		http: newCatalogHTTP("scryfall", scryfallBaseURL, 10, opts),
	}
}

type scryfallList[T any] struct {
	Data     []T    `json:"data"`
	HasMore  bool   `json:"has_more"`
	NextPage string `json:"next_page"`
}

type scryfallSet struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	CardCount  int    `json:"card_count"`
	ReleasedAt string `json:"released_at"`
	Digital    bool   `json:"digital"`
}

type scryfallCard struct {
	ImageURIs    *scryfallImages `json:"image_uris"`
	CardFaces    []scryfallFace  `json:"card_faces"`
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	SetName      string          `json:"set_name"`
	Set          string          `json:"set"`
	CollectorNum string          `json:"collector_number"`
	Rarity       string          `json:"rarity"`
	ReleasedAt   string          `json:"released_at"`
}

type scryfallImages struct {
	Small  string `json:"small"`
	Normal string `json:"normal"`
	Large  string `json:"large"`
}

type scryfallFace struct {
	ImageURIs *scryfallImages `json:"image_uris"`
}

func (s *ScryfallClient) Game() models.Game { return models.GameMTG }

// IDWidth is 0: Scryfall collector numbers are never zero padded
func (s *ScryfallClient) IDWidth() int { return 0 }

// FetchSets lists every paper set
func (s *ScryfallClient) FetchSets(ctx context.Context, _ models.Language) ([]models.CanonicalSet, error) {
	var list scryfallList[scryfallSet]
	found, err := s.http.getJSON(ctx, "sets", "/sets", nil, &list)
	if err != nil {
		return nil, fmt.Errorf("failed to list scryfall sets: %w", err)
	}
	if !found {
		return []models.CanonicalSet{}, nil
	}

	result := make([]models.CanonicalSet, 0, len(list.Data))
	for _, set := range list.Data {
		if set.Code == "" || set.Digital {
			continue
		}
		result = append(result, models.CanonicalSet{
			Code:           strings.ToLower(set.Code),
			DisplayName:    set.Name,
			TotalCardCount: set.CardCount,
			ReleaseDate:    set.ReleasedAt,
		})
	}
	return result, nil
}

// FetchByID fetches a card by Scryfall UUID or by "set/number"
func (s *ScryfallClient) FetchByID(ctx context.Context, id string) *models.Candidate {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}

	path := "/cards/" + pathEscape(id)
	if set, number, ok := strings.Cut(id, "/"); ok {
		// Scryfall expects path params, so we must PathEscape
		path = fmt.Sprintf("/cards/%s/%s", pathEscape(strings.ToLower(set)), pathEscape(number))
	}

	var sc scryfallCard
	found, err := s.http.getJSON(ctx, "card", path, nil, &sc)
	if err != nil || !found || sc.ID == "" {
		return nil
	}
	c := s.convertToCandidate(sc)
	return &c
}

// FetchBySet lists every printing in a set, following pagination
func (s *ScryfallClient) FetchBySet(ctx context.Context, set models.CanonicalSet) []models.Candidate {
	if set.Code == "" {
		return nil
	}
	return s.search(ctx, "set", "e:"+strings.ToLower(set.Code))
}

// FetchByName returns all printings of the card with exactly this name
func (s *ScryfallClient) FetchByName(ctx context.Context, name string) []models.Candidate {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	// Escape quotes for Scryfall query syntax
	safeName := strings.ReplaceAll(name, "\"", "\\\"")
	return s.search(ctx, "search", fmt.Sprintf(`!"%s"`, safeName))
}

// FetchFuzzy uses Scryfall's server-side fuzzy name match, which tolerates
// typos and partial names that the exact search rejects.
func (s *ScryfallClient) FetchFuzzy(ctx context.Context, name string) *models.Candidate {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	var sc scryfallCard
	found, err := s.http.getJSON(ctx, "fuzzy", "/cards/named", url.Values{"fuzzy": {name}}, &sc)
	if err != nil || !found || sc.ID == "" {
		return nil
	}
	c := s.convertToCandidate(sc)
	return &c
}

func (s *ScryfallClient) search(ctx context.Context, op, query string) []models.Candidate {
	var candidates []models.Candidate

	path := "/cards/search"
	params := url.Values{"q": {query}, "unique": {"prints"}}
	for page := 0; page < scryfallMaxPages; page++ {
		var list scryfallList[scryfallCard]
		found, err := s.http.getJSON(ctx, op, path, params, &list)
		if err != nil || !found {
			break
		}
		for _, sc := range list.Data {
			candidates = append(candidates, s.convertToCandidate(sc))
		}
		if !list.HasMore || list.NextPage == "" {
			break
		}
		// next_page is absolute and already carries the query
		path, params = list.NextPage, nil
	}
	return candidates
}

func (s *ScryfallClient) convertToCandidate(sc scryfallCard) models.Candidate {
	var imageURL string
	if sc.ImageURIs != nil {
		imageURL = sc.ImageURIs.Normal
	} else if len(sc.CardFaces) > 0 && sc.CardFaces[0].ImageURIs != nil {
		imageURL = sc.CardFaces[0].ImageURIs.Normal
	}

	return models.Candidate{
		CatalogName:     sc.Name,
		CatalogCardID:   sc.ID,
		CatalogSetCode:  strings.ToLower(sc.Set),
		CollectorNumber: sc.CollectorNum,
		Rarity:          sc.Rarity,
		ReleasedAt:      sc.ReleasedAt,
		ImageURL:        imageURL,
	}
}
