package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/codyseavey/tcg-identify/internal/models"
)

// fakeCatalog is an in-memory CatalogClient. Keys are matched case-insensitively.
type fakeCatalog struct {
	game  models.Game
	width int

	sets     []models.CanonicalSet
	setsErr  error
	setDelay time.Duration

	byID   map[string]models.Candidate
	bySet  map[string][]models.Candidate
	byName map[string][]models.Candidate

	mu    sync.Mutex
	calls map[string]int
	ids   []string
}

func newFakeCatalog(game models.Game, width int) *fakeCatalog {
	return &fakeCatalog{
		game:   game,
		width:  width,
		byID:   make(map[string]models.Candidate),
		bySet:  make(map[string][]models.Candidate),
		byName: make(map[string][]models.Candidate),
		calls:  make(map[string]int),
	}
}

func (f *fakeCatalog) record(op string) {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
}

func (f *fakeCatalog) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeCatalog) probedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ids...)
}

func (f *fakeCatalog) withCard(c models.Candidate) *fakeCatalog {
	f.byID[strings.ToLower(c.CatalogCardID)] = c
	setKey := strings.ToLower(c.CatalogSetCode)
	f.bySet[setKey] = append(f.bySet[setKey], c)
	return f
}

func (f *fakeCatalog) withName(name string, cards ...models.Candidate) *fakeCatalog {
	f.byName[strings.ToLower(name)] = cards
	return f
}

func (f *fakeCatalog) Game() models.Game { return f.game }

func (f *fakeCatalog) IDWidth() int { return f.width }

func (f *fakeCatalog) FetchSets(ctx context.Context, _ models.Language) ([]models.CanonicalSet, error) {
	f.record("sets")
	if f.setDelay > 0 {
		time.Sleep(f.setDelay)
	}
	if f.setsErr != nil {
		return nil, f.setsErr
	}
	return f.sets, nil
}

func (f *fakeCatalog) FetchByID(_ context.Context, id string) *models.Candidate {
	f.record("id")
	f.mu.Lock()
	f.ids = append(f.ids, id)
	f.mu.Unlock()
	c, ok := f.byID[strings.ToLower(id)]
	if !ok {
		return nil
	}
	return &c
}

func (f *fakeCatalog) FetchBySet(_ context.Context, set models.CanonicalSet) []models.Candidate {
	f.record("set")
	return f.bySet[strings.ToLower(set.Code)]
}

func (f *fakeCatalog) FetchByName(_ context.Context, name string) []models.Candidate {
	f.record("name")
	return f.byName[strings.ToLower(name)]
}

// fakeFuzzyCatalog adds the server-side fuzzy lookup
type fakeFuzzyCatalog struct {
	*fakeCatalog
	fuzzy map[string]models.Candidate
}

func (f *fakeFuzzyCatalog) FetchFuzzy(_ context.Context, name string) *models.Candidate {
	f.record("fuzzy")
	c, ok := f.fuzzy[strings.ToLower(name)]
	if !ok {
		return nil
	}
	return &c
}
