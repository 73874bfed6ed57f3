package services

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/codyseavey/tcg-identify/internal/metrics"
	"github.com/codyseavey/tcg-identify/internal/models"
)

const defaultMetadataTTL = 6 * time.Hour

// MetadataService caches catalog card details by (game, cardId)
type MetadataService struct {
	catalogs    map[models.Game]CatalogClient
	cache       *expirable.LRU[string, models.Candidate]
	concurrency int
	logger      *zap.Logger
}

func NewMetadataService(catalogs map[models.Game]CatalogClient, ttl time.Duration, concurrency int, logger *zap.Logger) *MetadataService {
	if ttl <= 0 {
		ttl = defaultMetadataTTL
	}
	if concurrency <= 0 {
		concurrency = defaultBatchConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetadataService{
		catalogs:    catalogs,
		cache:       expirable.NewLRU[string, models.Candidate](0, nil, ttl),
		concurrency: concurrency,
		logger:      logger.Named("metadata"),
	}
}

// Lookup returns the catalog entry for ref. ok is false when the catalog
// has no such card or could not be reached; misses are not cached.
func (s *MetadataService) Lookup(ctx context.Context, ref models.CardRef) (models.Candidate, bool, error) {
	catalog, found := s.catalogs[ref.Game]
	if !found {
		return models.Candidate{}, false, fmt.Errorf("%w: %q", ErrUnsupportedGame, ref.Game)
	}

	key := ref.Key()
	if card, ok := s.cache.Get(key); ok {
		metrics.CacheHitsTotal.WithLabelValues("metadata").Inc()
		return card, true, nil
	}
	metrics.CacheMissesTotal.WithLabelValues("metadata").Inc()

	card := catalog.FetchByID(ctx, ref.CardID)
	if card == nil {
		return models.Candidate{}, false, nil
	}
	s.cache.Add(key, *card)
	return *card, true, nil
}

// BatchLookup resolves refs with bounded concurrency. Entries line up with
// refs and are nil where the card could not be found.
func (s *MetadataService) BatchLookup(ctx context.Context, refs []models.CardRef) []*models.Candidate {
	cards := make([]*models.Candidate, len(refs))
	p := pool.New().WithMaxGoroutines(s.concurrency)
	for i, ref := range refs {
		p.Go(func() {
			card, ok, err := s.Lookup(ctx, ref)
			if err != nil {
				s.logger.Debug("Metadata lookup failed", zap.String("card_id", ref.CardID), zap.Error(err))
				return
			}
			if ok {
				cards[i] = &card
			}
		})
	}
	p.Wait()
	return cards
}

func (s *MetadataService) Clear() {
	s.cache.Purge()
}
