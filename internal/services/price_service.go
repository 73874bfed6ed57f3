package services

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/codyseavey/tcg-identify/internal/metrics"
	"github.com/codyseavey/tcg-identify/internal/models"
)

const (
	// PriceStalenessThreshold is how long a quote is served before refetching
	PriceStalenessThreshold = 24 * time.Hour

	defaultBatchConcurrency = 8
)

// PriceSource fetches live condition prices (JustTCG in production)
type PriceSource interface {
	GetCardPrices(ctx context.Context, ref models.CardRef) ([]models.ConditionPrice, error)
}

// PriceService is a read-through TTL cache in front of a PriceSource
type PriceService struct {
	source      PriceSource
	cache       *expirable.LRU[string, models.PriceQuote]
	concurrency int
	logger      *zap.Logger
}

// NewPriceService creates a new price service. ttl <= 0 uses
// PriceStalenessThreshold; concurrency <= 0 uses 8 workers.
func NewPriceService(source PriceSource, ttl time.Duration, concurrency int, logger *zap.Logger) *PriceService {
	if ttl <= 0 {
		ttl = PriceStalenessThreshold
	}
	if concurrency <= 0 {
		concurrency = defaultBatchConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PriceService{
		source:      source,
		cache:       expirable.NewLRU[string, models.PriceQuote](0, nil, ttl),
		concurrency: concurrency,
		logger:      logger.Named("prices"),
	}
}

// Quote returns the cached quote for ref, fetching it on a miss.
// Failed fetches are not cached.
func (s *PriceService) Quote(ctx context.Context, ref models.CardRef) (models.PriceQuote, error) {
	key := ref.Key()
	if quote, ok := s.cache.Get(key); ok {
		metrics.CacheHitsTotal.WithLabelValues("prices").Inc()
		return quote, nil
	}
	metrics.CacheMissesTotal.WithLabelValues("prices").Inc()

	prices, err := s.source.GetCardPrices(ctx, ref)
	if err != nil {
		return emptyQuote(ref), err
	}

	now := time.Now()
	quote := models.PriceQuote{
		Game:      ref.Game,
		CardID:    ref.CardID,
		Prices:    prices,
		Source:    "justtcg",
		FetchedAt: &now,
	}
	s.cache.Add(key, quote)
	return quote, nil
}

// BatchQuotes quotes every ref with bounded concurrency. Results line up
// with refs; a ref whose fetch failed gets an empty quote.
func (s *PriceService) BatchQuotes(ctx context.Context, refs []models.CardRef) []models.PriceQuote {
	start := time.Now()
	defer func() { metrics.PriceBatchDuration.Observe(time.Since(start).Seconds()) }()

	quotes := make([]models.PriceQuote, len(refs))
	p := pool.New().WithMaxGoroutines(s.concurrency)
	for i, ref := range refs {
		p.Go(func() {
			quote, err := s.Quote(ctx, ref)
			if err != nil {
				s.logger.Debug("Price lookup failed",
					zap.String("game", string(ref.Game)),
					zap.String("card_id", ref.CardID),
					zap.Error(err))
			}
			quotes[i] = quote
		})
	}
	p.Wait()
	return quotes
}

// Clear drops every cached quote
func (s *PriceService) Clear() {
	s.cache.Purge()
	s.logger.Info("Price cache cleared")
}

// RequestsRemaining reports the source's remaining daily quota, or 0 when
// the source has none.
func (s *PriceService) RequestsRemaining() int {
	if q, ok := s.source.(interface{ GetRequestsRemaining() int }); ok {
		return q.GetRequestsRemaining()
	}
	return 0
}

func (s *PriceService) Len() int {
	return s.cache.Len()
}

func emptyQuote(ref models.CardRef) models.PriceQuote {
	return models.PriceQuote{Game: ref.Game, CardID: ref.CardID, Prices: []models.ConditionPrice{}}
}
