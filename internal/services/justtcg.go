package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/codyseavey/tcg-identify/internal/metrics"
	"github.com/codyseavey/tcg-identify/internal/models"
)

const (
	justTCGBaseURL        = "https://api.justtcg.com/v1"
	justTCGDefaultTimeout = 10 * time.Second
)

// justTCGGames maps our games to JustTCG's game identifiers
var justTCGGames = map[models.Game]string{
	models.GamePokemon:  "pokemon",
	models.GameYugioh:   "yugioh",
	models.GameOnePiece: "one-piece-card-game",
	models.GameMTG:      "mtg",
}

// JustTCGService handles API calls to JustTCG for card pricing
type JustTCGService struct {
	client     *http.Client
	apiKey     string
	baseURL    string
	dailyLimit int
	limiter    *rate.Limiter
	logger     *zap.Logger

	// Daily quota
	mu             sync.Mutex
	requestsToday  int
	lastRequestDay time.Time
	now            func() time.Time
}

// JustTCGPriceResponse represents the API response for price queries
type JustTCGPriceResponse struct {
	Success bool            `json:"success"`
	Data    JustTCGCardData `json:"data"`
	Error   string          `json:"error,omitempty"`
}

// JustTCGCardData contains card information including prices
type JustTCGCardData struct {
	CardName   string         `json:"card_name"`
	SetName    string         `json:"set_name"`
	SetCode    string         `json:"set_code"`
	CardNumber string         `json:"card_number"`
	Prices     []JustTCGPrice `json:"prices"`
}

// JustTCGPrice represents a single condition/foil price entry
type JustTCGPrice struct {
	Condition string  `json:"condition"` // NM, LP, MP, HP, DMG
	Foil      bool    `json:"foil"`
	PriceUSD  float64 `json:"price_usd"`
	LastSeen  string  `json:"last_seen,omitempty"`
}

type JustTCGOptions struct {
	APIKey     string
	DailyLimit int
	BaseURL    string
	Timeout    time.Duration
	Logger     *zap.Logger
}

// NewJustTCGService creates a new JustTCG API service
func NewJustTCGService(opts JustTCGOptions) *JustTCGService {
	if opts.DailyLimit <= 0 {
		opts.DailyLimit = 100 // Default free tier limit
	}
	if opts.BaseURL == "" {
		opts.BaseURL = justTCGBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = justTCGDefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	svc := &JustTCGService{
		client:     &http.Client{Timeout: opts.Timeout},
		apiKey:     opts.APIKey,
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		dailyLimit: opts.DailyLimit,
		limiter:    rate.NewLimiter(rate.Limit(5), 5),
		logger:     opts.Logger.Named("justtcg"),
		now:        time.Now,
	}
	metrics.JustTCGQuotaRemaining.Set(float64(svc.dailyLimit))
	return svc
}

// checkDailyLimit reserves one request from today's quota.
// Returns false once the quota is spent.
func (s *JustTCGService) checkDailyLimit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rollDay()
	if s.requestsToday >= s.dailyLimit {
		return false
	}

	s.requestsToday++
	metrics.JustTCGQuotaRemaining.Set(float64(s.dailyLimit - s.requestsToday))
	return true
}

// rollDay resets the counter on a new day. Callers hold s.mu.
func (s *JustTCGService) rollDay() {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if s.lastRequestDay.Before(today) {
		s.requestsToday = 0
		s.lastRequestDay = today
	}
}

// GetRequestsRemaining returns the number of requests remaining today
func (s *JustTCGService) GetRequestsRemaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rollDay()
	remaining := s.dailyLimit - s.requestsToday
	if remaining < 0 {
		return 0
	}
	return remaining
}

// GetCardPrices fetches condition-specific prices for a card
func (s *JustTCGService) GetCardPrices(ctx context.Context, ref models.CardRef) ([]models.ConditionPrice, error) {
	game, ok := justTCGGames[ref.Game]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedGame, ref.Game)
	}
	if !s.checkDailyLimit() {
		return nil, ErrPriceQuotaExceeded
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	name := ref.Name
	if name == "" {
		name = ref.CardID
	}
	params := url.Values{}
	params.Set("name", name)
	params.Set("game", game)
	if ref.SetCode != "" {
		params.Set("set", ref.SetCode)
	}

	reqURL := fmt.Sprintf("%s/cards/price?%s", s.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	metrics.JustTCGRequestsTotal.Inc()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JustTCG API error: status %d", resp.StatusCode)
	}

	var priceResp JustTCGPriceResponse
	if err := json.NewDecoder(resp.Body).Decode(&priceResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if !priceResp.Success {
		if priceResp.Error != "" {
			return nil, fmt.Errorf("JustTCG API error: %s", priceResp.Error)
		}
		return nil, fmt.Errorf("JustTCG API returned unsuccessful response")
	}

	prices := make([]models.ConditionPrice, 0, len(priceResp.Data.Prices))
	for _, p := range priceResp.Data.Prices {
		condition := models.ParsePriceCondition(p.Condition)
		if condition == "" {
			continue
		}
		prices = append(prices, models.ConditionPrice{
			Condition: condition,
			Foil:      p.Foil,
			PriceUSD:  p.PriceUSD,
		})
	}

	s.logger.Debug("Fetched prices",
		zap.String("game", string(ref.Game)),
		zap.String("card_id", ref.CardID),
		zap.Int("prices", len(prices)))
	return prices, nil
}
