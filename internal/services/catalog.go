package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/codyseavey/tcg-identify/internal/metrics"
	"github.com/codyseavey/tcg-identify/internal/models"
)

const (
	defaultCatalogTimeout = 10 * time.Second
	catalogUserAgent      = "tcg-identify/1.0"
)

// CatalogClient is the uniform view of one game's card catalog.
//
// Lookups never return errors: an unreachable or misbehaving upstream is
// logged, counted and reported as "no candidate" so the verifier ladder can
// move on to its next strategy. FetchSets is the exception because the set
// directory must not cache a failed listing.
type CatalogClient interface {
	Game() models.Game
	FetchSets(ctx context.Context, lang models.Language) ([]models.CanonicalSet, error)
	FetchByID(ctx context.Context, id string) *models.Candidate
	FetchBySet(ctx context.Context, set models.CanonicalSet) []models.Candidate
	FetchByName(ctx context.Context, name string) []models.Candidate
	// IDWidth is the zero-padded width of collector numbers in catalog IDs
	// (0 means the catalog never pads).
	IDWidth() int
}

// LanguageScoped is implemented by catalogs that serve per-language card data.
type LanguageScoped interface {
	ForLanguage(lang models.Language) CatalogClient
}

// FuzzyCatalog is implemented by catalogs with a server-side fuzzy name lookup.
type FuzzyCatalog interface {
	FetchFuzzy(ctx context.Context, name string) *models.Candidate
}

// CatalogOptions configures a catalog client. Zero values use the public
// endpoint, a 10s timeout and a no-op logger.
type CatalogOptions struct {
	BaseURL string
	Timeout time.Duration
	Logger  *zap.Logger
}

// catalogHTTP is the request plumbing shared by every catalog client.
type catalogHTTP struct {
	name    string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
	// statuses the upstream uses for "nothing matched" besides 404
	emptyStatuses []int
}

func newCatalogHTTP(name, defaultBaseURL string, perSecond float64, opts CatalogOptions) *catalogHTTP {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultCatalogTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &catalogHTTP{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		logger:  logger.With(zap.String("catalog", name)),
	}
}

// getJSON issues a GET and decodes the body into out. found is false when the
// upstream says nothing matched. Every failure is logged and counted here so
// callers only decide whether to surface it.
func (c *catalogHTTP) getJSON(ctx context.Context, op, path string, query url.Values, out any) (found bool, err error) {
	metrics.CatalogRequestsTotal.WithLabelValues(c.name, op).Inc()

	reqURL := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		reqURL = c.baseURL + path
	}
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return false, c.fail(op, "network", reqURL, fmt.Errorf("rate limiter: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return false, c.fail(op, "network", reqURL, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", catalogUserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return false, c.fail(op, "network", reqURL, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || c.isEmptyStatus(resp.StatusCode) {
		c.logger.Debug("catalog lookup found nothing",
			zap.String("op", op),
			zap.String("url", reqURL),
			zap.Int("status", resp.StatusCode))
		return false, nil
	}

	if resp.StatusCode != http.StatusOK {
		return false, c.fail(op, "status", reqURL, fmt.Errorf("%s API returned status %d", c.name, resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, c.fail(op, "decode", reqURL, fmt.Errorf("failed to decode response: %w", err))
	}

	return true, nil
}

func (c *catalogHTTP) isEmptyStatus(status int) bool {
	for _, s := range c.emptyStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func (c *catalogHTTP) fail(op, kind, reqURL string, err error) error {
	// A cancelled caller is not an upstream fault
	if !errors.Is(err, context.Canceled) {
		metrics.CatalogErrorsTotal.WithLabelValues(c.name, kind).Inc()
	}
	c.logger.Debug("catalog request failed",
		zap.String("op", op),
		zap.String("url", reqURL),
		zap.String("kind", kind),
		zap.Error(err))
	return err
}

// pathEscape escapes a single path segment.
func pathEscape(s string) string {
	return url.PathEscape(strings.TrimSpace(s))
}
