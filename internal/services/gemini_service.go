package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/codyseavey/tcg-identify/internal/metrics"
	"github.com/codyseavey/tcg-identify/internal/models"
)

const (
	defaultGeminiModel = "gemini-2.5-flash"
	geminiTimeout      = 45 * time.Second
	geminiTemperature  = 0.1
)

// RetryHint carries what the first pass read, so the corrective call can
// look at the image again with that context.
type RetryHint struct {
	Game       models.Game
	Name       string
	SetID      string
	CardNumber string
}

// CardOracle turns a card photo into an unverified guess.
// A nil hint is a first pass; a non-nil hint is the corrective re-query.
type CardOracle interface {
	Guess(ctx context.Context, image []byte, hint *RetryHint) (models.CardGuess, error)
}

// GeminiService reads card photos with Gemini vision in JSON mode
type GeminiService struct {
	client  *genai.Client
	model   string
	enabled bool
	logger  *zap.Logger

	// first-pass guesses by xxhash of the image bytes
	guesses *lru.Cache[uint64, models.CardGuess]
}

// NewGeminiService creates the oracle. An empty API key yields a disabled
// service whose Guess always returns ErrOracleDisabled.
func NewGeminiService(ctx context.Context, apiKey, model string, cacheSize int, logger *zap.Logger) (*GeminiService, error) {
	if model == "" {
		model = defaultGeminiModel
	}
	if cacheSize <= 0 {
		cacheSize = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	guesses, err := lru.New[uint64, models.CardGuess](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create guess cache: %w", err)
	}

	svc := &GeminiService{
		model:   model,
		logger:  logger.Named("gemini"),
		guesses: guesses,
	}

	if apiKey == "" {
		svc.logger.Info("Gemini service: disabled (no GOOGLE_API_KEY)")
		return svc, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	svc.client = client
	svc.enabled = true

	svc.logger.Info("Gemini service: enabled",
		zap.String("model", model),
		zap.Int("guess_cache", cacheSize),
	)
	return svc, nil
}

// IsEnabled returns whether Gemini is available
func (s *GeminiService) IsEnabled() bool {
	return s.enabled
}

func (s *GeminiService) Guess(ctx context.Context, image []byte, hint *RetryHint) (models.CardGuess, error) {
	if !s.enabled {
		return models.CardGuess{}, ErrOracleDisabled
	}
	if len(image) == 0 {
		return models.CardGuess{}, errors.New("empty image")
	}

	key := imageKey(image)
	if hint == nil {
		if guess, ok := s.guesses.Get(key); ok {
			metrics.CacheHitsTotal.WithLabelValues("oracle").Inc()
			return guess, nil
		}
		metrics.CacheMissesTotal.WithLabelValues("oracle").Inc()
	}

	ctx, cancel := context.WithTimeout(ctx, geminiTimeout)
	defer cancel()

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: detectMimeType(image), Data: image}},
			{Text: buildGuessPrompt(hint)},
		},
	}}
	temperature := float32(geminiTemperature)
	config := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
	}

	metrics.GeminiRequestsTotal.Inc()
	start := time.Now()
	resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, config)
	metrics.GeminiAPILatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GeminiErrorsTotal.WithLabelValues("api").Inc()
		return models.CardGuess{}, fmt.Errorf("gemini request failed: %w", err)
	}

	text := extractResponseText(resp)
	if text == "" {
		metrics.GeminiErrorsTotal.WithLabelValues("empty").Inc()
		return models.CardGuess{}, errors.New("gemini returned no text")
	}

	guess, err := parseCardGuess(text)
	if err != nil {
		metrics.GeminiErrorsTotal.WithLabelValues("parse").Inc()
		return models.CardGuess{}, err
	}
	metrics.GeminiConfidenceHistogram.Observe(guess.Confidence)

	s.logger.Debug("Card guessed",
		zap.Bool("retry", hint != nil),
		zap.String("game", string(guess.Game)),
		zap.String("name", guess.Name),
		zap.String("set_id", guess.SetID),
		zap.String("number", guess.CardNumber),
		zap.Float64("confidence", guess.Confidence),
	)

	if hint == nil {
		s.guesses.Add(key, guess)
	}
	return guess, nil
}

func imageKey(image []byte) uint64 {
	return xxhash.Sum64(image)
}

// detectMimeType returns the MIME type of image data, defaulting to JPEG
func detectMimeType(data []byte) string {
	mime := http.DetectContentType(data)
	if strings.HasPrefix(mime, "image/") {
		return mime
	}
	return "image/jpeg"
}

func extractResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}

// rawGuess mirrors the prompt's JSON contract. Numbers are sometimes
// emitted unquoted, so card_number goes through json.RawMessage.
type rawGuess struct {
	Game           string          `json:"game"`
	Name           string          `json:"name"`
	SetID          string          `json:"set_id"`
	SetName        string          `json:"set_name"`
	CardNumber     json.RawMessage `json:"card_number"`
	Rarity         string          `json:"rarity"`
	Language       string          `json:"language"`
	EstimatedValue float64         `json:"estimated_value"`
	Confidence     float64         `json:"confidence"`
	Reasoning      string          `json:"reasoning"`
}

// parseCardGuess extracts the guess from model output, tolerating markdown fences
func parseCardGuess(text string) (models.CardGuess, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimSuffix(text, "```")
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
	}
	text = strings.TrimSpace(text)

	var raw rawGuess
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return models.CardGuess{}, fmt.Errorf("failed to parse JSON: %w (text: %s)", err, truncate(text, 200))
	}

	return models.CardGuess{
		Game:           models.ParseGame(raw.Game),
		Name:           strings.TrimSpace(raw.Name),
		SetID:          strings.TrimSpace(raw.SetID),
		SetName:        strings.TrimSpace(raw.SetName),
		CardNumber:     rawNumber(raw.CardNumber),
		Rarity:         strings.TrimSpace(raw.Rarity),
		Language:       models.NormalizeLanguage(raw.Language),
		EstimatedValue: raw.EstimatedValue,
		Confidence:     raw.Confidence,
		Reasoning:      raw.Reasoning,
	}, nil
}

func rawNumber(msg json.RawMessage) string {
	if len(msg) == 0 || string(msg) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(msg, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(msg))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func buildGuessPrompt(hint *RetryHint) string {
	if hint == nil {
		return guessPrompt
	}

	var sb strings.Builder
	sb.WriteString(guessPrompt)
	sb.WriteString("\n\n=== SECOND LOOK ===\n")
	sb.WriteString("A previous reading of this same photo could not be matched to any card in the catalog:\n")
	fmt.Fprintf(&sb, "- game: %s\n", hint.Game)
	fmt.Fprintf(&sb, "- name: %q\n", hint.Name)
	fmt.Fprintf(&sb, "- set_id: %q\n", hint.SetID)
	fmt.Fprintf(&sb, "- card_number: %q\n", hint.CardNumber)
	sb.WriteString(retryInstructions)
	return sb.String()
}

const guessPrompt = `You are a trading card identification expert. The photo shows ONE trading card from one of: Pokemon TCG, Yu-Gi-Oh!, One Piece Card Game, Magic: The Gathering.

Read the card and answer with a single JSON object, no prose:
{
  "game": "pokemon" | "yugioh" | "onepiece" | "mtg",
  "name": "card name exactly as printed (English name if the card is English)",
  "set_id": "set code as printed or as you know it (e.g. sv3pt5, LOB, OP01, neo)",
  "set_name": "full set name if you recognize it, else empty",
  "card_number": "collector number exactly as printed (e.g. 025/165, LOB-EN001, OP01-024, 161)",
  "rarity": "rarity if visible or known, else empty",
  "language": "en" | "ja",
  "estimated_value": market value in USD as a number,
  "confidence": 0.0 to 1.0,
  "reasoning": "one sentence"
}

WHERE TO LOOK:
- Pokemon: collector number bottom-left or bottom-right ("025/165"), set symbol near the number, name top-left.
- Yu-Gi-Oh!: printing code under the artwork on the right ("LOB-EN001"), name at the top, rarity from the name foil.
- One Piece: card ID bottom-right ("OP01-024" or "ST01-001"), name at the bottom center.
- MTG: set code and collector number bottom-left on modern frames ("161 / 280 R", "NEO"), name top-left.

Never invent a number you cannot read; leave it empty instead.`

const retryInstructions = `
Look at the photo again. Re-read the name, the set code and the collector number character by character.
Common misreads: 0/O, 1/I/l, 5/S, 8/B, promo or alternate-art suffixes, a Japanese card read as English.
If the previous reading was right about a field, repeat it. Answer with the same JSON object.`
