package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/codyseavey/tcg-identify/internal/metrics"
	"github.com/codyseavey/tcg-identify/internal/models"
)

// IdentificationService turns a photo into a verified card identity:
// oracle guess, set resolution, verification, and at most one corrective
// oracle pass when the first guess cannot be verified.
type IdentificationService struct {
	oracle    CardOracle
	sets      *SetDirectory
	verifiers map[models.Game]CardVerifier
	logger    *zap.Logger
}

func NewIdentificationService(oracle CardOracle, sets *SetDirectory, verifiers map[models.Game]CardVerifier, logger *zap.Logger) *IdentificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentificationService{
		oracle:    oracle,
		sets:      sets,
		verifiers: verifiers,
		logger:    logger.Named("identify"),
	}
}

// IdentifyCard never returns an error for an unverified card; the result
// carries Verified=false instead. Errors mean the oracle produced nothing
// usable (wrapping ErrCouldNotIdentify) or ctx was cancelled.
func (s *IdentificationService) IdentifyCard(ctx context.Context, image []byte) (*models.IdentifyResult, error) {
	start := time.Now()
	defer func() { metrics.IdentifyDuration.Observe(time.Since(start).Seconds()) }()

	first, err := s.oracle.Guess(ctx, image, nil)
	if err != nil {
		metrics.IdentifyRequestsTotal.WithLabelValues("unknown", "oracle_failed").Inc()
		return nil, fmt.Errorf("%w: %w", ErrCouldNotIdentify, err)
	}
	if err := s.checkGuess(first); err != nil {
		metrics.IdentifyRequestsTotal.WithLabelValues(gameLabel(first.Game), "oracle_failed").Inc()
		return nil, err
	}

	result := s.verify(ctx, first)
	result.Attempts = 1
	if result.Identity.Verified {
		s.finish(result)
		return result, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	metrics.IdentifyRetriesTotal.Inc()
	hint := &RetryHint{
		Game:       first.Game,
		Name:       first.Name,
		SetID:      first.SetID,
		CardNumber: first.CardNumber,
	}
	second, err := s.oracle.Guess(ctx, image, hint)
	if err == nil {
		err = s.checkGuess(second)
	}
	if err != nil {
		s.logger.Warn("Corrective oracle pass failed, keeping first result",
			zap.String("name", first.Name),
			zap.Error(err))
		s.finish(result)
		return result, nil
	}

	retried := s.verify(ctx, second)
	retried.FirstGuess = first
	retried.RetryGuess = &second
	retried.Attempts = 2
	s.finish(retried)
	return retried, nil
}

// VerifyGuess runs resolution and verification on a guess that did not
// come from the oracle, such as a manual correction.
func (s *IdentificationService) VerifyGuess(ctx context.Context, guess models.CardGuess) (*models.IdentifyResult, error) {
	if err := s.checkGuess(guess); err != nil {
		return nil, err
	}
	result := s.verify(ctx, guess)
	result.Attempts = 1
	return result, nil
}

func (s *IdentificationService) checkGuess(guess models.CardGuess) error {
	if strings.TrimSpace(guess.Name) == "" {
		return fmt.Errorf("%w: no card name in guess", ErrCouldNotIdentify)
	}
	if _, ok := s.verifiers[guess.Game]; !ok {
		return fmt.Errorf("%w: %w %q", ErrCouldNotIdentify, ErrUnsupportedGame, guess.Game)
	}
	return nil
}

func (s *IdentificationService) verify(ctx context.Context, guess models.CardGuess) *models.IdentifyResult {
	normalized := s.normalize(ctx, guess)
	identity := s.verifiers[guess.Game].Verify(ctx, normalized)

	result := &models.IdentifyResult{
		Identity:   identity,
		FirstGuess: guess,
	}
	if normalized.SetResolved {
		result.ResolvedSetCode = normalized.SetCode
	}
	return result
}

func (s *IdentificationService) normalize(ctx context.Context, guess models.CardGuess) models.NormalizedGuess {
	guess.Language = models.NormalizeLanguage(string(guess.Language))
	normalized := models.NormalizedGuess{
		CardGuess: guess,
		Number:    CleanCollectorNumber(guess.CardNumber),
		SetCode:   strings.TrimSpace(guess.SetID),
	}

	if code, ok := s.sets.ResolveSetID(ctx, guess.Game, guess.SetID, guess.SetName, guess.Language); ok {
		normalized.SetCode = code
		normalized.SetResolved = true
	}
	return normalized
}

func (s *IdentificationService) finish(result *models.IdentifyResult) {
	identity := result.Identity
	outcome := "unverified"
	switch {
	case identity.Verified && identity.LowConfidence:
		outcome = "low_confidence"
	case identity.Verified:
		outcome = "verified"
	}
	metrics.IdentifyRequestsTotal.WithLabelValues(gameLabel(identity.Game), outcome).Inc()

	s.logger.Info("Card identified",
		zap.String("game", string(identity.Game)),
		zap.String("name", identity.Name),
		zap.String("card_id", identity.CardID),
		zap.Bool("verified", identity.Verified),
		zap.String("strategy", string(identity.Strategy)),
		zap.Int("attempts", result.Attempts),
	)
}

func gameLabel(g models.Game) string {
	if g.Valid() {
		return string(g)
	}
	return "unknown"
}
