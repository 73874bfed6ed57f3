package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/codyseavey/tcg-identify/internal/metrics"
	"github.com/codyseavey/tcg-identify/internal/models"
)

// CardVerifier confirms a normalized guess against one game's catalog.
// Verify never fails: an unmatched guess comes back with Verified=false.
type CardVerifier interface {
	Verify(ctx context.Context, guess models.NormalizedGuess) models.VerifiedIdentity
}

type VerifierOptions struct {
	// PreferNumberFallback accepts a direct-ID hit whose name disagrees with
	// the guess as verified (low confidence) when no name-based strategy
	// matched. When false that hit is only reported as an unverified suggestion.
	PreferNumberFallback bool
	// MaxNumberDistance bounds how far a global search result's collector
	// number may be from the guess and still be picked for proximity.
	MaxNumberDistance int
}

func DefaultVerifierOptions() VerifierOptions {
	return VerifierOptions{
		PreferNumberFallback: true,
		MaxNumberDistance:    5,
	}
}

// gameRules is what differs between games; the ladder itself is shared.
type gameRules interface {
	// directIDs lists catalog IDs to probe for the guess, most likely first
	directIDs(guess models.NormalizedGuess, width int) []string
	// setCodes lists the set code spellings to list for an in-set search
	setCodes(guess models.NormalizedGuess) []string
	// tieBreak picks among several same-set name matches
	tieBreak(guess models.NormalizedGuess, matches []models.Candidate) models.Candidate
	// refine may swap a name-confirmed direct hit for a better printing
	refine(ctx context.Context, v *LadderVerifier, catalog CatalogClient, guess models.NormalizedGuess, hit models.Candidate) models.Candidate
	// lastResort runs after partial-name search and before the number-only fallback
	lastResort(ctx context.Context, v *LadderVerifier, catalog CatalogClient, guess models.NormalizedGuess) (models.Candidate, bool)
	// preferNewest picks the most recent printing when nothing else ranks
	// global search results
	preferNewest() bool
}

// baseRules holds the defaults shared by most games
type baseRules struct{}

func (baseRules) setCodes(guess models.NormalizedGuess) []string {
	if guess.SetCode == "" {
		return nil
	}
	return []string{guess.SetCode}
}

// tieBreak prefers a candidate whose catalog ID ends with the collector number
func (baseRules) tieBreak(guess models.NormalizedGuess, matches []models.Candidate) models.Candidate {
	if c, ok := pickByIDSuffix(guess, matches); ok {
		return c
	}
	return matches[0]
}

func (baseRules) refine(_ context.Context, _ *LadderVerifier, _ CatalogClient, _ models.NormalizedGuess, hit models.Candidate) models.Candidate {
	return hit
}

func (baseRules) lastResort(context.Context, *LadderVerifier, CatalogClient, models.NormalizedGuess) (models.Candidate, bool) {
	return models.Candidate{}, false
}

func (baseRules) preferNewest() bool { return false }

// LadderVerifier runs the fallback ladder against one catalog:
//  1. direct ID probe (a numeric hit with the wrong name is kept aside)
//  2. in-set search filtered by name
//  3. global name search
//  4. the same with the last word of the name dropped
//  5. the game's last resort (MTG fuzzy lookup)
//  6. the number-only hit from step 1
//
// and otherwise returns the guess unverified.
type LadderVerifier struct {
	game    models.Game
	catalog CatalogClient
	sets    *SetDirectory
	rules   gameRules
	opts    VerifierOptions
	logger  *zap.Logger
}

func newLadderVerifier(game models.Game, catalog CatalogClient, sets *SetDirectory, rules gameRules, opts VerifierOptions, logger *zap.Logger) *LadderVerifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LadderVerifier{
		game:    game,
		catalog: catalog,
		sets:    sets,
		rules:   rules,
		opts:    opts,
		logger:  logger.With(zap.String("game", string(game))),
	}
}

// NewVerifierRegistry builds one verifier per catalog. Games without a
// catalog are left out.
func NewVerifierRegistry(catalogs map[models.Game]CatalogClient, sets *SetDirectory, opts VerifierOptions, logger *zap.Logger) map[models.Game]CardVerifier {
	registry := make(map[models.Game]CardVerifier, len(catalogs))
	for game, catalog := range catalogs {
		switch game {
		case models.GamePokemon:
			registry[game] = NewPokemonVerifier(catalog, sets, opts, logger)
		case models.GameYugioh:
			registry[game] = NewYugiohVerifier(catalog, sets, opts, logger)
		case models.GameOnePiece:
			registry[game] = NewOnePieceVerifier(catalog, sets, opts, logger)
		case models.GameMTG:
			registry[game] = NewMTGVerifier(catalog, sets, opts, logger)
		}
	}
	return registry
}

func (v *LadderVerifier) Verify(ctx context.Context, guess models.NormalizedGuess) models.VerifiedIdentity {
	catalog := v.catalogFor(guess.Language)

	hit, numberOnly := v.probeDirectID(ctx, catalog, guess)
	if hit != nil {
		return v.accept(guess, v.rules.refine(ctx, v, catalog, guess, *hit), models.StrategyDirectID)
	}

	if c, ok := v.searchInSet(ctx, catalog, guess); ok {
		return v.accept(guess, c, models.StrategyInSet)
	}

	if c, ok := v.searchByName(ctx, catalog, guess, guess.Name); ok {
		return v.accept(guess, c, models.StrategyNameSearch)
	}

	if partial := DropLastWord(guess.Name); partial != "" {
		if c, ok := v.searchByName(ctx, catalog, guess, partial); ok {
			return v.accept(guess, c, models.StrategyPartialName)
		}
	}

	if c, ok := v.rules.lastResort(ctx, v, catalog, guess); ok {
		return v.accept(guess, c, models.StrategyGlobalFuzzy)
	}

	if numberOnly != nil {
		if v.opts.PreferNumberFallback {
			identity := v.accept(guess, *numberOnly, models.StrategyNumberOnly)
			identity.LowConfidence = true
			return identity
		}
		return v.suggest(guess, *numberOnly)
	}

	return v.unverified(guess)
}

// catalogFor narrows per-language catalogs to the guess's language
func (v *LadderVerifier) catalogFor(lang models.Language) CatalogClient {
	if scoped, ok := v.catalog.(LanguageScoped); ok && lang != "" {
		return scoped.ForLanguage(lang)
	}
	return v.catalog
}

// probeDirectID returns a name-confirmed hit, or failing that the first hit
// whose name disagreed with the guess.
func (v *LadderVerifier) probeDirectID(ctx context.Context, catalog CatalogClient, guess models.NormalizedGuess) (hit, numberOnly *models.Candidate) {
	if guess.Number == "" || guess.SetCode == "" {
		return nil, nil
	}

	for _, id := range v.rules.directIDs(guess, catalog.IDWidth()) {
		c := catalog.FetchByID(ctx, id)
		if c == nil {
			continue
		}
		if NamesMatch(guess.Name, c.CatalogName) {
			return c, nil
		}
		if numberOnly == nil {
			v.logger.Debug("Direct ID hit with mismatched name",
				zap.String("id", id),
				zap.String("guessed", guess.Name),
				zap.String("catalog", c.CatalogName))
			numberOnly = c
		}
	}
	return nil, numberOnly
}

func (v *LadderVerifier) searchInSet(ctx context.Context, catalog CatalogClient, guess models.NormalizedGuess) (models.Candidate, bool) {
	for _, code := range v.rules.setCodes(guess) {
		cards := v.setCards(ctx, catalog, guess.Language, code)
		if len(cards) == 0 {
			continue
		}

		matches := filterByName(cards, guess.Name)
		switch len(matches) {
		case 0:
			return models.Candidate{}, false
		case 1:
			return matches[0], true
		default:
			return v.rules.tieBreak(guess, matches), true
		}
	}
	return models.Candidate{}, false
}

// setCards lists a set by code. The directory supplies the display name some
// catalogs list by; an unknown code is still tried as-is.
func (v *LadderVerifier) setCards(ctx context.Context, catalog CatalogClient, lang models.Language, code string) []models.Candidate {
	set := models.CanonicalSet{Code: code}
	if v.sets != nil {
		if known, ok := v.sets.Lookup(ctx, v.game, lang, code); ok {
			set = known
		}
	}
	return catalog.FetchBySet(ctx, set)
}

// searchByName runs a catalog-wide name search and ranks the name matches:
// guessed set first, then exact collector number, then nearest number within
// MaxNumberDistance, then newest (MTG) or first.
func (v *LadderVerifier) searchByName(ctx context.Context, catalog CatalogClient, guess models.NormalizedGuess, name string) (models.Candidate, bool) {
	matches := filterByName(catalog.FetchByName(ctx, name), name)
	if len(matches) == 0 {
		return models.Candidate{}, false
	}
	return v.rankGlobal(guess, matches), true
}

func (v *LadderVerifier) rankGlobal(guess models.NormalizedGuess, matches []models.Candidate) models.Candidate {
	if guess.SetCode != "" {
		var inSet []models.Candidate
		for _, c := range matches {
			if sameSetCode(c.CatalogSetCode, guess.SetCode) {
				inSet = append(inSet, c)
			}
		}
		switch len(inSet) {
		case 0:
		case 1:
			return inSet[0]
		default:
			return v.rules.tieBreak(guess, inSet)
		}
	}

	if guess.Number != "" {
		for _, c := range matches {
			if sameCollectorNumber(c.CollectorNumber, guess.Number) {
				return c
			}
		}
		if c, ok := nearestByNumber(guess.Number, matches, v.opts.MaxNumberDistance); ok {
			return c
		}
	}

	if v.rules.preferNewest() {
		return newestCandidate(matches)
	}
	return matches[0]
}

func (v *LadderVerifier) accept(guess models.NormalizedGuess, c models.Candidate, strategy models.MatchStrategy) models.VerifiedIdentity {
	metrics.VerificationTotal.WithLabelValues(string(v.game), string(strategy)).Inc()
	v.logger.Debug("Card verified",
		zap.String("strategy", string(strategy)),
		zap.String("guessed", guess.Name),
		zap.String("card_id", c.CatalogCardID))

	rarity := c.Rarity
	if rarity == "" {
		rarity = guess.Rarity
	}
	return models.VerifiedIdentity{
		Game:       v.game,
		Name:       c.CatalogName,
		CardID:     c.CatalogCardID,
		SetCode:    c.CatalogSetCode,
		CardNumber: c.CollectorNumber,
		Rarity:     rarity,
		Verified:   true,
		Strategy:   strategy,
	}
}

// suggest reports a number-only hit without vouching for it
func (v *LadderVerifier) suggest(guess models.NormalizedGuess, c models.Candidate) models.VerifiedIdentity {
	metrics.VerificationTotal.WithLabelValues(string(v.game), string(models.StrategyNumberOnly)).Inc()
	return models.VerifiedIdentity{
		Game:          v.game,
		Name:          guess.Name,
		CardID:        c.CatalogCardID,
		SetCode:       c.CatalogSetCode,
		CardNumber:    c.CollectorNumber,
		Rarity:        guess.Rarity,
		Verified:      false,
		LowConfidence: true,
		Strategy:      models.StrategyNumberOnly,
	}
}

func (v *LadderVerifier) unverified(guess models.NormalizedGuess) models.VerifiedIdentity {
	metrics.VerificationTotal.WithLabelValues(string(v.game), string(models.StrategyNone)).Inc()
	v.logger.Debug("Card not verified",
		zap.String("guessed", guess.Name),
		zap.String("set", guess.SetCode),
		zap.String("number", guess.Number))

	return models.VerifiedIdentity{
		Game:       v.game,
		Name:       guess.Name,
		SetCode:    guess.SetCode,
		CardNumber: guess.Number,
		Rarity:     guess.Rarity,
		Verified:   false,
		Strategy:   models.StrategyNone,
	}
}

func filterByName(cards []models.Candidate, name string) []models.Candidate {
	var matches []models.Candidate
	for _, c := range cards {
		if NamesMatch(name, c.CatalogName) {
			matches = append(matches, c)
		}
	}
	return matches
}

// sameSetCode compares set codes ignoring case and dashes ("OP-01" == "op01")
func sameSetCode(a, b string) bool {
	return a != "" && NormalizeSetName(a) == NormalizeSetName(b)
}

// sameCollectorNumber compares numbers ignoring case and zero padding
func sameCollectorNumber(a, b string) bool {
	trim := func(s string) string {
		s = strings.ToLower(strings.TrimSpace(s))
		if t := strings.TrimLeft(s, "0"); t != "" {
			return t
		}
		return s
	}
	return a != "" && trim(a) == trim(b)
}

// nearestByNumber picks the candidate with the closest collector number,
// only if it is within maxDistance.
func nearestByNumber(number string, candidates []models.Candidate, maxDistance int) (models.Candidate, bool) {
	target, ok := ParseCollectorNumber(number)
	if !ok {
		return models.Candidate{}, false
	}

	var best models.Candidate
	bestDistance := -1
	for _, c := range candidates {
		n, ok := ParseCollectorNumber(c.CollectorNumber)
		if !ok {
			continue
		}
		d := absInt(n - target)
		if d > maxDistance {
			continue
		}
		if bestDistance < 0 || d < bestDistance {
			best, bestDistance = c, d
		}
	}
	return best, bestDistance >= 0
}

// newestCandidate returns the most recently released candidate. Release
// dates are YYYY-MM-DD so they compare as strings.
func newestCandidate(candidates []models.Candidate) models.Candidate {
	newest := candidates[0]
	for _, c := range candidates[1:] {
		if c.ReleasedAt > newest.ReleasedAt {
			newest = c
		}
	}
	return newest
}

// pickByIDSuffix finds a candidate whose catalog ID ends in one of the
// guess's number variants
func pickByIDSuffix(guess models.NormalizedGuess, candidates []models.Candidate) (models.Candidate, bool) {
	if guess.Number == "" {
		return models.Candidate{}, false
	}
	variants := NumberVariants(guess.Number, 3)
	for _, c := range candidates {
		id := strings.ToLower(c.CatalogCardID)
		for _, n := range variants {
			if hasNumberSuffix(id, strings.ToLower(n)) {
				return c, true
			}
		}
	}
	return models.Candidate{}, false
}

// hasNumberSuffix is HasSuffix that refuses to split a digit run, so "5"
// does not match "lob-en015"
func hasNumberSuffix(id, number string) bool {
	if !strings.HasSuffix(id, number) {
		return false
	}
	rest := id[:len(id)-len(number)]
	if rest == "" {
		return true
	}
	last := rest[len(rest)-1]
	return last < '0' || last > '9'
}
