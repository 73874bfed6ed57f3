package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/codyseavey/tcg-identify/internal/metrics"
	"github.com/codyseavey/tcg-identify/internal/models"
)

var (
	// "sv3pt5" -> "sv3.5"
	pokemonPointSuffix = regexp.MustCompile(`pt(\d+)`)
	// "sv03.5" -> ("sv", "03", ".5")
	pokemonSetParts = regexp.MustCompile(`^([a-z]+)(\d+)(.*)$`)
	// "OP01", "OP-01", "OP01-001"
	onePieceSetParts = regexp.MustCompile(`^([A-Za-z]+)-?(\d+)(?:-[A-Za-z]?\d+)?$`)
)

// minSetProbeLength keeps two-letter guesses from substring-matching half the listing
const minSetProbeLength = 3

type setKey struct {
	game models.Game
	lang models.Language
}

func (k setKey) String() string {
	return string(k.game) + ":" + string(k.lang)
}

// SetDirectory caches each catalog's set listing per (game, language) for the
// life of the process. Listings are fetched on first use, concurrent first
// uses share one upstream call, and entries are only dropped by Invalidate.
// Returned slices are shared and must not be modified.
type SetDirectory struct {
	catalogs map[models.Game]CatalogClient
	logger   *zap.Logger

	mu    sync.RWMutex
	sets  map[setKey][]models.CanonicalSet
	group singleflight.Group
}

func NewSetDirectory(catalogs map[models.Game]CatalogClient, logger *zap.Logger) *SetDirectory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SetDirectory{
		catalogs: catalogs,
		logger:   logger,
		sets:     make(map[setKey][]models.CanonicalSet),
	}
}

// Only Pokémon card data is per language; the other catalogs are English only.
func directoryKey(game models.Game, lang models.Language) setKey {
	if game != models.GamePokemon || lang == "" {
		lang = models.LanguageEnglish
	}
	return setKey{game: game, lang: lang}
}

// Sets returns the set listing for game, fetching it on first use. A failed
// fetch is returned as an error and not cached.
func (d *SetDirectory) Sets(ctx context.Context, game models.Game, lang models.Language) ([]models.CanonicalSet, error) {
	catalog, ok := d.catalogs[game]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedGame, game)
	}
	key := directoryKey(game, lang)

	d.mu.RLock()
	sets, ok := d.sets[key]
	d.mu.RUnlock()
	if ok {
		metrics.CacheHitsTotal.WithLabelValues("sets").Inc()
		return sets, nil
	}
	metrics.CacheMissesTotal.WithLabelValues("sets").Inc()

	ch := d.group.DoChan(key.String(), func() (any, error) {
		// Another caller may have filled the entry while we waited
		d.mu.RLock()
		cached, ok := d.sets[key]
		d.mu.RUnlock()
		if ok {
			return cached, nil
		}

		// The fetch is shared, so one caller's cancellation must not fail the rest
		fetched, err := catalog.FetchSets(context.WithoutCancel(ctx), key.lang)
		if err != nil {
			return nil, err
		}

		d.mu.Lock()
		d.sets[key] = fetched
		d.mu.Unlock()

		d.logger.Info("Loaded set listing",
			zap.String("game", string(game)),
			zap.String("lang", string(key.lang)),
			zap.Int("sets", len(fetched)))
		return fetched, nil
	})

	// The fetch keeps going for the other waiters; only this caller gives up
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		d.logger.Warn("Failed to load set listing",
			zap.String("game", string(game)),
			zap.String("lang", string(key.lang)),
			zap.Error(res.Err))
		return nil, res.Err
	}
	return res.Val.([]models.CanonicalSet), nil
}

// Lookup finds a set by its exact code, ignoring case
func (d *SetDirectory) Lookup(ctx context.Context, game models.Game, lang models.Language, code string) (models.CanonicalSet, bool) {
	sets, err := d.Sets(ctx, game, lang)
	if err != nil {
		return models.CanonicalSet{}, false
	}
	return findSetByCode(sets, code)
}

// ResolveSetID maps a guessed set identifier or name onto a canonical set
// code. Strategies run in order and the first hit wins:
//  1. exact code, ignoring case
//  2. the game's syntactic rewrites of the guessed ID
//  3. normalized guessed ID or name equal to a normalized display name
//  4. normalized containment either way, for probes of 3+ characters
//
// ok is false when nothing matched or the listing could not be loaded; the
// caller then carries on with the raw guess.
func (d *SetDirectory) ResolveSetID(ctx context.Context, game models.Game, guessedID, guessedName string, lang models.Language) (string, bool) {
	guessedID = strings.TrimSpace(guessedID)
	guessedName = strings.TrimSpace(guessedName)
	if guessedID == "" && guessedName == "" {
		return "", false
	}

	sets, err := d.Sets(ctx, game, lang)
	if err != nil || len(sets) == 0 {
		return "", false
	}

	if guessedID != "" {
		if set, ok := findSetByCode(sets, guessedID); ok {
			return set.Code, true
		}
		for _, rewritten := range setCodeRewrites(game, guessedID) {
			if set, ok := findSetByCode(sets, rewritten); ok {
				return set.Code, true
			}
		}
	}

	probes := make([]string, 0, 2)
	for _, p := range []string{guessedID, guessedName} {
		if n := NormalizeSetName(p); n != "" {
			probes = append(probes, n)
		}
	}

	for _, probe := range probes {
		for _, set := range sets {
			if NormalizeSetName(set.DisplayName) == probe {
				return set.Code, true
			}
		}
	}

	for _, probe := range probes {
		if len(probe) < minSetProbeLength {
			continue
		}
		if set, ok := closestContainingSet(sets, probe); ok {
			return set.Code, true
		}
	}

	return "", false
}

// Invalidate drops one cached listing so the next use refetches it
func (d *SetDirectory) Invalidate(game models.Game, lang models.Language) {
	d.mu.Lock()
	delete(d.sets, directoryKey(game, lang))
	d.mu.Unlock()
}

func (d *SetDirectory) InvalidateAll() {
	d.mu.Lock()
	d.sets = make(map[setKey][]models.CanonicalSet)
	d.mu.Unlock()
}

func findSetByCode(sets []models.CanonicalSet, code string) (models.CanonicalSet, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return models.CanonicalSet{}, false
	}
	for _, set := range sets {
		if strings.EqualFold(set.Code, code) {
			return set, true
		}
	}
	return models.CanonicalSet{}, false
}

// closestContainingSet returns the set whose normalized display name contains
// or is contained in probe, preferring the smallest length difference.
func closestContainingSet(sets []models.CanonicalSet, probe string) (models.CanonicalSet, bool) {
	var best models.CanonicalSet
	bestDiff := -1
	for _, set := range sets {
		name := NormalizeSetName(set.DisplayName)
		if len(name) < minSetProbeLength || !containsEither(name, probe) {
			continue
		}
		diff := absInt(len(name) - len(probe))
		if bestDiff < 0 || diff < bestDiff {
			best, bestDiff = set, diff
		}
	}
	return best, bestDiff >= 0
}

// setCodeRewrites returns the spellings a guessed set code may have in the
// catalog, most likely first.
func setCodeRewrites(game models.Game, guessedID string) []string {
	switch game {
	case models.GamePokemon:
		return pokemonSetRewrites(guessedID)
	case models.GameOnePiece:
		m := onePieceSetParts.FindStringSubmatch(guessedID)
		if m == nil {
			return nil
		}
		prefix := strings.ToUpper(m[1])
		return []string{prefix + "-" + m[2], prefix + m[2]}
	case models.GameYugioh:
		// "LOB-EN005" -> "LOB"
		if prefix := ygoSetPrefix(guessedID); prefix != "" && !strings.EqualFold(prefix, guessedID) {
			return []string{prefix}
		}
		return nil
	default:
		return nil
	}
}

// pokemonSetRewrites handles the pokemontcg.io-style codes the vision model
// tends to produce ("sv3pt5") against TCGdex codes ("sv03.5").
func pokemonSetRewrites(guessedID string) []string {
	base := strings.ToLower(strings.TrimSpace(guessedID))
	dotted := pokemonPointSuffix.ReplaceAllString(base, ".$1")

	var rewrites []string
	for _, form := range []string{base, dotted} {
		rewrites = append(rewrites, form, strings.ReplaceAll(form, ".", ""))
		if m := pokemonSetParts.FindStringSubmatch(form); m != nil {
			prefix, digits, rest := m[1], m[2], m[3]
			unpadded := strings.TrimLeft(digits, "0")
			if unpadded == "" {
				unpadded = "0"
			}
			padded := unpadded
			if len(padded) < 2 {
				padded = "0" + padded
			}
			rewrites = append(rewrites, prefix+padded+rest, prefix+unpadded+rest)
		}
	}

	seen := map[string]bool{base: true}
	out := rewrites[:0]
	for _, r := range rewrites {
		if r != "" && !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}
