package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/tcg-identify/internal/models"
)

func newTestDirectory() (*SetDirectory, map[models.Game]*fakeCatalog) {
	pokemon := newFakeCatalog(models.GamePokemon, 3)
	pokemon.sets = []models.CanonicalSet{
		{Code: "sv03.5", DisplayName: "151"},
		{Code: "sv01", DisplayName: "Scarlet & Violet"},
		{Code: "swsh12.5", DisplayName: "Crown Zenith"},
		{Code: "base1", DisplayName: "Base Set"},
	}
	onePiece := newFakeCatalog(models.GameOnePiece, 3)
	onePiece.sets = []models.CanonicalSet{
		{Code: "OP-01", DisplayName: "Romance Dawn"},
		{Code: "ST-10", DisplayName: "Ultra Deck: The Three Captains"},
	}
	yugioh := newFakeCatalog(models.GameYugioh, 3)
	yugioh.sets = []models.CanonicalSet{
		{Code: "LOB", DisplayName: "Legend of Blue Eyes White Dragon"},
		{Code: "SDY", DisplayName: "Starter Deck: Yugi"},
	}
	mtg := newFakeCatalog(models.GameMTG, 0)
	mtg.sets = []models.CanonicalSet{
		{Code: "neo", DisplayName: "Kamigawa: Neon Dynasty"},
		{Code: "m10", DisplayName: "Magic 2010"},
	}

	fakes := map[models.Game]*fakeCatalog{
		models.GamePokemon:  pokemon,
		models.GameOnePiece: onePiece,
		models.GameYugioh:   yugioh,
		models.GameMTG:      mtg,
	}
	catalogs := make(map[models.Game]CatalogClient, len(fakes))
	for g, f := range fakes {
		catalogs[g] = f
	}
	return NewSetDirectory(catalogs, nil), fakes
}

func TestResolveSetID(t *testing.T) {
	dir, _ := newTestDirectory()
	ctx := context.Background()

	tests := []struct {
		name      string
		game      models.Game
		guessedID string
		guessName string
		want      string
		wantOK    bool
	}{
		{"Exact code", models.GamePokemon, "sv03.5", "", "sv03.5", true},
		{"Exact code ignores case", models.GameMTG, "NEO", "", "neo", true},
		{"Pokemon pt rewrite", models.GamePokemon, "sv3pt5", "", "sv03.5", true},
		{"Pokemon padding rewrite", models.GamePokemon, "sv1", "", "sv01", true},
		{"Pokemon double-digit pt rewrite", models.GamePokemon, "swsh12pt5", "", "swsh12.5", true},
		{"One Piece dash inserted", models.GameOnePiece, "OP01", "", "OP-01", true},
		{"One Piece card ID", models.GameOnePiece, "ST10-001", "", "ST-10", true},
		{"Yu-Gi-Oh printing suffix dropped", models.GameYugioh, "LOB-EN005", "", "LOB", true},
		{"Name match", models.GamePokemon, "", "Crown Zenith", "swsh12.5", true},
		{"Spelled-out conjunction does not match", models.GamePokemon, "", "scarlet and violet", "", false},
		{"Name match normalized", models.GameYugioh, "", "Starter Deck Yugi", "SDY", true},
		{"ID used as name", models.GamePokemon, "Base Set", "", "base1", true},
		{"Substring of display name", models.GameOnePiece, "", "Three Captains", "ST-10", true},
		{"Display name inside guess", models.GameMTG, "", "Magic 2010 Core Set", "m10", true},
		{"Short probe skipped", models.GamePokemon, "", "15", "", false},
		{"Nothing matches", models.GameMTG, "zzz", "Unknown Set", "", false},
		{"Empty guess", models.GameMTG, "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := dir.ResolveSetID(ctx, tt.game, tt.guessedID, tt.guessName, models.LanguageEnglish)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveSetID_Idempotent(t *testing.T) {
	dir, fakes := newTestDirectory()
	ctx := context.Background()

	first, ok1 := dir.ResolveSetID(ctx, models.GamePokemon, "sv3pt5", "151", models.LanguageEnglish)
	second, ok2 := dir.ResolveSetID(ctx, models.GamePokemon, "sv3pt5", "151", models.LanguageEnglish)

	assert.Equal(t, first, second)
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, 1, fakes[models.GamePokemon].callCount("sets"))
}

func TestSetDirectory_LanguageKeying(t *testing.T) {
	dir, fakes := newTestDirectory()
	ctx := context.Background()

	_, err := dir.Sets(ctx, models.GamePokemon, models.LanguageEnglish)
	require.NoError(t, err)
	_, err = dir.Sets(ctx, models.GamePokemon, models.LanguageJapanese)
	require.NoError(t, err)
	assert.Equal(t, 2, fakes[models.GamePokemon].callCount("sets"), "Pokémon listings are per language")

	_, err = dir.Sets(ctx, models.GameMTG, models.LanguageEnglish)
	require.NoError(t, err)
	_, err = dir.Sets(ctx, models.GameMTG, models.LanguageJapanese)
	require.NoError(t, err)
	assert.Equal(t, 1, fakes[models.GameMTG].callCount("sets"), "other games share one listing")
}

func TestSetDirectory_ConcurrentFirstUseSharesFetch(t *testing.T) {
	dir, fakes := newTestDirectory()
	fakes[models.GameYugioh].setDelay = 50 * time.Millisecond

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sets, err := dir.Sets(context.Background(), models.GameYugioh, models.LanguageEnglish)
			assert.NoError(t, err)
			assert.Len(t, sets, 2)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, fakes[models.GameYugioh].callCount("sets"))
}

func TestSetDirectory_CallerDeadlineBoundsWait(t *testing.T) {
	dir, fakes := newTestDirectory()
	yugioh := fakes[models.GameYugioh]
	yugioh.setDelay = 300 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := dir.Sets(ctx, models.GameYugioh, models.LanguageEnglish)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 200*time.Millisecond)

	// The shared fetch was not abandoned: a patient caller joins it
	sets, err := dir.Sets(context.Background(), models.GameYugioh, models.LanguageEnglish)
	require.NoError(t, err)
	assert.Len(t, sets, 2)
	assert.Equal(t, 1, yugioh.callCount("sets"))
}

func TestSetDirectory_FailedListingNotCached(t *testing.T) {
	dir, fakes := newTestDirectory()
	ctx := context.Background()
	mtg := fakes[models.GameMTG]

	mtg.setsErr = errors.New("upstream down")
	_, err := dir.Sets(ctx, models.GameMTG, models.LanguageEnglish)
	require.Error(t, err)

	_, ok := dir.ResolveSetID(ctx, models.GameMTG, "neo", "", models.LanguageEnglish)
	assert.False(t, ok)

	mtg.setsErr = nil
	code, ok := dir.ResolveSetID(ctx, models.GameMTG, "neo", "", models.LanguageEnglish)
	assert.True(t, ok)
	assert.Equal(t, "neo", code)
	assert.Equal(t, 3, mtg.callCount("sets"))
}

func TestSetDirectory_InvalidateForcesRefetch(t *testing.T) {
	dir, fakes := newTestDirectory()
	ctx := context.Background()
	pokemon := fakes[models.GamePokemon]

	_, _ = dir.Sets(ctx, models.GamePokemon, models.LanguageEnglish)
	_, _ = dir.Sets(ctx, models.GamePokemon, models.LanguageEnglish)
	assert.Equal(t, 1, pokemon.callCount("sets"))

	dir.Invalidate(models.GamePokemon, models.LanguageEnglish)
	_, _ = dir.Sets(ctx, models.GamePokemon, models.LanguageEnglish)
	assert.Equal(t, 2, pokemon.callCount("sets"))

	_, _ = dir.Sets(ctx, models.GameMTG, models.LanguageEnglish)
	dir.InvalidateAll()
	_, _ = dir.Sets(ctx, models.GamePokemon, models.LanguageEnglish)
	_, _ = dir.Sets(ctx, models.GameMTG, models.LanguageEnglish)
	assert.Equal(t, 3, pokemon.callCount("sets"))
	assert.Equal(t, 2, fakes[models.GameMTG].callCount("sets"))
}

func TestSetDirectory_UnsupportedGame(t *testing.T) {
	dir, _ := newTestDirectory()

	_, err := dir.Sets(context.Background(), models.Game("digimon"), models.LanguageEnglish)
	assert.ErrorIs(t, err, ErrUnsupportedGame)
}

func TestSetDirectory_Lookup(t *testing.T) {
	dir, _ := newTestDirectory()

	set, ok := dir.Lookup(context.Background(), models.GameOnePiece, models.LanguageEnglish, "op-01")
	require.True(t, ok)
	assert.Equal(t, "Romance Dawn", set.DisplayName)
}
