package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/tcg-identify/internal/models"
	"github.com/codyseavey/tcg-identify/internal/services"
)

type fakeIdentifier struct {
	result    *models.IdentifyResult
	err       error
	lastImage []byte
	lastGuess models.CardGuess
}

func (f *fakeIdentifier) IdentifyCard(_ context.Context, image []byte) (*models.IdentifyResult, error) {
	f.lastImage = image
	return f.result, f.err
}

func (f *fakeIdentifier) VerifyGuess(_ context.Context, guess models.CardGuess) (*models.IdentifyResult, error) {
	f.lastGuess = guess
	return f.result, f.err
}

type fakeSets struct {
	sets        []models.CanonicalSet
	invalidated []string
}

func (f *fakeSets) Sets(_ context.Context, game models.Game, _ models.Language) ([]models.CanonicalSet, error) {
	if game == models.GameMTG {
		return nil, fmt.Errorf("scryfall down")
	}
	return f.sets, nil
}

func (f *fakeSets) ResolveSetID(_ context.Context, _ models.Game, id, name string, _ models.Language) (string, bool) {
	if id == "sv3pt5" || name == "151" {
		return "sv03.5", true
	}
	return "", false
}

func (f *fakeSets) Invalidate(game models.Game, lang models.Language) {
	f.invalidated = append(f.invalidated, string(game)+"/"+string(lang))
}

func (f *fakeSets) InvalidateAll() { f.invalidated = append(f.invalidated, "all") }

type fakePrices struct {
	cleared bool
}

func (f *fakePrices) BatchQuotes(_ context.Context, refs []models.CardRef) []models.PriceQuote {
	quotes := make([]models.PriceQuote, len(refs))
	for i, r := range refs {
		quotes[i] = models.PriceQuote{Game: r.Game, CardID: r.CardID, Source: "justtcg",
			Prices: []models.ConditionPrice{{Condition: models.PriceConditionNM, PriceUSD: 1.5}}}
	}
	return quotes
}

func (f *fakePrices) Clear()                 { f.cleared = true }
func (f *fakePrices) RequestsRemaining() int { return 42 }

type fakeMetadata struct{}

func (fakeMetadata) BatchLookup(_ context.Context, refs []models.CardRef) []*models.Candidate {
	out := make([]*models.Candidate, len(refs))
	for i, r := range refs {
		if r.CardID == "sv03.5-151" {
			out[i] = &models.Candidate{CatalogName: "Mew ex", CatalogCardID: r.CardID}
		}
	}
	return out
}

type fakeScans struct {
	records  map[string]*models.ScanRecord
	next     int
	imageDir string
}

func (f *fakeScans) Record(_ context.Context, result *models.IdentifyResult, image []byte) (*models.ScanRecord, error) {
	f.next++
	rec := models.NewScanRecord(fmt.Sprintf("scan-%d", f.next), result)
	if !rec.Verified && len(image) > 0 {
		rec.ImageFile = rec.ID + ".jpg"
	}
	f.records[rec.ID] = &rec
	return &rec, nil
}

func (f *fakeScans) List(_ context.Context, verified *bool, _ int) ([]models.ScanRecord, error) {
	var out []models.ScanRecord
	for _, r := range f.records {
		if verified == nil || r.Verified == *verified {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeScans) Get(_ context.Context, id string) (*models.ScanRecord, error) {
	rec, ok := f.records[id]
	if !ok {
		return nil, services.ErrScanNotFound
	}
	return rec, nil
}

func (f *fakeScans) ImagePath(ctx context.Context, id string) (string, error) {
	rec, err := f.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if rec.ImageFile == "" {
		return "", services.ErrScanImageNotFound
	}
	return filepath.Join(f.imageDir, rec.ImageFile), nil
}

func (f *fakeScans) Correct(ctx context.Context, id string, req models.CorrectScanRequest) (*models.ScanRecord, error) {
	rec, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.CardID, rec.Name, rec.Verified, rec.ManuallyCorrect = req.CardID, req.Name, true, true
	return rec, nil
}

type testServer struct {
	router     *gin.Engine
	identifier *fakeIdentifier
	sets       *fakeSets
	prices     *fakePrices
	scans      *fakeScans
}

func newTestServer() *testServer {
	gin.SetMode(gin.TestMode)
	ts := &testServer{
		identifier: &fakeIdentifier{result: &models.IdentifyResult{
			Identity: models.VerifiedIdentity{Game: models.GamePokemon, Name: "Mew ex", CardID: "sv03.5-151", Verified: true},
			Attempts: 1,
		}},
		sets:   &fakeSets{sets: []models.CanonicalSet{{Code: "sv03.5", DisplayName: "151"}}},
		prices: &fakePrices{},
		scans:  &fakeScans{records: make(map[string]*models.ScanRecord)},
	}
	ts.router = SetupRouter(Services{
		Identifier: ts.identifier,
		Sets:       ts.sets,
		Prices:     ts.prices,
		Metadata:   fakeMetadata{},
		Scans:      ts.scans,
	}, nil, nil)
	return ts
}

func (ts *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	ts := newTestServer()
	w := ts.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestIdentify_Base64RecordsScan(t *testing.T) {
	ts := newTestServer()

	w := ts.do(http.MethodPost, "/api/cards/identify", map[string]string{
		"image_base64": "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("jpeg-bytes")),
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []byte("jpeg-bytes"), ts.identifier.lastImage)
	body := decode(t, w)
	assert.Equal(t, "scan-1", body["scan_id"])
	identity := body["identity"].(map[string]any)
	assert.Equal(t, "sv03.5-151", identity["card_id"])
	assert.Len(t, ts.scans.records, 1)
}

func TestIdentify_Multipart(t *testing.T) {
	ts := newTestServer()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "card.jpg")
	require.NoError(t, err)
	_, _ = part.Write([]byte("photo"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/cards/identify", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []byte("photo"), ts.identifier.lastImage)
}

func TestIdentify_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"could not identify", fmt.Errorf("%w: no card name in guess", services.ErrCouldNotIdentify), http.StatusUnprocessableEntity},
		{"oracle disabled", fmt.Errorf("%w: %w", services.ErrCouldNotIdentify, services.ErrOracleDisabled), http.StatusServiceUnavailable},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer()
			ts.identifier.result, ts.identifier.err = nil, tt.err

			w := ts.do(http.MethodPost, "/api/cards/identify", map[string]string{
				"image_base64": base64.StdEncoding.EncodeToString([]byte("x")),
			})

			assert.Equal(t, tt.want, w.Code)
			assert.Empty(t, ts.scans.records)
		})
	}
}

func TestIdentify_BadInput(t *testing.T) {
	ts := newTestServer()

	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodPost, "/api/cards/identify", map[string]string{}).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodPost, "/api/cards/identify",
		map[string]string{"image_base64": "%%% not base64"}).Code)
	assert.Nil(t, ts.identifier.lastImage)
}

func TestVerifyCard(t *testing.T) {
	ts := newTestServer()

	w := ts.do(http.MethodPost, "/api/cards/verify", map[string]string{
		"game": "Pokémon", "name": "Mew ex", "set_id": "sv3pt5", "card_number": "151/165",
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.GamePokemon, ts.identifier.lastGuess.Game)
	assert.Equal(t, "151/165", ts.identifier.lastGuess.CardNumber)
}

func TestSets(t *testing.T) {
	ts := newTestServer()

	w := ts.do(http.MethodGet, "/api/sets/pokemon?lang=ja", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ja", body["language"])
	assert.Len(t, body["sets"], 1)

	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodGet, "/api/sets/digimon", nil).Code)
	assert.Equal(t, http.StatusBadGateway, ts.do(http.MethodGet, "/api/sets/mtg", nil).Code)

	w = ts.do(http.MethodGet, "/api/sets/pokemon/resolve?id=sv3pt5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, "sv03.5", body["code"])
	assert.Equal(t, true, body["resolved"])

	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodGet, "/api/sets/pokemon/resolve", nil).Code)

	assert.Equal(t, http.StatusOK, ts.do(http.MethodDelete, "/api/sets/cache?game=yugioh", nil).Code)
	assert.Equal(t, http.StatusOK, ts.do(http.MethodDelete, "/api/sets/cache", nil).Code)
	assert.Equal(t, []string{"yugioh/en", "all"}, ts.sets.invalidated)
}

func TestPrices(t *testing.T) {
	ts := newTestServer()

	w := ts.do(http.MethodPost, "/api/prices/batch", map[string]any{
		"cards": []map[string]string{{"game": "pokemon", "card_id": "sv03.5-151"}, {"game": "mtg", "card_id": "lea/161"}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["quotes"], 2)

	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodPost, "/api/prices/batch", map[string]any{
		"cards": []map[string]string{{"game": "pokemon"}},
	}).Code)

	assert.Equal(t, http.StatusOK, ts.do(http.MethodDelete, "/api/prices/cache", nil).Code)
	assert.True(t, ts.prices.cleared)

	w = ts.do(http.MethodGet, "/api/prices/status", nil)
	assert.Equal(t, float64(42), decode(t, w)["requests_remaining"])
}

func TestBatchMetadata(t *testing.T) {
	ts := newTestServer()

	w := ts.do(http.MethodPost, "/api/cards/metadata/batch", map[string]any{
		"cards": []map[string]string{{"game": "pokemon", "card_id": "sv03.5-151"}, {"game": "pokemon", "card_id": "nope"}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	cards := decode(t, w)["cards"].([]any)
	require.Len(t, cards, 2)
	assert.NotNil(t, cards[0])
	assert.Nil(t, cards[1])
}

func TestScans(t *testing.T) {
	ts := newTestServer()
	ts.identifier.result.Identity.Verified = false
	ts.do(http.MethodPost, "/api/cards/identify", map[string]string{
		"image_base64": base64.StdEncoding.EncodeToString([]byte("x")),
	})

	w := ts.do(http.MethodGet, "/api/scans?verified=false", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var scans []models.ScanRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &scans))
	require.Len(t, scans, 1)

	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodGet, "/api/scans?verified=maybe", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/api/scans/missing", nil).Code)

	ts.scans.imageDir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(ts.scans.imageDir, "scan-1.jpg"), []byte("x"), 0o600))
	w = ts.do(http.MethodGet, "/api/scans/scan-1/image", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "x", w.Body.String())

	w = ts.do(http.MethodPut, "/api/scans/scan-1", map[string]string{"card_id": "sv03.5-150", "name": "Mewtwo"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["verified"])
	assert.Equal(t, true, body["manually_corrected"])

	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodPut, "/api/scans/scan-1", map[string]string{"name": "x"}).Code)

	ts.identifier.result.Identity.Verified = true
	ts.do(http.MethodPost, "/api/cards/identify", map[string]string{
		"image_base64": base64.StdEncoding.EncodeToString([]byte("y")),
	})
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/api/scans/scan-2/image", nil).Code)
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer()
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/api/nope", nil).Code)
}
