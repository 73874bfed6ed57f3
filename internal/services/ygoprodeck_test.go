package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/tcg-identify/internal/models"
)

const ygoDarkMagicianJSON = `{"data":[{
	"id":46986414,"name":"Dark Magician",
	"card_sets":[
		{"set_name":"Legend of Blue Eyes White Dragon","set_code":"LOB-EN005","set_rarity":"Ultra Rare"},
		{"set_name":"Starter Deck: Yugi","set_code":"SDY-006","set_rarity":"Ultra Rare"},
		{"set_name":"Legendary Collection 3","set_code":"LCYW-EN001","set_rarity":"Secret Rare"},
		{"set_name":"Legendary Collection 3","set_code":"LCYW-EN001","set_rarity":"Ultra Rare"}
	],
	"card_images":[{"image_url":"https://images.ygoprodeck.com/images/cards/46986414.jpg"}]
}]}`

func newTestYGOProDeck(t *testing.T) *YGOProDeckClient {
	upstream := newFakeUpstream(t, map[string][]upstreamRoute{
		"/cardsets.php": {{body: `[
			{"set_name":"Legend of Blue Eyes White Dragon","set_code":"LOB","num_of_cards":126,"tcg_date":"2002-03-08"},
			{"set_name":"Legend of Blue Eyes White Dragon (25th)","set_code":"lob","num_of_cards":126},
			{"set_name":"Legendary Collection 3","set_code":"LCYW","num_of_cards":1}
		]`}},
		"/cardinfo.php": {
			{query: "cardset=Legendary+Collection+3", body: ygoDarkMagicianJSON},
			{query: "fname=Dark+Magician", body: ygoDarkMagicianJSON},
			{query: "fname=Nothing", status: http.StatusBadRequest, body: `{"error":"No card matching your query was found in the database."}`},
		},
		"/cardsetsinfo.php": {
			{query: "setcode=LOB-EN005", body: `{"id":46986414,"name":"Dark Magician","set_name":"Legend of Blue Eyes White Dragon","set_code":"LOB-EN005","set_rarity":"Ultra Rare"}`},
			{query: "setcode=LOB-EN999", status: http.StatusBadRequest, body: `{"error":"No card matching your query was found in the database."}`},
		},
	})
	return NewYGOProDeckClient(CatalogOptions{BaseURL: upstream.URL})
}

func TestYGOProDeckClient_FetchSets(t *testing.T) {
	client := newTestYGOProDeck(t)

	sets, err := client.FetchSets(context.Background(), models.LanguageEnglish)
	require.NoError(t, err)
	require.Len(t, sets, 2, "duplicate set codes collapse to the first listing")
	assert.Equal(t, "LOB", sets[0].Code)
	assert.Equal(t, "2002-03-08", sets[0].ReleaseDate)
	assert.Equal(t, 126, sets[0].TotalCardCount)
}

func TestYGOProDeckClient_FetchByID(t *testing.T) {
	client := newTestYGOProDeck(t)
	ctx := context.Background()

	card := client.FetchByID(ctx, "lob-en005")
	require.NotNil(t, card)
	assert.Equal(t, "Dark Magician", card.CatalogName)
	assert.Equal(t, "LOB-EN005", card.CatalogCardID)
	assert.Equal(t, "LOB", card.CatalogSetCode)
	assert.Equal(t, "005", card.CollectorNumber)
	assert.Equal(t, "Ultra Rare", card.Rarity)

	assert.Nil(t, client.FetchByID(ctx, "LOB-EN999"), "400 means no match")
}

func TestYGOProDeckClient_FetchBySetKeepsOnlySetPrintings(t *testing.T) {
	client := newTestYGOProDeck(t)

	cards := client.FetchBySet(context.Background(), models.CanonicalSet{Code: "LCYW", DisplayName: "Legendary Collection 3"})
	require.Len(t, cards, 2)
	for _, c := range cards {
		assert.Equal(t, "LCYW", c.CatalogSetCode)
		assert.Equal(t, "LCYW-EN001", c.CatalogCardID)
		assert.Equal(t, []string{"Secret Rare", "Ultra Rare"}, c.Rarities)
	}
	assert.Equal(t, "Secret Rare", cards[0].Rarity)
	assert.Equal(t, "Ultra Rare", cards[1].Rarity)
}

func TestYGOProDeckClient_FetchByName(t *testing.T) {
	client := newTestYGOProDeck(t)
	ctx := context.Background()

	cards := client.FetchByName(ctx, "Dark Magician")
	require.Len(t, cards, 4)
	assert.Equal(t, "SDY", cards[1].CatalogSetCode)
	assert.Equal(t, "006", cards[1].CollectorNumber)

	assert.Empty(t, client.FetchByName(ctx, "Nothing"))
}
