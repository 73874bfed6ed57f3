package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/tcg-identify/internal/models"
)

const optcgLuffyJSON = `[
	{"card_name":"Monkey.D.Luffy","card_set_id":"OP01-024","card_image_id":"OP01-024_p1","set_id":"OP-01","rarity":"SR","card_image":"https://optcgapi.com/media/static/Card_Images/OP01-024_p1.jpg"},
	{"card_name":"Monkey.D.Luffy","card_set_id":"OP01-024","card_image_id":"OP01-024","set_id":"OP-01","rarity":"SR","card_image":"https://optcgapi.com/media/static/Card_Images/OP01-024.jpg"},
	{"card_name":"Roronoa Zoro","card_set_id":"OP01-025","card_image_id":"OP01-025","set_id":"OP-01","rarity":"SR"}
]`

func newTestOPTCG(t *testing.T) *OPTCGClient {
	upstream := newFakeUpstream(t, map[string][]upstreamRoute{
		"/allSets/":             {{body: `[{"set_name":"Romance Dawn","set_id":"OP-01"}]`}},
		"/allDecks/":            {{body: `[{"structure_deck_name":"Straw Hat Crew","structure_deck_id":"ST-01"}]`}},
		"/sets/OP-01/":          {{body: optcgLuffyJSON}},
		"/sets/card/OP01-024/":  {{body: optcgLuffyJSON}},
		"/decks/card/ST01-001/": {{body: `[{"card_name":"Monkey.D.Luffy","card_set_id":"ST01-001","card_image_id":"ST01-001","rarity":"L"}]`}},
		"/sets/filtered/": {
			{query: "card_name=Zoro", body: `[{"card_name":"Roronoa Zoro","card_set_id":"OP01-025","card_image_id":"OP01-025","rarity":"SR"}]`},
		},
	})
	return NewOPTCGClient(CatalogOptions{BaseURL: upstream.URL})
}

func TestOPTCGClient_FetchSetsIncludesDecks(t *testing.T) {
	client := newTestOPTCG(t)

	sets, err := client.FetchSets(context.Background(), models.LanguageEnglish)
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, "OP-01", sets[0].Code)
	assert.Equal(t, "ST-01", sets[1].Code)
	assert.Equal(t, "Straw Hat Crew", sets[1].DisplayName)
}

func TestOPTCGClient_FetchBySetCollapsesAltArt(t *testing.T) {
	client := newTestOPTCG(t)

	cards := client.FetchBySet(context.Background(), models.CanonicalSet{Code: "OP-01"})
	require.Len(t, cards, 2)
	assert.Equal(t, "OP01-024", cards[0].CatalogCardID)
	assert.Equal(t, "https://optcgapi.com/media/static/Card_Images/OP01-024.jpg", cards[0].ImageURL)
	assert.Equal(t, "024", cards[0].CollectorNumber)
	assert.Equal(t, "OP-01", cards[0].CatalogSetCode)
}

func TestOPTCGClient_FetchByID(t *testing.T) {
	client := newTestOPTCG(t)
	ctx := context.Background()

	card := client.FetchByID(ctx, "op01-024")
	require.NotNil(t, card)
	assert.Equal(t, "Monkey.D.Luffy", card.CatalogName)

	deck := client.FetchByID(ctx, "ST01-001")
	require.NotNil(t, deck)
	assert.Equal(t, "ST-01", deck.CatalogSetCode, "set code derived from the card ID")

	assert.Nil(t, client.FetchByID(ctx, "OP99-001"))
}

func TestOPTCGClient_FetchByName(t *testing.T) {
	client := newTestOPTCG(t)

	cards := client.FetchByName(context.Background(), "Zoro")
	require.Len(t, cards, 1)
	assert.Equal(t, "OP-01", cards[0].CatalogSetCode)
}

func TestOPTCGSetCode(t *testing.T) {
	assert.Equal(t, "OP-01", optcgSetCode("", "OP01-001"))
	assert.Equal(t, "OP-01", optcgSetCode("", "OP-01-001"))
	assert.Equal(t, "P", optcgSetCode("", "P-001"))
	assert.Equal(t, "EB-01", optcgSetCode("eb-01", "EB01-001"))
	assert.Equal(t, "", optcgSetCode("", "garbage"))
}
