package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportItemsMergesRows(t *testing.T) {
	doc := map[string]any{
		"items": []any{
			map[string]any{"name": "Torch", "type": "misc", "value": 1},
		},
	}
	records := [][]string{
		{"name", "type", "value", "price", "stackable", "description"},
		{"torch", "misc", "2", "", "", "Burns longer."},
		{"Iron Shield", "armor", "4", "30", "no", ""},
		{"Herb", "consumable", "5", "3", "yes", ""},
		{"", "misc", "1"},
	}

	added, replaced, err := importItems(doc, records)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, 1, replaced)

	items := doc["items"].([]any)
	require.Len(t, items, 3)
	torch := items[0].(map[string]any)
	assert.Equal(t, 2, torch["value"])
	assert.Equal(t, "Burns longer.", torch["description"])
	herb := items[2].(map[string]any)
	assert.Equal(t, true, herb["stackable"])
	assert.Equal(t, "CONSUMABLE", herb["type"])
}

func TestImportItemsRejectsBadRows(t *testing.T) {
	_, _, err := importItems(map[string]any{}, [][]string{{"name", "type", "value"}, {"Rock", "pebble", "1"}})
	assert.Error(t, err)

	_, _, err = importItems(map[string]any{}, [][]string{{"name", "type", "value"}, {"Rock", "misc", "heavy"}})
	assert.Error(t, err)

	_, _, err = importItems(map[string]any{}, [][]string{{"title", "kind"}, {"Rock", "misc"}})
	assert.Error(t, err)
}
