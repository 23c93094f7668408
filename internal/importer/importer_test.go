package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponses(t *testing.T) {
	data := []byte(`{
		"  Shipping Cost  ": "Free over $50.",
		"hours": "9 to 5",
		"broken": 42,
		"   ": "skipped too"
	}`)

	rules, err := ParseResponses(data)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"shipping cost": "Free over $50.",
		"hours":         "9 to 5",
	}, rules)
}

func TestParseResponsesCollidingKeysResolveDeterministically(t *testing.T) {
	// "Hours" and " hours " both normalize to "hours"; sorted raw-key order
	// makes the lexicographically last one win regardless of map iteration.
	data := []byte(`{
		" hours ": "from the padded key",
		"Hours": "from the capitalized key"
	}`)

	for i := 0; i < 10; i++ {
		rules, err := ParseResponses(data)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"hours": "from the capitalized key"}, rules)
	}
}

func TestParseResponsesRejectsNonObject(t *testing.T) {
	_, err := ParseResponses([]byte(`["not", "an", "object"]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid responses file")
}

func TestParseProducts(t *testing.T) {
	data := []byte(`[
		{"name": "Mug", "price": "12.50", "description": "Ceramic mug", "category": "kitchen"},
		{"name": "Bowl", "price": 8, "description": "Deep bowl", "category": "kitchen", "inStock": false,
		 "features": ["dishwasher safe"], "specifications": {"volume": "500ml"}}
	]`)

	products, err := ParseProducts(data)
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, "12.50", products[0].Price)
	assert.True(t, products[0].InStock, "inStock defaults to true")

	assert.Equal(t, "8", products[1].Price, "numeric prices are stringified")
	assert.False(t, products[1].InStock)
	assert.Equal(t, []string{"dishwasher safe"}, products[1].Features)
	assert.Equal(t, "500ml", products[1].Specifications["volume"])
}

func TestParseProductsMissingFieldNamesIndex(t *testing.T) {
	data := []byte(`[
		{"name": "Mug", "price": "12.50", "description": "Ceramic mug", "category": "kitchen"},
		{"price": "9.99", "description": "No name", "category": "kitchen"}
	]`)

	_, err := ParseProducts(data)
	require.Error(t, err)
	assert.Equal(t, `product at index 1: missing required field "name"`, err.Error())
}

func TestParseProductsRejectsBadPrice(t *testing.T) {
	data := []byte(`[{"name": "Mug", "price": true, "description": "d", "category": "c"}]`)
	_, err := ParseProducts(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `product at index 0`)
	assert.Contains(t, err.Error(), `"price"`)
}

func TestParseSiteContent(t *testing.T) {
	data := []byte(`[
		{"title": "Returns", "content": "30 days.", "category": "policy", "tags": ["returns"]}
	]`)

	entries, err := ParseSiteContent(data)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Returns", entries[0].Title)
	assert.Equal(t, "policy", entries[0].Category)
	assert.Equal(t, []string{"returns"}, entries[0].Tags)
}

func TestParseSiteContentRejectsUnknownCategory(t *testing.T) {
	data := []byte(`[{"title": "T", "content": "C", "category": "blog"}]`)
	_, err := ParseSiteContent(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `site entry at index 0: invalid category "blog"`)
}

func TestParseSiteContentMissingContentNamesIndex(t *testing.T) {
	data := []byte(`[
		{"title": "Ok", "content": "fine", "category": "faq"},
		{"title": "Broken", "category": "faq"}
	]`)
	_, err := ParseSiteContent(data)
	require.Error(t, err)
	assert.Equal(t, `site entry at index 1: missing required field "content"`, err.Error())
}
