package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopassist/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "hello world", Normalize("  Hello World  "))
	assert.Equal(t, "hello world", Normalize(Normalize("  Hello World  ")))
	assert.Equal(t, "", Normalize("   "))
}

func TestResponseRoundTrip(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.UpsertResponse("  Shipping Cost  ", "Shipping is free over $50."))

	reply, found, err := store.GetResponse("shipping cost")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Shipping is free over $50.", reply)

	// Last write wins.
	require.NoError(t, store.UpsertResponse("shipping cost", "Flat $5 everywhere."))
	reply, found, err = store.GetResponse("shipping cost")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Flat $5 everywhere.", reply)

	_, found, err = store.GetResponse("no such trigger")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.DeleteResponse("shipping cost"))
	_, found, err = store.GetResponse("shipping cost")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestUpsertResponseRejectsEmptyTrigger(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.UpsertResponse("   ", "reply"))
}

func TestListResponsesLongestFirst(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.UpsertResponse("hi", "A"))
	require.NoError(t, store.UpsertResponse("shipping cost to canada", "B"))
	require.NoError(t, store.UpsertResponse("shipping", "C"))

	rules, err := store.ListResponses()
	require.NoError(t, err)
	require.Len(t, rules, 3)
	assert.Equal(t, "shipping cost to canada", rules[0].Trigger)
	assert.Equal(t, "shipping", rules[1].Trigger)
	assert.Equal(t, "hi", rules[2].Trigger)
}

func TestReplaceResponses(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.UpsertResponse("old", "stale"))
	require.NoError(t, store.ReplaceResponses(map[string]string{
		"Hours":   "We're open 9-5.",
		"Returns": "30 days, no questions.",
	}))

	rules, err := store.ListResponses()
	require.NoError(t, err)
	require.Len(t, rules, 2)

	_, found, err := store.GetResponse("old")
	require.NoError(t, err)
	assert.False(t, found)

	reply, found, err := store.GetResponse("hours")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "We're open 9-5.", reply)
}

func TestUnknownQuestionCounting(t *testing.T) {
	store := newTestStore(t)

	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.RecordUnknownQuestion("Do you ship to Mars?", "device-1", first))
	require.NoError(t, store.RecordUnknownQuestion("do you ship to mars?", "device-2", first.Add(time.Hour)))
	require.NoError(t, store.RecordUnknownQuestion("  DO YOU SHIP TO MARS?  ", "device-3", first.Add(2*time.Hour)))

	q, err := store.GetUnknownQuestion("do you ship to mars?")
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, 3, q.OccurrenceCount)
	assert.True(t, q.FirstSeenAt.Equal(first), "first_seen_at must not move on repeats")
	assert.Equal(t, "Do you ship to Mars?", q.Original)
	assert.Equal(t, "device-3", q.LastAskerID)
}

func TestPromoteUnknownQuestion(t *testing.T) {
	store := newTestStore(t)

	now := time.Now()
	require.NoError(t, store.RecordUnknownQuestion("what is your warranty", "d1", now))
	require.NoError(t, store.PromoteUnknownQuestion("what is your warranty", "Two years on everything."))

	// The rule exists, the record is gone.
	reply, found, err := store.GetResponse("what is your warranty")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Two years on everything.", reply)

	q, err := store.GetUnknownQuestion("what is your warranty")
	require.NoError(t, err)
	assert.Nil(t, q)

	// Promoting a missing record fails and leaves no rule behind.
	err = store.PromoteUnknownQuestion("never asked", "reply")
	assert.Error(t, err)
	_, found, err = store.GetResponse("never asked")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDiscardUnknownQuestion(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.RecordUnknownQuestion("discount codes?", "d1", time.Now()))
	require.NoError(t, store.DiscardUnknownQuestion("discount codes?"))

	q, err := store.GetUnknownQuestion("discount codes?")
	require.NoError(t, err)
	assert.Nil(t, q)
}

func TestProductCRUD(t *testing.T) {
	store := newTestStore(t)

	p := &models.Product{
		Name:        "Trail Runner",
		Price:       "89.99",
		Description: "Lightweight trail shoe",
		Category:    "footwear",
		InStock:     true,
		Features:    []string{"waterproof", "vibram sole"},
		Specifications: map[string]string{
			"weight": "240g",
		},
	}
	require.NoError(t, store.CreateProduct(p))
	require.NotEmpty(t, p.ID)

	products, err := store.ListProducts()
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Trail Runner", products[0].Name)
	assert.Equal(t, []string{"waterproof", "vibram sole"}, products[0].Features)
	assert.Equal(t, "240g", products[0].Specifications["weight"])
	assert.True(t, products[0].InStock)

	p.InStock = false
	p.Price = "79.99"
	require.NoError(t, store.UpdateProduct(p))

	products, err = store.ListProducts()
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.False(t, products[0].InStock)
	assert.Equal(t, "79.99", products[0].Price)

	require.NoError(t, store.DeleteProduct(p.ID))
	products, err = store.ListProducts()
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestReplaceProducts(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.CreateProduct(&models.Product{Name: "Old Thing"}))
	require.NoError(t, store.ReplaceProducts([]models.Product{
		{ID: "p1", Name: "New Thing", Price: "10", InStock: true},
		{ID: "p2", Name: "Other Thing", Price: "20", InStock: false},
	}))

	products, err := store.ListProducts()
	require.NoError(t, err)
	require.Len(t, products, 2)
	for _, p := range products {
		assert.NotEqual(t, "Old Thing", p.Name)
	}
}

func TestSiteContentCRUD(t *testing.T) {
	store := newTestStore(t)

	entry := &models.SiteContent{
		Title:    "Return policy",
		Content:  "Returns accepted within 30 days.",
		Category: "policy",
		Tags:     []string{"returns", "refunds"},
	}
	require.NoError(t, store.CreateSiteContent(entry))
	require.NotEmpty(t, entry.ID)

	entries, err := store.ListSiteContent()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Return policy", entries[0].Title)
	assert.Equal(t, []string{"returns", "refunds"}, entries[0].Tags)

	require.NoError(t, store.DeleteSiteContent(entry.ID))
	entries, err = store.ListSiteContent()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestQuickMessages(t *testing.T) {
	store := newTestStore(t)

	second, err := store.CreateQuickMessage("Track my order", 2)
	require.NoError(t, err)
	first, err := store.CreateQuickMessage("Shipping info", 1)
	require.NoError(t, err)

	quick, err := store.ListQuickMessages()
	require.NoError(t, err)
	require.Len(t, quick, 2)
	assert.Equal(t, "Shipping info", quick[0].Text)
	assert.Equal(t, "Track my order", quick[1].Text)

	require.NoError(t, store.DeleteQuickMessage(first.ID))
	quick, err = store.ListQuickMessages()
	require.NoError(t, err)
	require.Len(t, quick, 1)
	assert.Equal(t, second.ID, quick[0].ID)
}
