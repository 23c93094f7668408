package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopassist/internal/models"
)

// memKV is an in-process KV for tests.
type memKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string]string)}
}

func (m *memKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", ErrKVNotFound
	}
	return val, nil
}

func (m *memKV) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memKV) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

// fakeClock hands out strictly increasing times so creation order is
// unambiguous.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestSessionService(limit int) *SessionService {
	svc := NewSessionService(newMemKV(), limit, 30)
	clock := &fakeClock{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	svc.now = clock.Now
	return svc
}

func TestSessionCapEvictsOldest(t *testing.T) {
	ctx := context.Background()
	svc := newTestSessionService(4)

	var ids []string
	for i := 0; i < 5; i++ {
		sess, err := svc.CreateSession(ctx, "device-1")
		require.NoError(t, err)
		ids = append(ids, sess.ID)
	}

	summaries, err := svc.ListSessions(ctx, "device-1")
	require.NoError(t, err)
	require.Len(t, summaries, 4)

	// The first session is gone; the newest is active.
	for _, s := range summaries {
		assert.NotEqual(t, ids[0], s.ID)
	}
	assert.Equal(t, ids[4], summaries[3].ID)
	assert.True(t, summaries[3].Active)
}

func TestGetOrCreateSession(t *testing.T) {
	ctx := context.Background()
	svc := newTestSessionService(4)

	created, err := svc.CreateSession(ctx, "device-1")
	require.NoError(t, err)

	// Known ID resolves to the same session.
	got, err := svc.GetOrCreateSession(ctx, "device-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	// Empty or stale IDs create a fresh session.
	fresh, err := svc.GetOrCreateSession(ctx, "device-1", "")
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, fresh.ID)

	stale, err := svc.GetOrCreateSession(ctx, "device-1", "no-such-id")
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, stale.ID)
}

func TestAppendMessageAutoTitle(t *testing.T) {
	ctx := context.Background()
	svc := newTestSessionService(4)

	sess, err := svc.CreateSession(ctx, "device-1")
	require.NoError(t, err)

	long := strings.Repeat("ab", 25) // 50 runes, past the 30-rune cap
	updated, err := svc.AppendMessage(ctx, "device-1", sess.ID, []models.Message{
		{Text: long, Sender: models.SenderUser},
		{Text: "Sure!", Sender: models.SenderBot},
	}, []models.Turn{
		{Role: models.SenderUser, Content: long},
		{Role: models.SenderBot, Content: "Sure!"},
	})
	require.NoError(t, err)

	wantTitle := string([]rune(long)[:30]) + "…"
	assert.Equal(t, wantTitle, updated.Title)
	assert.Len(t, updated.Messages, 2)
	assert.Len(t, updated.Context, 2)

	// The title is set once; later messages don't change it.
	updated, err = svc.AppendMessage(ctx, "device-1", sess.ID, []models.Message{
		{Text: "another question", Sender: models.SenderUser},
		{Text: "another answer", Sender: models.SenderBot},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, wantTitle, updated.Title)
}

func TestAppendMessageNoTitleBeforeBotReply(t *testing.T) {
	ctx := context.Background()
	svc := newTestSessionService(4)

	sess, err := svc.CreateSession(ctx, "device-1")
	require.NoError(t, err)

	updated, err := svc.AppendMessage(ctx, "device-1", sess.ID, []models.Message{
		{Text: "hello?", Sender: models.SenderUser},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "New chat", updated.Title)
}

func TestAppendMessageUnknownSession(t *testing.T) {
	ctx := context.Background()
	svc := newTestSessionService(4)

	_, err := svc.AppendMessage(ctx, "device-1", "missing", nil, nil)
	assert.Error(t, err)
}

func TestSelectSession(t *testing.T) {
	ctx := context.Background()
	svc := newTestSessionService(4)

	first, err := svc.CreateSession(ctx, "device-1")
	require.NoError(t, err)
	_, err = svc.CreateSession(ctx, "device-1")
	require.NoError(t, err)

	require.NoError(t, svc.SelectSession(ctx, "device-1", first.ID))
	active, err := svc.ActiveSession(ctx, "device-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, active)

	assert.Error(t, svc.SelectSession(ctx, "device-1", "missing"))
}

func TestDeleteSessionReassignsActive(t *testing.T) {
	ctx := context.Background()
	svc := newTestSessionService(4)

	first, err := svc.CreateSession(ctx, "device-1")
	require.NoError(t, err)
	second, err := svc.CreateSession(ctx, "device-1")
	require.NoError(t, err)
	third, err := svc.CreateSession(ctx, "device-1")
	require.NoError(t, err)

	// Touch the first session so it is the most recently updated survivor.
	_, err = svc.AppendMessage(ctx, "device-1", first.ID, []models.Message{
		{Text: "hi", Sender: models.SenderUser},
	}, nil)
	require.NoError(t, err)

	// third is active; deleting it hands the pointer to first.
	require.NoError(t, svc.DeleteSession(ctx, "device-1", third.ID))
	active, err := svc.ActiveSession(ctx, "device-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, active)

	// Deleting a non-active session leaves the pointer alone.
	require.NoError(t, svc.DeleteSession(ctx, "device-1", second.ID))
	active, err = svc.ActiveSession(ctx, "device-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, active)

	// Deleting the last session clears the pointer.
	require.NoError(t, svc.DeleteSession(ctx, "device-1", first.ID))
	active, err = svc.ActiveSession(ctx, "device-1")
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestDeleteSessionUnknownID(t *testing.T) {
	ctx := context.Background()
	svc := newTestSessionService(4)
	assert.Error(t, svc.DeleteSession(ctx, "device-1", "missing"))
}

func TestSessionsAreIsolatedPerDevice(t *testing.T) {
	ctx := context.Background()
	svc := newTestSessionService(4)

	_, err := svc.CreateSession(ctx, "device-1")
	require.NoError(t, err)

	summaries, err := svc.ListSessions(ctx, "device-2")
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestLoadKeepsStoredOrderForEqualCreationTimes(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	svc := NewSessionService(kv, 2, 30)

	// Two sessions created in the same wall-clock instant; stored order is
	// the creation order and must survive the sort.
	created := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	stored := []models.ChatSession{
		{ID: "first-stored", Title: "First", CreatedAt: created, UpdatedAt: created},
		{ID: "second-stored", Title: "Second", CreatedAt: created, UpdatedAt: created},
	}
	blob, err := json.Marshal(stored)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, sessionsKey("device-1"), string(blob)))

	summaries, err := svc.ListSessions(ctx, "device-1")
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "first-stored", summaries[0].ID)
	assert.Equal(t, "second-stored", summaries[1].ID)

	// At the cap the first stored session is the one evicted.
	_, err = svc.CreateSession(ctx, "device-1")
	require.NoError(t, err)
	summaries, err = svc.ListSessions(ctx, "device-1")
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "second-stored", summaries[0].ID)
}
