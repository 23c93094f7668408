package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"shopassist/internal/models"
	"shopassist/internal/utils"
)

// ErrKVNotFound is returned by KV.Get for missing keys.
var ErrKVNotFound = errors.New("key not found")

// KV is the small persistence surface the session service needs: opaque
// string blobs under fixed per-device keys.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Del(ctx context.Context, keys ...string) error
}

// RedisKV adapts a Redis client to KV.
type RedisKV struct {
	client *redis.Client
}

func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrKVNotFound
	}
	return val, err
}

func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *RedisKV) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

// SessionService keeps each device's chat sessions as an opaque JSON blob
// under two fixed keys: the session list and the active-session pointer.
// Single writer per device; no concurrency control beyond that.
type SessionService struct {
	kv            KV
	limit         int
	titleMaxRunes int
	now           func() time.Time
}

func NewSessionService(kv KV, limit, titleMaxRunes int) *SessionService {
	if limit < 1 {
		limit = 1
	}
	if titleMaxRunes < 1 {
		titleMaxRunes = 30
	}
	return &SessionService{
		kv:            kv,
		limit:         limit,
		titleMaxRunes: titleMaxRunes,
		now:           time.Now,
	}
}

func sessionsKey(deviceID string) string {
	return "sessions:" + deviceID
}

func activeKey(deviceID string) string {
	return "active_session:" + deviceID
}

// load returns the device's sessions, oldest first. The sort is stable so
// sessions created in the same instant keep their stored order and eviction
// stays deterministic. A read or parse error degrades to an empty list;
// client state is never a hard failure.
func (s *SessionService) load(ctx context.Context, deviceID string) []models.ChatSession {
	blob, err := s.kv.Get(ctx, sessionsKey(deviceID))
	if err != nil {
		return nil
	}
	var sessions []models.ChatSession
	if err := json.Unmarshal([]byte(blob), &sessions); err != nil {
		return nil
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions
}

// save persists the blob with retries; a transient Redis blip should not lose
// a chat turn.
func (s *SessionService) save(ctx context.Context, deviceID string, sessions []models.ChatSession) error {
	blob, err := json.Marshal(sessions)
	if err != nil {
		return err
	}
	return utils.RetryWithBackoff(ctx, func() error {
		return s.kv.Set(ctx, sessionsKey(deviceID), string(blob))
	}, utils.DefaultRetryConfig())
}

// CreateSession adds a session for the device. At the cap the oldest session
// (by creation order) is silently evicted; the new session becomes active.
func (s *SessionService) CreateSession(ctx context.Context, deviceID string) (*models.ChatSession, error) {
	sessions := s.load(ctx, deviceID)

	now := s.now().UTC()
	session := models.ChatSession{
		ID:        uuid.New().String(),
		Title:     "New chat",
		CreatedAt: now,
		UpdatedAt: now,
	}
	sessions = append(sessions, session)
	if len(sessions) > s.limit {
		sessions = sessions[len(sessions)-s.limit:]
	}

	if err := s.save(ctx, deviceID, sessions); err != nil {
		return nil, fmt.Errorf("save sessions: %w", err)
	}
	if err := s.kv.Set(ctx, activeKey(deviceID), session.ID); err != nil {
		return nil, fmt.Errorf("set active session: %w", err)
	}
	return &session, nil
}

// GetOrCreateSession resolves sessionID for the device, creating a fresh
// session when the ID is empty or no longer present.
func (s *SessionService) GetOrCreateSession(ctx context.Context, deviceID, sessionID string) (*models.ChatSession, error) {
	if sessionID != "" {
		sessions := s.load(ctx, deviceID)
		for i := range sessions {
			if sessions[i].ID == sessionID {
				return &sessions[i], nil
			}
		}
	}
	return s.CreateSession(ctx, deviceID)
}

// ListSessions returns summaries oldest first, with the active one marked.
func (s *SessionService) ListSessions(ctx context.Context, deviceID string) ([]models.SessionSummary, error) {
	sessions := s.load(ctx, deviceID)
	active, _ := s.ActiveSession(ctx, deviceID)

	summaries := make([]models.SessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		summaries = append(summaries, models.SessionSummary{
			ID:           sess.ID,
			Title:        sess.Title,
			MessageCount: len(sess.Messages),
			CreatedAt:    sess.CreatedAt,
			UpdatedAt:    sess.UpdatedAt,
			Active:       sess.ID == active,
		})
	}
	return summaries, nil
}

// ActiveSession returns the active session ID for the device, if any.
func (s *SessionService) ActiveSession(ctx context.Context, deviceID string) (string, error) {
	id, err := s.kv.Get(ctx, activeKey(deviceID))
	if err != nil {
		return "", nil
	}
	return id, nil
}

// SelectSession moves the active pointer.
func (s *SessionService) SelectSession(ctx context.Context, deviceID, sessionID string) error {
	for _, sess := range s.load(ctx, deviceID) {
		if sess.ID == sessionID {
			return s.kv.Set(ctx, activeKey(deviceID), sessionID)
		}
	}
	return fmt.Errorf("session %q not found", sessionID)
}

// DeleteSession removes a session. If it was active, the most recently
// updated survivor becomes active; with no survivors the pointer is cleared.
func (s *SessionService) DeleteSession(ctx context.Context, deviceID, sessionID string) error {
	sessions := s.load(ctx, deviceID)

	kept := sessions[:0]
	found := false
	for _, sess := range sessions {
		if sess.ID == sessionID {
			found = true
			continue
		}
		kept = append(kept, sess)
	}
	if !found {
		return fmt.Errorf("session %q not found", sessionID)
	}

	if err := s.save(ctx, deviceID, kept); err != nil {
		return err
	}

	active, _ := s.ActiveSession(ctx, deviceID)
	if active != sessionID {
		return nil
	}
	if len(kept) == 0 {
		return s.kv.Del(ctx, activeKey(deviceID))
	}
	next := kept[0]
	for _, sess := range kept[1:] {
		if sess.UpdatedAt.After(next.UpdatedAt) {
			next = sess
		}
	}
	return s.kv.Set(ctx, activeKey(deviceID), next.ID)
}

// AppendMessage appends to a session (messages are append-only) and persists
// the updated conversation window. Once the session holds a bot reply, the
// title is derived from the first user message.
func (s *SessionService) AppendMessage(ctx context.Context, deviceID, sessionID string, msgs []models.Message, window []models.Turn) (*models.ChatSession, error) {
	sessions := s.load(ctx, deviceID)

	for i := range sessions {
		if sessions[i].ID != sessionID {
			continue
		}
		sessions[i].Messages = append(sessions[i].Messages, msgs...)
		sessions[i].Context = window
		sessions[i].UpdatedAt = s.now().UTC()
		s.autoTitle(&sessions[i])

		if err := s.save(ctx, deviceID, sessions); err != nil {
			return nil, err
		}
		return &sessions[i], nil
	}
	return nil, fmt.Errorf("session %q not found", sessionID)
}

// autoTitle sets the title from the first user message once the first bot
// reply has arrived, truncated with an ellipsis marker when too long.
func (s *SessionService) autoTitle(session *models.ChatSession) {
	if session.Title != "" && session.Title != "New chat" {
		return
	}

	var firstUser string
	hasBotReply := false
	for _, m := range session.Messages {
		if m.Sender == models.SenderUser && firstUser == "" {
			firstUser = m.Text
		}
		if m.Sender == models.SenderBot {
			hasBotReply = true
		}
	}
	if firstUser == "" || !hasBotReply {
		return
	}

	runes := []rune(firstUser)
	if len(runes) > s.titleMaxRunes {
		session.Title = string(runes[:s.titleMaxRunes]) + "…"
	} else {
		session.Title = firstUser
	}
}
