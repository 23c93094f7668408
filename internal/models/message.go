package models

import (
	"time"

	"github.com/google/uuid"
)

// ═══════════════════════════════════════════════════════════
// MESSAGE MODELS
// ═══════════════════════════════════════════════════════════

const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// Message is a single chat turn. Messages are append-only within a session.
type Message struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	Sender    string    `json:"sender"` // "user" or "bot"
	Timestamp time.Time `json:"timestamp"`
}

// Turn is one entry of the rolling conversation window handed to the oracle.
// It lives on the session blob and is replaced wholesale on every update.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
