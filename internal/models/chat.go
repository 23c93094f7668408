package models

import (
	"time"

	"shopassist/internal/markdown"
)

// ═══════════════════════════════════════════════════════════
// CHAT REQUEST/RESPONSE MODELS
// ═══════════════════════════════════════════════════════════

type ChatRequest struct {
	DeviceID  string `json:"device_id"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type ChatResponse struct {
	Reply        string          `json:"reply"`
	ReplySpans   []markdown.Span `json:"reply_spans,omitempty"` // pre-tokenized for widget rendering
	Source       string          `json:"source"`                // which pipeline stage produced the reply
	SessionID    string          `json:"session_id"`
	SessionTitle string          `json:"session_title,omitempty"`
	QuickReplies []string        `json:"quick_replies,omitempty"`
	TeachPrompt  bool            `json:"teach_prompt,omitempty"` // surface "teach the bot" UI
}

// ═══════════════════════════════════════════════════════════
// SESSION MODELS
// ═══════════════════════════════════════════════════════════

// ChatSession holds one conversation thread for a device. A device keeps at
// most SessionLimit sessions; the oldest is evicted on overflow.
type ChatSession struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	Context   []Turn    `json:"context"` // rolling oracle window, bounded
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionSummary is the listing shape sent to the widget.
type SessionSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Active       bool      `json:"active"`
}

// ═══════════════════════════════════════════════════════════
// ERROR MODELS
// ═══════════════════════════════════════════════════════════

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
