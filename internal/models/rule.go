package models

import "time"

// ═══════════════════════════════════════════════════════════
// RESPONSE RULE MODELS
// ═══════════════════════════════════════════════════════════

// ResponseRule maps a normalized trigger phrase to a free-text reply.
// Triggers are unique; last write wins.
type ResponseRule struct {
	Trigger string `json:"trigger"`
	Reply   string `json:"reply"`
}

// UnknownQuestion records a user message no rule or oracle could answer.
// Keyed by the normalized text so repeats increment instead of duplicating.
type UnknownQuestion struct {
	Normalized      string    `json:"normalized"`
	Original        string    `json:"original"`
	FirstSeenAt     time.Time `json:"first_seen_at"`
	OccurrenceCount int       `json:"occurrence_count"`
	LastAskerID     string    `json:"last_asker_id"`
}

// QuickMessage is a canned prompt shown as a tappable chip in the widget.
type QuickMessage struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Position int    `json:"position"`
}
