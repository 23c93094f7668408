package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"shopassist/internal/container"
	"shopassist/internal/markdown"
	"shopassist/internal/models"
	"shopassist/internal/utils"
)

// ProcessError is a handler-level failure with a stable machine code.
type ProcessError struct {
	Code    string
	Message string
}

// ChatProcessor runs one chat turn end to end: session resolution, the
// response pipeline, persistence, and the thinking-delay floor. Both the REST
// and WebSocket transports go through here so their behavior cannot drift.
type ChatProcessor struct {
	container *container.Container
}

func NewChatProcessor(c *container.Container) *ChatProcessor {
	return &ChatProcessor{container: c}
}

// ProcessChat handles one user message and returns the reply payload. The
// reply is never delivered before the configured thinking delay has elapsed,
// so instant rule hits don't feel robotic.
func (p *ChatProcessor) ProcessChat(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, *ProcessError) {
	if strings.TrimSpace(req.DeviceID) == "" {
		return nil, &ProcessError{Code: "validation_error", Message: "device_id is required"}
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, &ProcessError{Code: "validation_error", Message: "message is required"}
	}

	start := time.Now()

	session, err := p.container.Sessions.GetOrCreateSession(ctx, req.DeviceID, req.SessionID)
	if err != nil {
		utils.LogError(ctx, "session resolution failed", err)
		return nil, &ProcessError{Code: "session_error", Message: "Could not load your chat session"}
	}

	result, window := p.container.Responder.Respond(ctx, req.DeviceID, req.Message, session.Context)

	now := time.Now().UTC()
	msgs := []models.Message{
		{ID: uuid.New(), Text: req.Message, Sender: models.SenderUser, Timestamp: now},
		{ID: uuid.New(), Text: result.Reply, Sender: models.SenderBot, Timestamp: now},
	}
	updated, err := p.container.Sessions.AppendMessage(ctx, req.DeviceID, session.ID, msgs, window)
	if err != nil {
		utils.LogError(ctx, "failed to persist chat turn", err)
		return nil, &ProcessError{Code: "session_error", Message: "Could not save your message"}
	}

	var quickReplies []string
	if quick, err := p.container.Store.ListQuickMessages(); err == nil {
		for _, q := range quick {
			quickReplies = append(quickReplies, q.Text)
		}
	}

	// Thinking-delay floor: the pipeline may finish in microseconds.
	if remaining := p.container.Config.ThinkingDelay - time.Since(start); remaining > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(remaining):
		}
	}

	return &models.ChatResponse{
		Reply:        result.Reply,
		ReplySpans:   markdown.Parse(result.Reply),
		Source:       result.Source,
		SessionID:    updated.ID,
		SessionTitle: updated.Title,
		QuickReplies: quickReplies,
		TeachPrompt:  result.TeachPrompt,
	}, nil
}
