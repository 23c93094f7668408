package handlers

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"shopassist/internal/container"
	"shopassist/internal/markdown"
	"shopassist/internal/models"
	"shopassist/internal/services"
	"shopassist/internal/utils"
)

const readDeadline = 60 * time.Second

type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsClient) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// WSHandler is the widget's realtime transport: chat turns, session
// management, and live snapshot pushes when admin data changes on any server.
type WSHandler struct {
	container *container.Container
	processor *ChatProcessor
	clients   map[string]*wsClient
	mu        sync.RWMutex
}

func NewWSHandler(c *container.Container) *WSHandler {
	h := &WSHandler{
		container: c,
		processor: NewChatProcessor(c),
		clients:   make(map[string]*wsClient),
	}

	// Admin data is global, so every connected client gets every snapshot.
	c.PubSub.Subscribe(context.Background(), h.forwardSnapshot,
		services.ChannelResponses,
		services.ChannelUnknownQuestions,
		services.ChannelQuickMessages,
	)

	utils.LogInfo(context.Background(), "websocket handler initialized",
		slog.String("server_id", c.PubSub.GetServerID()[:8]),
	)
	return h
}

// WSMessage is the client-to-server frame.
type WSMessage struct {
	Type      string `json:"type"`
	DeviceID  string `json:"device_id"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// WSResponse is the server-to-client frame.
type WSResponse struct {
	Type         string                  `json:"type"`
	Reply        string                  `json:"reply,omitempty"`
	ReplySpans   []markdown.Span         `json:"reply_spans,omitempty"`
	Source       string                  `json:"source,omitempty"`
	SessionID    string                  `json:"session_id,omitempty"`
	SessionTitle string                  `json:"session_title,omitempty"`
	QuickReplies []string                `json:"quick_replies,omitempty"`
	TeachPrompt  bool                    `json:"teach_prompt,omitempty"`
	Sessions     []models.SessionSummary `json:"sessions,omitempty"`
	Channel      string                  `json:"channel,omitempty"`
	Payload      any                     `json:"payload,omitempty"`
	Error        string                  `json:"error,omitempty"`
	Message      string                  `json:"message,omitempty"`
}

func (h *WSHandler) HandleWebSocket(conn *websocket.Conn) {
	clientID := uuid.New().String()
	client := &wsClient{conn: conn}

	ctx := context.Background()
	utils.LogInfo(ctx, "client connected", slog.String("client_id", clientID[:8]))

	conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	h.addClient(clientID, client)
	defer h.removeClient(clientID)

	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				utils.LogWarn(ctx, "websocket read error", slog.Any("error", err))
			} else if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				utils.LogInfo(ctx, "websocket timed out", slog.String("client_id", clientID[:8]))
			}
			break
		}
		conn.SetReadDeadline(time.Now().Add(readDeadline))

		h.handleMessage(ctx, client, &msg)
	}

	utils.LogInfo(ctx, "client disconnected", slog.String("client_id", clientID[:8]))
}

func (h *WSHandler) handleMessage(ctx context.Context, client *wsClient, msg *WSMessage) {
	switch msg.Type {
	case "chat":
		h.handleChat(ctx, client, msg)
	case "ping":
		client.writeJSON(&WSResponse{Type: "pong"})
	case "session_list":
		h.handleSessionList(ctx, client, msg)
	case "session_new":
		h.handleSessionNew(ctx, client, msg)
	case "session_select":
		h.handleSessionSelect(ctx, client, msg)
	case "session_delete":
		h.handleSessionDelete(ctx, client, msg)
	default:
		h.sendError(client, "unknown_message_type", "Unknown message type")
	}
}

func (h *WSHandler) handleChat(ctx context.Context, client *wsClient, msg *WSMessage) {
	resp, procErr := h.processor.ProcessChat(ctx, &models.ChatRequest{
		DeviceID:  msg.DeviceID,
		SessionID: msg.SessionID,
		Message:   msg.Message,
	})
	if procErr != nil {
		h.sendError(client, procErr.Code, procErr.Message)
		return
	}
	client.writeJSON(&WSResponse{
		Type:         "chat_reply",
		Reply:        resp.Reply,
		ReplySpans:   resp.ReplySpans,
		Source:       resp.Source,
		SessionID:    resp.SessionID,
		SessionTitle: resp.SessionTitle,
		QuickReplies: resp.QuickReplies,
		TeachPrompt:  resp.TeachPrompt,
	})
}

func (h *WSHandler) handleSessionList(ctx context.Context, client *wsClient, msg *WSMessage) {
	summaries, err := h.container.Sessions.ListSessions(ctx, msg.DeviceID)
	if err != nil {
		h.sendError(client, "session_error", "Could not list sessions")
		return
	}
	client.writeJSON(&WSResponse{Type: "session_list", Sessions: summaries})
}

func (h *WSHandler) handleSessionNew(ctx context.Context, client *wsClient, msg *WSMessage) {
	session, err := h.container.Sessions.CreateSession(ctx, msg.DeviceID)
	if err != nil {
		h.sendError(client, "session_error", "Could not create session")
		return
	}
	client.writeJSON(&WSResponse{
		Type:         "session_created",
		SessionID:    session.ID,
		SessionTitle: session.Title,
	})
}

func (h *WSHandler) handleSessionSelect(ctx context.Context, client *wsClient, msg *WSMessage) {
	if err := h.container.Sessions.SelectSession(ctx, msg.DeviceID, msg.SessionID); err != nil {
		h.sendError(client, "session_not_found", err.Error())
		return
	}
	client.writeJSON(&WSResponse{Type: "session_selected", SessionID: msg.SessionID})
}

func (h *WSHandler) handleSessionDelete(ctx context.Context, client *wsClient, msg *WSMessage) {
	if err := h.container.Sessions.DeleteSession(ctx, msg.DeviceID, msg.SessionID); err != nil {
		h.sendError(client, "session_not_found", err.Error())
		return
	}
	summaries, _ := h.container.Sessions.ListSessions(ctx, msg.DeviceID)
	client.writeJSON(&WSResponse{Type: "session_deleted", SessionID: msg.SessionID, Sessions: summaries})
}

// forwardSnapshot pushes a cross-server snapshot to every local client.
func (h *WSHandler) forwardSnapshot(msg *services.SnapshotMessage) {
	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if err := client.writeJSON(&WSResponse{
			Type:    "snapshot",
			Channel: msg.Channel,
			Payload: msg.Payload,
		}); err != nil {
			utils.LogWarn(context.Background(), "failed to forward snapshot", slog.Any("error", err))
		}
	}
}

func (h *WSHandler) addClient(id string, client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[id] = client
}

func (h *WSHandler) removeClient(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, id)
}

func (h *WSHandler) sendError(client *wsClient, code, message string) {
	client.writeJSON(&WSResponse{Type: "error", Error: code, Message: message})
}
