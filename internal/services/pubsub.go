package services

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"shopassist/internal/utils"
)

// Snapshot channels. Consumers replace their whole local view on every
// message rather than applying deltas.
const (
	ChannelResponses        = "snapshots:responses"
	ChannelUnknownQuestions = "snapshots:unknown_questions"
	ChannelQuickMessages    = "snapshots:quick_messages"
)

// SnapshotMessage carries a full collection snapshot to every server, which
// forwards it to its connected widget/admin clients.
type SnapshotMessage struct {
	ServerID string          `json:"server_id"`
	Channel  string          `json:"channel"`
	Payload  json.RawMessage `json:"payload"`
}

// PubSubService fans collection snapshots out across server instances over
// Redis pub/sub.
type PubSubService struct {
	redis    *redis.Client
	serverID string
}

func NewPubSubService(client *redis.Client) *PubSubService {
	return &PubSubService{
		redis:    client,
		serverID: uuid.New().String(),
	}
}

func (p *PubSubService) GetServerID() string {
	return p.serverID
}

// PublishSnapshot broadcasts the full current state of a collection.
func (p *PubSubService) PublishSnapshot(ctx context.Context, channel string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg, err := json.Marshal(SnapshotMessage{
		ServerID: p.serverID,
		Channel:  channel,
		Payload:  data,
	})
	if err != nil {
		return err
	}
	return p.redis.Publish(ctx, channel, msg).Err()
}

// Subscribe consumes snapshots on the given channels until the context is
// cancelled, invoking handler for each. Malformed messages are dropped.
func (p *PubSubService) Subscribe(ctx context.Context, handler func(*SnapshotMessage), channels ...string) {
	sub := p.redis.Subscribe(ctx, channels...)

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var snapshot SnapshotMessage
				if err := json.Unmarshal([]byte(msg.Payload), &snapshot); err != nil {
					utils.LogWarn(ctx, "dropping malformed snapshot message",
						slog.String("channel", msg.Channel),
						slog.Any("error", err),
					)
					continue
				}
				handler(&snapshot)
			}
		}
	}()
}
