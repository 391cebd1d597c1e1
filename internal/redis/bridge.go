package redis

import (
	"context"
	"encoding/json"
	"time"

	"ripple-chat/internal/events"
	"ripple-chat/internal/presence"
	"ripple-chat/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Bridge fans envelopes out across server instances. Each instance
// publishes the envelopes it emits; every instance's subscriber delivers
// frames from other instances to its local registry. Frames carrying the
// local instance id are skipped since those were already delivered
// directly.
type Bridge struct {
	client     *redis.Client
	publisher  *Publisher
	registry   *presence.Registry
	instanceID string
	logger     *logger.Logger
}

func NewBridge(client *redis.Client, registry *presence.Registry, l *logger.Logger) *Bridge {
	return &Bridge{
		client:     client,
		publisher:  NewPublisher(client),
		registry:   registry,
		instanceID: uuid.New().String(),
		logger:     l,
	}
}

func (b *Bridge) InstanceID() string {
	return b.instanceID
}

// PublishToUser forwards an envelope targeted at a single user.
func (b *Bridge) PublishToUser(ctx context.Context, userID uuid.UUID, env events.Envelope) error {
	frame := events.BridgeFrame{
		Type:       env.Type,
		Payload:    env.Payload,
		OccurredAt: env.OccurredAt,
		Origin:     b.instanceID,
		TargetUser: uuid.NullUUID{UUID: userID, Valid: true},
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return b.publisher.Publish(ctx, events.ChannelPrefixUser+userID.String(), data)
}

// PublishBroadcast forwards an envelope for every connected user.
func (b *Bridge) PublishBroadcast(ctx context.Context, env events.Envelope) error {
	frame := events.BridgeFrame{
		Type:       env.Type,
		Payload:    env.Payload,
		OccurredAt: env.OccurredAt,
		Origin:     b.instanceID,
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return b.publisher.Publish(ctx, events.ChannelBroadcast, data)
}

// Run subscribes to the bridge channels and delivers foreign frames to
// the local registry until the context is cancelled. Reconnects with
// capped backoff.
func (b *Bridge) Run(ctx context.Context) {
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		pubsub := b.client.PSubscribe(ctx, events.ChannelPrefixUser+"*", events.ChannelBroadcast)

		for {
			msg, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				pubsub.Close()
				if ctx.Err() != nil {
					return
				}
				if b.logger != nil {
					b.logger.Warnf("bridge subscriber error, retrying in %s: %v", backoff, err)
				}
				time.Sleep(backoff)
				backoff *= 2
				if backoff > 30*time.Second {
					backoff = 30 * time.Second
				}
				break
			}
			backoff = time.Second
			b.handleFrame([]byte(msg.Payload))
		}
	}
}

func (b *Bridge) handleFrame(payload []byte) {
	var frame events.BridgeFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		if b.logger != nil {
			b.logger.Warnf("bridge: dropping malformed frame: %v", err)
		}
		return
	}
	if frame.Origin == b.instanceID {
		return
	}

	env := events.Envelope{
		Type:       frame.Type,
		Payload:    frame.Payload,
		OccurredAt: frame.OccurredAt,
	}
	if frame.TargetUser.Valid {
		b.registry.RouteTo(frame.TargetUser.UUID, env.Encode())
		return
	}
	b.registry.Broadcast(env.Encode())
}
