package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TypingTracker keeps a short-lived set of who is typing per
// conversation so HTTP reads can report it. Entries expire on their own.
type TypingTracker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewTypingTracker(client *redis.Client) *TypingTracker {
	return &TypingTracker{client: client, ttl: 10 * time.Second}
}

func typingKey(conversationID string) string {
	return fmt.Sprintf("typing:%s", conversationID)
}

func (t *TypingTracker) Start(ctx context.Context, conversationID, userID string) error {
	pipe := t.client.Pipeline()
	pipe.SAdd(ctx, typingKey(conversationID), userID)
	pipe.Expire(ctx, typingKey(conversationID), t.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (t *TypingTracker) Stop(ctx context.Context, conversationID, userID string) error {
	return t.client.SRem(ctx, typingKey(conversationID), userID).Err()
}

func (t *TypingTracker) Typing(ctx context.Context, conversationID string) ([]string, error) {
	return t.client.SMembers(ctx, typingKey(conversationID)).Result()
}
