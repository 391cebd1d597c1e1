package services

import (
	"context"

	"ripple-chat/internal/events"

	"github.com/google/uuid"
)

// ConnectionRouter is the slice of the presence registry the services
// depend on.
type ConnectionRouter interface {
	RouteTo(userID uuid.UUID, event []byte) bool
	Broadcast(event []byte)
	IsOnline(userID uuid.UUID) bool
}

// EventBridge forwards envelopes to other server instances. Optional; a
// single-instance deployment runs without one.
type EventBridge interface {
	PublishToUser(ctx context.Context, userID uuid.UUID, env events.Envelope) error
	PublishBroadcast(ctx context.Context, env events.Envelope) error
}

// MediaStore is the external media collaborator. Delete failures are
// logged by callers, never fatal.
type MediaStore interface {
	Store(ctx context.Context, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// PushPayload is what the external notification dispatcher receives.
type PushPayload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Type  string            `json:"type"`
	Data  map[string]string `json:"data,omitempty"`
}

// Dispatcher delivers push notifications out of band. It reports tokens
// the downstream service rejected so they can be pruned.
type Dispatcher interface {
	Push(ctx context.Context, userID uuid.UUID, tokens []string, payload PushPayload) (invalidTokens []string, err error)
}

// TypingTracker mirrors typing activity into a shared short-lived store.
type TypingTracker interface {
	Start(ctx context.Context, conversationID, userID string) error
	Stop(ctx context.Context, conversationID, userID string) error
}
