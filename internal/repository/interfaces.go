package repository

import (
	"context"
	"time"

	"ripple-chat/internal/domain/conversation"
	"ripple-chat/internal/domain/message"
	"ripple-chat/internal/domain/notification"
	"ripple-chat/internal/domain/status"
	"ripple-chat/internal/domain/user"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	GetByID(ctx context.Context, id uuid.UUID) (user.User, error)
	GetByUsername(ctx context.Context, username string) (user.User, error)
	Update(ctx context.Context, u user.User) error
	SetPresence(ctx context.Context, id uuid.UUID, online bool, lastSeen time.Time) error
	List(ctx context.Context, limit, offset int) ([]user.User, error)
	AddPushToken(ctx context.Context, t *user.PushToken) error
	GetPushTokens(ctx context.Context, userID uuid.UUID) ([]user.PushToken, error)
	DeletePushTokens(ctx context.Context, userID uuid.UUID, tokens []string) error
}

type ConversationRepository interface {
	// Create persists the conversation with its participants. A duplicate
	// direct pair key maps to ErrAlreadyExists.
	Create(ctx context.Context, c *conversation.Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (conversation.Conversation, error)
	GetByPairKey(ctx context.Context, pairKey string) (conversation.Conversation, error)
	ListForUser(ctx context.Context, userID uuid.UUID, convType string) ([]conversation.Conversation, error)
	SetLastMessage(ctx context.Context, convID, messageID uuid.UUID, at time.Time) error
	IncrementUnread(ctx context.Context, convID, userID uuid.UUID) error
	ResetUnread(ctx context.Context, convID, userID uuid.UUID) error
	GetUnread(ctx context.Context, convID, userID uuid.UUID) (int, error)
}

type MessageRepository interface {
	Create(ctx context.Context, m *message.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (message.Message, error)
	Update(ctx context.Context, m message.Message) error
	ListRecent(ctx context.Context, convID uuid.UUID, limit int, before time.Time) ([]message.Message, error)
	Search(ctx context.Context, convID uuid.UUID, query string, limit int, before, after time.Time) ([]message.Message, error)
	// SetReaction replaces any prior reaction from the user on the message.
	SetReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) error
	ClearReaction(ctx context.Context, messageID, userID uuid.UUID) error
	GetReactions(ctx context.Context, messageID uuid.UUID) ([]message.Reaction, error)
	MarkRead(ctx context.Context, messageID uuid.UUID, at time.Time) error
}

type StatusRepository interface {
	CreatePost(ctx context.Context, p *status.Post) error
	GetPost(ctx context.Context, id uuid.UUID) (status.Post, error)
	// DeletePost removes the post and its viewers, reactions and comments.
	DeletePost(ctx context.Context, id uuid.UUID) error
	ListPosts(ctx context.Context) ([]status.Post, error)
	ListExpired(ctx context.Context, now time.Time) ([]status.Post, error)
	// AddViewer is idempotent; added reports whether a new entry was written.
	AddViewer(ctx context.Context, v *status.Viewer) (added bool, err error)
	// SetReaction replaces the user's reaction and updates the denormalized
	// per-kind counts in the same transaction.
	SetReaction(ctx context.Context, postID, userID uuid.UUID, kind string) error
	ClearReaction(ctx context.Context, postID, userID uuid.UUID) error
	AddComment(ctx context.Context, c *status.Comment) error
}

type NotificationRepository interface {
	Create(ctx context.Context, n *notification.Notification) error
	ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]notification.Notification, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
	// TrimToNewest drops everything but the newest keep entries for the user.
	TrimToNewest(ctx context.Context, userID uuid.UUID, keep int) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
