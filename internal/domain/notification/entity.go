package notification

import (
	"time"

	"github.com/google/uuid"
)

// Notification type enum, wire-compatible with existing clients.
const (
	TypeReaction      = "reaction"
	TypeComment       = "comment"
	TypeMention       = "mention"
	TypeMessage       = "message"
	TypeStatusView    = "status_view"
	TypeFriendRequest = "friend_request"
	TypeFriendAccept  = "friend_accept"
	TypeGroupInvite   = "group_invite"
	TypeGroupMessage  = "group_message"
	TypeCallMissed    = "call_missed"
)

// Notification represents the notifications table. Retention is bounded:
// at most the newest N per user, and nothing older than a configured age.
type Notification struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Type           string
	FromUserID     uuid.UUID
	StatusID       uuid.NullUUID
	MessageID      uuid.NullUUID
	ConversationID uuid.NullUUID
	CommentID      uuid.NullUUID
	Title          string
	Body           string
	IsRead         bool
	CreatedAt      time.Time
}

func ValidType(t string) bool {
	switch t {
	case TypeReaction, TypeComment, TypeMention, TypeMessage, TypeStatusView,
		TypeFriendRequest, TypeFriendAccept, TypeGroupInvite, TypeGroupMessage, TypeCallMissed:
		return true
	}
	return false
}

func (Notification) TableName() string {
	return "notifications"
}
