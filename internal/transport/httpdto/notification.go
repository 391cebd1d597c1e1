package httpdto

import (
	"time"

	"ripple-chat/internal/domain/notification"
)

type NotificationDTO struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	FromUserID     string    `json:"fromUserId"`
	StatusID       string    `json:"statusId,omitempty"`
	MessageID      string    `json:"messageId,omitempty"`
	ConversationID string    `json:"conversationId,omitempty"`
	CommentID      string    `json:"commentId,omitempty"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	IsRead         bool      `json:"isRead"`
	CreatedAt      time.Time `json:"createdAt"`
}

func NewNotificationDTO(n notification.Notification) NotificationDTO {
	dto := NotificationDTO{
		ID:         n.ID.String(),
		Type:       n.Type,
		FromUserID: n.FromUserID.String(),
		Title:      n.Title,
		Body:       n.Body,
		IsRead:     n.IsRead,
		CreatedAt:  n.CreatedAt,
	}
	if n.StatusID.Valid {
		dto.StatusID = n.StatusID.UUID.String()
	}
	if n.MessageID.Valid {
		dto.MessageID = n.MessageID.UUID.String()
	}
	if n.ConversationID.Valid {
		dto.ConversationID = n.ConversationID.UUID.String()
	}
	if n.CommentID.Valid {
		dto.CommentID = n.CommentID.UUID.String()
	}
	return dto
}

func NewNotificationDTOs(items []notification.Notification) []NotificationDTO {
	out := make([]NotificationDTO, len(items))
	for i, n := range items {
		out[i] = NewNotificationDTO(n)
	}
	return out
}
