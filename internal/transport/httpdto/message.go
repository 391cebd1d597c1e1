package httpdto

import (
	"encoding/json"
	"time"

	"ripple-chat/internal/domain/message"
)

type MessageDTO struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversationId"`
	SenderID       string          `json:"senderId"`
	Content        string          `json:"content"`
	Type           string          `json:"type"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	ReplyToID      string          `json:"replyToId,omitempty"`
	IsEdited       bool            `json:"isEdited"`
	EditedAt       *time.Time      `json:"editedAt,omitempty"`
	IsRead         bool            `json:"isRead"`
	ReadAt         *time.Time      `json:"readAt,omitempty"`
	IsDeleted      bool            `json:"isDeleted"`
	CreatedAt      time.Time       `json:"createdAt"`
	Reactions      []ReactionDTO   `json:"reactions,omitempty"`
}

type ReactionDTO struct {
	UserID    string    `json:"userId"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewMessageDTO(m message.Message) MessageDTO {
	dto := MessageDTO{
		ID:             m.ID.String(),
		ConversationID: m.ConversationID.String(),
		SenderID:       m.SenderID.String(),
		Content:        m.Content,
		Type:           m.Type,
		IsEdited:       m.IsEdited,
		IsRead:         m.IsRead,
		IsDeleted:      m.IsDeleted,
		CreatedAt:      m.CreatedAt,
	}
	if m.Metadata.Valid {
		dto.Metadata = json.RawMessage(m.Metadata.String)
	}
	if m.ReplyToID.Valid {
		dto.ReplyToID = m.ReplyToID.UUID.String()
	}
	if m.EditedAt.Valid {
		t := m.EditedAt.Time
		dto.EditedAt = &t
	}
	if m.ReadAt.Valid {
		t := m.ReadAt.Time
		dto.ReadAt = &t
	}
	if len(m.Reactions) > 0 {
		dto.Reactions = NewReactionDTOs(m.Reactions)
	}
	return dto
}

func NewReactionDTOs(reactions []message.Reaction) []ReactionDTO {
	out := make([]ReactionDTO, len(reactions))
	for i, r := range reactions {
		out[i] = ReactionDTO{
			UserID:    r.UserID.String(),
			Emoji:     r.Emoji,
			CreatedAt: r.CreatedAt,
		}
	}
	return out
}

func NewMessageDTOs(msgs []message.Message) []MessageDTO {
	out := make([]MessageDTO, len(msgs))
	for i, m := range msgs {
		out[i] = NewMessageDTO(m)
	}
	return out
}

type SendMessageRequest struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
	Type           string `json:"type"`
	ReplyToID      string `json:"replyToId"`
	Metadata       string `json:"metadata"`
}

type EditMessageRequest struct {
	Content string `json:"content"`
}

type ReactMessageRequest struct {
	Emoji string `json:"emoji"`
}
