package httpdto

import (
	"time"

	"ripple-chat/internal/domain/conversation"
)

type ConversationDTO struct {
	ID            string           `json:"id"`
	Type          string           `json:"type"`
	Name          string           `json:"name,omitempty"`
	AdminID       string           `json:"adminId,omitempty"`
	LastMessageID string           `json:"lastMessageId,omitempty"`
	Participants  []ParticipantDTO `json:"participants"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

type ParticipantDTO struct {
	UserID      string     `json:"userId"`
	UnreadCount int        `json:"unreadCount"`
	LastReadAt  *time.Time `json:"lastReadAt,omitempty"`
	JoinedAt    time.Time  `json:"joinedAt"`
}

func NewConversationDTO(c conversation.Conversation) ConversationDTO {
	dto := ConversationDTO{
		ID:           c.ID.String(),
		Type:         c.Type,
		Participants: make([]ParticipantDTO, len(c.Participants)),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
	if c.Name.Valid {
		dto.Name = c.Name.String
	}
	if c.AdminID.Valid {
		dto.AdminID = c.AdminID.UUID.String()
	}
	if c.LastMessageID.Valid {
		dto.LastMessageID = c.LastMessageID.UUID.String()
	}
	for i, p := range c.Participants {
		pd := ParticipantDTO{
			UserID:      p.UserID.String(),
			UnreadCount: p.UnreadCount,
			JoinedAt:    p.JoinedAt,
		}
		if p.LastReadAt.Valid {
			t := p.LastReadAt.Time
			pd.LastReadAt = &t
		}
		dto.Participants[i] = pd
	}
	return dto
}

func NewConversationDTOs(convs []conversation.Conversation) []ConversationDTO {
	out := make([]ConversationDTO, len(convs))
	for i, c := range convs {
		out[i] = NewConversationDTO(c)
	}
	return out
}

type CreateDirectRequest struct {
	UserID string `json:"userId"`
}

type CreateGroupRequest struct {
	Name         string   `json:"name"`
	Participants []string `json:"participants"`
}
