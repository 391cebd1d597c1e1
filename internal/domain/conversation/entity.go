package conversation

import (
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	TypeDirect = "direct"
	TypeGroup  = "group"
)

// Conversation represents the conversations table
type Conversation struct {
	ID            uuid.UUID
	Type          string
	Name          sql.NullString
	AdminID       uuid.NullUUID
	PairKey       sql.NullString `gorm:"uniqueIndex"`
	LastMessageID uuid.NullUUID
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Participants []Participant
}

// Participant represents the participants table. UnreadCount is the
// per-user unread counter for the conversation.
type Participant struct {
	ConversationID uuid.UUID `gorm:"primaryKey"`
	UserID         uuid.UUID `gorm:"primaryKey"`
	UnreadCount    int
	LastReadAt     sql.NullTime
	JoinedAt       time.Time
}

// DirectPairKey builds the canonical key for a direct conversation between
// two users. The pair is unordered, the key is not.
func DirectPairKey(a, b uuid.UUID) string {
	ids := []string{a.String(), b.String()}
	sort.Strings(ids)
	return strings.Join(ids, ":")
}

func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	for _, p := range c.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// OtherParticipants returns every participant id except the given one.
func (c *Conversation) OtherParticipants(userID uuid.UUID) []uuid.UUID {
	others := make([]uuid.UUID, 0, len(c.Participants))
	for _, p := range c.Participants {
		if p.UserID != userID {
			others = append(others, p.UserID)
		}
	}
	return others
}

func (Conversation) TableName() string {
	return "conversations"
}

func (Participant) TableName() string {
	return "participants"
}
