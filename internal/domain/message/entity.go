package message

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Message type enum, kept wire-compatible with existing clients.
const (
	TypeText     = "text"
	TypeImage    = "image"
	TypeVideo    = "video"
	TypeAudio    = "audio"
	TypeFile     = "file"
	TypeLocation = "location"
)

// DeletedPlaceholder replaces the content of a soft-deleted message.
const DeletedPlaceholder = "This message was deleted"

// Message represents the messages table
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	SenderID       uuid.UUID
	Content        string
	Type           string
	Metadata       sql.NullString
	ReplyToID      uuid.NullUUID
	IsEdited       bool
	EditedAt       sql.NullTime
	IsRead         bool
	ReadAt         sql.NullTime
	IsDeleted      bool
	DeletedAt      sql.NullTime
	CreatedAt      time.Time

	Reactions []Reaction
}

// Reaction represents message_reactions. A user holds at most one reaction
// per message; a new reaction replaces the prior one.
type Reaction struct {
	MessageID uuid.UUID `gorm:"primaryKey"`
	UserID    uuid.UUID `gorm:"primaryKey"`
	Emoji     string
	CreatedAt time.Time
}

func ValidType(t string) bool {
	switch t {
	case TypeText, TypeImage, TypeVideo, TypeAudio, TypeFile, TypeLocation:
		return true
	}
	return false
}

func (Message) TableName() string {
	return "messages"
}

func (Reaction) TableName() string {
	return "message_reactions"
}
