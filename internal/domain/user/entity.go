package user

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// User represents the users table
type User struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	DisplayName  sql.NullString
	PhotoURL     sql.NullString
	Bio          sql.NullString
	IsOnline     bool
	LastSeen     sql.NullTime
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PushToken represents push_tokens. Tokens reported invalid by the
// notification dispatcher are pruned.
type PushToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Token     string
	Platform  string
	CreatedAt time.Time
}

func (User) TableName() string {
	return "users"
}

func (PushToken) TableName() string {
	return "push_tokens"
}
