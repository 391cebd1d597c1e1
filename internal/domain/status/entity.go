package status

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status media type enum
const (
	TypeImage = "image"
	TypeVideo = "video"
	TypeText  = "text"
)

// Post represents status_posts. ExpiresAt is set once at creation and
// never mutated; a post past ExpiresAt is absent to every read path
// whether or not the reaper has run.
type Post struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	MediaURL       sql.NullString
	Caption        sql.NullString
	Type           string
	ReactionCounts sql.NullString // JSON map kind -> count, kept in step with the reaction rows
	CreatedAt      time.Time
	ExpiresAt      time.Time

	Viewers   []Viewer
	Reactions []Reaction
	Comments  []Comment
}

// Viewer represents status_viewers. A user appears at most once per post.
type Viewer struct {
	PostID   uuid.UUID `gorm:"primaryKey"`
	UserID   uuid.UUID `gorm:"primaryKey"`
	ViewedAt time.Time
}

// Reaction represents status_reactions, one per (post, user).
type Reaction struct {
	PostID    uuid.UUID `gorm:"primaryKey"`
	UserID    uuid.UUID `gorm:"primaryKey"`
	Kind      string
	CreatedAt time.Time
}

// Comment represents status_comments, append-only.
type Comment struct {
	ID        uuid.UUID
	PostID    uuid.UUID
	UserID    uuid.UUID
	Text      string
	Mentions  sql.NullString // JSON array of user ids
	CreatedAt time.Time
}

func (p *Post) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// Counts decodes the denormalized reaction counters.
func (p *Post) Counts() map[string]int {
	counts := map[string]int{}
	if p.ReactionCounts.Valid {
		_ = json.Unmarshal([]byte(p.ReactionCounts.String), &counts)
	}
	return counts
}

// SetCounts encodes the reaction counters, dropping zeroed kinds.
func (p *Post) SetCounts(counts map[string]int) {
	for kind, n := range counts {
		if n <= 0 {
			delete(counts, kind)
		}
	}
	if len(counts) == 0 {
		p.ReactionCounts = sql.NullString{}
		return
	}
	data, _ := json.Marshal(counts)
	p.ReactionCounts = sql.NullString{String: string(data), Valid: true}
}

func ValidType(t string) bool {
	switch t {
	case TypeImage, TypeVideo, TypeText:
		return true
	}
	return false
}

func (Post) TableName() string {
	return "status_posts"
}

func (Viewer) TableName() string {
	return "status_viewers"
}

func (Reaction) TableName() string {
	return "status_reactions"
}

func (Comment) TableName() string {
	return "status_comments"
}
