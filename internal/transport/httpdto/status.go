package httpdto

import (
	"encoding/json"
	"time"

	"ripple-chat/internal/domain/status"
)

type StatusPostDTO struct {
	ID             string             `json:"id"`
	UserID         string             `json:"userId"`
	MediaURL       string             `json:"mediaUrl,omitempty"`
	Caption        string             `json:"caption,omitempty"`
	Type           string             `json:"type"`
	ReactionCounts map[string]int     `json:"reactionCounts,omitempty"`
	Viewers        []StatusViewerDTO  `json:"viewers,omitempty"`
	Comments       []StatusCommentDTO `json:"comments,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
	ExpiresAt      time.Time          `json:"expiresAt"`
}

type StatusViewerDTO struct {
	UserID   string    `json:"userId"`
	ViewedAt time.Time `json:"viewedAt"`
}

type StatusCommentDTO struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Text      string    `json:"text"`
	Mentions  []string  `json:"mentions,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewStatusPostDTO(p status.Post) StatusPostDTO {
	dto := StatusPostDTO{
		ID:        p.ID.String(),
		UserID:    p.UserID.String(),
		Type:      p.Type,
		CreatedAt: p.CreatedAt,
		ExpiresAt: p.ExpiresAt,
	}
	if p.MediaURL.Valid {
		dto.MediaURL = p.MediaURL.String
	}
	if p.Caption.Valid {
		dto.Caption = p.Caption.String
	}
	if counts := p.Counts(); len(counts) > 0 {
		dto.ReactionCounts = counts
	}
	for _, v := range p.Viewers {
		dto.Viewers = append(dto.Viewers, StatusViewerDTO{UserID: v.UserID.String(), ViewedAt: v.ViewedAt})
	}
	for _, c := range p.Comments {
		dto.Comments = append(dto.Comments, NewStatusCommentDTO(c))
	}
	return dto
}

func NewStatusCommentDTO(c status.Comment) StatusCommentDTO {
	dto := StatusCommentDTO{
		ID:        c.ID.String(),
		UserID:    c.UserID.String(),
		Text:      c.Text,
		CreatedAt: c.CreatedAt,
	}
	if c.Mentions.Valid {
		_ = json.Unmarshal([]byte(c.Mentions.String), &dto.Mentions)
	}
	return dto
}

func NewStatusPostDTOs(posts []status.Post) []StatusPostDTO {
	out := make([]StatusPostDTO, len(posts))
	for i, p := range posts {
		out[i] = NewStatusPostDTO(p)
	}
	return out
}

type CreateStatusRequest struct {
	MediaURL string `json:"mediaUrl"`
	Caption  string `json:"caption"`
	Type     string `json:"type"`
}

type ReactStatusRequest struct {
	Kind string `json:"kind"`
}

type CommentStatusRequest struct {
	Text     string   `json:"text"`
	Mentions []string `json:"mentions"`
}
