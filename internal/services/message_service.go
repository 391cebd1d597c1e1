package services

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"ripple-chat/internal/domain/message"
	"ripple-chat/internal/repository"
	ripple_errors "ripple-chat/pkg/errors"

	"github.com/google/uuid"
)

type MessageService struct {
	repo repository.MessageRepository
}

func NewMessageService(repo repository.MessageRepository) *MessageService {
	return &MessageService{repo: repo}
}

type AppendInput struct {
	ConversationID uuid.UUID
	SenderID       uuid.UUID
	Content        string
	Type           string
	ReplyToID      uuid.NullUUID
	Metadata       string
}

// Append persists a new message, stamping id and timestamp server-side.
func (s *MessageService) Append(ctx context.Context, in AppendInput) (message.Message, error) {
	if in.Type == "" {
		in.Type = message.TypeText
	}
	if !message.ValidType(in.Type) || strings.TrimSpace(in.Content) == "" {
		return message.Message{}, ripple_errors.ErrInvalidInput
	}

	m := message.Message{
		ID:             uuid.New(),
		ConversationID: in.ConversationID,
		SenderID:       in.SenderID,
		Content:        in.Content,
		Type:           in.Type,
		ReplyToID:      in.ReplyToID,
		CreatedAt:      time.Now(),
	}
	if in.Metadata != "" {
		m.Metadata = sql.NullString{String: in.Metadata, Valid: true}
	}

	if err := s.repo.Create(ctx, &m); err != nil {
		return message.Message{}, err
	}
	return m, nil
}

func (s *MessageService) Get(ctx context.Context, id uuid.UUID) (message.Message, error) {
	return s.repo.GetByID(ctx, id)
}

// Edit changes the content of the actor's own message. Deleted messages
// reject edits the same way foreign messages do.
func (s *MessageService) Edit(ctx context.Context, messageID, actorID uuid.UUID, newContent string) (message.Message, error) {
	if strings.TrimSpace(newContent) == "" {
		return message.Message{}, ripple_errors.ErrInvalidInput
	}
	m, err := s.repo.GetByID(ctx, messageID)
	if err != nil {
		return message.Message{}, err
	}
	if m.SenderID != actorID || m.IsDeleted {
		return message.Message{}, ripple_errors.ErrForbidden
	}

	now := time.Now()
	m.Content = newContent
	m.IsEdited = true
	m.EditedAt = sql.NullTime{Time: now, Valid: true}
	if err := s.repo.Update(ctx, m); err != nil {
		return message.Message{}, err
	}
	return m, nil
}

// SoftDelete tombstones the actor's own message. The record stays; the
// content is replaced and the delete is irreversible.
func (s *MessageService) SoftDelete(ctx context.Context, messageID, actorID uuid.UUID) (message.Message, error) {
	m, err := s.repo.GetByID(ctx, messageID)
	if err != nil {
		return message.Message{}, err
	}
	if m.SenderID != actorID {
		return message.Message{}, ripple_errors.ErrForbidden
	}
	if m.IsDeleted {
		return m, nil
	}

	now := time.Now()
	m.Content = message.DeletedPlaceholder
	m.IsDeleted = true
	m.DeletedAt = sql.NullTime{Time: now, Valid: true}
	if err := s.repo.Update(ctx, m); err != nil {
		return message.Message{}, err
	}
	return m, nil
}

func (s *MessageService) ListRecent(ctx context.Context, convID uuid.UUID, limit int, before time.Time) ([]message.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListRecent(ctx, convID, limit, before)
}

type SearchOptions struct {
	Limit  int
	Before time.Time
	After  time.Time
}

// Search matches message content case-insensitively, newest first,
// skipping soft-deleted messages.
func (s *MessageService) Search(ctx context.Context, convID uuid.UUID, query string, opts SearchOptions) ([]message.Message, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ripple_errors.ErrInvalidInput
	}
	if opts.Limit <= 0 || opts.Limit > 200 {
		opts.Limit = 50
	}
	return s.repo.Search(ctx, convID, query, opts.Limit, opts.Before, opts.After)
}

// SetReaction replaces any prior reaction from the user on the message.
func (s *MessageService) SetReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) error {
	if emoji == "" {
		return ripple_errors.ErrInvalidInput
	}
	if _, err := s.repo.GetByID(ctx, messageID); err != nil {
		return err
	}
	return s.repo.SetReaction(ctx, messageID, userID, emoji)
}

func (s *MessageService) ClearReaction(ctx context.Context, messageID, userID uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, messageID); err != nil {
		return err
	}
	return s.repo.ClearReaction(ctx, messageID, userID)
}

func (s *MessageService) GetReactions(ctx context.Context, messageID uuid.UUID) ([]message.Reaction, error) {
	return s.repo.GetReactions(ctx, messageID)
}

// MarkRead stamps the message read with a server-assigned time and
// returns the updated message.
func (s *MessageService) MarkRead(ctx context.Context, messageID, readerID uuid.UUID) (message.Message, error) {
	m, err := s.repo.GetByID(ctx, messageID)
	if err != nil {
		return message.Message{}, err
	}
	if m.SenderID == readerID {
		// Reading your own message is a no-op.
		return m, nil
	}

	now := time.Now()
	if err := s.repo.MarkRead(ctx, messageID, now); err != nil {
		return message.Message{}, err
	}
	m.IsRead = true
	m.ReadAt = sql.NullTime{Time: now, Valid: true}
	return m, nil
}
