package repository

import (
	"context"
	"errors"
	"time"

	"ripple-chat/internal/domain/message"
	ripple_errors "ripple-chat/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) Create(ctx context.Context, m *message.Message) error {
	res := r.db.WithContext(ctx).Create(m)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return ripple_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (message.Message, error) {
	var m message.Message
	err := r.db.WithContext(ctx).
		Preload("Reactions").
		Where("id = ?", id).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return message.Message{}, ripple_errors.ErrNotFound
		}
		return message.Message{}, err
	}
	return m, nil
}

func (r *PostgresMessageRepository) Update(ctx context.Context, m message.Message) error {
	m.Reactions = nil
	res := r.db.WithContext(ctx).Save(&m)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ripple_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresMessageRepository) ListRecent(ctx context.Context, convID uuid.UUID, limit int, before time.Time) ([]message.Message, error) {
	var messages []message.Message
	q := r.db.WithContext(ctx).
		Preload("Reactions").
		Where("conversation_id = ?", convID)
	if !before.IsZero() {
		q = q.Where("created_at < ?", before)
	}
	err := q.Order("created_at DESC").Limit(limit).Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *PostgresMessageRepository) Search(ctx context.Context, convID uuid.UUID, query string, limit int, before, after time.Time) ([]message.Message, error) {
	var messages []message.Message
	q := r.db.WithContext(ctx).
		Where("conversation_id = ? AND content ILIKE ? AND is_deleted = false", convID, "%"+query+"%")
	if !before.IsZero() {
		q = q.Where("created_at < ?", before)
	}
	if !after.IsZero() {
		q = q.Where("created_at > ?", after)
	}
	err := q.Order("created_at DESC").Limit(limit).Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *PostgresMessageRepository) SetReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ? AND user_id = ?", messageID, userID).
			Delete(&message.Reaction{}).Error; err != nil {
			return err
		}
		return tx.Create(&message.Reaction{
			MessageID: messageID,
			UserID:    userID,
			Emoji:     emoji,
			CreatedAt: time.Now(),
		}).Error
	})
}

func (r *PostgresMessageRepository) ClearReaction(ctx context.Context, messageID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("message_id = ? AND user_id = ?", messageID, userID).
		Delete(&message.Reaction{}).Error
}

func (r *PostgresMessageRepository) GetReactions(ctx context.Context, messageID uuid.UUID) ([]message.Reaction, error) {
	var reactions []message.Reaction
	err := r.db.WithContext(ctx).Where("message_id = ?", messageID).Find(&reactions).Error
	if err != nil {
		return nil, err
	}
	return reactions, nil
}

func (r *PostgresMessageRepository) MarkRead(ctx context.Context, messageID uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Where("id = ?", messageID).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ripple_errors.ErrNotFound
	}
	return nil
}
