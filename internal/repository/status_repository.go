package repository

import (
	"context"
	"errors"
	"time"

	"ripple-chat/internal/domain/status"
	ripple_errors "ripple-chat/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresStatusRepository struct {
	db *gorm.DB
}

func NewStatusRepository(db *gorm.DB) StatusRepository {
	return &PostgresStatusRepository{db: db}
}

func (r *PostgresStatusRepository) CreatePost(ctx context.Context, p *status.Post) error {
	res := r.db.WithContext(ctx).Create(p)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return ripple_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresStatusRepository) GetPost(ctx context.Context, id uuid.UUID) (status.Post, error) {
	var p status.Post
	err := r.db.WithContext(ctx).
		Preload("Viewers").
		Preload("Reactions").
		Preload("Comments").
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return status.Post{}, ripple_errors.ErrNotFound
		}
		return status.Post{}, err
	}
	return p, nil
}

func (r *PostgresStatusRepository) DeletePost(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&status.Viewer{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&status.Reaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&status.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&status.Post{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ripple_errors.ErrNotFound
		}
		return nil
	})
}

func (r *PostgresStatusRepository) ListPosts(ctx context.Context) ([]status.Post, error) {
	var posts []status.Post
	err := r.db.WithContext(ctx).
		Preload("Viewers").
		Preload("Reactions").
		Preload("Comments").
		Order("created_at DESC").
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *PostgresStatusRepository) ListExpired(ctx context.Context, now time.Time) ([]status.Post, error) {
	var posts []status.Post
	err := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *PostgresStatusRepository) AddViewer(ctx context.Context, v *status.Viewer) (bool, error) {
	res := r.db.WithContext(ctx).Create(v)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, res.Error
	}
	return true, nil
}

// SetReaction replaces the user's reaction row and adjusts the post's
// denormalized counts inside one transaction so set and counters cannot
// drift apart.
func (r *PostgresStatusRepository) SetReaction(ctx context.Context, postID, userID uuid.UUID, kind string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p status.Post
		if err := tx.Clauses(forUpdate()).Where("id = ?", postID).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ripple_errors.ErrNotFound
			}
			return err
		}

		counts := p.Counts()

		var prev status.Reaction
		err := tx.Where("post_id = ? AND user_id = ?", postID, userID).First(&prev).Error
		switch {
		case err == nil:
			if prev.Kind == kind {
				return nil
			}
			counts[prev.Kind]--
			if err := tx.Where("post_id = ? AND user_id = ?", postID, userID).
				Delete(&status.Reaction{}).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}

		if err := tx.Create(&status.Reaction{
			PostID:    postID,
			UserID:    userID,
			Kind:      kind,
			CreatedAt: time.Now(),
		}).Error; err != nil {
			return err
		}

		counts[kind]++
		p.SetCounts(counts)
		return tx.Model(&status.Post{}).
			Where("id = ?", postID).
			Update("reaction_counts", p.ReactionCounts).Error
	})
}

func (r *PostgresStatusRepository) ClearReaction(ctx context.Context, postID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p status.Post
		if err := tx.Clauses(forUpdate()).Where("id = ?", postID).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ripple_errors.ErrNotFound
			}
			return err
		}

		var prev status.Reaction
		err := tx.Where("post_id = ? AND user_id = ?", postID, userID).First(&prev).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := tx.Where("post_id = ? AND user_id = ?", postID, userID).
			Delete(&status.Reaction{}).Error; err != nil {
			return err
		}

		counts := p.Counts()
		counts[prev.Kind]--
		p.SetCounts(counts)
		return tx.Model(&status.Post{}).
			Where("id = ?", postID).
			Update("reaction_counts", p.ReactionCounts).Error
	})
}

func (r *PostgresStatusRepository) AddComment(ctx context.Context, c *status.Comment) error {
	return r.db.WithContext(ctx).Create(c).Error
}
