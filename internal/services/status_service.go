package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"ripple-chat/internal/domain/status"
	"ripple-chat/internal/repository"
	ripple_errors "ripple-chat/pkg/errors"
	"ripple-chat/pkg/logger"

	"github.com/google/uuid"
)

// StatusService manages ephemeral status posts. Expiry is enforced on
// every read path, so an expired post is gone even before the reaper
// gets to it.
type StatusService struct {
	repo   repository.StatusRepository
	media  MediaStore
	logger *logger.Logger
	ttl    time.Duration
}

func NewStatusService(repo repository.StatusRepository, media MediaStore, l *logger.Logger, ttl time.Duration) *StatusService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &StatusService{repo: repo, media: media, logger: l, ttl: ttl}
}

type PostInput struct {
	UserID   uuid.UUID
	MediaURL string
	Caption  string
	Type     string
}

// Post publishes a new status. Expiry is fixed at creation time and the
// post is immutable afterwards.
func (s *StatusService) Post(ctx context.Context, in PostInput) (status.Post, error) {
	if in.Type == "" {
		in.Type = status.TypeImage
	}
	if !status.ValidType(in.Type) || in.UserID == uuid.Nil {
		return status.Post{}, ripple_errors.ErrInvalidInput
	}
	if in.Type == status.TypeText {
		if strings.TrimSpace(in.Caption) == "" {
			return status.Post{}, ripple_errors.ErrInvalidInput
		}
	} else if in.MediaURL == "" {
		return status.Post{}, ripple_errors.ErrInvalidInput
	}

	now := time.Now()
	p := status.Post{
		ID:        uuid.New(),
		UserID:    in.UserID,
		Type:      in.Type,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if in.MediaURL != "" {
		p.MediaURL = sql.NullString{String: in.MediaURL, Valid: true}
	}
	if in.Caption != "" {
		p.Caption = sql.NullString{String: in.Caption, Valid: true}
	}

	if err := s.repo.CreatePost(ctx, &p); err != nil {
		return status.Post{}, err
	}
	return p, nil
}

// Get returns an active post. An expired one is purged on the spot and
// reported as absent.
func (s *StatusService) Get(ctx context.Context, id uuid.UUID) (status.Post, error) {
	p, err := s.repo.GetPost(ctx, id)
	if err != nil {
		return status.Post{}, err
	}
	if p.Expired(time.Now()) {
		s.purge(ctx, p)
		return status.Post{}, ripple_errors.ErrNotFound
	}
	return p, nil
}

// ListActive returns live posts grouped per owner, newest first within
// each group. Expired posts found along the way are purged.
func (s *StatusService) ListActive(ctx context.Context) (map[uuid.UUID][]status.Post, error) {
	posts, err := s.repo.ListPosts(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	grouped := make(map[uuid.UUID][]status.Post)
	for _, p := range posts {
		if p.Expired(now) {
			s.purge(ctx, p)
			continue
		}
		grouped[p.UserID] = append(grouped[p.UserID], p)
	}
	return grouped, nil
}

// MarkViewed records the viewer once per post. It reports whether this
// was a first view so callers can notify the owner only once.
func (s *StatusService) MarkViewed(ctx context.Context, postID, viewerID uuid.UUID) (status.Post, bool, error) {
	p, err := s.Get(ctx, postID)
	if err != nil {
		return status.Post{}, false, err
	}

	added, err := s.repo.AddViewer(ctx, &status.Viewer{
		PostID:   postID,
		UserID:   viewerID,
		ViewedAt: time.Now(),
	})
	if err != nil {
		return status.Post{}, false, err
	}
	return p, added && viewerID != p.UserID, nil
}

// React replaces the user's reaction on the post. The denormalized
// per-kind counts move in the same transaction as the reaction row.
func (s *StatusService) React(ctx context.Context, postID, userID uuid.UUID, kind string) (status.Post, error) {
	if strings.TrimSpace(kind) == "" {
		return status.Post{}, ripple_errors.ErrInvalidInput
	}
	if _, err := s.Get(ctx, postID); err != nil {
		return status.Post{}, err
	}
	if err := s.repo.SetReaction(ctx, postID, userID, kind); err != nil {
		return status.Post{}, err
	}
	return s.repo.GetPost(ctx, postID)
}

func (s *StatusService) ClearReaction(ctx context.Context, postID, userID uuid.UUID) (status.Post, error) {
	if _, err := s.Get(ctx, postID); err != nil {
		return status.Post{}, err
	}
	if err := s.repo.ClearReaction(ctx, postID, userID); err != nil && !errors.Is(err, ripple_errors.ErrNotFound) {
		return status.Post{}, err
	}
	return s.repo.GetPost(ctx, postID)
}

// Comment appends a comment and returns it along with the post owner so
// the caller can notify. Mentions are stored as a JSON id array.
func (s *StatusService) Comment(ctx context.Context, postID, userID uuid.UUID, text string, mentions []uuid.UUID) (status.Comment, status.Post, error) {
	if strings.TrimSpace(text) == "" {
		return status.Comment{}, status.Post{}, ripple_errors.ErrInvalidInput
	}
	p, err := s.Get(ctx, postID)
	if err != nil {
		return status.Comment{}, status.Post{}, err
	}

	c := status.Comment{
		ID:        uuid.New(),
		PostID:    postID,
		UserID:    userID,
		Text:      text,
		CreatedAt: time.Now(),
	}
	if len(mentions) > 0 {
		ids := make([]string, 0, len(mentions))
		for _, m := range mentions {
			if m != uuid.Nil {
				ids = append(ids, m.String())
			}
		}
		if len(ids) > 0 {
			data, _ := json.Marshal(ids)
			c.Mentions = sql.NullString{String: string(data), Valid: true}
		}
	}

	if err := s.repo.AddComment(ctx, &c); err != nil {
		return status.Comment{}, status.Post{}, err
	}
	return c, p, nil
}

// Delete removes the owner's post and schedules its media for deletion.
func (s *StatusService) Delete(ctx context.Context, postID, actorID uuid.UUID) error {
	p, err := s.repo.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if p.UserID != actorID {
		return ripple_errors.ErrForbidden
	}
	if err := s.repo.DeletePost(ctx, postID); err != nil {
		return err
	}
	s.deleteMedia(ctx, p)
	return nil
}

// PurgeExpired removes every post past its expiry. Used by the reaper.
func (s *StatusService) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.repo.ListExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	purged := 0
	for _, p := range expired {
		if err := s.repo.DeletePost(ctx, p.ID); err != nil {
			if s.logger != nil {
				s.logger.Warnf("purging expired status %s failed: %v", p.ID, err)
			}
			continue
		}
		s.deleteMedia(ctx, p)
		purged++
	}
	return purged, nil
}

// RunReaper sweeps expired posts on the given interval until the
// context is cancelled.
func (s *StatusService) RunReaper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := s.PurgeExpired(ctx, now)
			if err != nil {
				if s.logger != nil {
					s.logger.Errorf("status reaper sweep failed: %v", err)
				}
				continue
			}
			if n > 0 && s.logger != nil {
				s.logger.Infof("status reaper purged %d expired posts", n)
			}
		}
	}
}

func (s *StatusService) purge(ctx context.Context, p status.Post) {
	if err := s.repo.DeletePost(ctx, p.ID); err != nil && !errors.Is(err, ripple_errors.ErrNotFound) {
		if s.logger != nil {
			s.logger.Warnf("lazy purge of status %s failed: %v", p.ID, err)
		}
		return
	}
	s.deleteMedia(ctx, p)
}

func (s *StatusService) deleteMedia(ctx context.Context, p status.Post) {
	if s.media == nil || !p.MediaURL.Valid {
		return
	}
	if err := s.media.Delete(ctx, p.MediaURL.String); err != nil && s.logger != nil {
		s.logger.Warnf("deleting media for status %s failed: %v", p.ID, err)
	}
}
