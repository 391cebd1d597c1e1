package services

import (
	"context"
	"time"

	"ripple-chat/internal/domain/notification"
	"ripple-chat/internal/events"
	"ripple-chat/internal/repository"
	ripple_errors "ripple-chat/pkg/errors"
	"ripple-chat/pkg/logger"

	"github.com/google/uuid"
)

// NotificationService owns the per-user notification feed and its
// bounded retention, and hands offline recipients to the external
// dispatcher.
type NotificationService struct {
	repo       repository.NotificationRepository
	users      repository.UserRepository
	registry   ConnectionRouter
	dispatcher Dispatcher
	logger     *logger.Logger
	cap        int
	maxAge     time.Duration
}

func NewNotificationService(
	repo repository.NotificationRepository,
	users repository.UserRepository,
	registry ConnectionRouter,
	dispatcher Dispatcher,
	l *logger.Logger,
	keep int,
	maxAge time.Duration,
) *NotificationService {
	if keep <= 0 {
		keep = 100
	}
	return &NotificationService{
		repo:       repo,
		users:      users,
		registry:   registry,
		dispatcher: dispatcher,
		logger:     l,
		cap:        keep,
		maxAge:     maxAge,
	}
}

// Notify records a notification, trims the recipient's feed to the
// retention cap, and delivers it: live when the recipient is routable,
// through the dispatcher otherwise. Delivery is best-effort; only the
// durable write can fail the call.
func (s *NotificationService) Notify(ctx context.Context, n *notification.Notification) error {
	if !notification.ValidType(n.Type) || n.UserID == uuid.Nil {
		return ripple_errors.ErrInvalidInput
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}
	if _, err := s.repo.TrimToNewest(ctx, n.UserID, s.cap); err != nil && s.logger != nil {
		s.logger.Warnf("notification trim failed for user %s: %v", n.UserID, err)
	}

	env := events.New(events.EventNotificationNew, n)
	delivered := false
	if s.registry != nil {
		delivered = s.registry.RouteTo(n.UserID, env.Encode())
	}
	if !delivered {
		s.dispatch(ctx, n)
	}
	return nil
}

func (s *NotificationService) dispatch(ctx context.Context, n *notification.Notification) {
	if s.dispatcher == nil {
		return
	}
	tokens, err := s.users.GetPushTokens(ctx, n.UserID)
	if err != nil {
		if s.logger != nil {
			s.logger.Warnf("push token lookup failed for user %s: %v", n.UserID, err)
		}
		return
	}
	if len(tokens) == 0 {
		return
	}

	raw := make([]string, len(tokens))
	for i, t := range tokens {
		raw[i] = t.Token
	}

	payload := PushPayload{
		Title: n.Title,
		Body:  n.Body,
		Type:  n.Type,
		Data:  map[string]string{"from": n.FromUserID.String()},
	}
	invalid, err := s.dispatcher.Push(ctx, n.UserID, raw, payload)
	if err != nil && s.logger != nil {
		s.logger.Warnf("push dispatch failed for user %s: %v", n.UserID, err)
	}
	if len(invalid) > 0 {
		if err := s.users.DeletePushTokens(ctx, n.UserID, invalid); err != nil && s.logger != nil {
			s.logger.Warnf("pruning %d invalid push tokens for user %s failed: %v", len(invalid), n.UserID, err)
		}
	}
}

func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]notification.Notification, error) {
	if limit <= 0 || limit > s.cap {
		limit = s.cap
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListForUser(ctx, userID, limit, offset)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.UnreadCount(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.MarkRead(ctx, id, userID)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, userID)
}

// PurgeOld removes notifications past the configured retention age.
func (s *NotificationService) PurgeOld(ctx context.Context, now time.Time) (int64, error) {
	if s.maxAge <= 0 {
		return 0, nil
	}
	return s.repo.DeleteOlderThan(ctx, now.Add(-s.maxAge))
}
