package services

import (
	"context"
	"testing"
	"time"

	"ripple-chat/internal/domain/notification"
	"ripple-chat/internal/domain/user"
	"ripple-chat/internal/events"
	ripple_errors "ripple-chat/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNotification(userID uuid.UUID) *notification.Notification {
	return &notification.Notification{
		UserID:     userID,
		Type:       notification.TypeMessage,
		FromUserID: uuid.New(),
		Title:      "New message",
		Body:       "hey",
	}
}

func TestNotifyDeliversLive(t *testing.T) {
	repo := newFakeNotifRepo()
	users := newFakeUserRepo()
	recipient := uuid.New()
	router := newFakeRouter(recipient)
	dispatcher := &fakeDispatcher{}
	svc := NewNotificationService(repo, users, router, dispatcher, nil, 100, 0)

	require.NoError(t, svc.Notify(context.Background(), newNotification(recipient)))

	types := router.eventTypes(recipient)
	require.Len(t, types, 1)
	assert.Equal(t, events.EventNotificationNew, types[0])
	assert.Empty(t, dispatcher.pushes, "live delivery skips push")
}

func TestNotifyFallsBackToPush(t *testing.T) {
	repo := newFakeNotifRepo()
	users := newFakeUserRepo()
	recipient := uuid.New()
	require.NoError(t, users.AddPushToken(context.Background(), &user.PushToken{
		ID: uuid.New(), UserID: recipient, Token: "tok-1", Platform: "android",
	}))
	router := newFakeRouter() // nobody online
	dispatcher := &fakeDispatcher{}
	svc := NewNotificationService(repo, users, router, dispatcher, nil, 100, 0)

	require.NoError(t, svc.Notify(context.Background(), newNotification(recipient)))

	require.Len(t, dispatcher.pushes, 1)
	assert.Equal(t, "New message", dispatcher.pushes[0].Title)
}

func TestNotifyPrunesRejectedTokens(t *testing.T) {
	repo := newFakeNotifRepo()
	users := newFakeUserRepo()
	recipient := uuid.New()
	ctx := context.Background()
	require.NoError(t, users.AddPushToken(ctx, &user.PushToken{ID: uuid.New(), UserID: recipient, Token: "stale", Platform: "ios"}))
	require.NoError(t, users.AddPushToken(ctx, &user.PushToken{ID: uuid.New(), UserID: recipient, Token: "fresh", Platform: "ios"}))
	dispatcher := &fakeDispatcher{invalid: []string{"stale"}}
	svc := NewNotificationService(repo, users, newFakeRouter(), dispatcher, nil, 100, 0)

	require.NoError(t, svc.Notify(ctx, newNotification(recipient)))

	tokens, err := users.GetPushTokens(ctx, recipient)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "fresh", tokens[0].Token)
}

func TestNotifyEnforcesRetentionCap(t *testing.T) {
	repo := newFakeNotifRepo()
	recipient := uuid.New()
	svc := NewNotificationService(repo, newFakeUserRepo(), newFakeRouter(), nil, nil, 5, 0)
	ctx := context.Background()

	var last *notification.Notification
	for i := 0; i < 8; i++ {
		last = newNotification(recipient)
		require.NoError(t, svc.Notify(ctx, last))
	}

	items, err := svc.List(ctx, recipient, 0, 0)
	require.NoError(t, err)
	require.Len(t, items, 5, "feed trimmed to the cap")
	assert.Equal(t, last.ID, items[0].ID, "newest survives the trim")
}

func TestNotifyValidation(t *testing.T) {
	svc := NewNotificationService(newFakeNotifRepo(), newFakeUserRepo(), newFakeRouter(), nil, nil, 100, 0)
	ctx := context.Background()

	err := svc.Notify(ctx, &notification.Notification{UserID: uuid.New(), Type: "poke"})
	assert.ErrorIs(t, err, ripple_errors.ErrInvalidInput)

	err = svc.Notify(ctx, &notification.Notification{UserID: uuid.Nil, Type: notification.TypeMessage})
	assert.ErrorIs(t, err, ripple_errors.ErrInvalidInput)
}

func TestMarkReadAndCounts(t *testing.T) {
	repo := newFakeNotifRepo()
	recipient := uuid.New()
	svc := NewNotificationService(repo, newFakeUserRepo(), newFakeRouter(), nil, nil, 100, 0)
	ctx := context.Background()

	first := newNotification(recipient)
	require.NoError(t, svc.Notify(ctx, first))
	require.NoError(t, svc.Notify(ctx, newNotification(recipient)))

	n, err := svc.UnreadCount(ctx, recipient)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	require.NoError(t, svc.MarkRead(ctx, first.ID, recipient))
	n, err = svc.UnreadCount(ctx, recipient)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, svc.MarkAllRead(ctx, recipient))
	n, err = svc.UnreadCount(ctx, recipient)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPurgeOld(t *testing.T) {
	repo := newFakeNotifRepo()
	recipient := uuid.New()
	svc := NewNotificationService(repo, newFakeUserRepo(), newFakeRouter(), nil, nil, 100, 30*24*time.Hour)
	ctx := context.Background()

	stale := newNotification(recipient)
	stale.CreatedAt = time.Now().Add(-31 * 24 * time.Hour)
	require.NoError(t, svc.Notify(ctx, stale))
	require.NoError(t, svc.Notify(ctx, newNotification(recipient)))

	dropped, err := svc.PurgeOld(ctx, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, dropped)

	items, err := svc.List(ctx, recipient, 0, 0)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
