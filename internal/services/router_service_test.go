package services

import (
	"context"
	"testing"
	"time"

	"ripple-chat/internal/domain/message"
	"ripple-chat/internal/domain/notification"
	"ripple-chat/internal/domain/status"
	"ripple-chat/internal/events"
	ripple_errors "ripple-chat/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routerFixture struct {
	router        *DeliveryRouter
	conversations *ConversationService
	notifications *NotificationService
	statuses      *StatusService
	registry      *fakeRouter
	dispatcher    *fakeDispatcher
	notifRepo     *fakeNotifRepo
}

func newRouterFixture(online ...uuid.UUID) *routerFixture {
	registry := newFakeRouter(online...)
	dispatcher := &fakeDispatcher{}
	notifRepo := newFakeNotifRepo()
	conversations := NewConversationService(newFakeConvRepo())
	messages := NewMessageService(newFakeMsgRepo())
	statuses := NewStatusService(newFakeStatusRepo(), &fakeMedia{}, nil, 24*time.Hour)
	notifications := NewNotificationService(notifRepo, newFakeUserRepo(), registry, dispatcher, nil, 100, 0)
	return &routerFixture{
		router:        NewDeliveryRouter(conversations, messages, statuses, notifications, registry, nil, nil, nil),
		conversations: conversations,
		notifications: notifications,
		statuses:      statuses,
		registry:      registry,
		dispatcher:    dispatcher,
		notifRepo:     notifRepo,
	}
}

func TestSendMessageFansOutWhenOnline(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	fx := newRouterFixture(alice, bob)
	ctx := context.Background()

	conv, err := fx.router.CreateDirect(ctx, alice, bob)
	require.NoError(t, err)

	m, err := fx.router.SendMessage(ctx, AppendInput{
		ConversationID: conv.ID,
		SenderID:       alice,
		Content:        "hello bob",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, m.ID)

	assert.Contains(t, fx.registry.eventTypes(alice), events.EventMessageSent)
	bobEvents := fx.registry.eventTypes(bob)
	assert.Contains(t, bobEvents, events.EventMessageReceive)
	assert.Contains(t, bobEvents, events.EventRecentChatUpdate)

	// Bob is live, so no notification lands in his feed.
	items, err := fx.notifications.List(ctx, bob, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, items)

	// But his unread counter still moved until he reads.
	n, err := fx.conversations.GetUnread(ctx, conv.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSendMessageNotifiesOffline(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	fx := newRouterFixture(alice) // bob offline
	ctx := context.Background()

	conv, err := fx.router.CreateDirect(ctx, alice, bob)
	require.NoError(t, err)

	_, err = fx.router.SendMessage(ctx, AppendInput{
		ConversationID: conv.ID,
		SenderID:       alice,
		Content:        "are you there?",
	})
	require.NoError(t, err)

	items, err := fx.notifications.List(ctx, bob, 0, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, notification.TypeMessage, items[0].Type)
	assert.Equal(t, "are you there?", items[0].Body)
	assert.Equal(t, alice, items[0].FromUserID)

	n, err := fx.conversations.GetUnread(ctx, conv.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSendMessageRequiresMembership(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	fx := newRouterFixture(alice, bob)
	ctx := context.Background()

	conv, err := fx.router.CreateDirect(ctx, alice, bob)
	require.NoError(t, err)

	_, err = fx.router.SendMessage(ctx, AppendInput{
		ConversationID: conv.ID,
		SenderID:       uuid.New(),
		Content:        "let me in",
	})
	assert.ErrorIs(t, err, ripple_errors.ErrForbidden)
}

func TestReadReceiptFlow(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	fx := newRouterFixture(alice, bob)
	ctx := context.Background()

	conv, err := fx.router.CreateDirect(ctx, alice, bob)
	require.NoError(t, err)
	m, err := fx.router.SendMessage(ctx, AppendInput{ConversationID: conv.ID, SenderID: alice, Content: "ping"})
	require.NoError(t, err)

	read, err := fx.router.MarkRead(ctx, m.ID, bob)
	require.NoError(t, err)
	assert.True(t, read.IsRead)

	// Sender hears about the read.
	assert.Contains(t, fx.registry.eventTypes(alice), events.EventMessageRead)

	// Reader's unread counter resets.
	n, err := fx.conversations.GetUnread(ctx, conv.ID, bob)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMarkReadRequiresMembership(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	fx := newRouterFixture(alice, bob)
	ctx := context.Background()

	conv, err := fx.router.CreateDirect(ctx, alice, bob)
	require.NoError(t, err)
	m, err := fx.router.SendMessage(ctx, AppendInput{ConversationID: conv.ID, SenderID: alice, Content: "secret"})
	require.NoError(t, err)

	_, err = fx.router.MarkRead(ctx, m.ID, uuid.New())
	assert.ErrorIs(t, err, ripple_errors.ErrForbidden)
}

func TestTypingFansOutToOthersOnly(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	fx := newRouterFixture(alice, bob)
	ctx := context.Background()

	conv, err := fx.router.CreateDirect(ctx, alice, bob)
	require.NoError(t, err)

	require.NoError(t, fx.router.TypingStart(ctx, conv.ID, alice))
	require.NoError(t, fx.router.TypingStop(ctx, conv.ID, alice))

	bobEvents := fx.registry.eventTypes(bob)
	assert.Contains(t, bobEvents, events.EventTypingStart)
	assert.Contains(t, bobEvents, events.EventTypingStop)

	assert.NotContains(t, fx.registry.eventTypes(alice), events.EventTypingStart)

	// Non-participants cannot signal typing.
	err = fx.router.TypingStart(ctx, conv.ID, uuid.New())
	assert.ErrorIs(t, err, ripple_errors.ErrForbidden)
}

func TestEditAndDeleteFanOut(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	fx := newRouterFixture(alice, bob)
	ctx := context.Background()

	conv, err := fx.router.CreateDirect(ctx, alice, bob)
	require.NoError(t, err)
	m, err := fx.router.SendMessage(ctx, AppendInput{ConversationID: conv.ID, SenderID: alice, Content: "typo"})
	require.NoError(t, err)

	edited, err := fx.router.EditMessage(ctx, m.ID, alice, "fixed")
	require.NoError(t, err)
	assert.Equal(t, "fixed", edited.Content)
	assert.Contains(t, fx.registry.eventTypes(bob), events.EventMessageEdited)

	deleted, err := fx.router.DeleteMessage(ctx, m.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, message.DeletedPlaceholder, deleted.Content)
	assert.Contains(t, fx.registry.eventTypes(bob), events.EventMessageDeleted)
}

func TestStatusViewNotifiesOwnerOnce(t *testing.T) {
	owner, viewer := uuid.New(), uuid.New()
	fx := newRouterFixture(owner, viewer)
	ctx := context.Background()

	p, err := fx.router.PostStatus(ctx, PostInput{UserID: owner, MediaURL: "https://media.test/a", Type: status.TypeImage})
	require.NoError(t, err)
	assert.NotEmpty(t, fx.registry.broadcasts)

	require.NoError(t, fx.router.ViewStatus(ctx, p.ID, viewer))
	require.NoError(t, fx.router.ViewStatus(ctx, p.ID, viewer))

	viewedEvents := 0
	for _, typ := range fx.registry.eventTypes(owner) {
		if typ == events.EventStatusViewed {
			viewedEvents++
		}
	}
	assert.Equal(t, 1, viewedEvents, "repeat views stay silent")

	items, err := fx.notifications.List(ctx, owner, 0, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, notification.TypeStatusView, items[0].Type)
}

func TestExpiredStatusRejectsInteraction(t *testing.T) {
	owner, viewer := uuid.New(), uuid.New()
	registry := newFakeRouter(owner, viewer)
	statuses := NewStatusService(newFakeStatusRepo(), &fakeMedia{}, nil, time.Millisecond)
	notifications := NewNotificationService(newFakeNotifRepo(), newFakeUserRepo(), registry, nil, nil, 100, 0)
	router := NewDeliveryRouter(NewConversationService(newFakeConvRepo()), NewMessageService(newFakeMsgRepo()), statuses, notifications, registry, nil, nil, nil)
	ctx := context.Background()

	p, err := router.PostStatus(ctx, PostInput{UserID: owner, MediaURL: "https://media.test/b", Type: status.TypeImage})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	err = router.ViewStatus(ctx, p.ID, viewer)
	assert.ErrorIs(t, err, ripple_errors.ErrNotFound)

	_, err = router.ReactStatus(ctx, p.ID, viewer, "fire")
	assert.ErrorIs(t, err, ripple_errors.ErrNotFound)

	_, err = router.CommentStatus(ctx, p.ID, viewer, "too late", nil)
	assert.ErrorIs(t, err, ripple_errors.ErrNotFound)
}

func TestCommentMentionsNotifyMentioned(t *testing.T) {
	owner, commenter, mentioned := uuid.New(), uuid.New(), uuid.New()
	fx := newRouterFixture(owner, commenter, mentioned)
	ctx := context.Background()

	p, err := fx.router.PostStatus(ctx, PostInput{UserID: owner, MediaURL: "https://media.test/c", Type: status.TypeImage})
	require.NoError(t, err)

	_, err = fx.router.CommentStatus(ctx, p.ID, commenter, "look at this", []uuid.UUID{mentioned})
	require.NoError(t, err)

	ownerItems, err := fx.notifications.List(ctx, owner, 0, 0)
	require.NoError(t, err)
	require.Len(t, ownerItems, 1)
	assert.Equal(t, notification.TypeComment, ownerItems[0].Type)

	mentionItems, err := fx.notifications.List(ctx, mentioned, 0, 0)
	require.NoError(t, err)
	require.Len(t, mentionItems, 1)
	assert.Equal(t, notification.TypeMention, mentionItems[0].Type)
}

func TestReactStatusSkipsSelfNotification(t *testing.T) {
	owner := uuid.New()
	fx := newRouterFixture(owner)
	ctx := context.Background()

	p, err := fx.router.PostStatus(ctx, PostInput{UserID: owner, MediaURL: "https://media.test/d", Type: status.TypeImage})
	require.NoError(t, err)

	_, err = fx.router.ReactStatus(ctx, p.ID, owner, "fire")
	require.NoError(t, err)

	items, err := fx.notifications.List(ctx, owner, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDeleteStatusBroadcasts(t *testing.T) {
	owner := uuid.New()
	fx := newRouterFixture(owner)
	ctx := context.Background()

	p, err := fx.router.PostStatus(ctx, PostInput{UserID: owner, MediaURL: "https://media.test/e", Type: status.TypeImage})
	require.NoError(t, err)

	require.NoError(t, fx.router.DeleteStatus(ctx, p.ID, owner))

	var sawDelete bool
	for _, raw := range fx.registry.broadcasts {
		if eventTypeOf(raw) == events.EventStatusDeleted {
			sawDelete = true
		}
	}
	assert.True(t, sawDelete)
}

func TestGroupMessageNotificationUsesGroupName(t *testing.T) {
	admin, member := uuid.New(), uuid.New()
	fx := newRouterFixture(admin) // member offline
	ctx := context.Background()

	conv, err := fx.router.CreateGroup(ctx, []uuid.UUID{member}, "trail crew", admin)
	require.NoError(t, err)

	_, err = fx.router.SendMessage(ctx, AppendInput{ConversationID: conv.ID, SenderID: admin, Content: "meet at 9"})
	require.NoError(t, err)

	items, err := fx.notifications.List(ctx, member, 0, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, notification.TypeGroupMessage, items[0].Type)
	assert.Equal(t, "trail crew", items[0].Title)
}
