package services

import (
	"context"
	"time"

	"ripple-chat/internal/domain/conversation"
	"ripple-chat/internal/domain/message"
	"ripple-chat/internal/domain/notification"
	"ripple-chat/internal/domain/status"
	"ripple-chat/internal/events"
	"ripple-chat/pkg/logger"

	"github.com/google/uuid"
)

const previewLimit = 80

// DeliveryRouter orchestrates the realtime flows: it runs the durable
// write first, then fans events out to live connections, the bridge,
// and the notification feed for whoever is offline.
type DeliveryRouter struct {
	conversations *ConversationService
	messages      *MessageService
	statuses      *StatusService
	notifications *NotificationService
	registry      ConnectionRouter
	bridge        EventBridge
	typing        TypingTracker
	logger        *logger.Logger
}

func NewDeliveryRouter(
	conversations *ConversationService,
	messages *MessageService,
	statuses *StatusService,
	notifications *NotificationService,
	registry ConnectionRouter,
	bridge EventBridge,
	typing TypingTracker,
	l *logger.Logger,
) *DeliveryRouter {
	return &DeliveryRouter{
		conversations: conversations,
		messages:      messages,
		statuses:      statuses,
		notifications: notifications,
		registry:      registry,
		bridge:        bridge,
		typing:        typing,
		logger:        l,
	}
}

// emitTo pushes the envelope to one user: live locally, and through the
// bridge for their connections on other instances. It reports whether a
// local connection took the event.
func (r *DeliveryRouter) emitTo(ctx context.Context, userID uuid.UUID, env events.Envelope) bool {
	delivered := r.registry.RouteTo(userID, env.Encode())
	if r.bridge != nil {
		if err := r.bridge.PublishToUser(ctx, userID, env); err != nil && r.logger != nil {
			r.logger.Warnf("bridging %s to user %s failed: %v", env.Type, userID, err)
		}
	}
	return delivered
}

func (r *DeliveryRouter) emitBroadcast(ctx context.Context, env events.Envelope) {
	r.registry.Broadcast(env.Encode())
	if r.bridge != nil {
		if err := r.bridge.PublishBroadcast(ctx, env); err != nil && r.logger != nil {
			r.logger.Warnf("bridging broadcast %s failed: %v", env.Type, err)
		}
	}
}

type messageEvent struct {
	Message        message.Message `json:"message"`
	ConversationID string          `json:"conversationId"`
}

type chatEvent struct {
	Conversation conversation.Conversation `json:"conversation"`
}

// SendMessage appends the message, updates conversation bookkeeping,
// acks the sender, and fans the message out. Recipients with no live
// connection anywhere get a notification instead.
func (r *DeliveryRouter) SendMessage(ctx context.Context, in AppendInput) (message.Message, error) {
	conv, err := r.conversations.Get(ctx, in.ConversationID, in.SenderID)
	if err != nil {
		return message.Message{}, err
	}

	m, err := r.messages.Append(ctx, in)
	if err != nil {
		return message.Message{}, err
	}

	if err := r.conversations.SetLastMessage(ctx, conv.ID, m.ID, m.CreatedAt); err != nil && r.logger != nil {
		r.logger.Warnf("updating last message for conversation %s failed: %v", conv.ID, err)
	}

	payload := messageEvent{Message: m, ConversationID: conv.ID.String()}
	r.emitTo(ctx, in.SenderID, events.New(events.EventMessageSent, payload))

	recvEnv := events.New(events.EventMessageReceive, payload)
	updateEnv := events.New(events.EventRecentChatUpdate, payload)
	for _, other := range conv.OtherParticipants(in.SenderID) {
		if err := r.conversations.IncrementUnread(ctx, conv.ID, other); err != nil && r.logger != nil {
			r.logger.Warnf("incrementing unread for user %s failed: %v", other, err)
		}
		delivered := r.emitTo(ctx, other, recvEnv)
		r.emitTo(ctx, other, updateEnv)
		if !delivered && !r.registry.IsOnline(other) {
			r.notifyOffline(ctx, conv, m, other)
		}
	}
	return m, nil
}

func (r *DeliveryRouter) notifyOffline(ctx context.Context, conv conversation.Conversation, m message.Message, recipient uuid.UUID) {
	title := "New message"
	notifType := notification.TypeMessage
	if conv.Type == conversation.TypeGroup {
		notifType = notification.TypeGroupMessage
		if conv.Name.Valid {
			title = conv.Name.String
		}
	}
	n := &notification.Notification{
		UserID:         recipient,
		Type:           notifType,
		FromUserID:     m.SenderID,
		MessageID:      uuid.NullUUID{UUID: m.ID, Valid: true},
		ConversationID: uuid.NullUUID{UUID: conv.ID, Valid: true},
		Title:          title,
		Body:           preview(m.Content),
	}
	if err := r.notifications.Notify(ctx, n); err != nil && r.logger != nil {
		r.logger.Warnf("notifying user %s about message %s failed: %v", recipient, m.ID, err)
	}
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLimit {
		return content
	}
	return string(runes[:previewLimit]) + "…"
}

// CreateDirect resolves the direct conversation for the pair and lets
// both sides know it exists.
func (r *DeliveryRouter) CreateDirect(ctx context.Context, a, b uuid.UUID) (conversation.Conversation, error) {
	conv, err := r.conversations.GetOrCreateDirect(ctx, a, b)
	if err != nil {
		return conversation.Conversation{}, err
	}
	env := events.New(events.EventChatCreated, chatEvent{Conversation: conv})
	r.emitTo(ctx, a, env)
	r.emitTo(ctx, b, env)
	return conv, nil
}

func (r *DeliveryRouter) CreateGroup(ctx context.Context, participants []uuid.UUID, name string, admin uuid.UUID) (conversation.Conversation, error) {
	conv, err := r.conversations.CreateGroup(ctx, participants, name, admin)
	if err != nil {
		return conversation.Conversation{}, err
	}
	env := events.New(events.EventChatCreated, chatEvent{Conversation: conv})
	for _, p := range conv.Participants {
		r.emitTo(ctx, p.UserID, env)
	}
	return conv, nil
}

type typingEvent struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
}

// TypingStart fans the indicator out to the other participants. Nothing
// is persisted beyond the short-lived tracker entry.
func (r *DeliveryRouter) TypingStart(ctx context.Context, convID, userID uuid.UUID) error {
	return r.typingEvent(ctx, convID, userID, true)
}

func (r *DeliveryRouter) TypingStop(ctx context.Context, convID, userID uuid.UUID) error {
	return r.typingEvent(ctx, convID, userID, false)
}

func (r *DeliveryRouter) typingEvent(ctx context.Context, convID, userID uuid.UUID, start bool) error {
	conv, err := r.conversations.Get(ctx, convID, userID)
	if err != nil {
		return err
	}

	if r.typing != nil {
		var trackErr error
		if start {
			trackErr = r.typing.Start(ctx, convID.String(), userID.String())
		} else {
			trackErr = r.typing.Stop(ctx, convID.String(), userID.String())
		}
		if trackErr != nil && r.logger != nil {
			r.logger.Warnf("typing tracker update for conversation %s failed: %v", convID, trackErr)
		}
	}

	eventType := events.EventTypingStart
	if !start {
		eventType = events.EventTypingStop
	}
	env := events.New(eventType, typingEvent{ConversationID: convID.String(), UserID: userID.String()})
	for _, other := range conv.OtherParticipants(userID) {
		r.emitTo(ctx, other, env)
	}
	return nil
}

type readEvent struct {
	MessageID      string    `json:"messageId"`
	ConversationID string    `json:"conversationId"`
	ReaderID       string    `json:"readerId"`
	ReadAt         time.Time `json:"readAt"`
}

// MarkRead stamps the message read, zeroes the reader's unread counter,
// and tells the sender.
func (r *DeliveryRouter) MarkRead(ctx context.Context, messageID, readerID uuid.UUID) (message.Message, error) {
	m, err := r.messages.Get(ctx, messageID)
	if err != nil {
		return message.Message{}, err
	}
	if _, err := r.conversations.Get(ctx, m.ConversationID, readerID); err != nil {
		return message.Message{}, err
	}

	m, err = r.messages.MarkRead(ctx, messageID, readerID)
	if err != nil {
		return message.Message{}, err
	}
	if err := r.conversations.ResetUnread(ctx, m.ConversationID, readerID); err != nil && r.logger != nil {
		r.logger.Warnf("resetting unread for user %s failed: %v", readerID, err)
	}

	if m.SenderID != readerID && m.ReadAt.Valid {
		env := events.New(events.EventMessageRead, readEvent{
			MessageID:      m.ID.String(),
			ConversationID: m.ConversationID.String(),
			ReaderID:       readerID.String(),
			ReadAt:         m.ReadAt.Time,
		})
		r.emitTo(ctx, m.SenderID, env)
	}
	return m, nil
}

// EditMessage applies the edit and fans the updated message out to the
// whole conversation.
func (r *DeliveryRouter) EditMessage(ctx context.Context, messageID, actorID uuid.UUID, newContent string) (message.Message, error) {
	m, err := r.messages.Edit(ctx, messageID, actorID, newContent)
	if err != nil {
		return message.Message{}, err
	}
	r.fanOutToConversation(ctx, m.ConversationID, actorID, events.New(events.EventMessageEdited, messageEvent{Message: m, ConversationID: m.ConversationID.String()}), true)
	return m, nil
}

// DeleteMessage tombstones the message and fans the tombstone out.
func (r *DeliveryRouter) DeleteMessage(ctx context.Context, messageID, actorID uuid.UUID) (message.Message, error) {
	m, err := r.messages.SoftDelete(ctx, messageID, actorID)
	if err != nil {
		return message.Message{}, err
	}
	r.fanOutToConversation(ctx, m.ConversationID, actorID, events.New(events.EventMessageDeleted, messageEvent{Message: m, ConversationID: m.ConversationID.String()}), true)
	return m, nil
}

type messageReactionEvent struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	Emoji          string `json:"emoji,omitempty"`
	Removed        bool   `json:"removed,omitempty"`
}

func (r *DeliveryRouter) ReactMessage(ctx context.Context, messageID, userID uuid.UUID, emoji string) error {
	m, err := r.messages.Get(ctx, messageID)
	if err != nil {
		return err
	}
	if _, err := r.conversations.Get(ctx, m.ConversationID, userID); err != nil {
		return err
	}
	if err := r.messages.SetReaction(ctx, messageID, userID, emoji); err != nil {
		return err
	}
	env := events.New(events.EventMessageReacted, messageReactionEvent{
		MessageID:      messageID.String(),
		ConversationID: m.ConversationID.String(),
		UserID:         userID.String(),
		Emoji:          emoji,
	})
	r.fanOutToConversation(ctx, m.ConversationID, userID, env, true)
	return nil
}

func (r *DeliveryRouter) ClearMessageReaction(ctx context.Context, messageID, userID uuid.UUID) error {
	m, err := r.messages.Get(ctx, messageID)
	if err != nil {
		return err
	}
	if _, err := r.conversations.Get(ctx, m.ConversationID, userID); err != nil {
		return err
	}
	if err := r.messages.ClearReaction(ctx, messageID, userID); err != nil {
		return err
	}
	env := events.New(events.EventMessageReacted, messageReactionEvent{
		MessageID:      messageID.String(),
		ConversationID: m.ConversationID.String(),
		UserID:         userID.String(),
		Removed:        true,
	})
	r.fanOutToConversation(ctx, m.ConversationID, userID, env, true)
	return nil
}

// fanOutToConversation emits to every participant; includeActor keeps
// the actor's other devices in sync.
func (r *DeliveryRouter) fanOutToConversation(ctx context.Context, convID, actorID uuid.UUID, env events.Envelope, includeActor bool) {
	conv, err := r.conversations.Get(ctx, convID, actorID)
	if err != nil {
		if r.logger != nil {
			r.logger.Warnf("fan-out lookup for conversation %s failed: %v", convID, err)
		}
		return
	}
	for _, p := range conv.Participants {
		if !includeActor && p.UserID == actorID {
			continue
		}
		r.emitTo(ctx, p.UserID, env)
	}
}

type statusEvent struct {
	Post status.Post `json:"post"`
}

type statusViewEvent struct {
	PostID   string `json:"postId"`
	ViewerID string `json:"viewerId"`
}

type statusReactionEvent struct {
	PostID  string         `json:"postId"`
	UserID  string         `json:"userId"`
	Kind    string         `json:"kind,omitempty"`
	Removed bool           `json:"removed,omitempty"`
	Counts  map[string]int `json:"counts"`
}

type statusCommentEvent struct {
	PostID  string         `json:"postId"`
	Comment status.Comment `json:"comment"`
}

// PostStatus publishes the status and announces it to everyone.
func (r *DeliveryRouter) PostStatus(ctx context.Context, in PostInput) (status.Post, error) {
	p, err := r.statuses.Post(ctx, in)
	if err != nil {
		return status.Post{}, err
	}
	r.emitBroadcast(ctx, events.New(events.EventStatusNew, statusEvent{Post: p}))
	return p, nil
}

// ViewStatus records the view and, on a first view by someone else,
// tells the owner live and through the notification feed.
func (r *DeliveryRouter) ViewStatus(ctx context.Context, postID, viewerID uuid.UUID) error {
	p, firstView, err := r.statuses.MarkViewed(ctx, postID, viewerID)
	if err != nil {
		return err
	}
	if !firstView {
		return nil
	}

	r.emitTo(ctx, p.UserID, events.New(events.EventStatusViewed, statusViewEvent{
		PostID:   postID.String(),
		ViewerID: viewerID.String(),
	}))

	n := &notification.Notification{
		UserID:     p.UserID,
		Type:       notification.TypeStatusView,
		FromUserID: viewerID,
		StatusID:   uuid.NullUUID{UUID: postID, Valid: true},
		Title:      "Status viewed",
		Body:       "Someone viewed your status",
	}
	if err := r.notifications.Notify(ctx, n); err != nil && r.logger != nil {
		r.logger.Warnf("notifying status view on %s failed: %v", postID, err)
	}
	return nil
}

// ReactStatus replaces the viewer's reaction and tells the owner.
func (r *DeliveryRouter) ReactStatus(ctx context.Context, postID, userID uuid.UUID, kind string) (status.Post, error) {
	p, err := r.statuses.React(ctx, postID, userID, kind)
	if err != nil {
		return status.Post{}, err
	}

	r.emitTo(ctx, p.UserID, events.New(events.EventStatusReacted, statusReactionEvent{
		PostID: postID.String(),
		UserID: userID.String(),
		Kind:   kind,
		Counts: p.Counts(),
	}))

	if userID != p.UserID {
		n := &notification.Notification{
			UserID:     p.UserID,
			Type:       notification.TypeReaction,
			FromUserID: userID,
			StatusID:   uuid.NullUUID{UUID: postID, Valid: true},
			Title:      "New reaction",
			Body:       "Someone reacted to your status",
		}
		if err := r.notifications.Notify(ctx, n); err != nil && r.logger != nil {
			r.logger.Warnf("notifying status reaction on %s failed: %v", postID, err)
		}
	}
	return p, nil
}

func (r *DeliveryRouter) ClearStatusReaction(ctx context.Context, postID, userID uuid.UUID) (status.Post, error) {
	p, err := r.statuses.ClearReaction(ctx, postID, userID)
	if err != nil {
		return status.Post{}, err
	}
	r.emitTo(ctx, p.UserID, events.New(events.EventStatusReacted, statusReactionEvent{
		PostID:  postID.String(),
		UserID:  userID.String(),
		Removed: true,
		Counts:  p.Counts(),
	}))
	return p, nil
}

// CommentStatus appends the comment, tells the owner, and notifies any
// mentioned users.
func (r *DeliveryRouter) CommentStatus(ctx context.Context, postID, userID uuid.UUID, text string, mentions []uuid.UUID) (status.Comment, error) {
	c, p, err := r.statuses.Comment(ctx, postID, userID, text, mentions)
	if err != nil {
		return status.Comment{}, err
	}

	env := events.New(events.EventStatusComment, statusCommentEvent{PostID: postID.String(), Comment: c})
	r.emitTo(ctx, p.UserID, env)

	if userID != p.UserID {
		n := &notification.Notification{
			UserID:     p.UserID,
			Type:       notification.TypeComment,
			FromUserID: userID,
			StatusID:   uuid.NullUUID{UUID: postID, Valid: true},
			CommentID:  uuid.NullUUID{UUID: c.ID, Valid: true},
			Title:      "New comment",
			Body:       preview(text),
		}
		if err := r.notifications.Notify(ctx, n); err != nil && r.logger != nil {
			r.logger.Warnf("notifying status comment on %s failed: %v", postID, err)
		}
	}

	for _, mentioned := range mentions {
		if mentioned == uuid.Nil || mentioned == userID || mentioned == p.UserID {
			continue
		}
		r.emitTo(ctx, mentioned, env)
		n := &notification.Notification{
			UserID:     mentioned,
			Type:       notification.TypeMention,
			FromUserID: userID,
			StatusID:   uuid.NullUUID{UUID: postID, Valid: true},
			CommentID:  uuid.NullUUID{UUID: c.ID, Valid: true},
			Title:      "You were mentioned",
			Body:       preview(text),
		}
		if err := r.notifications.Notify(ctx, n); err != nil && r.logger != nil {
			r.logger.Warnf("notifying mention on %s failed: %v", postID, err)
		}
	}
	return c, nil
}

// DeleteStatus removes the owner's post and announces the removal.
func (r *DeliveryRouter) DeleteStatus(ctx context.Context, postID, actorID uuid.UUID) error {
	if err := r.statuses.Delete(ctx, postID, actorID); err != nil {
		return err
	}
	r.emitBroadcast(ctx, events.New(events.EventStatusDeleted, statusViewEvent{PostID: postID.String(), ViewerID: actorID.String()}))
	return nil
}
