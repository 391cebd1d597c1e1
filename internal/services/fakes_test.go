package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"ripple-chat/internal/domain/conversation"
	"ripple-chat/internal/domain/message"
	"ripple-chat/internal/domain/notification"
	"ripple-chat/internal/domain/status"
	"ripple-chat/internal/domain/user"
	ripple_errors "ripple-chat/pkg/errors"

	"github.com/google/uuid"
)

// In-memory repositories mirroring the database contracts, including the
// duplicate-key and not-found error mapping.

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[uuid.UUID]user.User
	tokens map[uuid.UUID][]user.PushToken
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:  make(map[uuid.UUID]user.User),
		tokens: make(map[uuid.UUID][]user.PushToken),
	}
}

func (r *fakeUserRepo) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == u.Username {
			return ripple_errors.ErrAlreadyExists
		}
	}
	r.users[u.ID] = *u
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return user.User{}, ripple_errors.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return user.User{}, ripple_errors.ErrNotFound
}

func (r *fakeUserRepo) Update(_ context.Context, u user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return ripple_errors.ErrNotFound
	}
	r.users[u.ID] = u
	return nil
}

func (r *fakeUserRepo) SetPresence(_ context.Context, id uuid.UUID, online bool, lastSeen time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ripple_errors.ErrNotFound
	}
	u.IsOnline = online
	u.LastSeen = toNullTime(lastSeen)
	r.users[id] = u
	return nil
}

func (r *fakeUserRepo) List(_ context.Context, limit, offset int) ([]user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]user.User, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Username < all[j].Username })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *fakeUserRepo) AddPushToken(_ context.Context, t *user.PushToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[t.UserID] = append(r.tokens[t.UserID], *t)
	return nil
}

func (r *fakeUserRepo) GetPushTokens(_ context.Context, userID uuid.UUID) ([]user.PushToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]user.PushToken(nil), r.tokens[userID]...), nil
}

func (r *fakeUserRepo) DeletePushTokens(_ context.Context, userID uuid.UUID, tokens []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	drop := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		drop[t] = true
	}
	kept := r.tokens[userID][:0]
	for _, t := range r.tokens[userID] {
		if !drop[t.Token] {
			kept = append(kept, t)
		}
	}
	r.tokens[userID] = kept
	return nil
}

type fakeConvRepo struct {
	mu    sync.Mutex
	convs map[uuid.UUID]conversation.Conversation
	pairs map[string]uuid.UUID
}

func newFakeConvRepo() *fakeConvRepo {
	return &fakeConvRepo{
		convs: make(map[uuid.UUID]conversation.Conversation),
		pairs: make(map[string]uuid.UUID),
	}
}

func (r *fakeConvRepo) Create(_ context.Context, c *conversation.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.PairKey.Valid {
		if _, taken := r.pairs[c.PairKey.String]; taken {
			return ripple_errors.ErrAlreadyExists
		}
		r.pairs[c.PairKey.String] = c.ID
	}
	for i := range c.Participants {
		c.Participants[i].ConversationID = c.ID
	}
	r.convs[c.ID] = *c
	return nil
}

func (r *fakeConvRepo) GetByID(_ context.Context, id uuid.UUID) (conversation.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[id]
	if !ok {
		return conversation.Conversation{}, ripple_errors.ErrNotFound
	}
	return c, nil
}

func (r *fakeConvRepo) GetByPairKey(_ context.Context, pairKey string) (conversation.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.pairs[pairKey]
	if !ok {
		return conversation.Conversation{}, ripple_errors.ErrNotFound
	}
	return r.convs[id], nil
}

func (r *fakeConvRepo) ListForUser(_ context.Context, userID uuid.UUID, convType string) ([]conversation.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []conversation.Conversation
	for _, c := range r.convs {
		if convType != "" && c.Type != convType {
			continue
		}
		if c.HasParticipant(userID) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *fakeConvRepo) SetLastMessage(_ context.Context, convID, messageID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[convID]
	if !ok {
		return ripple_errors.ErrNotFound
	}
	c.LastMessageID = uuid.NullUUID{UUID: messageID, Valid: true}
	c.UpdatedAt = at
	r.convs[convID] = c
	return nil
}

func (r *fakeConvRepo) IncrementUnread(_ context.Context, convID, userID uuid.UUID) error {
	return r.adjustUnread(convID, userID, func(p *conversation.Participant) {
		p.UnreadCount++
	})
}

func (r *fakeConvRepo) ResetUnread(_ context.Context, convID, userID uuid.UUID) error {
	now := time.Now()
	return r.adjustUnread(convID, userID, func(p *conversation.Participant) {
		p.UnreadCount = 0
		p.LastReadAt = toNullTime(now)
	})
}

func (r *fakeConvRepo) adjustUnread(convID, userID uuid.UUID, fn func(*conversation.Participant)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[convID]
	if !ok {
		return ripple_errors.ErrNotFound
	}
	for i := range c.Participants {
		if c.Participants[i].UserID == userID {
			fn(&c.Participants[i])
			r.convs[convID] = c
			return nil
		}
	}
	return ripple_errors.ErrNotFound
}

func (r *fakeConvRepo) GetUnread(_ context.Context, convID, userID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[convID]
	if !ok {
		return 0, ripple_errors.ErrNotFound
	}
	for _, p := range c.Participants {
		if p.UserID == userID {
			return p.UnreadCount, nil
		}
	}
	return 0, ripple_errors.ErrNotFound
}

type fakeMsgRepo struct {
	mu        sync.Mutex
	messages  map[uuid.UUID]message.Message
	reactions map[uuid.UUID]map[uuid.UUID]message.Reaction
	order     []uuid.UUID
}

func newFakeMsgRepo() *fakeMsgRepo {
	return &fakeMsgRepo{
		messages:  make(map[uuid.UUID]message.Message),
		reactions: make(map[uuid.UUID]map[uuid.UUID]message.Reaction),
	}
}

func (r *fakeMsgRepo) Create(_ context.Context, m *message.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[m.ID] = *m
	r.order = append(r.order, m.ID)
	return nil
}

func (r *fakeMsgRepo) GetByID(_ context.Context, id uuid.UUID) (message.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return message.Message{}, ripple_errors.ErrNotFound
	}
	return m, nil
}

func (r *fakeMsgRepo) Update(_ context.Context, m message.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.messages[m.ID]; !ok {
		return ripple_errors.ErrNotFound
	}
	r.messages[m.ID] = m
	return nil
}

func (r *fakeMsgRepo) ListRecent(_ context.Context, convID uuid.UUID, limit int, before time.Time) ([]message.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []message.Message
	for i := len(r.order) - 1; i >= 0 && len(out) < limit; i-- {
		m := r.messages[r.order[i]]
		if m.ConversationID != convID {
			continue
		}
		if !before.IsZero() && !m.CreatedAt.Before(before) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *fakeMsgRepo) Search(_ context.Context, convID uuid.UUID, query string, limit int, before, after time.Time) ([]message.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := strings.ToLower(query)
	var out []message.Message
	for i := len(r.order) - 1; i >= 0 && len(out) < limit; i-- {
		m := r.messages[r.order[i]]
		if m.ConversationID != convID || m.IsDeleted {
			continue
		}
		if !before.IsZero() && !m.CreatedAt.Before(before) {
			continue
		}
		if !after.IsZero() && !m.CreatedAt.After(after) {
			continue
		}
		if strings.Contains(strings.ToLower(m.Content), q) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMsgRepo) SetReaction(_ context.Context, messageID, userID uuid.UUID, emoji string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.messages[messageID]; !ok {
		return ripple_errors.ErrNotFound
	}
	if r.reactions[messageID] == nil {
		r.reactions[messageID] = make(map[uuid.UUID]message.Reaction)
	}
	r.reactions[messageID][userID] = message.Reaction{
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
		CreatedAt: time.Now(),
	}
	return nil
}

func (r *fakeMsgRepo) ClearReaction(_ context.Context, messageID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reactions[messageID][userID]; !ok {
		return ripple_errors.ErrNotFound
	}
	delete(r.reactions[messageID], userID)
	return nil
}

func (r *fakeMsgRepo) GetReactions(_ context.Context, messageID uuid.UUID) ([]message.Reaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []message.Reaction
	for _, reaction := range r.reactions[messageID] {
		out = append(out, reaction)
	}
	return out, nil
}

func (r *fakeMsgRepo) MarkRead(_ context.Context, messageID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[messageID]
	if !ok {
		return ripple_errors.ErrNotFound
	}
	m.IsRead = true
	m.ReadAt = toNullTime(at)
	r.messages[messageID] = m
	return nil
}

type fakeStatusRepo struct {
	mu        sync.Mutex
	posts     map[uuid.UUID]status.Post
	viewers   map[uuid.UUID]map[uuid.UUID]status.Viewer
	reactions map[uuid.UUID]map[uuid.UUID]status.Reaction
	comments  map[uuid.UUID][]status.Comment
}

func newFakeStatusRepo() *fakeStatusRepo {
	return &fakeStatusRepo{
		posts:     make(map[uuid.UUID]status.Post),
		viewers:   make(map[uuid.UUID]map[uuid.UUID]status.Viewer),
		reactions: make(map[uuid.UUID]map[uuid.UUID]status.Reaction),
		comments:  make(map[uuid.UUID][]status.Comment),
	}
}

func (r *fakeStatusRepo) CreatePost(_ context.Context, p *status.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts[p.ID] = *p
	return nil
}

func (r *fakeStatusRepo) GetPost(_ context.Context, id uuid.UUID) (status.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return status.Post{}, ripple_errors.ErrNotFound
	}
	for _, v := range r.viewers[id] {
		p.Viewers = append(p.Viewers, v)
	}
	for _, reaction := range r.reactions[id] {
		p.Reactions = append(p.Reactions, reaction)
	}
	p.Comments = append([]status.Comment(nil), r.comments[id]...)
	return p, nil
}

func (r *fakeStatusRepo) DeletePost(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[id]; !ok {
		return ripple_errors.ErrNotFound
	}
	delete(r.posts, id)
	delete(r.viewers, id)
	delete(r.reactions, id)
	delete(r.comments, id)
	return nil
}

func (r *fakeStatusRepo) ListPosts(_ context.Context) ([]status.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]status.Post, 0, len(r.posts))
	for _, p := range r.posts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeStatusRepo) ListExpired(_ context.Context, now time.Time) ([]status.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []status.Post
	for _, p := range r.posts {
		if p.Expired(now) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeStatusRepo) AddViewer(_ context.Context, v *status.Viewer) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[v.PostID]; !ok {
		return false, ripple_errors.ErrNotFound
	}
	if r.viewers[v.PostID] == nil {
		r.viewers[v.PostID] = make(map[uuid.UUID]status.Viewer)
	}
	if _, seen := r.viewers[v.PostID][v.UserID]; seen {
		return false, nil
	}
	r.viewers[v.PostID][v.UserID] = *v
	return true, nil
}

func (r *fakeStatusRepo) SetReaction(_ context.Context, postID, userID uuid.UUID, kind string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postID]
	if !ok {
		return ripple_errors.ErrNotFound
	}
	counts := p.Counts()
	if prior, ok := r.reactions[postID][userID]; ok {
		if prior.Kind == kind {
			return nil
		}
		counts[prior.Kind]--
	}
	counts[kind]++
	if r.reactions[postID] == nil {
		r.reactions[postID] = make(map[uuid.UUID]status.Reaction)
	}
	r.reactions[postID][userID] = status.Reaction{PostID: postID, UserID: userID, Kind: kind, CreatedAt: time.Now()}
	p.SetCounts(counts)
	r.posts[postID] = p
	return nil
}

func (r *fakeStatusRepo) ClearReaction(_ context.Context, postID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postID]
	if !ok {
		return ripple_errors.ErrNotFound
	}
	prior, ok := r.reactions[postID][userID]
	if !ok {
		return ripple_errors.ErrNotFound
	}
	counts := p.Counts()
	counts[prior.Kind]--
	delete(r.reactions[postID], userID)
	p.SetCounts(counts)
	r.posts[postID] = p
	return nil
}

func (r *fakeStatusRepo) AddComment(_ context.Context, c *status.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[c.PostID]; !ok {
		return ripple_errors.ErrNotFound
	}
	r.comments[c.PostID] = append(r.comments[c.PostID], *c)
	return nil
}

type fakeNotifRepo struct {
	mu    sync.Mutex
	seq   int
	items map[uuid.UUID][]storedNotification
}

type storedNotification struct {
	notification.Notification
	seq int
}

func newFakeNotifRepo() *fakeNotifRepo {
	return &fakeNotifRepo{items: make(map[uuid.UUID][]storedNotification)}
}

func (r *fakeNotifRepo) Create(_ context.Context, n *notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.items[n.UserID] = append(r.items[n.UserID], storedNotification{Notification: *n, seq: r.seq})
	return nil
}

func (r *fakeNotifRepo) ListForUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]notification.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := append([]storedNotification(nil), r.items[userID]...)
	sort.Slice(items, func(i, j int) bool { return items[i].seq > items[j].seq })
	if offset >= len(items) {
		return nil, nil
	}
	items = items[offset:]
	if len(items) > limit {
		items = items[:limit]
	}
	out := make([]notification.Notification, len(items))
	for i, it := range items {
		out[i] = it.Notification
	}
	return out, nil
}

func (r *fakeNotifRepo) UnreadCount(_ context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, it := range r.items[userID] {
		if !it.IsRead {
			n++
		}
	}
	return n, nil
}

func (r *fakeNotifRepo) MarkRead(_ context.Context, id, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items[userID] {
		if r.items[userID][i].ID == id {
			r.items[userID][i].IsRead = true
			return nil
		}
	}
	return ripple_errors.ErrNotFound
}

func (r *fakeNotifRepo) MarkAllRead(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items[userID] {
		r.items[userID][i].IsRead = true
	}
	return nil
}

func (r *fakeNotifRepo) TrimToNewest(_ context.Context, userID uuid.UUID, keep int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := r.items[userID]
	if len(items) <= keep {
		return 0, nil
	}
	sort.Slice(items, func(i, j int) bool { return items[i].seq > items[j].seq })
	dropped := int64(len(items) - keep)
	r.items[userID] = items[:keep]
	return dropped, nil
}

func (r *fakeNotifRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var dropped int64
	for userID, items := range r.items {
		kept := items[:0]
		for _, it := range items {
			if it.CreatedAt.Before(cutoff) {
				dropped++
				continue
			}
			kept = append(kept, it)
		}
		r.items[userID] = kept
	}
	return dropped, nil
}

// Collaborator fakes.

type fakeRouter struct {
	mu         sync.Mutex
	online     map[uuid.UUID]bool
	routed     map[uuid.UUID][][]byte
	broadcasts [][]byte
}

func newFakeRouter(online ...uuid.UUID) *fakeRouter {
	r := &fakeRouter{
		online: make(map[uuid.UUID]bool),
		routed: make(map[uuid.UUID][][]byte),
	}
	for _, id := range online {
		r.online[id] = true
	}
	return r
}

func (r *fakeRouter) RouteTo(userID uuid.UUID, event []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.online[userID] {
		return false
	}
	r.routed[userID] = append(r.routed[userID], event)
	return true
}

func (r *fakeRouter) Broadcast(event []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcasts = append(r.broadcasts, event)
}

func (r *fakeRouter) IsOnline(userID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.online[userID]
}

func (r *fakeRouter) eventTypes(userID uuid.UUID) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var types []string
	for _, raw := range r.routed[userID] {
		types = append(types, eventTypeOf(raw))
	}
	return types
}

type fakeDispatcher struct {
	mu      sync.Mutex
	pushes  []PushPayload
	invalid []string
}

func (d *fakeDispatcher) Push(_ context.Context, _ uuid.UUID, tokens []string, payload PushPayload) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pushes = append(d.pushes, payload)
	return d.invalid, nil
}

type fakeMedia struct {
	mu      sync.Mutex
	deleted []string
}

func (m *fakeMedia) Store(_ context.Context, _ []byte, _ string) (string, error) {
	return "https://media.test/" + uuid.NewString(), nil
}

func (m *fakeMedia) Delete(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, url)
	return nil
}

func toNullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: true}
}

// eventTypeOf decodes just the type field of an encoded envelope.
func eventTypeOf(raw []byte) string {
	var env struct {
		Type string `json:"type"`
	}
	_ = json.Unmarshal(raw, &env)
	return env.Type
}
