package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"ripple-chat/internal/domain/conversation"
	"ripple-chat/internal/repository"
	ripple_errors "ripple-chat/pkg/errors"

	"github.com/google/uuid"
)

type ConversationService struct {
	repo repository.ConversationRepository

	// pairMu guards pairLocks; each direct pair gets its own mutex so
	// concurrent creates for the same pair serialize without touching
	// unrelated pairs.
	pairMu    sync.Mutex
	pairLocks map[string]*sync.Mutex
}

func NewConversationService(repo repository.ConversationRepository) *ConversationService {
	return &ConversationService{
		repo:      repo,
		pairLocks: make(map[string]*sync.Mutex),
	}
}

func (s *ConversationService) pairLock(key string) *sync.Mutex {
	s.pairMu.Lock()
	defer s.pairMu.Unlock()
	if l, ok := s.pairLocks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.pairLocks[key] = l
	return l
}

// GetOrCreateDirect returns the unique direct conversation between two
// users, creating it if absent. Concurrent callers converge on one
// conversation: a per-pair lock serializes local attempts and the unique
// pair-key index catches races across processes, in which case the loser
// reads back the winner's row.
func (s *ConversationService) GetOrCreateDirect(ctx context.Context, a, b uuid.UUID) (conversation.Conversation, error) {
	if a == b || a == uuid.Nil || b == uuid.Nil {
		return conversation.Conversation{}, ripple_errors.ErrInvalidInput
	}

	key := conversation.DirectPairKey(a, b)
	lock := s.pairLock(key)
	lock.Lock()
	defer lock.Unlock()

	existing, err := s.repo.GetByPairKey(ctx, key)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ripple_errors.ErrNotFound) {
		return conversation.Conversation{}, err
	}

	now := time.Now()
	conv := conversation.Conversation{
		ID:        uuid.New(),
		Type:      conversation.TypeDirect,
		PairKey:   sql.NullString{String: key, Valid: true},
		CreatedAt: now,
		UpdatedAt: now,
		Participants: []conversation.Participant{
			{UserID: a, JoinedAt: now},
			{UserID: b, JoinedAt: now},
		},
	}

	if err := s.repo.Create(ctx, &conv); err != nil {
		if errors.Is(err, ripple_errors.ErrAlreadyExists) {
			// Lost the race to another process; its row is the result.
			return s.repo.GetByPairKey(ctx, key)
		}
		return conversation.Conversation{}, err
	}
	return conv, nil
}

func (s *ConversationService) CreateGroup(ctx context.Context, participants []uuid.UUID, name string, admin uuid.UUID) (conversation.Conversation, error) {
	if name == "" || admin == uuid.Nil {
		return conversation.Conversation{}, ripple_errors.ErrInvalidInput
	}

	seen := make(map[uuid.UUID]bool, len(participants))
	unique := make([]uuid.UUID, 0, len(participants))
	for _, p := range participants {
		if p == uuid.Nil || seen[p] {
			continue
		}
		seen[p] = true
		unique = append(unique, p)
	}
	if !seen[admin] {
		unique = append(unique, admin)
		seen[admin] = true
	}
	if len(unique) < 2 {
		return conversation.Conversation{}, ripple_errors.ErrInvalidInput
	}

	now := time.Now()
	conv := conversation.Conversation{
		ID:        uuid.New(),
		Type:      conversation.TypeGroup,
		Name:      sql.NullString{String: name, Valid: true},
		AdminID:   uuid.NullUUID{UUID: admin, Valid: true},
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, p := range unique {
		conv.Participants = append(conv.Participants, conversation.Participant{UserID: p, JoinedAt: now})
	}

	if err := s.repo.Create(ctx, &conv); err != nil {
		return conversation.Conversation{}, err
	}
	return conv, nil
}

// Get fetches a conversation the user participates in. Non-participants
// get ErrForbidden.
func (s *ConversationService) Get(ctx context.Context, id, forUser uuid.UUID) (conversation.Conversation, error) {
	conv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return conversation.Conversation{}, err
	}
	if !conv.HasParticipant(forUser) {
		return conversation.Conversation{}, ripple_errors.ErrForbidden
	}
	return conv, nil
}

func (s *ConversationService) ListForUser(ctx context.Context, userID uuid.UUID, convType string) ([]conversation.Conversation, error) {
	if convType != "" && convType != conversation.TypeDirect && convType != conversation.TypeGroup {
		return nil, ripple_errors.ErrInvalidInput
	}
	return s.repo.ListForUser(ctx, userID, convType)
}

func (s *ConversationService) SetLastMessage(ctx context.Context, convID, messageID uuid.UUID, at time.Time) error {
	return s.repo.SetLastMessage(ctx, convID, messageID, at)
}

func (s *ConversationService) IncrementUnread(ctx context.Context, convID, userID uuid.UUID) error {
	return s.repo.IncrementUnread(ctx, convID, userID)
}

func (s *ConversationService) ResetUnread(ctx context.Context, convID, userID uuid.UUID) error {
	return s.repo.ResetUnread(ctx, convID, userID)
}

func (s *ConversationService) GetUnread(ctx context.Context, convID, userID uuid.UUID) (int, error) {
	return s.repo.GetUnread(ctx, convID, userID)
}
