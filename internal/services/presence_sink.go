package services

import (
	"context"
	"time"

	"ripple-chat/internal/events"
	"ripple-chat/internal/repository"
	"ripple-chat/pkg/logger"

	"github.com/google/uuid"
)

// PresenceSink reacts to online/offline transitions from the registry:
// it persists the change and announces it to everyone.
type PresenceSink struct {
	users  repository.UserRepository
	bridge EventBridge
	logger *logger.Logger

	broadcast func(event []byte)
}

func NewPresenceSink(users repository.UserRepository, bridge EventBridge, l *logger.Logger) *PresenceSink {
	return &PresenceSink{users: users, bridge: bridge, logger: l}
}

// SetBroadcaster wires the registry's broadcast back in after both
// sides are constructed.
func (s *PresenceSink) SetBroadcaster(broadcast func(event []byte)) {
	s.broadcast = broadcast
}

// SetBridge attaches the cross-instance bridge once it exists; the
// bridge itself needs the registry, which needs this sink.
func (s *PresenceSink) SetBridge(bridge EventBridge) {
	s.bridge = bridge
}

type presencePayload struct {
	UserID   string     `json:"userId"`
	IsOnline bool       `json:"isOnline"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}

func (s *PresenceSink) PresenceChanged(userID uuid.UUID, online bool, at time.Time) {
	ctx := context.Background()
	if err := s.users.SetPresence(ctx, userID, online, at); err != nil && s.logger != nil {
		s.logger.Warnf("persisting presence for user %s failed: %v", userID, err)
	}

	payload := presencePayload{UserID: userID.String(), IsOnline: online}
	if !online {
		payload.LastSeen = &at
	}
	env := events.New(events.EventUserStatus, payload)

	if s.broadcast != nil {
		s.broadcast(env.Encode())
	}
	if s.bridge != nil {
		if err := s.bridge.PublishBroadcast(ctx, env); err != nil && s.logger != nil {
			s.logger.Warnf("bridging presence change for user %s failed: %v", userID, err)
		}
	}
}
