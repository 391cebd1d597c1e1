package services

import (
	"context"

	"ripple-chat/pkg/logger"

	"github.com/google/uuid"
)

// LogDispatcher is the default Dispatcher when no push provider is
// configured: it records what would have been sent and rejects nothing.
type LogDispatcher struct {
	logger *logger.Logger
}

func NewLogDispatcher(l *logger.Logger) *LogDispatcher {
	return &LogDispatcher{logger: l}
}

func (d *LogDispatcher) Push(_ context.Context, userID uuid.UUID, tokens []string, payload PushPayload) ([]string, error) {
	if d.logger != nil {
		d.logger.Infof("push for user %s to %d tokens: %s", userID, len(tokens), payload.Title)
	}
	return nil, nil
}
