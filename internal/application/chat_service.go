package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ChatRepository captures the persistence operations for the room message
// log.
type ChatRepository interface {
	CreateMessage(ctx context.Context, roomID, userID, content string, at time.Time) (ChatMessage, error)
	ListMessagesSince(ctx context.Context, roomID string, sinceID int64, limit int) ([]ChatMessage, error)
}

// ChatService appends to and polls the per-room message log.
type ChatService struct {
	messages  ChatRepository
	pollLimit int
	now       func() time.Time
	logger    *slog.Logger
}

// NewChatService constructs a chat service. A non-positive poll limit falls
// back to 50.
func NewChatService(messages ChatRepository, pollLimit int, now func() time.Time, logger *slog.Logger) *ChatService {
	if pollLimit <= 0 {
		pollLimit = 50
	}
	if now == nil {
		now = time.Now
	}
	return &ChatService{
		messages:  messages,
		pollLimit: pollLimit,
		now:       now,
		logger:    defaultLogger(logger),
	}
}

func (s *ChatService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ChatService", operation, attrs...)
}

// Post appends a message to the room's log. Messages are immutable once
// created; the repository assigns the monotonically increasing id.
func (s *ChatService) Post(ctx context.Context, principal Principal, roomID, content string) (message ChatMessage, err error) {
	if s == nil || s.messages == nil {
		err = fmt.Errorf("message repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "Post", "principal_id", principal.UserID, "room_id", roomID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to post message", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("message_id", message.ID).InfoContext(ctx, "message posted")
	}()

	vErr := &ValidationError{}
	if strings.TrimSpace(roomID) == "" {
		vErr.add("room_id", "room id is required")
	}
	if strings.TrimSpace(content) == "" {
		vErr.add("content", "content is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	message, err = s.messages.CreateMessage(ctx, roomID, principal.UserID, content, s.now())
	if err != nil {
		err = mapRepoError(err)
		return
	}
	return
}

// Poll returns messages with id greater than sinceID, oldest first, capped at
// the configured limit. Polling with the same watermark and no new posts
// returns the same result.
func (s *ChatService) Poll(ctx context.Context, roomID string, sinceID int64) ([]ChatMessage, error) {
	if s == nil || s.messages == nil {
		return nil, fmt.Errorf("message repository not configured")
	}

	logger := s.loggerWith(ctx, "Poll", "room_id", roomID, "since_id", sinceID)

	messages, err := s.messages.ListMessagesSince(ctx, roomID, sinceID, s.pollLimit)
	if err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to poll messages", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	return messages, nil
}
