package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultRoomName is the shared room every user lands in.
const DefaultRoomName = "Global Study Deck"

// PresenceRepository captures the persistence operations needed by the
// presence tracker.
type PresenceRepository interface {
	GetOrCreateRoom(ctx context.Context, id, name string) (Room, error)
	GetRoom(ctx context.Context, id string) (Room, error)
	TouchParticipant(ctx context.Context, id, roomID, userID string, at time.Time) error
	ListActiveParticipants(ctx context.Context, roomID string, since time.Time) ([]Participant, error)
}

// PresenceService tracks per-user activity within study rooms and derives
// presence status on every read.
type PresenceService struct {
	rooms             PresenceRepository
	freshnessWindow   time.Duration
	studyingThreshold time.Duration
	idGenerator       func() string
	now               func() time.Time
	logger            *slog.Logger
}

// NewPresenceService constructs a presence service with the provided
// dependencies. Non-positive windows fall back to the defaults (5 minutes
// freshness, 60 seconds studying).
func NewPresenceService(rooms PresenceRepository, freshnessWindow, studyingThreshold time.Duration, idGenerator func() string, now func() time.Time, logger *slog.Logger) *PresenceService {
	if freshnessWindow <= 0 {
		freshnessWindow = 5 * time.Minute
	}
	if studyingThreshold <= 0 {
		studyingThreshold = time.Minute
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &PresenceService{
		rooms:             rooms,
		freshnessWindow:   freshnessWindow,
		studyingThreshold: studyingThreshold,
		idGenerator:       idGenerator,
		now:               now,
		logger:            defaultLogger(logger),
	}
}

func (s *PresenceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "PresenceService", operation, attrs...)
}

// EnterDefaultRoom resolves the shared room, creating it lazily, and
// registers the caller as a participant.
func (s *PresenceService) EnterDefaultRoom(ctx context.Context, principal Principal) (Room, error) {
	if s == nil || s.rooms == nil {
		return Room{}, fmt.Errorf("presence repository not configured")
	}

	logger := s.loggerWith(ctx, "EnterDefaultRoom", "principal_id", principal.UserID)

	room, err := s.rooms.GetOrCreateRoom(ctx, s.idGenerator(), DefaultRoomName)
	if err != nil {
		logger.ErrorContext(ctx, "failed to resolve default room", "error", err)
		return Room{}, err
	}

	if err := s.Touch(ctx, room.ID, principal.UserID); err != nil {
		return Room{}, err
	}
	return room, nil
}

// Touch records activity for the user in the room, creating the presence row
// on first contact. Every poll routes through here so last_active is
// monotonically refreshed.
func (s *PresenceService) Touch(ctx context.Context, roomID, userID string) error {
	if s == nil || s.rooms == nil {
		return fmt.Errorf("presence repository not configured")
	}
	if strings.TrimSpace(roomID) == "" {
		vErr := &ValidationError{}
		vErr.add("room_id", "room id is required")
		return vErr
	}

	logger := s.loggerWith(ctx, "Touch", "room_id", roomID, "user_id", userID)

	if err := s.rooms.TouchParticipant(ctx, s.idGenerator(), roomID, userID, s.now()); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to touch participant", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	return nil
}

// Roster returns the active crew for the room. A participant whose
// last_active is older than the freshness window silently ages out; there is
// no explicit leave event. Status is derived per call: studying when activity
// is within the studying threshold, idle otherwise.
func (s *PresenceService) Roster(ctx context.Context, roomID, callerID string) ([]CrewMember, error) {
	if s == nil || s.rooms == nil {
		return nil, fmt.Errorf("presence repository not configured")
	}

	logger := s.loggerWith(ctx, "Roster", "room_id", roomID)

	now := s.now()
	participants, err := s.rooms.ListActiveParticipants(ctx, roomID, now.Add(-s.freshnessWindow))
	if err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to list participants", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}

	crew := make([]CrewMember, 0, len(participants))
	for _, p := range participants {
		status := StatusIdle
		if now.Sub(p.LastActive) < s.studyingThreshold {
			status = StatusStudying
		}
		crew = append(crew, CrewMember{
			UserID:   p.UserID,
			Username: p.Username,
			Status:   status,
			IsMe:     p.UserID == callerID,
		})
	}
	return crew, nil
}
