package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// UserDirectory captures the user lookups the friend directory needs.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (User, error)
	SearchUsers(ctx context.Context, query, excludeID string, limit int) ([]User, error)
}

// FriendshipRepository captures the persistence operations for directed
// friendship edges.
type FriendshipRepository interface {
	EnsureFriendship(ctx context.Context, id, fromUserID, toUserID string, at time.Time) error
	ListFriendIDs(ctx context.Context, fromUserID string) (map[string]bool, error)
}

// searchResultLimit caps user search responses.
const searchResultLimit = 10

// FriendService manages the directed friendship roster. Edges are asymmetric
// by design; there is no confirmation workflow.
type FriendService struct {
	users       UserDirectory
	friendships FriendshipRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewFriendService constructs a friend service with the provided
// dependencies.
func NewFriendService(users UserDirectory, friendships FriendshipRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *FriendService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &FriendService{
		users:       users,
		friendships: friendships,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *FriendService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "FriendService", operation, attrs...)
}

// Search returns users whose username contains the query, excluding the
// caller, each annotated with whether an edge from the caller already exists.
// An empty query returns no results.
func (s *FriendService) Search(ctx context.Context, principal Principal, query string) ([]UserMatch, error) {
	if s == nil || s.users == nil || s.friendships == nil {
		return nil, fmt.Errorf("friend service not configured")
	}
	if strings.TrimSpace(query) == "" {
		return []UserMatch{}, nil
	}

	logger := s.loggerWith(ctx, "Search", "principal_id", principal.UserID)

	users, err := s.users.SearchUsers(ctx, query, principal.UserID, searchResultLimit)
	if err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to search users", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}

	friendIDs, err := s.friendships.ListFriendIDs(ctx, principal.UserID)
	if err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to list friend ids", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}

	matches := make([]UserMatch, 0, len(users))
	for _, u := range users {
		matches = append(matches, UserMatch{
			ID:       u.ID,
			Username: u.Username,
			IsFriend: friendIDs[u.ID],
		})
	}
	return matches, nil
}

// Add creates the directed edge from the caller to the target. Adding twice
// is a no-op; an unknown target reports ErrNotFound.
func (s *FriendService) Add(ctx context.Context, principal Principal, friendID string) error {
	if s == nil || s.users == nil || s.friendships == nil {
		return fmt.Errorf("friend service not configured")
	}

	logger := s.loggerWith(ctx, "Add", "principal_id", principal.UserID, "friend_id", friendID)

	if _, err := s.users.GetUser(ctx, friendID); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to resolve friend", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	if err := s.friendships.EnsureFriendship(ctx, s.idGenerator(), principal.UserID, friendID, s.now()); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to add friend", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "friend added")
	return nil
}

// List returns the caller's outgoing roster. Online status is not wired to
// presence; every friend reports "offline".
func (s *FriendService) List(ctx context.Context, principal Principal) ([]Friend, error) {
	if s == nil || s.users == nil || s.friendships == nil {
		return nil, fmt.Errorf("friend service not configured")
	}

	logger := s.loggerWith(ctx, "List", "principal_id", principal.UserID)

	friendIDs, err := s.friendships.ListFriendIDs(ctx, principal.UserID)
	if err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to list friendships", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}

	friends := make([]Friend, 0, len(friendIDs))
	for id := range friendIDs {
		user, err := s.users.GetUser(ctx, id)
		if err != nil {
			if errors.Is(mapRepoError(err), ErrNotFound) {
				continue
			}
			return nil, mapRepoError(err)
		}
		friends = append(friends, Friend{ID: user.ID, Username: user.Username, Status: "offline"})
	}

	sort.Slice(friends, func(i, j int) bool {
		return strings.ToLower(friends[i].Username) < strings.ToLower(friends[j].Username)
	})
	return friends, nil
}
