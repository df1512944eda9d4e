package persistence

import (
	"context"
	"time"
)

// UserRepository exposes account storage operations.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	// SearchUsers returns users whose username contains the query
	// (case-insensitive), excluding excludeID, capped at limit.
	SearchUsers(ctx context.Context, query, excludeID string, limit int) ([]User, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, id string) (Session, error)
	RevokeSession(ctx context.Context, id string, revokedAt time.Time) error
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// RoomRepository stores study rooms and their participant presence rows.
type RoomRepository interface {
	// GetOrCreateRoom returns the room with the given name, creating it when
	// absent.
	GetOrCreateRoom(ctx context.Context, id string, name string) (StudyRoom, error)
	GetRoom(ctx context.Context, id string) (StudyRoom, error)
	// TouchParticipant upserts the (room, user) presence row, setting
	// last_active and is_active. The id is only used when inserting.
	TouchParticipant(ctx context.Context, id, roomID, userID string, at time.Time) error
	// ListActiveParticipants returns active participants whose last_active is
	// at or after the since bound, with usernames populated.
	ListActiveParticipants(ctx context.Context, roomID string, since time.Time) ([]Participant, error)
}

// MessageRepository stores the append-only chat log for study rooms.
type MessageRepository interface {
	CreateMessage(ctx context.Context, roomID, userID, content string, at time.Time) (Message, error)
	// ListMessagesSince returns messages with id > sinceID in ascending id
	// order, capped at limit.
	ListMessagesSince(ctx context.Context, roomID string, sinceID int64, limit int) ([]Message, error)
}

// StudyBlockRepository stores calendar blocks owned by users.
type StudyBlockRepository interface {
	// CreateBlocks persists the batch atomically; either every block is
	// stored or none are.
	CreateBlocks(ctx context.Context, blocks []StudyBlock) error
	ListBlocks(ctx context.Context, ownerID string) ([]StudyBlock, error)
	// DeleteBlock removes the block only when it exists and is owned by
	// ownerID, returning ErrNotFound otherwise.
	DeleteBlock(ctx context.Context, ownerID, blockID string) error
}

// FriendshipRepository stores directed friendship edges.
type FriendshipRepository interface {
	// EnsureFriendship inserts the edge when absent. The id is only used when
	// inserting.
	EnsureFriendship(ctx context.Context, id, fromUserID, toUserID string, at time.Time) error
	// ListFriendIDs returns the set of user ids the given user has an edge to.
	ListFriendIDs(ctx context.Context, fromUserID string) (map[string]bool, error)
}

// CommunityRepository stores communities, memberships, and posts.
type CommunityRepository interface {
	CreateCommunity(ctx context.Context, community Community) error
	GetCommunityBySlug(ctx context.Context, slug string) (Community, error)
	ListCommunities(ctx context.Context) ([]Community, error)
	ListChildCommunities(ctx context.Context, parentID string) ([]Community, error)
	CountMembers(ctx context.Context, communityID string) (int, error)
	// EnsureMembership inserts the membership when absent.
	EnsureMembership(ctx context.Context, id, communityID, userID string, at time.Time) error
	DeleteMembership(ctx context.Context, communityID, userID string) error
	IsMember(ctx context.Context, communityID, userID string) (bool, error)
	CreatePost(ctx context.Context, post CommunityPost) error
	ListPosts(ctx context.Context, communityID string, limit int) ([]CommunityPost, error)
}

// LibraryRepository stores the curated textbook catalog.
type LibraryRepository interface {
	CreateSubject(ctx context.Context, subject Subject) error
	ListSubjects(ctx context.Context) ([]Subject, error)
	CreateTextbook(ctx context.Context, textbook Textbook) error
	// SearchTextbooks matches title, author, or subject name
	// (case-insensitive substring), capped at limit.
	SearchTextbooks(ctx context.Context, query string, limit int) ([]Textbook, error)
}
