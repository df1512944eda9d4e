package sqlite

import (
	"context"
	"time"

	"github.com/example/unispaces/internal/persistence"
)

// FriendshipRepository implements persistence.FriendshipRepository using
// SQLite. Edges are directed and deduplicated by the (from, to) unique index.
type FriendshipRepository struct {
	store *Store
}

// NewFriendshipRepository creates a new SQLite friendship repository.
func NewFriendshipRepository(store *Store) *FriendshipRepository {
	return &FriendshipRepository{store: store}
}

// EnsureFriendship inserts the directed edge when absent. Calling it twice
// with the same pair leaves exactly one row.
func (r *FriendshipRepository) EnsureFriendship(ctx context.Context, id, fromUserID, toUserID string, at time.Time) error {
	if fromUserID == "" || toUserID == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO friendships (id, from_user_id, to_user_id, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (from_user_id, to_user_id) DO NOTHING`,
		id, fromUserID, toUserID, formatTime(at),
	)
	return mapError(err)
}

// ListFriendIDs returns the set of user ids the user has an outgoing edge to.
func (r *FriendshipRepository) ListFriendIDs(ctx context.Context, fromUserID string) (map[string]bool, error) {
	rows, err := r.store.db.QueryContext(ctx,
		"SELECT to_user_id FROM friendships WHERE from_user_id = ?", fromUserID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, mapError(err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}
