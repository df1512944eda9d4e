package sqlite

import (
	"context"
	"time"

	"github.com/example/unispaces/internal/persistence"
)

// MessageRepository implements persistence.MessageRepository using SQLite.
// Messages are append-only; the AUTOINCREMENT id provides the strictly
// increasing ordering clients poll against.
type MessageRepository struct {
	store *Store
}

// NewMessageRepository creates a new SQLite message repository.
func NewMessageRepository(store *Store) *MessageRepository {
	return &MessageRepository{store: store}
}

// CreateMessage appends a message and returns it with its assigned id.
func (r *MessageRepository) CreateMessage(ctx context.Context, roomID, userID, content string, at time.Time) (persistence.Message, error) {
	if roomID == "" || userID == "" || content == "" {
		return persistence.Message{}, persistence.ErrConstraintViolation
	}

	result, err := r.store.db.ExecContext(ctx, `
		INSERT INTO room_messages (room_id, user_id, content, created_at)
		VALUES (?, ?, ?, ?)`,
		roomID, userID, content, formatTime(at),
	)
	if err != nil {
		return persistence.Message{}, mapError(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return persistence.Message{}, err
	}

	return persistence.Message{
		ID:        id,
		RoomID:    roomID,
		UserID:    userID,
		Content:   content,
		CreatedAt: at.UTC(),
	}, nil
}

// ListMessagesSince returns messages with id > sinceID in ascending order,
// capped at limit (oldest first within the cap).
func (r *MessageRepository) ListMessagesSince(ctx context.Context, roomID string, sinceID int64, limit int) ([]persistence.Message, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT m.id, m.room_id, m.user_id, u.username, m.content, m.created_at
		FROM room_messages m
		JOIN users u ON u.id = m.user_id
		WHERE m.room_id = ? AND m.id > ?
		ORDER BY m.id ASC
		LIMIT ?`,
		roomID, sinceID, limit,
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var messages []persistence.Message
	for rows.Next() {
		var m persistence.Message
		var createdAt string
		if err := rows.Scan(&m.ID, &m.RoomID, &m.UserID, &m.Username, &m.Content, &createdAt); err != nil {
			return nil, mapError(err)
		}
		if m.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
