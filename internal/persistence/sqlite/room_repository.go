package sqlite

import (
	"context"
	"errors"
	"time"

	"github.com/example/unispaces/internal/persistence"
)

// RoomRepository implements persistence.RoomRepository using SQLite.
type RoomRepository struct {
	store *Store
}

// NewRoomRepository creates a new SQLite room repository.
func NewRoomRepository(store *Store) *RoomRepository {
	return &RoomRepository{store: store}
}

// GetOrCreateRoom returns the room with the given name, creating it lazily on
// first access.
func (r *RoomRepository) GetOrCreateRoom(ctx context.Context, id, name string) (persistence.StudyRoom, error) {
	room, err := r.getRoomByName(ctx, name)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, persistence.ErrNotFound) {
		return persistence.StudyRoom{}, err
	}

	created := persistence.StudyRoom{ID: id, Name: name, CreatedAt: time.Now().UTC()}
	_, err = r.store.db.ExecContext(ctx,
		"INSERT INTO study_rooms (id, name, created_at) VALUES (?, ?, ?)",
		created.ID, created.Name, formatTime(created.CreatedAt),
	)
	if err != nil {
		// A concurrent insert may have won the race; fall back to the read.
		if errors.Is(mapError(err), persistence.ErrDuplicate) {
			return r.getRoomByName(ctx, name)
		}
		return persistence.StudyRoom{}, mapError(err)
	}
	return created, nil
}

// GetRoom retrieves a room by id.
func (r *RoomRepository) GetRoom(ctx context.Context, id string) (persistence.StudyRoom, error) {
	row := r.store.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM study_rooms WHERE id = ?", id)
	return scanRoom(row)
}

func (r *RoomRepository) getRoomByName(ctx context.Context, name string) (persistence.StudyRoom, error) {
	row := r.store.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM study_rooms WHERE name = ?", name)
	return scanRoom(row)
}

func scanRoom(row rowScanner) (persistence.StudyRoom, error) {
	var room persistence.StudyRoom
	var createdAt string
	if err := row.Scan(&room.ID, &room.Name, &createdAt); err != nil {
		return persistence.StudyRoom{}, mapError(err)
	}
	var err error
	if room.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.StudyRoom{}, err
	}
	return room, nil
}

// TouchParticipant upserts the (room, user) presence row. Re-joining updates
// last_active rather than duplicating the row; joined_at is preserved.
func (r *RoomRepository) TouchParticipant(ctx context.Context, id, roomID, userID string, at time.Time) error {
	if roomID == "" || userID == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO room_participants (id, room_id, user_id, joined_at, last_active, is_active)
		VALUES (?, ?, ?, ?, ?, 1)
		ON CONFLICT (room_id, user_id)
		DO UPDATE SET last_active = excluded.last_active, is_active = 1`,
		id, roomID, userID, formatTime(at), formatTime(at),
	)
	return mapError(err)
}

// ListActiveParticipants returns active participants last seen at or after the
// since bound, joined with usernames, ordered by join time.
func (r *RoomRepository) ListActiveParticipants(ctx context.Context, roomID string, since time.Time) ([]persistence.Participant, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT p.id, p.room_id, p.user_id, u.username, p.joined_at, p.last_active, p.is_active
		FROM room_participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.room_id = ? AND p.is_active = 1 AND p.last_active >= ?
		ORDER BY p.joined_at ASC, p.id ASC`,
		roomID, formatTime(since),
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var participants []persistence.Participant
	for rows.Next() {
		var p persistence.Participant
		var joinedAt, lastActive string
		var isActive int
		if err := rows.Scan(&p.ID, &p.RoomID, &p.UserID, &p.Username, &joinedAt, &lastActive, &isActive); err != nil {
			return nil, mapError(err)
		}
		if p.JoinedAt, err = parseTime("joined_at", joinedAt); err != nil {
			return nil, err
		}
		if p.LastActive, err = parseTime("last_active", lastActive); err != nil {
			return nil, err
		}
		p.IsActive = isActive != 0
		participants = append(participants, p)
	}
	return participants, rows.Err()
}
