package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/example/unispaces/internal/persistence"
)

// UserRepository implements persistence.UserRepository using SQLite.
type UserRepository struct {
	store *Store
}

// NewUserRepository creates a new SQLite user repository.
func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{store: store}
}

const userColumns = "id, username, email, password_hash, university, bio, created_at, updated_at"

// CreateUser inserts a new user.
func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" || user.Username == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, university, bio, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		nullableString(user.University),
		nullableString(user.Bio),
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
	)
	return mapError(err)
}

// UpdateUser updates an existing user's mutable attributes.
func (r *UserRepository) UpdateUser(ctx context.Context, user persistence.User) error {
	result, err := r.store.db.ExecContext(ctx, `
		UPDATE users
		SET email = ?, password_hash = ?, university = ?, bio = ?, updated_at = ?
		WHERE id = ?`,
		user.Email,
		user.PasswordHash,
		nullableString(user.University),
		nullableString(user.Bio),
		formatTime(user.UpdatedAt),
		user.ID,
	)
	if err != nil {
		return mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// GetUser retrieves a user by id.
func (r *UserRepository) GetUser(ctx context.Context, id string) (persistence.User, error) {
	row := r.store.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUser(row)
}

// GetUserByUsername retrieves a user by username, case-insensitively.
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (persistence.User, error) {
	row := r.store.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE username = ? COLLATE NOCASE", username)
	return scanUser(row)
}

// GetUserByEmail retrieves a user by email address, case-insensitively.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	row := r.store.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ? COLLATE NOCASE", email)
	return scanUser(row)
}

// SearchUsers returns users whose username contains the query, excluding the
// caller, ordered by username, capped at limit.
func (r *UserRepository) SearchUsers(ctx context.Context, query, excludeID string, limit int) ([]persistence.User, error) {
	pattern := "%" + escapeLike(query) + "%"
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE username LIKE ? ESCAPE '\' AND id != ?
		ORDER BY username COLLATE NOCASE ASC
		LIMIT ?`,
		pattern, excludeID, limit,
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var users []persistence.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (persistence.User, error) {
	var user persistence.User
	var university, bio sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&university,
		&bio,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.User{}, mapError(err)
	}

	user.University = stringPtr(university)
	user.Bio = stringPtr(bio)
	if user.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.User{}, err
	}
	if user.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.User{}, err
	}
	return user, nil
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
