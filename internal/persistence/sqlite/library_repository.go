package sqlite

import (
	"context"
	"database/sql"

	"github.com/example/unispaces/internal/persistence"
)

// LibraryRepository implements persistence.LibraryRepository using SQLite.
type LibraryRepository struct {
	store *Store
}

// NewLibraryRepository creates a new SQLite library repository.
func NewLibraryRepository(store *Store) *LibraryRepository {
	return &LibraryRepository{store: store}
}

// CreateSubject inserts a curated subject.
func (r *LibraryRepository) CreateSubject(ctx context.Context, subject persistence.Subject) error {
	if subject.ID == "" || subject.Slug == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.store.db.ExecContext(ctx,
		"INSERT INTO subjects (id, name, slug) VALUES (?, ?, ?)",
		subject.ID, subject.Name, subject.Slug,
	)
	return mapError(err)
}

// ListSubjects returns all subjects ordered by name.
func (r *LibraryRepository) ListSubjects(ctx context.Context) ([]persistence.Subject, error) {
	rows, err := r.store.db.QueryContext(ctx,
		"SELECT id, name, slug FROM subjects ORDER BY name COLLATE NOCASE ASC")
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var subjects []persistence.Subject
	for rows.Next() {
		var subject persistence.Subject
		if err := rows.Scan(&subject.ID, &subject.Name, &subject.Slug); err != nil {
			return nil, mapError(err)
		}
		subjects = append(subjects, subject)
	}
	return subjects, rows.Err()
}

// CreateTextbook inserts a curated textbook entry.
func (r *LibraryRepository) CreateTextbook(ctx context.Context, textbook persistence.Textbook) error {
	if textbook.ID == "" || textbook.SubjectID == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO textbooks (id, title, author, subject_id, description, cover_image_url, open_access_url, isbn, provider, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		textbook.ID,
		textbook.Title,
		textbook.Author,
		textbook.SubjectID,
		nullableString(textbook.Description),
		nullableString(textbook.CoverImageURL),
		textbook.OpenAccessURL,
		nullableString(textbook.ISBN),
		textbook.Provider,
		formatTime(textbook.CreatedAt),
	)
	return mapError(err)
}

// SearchTextbooks matches title, author, or subject name case-insensitively.
func (r *LibraryRepository) SearchTextbooks(ctx context.Context, query string, limit int) ([]persistence.Textbook, error) {
	pattern := "%" + escapeLike(query) + "%"
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT t.id, t.title, t.author, t.subject_id, s.name, t.description, t.cover_image_url, t.open_access_url, t.isbn, t.provider, t.created_at
		FROM textbooks t
		JOIN subjects s ON s.id = t.subject_id
		WHERE t.title LIKE ? ESCAPE '\'
		   OR t.author LIKE ? ESCAPE '\'
		   OR s.name LIKE ? ESCAPE '\'
		ORDER BY t.title COLLATE NOCASE ASC
		LIMIT ?`,
		pattern, pattern, pattern, limit,
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var textbooks []persistence.Textbook
	for rows.Next() {
		var t persistence.Textbook
		var description, coverURL, isbn sql.NullString
		var createdAt string

		err := rows.Scan(
			&t.ID,
			&t.Title,
			&t.Author,
			&t.SubjectID,
			&t.SubjectName,
			&description,
			&coverURL,
			&t.OpenAccessURL,
			&isbn,
			&t.Provider,
			&createdAt,
		)
		if err != nil {
			return nil, mapError(err)
		}

		t.Description = stringPtr(description)
		t.CoverImageURL = stringPtr(coverURL)
		t.ISBN = stringPtr(isbn)
		if t.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		textbooks = append(textbooks, t)
	}
	return textbooks, rows.Err()
}
