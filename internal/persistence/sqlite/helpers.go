package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/example/unispaces/internal/persistence"
)

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(column, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", column, err)
	}
	return t, nil
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTimePtr(column string, value sql.NullString) (*time.Time, error) {
	if !value.Valid {
		return nil, nil
	}
	t, err := parseTime(column, value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	clone := value.String
	return &clone
}

func intPtr(value sql.NullInt64) *int {
	if !value.Valid {
		return nil
	}
	clone := int(value.Int64)
	return &clone
}

// validateDate guards date columns stored as text. A malformed value is a
// constraint violation, matching what a typed DATE column would report.
func validateDate(value *string) error {
	if value == nil {
		return nil
	}
	if _, err := time.Parse("2006-01-02", *value); err != nil {
		return persistence.ErrConstraintViolation
	}
	return nil
}
