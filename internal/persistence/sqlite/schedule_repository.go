package sqlite

import (
	"context"
	"database/sql"

	"github.com/example/unispaces/internal/persistence"
)

// StudyBlockRepository implements persistence.StudyBlockRepository using
// SQLite.
type StudyBlockRepository struct {
	store *Store
}

// NewStudyBlockRepository creates a new SQLite study block repository.
func NewStudyBlockRepository(store *Store) *StudyBlockRepository {
	return &StudyBlockRepository{store: store}
}

// CreateBlocks persists the batch inside a single transaction so a malformed
// block leaves nothing behind.
func (r *StudyBlockRepository) CreateBlocks(ctx context.Context, blocks []persistence.StudyBlock) error {
	if len(blocks) == 0 {
		return nil
	}

	return r.store.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, block := range blocks {
			if block.ID == "" || block.OwnerID == "" {
				return persistence.ErrConstraintViolation
			}
			for _, date := range []*string{block.Date, block.StartDate, block.EndDate} {
				if err := validateDate(date); err != nil {
					return err
				}
			}

			_, err := tx.ExecContext(ctx, `
				INSERT INTO study_blocks
					(id, owner_id, title, day_index, date, start_date, end_date, start_hour, duration, block_type, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				block.ID,
				block.OwnerID,
				block.Title,
				nullableInt(block.DayIndex),
				nullableString(block.Date),
				nullableString(block.StartDate),
				nullableString(block.EndDate),
				block.StartHour,
				block.Duration,
				block.BlockType,
				formatTime(block.CreatedAt),
			)
			if err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

// ListBlocks returns all blocks owned by the user, oldest first.
func (r *StudyBlockRepository) ListBlocks(ctx context.Context, ownerID string) ([]persistence.StudyBlock, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT id, owner_id, title, day_index, date, start_date, end_date, start_hour, duration, block_type, created_at
		FROM study_blocks
		WHERE owner_id = ?
		ORDER BY created_at ASC, id ASC`,
		ownerID,
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var blocks []persistence.StudyBlock
	for rows.Next() {
		var block persistence.StudyBlock
		var dayIndex sql.NullInt64
		var date, startDate, endDate sql.NullString
		var createdAt string

		err := rows.Scan(
			&block.ID,
			&block.OwnerID,
			&block.Title,
			&dayIndex,
			&date,
			&startDate,
			&endDate,
			&block.StartHour,
			&block.Duration,
			&block.BlockType,
			&createdAt,
		)
		if err != nil {
			return nil, mapError(err)
		}

		block.DayIndex = intPtr(dayIndex)
		block.Date = stringPtr(date)
		block.StartDate = stringPtr(startDate)
		block.EndDate = stringPtr(endDate)
		if block.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	return blocks, rows.Err()
}

// DeleteBlock removes the block only when it is owned by ownerID. A block
// owned by someone else reports ErrNotFound and is left intact.
func (r *StudyBlockRepository) DeleteBlock(ctx context.Context, ownerID, blockID string) error {
	result, err := r.store.db.ExecContext(ctx,
		"DELETE FROM study_blocks WHERE id = ? AND owner_id = ?",
		blockID, ownerID,
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

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}
