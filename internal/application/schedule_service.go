package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// StudyBlockRepository captures the persistence operations for calendar
// blocks.
type StudyBlockRepository interface {
	// CreateBlocks persists the batch atomically.
	CreateBlocks(ctx context.Context, blocks []StudyBlock) error
	ListBlocks(ctx context.Context, ownerID string) ([]StudyBlock, error)
	// DeleteBlock removes the block only when owned by ownerID.
	DeleteBlock(ctx context.Context, ownerID, blockID string) error
}

// ScheduleService validates and stores calendar blocks. Blocks are created in
// bulk by the planner, deleted individually by their owner, and never mutated
// after creation.
type ScheduleService struct {
	blocks      StudyBlockRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewScheduleService constructs a schedule service with the provided
// dependencies.
func NewScheduleService(blocks StudyBlockRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ScheduleService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ScheduleService{
		blocks:      blocks,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *ScheduleService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ScheduleService", operation, attrs...)
}

// CreateBlocks validates every spec and persists the batch all-or-nothing so
// a single malformed item cannot leave a partial schedule behind.
func (s *ScheduleService) CreateBlocks(ctx context.Context, ownerID string, specs []BlockSpec) (created []StudyBlock, err error) {
	if s == nil || s.blocks == nil {
		err = fmt.Errorf("study block repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateBlocks", "owner_id", ownerID, "block_count", len(specs))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create blocks", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "blocks created")
	}()

	now := s.now()
	blocks := make([]StudyBlock, 0, len(specs))
	for i, spec := range specs {
		if vErr := validateBlockSpec(i, spec); vErr.HasErrors() {
			err = vErr
			return
		}
		blocks = append(blocks, StudyBlock{
			ID:        s.idGenerator(),
			OwnerID:   ownerID,
			Title:     strings.TrimSpace(spec.Title),
			DayIndex:  spec.DayIndex,
			Date:      spec.Date,
			StartDate: spec.StartDate,
			EndDate:   spec.EndDate,
			StartHour: spec.StartHour,
			Duration:  spec.Duration,
			Type:      spec.Type,
			CreatedAt: now,
		})
	}

	if err = s.blocks.CreateBlocks(ctx, blocks); err != nil {
		err = mapRepoError(err)
		return
	}

	created = blocks
	return
}

// ListBlocks returns all blocks owned by the caller.
func (s *ScheduleService) ListBlocks(ctx context.Context, principal Principal) ([]StudyBlock, error) {
	if s == nil || s.blocks == nil {
		return nil, fmt.Errorf("study block repository not configured")
	}

	logger := s.loggerWith(ctx, "ListBlocks", "principal_id", principal.UserID)

	blocks, err := s.blocks.ListBlocks(ctx, principal.UserID)
	if err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to list blocks", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	return blocks, nil
}

// DeleteBlock removes a block owned by the caller. A block that does not
// exist or belongs to another user reports ErrNotFound and is left intact.
func (s *ScheduleService) DeleteBlock(ctx context.Context, principal Principal, blockID string) error {
	if s == nil || s.blocks == nil {
		return fmt.Errorf("study block repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteBlock", "principal_id", principal.UserID, "block_id", blockID)

	if err := s.blocks.DeleteBlock(ctx, principal.UserID, blockID); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to delete block", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "block deleted")
	return nil
}

// validateBlockSpec enforces the block invariants: a non-empty title, a known
// type, startHour within [0, 23.5], a positive duration, and exactly one
// placement mode. A recurring day index bounded by a start/end date range is
// the valid third mode; a specific date combined with a day index is not.
func validateBlockSpec(index int, spec BlockSpec) *ValidationError {
	vErr := &ValidationError{}
	field := func(name string) string {
		return fmt.Sprintf("blocks[%d].%s", index, name)
	}

	if strings.TrimSpace(spec.Title) == "" {
		vErr.add(field("title"), "title is required")
	}
	if spec.Type != BlockTypeFixed && spec.Type != BlockTypeAI {
		vErr.add(field("type"), "type must be fixed or ai")
	}
	if spec.StartHour < 0 || spec.StartHour > 23.5 {
		vErr.add(field("startHour"), "startHour must be between 0 and 23.5")
	}
	if spec.Duration <= 0 {
		vErr.add(field("duration"), "duration must be positive")
	}

	switch {
	case spec.Date == nil && spec.DayIndex == nil:
		vErr.add(field("placement"), "either date or dayIndex is required")
	case spec.Date != nil && spec.DayIndex != nil:
		vErr.add(field("placement"), "date and dayIndex are mutually exclusive")
	}
	if spec.DayIndex != nil && (*spec.DayIndex < 0 || *spec.DayIndex > 6) {
		vErr.add(field("dayIndex"), "dayIndex must be between 0 and 6")
	}
	if spec.Date != nil && (spec.StartDate != nil || spec.EndDate != nil) {
		vErr.add(field("placement"), "startDate and endDate only apply to recurring blocks")
	}

	return vErr
}
