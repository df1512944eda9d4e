package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// TextGenerator captures the single call made to the external language model.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// BlockCreator captures the batch persistence performed after a successful
// parse. Satisfied by ScheduleService.
type BlockCreator interface {
	CreateBlocks(ctx context.Context, ownerID string, specs []BlockSpec) ([]StudyBlock, error)
}

// PlannerReply is the fixed confirmation returned after a successful command.
const PlannerReply = "Trajectory calculated. Schedule updated."

// PlannerService translates a free-text command into schedule blocks by
// delegating temporal reasoning to the external model. It does no scheduling
// logic of its own: it is a strict, fail-fast adapter between free text and
// the structured block format.
type PlannerService struct {
	generator   TextGenerator
	blocks      BlockCreator
	callTimeout time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

// NewPlannerService constructs a planner service. A non-positive timeout
// falls back to 30 seconds; the external call is always bounded.
func NewPlannerService(generator TextGenerator, blocks BlockCreator, callTimeout time.Duration, now func() time.Time, logger *slog.Logger) *PlannerService {
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}
	if now == nil {
		now = time.Now
	}
	return &PlannerService{
		generator:   generator,
		blocks:      blocks,
		callTimeout: callTimeout,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *PlannerService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "PlannerService", operation, attrs...)
}

// Plan executes one command: a single external call, strict parsing, and one
// all-or-nothing batch write. Parsing happens before persistence, so a failed
// response leaves zero blocks behind. The command is never retried.
func (s *PlannerService) Plan(ctx context.Context, principal Principal, command string) (result PlanResult, err error) {
	if s == nil || s.generator == nil || s.blocks == nil {
		err = fmt.Errorf("planner dependencies not configured")
		return
	}

	logger := s.loggerWith(ctx, "Plan", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "planner command failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("block_count", len(result.Blocks)).InfoContext(ctx, "planner command succeeded")
	}()

	if strings.TrimSpace(command) == "" {
		vErr := &ValidationError{}
		vErr.add("command", "command is required")
		err = vErr
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	raw, genErr := s.generator.GenerateContent(callCtx, s.buildPrompt(command))
	if genErr != nil {
		err = fmt.Errorf("%w: %v", ErrExternalService, genErr)
		return
	}

	specs, parseErr := parsePlannerResponse(raw)
	if parseErr != nil {
		err = parseErr
		return
	}

	blocks, createErr := s.blocks.CreateBlocks(ctx, principal.UserID, specs)
	if createErr != nil {
		err = createErr
		return
	}

	result = PlanResult{Blocks: blocks, Reply: PlannerReply}
	return
}

// buildPrompt embeds the current date, the raw command, and the strict output
// contract the response must satisfy.
func (s *PlannerService) buildPrompt(command string) string {
	currentDate := s.now().Format("2006-01-02")
	return fmt.Sprintf(`You are an AI study planner. Analyze the following student command and extract schedule blocks.
Current Date: %s
Command: %q

Return ONLY a JSON array of objects. Each object must have:
- title: string (short title)
- dayIndex: integer (0=Monday, 1=Tuesday, 2=Wednesday, 3=Thursday, 4=Friday, 5=Saturday, 6=Sunday) - REQUIRED if date is null
- date: string (YYYY-MM-DD) - OPTIONAL. Use if a specific date is mentioned.
- startDate: string (YYYY-MM-DD) - OPTIONAL. Start date for recurring events.
- endDate: string (YYYY-MM-DD) - OPTIONAL. End date for recurring events.
- startHour: number (0-23.5) - e.g. 9:30 AM = 9.5, 2:45 PM = 14.75
- duration: number (hours)
- type: "fixed" (for exams/deadlines) or "ai" (for study sessions)

If the command implies a deadline (e.g. "Exam Friday"), create a "fixed" block for the event itself,
and then create multiple "ai" study blocks leading up to it.
Spread study blocks out logically.`, currentDate, command)
}

// plannerItem mirrors the contract the model is asked to produce. Pointer
// fields let missing keys be told apart from zero values.
type plannerItem struct {
	Title     *string  `json:"title"`
	DayIndex  *int     `json:"dayIndex"`
	Date      *string  `json:"date"`
	StartDate *string  `json:"startDate"`
	EndDate   *string  `json:"endDate"`
	StartHour *float64 `json:"startHour"`
	Duration  *float64 `json:"duration"`
	Type      *string  `json:"type"`
}

// parsePlannerResponse strips any markdown fencing and decodes the response
// against the contract, rejecting (not coercing) malformed items.
func parsePlannerResponse(raw string) ([]BlockSpec, error) {
	cleaned := stripCodeFences(raw)

	var items []plannerItem
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlannerResponse, err)
	}

	specs := make([]BlockSpec, 0, len(items))
	for i, item := range items {
		if item.Title == nil {
			return nil, fmt.Errorf("%w: item %d missing title", ErrPlannerResponse, i)
		}
		if item.StartHour == nil {
			return nil, fmt.Errorf("%w: item %d missing startHour", ErrPlannerResponse, i)
		}
		if item.Duration == nil {
			return nil, fmt.Errorf("%w: item %d missing duration", ErrPlannerResponse, i)
		}
		if item.Type == nil {
			return nil, fmt.Errorf("%w: item %d missing type", ErrPlannerResponse, i)
		}

		specs = append(specs, BlockSpec{
			Title:     *item.Title,
			DayIndex:  item.DayIndex,
			Date:      item.Date,
			StartDate: item.StartDate,
			EndDate:   item.EndDate,
			StartHour: *item.StartHour,
			Duration:  *item.Duration,
			Type:      *item.Type,
		})
	}
	return specs, nil
}

// stripCodeFences removes a leading triple-backtick marker (optionally tagged
// json) and a trailing one, so a fenced response parses identically to the
// bare array.
func stripCodeFences(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```json") {
		text = text[len("```json"):]
	} else if strings.HasPrefix(text, "```") {
		text = text[len("```"):]
	}
	if strings.HasSuffix(strings.TrimSpace(text), "```") {
		text = strings.TrimSpace(text)
		text = text[:len(text)-len("```")]
	}
	return strings.TrimSpace(text)
}
