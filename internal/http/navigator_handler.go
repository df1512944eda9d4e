package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/example/unispaces/internal/application"
)

type plannerService interface {
	Plan(ctx context.Context, principal application.Principal, command string) (application.PlanResult, error)
}

type scheduleService interface {
	ListBlocks(ctx context.Context, principal application.Principal) ([]application.StudyBlock, error)
	DeleteBlock(ctx context.Context, principal application.Principal, blockID string) error
}

// NavigatorHandler serves the schedule view, the natural-language planner
// command, and block deletion.
type NavigatorHandler struct {
	planner   plannerService
	schedule  scheduleService
	responder responder
}

func NewNavigatorHandler(planner plannerService, schedule scheduleService, logger *slog.Logger) *NavigatorHandler {
	return &NavigatorHandler{planner: planner, schedule: schedule, responder: newResponder(logger)}
}

// List returns every block owned by the caller.
func (h *NavigatorHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.schedule == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	blocks, err := h.schedule.ListBlocks(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, scheduleResponse{Schedule: toBlockDTOs(blocks)})
}

// Command executes one planner command and returns the created blocks with
// the confirmation reply.
func (h *NavigatorHandler) Command(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.planner == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	result, err := h.planner.Plan(r.Context(), principal, req.Command)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, commandResponse{
		Schedule: toBlockDTOs(result.Blocks),
		Reply:    result.Reply,
	})
}

// DeleteBlock removes one block owned by the caller. The route uses POST
// because the browser client sends form-style requests.
func (h *NavigatorHandler) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.schedule == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	blockID := strings.TrimSpace(mux.Vars(r)["block_id"])
	if blockID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBlockID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	if err := h.schedule.DeleteBlock(r.Context(), principal, blockID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, successResponse{Success: true})
}

type commandRequest struct {
	Command string `json:"command"`
}

type commandResponse struct {
	Schedule []blockDTO `json:"schedule"`
	Reply    string     `json:"reply"`
}

type scheduleResponse struct {
	Schedule []blockDTO `json:"schedule"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type blockDTO struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	DayIndex  *int    `json:"dayIndex"`
	Date      *string `json:"date,omitempty"`
	StartDate *string `json:"startDate,omitempty"`
	EndDate   *string `json:"endDate,omitempty"`
	StartHour float64 `json:"startHour"`
	Duration  float64 `json:"duration"`
	Type      string  `json:"type"`
	CreatedAt string  `json:"created_at"`
}

func toBlockDTOs(blocks []application.StudyBlock) []blockDTO {
	out := make([]blockDTO, 0, len(blocks))
	for _, block := range blocks {
		out = append(out, blockDTO{
			ID:        block.ID,
			Title:     block.Title,
			DayIndex:  block.DayIndex,
			Date:      block.Date,
			StartDate: block.StartDate,
			EndDate:   block.EndDate,
			StartHour: block.StartHour,
			Duration:  block.Duration,
			Type:      block.Type,
			CreatedAt: block.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return out
}
