package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/unispaces/internal/application"
)

type presenceService interface {
	EnterDefaultRoom(ctx context.Context, principal application.Principal) (application.Room, error)
	Touch(ctx context.Context, roomID, userID string) error
	Roster(ctx context.Context, roomID, callerID string) ([]application.CrewMember, error)
}

type chatService interface {
	Post(ctx context.Context, principal application.Principal, roomID, content string) (application.ChatMessage, error)
	Poll(ctx context.Context, roomID string, sinceID int64) ([]application.ChatMessage, error)
}

// StudyHandler serves the combined poll endpoint and chat sends for study
// rooms.
type StudyHandler struct {
	presence  presenceService
	chat      chatService
	responder responder
}

func NewStudyHandler(presence presenceService, chat chatService, logger *slog.Logger) *StudyHandler {
	return &StudyHandler{presence: presence, chat: chat, responder: newResponder(logger)}
}

// Data handles the periodic poll: it refreshes the caller's presence, then
// returns the current crew and any messages past the caller's watermark in a
// single response.
func (h *StudyHandler) Data(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.presence == nil || h.chat == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	roomID := strings.TrimSpace(r.URL.Query().Get("room_id"))
	if roomID == "" {
		room, err := h.presence.EnterDefaultRoom(r.Context(), principal)
		if err != nil {
			h.responder.handleServiceError(r.Context(), w, err)
			return
		}
		roomID = room.ID
	} else if err := h.presence.Touch(r.Context(), roomID, principal.UserID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	var sinceID int64
	if raw := strings.TrimSpace(r.URL.Query().Get("last_msg_id")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
			return
		}
		sinceID = parsed
	}

	crew, err := h.presence.Roster(r.Context(), roomID, principal.UserID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	messages, err := h.chat.Poll(r.Context(), roomID, sinceID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, studyDataResponse{
		RoomID:   roomID,
		Crew:     toCrewDTOs(crew),
		Messages: toMessageDTOs(messages),
	})
}

// Send appends a chat message to the room log.
func (h *StudyHandler) Send(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.chat == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	if _, err := h.chat.Post(r.Context(), principal, req.RoomID, req.Content); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, statusResponse{Status: "ok"})
}

type sendMessageRequest struct {
	RoomID  string `json:"room_id"`
	Content string `json:"content"`
}

type studyDataResponse struct {
	RoomID   string       `json:"room_id"`
	Crew     []crewDTO    `json:"crew"`
	Messages []messageDTO `json:"messages"`
}

type crewDTO struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Status   string `json:"status"`
	IsMe     bool   `json:"is_me"`
}

func toCrewDTOs(crew []application.CrewMember) []crewDTO {
	out := make([]crewDTO, 0, len(crew))
	for _, member := range crew {
		out = append(out, crewDTO{
			UserID:   member.UserID,
			Username: member.Username,
			Status:   member.Status,
			IsMe:     member.IsMe,
		})
	}
	return out
}

type messageDTO struct {
	ID        int64  `json:"id"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

func toMessageDTOs(messages []application.ChatMessage) []messageDTO {
	out := make([]messageDTO, 0, len(messages))
	for _, message := range messages {
		out = append(out, messageDTO{
			ID:        message.ID,
			UserID:    message.UserID,
			Username:  message.Username,
			Content:   message.Content,
			CreatedAt: message.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return out
}
