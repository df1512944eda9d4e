package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/example/unispaces/internal/application"
)

type friendService interface {
	Search(ctx context.Context, principal application.Principal, query string) ([]application.UserMatch, error)
	Add(ctx context.Context, principal application.Principal, friendID string) error
	List(ctx context.Context, principal application.Principal) ([]application.Friend, error)
}

// FriendHandler serves user search and the friend roster.
type FriendHandler struct {
	service   friendService
	responder responder
}

func NewFriendHandler(service friendService, logger *slog.Logger) *FriendHandler {
	return &FriendHandler{service: service, responder: newResponder(logger)}
}

// Search returns users matching the query, annotated with friendship state.
func (h *FriendHandler) Search(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	matches, err := h.service.Search(r.Context(), principal, r.URL.Query().Get("q"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	users := make([]userMatchDTO, 0, len(matches))
	for _, match := range matches {
		users = append(users, userMatchDTO{
			ID:       match.ID,
			Username: match.Username,
			IsFriend: match.IsFriend,
		})
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, searchUsersResponse{Users: users})
}

// Add records the directed edge from the caller to the target user.
func (h *FriendHandler) Add(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req addFriendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	if err := h.service.Add(r.Context(), principal, req.UserID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, statusResponse{Status: "ok"})
}

// List returns the caller's roster sorted by username.
func (h *FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	friends, err := h.service.List(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]friendDTO, 0, len(friends))
	for _, friend := range friends {
		out = append(out, friendDTO{ID: friend.ID, Username: friend.Username, Status: friend.Status})
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, friendsResponse{Friends: out})
}

type addFriendRequest struct {
	UserID string `json:"user_id"`
}

type searchUsersResponse struct {
	Users []userMatchDTO `json:"users"`
}

type userMatchDTO struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsFriend bool   `json:"is_friend"`
}

type friendsResponse struct {
	Friends []friendDTO `json:"friends"`
}

type friendDTO struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Status   string `json:"status"`
}
