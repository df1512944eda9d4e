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

type communityService interface {
	Create(ctx context.Context, principal application.Principal, input application.CommunityInput) (application.Community, error)
	Get(ctx context.Context, slug string) (application.CommunityDetail, error)
	List(ctx context.Context) ([]application.Community, error)
	Join(ctx context.Context, principal application.Principal, slug string) error
	Leave(ctx context.Context, principal application.Principal, slug string) error
	CreatePost(ctx context.Context, principal application.Principal, slug, content string) (application.CommunityPost, error)
	ListPosts(ctx context.Context, slug string) ([]application.CommunityPost, error)
}

// CommunityHandler serves the community hierarchy, memberships, and posts.
type CommunityHandler struct {
	service   communityService
	responder responder
}

func NewCommunityHandler(service communityService, logger *slog.Logger) *CommunityHandler {
	return &CommunityHandler{service: service, responder: newResponder(logger)}
}

func (h *CommunityHandler) slugFrom(r *http.Request) string {
	return strings.TrimSpace(mux.Vars(r)["slug"])
}

// List returns all communities.
func (h *CommunityHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	communities, err := h.service.List(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]communityDTO, 0, len(communities))
	for _, community := range communities {
		out = append(out, toCommunityDTO(community))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, communitiesResponse{Communities: out})
}

// Create persists a new community, optionally under a parent.
func (h *CommunityHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req communityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	community, err := h.service.Create(r.Context(), principal, application.CommunityInput{
		Name:        req.Name,
		Description: req.Description,
		ParentSlug:  req.ParentSlug,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, communityResponse{Community: toCommunityDTO(community)})
}

// Get returns one community with its children and member count.
func (h *CommunityHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	slug := h.slugFrom(r)
	if slug == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSlug)
		return
	}

	detail, err := h.service.Get(r.Context(), slug)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	children := make([]communityDTO, 0, len(detail.Children))
	for _, child := range detail.Children {
		children = append(children, toCommunityDTO(child))
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, communityDetailResponse{
		Community:   toCommunityDTO(detail.Community),
		Children:    children,
		MemberCount: detail.MemberCount,
	})
}

// Join adds the caller as a member.
func (h *CommunityHandler) Join(w http.ResponseWriter, r *http.Request) {
	h.membershipChange(w, r, func(ctx context.Context, principal application.Principal, slug string) error {
		return h.service.Join(ctx, principal, slug)
	})
}

// Leave removes the caller's membership.
func (h *CommunityHandler) Leave(w http.ResponseWriter, r *http.Request) {
	h.membershipChange(w, r, func(ctx context.Context, principal application.Principal, slug string) error {
		return h.service.Leave(ctx, principal, slug)
	})
}

func (h *CommunityHandler) membershipChange(w http.ResponseWriter, r *http.Request, change func(context.Context, application.Principal, string) error) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	slug := h.slugFrom(r)
	if slug == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSlug)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	if err := change(r.Context(), principal, slug); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, statusResponse{Status: "ok"})
}

// ListPosts returns the community's recent posts.
func (h *CommunityHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	slug := h.slugFrom(r)
	if slug == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSlug)
		return
	}

	posts, err := h.service.ListPosts(r.Context(), slug)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]postDTO, 0, len(posts))
	for _, post := range posts {
		out = append(out, toPostDTO(post))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, postsResponse{Posts: out})
}

// CreatePost adds content to the community on behalf of a member.
func (h *CommunityHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	slug := h.slugFrom(r)
	if slug == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSlug)
		return
	}

	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	post, err := h.service.CreatePost(r.Context(), principal, slug, req.Content)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, postResponse{Post: toPostDTO(post)})
}

type communityRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ParentSlug  string `json:"parent_slug"`
}

type communitiesResponse struct {
	Communities []communityDTO `json:"communities"`
}

type communityResponse struct {
	Community communityDTO `json:"community"`
}

type communityDetailResponse struct {
	Community   communityDTO   `json:"community"`
	Children    []communityDTO `json:"children"`
	MemberCount int            `json:"member_count"`
}

type communityDTO struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description *string `json:"description,omitempty"`
	Color       string  `json:"color"`
	ParentID    *string `json:"parent_id,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

func toCommunityDTO(community application.Community) communityDTO {
	return communityDTO{
		ID:          community.ID,
		Name:        community.Name,
		Slug:        community.Slug,
		Description: community.Description,
		Color:       community.Color,
		ParentID:    community.ParentID,
		CreatedAt:   community.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

type postRequest struct {
	Content string `json:"content"`
}

type postsResponse struct {
	Posts []postDTO `json:"posts"`
}

type postResponse struct {
	Post postDTO `json:"post"`
}

type postDTO struct {
	ID        string `json:"id"`
	AuthorID  string `json:"author_id"`
	Username  string `json:"username,omitempty"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

func toPostDTO(post application.CommunityPost) postDTO {
	return postDTO{
		ID:        post.ID,
		AuthorID:  post.AuthorID,
		Username:  post.Username,
		Content:   post.Content,
		CreatedAt: post.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
