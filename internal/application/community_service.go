package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"regexp"
	"strings"
	"time"
)

// CommunityRepository captures the persistence operations for communities,
// memberships, and posts.
type CommunityRepository interface {
	CreateCommunity(ctx context.Context, community Community) error
	GetCommunityBySlug(ctx context.Context, slug string) (Community, error)
	ListCommunities(ctx context.Context) ([]Community, error)
	ListChildCommunities(ctx context.Context, parentID string) ([]Community, error)
	CountMembers(ctx context.Context, communityID string) (int, error)
	EnsureMembership(ctx context.Context, id, communityID, userID string, at time.Time) error
	DeleteMembership(ctx context.Context, communityID, userID string) error
	IsMember(ctx context.Context, communityID, userID string) (bool, error)
	CreatePost(ctx context.Context, post CommunityPost) error
	ListPosts(ctx context.Context, communityID string, limit int) ([]CommunityPost, error)
}

// planetPalette holds the HSL colors assigned to community planets in the
// space visualization.
var planetPalette = []string{
	"hsl(12, 92%, 62%)",
	"hsl(28, 92%, 64%)",
	"hsl(332, 88%, 70%)",
	"hsl(210, 84%, 56%)",
	"hsl(190, 82%, 66%)",
	"hsl(162, 74%, 58%)",
	"hsl(132, 67%, 60%)",
	"hsl(48, 92%, 66%)",
	"hsl(282, 72%, 68%)",
	"hsl(352, 78%, 62%)",
}

const postListLimit = 50

// CommunityService manages hierarchical interest groups, their memberships,
// and posts.
type CommunityService struct {
	communities CommunityRepository
	pickColor   func() string
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewCommunityService constructs a community service with the provided
// dependencies.
func NewCommunityService(communities CommunityRepository, pickColor func() string, idGenerator func() string, now func() time.Time, logger *slog.Logger) *CommunityService {
	if pickColor == nil {
		pickColor = func() string { return planetPalette[rand.Intn(len(planetPalette))] }
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &CommunityService{
		communities: communities,
		pickColor:   pickColor,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *CommunityService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CommunityService", operation, attrs...)
}

// Create validates input and persists a new community, optionally as a child
// of an existing one. The creator automatically becomes a member.
func (s *CommunityService) Create(ctx context.Context, principal Principal, input CommunityInput) (community Community, err error) {
	if s == nil || s.communities == nil {
		err = fmt.Errorf("community repository not configured")
		return
	}

	name := strings.TrimSpace(input.Name)

	logger := s.loggerWith(ctx, "Create", "principal_id", principal.UserID, "name", name)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create community", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("community_id", community.ID).InfoContext(ctx, "community created")
	}()

	vErr := &ValidationError{}
	if name == "" {
		vErr.add("name", "name is required")
	} else if len(name) > 100 {
		vErr.add("name", "name must be 100 characters or fewer")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var parentID *string
	if parentSlug := strings.TrimSpace(input.ParentSlug); parentSlug != "" {
		parent, parentErr := s.communities.GetCommunityBySlug(ctx, parentSlug)
		if parentErr != nil {
			if errors.Is(mapRepoError(parentErr), ErrNotFound) {
				vErr.add("parent", "parent community does not exist")
				err = vErr
				return
			}
			err = parentErr
			return
		}
		parentID = &parent.ID
	}

	community = Community{
		ID:          s.idGenerator(),
		Name:        name,
		Slug:        Slugify(name),
		Description: optionalString(input.Description),
		Color:       s.pickColor(),
		ParentID:    parentID,
		CreatedAt:   s.now(),
	}

	if err = s.communities.CreateCommunity(ctx, community); err != nil {
		err = mapRepoError(err)
		community = Community{}
		return
	}

	if err = s.communities.EnsureMembership(ctx, s.idGenerator(), community.ID, principal.UserID, s.now()); err != nil {
		err = mapRepoError(err)
		return
	}
	return
}

// Get returns a community with its direct children and member count.
func (s *CommunityService) Get(ctx context.Context, slug string) (CommunityDetail, error) {
	if s == nil || s.communities == nil {
		return CommunityDetail{}, fmt.Errorf("community repository not configured")
	}

	community, err := s.communities.GetCommunityBySlug(ctx, slug)
	if err != nil {
		return CommunityDetail{}, mapRepoError(err)
	}

	children, err := s.communities.ListChildCommunities(ctx, community.ID)
	if err != nil {
		return CommunityDetail{}, mapRepoError(err)
	}

	count, err := s.communities.CountMembers(ctx, community.ID)
	if err != nil {
		return CommunityDetail{}, mapRepoError(err)
	}

	return CommunityDetail{Community: community, Children: children, MemberCount: count}, nil
}

// List returns all communities.
func (s *CommunityService) List(ctx context.Context) ([]Community, error) {
	if s == nil || s.communities == nil {
		return nil, fmt.Errorf("community repository not configured")
	}
	communities, err := s.communities.ListCommunities(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return communities, nil
}

// Join adds the caller to the community; joining twice is a no-op.
func (s *CommunityService) Join(ctx context.Context, principal Principal, slug string) error {
	if s == nil || s.communities == nil {
		return fmt.Errorf("community repository not configured")
	}

	logger := s.loggerWith(ctx, "Join", "principal_id", principal.UserID, "slug", slug)

	community, err := s.communities.GetCommunityBySlug(ctx, slug)
	if err != nil {
		return mapRepoError(err)
	}

	if err := s.communities.EnsureMembership(ctx, s.idGenerator(), community.ID, principal.UserID, s.now()); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to join community", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "community joined")
	return nil
}

// Leave removes the caller's membership.
func (s *CommunityService) Leave(ctx context.Context, principal Principal, slug string) error {
	if s == nil || s.communities == nil {
		return fmt.Errorf("community repository not configured")
	}

	community, err := s.communities.GetCommunityBySlug(ctx, slug)
	if err != nil {
		return mapRepoError(err)
	}

	if err := s.communities.DeleteMembership(ctx, community.ID, principal.UserID); err != nil {
		return mapRepoError(err)
	}
	return nil
}

// CreatePost adds content to a community. Only members may post.
func (s *CommunityService) CreatePost(ctx context.Context, principal Principal, slug, content string) (post CommunityPost, err error) {
	if s == nil || s.communities == nil {
		err = fmt.Errorf("community repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreatePost", "principal_id", principal.UserID, "slug", slug)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create post", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("post_id", post.ID).InfoContext(ctx, "post created")
	}()

	if strings.TrimSpace(content) == "" {
		vErr := &ValidationError{}
		vErr.add("content", "content is required")
		err = vErr
		return
	}

	community, getErr := s.communities.GetCommunityBySlug(ctx, slug)
	if getErr != nil {
		err = mapRepoError(getErr)
		return
	}

	member, memberErr := s.communities.IsMember(ctx, community.ID, principal.UserID)
	if memberErr != nil {
		err = mapRepoError(memberErr)
		return
	}
	if !member {
		err = ErrUnauthorized
		return
	}

	post = CommunityPost{
		ID:          s.idGenerator(),
		CommunityID: community.ID,
		AuthorID:    principal.UserID,
		Content:     content,
		CreatedAt:   s.now(),
	}
	if err = s.communities.CreatePost(ctx, post); err != nil {
		err = mapRepoError(err)
		post = CommunityPost{}
		return
	}
	return
}

// ListPosts returns the community's most recent posts.
func (s *CommunityService) ListPosts(ctx context.Context, slug string) ([]CommunityPost, error) {
	if s == nil || s.communities == nil {
		return nil, fmt.Errorf("community repository not configured")
	}

	community, err := s.communities.GetCommunityBySlug(ctx, slug)
	if err != nil {
		return nil, mapRepoError(err)
	}

	posts, err := s.communities.ListPosts(ctx, community.ID, postListLimit)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return posts, nil
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL-friendly slug from a display name.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugInvalid.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
