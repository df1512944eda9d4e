package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/unispaces/internal/persistence"
)

// CommunityRepository implements persistence.CommunityRepository using SQLite.
type CommunityRepository struct {
	store *Store
}

// NewCommunityRepository creates a new SQLite community repository.
func NewCommunityRepository(store *Store) *CommunityRepository {
	return &CommunityRepository{store: store}
}

const communityColumns = "id, name, slug, description, color, parent_id, created_at"

// CreateCommunity inserts a new community.
func (r *CommunityRepository) CreateCommunity(ctx context.Context, community persistence.Community) error {
	if community.ID == "" || community.Slug == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO communities (id, name, slug, description, color, parent_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		community.ID,
		community.Name,
		community.Slug,
		nullableString(community.Description),
		community.Color,
		nullableString(community.ParentID),
		formatTime(community.CreatedAt),
	)
	return mapError(err)
}

// GetCommunityBySlug retrieves a community by its URL slug.
func (r *CommunityRepository) GetCommunityBySlug(ctx context.Context, slug string) (persistence.Community, error) {
	row := r.store.db.QueryRowContext(ctx,
		"SELECT "+communityColumns+" FROM communities WHERE slug = ?", slug)
	return scanCommunity(row)
}

// ListCommunities returns all communities ordered by name.
func (r *CommunityRepository) ListCommunities(ctx context.Context) ([]persistence.Community, error) {
	return r.queryCommunities(ctx,
		"SELECT "+communityColumns+" FROM communities ORDER BY name COLLATE NOCASE ASC")
}

// ListChildCommunities returns the direct children of a community.
func (r *CommunityRepository) ListChildCommunities(ctx context.Context, parentID string) ([]persistence.Community, error) {
	return r.queryCommunities(ctx,
		"SELECT "+communityColumns+" FROM communities WHERE parent_id = ? ORDER BY name COLLATE NOCASE ASC",
		parentID)
}

func (r *CommunityRepository) queryCommunities(ctx context.Context, query string, args ...any) ([]persistence.Community, error) {
	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var communities []persistence.Community
	for rows.Next() {
		community, err := scanCommunity(rows)
		if err != nil {
			return nil, err
		}
		communities = append(communities, community)
	}
	return communities, rows.Err()
}

func scanCommunity(row rowScanner) (persistence.Community, error) {
	var community persistence.Community
	var description, parentID sql.NullString
	var createdAt string

	err := row.Scan(
		&community.ID,
		&community.Name,
		&community.Slug,
		&description,
		&community.Color,
		&parentID,
		&createdAt,
	)
	if err != nil {
		return persistence.Community{}, mapError(err)
	}

	community.Description = stringPtr(description)
	community.ParentID = stringPtr(parentID)
	if community.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Community{}, err
	}
	return community, nil
}

// CountMembers returns the number of members in a community.
func (r *CommunityRepository) CountMembers(ctx context.Context, communityID string) (int, error) {
	var count int
	err := r.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM community_memberships WHERE community_id = ?", communityID,
	).Scan(&count)
	if err != nil {
		return 0, mapError(err)
	}
	return count, nil
}

// EnsureMembership inserts the membership when absent; joining twice is a
// no-op.
func (r *CommunityRepository) EnsureMembership(ctx context.Context, id, communityID, userID string, at time.Time) error {
	if communityID == "" || userID == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO community_memberships (id, community_id, user_id, joined_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (community_id, user_id) DO NOTHING`,
		id, communityID, userID, formatTime(at),
	)
	return mapError(err)
}

// DeleteMembership removes the membership, reporting ErrNotFound when absent.
func (r *CommunityRepository) DeleteMembership(ctx context.Context, communityID, userID string) error {
	result, err := r.store.db.ExecContext(ctx,
		"DELETE FROM community_memberships WHERE community_id = ? AND user_id = ?",
		communityID, userID,
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

// IsMember reports whether the user belongs to the community.
func (r *CommunityRepository) IsMember(ctx context.Context, communityID, userID string) (bool, error) {
	var count int
	err := r.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM community_memberships WHERE community_id = ? AND user_id = ?",
		communityID, userID,
	).Scan(&count)
	if err != nil {
		return false, mapError(err)
	}
	return count > 0, nil
}

// CreatePost inserts a new community post.
func (r *CommunityRepository) CreatePost(ctx context.Context, post persistence.CommunityPost) error {
	if post.ID == "" || post.CommunityID == "" || post.AuthorID == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO community_posts (id, community_id, author_id, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		post.ID, post.CommunityID, post.AuthorID, post.Content, formatTime(post.CreatedAt),
	)
	return mapError(err)
}

// ListPosts returns the most recent posts in a community, newest first.
func (r *CommunityRepository) ListPosts(ctx context.Context, communityID string, limit int) ([]persistence.CommunityPost, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT p.id, p.community_id, p.author_id, u.username, p.content, p.created_at
		FROM community_posts p
		JOIN users u ON u.id = p.author_id
		WHERE p.community_id = ?
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT ?`,
		communityID, limit,
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var posts []persistence.CommunityPost
	for rows.Next() {
		var post persistence.CommunityPost
		var createdAt string
		if err := rows.Scan(&post.ID, &post.CommunityID, &post.AuthorID, &post.Username, &post.Content, &createdAt); err != nil {
			return nil, mapError(err)
		}
		if post.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}
