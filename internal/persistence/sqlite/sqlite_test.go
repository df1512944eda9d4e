package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/unispaces/internal/persistence"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return store
}

func seedUser(t *testing.T, store *Store, id, username string) persistence.User {
	t.Helper()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	user := persistence.User{
		ID:           id,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := NewUserRepository(store).CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return user
}

func TestMigrateIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
}

func TestUserRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("round-trips accounts", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		repo := NewUserRepository(store)
		seedUser(t, store, "user-1", "ada")

		stored, err := repo.GetUser(ctx, "user-1")
		if err != nil {
			t.Fatalf("GetUser failed: %v", err)
		}
		if stored.Username != "ada" || stored.Email != "ada@example.com" {
			t.Fatalf("unexpected user %#v", stored)
		}

		byName, err := repo.GetUserByUsername(ctx, "ada")
		if err != nil || byName.ID != "user-1" {
			t.Fatalf("GetUserByUsername failed: %v %#v", err, byName)
		}
	})

	t.Run("rejects duplicate usernames", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		repo := NewUserRepository(store)
		seedUser(t, store, "user-1", "ada")

		dup := persistence.User{ID: "user-2", Username: "ada", Email: "other@example.com", PasswordHash: "hash",
			CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
		if err := repo.CreateUser(ctx, dup); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("search matches substrings and excludes the caller", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		repo := NewUserRepository(store)
		seedUser(t, store, "user-1", "ada")
		seedUser(t, store, "user-2", "adam")
		seedUser(t, store, "user-3", "grace")

		matches, err := repo.SearchUsers(ctx, "ada", "user-1", 10)
		if err != nil {
			t.Fatalf("SearchUsers failed: %v", err)
		}
		if len(matches) != 1 || matches[0].ID != "user-2" {
			t.Fatalf("expected only adam, got %#v", matches)
		}
	})

	t.Run("search treats wildcards literally", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		repo := NewUserRepository(store)
		seedUser(t, store, "user-1", "percent%sign")
		seedUser(t, store, "user-2", "ordinary")

		matches, err := repo.SearchUsers(ctx, "%", "", 10)
		if err != nil {
			t.Fatalf("SearchUsers failed: %v", err)
		}
		if len(matches) != 1 || matches[0].ID != "user-1" {
			t.Fatalf("expected the literal match only, got %#v", matches)
		}
	})

	t.Run("missing users report not found", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		if _, err := NewUserRepository(store).GetUser(ctx, "ghost"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestRoomRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("get-or-create returns the same room by name", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		repo := NewRoomRepository(store)

		first, err := repo.GetOrCreateRoom(ctx, "room-1", "Global Study Deck")
		if err != nil {
			t.Fatalf("GetOrCreateRoom failed: %v", err)
		}
		second, err := repo.GetOrCreateRoom(ctx, "room-2", "Global Study Deck")
		if err != nil {
			t.Fatalf("second GetOrCreateRoom failed: %v", err)
		}
		if first.ID != second.ID {
			t.Fatalf("expected a single room, got %s and %s", first.ID, second.ID)
		}
	})

	t.Run("touch upserts the presence row", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		repo := NewRoomRepository(store)
		seedUser(t, store, "user-1", "ada")

		room, err := repo.GetOrCreateRoom(ctx, "room-1", "Global Study Deck")
		if err != nil {
			t.Fatalf("GetOrCreateRoom failed: %v", err)
		}

		if err := repo.TouchParticipant(ctx, "p-1", room.ID, "user-1", now); err != nil {
			t.Fatalf("first TouchParticipant failed: %v", err)
		}
		later := now.Add(30 * time.Second)
		if err := repo.TouchParticipant(ctx, "p-2", room.ID, "user-1", later); err != nil {
			t.Fatalf("second TouchParticipant failed: %v", err)
		}

		participants, err := repo.ListActiveParticipants(ctx, room.ID, now)
		if err != nil {
			t.Fatalf("ListActiveParticipants failed: %v", err)
		}
		if len(participants) != 1 {
			t.Fatalf("expected one row after upsert, got %d", len(participants))
		}
		if !participants[0].LastActive.Equal(later) {
			t.Fatalf("expected last_active refreshed to %v, got %v", later, participants[0].LastActive)
		}
		if participants[0].Username != "ada" {
			t.Fatalf("expected username joined, got %q", participants[0].Username)
		}
	})

	t.Run("stale participants fall outside the since bound", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		repo := NewRoomRepository(store)
		seedUser(t, store, "user-1", "ada")
		seedUser(t, store, "user-2", "grace")

		room, err := repo.GetOrCreateRoom(ctx, "room-1", "Global Study Deck")
		if err != nil {
			t.Fatalf("GetOrCreateRoom failed: %v", err)
		}
		if err := repo.TouchParticipant(ctx, "p-1", room.ID, "user-1", now.Add(-10*time.Minute)); err != nil {
			t.Fatalf("TouchParticipant failed: %v", err)
		}
		if err := repo.TouchParticipant(ctx, "p-2", room.ID, "user-2", now); err != nil {
			t.Fatalf("TouchParticipant failed: %v", err)
		}

		participants, err := repo.ListActiveParticipants(ctx, room.ID, now.Add(-5*time.Minute))
		if err != nil {
			t.Fatalf("ListActiveParticipants failed: %v", err)
		}
		if len(participants) != 1 || participants[0].UserID != "user-2" {
			t.Fatalf("expected only the fresh participant, got %#v", participants)
		}
	})
}

func TestMessageRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	store := newTestStore(t)
	repo := NewMessageRepository(store)
	seedUser(t, store, "user-1", "ada")
	room, err := NewRoomRepository(store).GetOrCreateRoom(ctx, "room-1", "Global Study Deck")
	if err != nil {
		t.Fatalf("GetOrCreateRoom failed: %v", err)
	}

	var lastID int64
	for i := 0; i < 3; i++ {
		message, err := repo.CreateMessage(ctx, room.ID, "user-1", "hello", now)
		if err != nil {
			t.Fatalf("CreateMessage failed: %v", err)
		}
		if message.ID <= lastID {
			t.Fatalf("expected monotonically increasing ids, got %d after %d", message.ID, lastID)
		}
		lastID = message.ID
	}

	messages, err := repo.ListMessagesSince(ctx, room.ID, 1, 50)
	if err != nil {
		t.Fatalf("ListMessagesSince failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages past the watermark, got %d", len(messages))
	}
	if messages[0].ID >= messages[1].ID {
		t.Fatalf("expected ascending order, got %#v", messages)
	}
	if messages[0].Username != "ada" {
		t.Fatalf("expected username joined, got %q", messages[0].Username)
	}
}

func TestStudyBlockRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	day := 2
	validBlock := func(id, owner string) persistence.StudyBlock {
		return persistence.StudyBlock{
			ID:        id,
			OwnerID:   owner,
			Title:     "Revision",
			DayIndex:  &day,
			StartHour: 14,
			Duration:  1.5,
			BlockType: "ai",
			CreatedAt: now,
		}
	}

	t.Run("creates batches atomically", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		repo := NewStudyBlockRepository(store)
		seedUser(t, store, "user-1", "ada")

		bad := validBlock("block-2", "user-1")
		bad.BlockType = "flexible"

		err := repo.CreateBlocks(ctx, []persistence.StudyBlock{validBlock("block-1", "user-1"), bad})
		if !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Fatalf("expected ErrConstraintViolation, got %v", err)
		}

		blocks, err := repo.ListBlocks(ctx, "user-1")
		if err != nil {
			t.Fatalf("ListBlocks failed: %v", err)
		}
		if len(blocks) != 0 {
			t.Fatalf("expected rollback to leave zero blocks, got %d", len(blocks))
		}
	})

	t.Run("rejects malformed dates", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		repo := NewStudyBlockRepository(store)
		seedUser(t, store, "user-1", "ada")

		date := "13/03/2026"
		bad := validBlock("block-1", "user-1")
		bad.DayIndex = nil
		bad.Date = &date

		if err := repo.CreateBlocks(ctx, []persistence.StudyBlock{bad}); !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Fatalf("expected ErrConstraintViolation, got %v", err)
		}
	})

	t.Run("delete enforces ownership", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		repo := NewStudyBlockRepository(store)
		seedUser(t, store, "user-1", "ada")
		seedUser(t, store, "user-2", "grace")

		if err := repo.CreateBlocks(ctx, []persistence.StudyBlock{validBlock("block-1", "user-1")}); err != nil {
			t.Fatalf("CreateBlocks failed: %v", err)
		}

		if err := repo.DeleteBlock(ctx, "user-2", "block-1"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
		}
		if err := repo.DeleteBlock(ctx, "user-1", "block-1"); err != nil {
			t.Fatalf("DeleteBlock failed: %v", err)
		}
		blocks, err := repo.ListBlocks(ctx, "user-1")
		if err != nil {
			t.Fatalf("ListBlocks failed: %v", err)
		}
		if len(blocks) != 0 {
			t.Fatalf("expected block removed, got %d", len(blocks))
		}
	})
}

func TestFriendshipRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	store := newTestStore(t)
	repo := NewFriendshipRepository(store)
	seedUser(t, store, "user-1", "ada")
	seedUser(t, store, "user-2", "grace")

	if err := repo.EnsureFriendship(ctx, "f-1", "user-1", "user-2", now); err != nil {
		t.Fatalf("EnsureFriendship failed: %v", err)
	}
	if err := repo.EnsureFriendship(ctx, "f-2", "user-1", "user-2", now); err != nil {
		t.Fatalf("duplicate EnsureFriendship failed: %v", err)
	}

	ids, err := repo.ListFriendIDs(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListFriendIDs failed: %v", err)
	}
	if len(ids) != 1 || !ids["user-2"] {
		t.Fatalf("expected a single deduplicated edge, got %#v", ids)
	}

	// The edge is directed; the reverse roster stays empty.
	reverse, err := repo.ListFriendIDs(ctx, "user-2")
	if err != nil {
		t.Fatalf("ListFriendIDs failed: %v", err)
	}
	if len(reverse) != 0 {
		t.Fatalf("expected no reverse edge, got %#v", reverse)
	}
}

func TestCommunityRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	store := newTestStore(t)
	repo := NewCommunityRepository(store)
	seedUser(t, store, "user-1", "ada")

	parent := persistence.Community{ID: "c-1", Name: "Physics", Slug: "physics", Color: "hsl(210, 84%, 56%)", CreatedAt: now}
	if err := repo.CreateCommunity(ctx, parent); err != nil {
		t.Fatalf("CreateCommunity failed: %v", err)
	}
	child := persistence.Community{ID: "c-2", Name: "Optics", Slug: "optics", Color: "hsl(12, 92%, 62%)", ParentID: &parent.ID, CreatedAt: now}
	if err := repo.CreateCommunity(ctx, child); err != nil {
		t.Fatalf("CreateCommunity child failed: %v", err)
	}

	children, err := repo.ListChildCommunities(ctx, "c-1")
	if err != nil {
		t.Fatalf("ListChildCommunities failed: %v", err)
	}
	if len(children) != 1 || children[0].Slug != "optics" {
		t.Fatalf("expected one child, got %#v", children)
	}

	if err := repo.EnsureMembership(ctx, "m-1", "c-1", "user-1", now); err != nil {
		t.Fatalf("EnsureMembership failed: %v", err)
	}
	if err := repo.EnsureMembership(ctx, "m-2", "c-1", "user-1", now); err != nil {
		t.Fatalf("duplicate EnsureMembership failed: %v", err)
	}
	count, err := repo.CountMembers(ctx, "c-1")
	if err != nil || count != 1 {
		t.Fatalf("expected one member, got %d (%v)", count, err)
	}

	post := persistence.CommunityPost{ID: "p-1", CommunityID: "c-1", AuthorID: "user-1", Content: "hello", CreatedAt: now}
	if err := repo.CreatePost(ctx, post); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	posts, err := repo.ListPosts(ctx, "c-1", 50)
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(posts) != 1 || posts[0].Username != "ada" {
		t.Fatalf("expected one post with author username, got %#v", posts)
	}
}

func TestLibraryRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	store := newTestStore(t)
	repo := NewLibraryRepository(store)

	if err := repo.CreateSubject(ctx, persistence.Subject{ID: "s-1", Name: "Mathematics", Slug: "mathematics"}); err != nil {
		t.Fatalf("CreateSubject failed: %v", err)
	}
	book := persistence.Textbook{
		ID: "tb-1", Title: "Open Calculus", Author: "Strang", SubjectID: "s-1",
		OpenAccessURL: "https://example.org/calculus", Provider: "OpenStax", CreatedAt: now,
	}
	if err := repo.CreateTextbook(ctx, book); err != nil {
		t.Fatalf("CreateTextbook failed: %v", err)
	}

	t.Run("matches by title", func(t *testing.T) {
		hits, err := repo.SearchTextbooks(ctx, "calculus", 25)
		if err != nil {
			t.Fatalf("SearchTextbooks failed: %v", err)
		}
		if len(hits) != 1 || hits[0].SubjectName != "Mathematics" {
			t.Fatalf("expected one hit with subject name, got %#v", hits)
		}
	})

	t.Run("matches by subject name", func(t *testing.T) {
		hits, err := repo.SearchTextbooks(ctx, "mathem", 25)
		if err != nil {
			t.Fatalf("SearchTextbooks failed: %v", err)
		}
		if len(hits) != 1 {
			t.Fatalf("expected one hit, got %d", len(hits))
		}
	})

	t.Run("misses return empty", func(t *testing.T) {
		hits, err := repo.SearchTextbooks(ctx, "astronomy", 25)
		if err != nil {
			t.Fatalf("SearchTextbooks failed: %v", err)
		}
		if len(hits) != 0 {
			t.Fatalf("expected no hits, got %d", len(hits))
		}
	})
}
