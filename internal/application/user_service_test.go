package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestUserService_Register(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	fastHash := func(password string) (string, error) { return "hash:" + password, nil }

	t.Run("creates an account with normalized fields", func(t *testing.T) {
		t.Parallel()

		repo := newUserRepoStub()
		svc := NewUserService(repo, fastHash, func() string { return "user-1" }, func() time.Time { return now }, nil)

		user, err := svc.Register(context.Background(), RegisterParams{
			Username:   "  ada ",
			Email:      "Ada@Example.COM",
			Password:   "longenough",
			University: "Cavendish",
		})
		if err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		if user.Username != "ada" {
			t.Fatalf("expected trimmed username, got %q", user.Username)
		}
		if user.Email != "ada@example.com" {
			t.Fatalf("expected lowercased email, got %q", user.Email)
		}
		if user.University == nil || *user.University != "Cavendish" {
			t.Fatalf("expected university set, got %#v", user.University)
		}
		if user.Bio != nil {
			t.Fatalf("expected empty bio stored as nil, got %#v", user.Bio)
		}
		if repo.hashes["user-1"] != "hash:longenough" {
			t.Fatalf("expected hashed password stored, got %q", repo.hashes["user-1"])
		}
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		t.Parallel()

		cases := []struct {
			name   string
			params RegisterParams
			field  string
		}{
			{"missing username", RegisterParams{Email: "a@b.c", Password: "longenough"}, "username"},
			{"long username", RegisterParams{Username: strings.Repeat("a", 31), Email: "a@b.c", Password: "longenough"}, "username"},
			{"missing email", RegisterParams{Username: "ada", Password: "longenough"}, "email"},
			{"bad email", RegisterParams{Username: "ada", Email: "not-an-email", Password: "longenough"}, "email"},
			{"short password", RegisterParams{Username: "ada", Email: "a@b.c", Password: "short"}, "password"},
			{"long bio", RegisterParams{Username: "ada", Email: "a@b.c", Password: "longenough", Bio: strings.Repeat("x", 501)}, "bio"},
		}

		for _, tc := range cases {
			tc := tc
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()

				svc := NewUserService(newUserRepoStub(), fastHash, nil, nil, nil)

				_, err := svc.Register(context.Background(), tc.params)
				var vErr *ValidationError
				if !errors.As(err, &vErr) {
					t.Fatalf("expected validation error, got %v", err)
				}
				if _, ok := vErr.FieldErrors[tc.field]; !ok {
					t.Fatalf("expected %s field error, got %#v", tc.field, vErr.FieldErrors)
				}
			})
		}
	})

	t.Run("surfaces duplicate accounts", func(t *testing.T) {
		t.Parallel()

		repo := newUserRepoStub()
		svc := NewUserService(repo, fastHash, func() string { return "user-1" }, nil, nil)

		params := RegisterParams{Username: "ada", Email: "ada@example.com", Password: "longenough"}
		if _, err := svc.Register(context.Background(), params); err != nil {
			t.Fatalf("first Register failed: %v", err)
		}
		if _, err := svc.Register(context.Background(), params); !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})
}

func TestUserService_UpdateProfile(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("replaces university and bio", func(t *testing.T) {
		t.Parallel()

		repo := newUserRepoStub()
		repo.users["user-1"] = User{ID: "user-1", Username: "ada", Email: "ada@example.com"}
		svc := NewUserService(repo, nil, nil, func() time.Time { return now }, nil)

		user, err := svc.UpdateProfile(context.Background(), Principal{UserID: "user-1"}, ProfileInput{University: "Cavendish", Bio: "studying"})
		if err != nil {
			t.Fatalf("UpdateProfile failed: %v", err)
		}
		if user.University == nil || *user.University != "Cavendish" {
			t.Fatalf("expected university updated, got %#v", user.University)
		}
		if !user.UpdatedAt.Equal(now) {
			t.Fatalf("expected updated_at %v, got %v", now, user.UpdatedAt)
		}
	})

	t.Run("rejects an oversized bio", func(t *testing.T) {
		t.Parallel()

		svc := NewUserService(newUserRepoStub(), nil, nil, nil, nil)

		_, err := svc.UpdateProfile(context.Background(), Principal{UserID: "user-1"}, ProfileInput{Bio: strings.Repeat("x", 501)})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("reports not found for an unknown principal", func(t *testing.T) {
		t.Parallel()

		svc := NewUserService(newUserRepoStub(), nil, nil, nil, nil)

		_, err := svc.UpdateProfile(context.Background(), Principal{UserID: "ghost"}, ProfileInput{})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}
