package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/unispaces/internal/testfixtures"
)

func newAuthFixture(t *testing.T, now time.Time) (*AuthService, *sessionRepoStub) {
	t.Helper()

	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	creds := &credentialStoreStub{credentials: UserCredentials{
		User:         User{ID: "user-1", Username: "ada"},
		PasswordHash: hash,
	}}
	sessions := newSessionRepoStub()
	clock := testfixtures.NewClock(now)
	ids := testfixtures.NewIDGenerator("session")
	svc := NewAuthService(creds, sessions, []byte("test-secret"), ids.NextFunc(), clock.NowFunc(), time.Hour, nil)
	return svc, sessions
}

func TestAuthService_Authenticate(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("issues a token for valid credentials", func(t *testing.T) {
		t.Parallel()

		svc, sessions := newAuthFixture(t, now)

		result, err := svc.Authenticate(context.Background(), "ada", "correct horse")
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if result.Token == "" {
			t.Fatalf("expected a signed token")
		}
		if !result.ExpiresAt.Equal(now.Add(time.Hour)) {
			t.Fatalf("expected expiry one hour out, got %v", result.ExpiresAt)
		}
		if _, ok := sessions.sessions["session-1"]; !ok {
			t.Fatalf("expected session persisted")
		}

		principal, err := svc.ValidateSession(context.Background(), result.Token)
		if err != nil {
			t.Fatalf("ValidateSession failed: %v", err)
		}
		if principal.UserID != "user-1" {
			t.Fatalf("expected principal user-1, got %s", principal.UserID)
		}
	})

	t.Run("rejects a wrong password", func(t *testing.T) {
		t.Parallel()

		svc, _ := newAuthFixture(t, now)

		if _, err := svc.Authenticate(context.Background(), "ada", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("rejects an unknown username without leaking existence", func(t *testing.T) {
		t.Parallel()

		svc, _ := newAuthFixture(t, now)

		if _, err := svc.Authenticate(context.Background(), "ghost", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestAuthService_ValidateSession(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("rejects a stored session past its expiry", func(t *testing.T) {
		t.Parallel()

		svc, sessions := newAuthFixture(t, now)

		// Token stays signature-valid while the stored row has already
		// expired.
		token, err := svc.signToken(Session{ID: "session-x", UserID: "user-1", ExpiresAt: now.Add(time.Hour), CreatedAt: now})
		if err != nil {
			t.Fatalf("signToken failed: %v", err)
		}
		sessions.sessions["session-x"] = Session{ID: "session-x", UserID: "user-1", ExpiresAt: now.Add(-time.Minute), CreatedAt: now.Add(-2 * time.Hour)}

		if _, err := svc.ValidateSession(context.Background(), token); !errors.Is(err, ErrSessionExpired) {
			t.Fatalf("expected ErrSessionExpired, got %v", err)
		}
	})

	t.Run("rejects a revoked session", func(t *testing.T) {
		t.Parallel()

		svc, _ := newAuthFixture(t, now)

		result, err := svc.Authenticate(context.Background(), "ada", "correct horse")
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if err := svc.RevokeSession(context.Background(), result.Token); err != nil {
			t.Fatalf("RevokeSession failed: %v", err)
		}

		if _, err := svc.ValidateSession(context.Background(), result.Token); !errors.Is(err, ErrSessionRevoked) {
			t.Fatalf("expected ErrSessionRevoked, got %v", err)
		}
	})

	t.Run("rejects a token signed with another key", func(t *testing.T) {
		t.Parallel()

		svc, sessions := newAuthFixture(t, now)
		other := NewAuthService(nil, sessions, []byte("other-secret"), nil, func() time.Time { return now }, time.Hour, nil)

		token, err := other.signToken(Session{ID: "session-1", UserID: "user-1", ExpiresAt: now.Add(time.Hour), CreatedAt: now})
		if err != nil {
			t.Fatalf("signToken failed: %v", err)
		}

		if _, err := svc.ValidateSession(context.Background(), token); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("rejects garbage tokens", func(t *testing.T) {
		t.Parallel()

		svc, _ := newAuthFixture(t, now)

		if _, err := svc.ValidateSession(context.Background(), "not-a-token"); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestAuthService_PurgeExpiredSessions(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc, sessions := newAuthFixture(t, now)

	sessions.sessions["old"] = Session{ID: "old", UserID: "user-1", ExpiresAt: now.Add(-time.Minute)}
	sessions.sessions["live"] = Session{ID: "live", UserID: "user-1", ExpiresAt: now.Add(time.Minute)}

	if err := svc.PurgeExpiredSessions(context.Background()); err != nil {
		t.Fatalf("PurgeExpiredSessions failed: %v", err)
	}
	if _, ok := sessions.sessions["old"]; ok {
		t.Fatalf("expected expired session removed")
	}
	if _, ok := sessions.sessions["live"]; !ok {
		t.Fatalf("expected live session kept")
	}
}
