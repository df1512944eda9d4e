package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CredentialStore exposes the lookups required to verify a login.
type CredentialStore interface {
	GetCredentialsByUsername(ctx context.Context, username string) (UserCredentials, error)
}

// SessionRepository captures the persistence interactions for issued
// sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, id string) (Session, error)
	RevokeSession(ctx context.Context, id string, revokedAt time.Time) error
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// sessionClaims is the JWT payload carried by issued tokens. The token only
// references the stored session; expiry and revocation are checked against
// the database on every validation.
type sessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// AuthService coordinates login, session validation, and logout. Tokens are
// HS256-signed JWTs embedding the session id.
type AuthService struct {
	credentials    CredentialStore
	sessions       SessionRepository
	verifyPassword func(hashedPassword, password string) error
	signingKey     []byte
	idGenerator    func() string
	now            func() time.Time
	sessionTTL     time.Duration
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(credentials CredentialStore, sessions SessionRepository, signingKey []byte, idGenerator func() string, now func() time.Time, sessionTTL time.Duration, logger *slog.Logger) *AuthService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &AuthService{
		credentials:    credentials,
		sessions:       sessions,
		verifyPassword: VerifyPassword,
		signingKey:     signingKey,
		idGenerator:    idGenerator,
		now:            now,
		sessionTTL:     sessionTTL,
		logger:         defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Authenticate validates credentials and issues a signed session token.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (result AuthenticateResult, err error) {
	if s == nil || s.credentials == nil || s.sessions == nil {
		err = fmt.Errorf("auth service not configured")
		return
	}

	username = strings.TrimSpace(username)

	logger := s.loggerWith(ctx, "Authenticate", "username", username)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "authentication failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", result.User.ID).InfoContext(ctx, "authentication succeeded")
	}()

	if username == "" || password == "" {
		err = ErrInvalidCredentials
		return
	}

	creds, lookupErr := s.credentials.GetCredentialsByUsername(ctx, username)
	if lookupErr != nil {
		if errors.Is(mapRepoError(lookupErr), ErrNotFound) {
			err = ErrInvalidCredentials
			return
		}
		err = lookupErr
		return
	}

	if verifyErr := s.verifyPassword(creds.PasswordHash, password); verifyErr != nil {
		err = ErrInvalidCredentials
		return
	}

	now := s.now()
	session := Session{
		ID:        s.idGenerator(),
		UserID:    creds.User.ID,
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}
	if err = s.sessions.CreateSession(ctx, session); err != nil {
		err = mapRepoError(err)
		return
	}

	token, signErr := s.signToken(session)
	if signErr != nil {
		err = signErr
		return
	}

	result = AuthenticateResult{User: creds.User, Token: token, ExpiresAt: session.ExpiresAt}
	return
}

// ValidateSession verifies the token signature and checks the stored session
// for expiry and revocation, returning the principal it belongs to.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (Principal, error) {
	if s == nil || s.sessions == nil {
		return Principal{}, fmt.Errorf("auth service not configured")
	}

	claims, err := s.parseToken(token)
	if err != nil {
		return Principal{}, ErrUnauthorized
	}

	session, err := s.sessions.GetSession(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			return Principal{}, ErrUnauthorized
		}
		return Principal{}, err
	}

	now := s.now()
	if session.RevokedAt != nil {
		return Principal{}, ErrSessionRevoked
	}
	if !session.ExpiresAt.After(now) {
		return Principal{}, ErrSessionExpired
	}

	return Principal{UserID: session.UserID}, nil
}

// RevokeSession marks the token's session as logged out.
func (s *AuthService) RevokeSession(ctx context.Context, token string) error {
	if s == nil || s.sessions == nil {
		return fmt.Errorf("auth service not configured")
	}

	logger := s.loggerWith(ctx, "RevokeSession")

	claims, err := s.parseToken(token)
	if err != nil {
		return ErrUnauthorized
	}

	if err := s.sessions.RevokeSession(ctx, claims.SessionID, s.now()); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to revoke session", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "session revoked")
	return nil
}

// PurgeExpiredSessions removes sessions past their expiry.
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) error {
	if s == nil || s.sessions == nil {
		return fmt.Errorf("auth service not configured")
	}
	return s.sessions.DeleteExpiredSessions(ctx, s.now())
}

func (s *AuthService) signToken(session Session) (string, error) {
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.UserID,
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
		},
		SessionID: session.ID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
}

func (s *AuthService) parseToken(token string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.SessionID == "" {
		return nil, fmt.Errorf("invalid session token")
	}
	return claims, nil
}
