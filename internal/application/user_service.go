package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// UserRepository captures the persistence operations for accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user User, passwordHash string) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
}

// PasswordHasher derives a storable hash from a plaintext password.
type PasswordHasher func(password string) (string, error)

// UserService manages account registration and profile updates.
type UserService struct {
	users        UserRepository
	hashPassword PasswordHasher
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewUserService constructs a user service with the provided dependencies.
func NewUserService(users UserRepository, hashPassword PasswordHasher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if hashPassword == nil {
		hashPassword = HashPassword
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{
		users:        users,
		hashPassword: hashPassword,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// Register validates input and creates a new account.
func (s *UserService) Register(ctx context.Context, params RegisterParams) (user User, err error) {
	if s == nil || s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	username := strings.TrimSpace(params.Username)
	email := strings.TrimSpace(strings.ToLower(params.Email))

	logger := s.loggerWith(ctx, "Register", "username", username)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "registration failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "user registered")
	}()

	vErr := &ValidationError{}
	if username == "" {
		vErr.add("username", "username is required")
	} else if len(username) > 30 {
		vErr.add("username", "username must be 30 characters or fewer")
	}
	if email == "" {
		vErr.add("email", "email is required")
	} else if !strings.Contains(email, "@") {
		vErr.add("email", "email is invalid")
	}
	if len(params.Password) < 8 {
		vErr.add("password", "password must be at least 8 characters")
	}
	if len(params.Bio) > 500 {
		vErr.add("bio", "bio must be 500 characters or fewer")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	hash, hashErr := s.hashPassword(params.Password)
	if hashErr != nil {
		err = hashErr
		return
	}

	now := s.now()
	user = User{
		ID:         s.idGenerator(),
		Username:   username,
		Email:      email,
		University: optionalString(params.University),
		Bio:        optionalString(params.Bio),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err = s.users.CreateUser(ctx, user, hash); err != nil {
		err = mapRepoError(err)
		user = User{}
		return
	}
	return
}

// GetProfile returns the caller's account.
func (s *UserService) GetProfile(ctx context.Context, principal Principal) (User, error) {
	if s == nil || s.users == nil {
		return User{}, fmt.Errorf("user repository not configured")
	}

	user, err := s.users.GetUser(ctx, principal.UserID)
	if err != nil {
		return User{}, mapRepoError(err)
	}
	return user, nil
}

// UpdateProfile replaces the caller's university and bio.
func (s *UserService) UpdateProfile(ctx context.Context, principal Principal, input ProfileInput) (user User, err error) {
	if s == nil || s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateProfile", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "profile update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "profile updated")
	}()

	if len(input.Bio) > 500 {
		vErr := &ValidationError{}
		vErr.add("bio", "bio must be 500 characters or fewer")
		err = vErr
		return
	}

	existing, getErr := s.users.GetUser(ctx, principal.UserID)
	if getErr != nil {
		err = mapRepoError(getErr)
		return
	}

	existing.University = optionalString(input.University)
	existing.Bio = optionalString(input.Bio)
	existing.UpdatedAt = s.now()

	if err = s.users.UpdateUser(ctx, existing); err != nil {
		err = mapRepoError(err)
		return
	}

	user = existing
	return
}

// Exists reports whether the user id resolves to an account.
func (s *UserService) Exists(ctx context.Context, id string) (bool, error) {
	if s == nil || s.users == nil {
		return false, fmt.Errorf("user repository not configured")
	}
	if _, err := s.users.GetUser(ctx, id); err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			return false, nil
		}
		return false, mapRepoError(err)
	}
	return true, nil
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
