package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/example/unispaces/internal/application"
	"github.com/example/unispaces/internal/config"
	"github.com/example/unispaces/internal/genai"
	httptransport "github.com/example/unispaces/internal/http"
	"github.com/example/unispaces/internal/openlibrary"
	"github.com/example/unispaces/internal/persistence"
	"github.com/example/unispaces/internal/persistence/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A missing .env file is fine; real deployments set the environment
	// directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	storage, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := func() string { return uuid.NewString() }
	now := time.Now

	userRepo := sqlite.NewUserRepository(storage)
	sessionRepo := sqlite.NewSessionRepository(storage)
	roomRepo := sqlite.NewRoomRepository(storage)
	messageRepo := sqlite.NewMessageRepository(storage)
	blockRepo := sqlite.NewStudyBlockRepository(storage)
	friendshipRepo := sqlite.NewFriendshipRepository(storage)
	communityRepo := sqlite.NewCommunityRepository(storage)
	libraryRepo := sqlite.NewLibraryRepository(storage)

	if err := libraryRepo.SeedCatalog(context.Background(), idGenerator, now); err != nil {
		logger.Error("failed to seed library catalog", "error", err)
		os.Exit(1)
	}

	gemini := genai.NewClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel, nil)
	openLibrary := openlibrary.NewClient("", nil)

	userService := application.NewUserService(newUserRepositoryAdapter(userRepo), nil, idGenerator, now, logger)
	authService := application.NewAuthService(
		newCredentialStoreAdapter(userRepo),
		newSessionRepositoryAdapter(sessionRepo),
		[]byte(cfg.SessionSecret),
		idGenerator, now, cfg.SessionTTL, logger,
	)
	presenceService := application.NewPresenceService(
		newPresenceRepositoryAdapter(roomRepo),
		cfg.PresenceFreshness, cfg.StudyingThreshold,
		idGenerator, now, logger,
	)
	chatService := application.NewChatService(newChatRepositoryAdapter(messageRepo), cfg.MessagePollLimit, now, logger)
	scheduleService := application.NewScheduleService(newStudyBlockRepositoryAdapter(blockRepo), idGenerator, now, logger)
	plannerService := application.NewPlannerService(gemini, scheduleService, cfg.PlannerTimeout, now, logger)
	friendService := application.NewFriendService(
		newUserRepositoryAdapter(userRepo),
		newFriendshipRepositoryAdapter(friendshipRepo),
		idGenerator, now, logger,
	)
	communityService := application.NewCommunityService(newCommunityRepositoryAdapter(communityRepo), nil, idGenerator, now, logger)
	libraryService := application.NewLibraryService(newTextbookCatalogAdapter(libraryRepo), openLibrary, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:                httptransport.NewAuthHandler(authService, logger),
		Users:               httptransport.NewUserHandler(userService, logger),
		Study:               httptransport.NewStudyHandler(presenceService, chatService, logger),
		Navigator:           httptransport.NewNavigatorHandler(plannerService, scheduleService, logger),
		Friends:             httptransport.NewFriendHandler(friendService, logger),
		Communities:         httptransport.NewCommunityHandler(communityService, logger),
		Library:             httptransport.NewLibraryHandler(libraryService, logger),
		SessionMiddleware:   httptransport.RequireSession(authService, logger),
		RateLimitMiddleware: httptransport.RateLimit(ctx, cfg.RateLimitPerMinute, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Session-Token"},
		AllowCredentials: true,
	})
	handler := corsMiddleware.Handler(router)

	go purgeExpiredSessions(ctx, authService, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("unispaces API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func purgeExpiredSessions(ctx context.Context, auth *application.AuthService, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := auth.PurgeExpiredSessions(ctx); err != nil {
				logger.Error("failed to purge expired sessions", "error", err)
			}
		}
	}
}

type userRepositoryAdapter struct {
	repo persistence.UserRepository
}

func newUserRepositoryAdapter(repo persistence.UserRepository) *userRepositoryAdapter {
	return &userRepositoryAdapter{repo: repo}
}

func (a *userRepositoryAdapter) CreateUser(ctx context.Context, user application.User, passwordHash string) error {
	return a.repo.CreateUser(ctx, toPersistenceUser(user, passwordHash))
}

func (a *userRepositoryAdapter) UpdateUser(ctx context.Context, user application.User) error {
	current, err := a.repo.GetUser(ctx, user.ID)
	if err != nil {
		return err
	}
	return a.repo.UpdateUser(ctx, toPersistenceUser(user, current.PasswordHash))
}

func (a *userRepositoryAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) GetUserByUsername(ctx context.Context, username string) (application.User, error) {
	stored, err := a.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) GetUserByEmail(ctx context.Context, email string) (application.User, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) SearchUsers(ctx context.Context, query, excludeID string, limit int) ([]application.User, error) {
	models, err := a.repo.SearchUsers(ctx, query, excludeID, limit)
	if err != nil {
		return nil, err
	}
	users := make([]application.User, 0, len(models))
	for _, model := range models {
		users = append(users, toApplicationUser(model))
	}
	return users, nil
}

type credentialStoreAdapter struct {
	repo persistence.UserRepository
}

func newCredentialStoreAdapter(repo persistence.UserRepository) *credentialStoreAdapter {
	return &credentialStoreAdapter{repo: repo}
}

func (a *credentialStoreAdapter) GetCredentialsByUsername(ctx context.Context, username string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return application.UserCredentials{}, err
	}
	return application.UserCredentials{
		User:         toApplicationUser(stored),
		PasswordHash: stored.PasswordHash,
	}, nil
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) error {
	return a.repo.CreateSession(ctx, persistence.Session{
		ID:        session.ID,
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
		RevokedAt: cloneTime(session.RevokedAt),
	})
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, id string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, id)
	if err != nil {
		return application.Session{}, err
	}
	return application.Session{
		ID:        stored.ID,
		UserID:    stored.UserID,
		ExpiresAt: stored.ExpiresAt,
		CreatedAt: stored.CreatedAt,
		RevokedAt: cloneTime(stored.RevokedAt),
	}, nil
}

func (a *sessionRepositoryAdapter) RevokeSession(ctx context.Context, id string, revokedAt time.Time) error {
	return a.repo.RevokeSession(ctx, id, revokedAt)
}

func (a *sessionRepositoryAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return a.repo.DeleteExpiredSessions(ctx, reference)
}

type presenceRepositoryAdapter struct {
	repo persistence.RoomRepository
}

func newPresenceRepositoryAdapter(repo persistence.RoomRepository) *presenceRepositoryAdapter {
	return &presenceRepositoryAdapter{repo: repo}
}

func (a *presenceRepositoryAdapter) GetOrCreateRoom(ctx context.Context, id, name string) (application.Room, error) {
	stored, err := a.repo.GetOrCreateRoom(ctx, id, name)
	if err != nil {
		return application.Room{}, err
	}
	return application.Room{ID: stored.ID, Name: stored.Name, CreatedAt: stored.CreatedAt}, nil
}

func (a *presenceRepositoryAdapter) GetRoom(ctx context.Context, id string) (application.Room, error) {
	stored, err := a.repo.GetRoom(ctx, id)
	if err != nil {
		return application.Room{}, err
	}
	return application.Room{ID: stored.ID, Name: stored.Name, CreatedAt: stored.CreatedAt}, nil
}

func (a *presenceRepositoryAdapter) TouchParticipant(ctx context.Context, id, roomID, userID string, at time.Time) error {
	return a.repo.TouchParticipant(ctx, id, roomID, userID, at)
}

func (a *presenceRepositoryAdapter) ListActiveParticipants(ctx context.Context, roomID string, since time.Time) ([]application.Participant, error) {
	models, err := a.repo.ListActiveParticipants(ctx, roomID, since)
	if err != nil {
		return nil, err
	}
	participants := make([]application.Participant, 0, len(models))
	for _, model := range models {
		participants = append(participants, application.Participant{
			UserID:     model.UserID,
			Username:   model.Username,
			JoinedAt:   model.JoinedAt,
			LastActive: model.LastActive,
		})
	}
	return participants, nil
}

type chatRepositoryAdapter struct {
	repo persistence.MessageRepository
}

func newChatRepositoryAdapter(repo persistence.MessageRepository) *chatRepositoryAdapter {
	return &chatRepositoryAdapter{repo: repo}
}

func (a *chatRepositoryAdapter) CreateMessage(ctx context.Context, roomID, userID, content string, at time.Time) (application.ChatMessage, error) {
	stored, err := a.repo.CreateMessage(ctx, roomID, userID, content, at)
	if err != nil {
		return application.ChatMessage{}, err
	}
	return toApplicationMessage(stored), nil
}

func (a *chatRepositoryAdapter) ListMessagesSince(ctx context.Context, roomID string, sinceID int64, limit int) ([]application.ChatMessage, error) {
	models, err := a.repo.ListMessagesSince(ctx, roomID, sinceID, limit)
	if err != nil {
		return nil, err
	}
	messages := make([]application.ChatMessage, 0, len(models))
	for _, model := range models {
		messages = append(messages, toApplicationMessage(model))
	}
	return messages, nil
}

type studyBlockRepositoryAdapter struct {
	repo persistence.StudyBlockRepository
}

func newStudyBlockRepositoryAdapter(repo persistence.StudyBlockRepository) *studyBlockRepositoryAdapter {
	return &studyBlockRepositoryAdapter{repo: repo}
}

func (a *studyBlockRepositoryAdapter) CreateBlocks(ctx context.Context, blocks []application.StudyBlock) error {
	models := make([]persistence.StudyBlock, 0, len(blocks))
	for _, block := range blocks {
		models = append(models, persistence.StudyBlock{
			ID:        block.ID,
			OwnerID:   block.OwnerID,
			Title:     block.Title,
			DayIndex:  cloneInt(block.DayIndex),
			Date:      cloneString(block.Date),
			StartDate: cloneString(block.StartDate),
			EndDate:   cloneString(block.EndDate),
			StartHour: block.StartHour,
			Duration:  block.Duration,
			BlockType: block.Type,
			CreatedAt: block.CreatedAt,
		})
	}
	return a.repo.CreateBlocks(ctx, models)
}

func (a *studyBlockRepositoryAdapter) ListBlocks(ctx context.Context, ownerID string) ([]application.StudyBlock, error) {
	models, err := a.repo.ListBlocks(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	blocks := make([]application.StudyBlock, 0, len(models))
	for _, model := range models {
		blocks = append(blocks, application.StudyBlock{
			ID:        model.ID,
			OwnerID:   model.OwnerID,
			Title:     model.Title,
			DayIndex:  cloneInt(model.DayIndex),
			Date:      cloneString(model.Date),
			StartDate: cloneString(model.StartDate),
			EndDate:   cloneString(model.EndDate),
			StartHour: model.StartHour,
			Duration:  model.Duration,
			Type:      model.BlockType,
			CreatedAt: model.CreatedAt,
		})
	}
	return blocks, nil
}

func (a *studyBlockRepositoryAdapter) DeleteBlock(ctx context.Context, ownerID, blockID string) error {
	return a.repo.DeleteBlock(ctx, ownerID, blockID)
}

type friendshipRepositoryAdapter struct {
	repo persistence.FriendshipRepository
}

func newFriendshipRepositoryAdapter(repo persistence.FriendshipRepository) *friendshipRepositoryAdapter {
	return &friendshipRepositoryAdapter{repo: repo}
}

func (a *friendshipRepositoryAdapter) EnsureFriendship(ctx context.Context, id, fromUserID, toUserID string, at time.Time) error {
	return a.repo.EnsureFriendship(ctx, id, fromUserID, toUserID, at)
}

func (a *friendshipRepositoryAdapter) ListFriendIDs(ctx context.Context, fromUserID string) (map[string]bool, error) {
	return a.repo.ListFriendIDs(ctx, fromUserID)
}

type communityRepositoryAdapter struct {
	repo persistence.CommunityRepository
}

func newCommunityRepositoryAdapter(repo persistence.CommunityRepository) *communityRepositoryAdapter {
	return &communityRepositoryAdapter{repo: repo}
}

func (a *communityRepositoryAdapter) CreateCommunity(ctx context.Context, community application.Community) error {
	return a.repo.CreateCommunity(ctx, toPersistenceCommunity(community))
}

func (a *communityRepositoryAdapter) GetCommunityBySlug(ctx context.Context, slug string) (application.Community, error) {
	stored, err := a.repo.GetCommunityBySlug(ctx, slug)
	if err != nil {
		return application.Community{}, err
	}
	return toApplicationCommunity(stored), nil
}

func (a *communityRepositoryAdapter) ListCommunities(ctx context.Context) ([]application.Community, error) {
	models, err := a.repo.ListCommunities(ctx)
	if err != nil {
		return nil, err
	}
	return toApplicationCommunities(models), nil
}

func (a *communityRepositoryAdapter) ListChildCommunities(ctx context.Context, parentID string) ([]application.Community, error) {
	models, err := a.repo.ListChildCommunities(ctx, parentID)
	if err != nil {
		return nil, err
	}
	return toApplicationCommunities(models), nil
}

func (a *communityRepositoryAdapter) CountMembers(ctx context.Context, communityID string) (int, error) {
	return a.repo.CountMembers(ctx, communityID)
}

func (a *communityRepositoryAdapter) EnsureMembership(ctx context.Context, id, communityID, userID string, at time.Time) error {
	return a.repo.EnsureMembership(ctx, id, communityID, userID, at)
}

func (a *communityRepositoryAdapter) DeleteMembership(ctx context.Context, communityID, userID string) error {
	return a.repo.DeleteMembership(ctx, communityID, userID)
}

func (a *communityRepositoryAdapter) IsMember(ctx context.Context, communityID, userID string) (bool, error) {
	return a.repo.IsMember(ctx, communityID, userID)
}

func (a *communityRepositoryAdapter) CreatePost(ctx context.Context, post application.CommunityPost) error {
	return a.repo.CreatePost(ctx, persistence.CommunityPost{
		ID:          post.ID,
		CommunityID: post.CommunityID,
		AuthorID:    post.AuthorID,
		Content:     post.Content,
		CreatedAt:   post.CreatedAt,
	})
}

func (a *communityRepositoryAdapter) ListPosts(ctx context.Context, communityID string, limit int) ([]application.CommunityPost, error) {
	models, err := a.repo.ListPosts(ctx, communityID, limit)
	if err != nil {
		return nil, err
	}
	posts := make([]application.CommunityPost, 0, len(models))
	for _, model := range models {
		posts = append(posts, application.CommunityPost{
			ID:          model.ID,
			CommunityID: model.CommunityID,
			AuthorID:    model.AuthorID,
			Username:    model.Username,
			Content:     model.Content,
			CreatedAt:   model.CreatedAt,
		})
	}
	return posts, nil
}

type textbookCatalogAdapter struct {
	repo persistence.LibraryRepository
}

func newTextbookCatalogAdapter(repo persistence.LibraryRepository) *textbookCatalogAdapter {
	return &textbookCatalogAdapter{repo: repo}
}

func (a *textbookCatalogAdapter) SearchTextbooks(ctx context.Context, query string, limit int) ([]application.Textbook, error) {
	models, err := a.repo.SearchTextbooks(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	textbooks := make([]application.Textbook, 0, len(models))
	for _, model := range models {
		textbooks = append(textbooks, application.Textbook{
			ID:            model.ID,
			Title:         model.Title,
			Author:        model.Author,
			Subject:       model.SubjectName,
			Description:   cloneString(model.Description),
			CoverImageURL: cloneString(model.CoverImageURL),
			OpenAccessURL: model.OpenAccessURL,
			ISBN:          cloneString(model.ISBN),
			Provider:      model.Provider,
		})
	}
	return textbooks, nil
}

func toApplicationUser(model persistence.User) application.User {
	return application.User{
		ID:         model.ID,
		Username:   model.Username,
		Email:      model.Email,
		University: cloneString(model.University),
		Bio:        cloneString(model.Bio),
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
	}
}

func toPersistenceUser(user application.User, passwordHash string) persistence.User {
	return persistence.User{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: passwordHash,
		University:   cloneString(user.University),
		Bio:          cloneString(user.Bio),
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func toApplicationMessage(model persistence.Message) application.ChatMessage {
	return application.ChatMessage{
		ID:        model.ID,
		RoomID:    model.RoomID,
		UserID:    model.UserID,
		Username:  model.Username,
		Content:   model.Content,
		CreatedAt: model.CreatedAt,
	}
}

func toApplicationCommunity(model persistence.Community) application.Community {
	return application.Community{
		ID:          model.ID,
		Name:        model.Name,
		Slug:        model.Slug,
		Description: cloneString(model.Description),
		Color:       model.Color,
		ParentID:    cloneString(model.ParentID),
		CreatedAt:   model.CreatedAt,
	}
}

func toApplicationCommunities(models []persistence.Community) []application.Community {
	communities := make([]application.Community, 0, len(models))
	for _, model := range models {
		communities = append(communities, toApplicationCommunity(model))
	}
	return communities
}

func toPersistenceCommunity(community application.Community) persistence.Community {
	return persistence.Community{
		ID:          community.ID,
		Name:        community.Name,
		Slug:        community.Slug,
		Description: cloneString(community.Description),
		Color:       community.Color,
		ParentID:    cloneString(community.ParentID),
		CreatedAt:   community.CreatedAt,
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
