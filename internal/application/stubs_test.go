package application

import (
	"context"
	"sort"
	"strings"
	"time"
)

type presenceRepoStub struct {
	room         Room
	participants []Participant
	touchCalls   int
	lastTouched  time.Time
	sinceArg     time.Time

	getOrCreateErr error
	touchErr       error
	listErr        error
}

func (s *presenceRepoStub) GetOrCreateRoom(ctx context.Context, id, name string) (Room, error) {
	if s.getOrCreateErr != nil {
		return Room{}, s.getOrCreateErr
	}
	if s.room.ID == "" {
		s.room = Room{ID: id, Name: name}
	}
	return s.room, nil
}

func (s *presenceRepoStub) GetRoom(ctx context.Context, id string) (Room, error) {
	return s.room, nil
}

func (s *presenceRepoStub) TouchParticipant(ctx context.Context, id, roomID, userID string, at time.Time) error {
	if s.touchErr != nil {
		return s.touchErr
	}
	s.touchCalls++
	s.lastTouched = at
	return nil
}

func (s *presenceRepoStub) ListActiveParticipants(ctx context.Context, roomID string, since time.Time) ([]Participant, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.sinceArg = since
	active := make([]Participant, 0, len(s.participants))
	for _, p := range s.participants {
		if !p.LastActive.Before(since) {
			active = append(active, p)
		}
	}
	return active, nil
}

type chatRepoStub struct {
	messages  []ChatMessage
	nextID    int64
	createErr error
	listErr   error
}

func (s *chatRepoStub) CreateMessage(ctx context.Context, roomID, userID, content string, at time.Time) (ChatMessage, error) {
	if s.createErr != nil {
		return ChatMessage{}, s.createErr
	}
	s.nextID++
	message := ChatMessage{ID: s.nextID, RoomID: roomID, UserID: userID, Content: content, CreatedAt: at}
	s.messages = append(s.messages, message)
	return message, nil
}

func (s *chatRepoStub) ListMessagesSince(ctx context.Context, roomID string, sinceID int64, limit int) ([]ChatMessage, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]ChatMessage, 0, limit)
	for _, message := range s.messages {
		if message.RoomID != roomID || message.ID <= sinceID {
			continue
		}
		out = append(out, message)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type blockRepoStub struct {
	blocks    []StudyBlock
	createErr error
	listErr   error
	deleteErr error
}

func (s *blockRepoStub) CreateBlocks(ctx context.Context, blocks []StudyBlock) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.blocks = append(s.blocks, blocks...)
	return nil
}

func (s *blockRepoStub) ListBlocks(ctx context.Context, ownerID string) ([]StudyBlock, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]StudyBlock, 0, len(s.blocks))
	for _, block := range s.blocks {
		if block.OwnerID == ownerID {
			out = append(out, block)
		}
	}
	return out, nil
}

func (s *blockRepoStub) DeleteBlock(ctx context.Context, ownerID, blockID string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	for i, block := range s.blocks {
		if block.ID == blockID && block.OwnerID == ownerID {
			s.blocks = append(s.blocks[:i], s.blocks[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

type generatorStub struct {
	response string
	err      error
	prompt   string
}

func (s *generatorStub) GenerateContent(ctx context.Context, prompt string) (string, error) {
	s.prompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

type userDirectoryStub struct {
	users     map[string]User
	searchErr error
	getErr    error
}

func (s *userDirectoryStub) GetUser(ctx context.Context, id string) (User, error) {
	if s.getErr != nil {
		return User{}, s.getErr
	}
	user, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (s *userDirectoryStub) SearchUsers(ctx context.Context, query, excludeID string, limit int) ([]User, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	matches := make([]User, 0)
	for _, user := range s.users {
		if user.ID == excludeID {
			continue
		}
		if strings.Contains(strings.ToLower(user.Username), strings.ToLower(query)) {
			matches = append(matches, user)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

type friendshipRepoStub struct {
	edges       map[string]map[string]bool
	ensureCalls int
	ensureErr   error
	listErr     error
}

func newFriendshipRepoStub() *friendshipRepoStub {
	return &friendshipRepoStub{edges: make(map[string]map[string]bool)}
}

func (s *friendshipRepoStub) EnsureFriendship(ctx context.Context, id, fromUserID, toUserID string, at time.Time) error {
	if s.ensureErr != nil {
		return s.ensureErr
	}
	s.ensureCalls++
	if s.edges[fromUserID] == nil {
		s.edges[fromUserID] = make(map[string]bool)
	}
	s.edges[fromUserID][toUserID] = true
	return nil
}

func (s *friendshipRepoStub) ListFriendIDs(ctx context.Context, fromUserID string) (map[string]bool, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make(map[string]bool, len(s.edges[fromUserID]))
	for id := range s.edges[fromUserID] {
		out[id] = true
	}
	return out, nil
}

type credentialStoreStub struct {
	credentials UserCredentials
	err         error
}

func (s *credentialStoreStub) GetCredentialsByUsername(ctx context.Context, username string) (UserCredentials, error) {
	if s.err != nil {
		return UserCredentials{}, s.err
	}
	if s.credentials.User.Username != username {
		return UserCredentials{}, ErrNotFound
	}
	return s.credentials, nil
}

type sessionRepoStub struct {
	sessions  map[string]Session
	createErr error
	getErr    error
	revokeErr error
}

func newSessionRepoStub() *sessionRepoStub {
	return &sessionRepoStub{sessions: make(map[string]Session)}
}

func (s *sessionRepoStub) CreateSession(ctx context.Context, session Session) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.sessions[session.ID] = session
	return nil
}

func (s *sessionRepoStub) GetSession(ctx context.Context, id string) (Session, error) {
	if s.getErr != nil {
		return Session{}, s.getErr
	}
	session, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return session, nil
}

func (s *sessionRepoStub) RevokeSession(ctx context.Context, id string, revokedAt time.Time) error {
	if s.revokeErr != nil {
		return s.revokeErr
	}
	session, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	session.RevokedAt = &revokedAt
	s.sessions[id] = session
	return nil
}

func (s *sessionRepoStub) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	for id, session := range s.sessions {
		if !session.ExpiresAt.After(reference) {
			delete(s.sessions, id)
		}
	}
	return nil
}

type userRepoStub struct {
	users     map[string]User
	hashes    map[string]string
	createErr error
	updateErr error
	getErr    error
}

func newUserRepoStub() *userRepoStub {
	return &userRepoStub{users: make(map[string]User), hashes: make(map[string]string)}
}

func (s *userRepoStub) CreateUser(ctx context.Context, user User, passwordHash string) error {
	if s.createErr != nil {
		return s.createErr
	}
	for _, existing := range s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return ErrAlreadyExists
		}
	}
	s.users[user.ID] = user
	s.hashes[user.ID] = passwordHash
	return nil
}

func (s *userRepoStub) UpdateUser(ctx context.Context, user User) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	if _, ok := s.users[user.ID]; !ok {
		return ErrNotFound
	}
	s.users[user.ID] = user
	return nil
}

func (s *userRepoStub) GetUser(ctx context.Context, id string) (User, error) {
	if s.getErr != nil {
		return User{}, s.getErr
	}
	user, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (s *userRepoStub) GetUserByUsername(ctx context.Context, username string) (User, error) {
	for _, user := range s.users {
		if user.Username == username {
			return user, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *userRepoStub) GetUserByEmail(ctx context.Context, email string) (User, error) {
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return User{}, ErrNotFound
}

type communityRepoStub struct {
	communities map[string]Community
	members     map[string]map[string]bool
	posts       []CommunityPost

	createErr error
	postErr   error
}

func newCommunityRepoStub() *communityRepoStub {
	return &communityRepoStub{
		communities: make(map[string]Community),
		members:     make(map[string]map[string]bool),
	}
}

func (s *communityRepoStub) CreateCommunity(ctx context.Context, community Community) error {
	if s.createErr != nil {
		return s.createErr
	}
	if _, ok := s.communities[community.Slug]; ok {
		return ErrAlreadyExists
	}
	s.communities[community.Slug] = community
	return nil
}

func (s *communityRepoStub) GetCommunityBySlug(ctx context.Context, slug string) (Community, error) {
	community, ok := s.communities[slug]
	if !ok {
		return Community{}, ErrNotFound
	}
	return community, nil
}

func (s *communityRepoStub) ListCommunities(ctx context.Context) ([]Community, error) {
	out := make([]Community, 0, len(s.communities))
	for _, community := range s.communities {
		out = append(out, community)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (s *communityRepoStub) ListChildCommunities(ctx context.Context, parentID string) ([]Community, error) {
	out := make([]Community, 0)
	for _, community := range s.communities {
		if community.ParentID != nil && *community.ParentID == parentID {
			out = append(out, community)
		}
	}
	return out, nil
}

func (s *communityRepoStub) CountMembers(ctx context.Context, communityID string) (int, error) {
	return len(s.members[communityID]), nil
}

func (s *communityRepoStub) EnsureMembership(ctx context.Context, id, communityID, userID string, at time.Time) error {
	if s.members[communityID] == nil {
		s.members[communityID] = make(map[string]bool)
	}
	s.members[communityID][userID] = true
	return nil
}

func (s *communityRepoStub) DeleteMembership(ctx context.Context, communityID, userID string) error {
	delete(s.members[communityID], userID)
	return nil
}

func (s *communityRepoStub) IsMember(ctx context.Context, communityID, userID string) (bool, error) {
	return s.members[communityID][userID], nil
}

func (s *communityRepoStub) CreatePost(ctx context.Context, post CommunityPost) error {
	if s.postErr != nil {
		return s.postErr
	}
	s.posts = append(s.posts, post)
	return nil
}

func (s *communityRepoStub) ListPosts(ctx context.Context, communityID string, limit int) ([]CommunityPost, error) {
	out := make([]CommunityPost, 0, limit)
	for _, post := range s.posts {
		if post.CommunityID != communityID {
			continue
		}
		out = append(out, post)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type textbookCatalogStub struct {
	textbooks []Textbook
	err       error
}

func (s *textbookCatalogStub) SearchTextbooks(ctx context.Context, query string, limit int) ([]Textbook, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.textbooks, nil
}

type bookSearcherStub struct {
	results []BookResult
	err     error
	calls   int
}

func (s *bookSearcherStub) SearchBooks(ctx context.Context, query string, limit int) ([]BookResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}
