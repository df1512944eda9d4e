package application

import "time"

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID string
}

// User represents a student account exposed by the application services.
type User struct {
	ID         string
	Username   string
	Email      string
	University *string
	Bio        *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RegisterParams captures the data required to create an account.
type RegisterParams struct {
	Username   string
	Email      string
	Password   string
	University string
	Bio        string
}

// ProfileInput captures the mutable profile attributes.
type ProfileInput struct {
	University string
	Bio        string
}

// UserCredentials models the authentication attributes stored for a user.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// Session represents an authenticated session issued to a user.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// AuthenticateResult captures the outcome of a successful login.
type AuthenticateResult struct {
	User      User
	Token     string
	ExpiresAt time.Time
}

// Room represents a study room's identity.
type Room struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Participant represents a stored presence row within a room.
type Participant struct {
	UserID     string
	Username   string
	JoinedAt   time.Time
	LastActive time.Time
}

// CrewMember represents a participant's derived presence status. Status is a
// pure function of (now, last_active) and is never stored.
type CrewMember struct {
	UserID   string
	Username string
	Status   string
	IsMe     bool
}

// Presence status values derived from activity recency.
const (
	StatusStudying = "studying"
	StatusIdle     = "idle"
)

// ChatMessage represents a message in a room's append-only log.
type ChatMessage struct {
	ID        int64
	RoomID    string
	UserID    string
	Username  string
	Content   string
	CreatedAt time.Time
}

// Block types distinguishing fixed deadlines from AI-suggested study
// sessions.
const (
	BlockTypeFixed = "fixed"
	BlockTypeAI    = "ai"
)

// BlockSpec captures a requested schedule block before persistence. Placement
// is either a specific Date or a recurring DayIndex (0=Monday..6=Sunday),
// optionally bounded by StartDate/EndDate. Dates are ISO 8601 strings passed
// through as given.
type BlockSpec struct {
	Title     string
	DayIndex  *int
	Date      *string
	StartDate *string
	EndDate   *string
	StartHour float64
	Duration  float64
	Type      string
}

// StudyBlock represents a persisted calendar block.
type StudyBlock struct {
	ID        string
	OwnerID   string
	Title     string
	DayIndex  *int
	Date      *string
	StartDate *string
	EndDate   *string
	StartHour float64
	Duration  float64
	Type      string
	CreatedAt time.Time
}

// PlanResult captures a planner invocation's outcome.
type PlanResult struct {
	Blocks []StudyBlock
	Reply  string
}

// UserMatch represents a user search hit annotated with the friendship state
// of the searcher.
type UserMatch struct {
	ID       string
	Username string
	IsFriend bool
}

// Friend represents an outgoing friendship edge in the caller's roster.
type Friend struct {
	ID       string
	Username string
	Status   string
}

// CommunityInput captures caller provided community fields.
type CommunityInput struct {
	Name        string
	Description string
	ParentSlug  string
}

// Community represents an interest group.
type Community struct {
	ID          string
	Name        string
	Slug        string
	Description *string
	Color       string
	ParentID    *string
	CreatedAt   time.Time
}

// CommunityDetail bundles a community with its children and member count.
type CommunityDetail struct {
	Community   Community
	Children    []Community
	MemberCount int
}

// CommunityPost represents content posted within a community.
type CommunityPost struct {
	ID          string
	CommunityID string
	AuthorID    string
	Username    string
	Content     string
	CreatedAt   time.Time
}

// Textbook represents a curated open-access textbook entry.
type Textbook struct {
	ID            string
	Title         string
	Author        string
	Subject       string
	Description   *string
	CoverImageURL *string
	OpenAccessURL string
	ISBN          *string
	Provider      string
}

// BookResult represents a search hit from the external book catalog.
type BookResult struct {
	Title       string
	Author      string
	Year        int
	Key         string
	CoverURL    string
	HasFulltext bool
	EbookCount  int
	ArchiveID   string
	ShoppingURL string
}

// LibrarySearchResult merges curated and external search hits.
type LibrarySearchResult struct {
	Local    []Textbook
	External []BookResult
}
