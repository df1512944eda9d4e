package persistence

import "time"

// User represents a student account in the UniSpaces domain.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	University   *string
	Bio          *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session represents an authentication session persisted for a user.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// StudyRoom represents a shared chat and presence context. Rooms are created
// lazily on first access and never deleted in normal operation.
type StudyRoom struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Participant represents a user's membership and presence record within a
// study room. Unique per (room, user); re-joining updates the existing row.
// Username is populated on reads that join against the users table.
type Participant struct {
	ID         string
	RoomID     string
	UserID     string
	Username   string
	JoinedAt   time.Time
	LastActive time.Time
	IsActive   bool
}

// Message represents a chat message appended to a study room. Messages are
// immutable and ordered by their server-assigned id.
type Message struct {
	ID        int64
	RoomID    string
	UserID    string
	Username  string
	Content   string
	CreatedAt time.Time
}

// StudyBlock represents a single calendar entry owned by a user. Placement is
// either a specific date or a recurring weekday index optionally bounded by a
// start/end date range. Date columns are stored as ISO 8601 (YYYY-MM-DD) text.
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
	BlockType string
	CreatedAt time.Time
}

// Community represents a hierarchical interest group. ParentID is nil for
// top-level communities.
type Community struct {
	ID          string
	Name        string
	Slug        string
	Description *string
	Color       string
	ParentID    *string
	CreatedAt   time.Time
}

// Membership represents a user's membership in a community.
type Membership struct {
	ID          string
	CommunityID string
	UserID      string
	JoinedAt    time.Time
}

// CommunityPost represents content posted within a community. Username is
// populated on reads that join against the users table.
type CommunityPost struct {
	ID          string
	CommunityID string
	AuthorID    string
	Username    string
	Content     string
	CreatedAt   time.Time
}

// Subject represents a curated library subject area.
type Subject struct {
	ID   string
	Name string
	Slug string
}

// Textbook represents a curated open-access textbook entry.
type Textbook struct {
	ID            string
	Title         string
	Author        string
	SubjectID     string
	SubjectName   string
	Description   *string
	CoverImageURL *string
	OpenAccessURL string
	ISBN          *string
	Provider      string
	CreatedAt     time.Time
}
