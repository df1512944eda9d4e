package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/unispaces/internal/application"
)

type stubValidator struct {
	principal application.Principal
	err       error
}

func (s *stubValidator) ValidateSession(ctx context.Context, token string) (application.Principal, error) {
	if s.err != nil {
		return application.Principal{}, s.err
	}
	return s.principal, nil
}

type stubPresence struct {
	room    application.Room
	crew    []application.CrewMember
	touched int
}

func (s *stubPresence) EnterDefaultRoom(ctx context.Context, principal application.Principal) (application.Room, error) {
	s.touched++
	return s.room, nil
}

func (s *stubPresence) Touch(ctx context.Context, roomID, userID string) error {
	s.touched++
	return nil
}

func (s *stubPresence) Roster(ctx context.Context, roomID, callerID string) ([]application.CrewMember, error) {
	return s.crew, nil
}

type stubChat struct {
	messages []application.ChatMessage
	postErr  error
	sinceID  int64
}

func (s *stubChat) Post(ctx context.Context, principal application.Principal, roomID, content string) (application.ChatMessage, error) {
	if s.postErr != nil {
		return application.ChatMessage{}, s.postErr
	}
	return application.ChatMessage{ID: 1, RoomID: roomID, UserID: principal.UserID, Content: content}, nil
}

func (s *stubChat) Poll(ctx context.Context, roomID string, sinceID int64) ([]application.ChatMessage, error) {
	s.sinceID = sinceID
	return s.messages, nil
}

type stubPlanner struct {
	result application.PlanResult
	err    error
}

func (s *stubPlanner) Plan(ctx context.Context, principal application.Principal, command string) (application.PlanResult, error) {
	if s.err != nil {
		return application.PlanResult{}, s.err
	}
	return s.result, nil
}

type stubSchedule struct {
	blocks    []application.StudyBlock
	deleteErr error
	deleted   string
}

func (s *stubSchedule) ListBlocks(ctx context.Context, principal application.Principal) ([]application.StudyBlock, error) {
	return s.blocks, nil
}

func (s *stubSchedule) DeleteBlock(ctx context.Context, principal application.Principal, blockID string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = blockID
	return nil
}

type stubFriends struct {
	matches []application.UserMatch
	friends []application.Friend
	addErr  error
}

func (s *stubFriends) Search(ctx context.Context, principal application.Principal, query string) ([]application.UserMatch, error) {
	return s.matches, nil
}

func (s *stubFriends) Add(ctx context.Context, principal application.Principal, friendID string) error {
	return s.addErr
}

func (s *stubFriends) List(ctx context.Context, principal application.Principal) ([]application.Friend, error) {
	return s.friends, nil
}

func newTestRouter(t *testing.T, presence *stubPresence, chat *stubChat, planner *stubPlanner, schedule *stubSchedule, friends *stubFriends) http.Handler {
	t.Helper()

	validator := &stubValidator{principal: application.Principal{UserID: "user-1"}}
	return NewRouter(RouterConfig{
		Study:             NewStudyHandler(presence, chat, nil),
		Navigator:         NewNavigatorHandler(planner, schedule, nil),
		Friends:           NewFriendHandler(friends, nil),
		SessionMiddleware: RequireSession(validator, nil),
	})
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer test-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestStudyDataEndpoint(t *testing.T) {
	t.Parallel()

	presence := &stubPresence{
		room: application.Room{ID: "room-1", Name: "Global Study Deck"},
		crew: []application.CrewMember{{UserID: "user-1", Username: "ada", Status: "studying", IsMe: true}},
	}
	chat := &stubChat{messages: []application.ChatMessage{{ID: 7, RoomID: "room-1", Username: "ada", Content: "hi", CreatedAt: time.Now()}}}
	router := newTestRouter(t, presence, chat, &stubPlanner{}, &stubSchedule{}, &stubFriends{})

	rec := doRequest(t, router, http.MethodGet, "/api/study/data?last_msg_id=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if presence.touched == 0 {
		t.Fatalf("expected the poll to refresh presence")
	}
	if chat.sinceID != 5 {
		t.Fatalf("expected watermark 5, got %d", chat.sinceID)
	}

	var payload struct {
		RoomID   string            `json:"room_id"`
		Crew     []json.RawMessage `json:"crew"`
		Messages []json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.RoomID != "room-1" || len(payload.Crew) != 1 || len(payload.Messages) != 1 {
		t.Fatalf("unexpected payload %s", rec.Body.String())
	}
}

func TestStudyDataRejectsBadWatermark(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &stubPresence{}, &stubChat{}, &stubPlanner{}, &stubSchedule{}, &stubFriends{})

	rec := doRequest(t, router, http.MethodGet, "/api/study/data?last_msg_id=abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStudySendEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("acknowledges a valid send", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(t, &stubPresence{}, &stubChat{}, &stubPlanner{}, &stubSchedule{}, &stubFriends{})

		rec := doRequest(t, router, http.MethodPost, "/api/study/send", `{"room_id":"room-1","content":"hello"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
			t.Fatalf("expected status ok body, got %s", rec.Body.String())
		}
	})

	t.Run("maps validation failures to 400 with field errors", func(t *testing.T) {
		t.Parallel()

		vErr := &application.ValidationError{FieldErrors: map[string]string{"content": "content is required"}}
		router := newTestRouter(t, &stubPresence{}, &stubChat{postErr: vErr}, &stubPlanner{}, &stubSchedule{}, &stubFriends{})

		rec := doRequest(t, router, http.MethodPost, "/api/study/send", `{"room_id":"room-1"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "content is required") {
			t.Fatalf("expected field errors in body, got %s", rec.Body.String())
		}
	})
}

func TestNavigatorEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("command returns schedule and reply", func(t *testing.T) {
		t.Parallel()

		planner := &stubPlanner{result: application.PlanResult{
			Blocks: []application.StudyBlock{{ID: "block-1", Title: "Exam", Type: "fixed"}},
			Reply:  application.PlannerReply,
		}}
		router := newTestRouter(t, &stubPresence{}, &stubChat{}, planner, &stubSchedule{}, &stubFriends{})

		rec := doRequest(t, router, http.MethodPost, "/api/study/navigator/command", `{"command":"exam friday"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), application.PlannerReply) {
			t.Fatalf("expected planner reply in body, got %s", rec.Body.String())
		}
	})

	t.Run("planner contract failures map to 500", func(t *testing.T) {
		t.Parallel()

		planner := &stubPlanner{err: application.ErrPlannerResponse}
		router := newTestRouter(t, &stubPresence{}, &stubChat{}, planner, &stubSchedule{}, &stubFriends{})

		rec := doRequest(t, router, http.MethodPost, "/api/study/navigator/command", `{"command":"exam friday"}`)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
	})

	t.Run("delete reports success", func(t *testing.T) {
		t.Parallel()

		schedule := &stubSchedule{}
		router := newTestRouter(t, &stubPresence{}, &stubChat{}, &stubPlanner{}, schedule, &stubFriends{})

		rec := doRequest(t, router, http.MethodPost, "/api/study/blocks/block-9", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if schedule.deleted != "block-9" {
			t.Fatalf("expected block-9 deleted, got %q", schedule.deleted)
		}
		if !strings.Contains(rec.Body.String(), `"success":true`) {
			t.Fatalf("expected success body, got %s", rec.Body.String())
		}
	})

	t.Run("delete of a foreign block reports 404", func(t *testing.T) {
		t.Parallel()

		schedule := &stubSchedule{deleteErr: application.ErrNotFound}
		router := newTestRouter(t, &stubPresence{}, &stubChat{}, &stubPlanner{}, schedule, &stubFriends{})

		rec := doRequest(t, router, http.MethodPost, "/api/study/blocks/block-9", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestFriendEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("search returns annotated users", func(t *testing.T) {
		t.Parallel()

		friends := &stubFriends{matches: []application.UserMatch{{ID: "user-2", Username: "grace", IsFriend: true}}}
		router := newTestRouter(t, &stubPresence{}, &stubChat{}, &stubPlanner{}, &stubSchedule{}, friends)

		rec := doRequest(t, router, http.MethodGet, "/api/study/search_users?q=gra", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"is_friend":true`) {
			t.Fatalf("expected friendship annotation, got %s", rec.Body.String())
		}
	})

	t.Run("adding an unknown user reports 404", func(t *testing.T) {
		t.Parallel()

		friends := &stubFriends{addErr: application.ErrNotFound}
		router := newTestRouter(t, &stubPresence{}, &stubChat{}, &stubPlanner{}, &stubSchedule{}, friends)

		rec := doRequest(t, router, http.MethodPost, "/api/study/add_friend", `{"user_id":"ghost"}`)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestRequireSession(t *testing.T) {
	t.Parallel()

	t.Run("rejects requests without a token", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(t, &stubPresence{}, &stubChat{}, &stubPlanner{}, &stubSchedule{}, &stubFriends{})

		req := httptest.NewRequest(http.MethodGet, "/api/study/data", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("maps expired sessions to 401", func(t *testing.T) {
		t.Parallel()

		validator := &stubValidator{err: application.ErrSessionExpired}
		router := NewRouter(RouterConfig{
			Study:             NewStudyHandler(&stubPresence{}, &stubChat{}, nil),
			SessionMiddleware: RequireSession(validator, nil),
		})

		rec := doRequest(t, router, http.MethodGet, "/api/study/data", "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "expired") {
			t.Fatalf("expected expiry message, got %s", rec.Body.String())
		}
	})
}

func TestExtractTokenFromRequest(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		header string
		value  string
		want   string
	}{
		{"bearer", "Authorization", "Bearer abc123", "abc123"},
		{"bearer with padding", "Authorization", "Bearer   abc123  ", "abc123"},
		{"custom header", "X-Session-Token", "abc123", "abc123"},
		{"missing", "", "", ""},
		{"non-bearer scheme", "Authorization", "Basic abc123", ""},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			if got := extractTokenFromRequest(req); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	limited := RateLimit(ctx, 2, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = r.WithContext(ContextWithPrincipal(r.Context(), application.Principal{UserID: "user-1"}))
		limited.ServeHTTP(w, r)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/study/send", nil))
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("expected the first two requests to pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("expected the third request throttled, got %v", codes)
	}
}
