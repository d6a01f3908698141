package services

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/SAP-F-2025/exam-session-service/internal/events"
	"github.com/SAP-F-2025/exam-session-service/internal/models"
)

func newSessionFixture() (*fixture, SessionService) {
	f := newFixture()
	f.deps.Rand = func() *rand.Rand { return rand.New(rand.NewPCG(7, 11)) }
	f.seedExam(1)
	f.seedBank(5)
	f.store.addMember("student-1", 1)
	return f, NewSessionService(f.deps)
}

func at(hour, minute int) time.Time {
	return time.Date(2025, 3, 10, hour, minute, 0, 0, time.UTC)
}

func TestInitializeSession_AccessControl(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *fixture)
		userID  string
		examID  uint
		wantErr error
	}{
		{
			name:    "user without groups",
			userID:  "stranger",
			examID:  1,
			wantErr: ErrAccessDenied,
		},
		{
			name:    "missing exam",
			userID:  "student-1",
			examID:  99,
			wantErr: ErrNotFound,
		},
		{
			name:    "exam not assigned to the user's group",
			setup:   func(f *fixture) { f.store.addMember("student-2", 2) },
			userID:  "student-2",
			examID:  1,
			wantErr: ErrAccessDenied,
		},
		{
			name:    "before the window opens",
			setup:   func(f *fixture) { *f.clock = at(9, 0).Add(-time.Second) },
			userID:  "student-1",
			examID:  1,
			wantErr: ErrAccessDenied,
		},
		{
			name:    "after the window closes",
			setup:   func(f *fixture) { *f.clock = at(11, 0).Add(time.Second) },
			userID:  "student-1",
			examID:  1,
			wantErr: ErrAccessDenied,
		},
		{
			name:    "missing user",
			userID:  "",
			examID:  1,
			wantErr: ErrUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, svc := newSessionFixture()
			if tt.setup != nil {
				tt.setup(f)
			}

			_, err := svc.InitializeSession(context.Background(), tt.examID, tt.userID)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("InitializeSession() error = %v, want %v", err, tt.wantErr)
			}
			if n := len(f.publisher.GetPublishedEvents()); n != 0 {
				t.Errorf("published %d events on failure", n)
			}
		})
	}
}

func TestInitializeSession_WindowBoundsAreInclusive(t *testing.T) {
	tests := []struct {
		name         string
		now          time.Time
		wantDeadline time.Time
	}{
		{name: "at start", now: at(9, 0), wantDeadline: at(10, 0)},
		{name: "inside", now: at(9, 30), wantDeadline: at(10, 30)},
		{name: "slot end caps the duration", now: at(10, 30), wantDeadline: at(11, 0)},
		{name: "at end", now: at(11, 0), wantDeadline: at(11, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, svc := newSessionFixture()
			*f.clock = tt.now

			resp, err := svc.InitializeSession(context.Background(), 1, "student-1")
			if err != nil {
				t.Fatalf("InitializeSession() error = %v", err)
			}
			if !resp.Created {
				t.Error("expected a new assignment")
			}
			if !resp.DeadlineAt.Equal(tt.wantDeadline) {
				t.Errorf("deadline = %v, want %v", resp.DeadlineAt, tt.wantDeadline)
			}
			if !resp.StartedAt.Equal(tt.now) {
				t.Errorf("started_at = %v, want %v", resp.StartedAt, tt.now)
			}
		})
	}
}

func TestInitializeSession_SlotOverride(t *testing.T) {
	f, svc := newSessionFixture()
	start, end := at(13, 0), at(13, 45)
	f.store.addSlot(&models.ExamGroupSlot{ExamID: 1, GroupID: 5, StartTime: &start, EndTime: &end})
	f.store.addMember("late-student", 5)

	if _, err := svc.InitializeSession(context.Background(), 1, "late-student"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected access denied outside the override window, got %v", err)
	}

	*f.clock = at(13, 10)
	resp, err := svc.InitializeSession(context.Background(), 1, "late-student")
	if err != nil {
		t.Fatalf("InitializeSession() error = %v", err)
	}
	if !resp.DeadlineAt.Equal(end) {
		t.Errorf("deadline = %v, want slot end %v", resp.DeadlineAt, end)
	}

	a := f.store.assignment(resp.AssignmentID)
	if a.SlotID == nil {
		t.Fatal("slot_id not stored")
	}
}

func TestInitializeSession_SelectsAndPersists(t *testing.T) {
	f, svc := newSessionFixture()

	resp, err := svc.InitializeSession(context.Background(), 1, "student-1")
	if err != nil {
		t.Fatalf("InitializeSession() error = %v", err)
	}

	if len(resp.QuestionIDs) != 3 {
		t.Fatalf("got %d questions, want 3", len(resp.QuestionIDs))
	}
	seen := map[uint]bool{}
	for _, id := range resp.QuestionIDs {
		if id < 1 || id > 5 {
			t.Errorf("question %d is not in the bank", id)
		}
		if seen[id] {
			t.Errorf("question %d selected twice", id)
		}
		seen[id] = true
	}

	a := f.store.assignment(resp.AssignmentID)
	if a.Status != models.AssignmentInProgress {
		t.Errorf("status = %s, want in_progress", a.Status)
	}
	if !slices.Equal([]uint(a.QuestionIDs), resp.QuestionIDs) {
		t.Errorf("stored ids %v differ from response %v", a.QuestionIDs, resp.QuestionIDs)
	}

	started := f.publisher.EventsOfType(events.SessionStarted)
	if len(started) != 1 {
		t.Fatalf("published %d session.started events, want 1", len(started))
	}
	data, ok := started[0].Data.(events.SessionStartedData)
	if !ok || data.AssignmentID != resp.AssignmentID {
		t.Errorf("unexpected event data %#v", started[0].Data)
	}
}

func TestInitializeSession_Idempotent(t *testing.T) {
	f, svc := newSessionFixture()
	ctx := context.Background()

	first, err := svc.InitializeSession(ctx, 1, "student-1")
	if err != nil {
		t.Fatalf("first call error = %v", err)
	}

	// Later calls return the stored assignment even once the window has closed
	*f.clock = at(12, 0)
	second, err := svc.InitializeSession(ctx, 1, "student-1")
	if err != nil {
		t.Fatalf("second call error = %v", err)
	}

	if second.Created {
		t.Error("second call reported a new assignment")
	}
	if second.AssignmentID != first.AssignmentID {
		t.Errorf("assignment id changed from %d to %d", first.AssignmentID, second.AssignmentID)
	}
	if !slices.Equal(second.QuestionIDs, first.QuestionIDs) {
		t.Errorf("questions re-randomized: %v then %v", first.QuestionIDs, second.QuestionIDs)
	}
	if n := len(f.publisher.EventsOfType(events.SessionStarted)); n != 1 {
		t.Errorf("published %d session.started events, want 1", n)
	}
}

func TestInitializeSession_ConcurrentInsertReturnsWinner(t *testing.T) {
	f, svc := newSessionFixture()

	var winner *models.ExamAssignment
	f.store.beforeCreateAssignment = func() {
		f.store.beforeCreateAssignment = nil
		winner = f.seedAssignment("student-1", 1, 4, 5, 2)
	}

	resp, err := svc.InitializeSession(context.Background(), 1, "student-1")
	if err != nil {
		t.Fatalf("InitializeSession() error = %v", err)
	}
	if resp.AssignmentID != winner.ID {
		t.Errorf("assignment id = %d, want winner %d", resp.AssignmentID, winner.ID)
	}
	if !slices.Equal(resp.QuestionIDs, []uint{4, 5, 2}) {
		t.Errorf("questions = %v, want the winner's", resp.QuestionIDs)
	}
	if resp.Created {
		t.Error("losing insert reported as created")
	}
	if n := len(f.publisher.EventsOfType(events.SessionStarted)); n != 0 {
		t.Errorf("losing insert published %d events", n)
	}
}

func TestInitializeSession_SelectionFailuresAreSystemErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.Exam)
	}{
		{name: "bank too small", mutate: func(e *models.Exam) { e.QuestionCount = 9 }},
		{name: "unknown strategy", mutate: func(e *models.Exam) { e.SelectionStrategy = "weighted" }},
		{name: "no question count", mutate: func(e *models.Exam) { e.QuestionCount = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.seedExam(1, tt.mutate)
			f.seedBank(5)
			f.store.addMember("student-1", 1)

			_, err := NewSessionService(f.deps).InitializeSession(context.Background(), 1, "student-1")
			if !errors.Is(err, ErrSystem) {
				t.Fatalf("error = %v, want system error", err)
			}
			if a, _ := f.repo.Assignment().GetByUserAndExam(context.Background(), "student-1", 1); a != nil {
				t.Error("assignment persisted despite selection failure")
			}
		})
	}
}

func TestGetAssignment(t *testing.T) {
	f, svc := newSessionFixture()
	a := f.seedAssignment("student-1", 1, 1, 2, 3)
	ctx := context.Background()

	resp, err := svc.GetAssignment(ctx, a.ID, Caller{UserID: "student-1", Role: models.RoleStudent})
	if err != nil {
		t.Fatalf("owner read error = %v", err)
	}
	if resp.RemainingSeconds != 3600 {
		t.Errorf("remaining = %d, want 3600", resp.RemainingSeconds)
	}
	if resp.WarningsLeft != 3 {
		t.Errorf("warnings left = %d, want 3", resp.WarningsLeft)
	}

	if _, err := svc.GetAssignment(ctx, a.ID, Caller{UserID: "student-2", Role: models.RoleStudent}); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("other student error = %v, want unauthorized", err)
	}
	if _, err := svc.GetAssignment(ctx, a.ID, Caller{UserID: "proctor-1", Role: models.RoleProctor}); err != nil {
		t.Errorf("proctor read error = %v", err)
	}
	if _, err := svc.GetAssignment(ctx, 404, Caller{UserID: "student-1"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing assignment error = %v, want not found", err)
	}
}
