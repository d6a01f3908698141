package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-session-service/internal/events"
	"github.com/SAP-F-2025/exam-session-service/internal/judge"
	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
)

// memStore is a map-backed stand-in for postgres. Transactions are serialized,
// which gives the same guarantees as the row locks the real repository takes.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	exams       map[uint]*models.Exam
	memberships map[string][]uint
	slots       []*models.ExamGroupSlot
	questions   map[uint]*models.Question
	testCases   map[uint][]*models.TestCase
	assignments map[uint]*models.ExamAssignment
	violations  []*models.MalpracticeEvent
	submissions []*models.Submission
	users       map[string]*models.User

	nextID uint

	// beforeCreateAssignment runs inside CreateIfAbsent, before the uniqueness check
	beforeCreateAssignment func()
}

func newMemStore() *memStore {
	return &memStore{
		exams:       make(map[uint]*models.Exam),
		memberships: make(map[string][]uint),
		questions:   make(map[uint]*models.Question),
		testCases:   make(map[uint][]*models.TestCase),
		assignments: make(map[uint]*models.ExamAssignment),
		users:       make(map[string]*models.User),
		nextID:      1000,
	}
}

func (s *memStore) id() uint {
	s.nextID++
	return s.nextID
}

func (s *memStore) addExam(e *models.Exam) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exams[e.ID] = e
}

func (s *memStore) addMember(userID string, groupIDs ...uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberships[userID] = append(s.memberships[userID], groupIDs...)
}

func (s *memStore) addSlot(slot *models.ExamGroupSlot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot.ID == 0 {
		slot.ID = s.id()
	}
	s.slots = append(s.slots, slot)
}

func (s *memStore) addQuestion(q *models.Question, cases ...*models.TestCase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[q.ID] = q
	s.testCases[q.ID] = cases
}

func (s *memStore) putAssignment(a *models.ExamAssignment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		a.ID = s.id()
	}
	cp := *a
	s.assignments[a.ID] = &cp
}

func (s *memStore) assignment(id uint) *models.ExamAssignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assignments[id]
	if !ok {
		return nil
	}
	cp := *a
	return &cp
}

func (s *memStore) submissionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.submissions)
}

func (s *memStore) violationCount(assignmentID uint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.violations {
		if v.AssignmentID == assignmentID {
			n++
		}
	}
	return n
}

// mockRepository implements repositories.Repository over a memStore
type mockRepository struct {
	store *memStore
}

func newMockRepository(store *memStore) *mockRepository {
	return &mockRepository{store: store}
}

func (r *mockRepository) Exam() repositories.ExamRepository               { return mockExams{r.store} }
func (r *mockRepository) Group() repositories.GroupRepository             { return mockGroups{r.store} }
func (r *mockRepository) Question() repositories.QuestionRepository       { return mockQuestions{r.store} }
func (r *mockRepository) Assignment() repositories.AssignmentRepository   { return mockAssignments{r.store} }
func (r *mockRepository) Malpractice() repositories.MalpracticeRepository { return mockMalpractice{r.store} }
func (r *mockRepository) Submission() repositories.SubmissionRepository   { return mockSubmissions{r.store} }
func (r *mockRepository) User() repositories.UserRepository               { return mockUsers{r.store} }
func (r *mockRepository) Ping(context.Context) error                      { return nil }
func (r *mockRepository) Close() error                                    { return nil }

// WithTransaction restores assignments and appended rows when fn fails
func (r *mockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	r.store.txMu.Lock()
	defer r.store.txMu.Unlock()

	r.store.mu.Lock()
	saved := make(map[uint]models.ExamAssignment, len(r.store.assignments))
	for id, a := range r.store.assignments {
		saved[id] = *a
	}
	nViolations, nSubmissions := len(r.store.violations), len(r.store.submissions)
	r.store.mu.Unlock()

	if err := fn(r); err != nil {
		r.store.mu.Lock()
		r.store.assignments = make(map[uint]*models.ExamAssignment, len(saved))
		for id, a := range saved {
			cp := a
			r.store.assignments[id] = &cp
		}
		r.store.violations = r.store.violations[:nViolations]
		r.store.submissions = r.store.submissions[:nSubmissions]
		r.store.mu.Unlock()
		return err
	}
	return nil
}

type mockExams struct{ s *memStore }

func (m mockExams) GetByID(_ context.Context, id uint) (*models.Exam, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	e, ok := m.s.exams[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *e
	return &cp, nil
}

func (m mockExams) GetByIDs(_ context.Context, ids []uint) ([]*models.Exam, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := make([]*models.Exam, 0, len(ids))
	for _, id := range ids {
		if e, ok := m.s.exams[id]; ok {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

type mockGroups struct{ s *memStore }

func (m mockGroups) GetUserGroupIDs(_ context.Context, userID string) ([]uint, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return slices.Clone(m.s.memberships[userID]), nil
}

func (m mockGroups) GetSlots(_ context.Context, examID uint, groupIDs []uint) ([]*models.ExamGroupSlot, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*models.ExamGroupSlot
	for _, slot := range m.s.slots {
		if slot.ExamID == examID && slices.Contains(groupIDs, slot.GroupID) {
			out = append(out, slot)
		}
	}
	return out, nil
}

func (m mockGroups) ListSlotsForGroups(_ context.Context, groupIDs []uint) ([]*models.ExamGroupSlot, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*models.ExamGroupSlot
	for _, slot := range m.s.slots {
		if slices.Contains(groupIDs, slot.GroupID) {
			out = append(out, slot)
		}
	}
	return out, nil
}

type mockQuestions struct{ s *memStore }

func (m mockQuestions) GetByID(_ context.Context, id uint) (*models.Question, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	q, ok := m.s.questions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *q
	return &cp, nil
}

func (m mockQuestions) ListBank(_ context.Context) ([]*models.Question, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := make([]*models.Question, 0, len(m.s.questions))
	for _, q := range m.s.questions {
		out = append(out, &models.Question{ID: q.ID, Difficulty: q.Difficulty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m mockQuestions) GetHiddenTestCases(_ context.Context, questionID uint) ([]*models.TestCase, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*models.TestCase
	for _, tc := range m.s.testCases[questionID] {
		if tc.IsHidden {
			out = append(out, tc)
		}
	}
	return out, nil
}

func (m mockQuestions) GetDifficulties(_ context.Context, ids []uint) (map[uint]models.DifficultyLevel, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := make(map[uint]models.DifficultyLevel, len(ids))
	for _, id := range ids {
		if q, ok := m.s.questions[id]; ok {
			out[id] = q.Difficulty
		}
	}
	return out, nil
}

type mockAssignments struct{ s *memStore }

func (m mockAssignments) CreateIfAbsent(_ context.Context, a *models.ExamAssignment) (bool, error) {
	if m.s.beforeCreateAssignment != nil {
		m.s.beforeCreateAssignment()
	}

	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, existing := range m.s.assignments {
		if existing.UserID == a.UserID && existing.ExamID == a.ExamID {
			return false, nil
		}
	}
	a.ID = m.s.id()
	cp := *a
	m.s.assignments[a.ID] = &cp
	return true, nil
}

func (m mockAssignments) GetByID(_ context.Context, id uint) (*models.ExamAssignment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	a, ok := m.s.assignments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (m mockAssignments) GetByIDForUpdate(ctx context.Context, id uint) (*models.ExamAssignment, error) {
	return m.GetByID(ctx, id)
}

func (m mockAssignments) GetByUserAndExam(_ context.Context, userID string, examID uint) (*models.ExamAssignment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, a := range m.s.assignments {
		if a.UserID == userID && a.ExamID == examID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m mockAssignments) ListByUser(_ context.Context, userID string) ([]*models.ExamAssignment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*models.ExamAssignment
	for _, a := range m.s.assignments {
		if a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m mockAssignments) Update(_ context.Context, a *models.ExamAssignment) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.assignments[a.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *a
	m.s.assignments[a.ID] = &cp
	return nil
}

func (m mockAssignments) UpdateScore(_ context.Context, id uint, score float64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	a, ok := m.s.assignments[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	a.Score = score
	return nil
}

func (m mockAssignments) ListExpired(_ context.Context, now time.Time, limit int) ([]*models.ExamAssignment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*models.ExamAssignment
	for _, a := range m.s.assignments {
		if a.Status == models.AssignmentInProgress && a.DeadlineAt != nil && a.DeadlineAt.Before(now) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m mockAssignments) GetExamStats(_ context.Context, examID uint) (*repositories.ExamStats, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	stats := &repositories.ExamStats{ExamID: examID}
	var sum float64
	for _, a := range m.s.assignments {
		if a.ExamID != examID {
			continue
		}
		stats.Total++
		switch a.Status {
		case models.AssignmentNotStarted:
			stats.NotStarted++
		case models.AssignmentInProgress:
			stats.InProgress++
		case models.AssignmentCompleted:
			stats.Completed++
			sum += a.Score
		}
		if a.IsTerminated {
			stats.Terminated++
		}
	}
	if stats.Completed > 0 {
		stats.AverageScore = sum / float64(stats.Completed)
	}
	return stats, nil
}

type mockMalpractice struct{ s *memStore }

func (m mockMalpractice) Create(_ context.Context, e *models.MalpracticeEvent) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	e.ID = m.s.id()
	cp := *e
	m.s.violations = append(m.s.violations, &cp)
	return nil
}

func (m mockMalpractice) ListByAssignment(_ context.Context, assignmentID uint) ([]*models.MalpracticeEvent, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := []*models.MalpracticeEvent{}
	for _, e := range m.s.violations {
		if e.AssignmentID == assignmentID {
			out = append(out, e)
		}
	}
	return out, nil
}

type mockSubmissions struct{ s *memStore }

func (m mockSubmissions) Create(_ context.Context, sub *models.Submission) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	sub.ID = m.s.id()
	cp := *sub
	m.s.submissions = append(m.s.submissions, &cp)
	return nil
}

func (m mockSubmissions) List(_ context.Context, f repositories.SubmissionFilters) ([]*models.Submission, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := []*models.Submission{}
	for _, sub := range m.s.submissions {
		if sub.AssignmentID != f.AssignmentID {
			continue
		}
		if f.QuestionID != nil && sub.QuestionID != *f.QuestionID {
			continue
		}
		out = append(out, sub)
	}
	return out, nil
}

func (m mockSubmissions) GetPassedQuestionIDs(_ context.Context, assignmentID uint) ([]uint, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []uint
	for _, sub := range m.s.submissions {
		if sub.AssignmentID == assignmentID && sub.Verdict == models.VerdictPassed && !slices.Contains(out, sub.QuestionID) {
			out = append(out, sub.QuestionID)
		}
	}
	return out, nil
}

type mockUsers struct{ s *memStore }

func (m mockUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return u, nil
}

func (m mockUsers) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	var out []*models.User
	for _, id := range ids {
		if u, err := m.GetByID(ctx, id); err == nil {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m mockUsers) HasRole(ctx context.Context, id string, role models.UserRole) (bool, error) {
	u, err := m.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return u.Role == role, nil
}

// fakeJudge answers with a fixed response or error and records each request
type fakeJudge struct {
	mu       sync.Mutex
	respond  func(req *judge.Request) (*judge.Response, error)
	requests []*judge.Request
}

func (f *fakeJudge) Execute(_ context.Context, req *judge.Request) (*judge.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	respond := f.respond
	f.mu.Unlock()
	return respond(req)
}

func judgeAll(status string) func(*judge.Request) (*judge.Response, error) {
	return func(req *judge.Request) (*judge.Response, error) {
		resp := &judge.Response{CompileOK: true}
		for range req.Tests {
			resp.Results = append(resp.Results, judge.TestResult{Status: status})
		}
		return resp, nil
	}
}

func judgeDown() func(*judge.Request) (*judge.Response, error) {
	return func(*judge.Request) (*judge.Response, error) {
		return nil, errors.Join(judge.ErrUnavailable, errors.New("connection refused"))
	}
}

// ===== FIXTURES =====

var testNow = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	store     *memStore
	repo      *mockRepository
	publisher *events.MockEventPublisher
	judge     *fakeJudge
	deps      Dependencies
	clock     *time.Time
}

func newFixture() *fixture {
	store := newMemStore()
	now := testNow
	f := &fixture{
		store:     store,
		repo:      newMockRepository(store),
		publisher: events.NewMockEventPublisher(testLogger()),
		judge:     &fakeJudge{respond: judgeAll(judge.StatusAccepted)},
		clock:     &now,
	}
	f.deps = Dependencies{
		Repo:      f.repo,
		Publisher: f.publisher,
		Judge:     f.judge,
		Logger:    testLogger(),
		Now:       func() time.Time { return *f.clock },
	}.withDefaults()
	return f
}

func (f *fixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

// seedExam stores a 60 minute exam open from 09:00 to 11:00 for group 1
func (f *fixture) seedExam(id uint, mutate ...func(*models.Exam)) *models.Exam {
	exam := &models.Exam{
		ID:                  id,
		Title:               "Algorithms midterm",
		StartTime:           time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		EndTime:             time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC),
		Duration:            60,
		QuestionCount:       3,
		GradingStrategy:     "count_based",
		GradingConfig:       datatypes.JSON(`{"rules":[{"count":1,"marks":20},{"count":2,"marks":40},{"count":3,"marks":50}]}`),
		PreventTabSwitching: true,
		PreventRightClick:   true,
		PreventCopyPaste:    true,
		RequireFullScreen:   true,
		MaxViolations:       3,
	}
	for _, m := range mutate {
		m(exam)
	}
	f.store.addExam(exam)
	f.store.addSlot(&models.ExamGroupSlot{ExamID: id, GroupID: 1})
	return exam
}

func (f *fixture) seedBank(n int) {
	levels := []models.DifficultyLevel{models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard}
	for i := 1; i <= n; i++ {
		f.store.addQuestion(&models.Question{
			ID:            uint(i),
			Title:         "Question",
			Difficulty:    levels[(i-1)%len(levels)],
			TimeLimitMs:   1000,
			MemoryLimitMb: 128,
		},
			&models.TestCase{ID: uint(100 + i), QuestionID: uint(i), Input: "1", ExpectedOutput: "1", IsHidden: true},
			&models.TestCase{ID: uint(200 + i), QuestionID: uint(i), Input: "2", ExpectedOutput: "2", IsHidden: true},
			&models.TestCase{ID: uint(300 + i), QuestionID: uint(i), Input: "0", ExpectedOutput: "0", IsHidden: false},
		)
	}
}

// seedAssignment stores an in-progress assignment started at testNow
func (f *fixture) seedAssignment(userID string, examID uint, questionIDs ...uint) *models.ExamAssignment {
	started := testNow
	deadline := testNow.Add(time.Hour)
	a := &models.ExamAssignment{
		UserID:      userID,
		ExamID:      examID,
		QuestionIDs: questionIDs,
		Status:      models.AssignmentInProgress,
		StartedAt:   &started,
		DeadlineAt:  &deadline,
	}
	f.store.putAssignment(a)
	return a
}
