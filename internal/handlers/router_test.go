package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
	"github.com/SAP-F-2025/exam-session-service/internal/services"
	"github.com/SAP-F-2025/exam-session-service/internal/utils"
	"github.com/SAP-F-2025/exam-session-service/internal/validator"
)

// fakeParser accepts tokens of the form "<user id>:<casdoor type>"
type fakeParser struct{}

func (fakeParser) ParseJwtToken(token string) (*casdoorsdk.Claims, error) {
	id, kind, ok := strings.Cut(token, ":")
	if !ok {
		return nil, errors.New("malformed token")
	}
	return &casdoorsdk.Claims{User: casdoorsdk.User{Id: id, Type: kind, DisplayName: id}}, nil
}

type emptyUsers struct{}

func (emptyUsers) GetByID(context.Context, string) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}
func (emptyUsers) GetByIDs(context.Context, []string) ([]*models.User, error) { return nil, nil }
func (emptyUsers) HasRole(context.Context, string, models.UserRole) (bool, error) {
	return false, nil
}

// stubServices implements every service interface; unset funcs fail the call
type stubServices struct {
	initialize func(examID uint, userID string) (*models.SessionResponse, error)
	record     func(assignmentID uint, userID string, req *models.RecordViolationRequest) (*models.ViolationResult, error)
	submit     func(assignmentID uint, userID string, req *models.SubmitCodeRequest) (*models.SubmissionResult, error)
	finish     func(assignmentID uint, userID string, forced bool) (*models.FinishResult, error)
	healthErr  error
}

var errNotStubbed = errors.New("not stubbed")

func (s *stubServices) InitializeSession(_ context.Context, examID uint, userID string) (*models.SessionResponse, error) {
	if s.initialize == nil {
		return nil, errNotStubbed
	}
	return s.initialize(examID, userID)
}

func (s *stubServices) GetAssignment(context.Context, uint, services.Caller) (*models.AssignmentResponse, error) {
	return nil, services.NewNotFoundError("assignment not found")
}

func (s *stubServices) RecordViolation(_ context.Context, id uint, userID string, req *models.RecordViolationRequest) (*models.ViolationResult, error) {
	if s.record == nil {
		return nil, errNotStubbed
	}
	return s.record(id, userID, req)
}

func (s *stubServices) ListViolations(context.Context, uint, services.Caller) ([]*models.MalpracticeEvent, error) {
	return []*models.MalpracticeEvent{}, nil
}

func (s *stubServices) ProcessBrowserEvents(context.Context, uint, string, *models.BrowserEventsRequest) (*models.BrowserEventsResult, error) {
	return &models.BrowserEventsResult{}, nil
}

func (s *stubServices) CloseSession(uint) {}

func (s *stubServices) Submit(_ context.Context, id uint, userID string, req *models.SubmitCodeRequest) (*models.SubmissionResult, error) {
	if s.submit == nil {
		return nil, errNotStubbed
	}
	return s.submit(id, userID, req)
}

func (s *stubServices) ListSubmissions(context.Context, uint, services.Caller, *uint) ([]*models.Submission, error) {
	return []*models.Submission{}, nil
}

func (s *stubServices) SaveDraft(context.Context, uint, string, *models.SaveDraftRequest) error {
	return nil
}

func (s *stubServices) GetDraft(_ context.Context, _ uint, _ string, questionID uint, language string) (*models.DraftResponse, error) {
	return &models.DraftResponse{QuestionID: questionID, Language: language}, nil
}

func (s *stubServices) Finish(_ context.Context, id uint, userID string, forced bool) (*models.FinishResult, error) {
	if s.finish == nil {
		return nil, errNotStubbed
	}
	return s.finish(id, userID, forced)
}

func (s *stubServices) SweepExpired(context.Context, time.Time) (int, error) { return 0, nil }

func (s *stubServices) ListAvailable(context.Context, string) ([]*models.AvailableExam, error) {
	return []*models.AvailableExam{}, nil
}

func (s *stubServices) GetExam(_ context.Context, id uint) (*models.Exam, error) {
	return &models.Exam{ID: id}, nil
}

func (s *stubServices) AssignmentReport(_ context.Context, id uint) (*models.AssignmentReport, error) {
	return &models.AssignmentReport{Assignment: &models.ExamAssignment{ID: id}}, nil
}

func (s *stubServices) ExamSummary(_ context.Context, id uint) (*repositories.ExamStats, error) {
	return &repositories.ExamStats{ExamID: id}, nil
}

func (s *stubServices) Session() services.SessionService         { return s }
func (s *stubServices) Malpractice() services.MalpracticeService { return s }
func (s *stubServices) Integrity() services.IntegrityService     { return s }
func (s *stubServices) Submission() services.SubmissionService   { return s }
func (s *stubServices) Lifecycle() services.LifecycleService     { return s }
func (s *stubServices) Exam() services.ExamService               { return s }
func (s *stubServices) Report() services.ReportService           { return s }
func (s *stubServices) Initialize(context.Context) error         { return nil }
func (s *stubServices) HealthCheck(context.Context) error        { return s.healthErr }
func (s *stubServices) Shutdown(context.Context) error           { return nil }

func newTestRouter(stub *stubServices) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	router := gin.New()
	SetupMiddleware(router, logger)
	auth := NewAuthMiddlewareWithParser(fakeParser{}, emptyUsers{})
	NewHandlerManager(stub, logger, auth, emptyUsers{}).SetupRoutes(router)
	return router
}

func do(router *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthAndRoles(t *testing.T) {
	router := newTestRouter(&stubServices{})

	tests := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"no token", "/api/v1/exams", "", http.StatusUnauthorized},
		{"bad token", "/api/v1/exams", "garbage", http.StatusUnauthorized},
		{"student lists exams", "/api/v1/exams", "student-1:student", http.StatusOK},
		{"student reads report", "/api/v1/reports/assignments/1", "student-1:student", http.StatusForbidden},
		{"proctor reads report", "/api/v1/reports/assignments/1", "p-1:proctor", http.StatusOK},
		{"admin reads summary", "/api/v1/reports/exams/1/summary", "a-1:admin", http.StatusOK},
		{"student reads user", "/api/v1/users/x", "student-1:student", http.StatusForbidden},
		{"teacher reads missing user", "/api/v1/users/x", "t-1:teacher", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, http.MethodGet, tt.path, tt.token, "")
			if w.Code != tt.status {
				t.Errorf("GET %s = %d, want %d: %s", tt.path, w.Code, tt.status, w.Body.String())
			}
		})
	}
}

func TestStartSessionStatus(t *testing.T) {
	stub := &stubServices{}
	router := newTestRouter(stub)

	tests := []struct {
		name   string
		resp   *models.SessionResponse
		err    error
		status int
	}{
		{"created", &models.SessionResponse{AssignmentID: 7, Created: true}, nil, http.StatusCreated},
		{"existing", &models.SessionResponse{AssignmentID: 7}, nil, http.StatusOK},
		{"outside window", nil, services.NewAccessDeniedError("exam is not open for your group"), http.StatusForbidden},
		{"unknown exam", nil, services.NewNotFoundError("exam not found"), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub.initialize = func(examID uint, userID string) (*models.SessionResponse, error) {
				if examID != 3 || userID != "student-1" {
					t.Errorf("InitializeSession(%d, %q)", examID, userID)
				}
				return tt.resp, tt.err
			}
			w := do(router, http.MethodPost, "/api/v1/exams/3/session", "student-1:student", "")
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}

func TestServiceErrorMapping(t *testing.T) {
	stub := &stubServices{}
	router := newTestRouter(stub)

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"unauthorized", services.NewUnauthorizedError("not your assignment"), http.StatusUnauthorized},
		{"access denied", services.NewAccessDeniedError("question not assigned"), http.StatusForbidden},
		{"validation", services.NewValidationError(validator.ValidationErrors{{Field: "language", Rule: "language"}}), http.StatusBadRequest},
		{"judge down", services.NewJudgeUnavailableError(errors.New("timeout")), http.StatusServiceUnavailable},
		{"system", services.NewSystemError("internal error", errors.New("db")), http.StatusInternalServerError},
		{"unclassified", errors.New("raw"), http.StatusInternalServerError},
	}

	body := `{"question_id": 1, "language": "python", "code": "print(1)"}`
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub.submit = func(uint, string, *models.SubmitCodeRequest) (*models.SubmissionResult, error) {
				return nil, tt.err
			}
			w := do(router, http.MethodPost, "/api/v1/assignments/5/submissions", "student-1:student", body)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if tt.status == http.StatusServiceUnavailable && w.Header().Get("Retry-After") == "" {
				t.Error("missing Retry-After header")
			}
		})
	}
}

func TestRecordViolationPassesBody(t *testing.T) {
	stub := &stubServices{}
	router := newTestRouter(stub)

	stub.record = func(id uint, userID string, req *models.RecordViolationRequest) (*models.ViolationResult, error) {
		if id != 9 || userID != "student-1" || req.Type != models.ViolationWindowBlur {
			t.Errorf("RecordViolation(%d, %q, %+v)", id, userID, req)
		}
		return &models.ViolationResult{Count: 1, WarningsLeft: 2}, nil
	}

	w := do(router, http.MethodPost, "/api/v1/assignments/9/violations", "student-1:student", `{"type":"window_blur"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var got models.ViolationResult
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.WarningsLeft != 2 {
		t.Errorf("warnings_left = %d", got.WarningsLeft)
	}

	if w := do(router, http.MethodPost, "/api/v1/assignments/9/violations", "student-1:student", `{`); w.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d", w.Code)
	}
	if w := do(router, http.MethodPost, "/api/v1/assignments/abc/violations", "student-1:student", `{}`); w.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d", w.Code)
	}
}

func TestFinishBodyIsOptional(t *testing.T) {
	stub := &stubServices{}
	router := newTestRouter(stub)

	var gotForced []bool
	stub.finish = func(_ uint, _ string, forced bool) (*models.FinishResult, error) {
		gotForced = append(gotForced, forced)
		return &models.FinishResult{RedirectPath: models.ResultsPath(1), Status: models.AssignmentCompleted}, nil
	}

	if w := do(router, http.MethodPost, "/api/v1/assignments/4/finish", "student-1:student", ""); w.Code != http.StatusOK {
		t.Errorf("empty body status = %d: %s", w.Code, w.Body.String())
	}
	if w := do(router, http.MethodPost, "/api/v1/assignments/4/finish", "student-1:student", `{"forced":true}`); w.Code != http.StatusOK {
		t.Errorf("forced status = %d", w.Code)
	}
	if len(gotForced) != 2 || gotForced[0] || !gotForced[1] {
		t.Errorf("forced flags = %v", gotForced)
	}
}

func TestGetDraftRequiresQuestion(t *testing.T) {
	router := newTestRouter(&stubServices{})

	if w := do(router, http.MethodGet, "/api/v1/assignments/4/drafts?language=python", "student-1:student", ""); w.Code != http.StatusBadRequest {
		t.Errorf("missing question_id status = %d", w.Code)
	}
	w := do(router, http.MethodGet, "/api/v1/assignments/4/drafts?question_id=2&language=python", "student-1:student", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"language":"python"`) {
		t.Errorf("GetDraft = %d %s", w.Code, w.Body.String())
	}
}

func TestHealth(t *testing.T) {
	stub := &stubServices{}
	router := newTestRouter(stub)

	if w := do(router, http.MethodGet, "/health", "", ""); w.Code != http.StatusOK {
		t.Errorf("healthy status = %d", w.Code)
	}
	if w := do(router, http.MethodGet, "/health", "", ""); w.Header().Get("X-Request-ID") == "" {
		t.Error("missing request id header")
	}

	stub.healthErr = errors.New("db down")
	if w := do(router, http.MethodGet, "/health", "", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("unhealthy status = %d", w.Code)
	}
}
