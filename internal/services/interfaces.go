package services

import (
	"context"
	"time"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
)

// Caller identifies who is invoking an operation
type Caller struct {
	UserID string
	Role   models.UserRole
}

// IsStaff reports whether the caller may read other users' sessions
func (c Caller) IsStaff() bool {
	switch c.Role {
	case models.RoleTeacher, models.RoleProctor, models.RoleAdmin:
		return true
	}
	return false
}

type SessionService interface {
	// InitializeSession creates or returns the caller's assignment for an exam
	InitializeSession(ctx context.Context, examID uint, userID string) (*models.SessionResponse, error)
	GetAssignment(ctx context.Context, assignmentID uint, caller Caller) (*models.AssignmentResponse, error)
}

type MalpracticeService interface {
	RecordViolation(ctx context.Context, assignmentID uint, userID string, req *models.RecordViolationRequest) (*models.ViolationResult, error)
	ListViolations(ctx context.Context, assignmentID uint, caller Caller) ([]*models.MalpracticeEvent, error)
}

type IntegrityService interface {
	// ProcessBrowserEvents runs raw page events through the session's monitor
	// and records every violation it raises
	ProcessBrowserEvents(ctx context.Context, assignmentID uint, userID string, req *models.BrowserEventsRequest) (*models.BrowserEventsResult, error)
	CloseSession(assignmentID uint)
}

type SubmissionService interface {
	Submit(ctx context.Context, assignmentID uint, userID string, req *models.SubmitCodeRequest) (*models.SubmissionResult, error)
	ListSubmissions(ctx context.Context, assignmentID uint, caller Caller, questionID *uint) ([]*models.Submission, error)
	SaveDraft(ctx context.Context, assignmentID uint, userID string, req *models.SaveDraftRequest) error
	GetDraft(ctx context.Context, assignmentID uint, userID string, questionID uint, language string) (*models.DraftResponse, error)
}

type LifecycleService interface {
	Finish(ctx context.Context, assignmentID uint, userID string, forced bool) (*models.FinishResult, error)
	// SweepExpired completes every in-progress assignment whose deadline passed before now
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

type ExamService interface {
	ListAvailable(ctx context.Context, userID string) ([]*models.AvailableExam, error)
	GetExam(ctx context.Context, examID uint) (*models.Exam, error)
}

type ReportService interface {
	AssignmentReport(ctx context.Context, assignmentID uint) (*models.AssignmentReport, error)
	ExamSummary(ctx context.Context, examID uint) (*repositories.ExamStats, error)
}

// ServiceManager wires and owns every service
type ServiceManager interface {
	Session() SessionService
	Malpractice() MalpracticeService
	Integrity() IntegrityService
	Submission() SubmissionService
	Lifecycle() LifecycleService
	Exam() ExamService
	Report() ReportService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
