package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
)

type ExamRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Exam, error)
	GetByIDs(ctx context.Context, ids []uint) ([]*models.Exam, error)
}

type GroupRepository interface {
	// GetUserGroupIDs returns every group the user belongs to
	GetUserGroupIDs(ctx context.Context, userID string) ([]uint, error)
	// GetSlots returns the slots of an exam that target any of the given groups
	GetSlots(ctx context.Context, examID uint, groupIDs []uint) ([]*models.ExamGroupSlot, error)
	// ListSlotsForGroups returns slots of every exam targeting any of the given groups
	ListSlotsForGroups(ctx context.Context, groupIDs []uint) ([]*models.ExamGroupSlot, error)
}

type QuestionRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Question, error)
	// ListBank returns every question with only id and difficulty populated
	ListBank(ctx context.Context) ([]*models.Question, error)
	GetHiddenTestCases(ctx context.Context, questionID uint) ([]*models.TestCase, error)
	GetDifficulties(ctx context.Context, ids []uint) (map[uint]models.DifficultyLevel, error)
}

type AssignmentRepository interface {
	// CreateIfAbsent inserts the assignment unless one exists for (user_id, exam_id).
	// It reports whether a row was inserted.
	CreateIfAbsent(ctx context.Context, assignment *models.ExamAssignment) (bool, error)
	GetByID(ctx context.Context, id uint) (*models.ExamAssignment, error)
	// GetByIDForUpdate reads the row with SELECT ... FOR UPDATE. Only meaningful inside WithTransaction.
	GetByIDForUpdate(ctx context.Context, id uint) (*models.ExamAssignment, error)
	GetByUserAndExam(ctx context.Context, userID string, examID uint) (*models.ExamAssignment, error)
	ListByUser(ctx context.Context, userID string) ([]*models.ExamAssignment, error)
	Update(ctx context.Context, assignment *models.ExamAssignment) error
	UpdateScore(ctx context.Context, id uint, score float64) error
	// ListExpired returns in-progress assignments whose deadline is before now
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.ExamAssignment, error)
	GetExamStats(ctx context.Context, examID uint) (*ExamStats, error)
}

type MalpracticeRepository interface {
	Create(ctx context.Context, event *models.MalpracticeEvent) error
	ListByAssignment(ctx context.Context, assignmentID uint) ([]*models.MalpracticeEvent, error)
}

type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	List(ctx context.Context, filters SubmissionFilters) ([]*models.Submission, error)
	// GetPassedQuestionIDs returns the distinct question ids with at least one passed submission
	GetPassedQuestionIDs(ctx context.Context, assignmentID uint) ([]uint, error)
}

type SubmissionFilters struct {
	AssignmentID uint  `json:"assignment_id"`
	QuestionID   *uint `json:"question_id"`
	Limit        int   `json:"limit"`
}

type ExamStats struct {
	ExamID       uint    `json:"exam_id"`
	Total        int64   `json:"total"`
	NotStarted   int64   `json:"not_started"`
	InProgress   int64   `json:"in_progress"`
	Completed    int64   `json:"completed"`
	Terminated   int64   `json:"terminated"`
	AverageScore float64 `json:"average_score"`
}
