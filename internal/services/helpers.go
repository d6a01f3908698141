package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/SAP-F-2025/exam-session-service/internal/cache"
	"github.com/SAP-F-2025/exam-session-service/internal/events"
	"github.com/SAP-F-2025/exam-session-service/internal/grading"
	"github.com/SAP-F-2025/exam-session-service/internal/integrity"
	"github.com/SAP-F-2025/exam-session-service/internal/judge"
	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
	"github.com/SAP-F-2025/exam-session-service/internal/validator"
)

// Dependencies carries the collaborators shared by the services
type Dependencies struct {
	Repo      repositories.Repository
	Publisher events.EventPublisher
	Judge     judge.Client
	Drafts    *cache.DraftStore
	Monitors  *integrity.Registry
	Grader    *grading.Engine
	Validator *validator.Validator
	Logger    *slog.Logger

	// MalpracticeLimit applies to exams without their own max_violations
	MalpracticeLimit int

	Now  func() time.Time
	Rand func() *rand.Rand
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Validator == nil {
		d.Validator = validator.New()
	}
	if d.Monitors == nil {
		d.Monitors = integrity.NewRegistry()
	}
	if d.Grader == nil {
		d.Grader = grading.NewEngine(d.Logger)
	}
	if d.Drafts == nil {
		d.Drafts = cache.NewDraftStore(cache.NewCacheManager(nil), 0)
	}
	if d.MalpracticeLimit <= 0 {
		d.MalpracticeLimit = models.DefaultMaxViolations
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Rand == nil {
		d.Rand = func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
	}
	return d
}

// base is embedded by every service
type base struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
	monitors  *integrity.Registry
	drafts    *cache.DraftStore
	now       func() time.Time
}

func newBase(d Dependencies) base {
	return base{
		repo:      d.Repo,
		publisher: d.Publisher,
		logger:    d.Logger,
		validator: d.Validator,
		monitors:  d.Monitors,
		drafts:    d.Drafts,
		now:       d.Now,
	}
}

// publish emits an event after the state change is durable. Failures are logged only.
func (b *base) publish(ctx context.Context, eventType events.EventType, data any) {
	if b.publisher == nil {
		return
	}
	if err := b.publisher.Publish(ctx, events.NewEvent(eventType, data)); err != nil {
		b.logger.Warn("Failed to publish event",
			"event_type", eventType,
			"error", err)
	}
}

// release drops the per-session resources of a closed assignment
func (b *base) release(ctx context.Context, assignmentID uint) {
	b.monitors.Close(assignmentID)
	if err := b.drafts.Clear(ctx, assignmentID); err != nil {
		b.logger.Warn("Failed to clear drafts",
			"assignment_id", assignmentID,
			"error", err)
	}
}

// ownedAssignment loads an assignment the caller must own
func ownedAssignment(ctx context.Context, repo repositories.Repository, assignmentID uint, userID string) (*models.ExamAssignment, error) {
	assignment, err := repo.Assignment().GetByID(ctx, assignmentID)
	return checkOwner(assignment, err, userID)
}

// lockOwnedAssignment is ownedAssignment with SELECT ... FOR UPDATE
func lockOwnedAssignment(ctx context.Context, tx repositories.Repository, assignmentID uint, userID string) (*models.ExamAssignment, error) {
	assignment, err := tx.Assignment().GetByIDForUpdate(ctx, assignmentID)
	return checkOwner(assignment, err, userID)
}

func checkOwner(assignment *models.ExamAssignment, err error, userID string) (*models.ExamAssignment, error) {
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, NewNotFoundError("assignment not found")
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	if !assignment.OwnedBy(userID) {
		return nil, NewUnauthorizedError("assignment belongs to another user")
	}
	return assignment, nil
}

// readableAssignment loads an assignment visible to its owner and to staff
func readableAssignment(ctx context.Context, repo repositories.Repository, assignmentID uint, caller Caller) (*models.ExamAssignment, error) {
	assignment, err := repo.Assignment().GetByID(ctx, assignmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, NewNotFoundError("assignment not found")
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	if !assignment.OwnedBy(caller.UserID) && !caller.IsStaff() {
		return nil, NewUnauthorizedError("assignment belongs to another user")
	}
	return assignment, nil
}

func getExam(ctx context.Context, repo repositories.Repository, examID uint) (*models.Exam, error) {
	exam, err := repo.Exam().GetByID(ctx, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, NewNotFoundError("exam not found")
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	return exam, nil
}

// governingWindow picks, among the slot windows containing now, the one that ends last
func governingWindow(exam *models.Exam, slots []*models.ExamGroupSlot, now time.Time) (*models.ExamGroupSlot, models.Window, bool) {
	var (
		best   *models.ExamGroupSlot
		window models.Window
	)
	for _, slot := range slots {
		w := slot.EffectiveWindow(exam)
		if !w.Contains(now) {
			continue
		}
		if best == nil || w.End.After(window.End) {
			best, window = slot, w
		}
	}
	return best, window, best != nil
}

// displayWindow is the active window when there is one, otherwise the next
// upcoming window, otherwise the one that ended last
func displayWindow(exam *models.Exam, slots []*models.ExamGroupSlot, now time.Time) (models.Window, bool) {
	if _, w, ok := governingWindow(exam, slots, now); ok {
		return w, true
	}

	var (
		upcoming, past       models.Window
		hasUpcoming, hasPast bool
	)
	for _, slot := range slots {
		w := slot.EffectiveWindow(exam)
		if w.Start.After(now) {
			if !hasUpcoming || w.Start.Before(upcoming.Start) {
				upcoming, hasUpcoming = w, true
			}
			continue
		}
		if !hasPast || w.End.After(past.End) {
			past, hasPast = w, true
		}
	}
	if hasUpcoming {
		return upcoming, false
	}
	if hasPast {
		return past, false
	}
	return models.Window{Start: exam.StartTime, End: exam.EndTime}, false
}

func warningsLeft(assignment *models.ExamAssignment, limit int) int {
	if assignment.IsClosed() {
		return 0
	}
	return max(limit-assignment.MalpracticeCount, 0)
}

func remainingSeconds(assignment *models.ExamAssignment, now time.Time) int64 {
	if assignment.IsClosed() || assignment.DeadlineAt == nil {
		return 0
	}
	return max(int64(assignment.DeadlineAt.Sub(now)/time.Second), 0)
}

func stringPtr(s string) *string {
	return &s
}
