package services

import (
	"context"
	"fmt"
	"time"

	"github.com/SAP-F-2025/exam-session-service/internal/events"
	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
)

const sweepBatchSize = 100

type lifecycleService struct {
	base
}

func NewLifecycleService(deps Dependencies) LifecycleService {
	deps = deps.withDefaults()
	return &lifecycleService{base: newBase(deps)}
}

// Finish completes the caller's assignment. Calling it again returns the same redirect.
func (s *lifecycleService) Finish(ctx context.Context, assignmentID uint, userID string, forced bool) (result *models.FinishResult, err error) {
	defer finalize(s.logger, "finish", &err)

	var (
		assignment *models.ExamAssignment
		changed    bool
	)

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		a, err := lockOwnedAssignment(ctx, tx, assignmentID, userID)
		if err != nil {
			return err
		}
		assignment = a

		if a.IsClosed() {
			return nil
		}

		now := s.now()
		if forced && !a.IsTerminated {
			exam, err := getExam(ctx, tx, a.ExamID)
			if err != nil {
				return err
			}
			if !timeExpired(a, exam, now) {
				return NewAccessDeniedError("time has not expired")
			}
		}

		reason := models.EndReasonFinished
		if forced {
			reason = models.EndReasonForced
		}
		a.Status = models.AssignmentCompleted
		a.CompletedAt = &now
		a.EndReason = &reason

		if err := tx.Assignment().Update(ctx, a); err != nil {
			return fmt.Errorf("failed to complete assignment: %w", err)
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.logger.Info("Exam session finished",
			"assignment_id", assignment.ID,
			"exam_id", assignment.ExamID,
			"user_id", assignment.UserID,
			"forced", forced)
		s.completed(ctx, assignment)
	}

	return &models.FinishResult{
		RedirectPath: models.ResultsPath(assignment.ExamID),
		Status:       assignment.Status,
		EndReason:    assignment.EndReason,
		Score:        assignment.Score,
	}, nil
}

// timeExpired reports whether the session may be force-finished on the server's clock
func timeExpired(a *models.ExamAssignment, exam *models.Exam, now time.Time) bool {
	if a.DeadlineAt != nil && !now.Before(*a.DeadlineAt) {
		return true
	}
	if a.StartedAt == nil {
		return false
	}
	return now.Sub(*a.StartedAt) >= exam.DurationValue()
}

// SweepExpired closes in-progress sessions whose deadline has passed. Each row
// is re-checked under its own lock so a concurrent finish wins cleanly.
func (s *lifecycleService) SweepExpired(ctx context.Context, now time.Time) (swept int, err error) {
	defer finalize(s.logger, "sweep_expired", &err)

	for {
		batch, err := s.repo.Assignment().ListExpired(ctx, now, sweepBatchSize)
		if err != nil {
			return swept, fmt.Errorf("failed to list expired assignments: %w", err)
		}

		closed := 0
		for _, candidate := range batch {
			ok, err := s.expire(ctx, candidate.ID, now)
			if err != nil {
				s.logger.Error("Failed to expire assignment",
					"assignment_id", candidate.ID,
					"error", err)
				continue
			}
			if ok {
				closed++
			}
		}
		swept += closed

		if len(batch) < sweepBatchSize || closed == 0 {
			break
		}
	}

	if swept > 0 {
		s.logger.Info("Expired sessions swept", "count", swept)
	}
	return swept, nil
}

func (s *lifecycleService) expire(ctx context.Context, assignmentID uint, now time.Time) (bool, error) {
	var assignment *models.ExamAssignment

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		a, err := tx.Assignment().GetByIDForUpdate(ctx, assignmentID)
		if err != nil {
			return err
		}
		if a.IsClosed() || a.DeadlineAt == nil || !a.DeadlineAt.Before(now) {
			return nil
		}

		reason := models.EndReasonExpired
		a.Status = models.AssignmentCompleted
		a.CompletedAt = &now
		a.EndReason = &reason
		if err := tx.Assignment().Update(ctx, a); err != nil {
			return err
		}
		assignment = a
		return nil
	})
	if err != nil || assignment == nil {
		return false, err
	}

	s.completed(ctx, assignment)
	return true, nil
}

func (s *lifecycleService) completed(ctx context.Context, a *models.ExamAssignment) {
	reason := ""
	if a.EndReason != nil {
		reason = string(*a.EndReason)
	}
	s.publish(ctx, events.SessionFinished, events.SessionFinishedData{
		AssignmentID: a.ID,
		ExamID:       a.ExamID,
		UserID:       a.UserID,
		Score:        a.Score,
		EndReason:    reason,
		CompletedAt:  *a.CompletedAt,
	})
	s.release(ctx, a.ID)
}
