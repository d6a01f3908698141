package services

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/exam-session-service/internal/events"
	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
)

type malpracticeService struct {
	base
	limit int
}

func NewMalpracticeService(deps Dependencies) MalpracticeService {
	deps = deps.withDefaults()
	return &malpracticeService{
		base:  newBase(deps),
		limit: deps.MalpracticeLimit,
	}
}

// RecordViolation appends one violation under a row lock and terminates the
// session once the exam's limit is reached
func (s *malpracticeService) RecordViolation(ctx context.Context, assignmentID uint, userID string, req *models.RecordViolationRequest) (result *models.ViolationResult, err error) {
	defer finalize(s.logger, "record_violation", &err)

	if req == nil {
		return nil, NewValidationError(errRequestRequired)
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var (
		assignment *models.ExamAssignment
		event      *models.MalpracticeEvent
		limit      int
		terminated bool
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

		exam, err := getExam(ctx, tx, a.ExamID)
		if err != nil {
			return err
		}
		limit = exam.ViolationLimit(s.limit)

		event = &models.MalpracticeEvent{
			AssignmentID: a.ID,
			Type:         req.Type,
			Details:      req.Details,
		}
		if err := tx.Malpractice().Create(ctx, event); err != nil {
			return fmt.Errorf("failed to record malpractice event: %w", err)
		}

		a.MalpracticeCount++
		if a.MalpracticeCount >= limit {
			now := s.now()
			reason := models.EndReasonTerminated
			a.Status = models.AssignmentCompleted
			a.Score = 0
			a.IsTerminated = true
			a.CompletedAt = &now
			a.EndReason = &reason
			terminated = true
		}

		if err := tx.Assignment().Update(ctx, a); err != nil {
			return fmt.Errorf("failed to update assignment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if event == nil {
		s.logger.Debug("Ignoring violation on closed assignment",
			"assignment_id", assignmentID,
			"type", req.Type)
		return closedViolationResult(assignment), nil
	}

	s.logger.Info("Malpractice recorded",
		"assignment_id", assignment.ID,
		"type", req.Type,
		"monitor_tag", req.Type.Known(),
		"count", assignment.MalpracticeCount,
		"limit", limit)

	s.publish(ctx, events.MalpracticeRecorded, events.MalpracticeRecordedData{
		AssignmentID: assignment.ID,
		ExamID:       assignment.ExamID,
		UserID:       assignment.UserID,
		Type:         string(req.Type),
		Count:        assignment.MalpracticeCount,
		Limit:        limit,
	})

	if !terminated {
		return &models.ViolationResult{
			WarningsLeft: limit - assignment.MalpracticeCount,
			Count:        assignment.MalpracticeCount,
		}, nil
	}

	s.logger.Warn("Session terminated for malpractice",
		"assignment_id", assignment.ID,
		"exam_id", assignment.ExamID,
		"user_id", assignment.UserID,
		"count", assignment.MalpracticeCount)

	s.publish(ctx, events.SessionTerminated, events.SessionTerminatedData{
		AssignmentID: assignment.ID,
		ExamID:       assignment.ExamID,
		UserID:       assignment.UserID,
		Count:        assignment.MalpracticeCount,
		TerminatedAt: *assignment.CompletedAt,
	})
	s.release(ctx, assignment.ID)

	return &models.ViolationResult{
		Terminated:   true,
		WarningsLeft: 0,
		Count:        assignment.MalpracticeCount,
		RedirectPath: stringPtr(models.ResultsPath(assignment.ExamID)),
	}, nil
}

func closedViolationResult(a *models.ExamAssignment) *models.ViolationResult {
	return &models.ViolationResult{
		Terminated:   a.IsTerminated,
		WarningsLeft: 0,
		Count:        a.MalpracticeCount,
		RedirectPath: stringPtr(models.ResultsPath(a.ExamID)),
	}
}

func (s *malpracticeService) ListViolations(ctx context.Context, assignmentID uint, caller Caller) (list []*models.MalpracticeEvent, err error) {
	defer finalize(s.logger, "list_violations", &err)

	if _, err := readableAssignment(ctx, s.repo, assignmentID, caller); err != nil {
		return nil, err
	}

	list, err = s.repo.Malpractice().ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list violations: %w", err)
	}
	return list, nil
}
