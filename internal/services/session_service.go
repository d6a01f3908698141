package services

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/SAP-F-2025/exam-session-service/internal/events"
	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
	"github.com/SAP-F-2025/exam-session-service/internal/selection"
)

type sessionService struct {
	base
	rng   func() *rand.Rand
	limit int
}

func NewSessionService(deps Dependencies) SessionService {
	deps = deps.withDefaults()
	return &sessionService{
		base:  newBase(deps),
		rng:   deps.Rand,
		limit: deps.MalpracticeLimit,
	}
}

func (s *sessionService) InitializeSession(ctx context.Context, examID uint, userID string) (resp *models.SessionResponse, err error) {
	defer finalize(s.logger, "initialize_session", &err)

	if userID == "" {
		return nil, NewUnauthorizedError("missing user")
	}

	// An existing assignment is returned as is, even outside the window
	existing, err := s.repo.Assignment().GetByUserAndExam(ctx, userID, examID)
	if err == nil {
		return toSessionResponse(existing, false), nil
	}
	if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	groupIDs, err := s.repo.Group().GetUserGroupIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user groups: %w", err)
	}
	if len(groupIDs) == 0 {
		return nil, NewAccessDeniedError("you are not a member of any group")
	}

	exam, err := getExam(ctx, s.repo, examID)
	if err != nil {
		return nil, err
	}

	slots, err := s.repo.Group().GetSlots(ctx, examID, groupIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get exam slots: %w", err)
	}
	if len(slots) == 0 {
		return nil, NewAccessDeniedError("exam is not assigned to your group")
	}

	now := s.now()
	slot, window, ok := governingWindow(exam, slots, now)
	if !ok {
		return nil, NewAccessDeniedError("exam is not currently active for your group")
	}

	questionIDs, err := s.selectQuestions(ctx, exam)
	if err != nil {
		return nil, err
	}

	deadline := now.Add(exam.DurationValue())
	if window.End.Before(deadline) {
		deadline = window.End
	}

	assignment := &models.ExamAssignment{
		UserID:      userID,
		ExamID:      examID,
		SlotID:      &slot.ID,
		QuestionIDs: questionIDs,
		Status:      models.AssignmentInProgress,
		StartedAt:   &now,
		DeadlineAt:  &deadline,
	}

	created, err := s.repo.Assignment().CreateIfAbsent(ctx, assignment)
	if err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}
	if !created {
		// A concurrent request won the insert
		existing, err := s.repo.Assignment().GetByUserAndExam(ctx, userID, examID)
		if err != nil {
			return nil, fmt.Errorf("failed to get assignment after conflict: %w", err)
		}
		s.logger.Info("Session already initialized concurrently",
			"assignment_id", existing.ID,
			"exam_id", examID,
			"user_id", userID)
		return toSessionResponse(existing, false), nil
	}

	s.logger.Info("Exam session initialized",
		"assignment_id", assignment.ID,
		"exam_id", examID,
		"user_id", userID,
		"question_count", len(questionIDs))

	s.publish(ctx, events.SessionStarted, events.SessionStartedData{
		AssignmentID: assignment.ID,
		ExamID:       examID,
		UserID:       userID,
		QuestionIDs:  questionIDs,
		StartedAt:    now,
		DeadlineAt:   deadline,
	})

	return toSessionResponse(assignment, true), nil
}

func (s *sessionService) selectQuestions(ctx context.Context, exam *models.Exam) ([]uint, error) {
	strategy, err := selection.ForExam(exam)
	if err != nil {
		return nil, NewSystemError("exam has an invalid selection strategy", err)
	}

	bank, err := s.repo.Question().ListBank(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list question bank: %w", err)
	}

	candidates := make([]selection.Candidate, len(bank))
	for i, q := range bank {
		candidates[i] = selection.Candidate{ID: q.ID, Difficulty: q.Difficulty}
	}

	ids, err := strategy.Select(candidates, s.rng())
	if err != nil {
		return nil, NewSystemError("failed to select questions", err)
	}
	return ids, nil
}

func (s *sessionService) GetAssignment(ctx context.Context, assignmentID uint, caller Caller) (resp *models.AssignmentResponse, err error) {
	defer finalize(s.logger, "get_assignment", &err)

	assignment, err := readableAssignment(ctx, s.repo, assignmentID, caller)
	if err != nil {
		return nil, err
	}

	limit := s.limit
	if exam, err := s.repo.Exam().GetByID(ctx, assignment.ExamID); err == nil {
		limit = exam.ViolationLimit(s.limit)
	} else if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	return &models.AssignmentResponse{
		ExamAssignment:   assignment,
		RemainingSeconds: remainingSeconds(assignment, s.now()),
		WarningsLeft:     warningsLeft(assignment, limit),
	}, nil
}

func toSessionResponse(a *models.ExamAssignment, created bool) *models.SessionResponse {
	return &models.SessionResponse{
		AssignmentID: a.ID,
		QuestionIDs:  a.QuestionIDs,
		StartedAt:    a.StartedAt,
		DeadlineAt:   a.DeadlineAt,
		Created:      created,
	}
}
