package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/SAP-F-2025/exam-session-service/internal/events"
	"github.com/SAP-F-2025/exam-session-service/internal/grading"
	"github.com/SAP-F-2025/exam-session-service/internal/judge"
	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
)

type submissionService struct {
	base
	judge  judge.Client
	grader *grading.Engine
}

func NewSubmissionService(deps Dependencies) SubmissionService {
	deps = deps.withDefaults()
	return &submissionService{
		base:   newBase(deps),
		judge:  deps.Judge,
		grader: deps.Grader,
	}
}

// Submit judges code against the question's hidden tests, appends the result
// and, on a pass, recomputes the assignment score from its whole history
func (s *submissionService) Submit(ctx context.Context, assignmentID uint, userID string, req *models.SubmitCodeRequest) (result *models.SubmissionResult, err error) {
	defer finalize(s.logger, "submit", &err)

	if req == nil {
		return nil, NewValidationError(errRequestRequired)
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	assignment, err := ownedAssignment(ctx, s.repo, assignmentID, userID)
	if err != nil {
		return nil, err
	}

	if assignment.IsClosed() || s.pastDeadline(assignment) {
		s.logger.Debug("Ignoring submission on closed assignment",
			"assignment_id", assignmentID,
			"status", assignment.Status)
		return &models.SubmissionResult{
			Accepted: false,
			Score:    assignment.Score,
			Status:   assignment.Status,
		}, nil
	}

	if !assignment.HasQuestion(req.QuestionID) {
		return nil, NewAccessDeniedError("question is not part of this assignment")
	}

	question, err := s.repo.Question().GetByID(ctx, req.QuestionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, NewNotFoundError("question not found")
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	testCases, err := s.repo.Question().GetHiddenTestCases(ctx, question.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get test cases: %w", err)
	}

	resp, err := s.judge.Execute(ctx, buildJudgeRequest(question, testCases, req))
	if err != nil {
		if errors.Is(err, judge.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("Judge unavailable",
				"assignment_id", assignmentID,
				"question_id", req.QuestionID,
				"error", err)
			return nil, NewJudgeUnavailableError(err)
		}
		return nil, fmt.Errorf("failed to execute submission: %w", err)
	}

	outcome := judge.Evaluate(resp, len(testCases))

	submission := &models.Submission{
		AssignmentID:    assignment.ID,
		QuestionID:      req.QuestionID,
		Language:        req.Language,
		Code:            req.Code,
		Verdict:         outcome.Verdict,
		TestCasesPassed: outcome.Passed,
		TestCasesTotal:  outcome.Total,
	}
	if outcome.Details != "" {
		submission.Details = stringPtr(outcome.Details)
	}

	current, recorded, err := s.record(ctx, submission)
	if err != nil {
		return nil, err
	}
	if !recorded {
		s.logger.Info("Discarding judged submission, session closed while judging",
			"assignment_id", assignment.ID,
			"question_id", req.QuestionID,
			"status", current.Status)
		return &models.SubmissionResult{
			Accepted: false,
			Score:    current.Score,
			Status:   current.Status,
		}, nil
	}
	score, status := current.Score, current.Status

	s.logger.Info("Submission judged",
		"submission_id", submission.ID,
		"assignment_id", assignment.ID,
		"question_id", req.QuestionID,
		"verdict", outcome.Verdict,
		"passed", outcome.Passed,
		"total", outcome.Total)

	s.publish(ctx, events.SubmissionJudged, events.SubmissionJudgedData{
		SubmissionID: submission.ID,
		AssignmentID: assignment.ID,
		QuestionID:   req.QuestionID,
		Verdict:      string(outcome.Verdict),
		Passed:       outcome.Passed,
		Total:        outcome.Total,
		Score:        score,
	})

	return &models.SubmissionResult{
		SubmissionID:    submission.ID,
		Accepted:        true,
		Verdict:         outcome.Verdict,
		Score:           score,
		TestCasesPassed: outcome.Passed,
		TestCasesTotal:  outcome.Total,
		Details:         submission.Details,
		Status:          status,
	}, nil
}

// record appends the submission under the row lock and, on a pass, recomputes
// the score from every distinct passed question. Nothing is written when the
// session closed while the code was being judged.
func (s *submissionService) record(ctx context.Context, submission *models.Submission) (*models.ExamAssignment, bool, error) {
	var (
		current  *models.ExamAssignment
		recorded bool
	)

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		a, err := tx.Assignment().GetByIDForUpdate(ctx, submission.AssignmentID)
		if err != nil {
			return fmt.Errorf("failed to lock assignment: %w", err)
		}
		current = a
		if a.IsClosed() {
			return nil
		}

		if err := tx.Submission().Create(ctx, submission); err != nil {
			return fmt.Errorf("failed to save submission: %w", err)
		}
		recorded = true

		if submission.Verdict != models.VerdictPassed {
			return nil
		}

		exam, err := getExam(ctx, tx, a.ExamID)
		if err != nil {
			return err
		}

		passed, err := tx.Submission().GetPassedQuestionIDs(ctx, a.ID)
		if err != nil {
			return fmt.Errorf("failed to get passed questions: %w", err)
		}

		difficulties, err := tx.Question().GetDifficulties(ctx, passed)
		if err != nil {
			return fmt.Errorf("failed to get difficulties: %w", err)
		}

		a.Score = s.grader.ScoreExam(exam, passed, difficulties)
		if err := tx.Assignment().UpdateScore(ctx, a.ID, a.Score); err != nil {
			return fmt.Errorf("failed to update score: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return current, recorded, nil
}

func (s *submissionService) pastDeadline(a *models.ExamAssignment) bool {
	return a.DeadlineAt != nil && s.now().After(*a.DeadlineAt)
}

func buildJudgeRequest(q *models.Question, cases []*models.TestCase, req *models.SubmitCodeRequest) *judge.Request {
	tests := make([]judge.TestCase, len(cases))
	for i, tc := range cases {
		tests[i] = judge.TestCase{Stdin: tc.Input, ExpectedStdout: tc.ExpectedOutput}
	}
	return &judge.Request{
		Language:      req.Language,
		Source:        req.Code,
		TimeLimitMs:   q.TimeLimitMs,
		MemoryLimitMB: q.MemoryLimitMb,
		Tests:         tests,
	}
}

func (s *submissionService) ListSubmissions(ctx context.Context, assignmentID uint, caller Caller, questionID *uint) (list []*models.Submission, err error) {
	defer finalize(s.logger, "list_submissions", &err)

	if _, err := readableAssignment(ctx, s.repo, assignmentID, caller); err != nil {
		return nil, err
	}

	list, err = s.repo.Submission().List(ctx, repositories.SubmissionFilters{
		AssignmentID: assignmentID,
		QuestionID:   questionID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return list, nil
}

func (s *submissionService) SaveDraft(ctx context.Context, assignmentID uint, userID string, req *models.SaveDraftRequest) (err error) {
	defer finalize(s.logger, "save_draft", &err)

	if req == nil {
		return NewValidationError(errRequestRequired)
	}
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	assignment, err := ownedAssignment(ctx, s.repo, assignmentID, userID)
	if err != nil {
		return err
	}
	if assignment.IsClosed() {
		return NewAccessDeniedError("assignment is already completed")
	}
	if !assignment.HasQuestion(req.QuestionID) {
		return NewAccessDeniedError("question is not part of this assignment")
	}

	if err := s.drafts.Save(ctx, assignmentID, req.QuestionID, req.Language, req.Code); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

func (s *submissionService) GetDraft(ctx context.Context, assignmentID uint, userID string, questionID uint, language string) (resp *models.DraftResponse, err error) {
	defer finalize(s.logger, "get_draft", &err)

	if err := s.validator.Var(language, "required,language"); err != nil {
		return nil, err
	}

	assignment, err := ownedAssignment(ctx, s.repo, assignmentID, userID)
	if err != nil {
		return nil, err
	}
	if !assignment.HasQuestion(questionID) {
		return nil, NewAccessDeniedError("question is not part of this assignment")
	}

	resp = &models.DraftResponse{QuestionID: questionID, Language: language}
	if assignment.IsClosed() {
		return resp, nil
	}

	code, found, err := s.drafts.Get(ctx, assignmentID, questionID, language)
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}
	resp.Code, resp.Found = code, found
	return resp, nil
}
