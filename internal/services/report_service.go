package services

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
)

type reportService struct {
	base
}

// NewReportService builds the staff-facing read models. Role checks happen in the router.
func NewReportService(deps Dependencies) ReportService {
	deps = deps.withDefaults()
	return &reportService{base: newBase(deps)}
}

func (s *reportService) AssignmentReport(ctx context.Context, assignmentID uint) (report *models.AssignmentReport, err error) {
	defer finalize(s.logger, "assignment_report", &err)

	assignment, err := s.repo.Assignment().GetByID(ctx, assignmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, NewNotFoundError("assignment not found")
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	violations, err := s.repo.Malpractice().ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list violations: %w", err)
	}

	submissions, err := s.repo.Submission().List(ctx, repositories.SubmissionFilters{AssignmentID: assignmentID})
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	report = &models.AssignmentReport{
		Assignment:  assignment,
		Violations:  violations,
		Submissions: submissions,
	}

	// The identity provider is optional for a report
	if user, err := s.repo.User().GetByID(ctx, assignment.UserID); err == nil {
		report.User = user
	} else {
		s.logger.Warn("Failed to resolve report user",
			"assignment_id", assignmentID,
			"user_id", assignment.UserID,
			"error", err)
	}

	return report, nil
}

func (s *reportService) ExamSummary(ctx context.Context, examID uint) (stats *repositories.ExamStats, err error) {
	defer finalize(s.logger, "exam_summary", &err)

	if _, err := getExam(ctx, s.repo, examID); err != nil {
		return nil, err
	}

	stats, err = s.repo.Assignment().GetExamStats(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("failed to get exam stats: %w", err)
	}
	return stats, nil
}
