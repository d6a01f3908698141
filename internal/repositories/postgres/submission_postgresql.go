package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
)

type SubmissionPostgreSQL struct {
	db *gorm.DB
}

func NewSubmissionPostgreSQL(db *gorm.DB) repositories.SubmissionRepository {
	return &SubmissionPostgreSQL{db: db}
}

func (s *SubmissionPostgreSQL) Create(ctx context.Context, submission *models.Submission) error {
	if err := s.db.WithContext(ctx).Create(submission).Error; err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

func (s *SubmissionPostgreSQL) List(ctx context.Context, filters repositories.SubmissionFilters) ([]*models.Submission, error) {
	var submissions []*models.Submission
	query := s.db.WithContext(ctx).Where("assignment_id = ?", filters.AssignmentID)
	if filters.QuestionID != nil {
		query = query.Where("question_id = ?", *filters.QuestionID)
	}
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if err := query.Order("created_at DESC, id DESC").Find(&submissions).Error; err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return submissions, nil
}

func (s *SubmissionPostgreSQL) GetPassedQuestionIDs(ctx context.Context, assignmentID uint) ([]uint, error) {
	var ids []uint
	if err := s.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("assignment_id = ? AND verdict = ?", assignmentID, models.VerdictPassed).
		Distinct().
		Order("question_id ASC").
		Pluck("question_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to get passed questions: %w", err)
	}
	return ids, nil
}
