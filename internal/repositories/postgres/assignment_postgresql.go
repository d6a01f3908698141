package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/exam-session-service/internal/cache"
	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
)

type AssignmentPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewAssignmentPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.AssignmentRepository {
	return &AssignmentPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

func (a *AssignmentPostgreSQL) CreateIfAbsent(ctx context.Context, assignment *models.ExamAssignment) (bool, error) {
	result := a.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "exam_id"}},
			DoNothing: true,
		}).
		Create(assignment)
	if result.Error != nil {
		if repositories.IsUniqueViolation(result.Error) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create assignment: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		cache.InvalidateExamStats(ctx, a.cacheManager, assignment.ExamID)
	}
	return result.RowsAffected > 0, nil
}

func (a *AssignmentPostgreSQL) GetByID(ctx context.Context, id uint) (*models.ExamAssignment, error) {
	var assignment models.ExamAssignment
	if err := a.db.WithContext(ctx).First(&assignment, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return &assignment, nil
}

func (a *AssignmentPostgreSQL) GetByIDForUpdate(ctx context.Context, id uint) (*models.ExamAssignment, error) {
	var assignment models.ExamAssignment
	if err := a.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&assignment, id).Error; err != nil {
		return nil, fmt.Errorf("failed to lock assignment: %w", err)
	}
	return &assignment, nil
}

func (a *AssignmentPostgreSQL) GetByUserAndExam(ctx context.Context, userID string, examID uint) (*models.ExamAssignment, error) {
	var assignment models.ExamAssignment
	if err := a.db.WithContext(ctx).
		Where("user_id = ? AND exam_id = ?", userID, examID).
		First(&assignment).Error; err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return &assignment, nil
}

func (a *AssignmentPostgreSQL) ListByUser(ctx context.Context, userID string) ([]*models.ExamAssignment, error) {
	var assignments []*models.ExamAssignment
	if err := a.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return assignments, nil
}

func (a *AssignmentPostgreSQL) Update(ctx context.Context, assignment *models.ExamAssignment) error {
	if err := a.db.WithContext(ctx).Save(assignment).Error; err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}
	cache.InvalidateExamStats(ctx, a.cacheManager, assignment.ExamID)
	return nil
}

func (a *AssignmentPostgreSQL) UpdateScore(ctx context.Context, id uint, score float64) error {
	result := a.db.WithContext(ctx).
		Model(&models.ExamAssignment{}).
		Where("id = ?", id).
		Update("score", score)
	if result.Error != nil {
		return fmt.Errorf("failed to update score: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (a *AssignmentPostgreSQL) ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.ExamAssignment, error) {
	var assignments []*models.ExamAssignment
	query := a.db.WithContext(ctx).
		Where("status = ? AND deadline_at IS NOT NULL AND deadline_at < ?", models.AssignmentInProgress, now).
		Order("deadline_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("failed to list expired assignments: %w", err)
	}
	return assignments, nil
}

func (a *AssignmentPostgreSQL) GetExamStats(ctx context.Context, examID uint) (*repositories.ExamStats, error) {
	var stats repositories.ExamStats
	err := a.cacheManager.Stats.CacheOrExecute(ctx, cache.ExamSummaryKey(examID), &stats, cache.StatsCacheConfig.TTL, func() (any, error) {
		var dbStats repositories.ExamStats
		if err := a.db.WithContext(ctx).Raw(`
			SELECT
				? AS exam_id,
				COUNT(*) AS total,
				COUNT(*) FILTER (WHERE status = ?) AS not_started,
				COUNT(*) FILTER (WHERE status = ?) AS in_progress,
				COUNT(*) FILTER (WHERE status = ?) AS completed,
				COUNT(*) FILTER (WHERE is_terminated) AS terminated,
				COALESCE(AVG(score) FILTER (WHERE status = ?), 0) AS average_score
			FROM exam_assignments
			WHERE exam_id = ?`,
			examID,
			models.AssignmentNotStarted,
			models.AssignmentInProgress,
			models.AssignmentCompleted,
			models.AssignmentCompleted,
			examID,
		).Scan(&dbStats).Error; err != nil {
			return nil, fmt.Errorf("failed to get exam stats: %w", err)
		}
		return &dbStats, nil
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
