package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-session-service/internal/cache"
	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
)

type ExamPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewExamPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.ExamRepository {
	return &ExamPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

func (e *ExamPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Exam, error) {
	var exam models.Exam
	err := e.cacheManager.Exam.CacheOrExecute(ctx, cache.ExamKey(id), &exam, cache.ExamCacheConfig.TTL, func() (any, error) {
		var dbExam models.Exam
		if err := e.db.WithContext(ctx).First(&dbExam, id).Error; err != nil {
			return nil, fmt.Errorf("failed to get exam: %w", err)
		}
		return &dbExam, nil
	})
	if err != nil {
		return nil, err
	}
	return &exam, nil
}

func (e *ExamPostgreSQL) GetByIDs(ctx context.Context, ids []uint) ([]*models.Exam, error) {
	var exams []*models.Exam
	if len(ids) == 0 {
		return exams, nil
	}
	if err := e.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("start_time ASC").
		Find(&exams).Error; err != nil {
		return nil, fmt.Errorf("failed to get exams: %w", err)
	}
	return exams, nil
}
