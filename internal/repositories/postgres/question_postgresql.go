package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-session-service/internal/cache"
	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
)

type QuestionPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewQuestionPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.QuestionRepository {
	return &QuestionPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

func (q *QuestionPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	var question models.Question
	err := q.cacheManager.Question.CacheOrExecute(ctx, cache.QuestionKey(id), &question, cache.QuestionCacheConfig.TTL, func() (any, error) {
		var dbQuestion models.Question
		if err := q.db.WithContext(ctx).First(&dbQuestion, id).Error; err != nil {
			return nil, fmt.Errorf("failed to get question: %w", err)
		}
		return &dbQuestion, nil
	})
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (q *QuestionPostgreSQL) ListBank(ctx context.Context) ([]*models.Question, error) {
	var questions []*models.Question
	if err := q.db.WithContext(ctx).
		Select("id", "difficulty").
		Order("id ASC").
		Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to list question bank: %w", err)
	}
	return questions, nil
}

// GetHiddenTestCases returns the cases used for judging, in their display order
func (q *QuestionPostgreSQL) GetHiddenTestCases(ctx context.Context, questionID uint) ([]*models.TestCase, error) {
	var cases []*models.TestCase
	if err := q.db.WithContext(ctx).
		Where("question_id = ? AND is_hidden = ?", questionID, true).
		Order(`"order" ASC, id ASC`).
		Find(&cases).Error; err != nil {
		return nil, fmt.Errorf("failed to get test cases: %w", err)
	}
	return cases, nil
}

func (q *QuestionPostgreSQL) GetDifficulties(ctx context.Context, ids []uint) (map[uint]models.DifficultyLevel, error) {
	result := make(map[uint]models.DifficultyLevel, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var rows []struct {
		ID         uint
		Difficulty models.DifficultyLevel
	}
	if err := q.db.WithContext(ctx).
		Model(&models.Question{}).
		Select("id", "difficulty").
		Where("id IN ?", ids).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get question difficulties: %w", err)
	}

	for _, row := range rows {
		result[row.ID] = row.Difficulty
	}
	return result, nil
}
