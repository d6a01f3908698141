package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
)

type MalpracticePostgreSQL struct {
	db *gorm.DB
}

func NewMalpracticePostgreSQL(db *gorm.DB) repositories.MalpracticeRepository {
	return &MalpracticePostgreSQL{db: db}
}

func (m *MalpracticePostgreSQL) Create(ctx context.Context, event *models.MalpracticeEvent) error {
	if err := m.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to create malpractice event: %w", err)
	}
	return nil
}

func (m *MalpracticePostgreSQL) ListByAssignment(ctx context.Context, assignmentID uint) ([]*models.MalpracticeEvent, error) {
	var events []*models.MalpracticeEvent
	if err := m.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("created_at ASC, id ASC").
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list malpractice events: %w", err)
	}
	return events, nil
}
