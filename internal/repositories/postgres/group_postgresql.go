package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
)

type GroupPostgreSQL struct {
	db *gorm.DB
}

func NewGroupPostgreSQL(db *gorm.DB) repositories.GroupRepository {
	return &GroupPostgreSQL{db: db}
}

func (g *GroupPostgreSQL) GetUserGroupIDs(ctx context.Context, userID string) ([]uint, error) {
	var ids []uint
	if err := g.db.WithContext(ctx).
		Model(&models.UserGroupMembership{}).
		Where("user_id = ?", userID).
		Pluck("group_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to get user groups: %w", err)
	}
	return ids, nil
}

func (g *GroupPostgreSQL) GetSlots(ctx context.Context, examID uint, groupIDs []uint) ([]*models.ExamGroupSlot, error) {
	var slots []*models.ExamGroupSlot
	if len(groupIDs) == 0 {
		return slots, nil
	}
	if err := g.db.WithContext(ctx).
		Where("exam_id = ? AND group_id IN ?", examID, groupIDs).
		Order("id ASC").
		Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("failed to get exam slots: %w", err)
	}
	return slots, nil
}

func (g *GroupPostgreSQL) ListSlotsForGroups(ctx context.Context, groupIDs []uint) ([]*models.ExamGroupSlot, error) {
	var slots []*models.ExamGroupSlot
	if len(groupIDs) == 0 {
		return slots, nil
	}
	if err := g.db.WithContext(ctx).
		Where("group_id IN ?", groupIDs).
		Order("exam_id ASC, id ASC").
		Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("failed to list group slots: %w", err)
	}
	return slots, nil
}
