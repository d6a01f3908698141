package services

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
)

type examService struct {
	base
}

func NewExamService(deps Dependencies) ExamService {
	deps = deps.withDefaults()
	return &examService{base: newBase(deps)}
}

// ListAvailable returns every exam scheduled for one of the user's groups,
// with the window that applies to the user and their assignment if any
func (s *examService) ListAvailable(ctx context.Context, userID string) (list []*models.AvailableExam, err error) {
	defer finalize(s.logger, "list_available_exams", &err)

	groupIDs, err := s.repo.Group().GetUserGroupIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user groups: %w", err)
	}
	if len(groupIDs) == 0 {
		return []*models.AvailableExam{}, nil
	}

	slots, err := s.repo.Group().ListSlotsForGroups(ctx, groupIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}

	slotsByExam := make(map[uint][]*models.ExamGroupSlot)
	examIDs := make([]uint, 0)
	for _, slot := range slots {
		if _, ok := slotsByExam[slot.ExamID]; !ok {
			examIDs = append(examIDs, slot.ExamID)
		}
		slotsByExam[slot.ExamID] = append(slotsByExam[slot.ExamID], slot)
	}
	if len(examIDs) == 0 {
		return []*models.AvailableExam{}, nil
	}

	exams, err := s.repo.Exam().GetByIDs(ctx, examIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get exams: %w", err)
	}

	assignments, err := s.repo.Assignment().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	byExam := make(map[uint]*models.ExamAssignment, len(assignments))
	for _, a := range assignments {
		byExam[a.ExamID] = a
	}

	now := s.now()
	list = make([]*models.AvailableExam, 0, len(exams))
	for _, exam := range exams {
		window, active := displayWindow(exam, slotsByExam[exam.ID], now)
		item := &models.AvailableExam{
			Exam:   exam,
			Window: window,
			Active: active,
		}
		if a, ok := byExam[exam.ID]; ok {
			id := a.ID
			item.AssignmentID = &id
			item.Status = a.Status
		}
		list = append(list, item)
	}
	return list, nil
}

func (s *examService) GetExam(ctx context.Context, examID uint) (exam *models.Exam, err error) {
	defer finalize(s.logger, "get_exam", &err)
	return getExam(ctx, s.repo, examID)
}
