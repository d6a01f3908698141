package models

import (
	"slices"
	"time"

	"gorm.io/datatypes"
)

type AssignmentStatus string

const (
	AssignmentNotStarted AssignmentStatus = "not_started"
	AssignmentInProgress AssignmentStatus = "in_progress"
	AssignmentCompleted  AssignmentStatus = "completed"
)

type EndReason string

const (
	EndReasonFinished   EndReason = "finished"
	EndReasonForced     EndReason = "forced"
	EndReasonTerminated EndReason = "terminated"
	EndReasonExpired    EndReason = "expired"
)

// ExamAssignment is one user's attempt at one exam.
// QuestionIDs is fixed at creation and never regenerated.
type ExamAssignment struct {
	ID               uint                      `json:"id" gorm:"primaryKey"`
	UserID           string                    `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_assignment_user_exam"`
	ExamID           uint                      `json:"exam_id" gorm:"not null;index;uniqueIndex:idx_assignment_user_exam"`
	SlotID           *uint                     `json:"slot_id"`
	QuestionIDs      datatypes.JSONSlice[uint] `json:"question_ids" gorm:"type:jsonb;not null"`
	Status           AssignmentStatus          `json:"status" gorm:"not null;default:not_started;index"`
	Score            float64                   `json:"score" gorm:"not null;default:0"`
	MalpracticeCount int                       `json:"malpractice_count" gorm:"not null;default:0"`
	IsTerminated     bool                      `json:"is_terminated" gorm:"not null;default:false"`
	EndReason        *EndReason                `json:"end_reason" gorm:"size:20"`

	StartedAt   *time.Time `json:"started_at"`
	DeadlineAt  *time.Time `json:"deadline_at" gorm:"index"`
	CompletedAt *time.Time `json:"completed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ExamAssignment) TableName() string {
	return "exam_assignments"
}

// IsClosed reports whether the assignment no longer accepts mutations
func (a *ExamAssignment) IsClosed() bool {
	return a.IsTerminated || a.Status == AssignmentCompleted
}

func (a *ExamAssignment) HasQuestion(questionID uint) bool {
	return slices.Contains(a.QuestionIDs, questionID)
}

// OwnedBy reports whether userID is the assignment owner
func (a *ExamAssignment) OwnedBy(userID string) bool {
	return userID != "" && a.UserID == userID
}
