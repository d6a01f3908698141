package models

import (
	"time"

	"gorm.io/datatypes"
)

type ExamStatus string

const (
	ExamUpcoming ExamStatus = "upcoming"
	ExamActive   ExamStatus = "active"
	ExamEnded    ExamStatus = "ended"
)

const DefaultMaxViolations = 3

// Exam is the static definition a session is created from. Status is advisory; gating is time-based.
type Exam struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	Title       string     `json:"title" gorm:"not null;size:200" validate:"required,min=3,max=200"`
	Description *string    `json:"description" gorm:"type:text"`
	StartTime   time.Time  `json:"start_time" gorm:"not null"`
	EndTime     time.Time  `json:"end_time" gorm:"not null"`
	Duration    int        `json:"duration" gorm:"not null" validate:"required,min=1,max=600"` // minutes
	Status      ExamStatus `json:"status" gorm:"default:upcoming;index"`

	QuestionCount     int            `json:"question_count" gorm:"default:0"`
	SelectionStrategy string         `json:"selection_strategy" gorm:"size:50"`
	SelectionConfig   datatypes.JSON `json:"selection_config" gorm:"type:jsonb"`
	GradingStrategy   string         `json:"grading_strategy" gorm:"size:50;not null"`
	GradingConfig     datatypes.JSON `json:"grading_config" gorm:"type:jsonb"`

	// Proctoring
	PreventTabSwitching bool `json:"prevent_tab_switching"`
	PreventRightClick   bool `json:"prevent_right_click"`
	PreventCopyPaste    bool `json:"prevent_copy_paste"`
	RequireFullScreen   bool `json:"require_full_screen"`
	MaxViolations       int  `json:"max_violations" gorm:"default:3"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Slots []ExamGroupSlot `json:"slots,omitempty" gorm:"foreignKey:ExamID"`
}

func (Exam) TableName() string {
	return "exams"
}

// ViolationLimit returns the configured threshold, falling back to the platform default
func (e *Exam) ViolationLimit(fallback int) int {
	if e.MaxViolations > 0 {
		return e.MaxViolations
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultMaxViolations
}

// DurationValue converts the minute-based duration column to a time.Duration
func (e *Exam) DurationValue() time.Duration {
	return time.Duration(e.Duration) * time.Minute
}

type Group struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null;size:100;uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
}

func (Group) TableName() string {
	return "groups"
}

type UserGroupMembership struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_user_group"`
	GroupID   uint      `json:"group_id" gorm:"not null;uniqueIndex:idx_user_group;index"`
	CreatedAt time.Time `json:"created_at"`
}

func (UserGroupMembership) TableName() string {
	return "user_group_memberships"
}

// ExamGroupSlot binds an exam to a group with an optional window override
type ExamGroupSlot struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	ExamID    uint       `json:"exam_id" gorm:"not null;index;uniqueIndex:idx_exam_group_slot"`
	GroupID   uint       `json:"group_id" gorm:"not null;uniqueIndex:idx_exam_group_slot"`
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	CreatedAt time.Time  `json:"created_at"`
}

func (ExamGroupSlot) TableName() string {
	return "exam_group_slots"
}

// Window is a closed time interval
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies within the window, both bounds inclusive
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// EffectiveWindow resolves the slot override against the exam's global window.
// Each bound falls back independently.
func (s *ExamGroupSlot) EffectiveWindow(exam *Exam) Window {
	w := Window{Start: exam.StartTime, End: exam.EndTime}
	if s.StartTime != nil {
		w.Start = *s.StartTime
	}
	if s.EndTime != nil {
		w.End = *s.EndTime
	}
	return w
}
