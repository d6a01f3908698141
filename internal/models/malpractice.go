package models

import (
	"slices"
	"time"
)

type ViolationType string

const (
	ViolationTabSwitch        ViolationType = "tab_switch"
	ViolationWindowBlur       ViolationType = "window_blur"
	ViolationExitedFullscreen ViolationType = "exited_fullscreen"
	ViolationRightClick       ViolationType = "right_click"
	ViolationCopyPaste        ViolationType = "attempted_copy_paste"
)

// KnownViolationTypes lists the tags produced by the integrity monitor.
// Clients may report other tags; the ledger counts them all.
var KnownViolationTypes = []ViolationType{
	ViolationTabSwitch,
	ViolationWindowBlur,
	ViolationExitedFullscreen,
	ViolationRightClick,
	ViolationCopyPaste,
}

// Known reports whether t is one of the monitor's own tags
func (t ViolationType) Known() bool {
	return slices.Contains(KnownViolationTypes, t)
}

// MalpracticeEvent is an append-only record of a single detected violation
type MalpracticeEvent struct {
	ID           uint          `json:"id" gorm:"primaryKey"`
	AssignmentID uint          `json:"assignment_id" gorm:"not null;index"`
	Type         ViolationType `json:"type" gorm:"not null;size:50;index"`
	Details      *string       `json:"details" gorm:"type:text"`
	CreatedAt    time.Time     `json:"created_at" gorm:"index"`
}

func (MalpracticeEvent) TableName() string {
	return "malpractice_events"
}
