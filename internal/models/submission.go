package models

import "time"

type Verdict string

const (
	VerdictPassed       Verdict = "passed"
	VerdictFailed       Verdict = "failed"
	VerdictCompileError Verdict = "compile_error"
	VerdictRuntimeError Verdict = "runtime_error"
)

// Submission is an append-only record of one judged code attempt
type Submission struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	AssignmentID    uint      `json:"assignment_id" gorm:"not null;index:idx_submission_assignment_question"`
	QuestionID      uint      `json:"question_id" gorm:"not null;index:idx_submission_assignment_question"`
	Language        string    `json:"language" gorm:"not null;size:20"`
	Code            string    `json:"code" gorm:"type:text;not null"`
	Verdict         Verdict   `json:"verdict" gorm:"not null;size:20;index"`
	TestCasesPassed int       `json:"test_cases_passed" gorm:"not null;default:0"`
	TestCasesTotal  int       `json:"test_cases_total" gorm:"not null;default:0"`
	Details         *string   `json:"details" gorm:"type:text"`
	CreatedAt       time.Time `json:"created_at" gorm:"index"`
}

func (Submission) TableName() string {
	return "submissions"
}
