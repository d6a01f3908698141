package models

import (
	"strconv"
	"time"
)

// ===== REQUESTS =====

type RecordViolationRequest struct {
	Type    ViolationType `json:"type" validate:"required,max=50"`
	Details *string       `json:"details" validate:"omitempty,max=2000"`
}

type BrowserEventRequest struct {
	Kind             string     `json:"kind" validate:"required,oneof=visibilitychange blur fullscreenchange contextmenu copy cut paste"`
	Hidden           bool       `json:"hidden"`
	FullscreenActive bool       `json:"fullscreen_active"`
	Text             string     `json:"text" validate:"max=100000"`
	At               *time.Time `json:"at"`
}

type BrowserEventsRequest struct {
	Events []BrowserEventRequest `json:"events" validate:"required,min=1,max=100,dive"`
}

type SubmitCodeRequest struct {
	QuestionID uint   `json:"question_id" validate:"required"`
	Language   string `json:"language" validate:"required,language"`
	Code       string `json:"code" validate:"required,max=200000"`
}

type SaveDraftRequest struct {
	QuestionID uint   `json:"question_id" validate:"required"`
	Language   string `json:"language" validate:"required,language"`
	Code       string `json:"code" validate:"max=200000"`
}

type FinishRequest struct {
	Forced bool `json:"forced"`
}

// ===== RESPONSES =====

type SessionResponse struct {
	AssignmentID uint       `json:"assignment_id"`
	QuestionIDs  []uint     `json:"question_ids"`
	StartedAt    *time.Time `json:"started_at"`
	DeadlineAt   *time.Time `json:"deadline_at"`
	Created      bool       `json:"-"`
}

type AssignmentResponse struct {
	*ExamAssignment
	RemainingSeconds int64 `json:"remaining_seconds"`
	WarningsLeft     int   `json:"warnings_left"`
}

type ViolationResult struct {
	Terminated   bool    `json:"terminated"`
	WarningsLeft int     `json:"warnings_left"`
	Count        int     `json:"count"`
	RedirectPath *string `json:"redirect_path,omitempty"`
}

type BrowserEventDecision struct {
	PreventDefault bool `json:"prevent_default"`
}

type BrowserEventsResult struct {
	Decisions  []BrowserEventDecision `json:"decisions"`
	Violations []ViolationResult      `json:"violations"`
	Locked     bool                   `json:"locked"`
	Terminated bool                   `json:"terminated"`
}

type SubmissionResult struct {
	SubmissionID    uint             `json:"submission_id,omitempty"`
	Accepted        bool             `json:"accepted"`
	Verdict         Verdict          `json:"verdict,omitempty"`
	Score           float64          `json:"score"`
	TestCasesPassed int              `json:"test_cases_passed"`
	TestCasesTotal  int              `json:"test_cases_total"`
	Details         *string          `json:"details,omitempty"`
	Status          AssignmentStatus `json:"status"`
}

type DraftResponse struct {
	QuestionID uint   `json:"question_id"`
	Language   string `json:"language"`
	Code       string `json:"code"`
	Found      bool   `json:"found"`
}

type FinishResult struct {
	RedirectPath string           `json:"redirect_path"`
	Status       AssignmentStatus `json:"status"`
	EndReason    *EndReason       `json:"end_reason"`
	Score        float64          `json:"score"`
}

type AvailableExam struct {
	Exam         *Exam            `json:"exam"`
	Window       Window           `json:"window"`
	Active       bool             `json:"active"`
	AssignmentID *uint            `json:"assignment_id,omitempty"`
	Status       AssignmentStatus `json:"assignment_status,omitempty"`
}

type AssignmentReport struct {
	Assignment  *ExamAssignment     `json:"assignment"`
	User        *User               `json:"user,omitempty"`
	Violations  []*MalpracticeEvent `json:"violations"`
	Submissions []*Submission       `json:"submissions"`
}

// ResultsPath is where the client is sent once a session is over
func ResultsPath(examID uint) string {
	return "/exams/" + strconv.FormatUint(uint64(examID), 10) + "/results"
}
