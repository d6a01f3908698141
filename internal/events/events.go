package events

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
)

const (
	EventSource  = "exam-session-service"
	EventVersion = "1.0"
)

type EventType string

const (
	SessionStarted      EventType = "session.started"
	MalpracticeRecorded EventType = "malpractice.recorded"
	SessionTerminated   EventType = "session.terminated"
	SubmissionJudged    EventType = "submission.judged"
	SessionFinished     EventType = "session.finished"
)

// Event is the envelope for everything the service emits
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

func NewEvent(eventType EventType, data any) *Event {
	return &Event{
		ID:        watermill.NewUUID(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventPublisher publishes domain events. Publishing failures must never
// roll back the state change that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

type SessionStartedData struct {
	AssignmentID uint      `json:"assignment_id"`
	ExamID       uint      `json:"exam_id"`
	UserID       string    `json:"user_id"`
	QuestionIDs  []uint    `json:"question_ids"`
	StartedAt    time.Time `json:"started_at"`
	DeadlineAt   time.Time `json:"deadline_at"`
}

type MalpracticeRecordedData struct {
	AssignmentID uint   `json:"assignment_id"`
	ExamID       uint   `json:"exam_id"`
	UserID       string `json:"user_id"`
	Type         string `json:"type"`
	Count        int    `json:"count"`
	Limit        int    `json:"limit"`
}

type SessionTerminatedData struct {
	AssignmentID uint      `json:"assignment_id"`
	ExamID       uint      `json:"exam_id"`
	UserID       string    `json:"user_id"`
	Count        int       `json:"count"`
	TerminatedAt time.Time `json:"terminated_at"`
}

type SubmissionJudgedData struct {
	SubmissionID uint    `json:"submission_id"`
	AssignmentID uint    `json:"assignment_id"`
	QuestionID   uint    `json:"question_id"`
	Verdict      string  `json:"verdict"`
	Passed       int     `json:"test_cases_passed"`
	Total        int     `json:"test_cases_total"`
	Score        float64 `json:"score"`
}

type SessionFinishedData struct {
	AssignmentID uint      `json:"assignment_id"`
	ExamID       uint      `json:"exam_id"`
	UserID       string    `json:"user_id"`
	Score        float64   `json:"score"`
	EndReason    string    `json:"end_reason"`
	CompletedAt  time.Time `json:"completed_at"`
}
