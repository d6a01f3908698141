package services

import (
	"context"

	"github.com/SAP-F-2025/exam-session-service/internal/integrity"
	"github.com/SAP-F-2025/exam-session-service/internal/models"
)

type integrityService struct {
	base
	ledger MalpracticeService
}

// NewIntegrityService feeds browser events through per-assignment monitors and
// forwards every violation to ledger
func NewIntegrityService(deps Dependencies, ledger MalpracticeService) IntegrityService {
	deps = deps.withDefaults()
	return &integrityService{
		base:   newBase(deps),
		ledger: ledger,
	}
}

func (s *integrityService) ProcessBrowserEvents(ctx context.Context, assignmentID uint, userID string, req *models.BrowserEventsRequest) (result *models.BrowserEventsResult, err error) {
	defer finalize(s.logger, "process_browser_events", &err)

	if req == nil {
		return nil, NewValidationError(errRequestRequired)
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	assignment, err := ownedAssignment(ctx, s.repo, assignmentID, userID)
	if err != nil {
		return nil, err
	}

	result = &models.BrowserEventsResult{
		Decisions:  make([]models.BrowserEventDecision, len(req.Events)),
		Violations: []models.ViolationResult{},
	}

	if assignment.IsClosed() {
		s.monitors.Close(assignmentID)
		result.Terminated = assignment.IsTerminated
		return result, nil
	}

	exam, err := getExam(ctx, s.repo, assignment.ExamID)
	if err != nil {
		return nil, err
	}

	session := s.monitors.Open(assignmentID, integrity.OptionsForExam(exam))
	decisions, violations := session.Process(s.toEvents(req.Events))
	for i, d := range decisions {
		result.Decisions[i] = models.BrowserEventDecision{PreventDefault: d.PreventDefault}
	}

	for _, v := range violations {
		record := &models.RecordViolationRequest{Type: v.Type}
		if v.Details != "" {
			record.Details = stringPtr(v.Details)
		}

		res, err := s.ledger.RecordViolation(ctx, assignmentID, userID, record)
		if err != nil {
			return nil, err
		}
		result.Violations = append(result.Violations, *res)

		if res.Terminated {
			result.Terminated = true
			break
		}
	}

	if !result.Terminated {
		result.Locked = session.Locked()
	}
	return result, nil
}

func (s *integrityService) toEvents(reqs []models.BrowserEventRequest) []integrity.Event {
	out := make([]integrity.Event, len(reqs))
	for i, r := range reqs {
		at := s.now()
		if r.At != nil {
			at = *r.At
		}
		out[i] = integrity.Event{
			Kind:             integrity.EventKind(r.Kind),
			Hidden:           r.Hidden,
			FullscreenActive: r.FullscreenActive,
			Text:             r.Text,
			At:               at,
		}
	}
	return out
}

func (s *integrityService) CloseSession(assignmentID uint) {
	s.monitors.Close(assignmentID)
}
