package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/services"
	"github.com/SAP-F-2025/exam-session-service/internal/utils"
)

// AssignmentHandler serves everything a student does inside a running session
type AssignmentHandler struct {
	BaseHandler
	sessions    services.SessionService
	malpractice services.MalpracticeService
	integrity   services.IntegrityService
	submissions services.SubmissionService
	lifecycle   services.LifecycleService
}

func NewAssignmentHandler(sm services.ServiceManager, logger utils.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		BaseHandler: NewBaseHandler(logger),
		sessions:    sm.Session(),
		malpractice: sm.Malpractice(),
		integrity:   sm.Integrity(),
		submissions: sm.Submission(),
		lifecycle:   sm.Lifecycle(),
	}
}

// GetAssignment
// @Summary Get assignment
// @Description Owner or staff only. Includes remaining seconds and warnings left.
// @Tags assignments
// @Produce json
// @Param id path int true "Assignment ID"
// @Success 200 {object} models.AssignmentResponse
// @Failure 401 {object} ErrorResponse "Not the owner"
// @Failure 404 {object} ErrorResponse "Assignment not found"
// @Router /assignments/{id} [get]
func (h *AssignmentHandler) GetAssignment(c *gin.Context) {
	caller, ok := h.getCaller(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.sessions.GetAssignment(c.Request.Context(), id, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RecordViolation
// @Summary Record a malpractice violation
// @Tags assignments
// @Accept json
// @Produce json
// @Param id path int true "Assignment ID"
// @Param request body models.RecordViolationRequest true "Violation"
// @Success 200 {object} models.ViolationResult
// @Failure 400 {object} ErrorResponse "Invalid violation"
// @Router /assignments/{id}/violations [post]
func (h *AssignmentHandler) RecordViolation(c *gin.Context) {
	caller, ok := h.getCaller(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	var req models.RecordViolationRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.LogRequest(c, "Recording violation", "assignment_id", id, "type", req.Type)

	result, err := h.malpractice.RecordViolation(c.Request.Context(), id, caller.UserID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListViolations
// @Summary List recorded violations
// @Tags assignments
// @Produce json
// @Param id path int true "Assignment ID"
// @Success 200 {array} models.MalpracticeEvent
// @Router /assignments/{id}/violations [get]
func (h *AssignmentHandler) ListViolations(c *gin.Context) {
	caller, ok := h.getCaller(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	list, err := h.malpractice.ListViolations(c.Request.Context(), id, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// IngestBrowserEvents
// @Summary Feed raw page events to the integrity monitor
// @Tags assignments
// @Accept json
// @Produce json
// @Param id path int true "Assignment ID"
// @Param request body models.BrowserEventsRequest true "Events in page order"
// @Success 200 {object} models.BrowserEventsResult
// @Router /assignments/{id}/browser-events [post]
func (h *AssignmentHandler) IngestBrowserEvents(c *gin.Context) {
	caller, ok := h.getCaller(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	var req models.BrowserEventsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.integrity.ProcessBrowserEvents(c.Request.Context(), id, caller.UserID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SubmitCode
// @Summary Submit code for judging
// @Tags assignments
// @Accept json
// @Produce json
// @Param id path int true "Assignment ID"
// @Param request body models.SubmitCodeRequest true "Submission"
// @Success 200 {object} models.SubmissionResult
// @Failure 403 {object} ErrorResponse "Question not assigned"
// @Failure 503 {object} ErrorResponse "Judge unavailable"
// @Router /assignments/{id}/submissions [post]
func (h *AssignmentHandler) SubmitCode(c *gin.Context) {
	caller, ok := h.getCaller(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	var req models.SubmitCodeRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.LogRequest(c, "Submitting code",
		"assignment_id", id,
		"question_id", req.QuestionID,
		"language", req.Language)

	result, err := h.submissions.Submit(c.Request.Context(), id, caller.UserID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListSubmissions
// @Summary List submissions
// @Tags assignments
// @Produce json
// @Param id path int true "Assignment ID"
// @Param question_id query int false "Only this question"
// @Success 200 {array} models.Submission
// @Router /assignments/{id}/submissions [get]
func (h *AssignmentHandler) ListSubmissions(c *gin.Context) {
	caller, ok := h.getCaller(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	questionID, ok := h.parseOptionalUintQuery(c, "question_id")
	if !ok {
		return
	}

	list, err := h.submissions.ListSubmissions(c.Request.Context(), id, caller, questionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// SaveDraft
// @Summary Save editor contents
// @Tags assignments
// @Accept json
// @Param id path int true "Assignment ID"
// @Param request body models.SaveDraftRequest true "Draft"
// @Success 204
// @Router /assignments/{id}/drafts [put]
func (h *AssignmentHandler) SaveDraft(c *gin.Context) {
	caller, ok := h.getCaller(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	var req models.SaveDraftRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.submissions.SaveDraft(c.Request.Context(), id, caller.UserID, &req); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetDraft
// @Summary Load saved editor contents
// @Tags assignments
// @Produce json
// @Param id path int true "Assignment ID"
// @Param question_id query int true "Question ID"
// @Param language query string true "Language"
// @Success 200 {object} models.DraftResponse
// @Router /assignments/{id}/drafts [get]
func (h *AssignmentHandler) GetDraft(c *gin.Context) {
	caller, ok := h.getCaller(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	questionID, ok := h.parseOptionalUintQuery(c, "question_id")
	if !ok {
		return
	}
	if questionID == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "question_id is required"})
		return
	}

	draft, err := h.submissions.GetDraft(c.Request.Context(), id, caller.UserID, *questionID, c.Query("language"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

// FinishExam
// @Summary Finish the session
// @Description forced=true is only honored once time has run out or the session was terminated
// @Tags assignments
// @Accept json
// @Produce json
// @Param id path int true "Assignment ID"
// @Param request body models.FinishRequest false "Finish options"
// @Success 200 {object} models.FinishResult
// @Router /assignments/{id}/finish [post]
func (h *AssignmentHandler) FinishExam(c *gin.Context) {
	caller, ok := h.getCaller(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	var req models.FinishRequest
	// The body is optional
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return
	}
	h.LogRequest(c, "Finishing exam", "assignment_id", id, "forced", req.Forced)

	result, err := h.lifecycle.Finish(c.Request.Context(), id, caller.UserID, req.Forced)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
