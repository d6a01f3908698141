package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-session-service/internal/services"
	"github.com/SAP-F-2025/exam-session-service/internal/utils"
)

type ExamHandler struct {
	BaseHandler
	examService    services.ExamService
	sessionService services.SessionService
}

func NewExamHandler(examService services.ExamService, sessionService services.SessionService, logger utils.Logger) *ExamHandler {
	return &ExamHandler{
		BaseHandler:    NewBaseHandler(logger),
		examService:    examService,
		sessionService: sessionService,
	}
}

// ListExams lists the exams scheduled for the caller's groups
// @Summary List available exams
// @Tags exams
// @Produce json
// @Success 200 {array} models.AvailableExam
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /exams [get]
func (h *ExamHandler) ListExams(c *gin.Context) {
	caller, ok := h.getCaller(c)
	if !ok {
		return
	}
	h.LogRequest(c, "Listing available exams", "user_id", caller.UserID)

	exams, err := h.examService.ListAvailable(c.Request.Context(), caller.UserID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exams)
}

// GetExam
// @Summary Get exam
// @Tags exams
// @Produce json
// @Param id path int true "Exam ID"
// @Success 200 {object} models.Exam
// @Failure 404 {object} ErrorResponse "Exam not found"
// @Router /exams/{id} [get]
func (h *ExamHandler) GetExam(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	h.LogRequest(c, "Getting exam", "exam_id", id)

	exam, err := h.examService.GetExam(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exam)
}

// StartSession creates the caller's assignment, or returns the existing one
// @Summary Initialize exam session
// @Description Idempotent. Returns 201 when the assignment is created and 200 when it already existed.
// @Tags exams
// @Produce json
// @Param id path int true "Exam ID"
// @Success 201 {object} models.SessionResponse
// @Success 200 {object} models.SessionResponse
// @Failure 403 {object} ErrorResponse "Not scheduled for this exam now"
// @Failure 404 {object} ErrorResponse "Exam not found"
// @Router /exams/{id}/session [post]
func (h *ExamHandler) StartSession(c *gin.Context) {
	caller, ok := h.getCaller(c)
	if !ok {
		return
	}
	examID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	h.LogRequest(c, "Initializing exam session", "exam_id", examID, "user_id", caller.UserID)

	session, err := h.sessionService.InitializeSession(c.Request.Context(), examID, caller.UserID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	status := http.StatusOK
	if session.Created {
		status = http.StatusCreated
	}
	c.JSON(status, session)
}
