package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-session-service/internal/services"
	"github.com/SAP-F-2025/exam-session-service/internal/utils"
)

// ReportHandler serves proctor-facing read models. Role checks happen in the router.
type ReportHandler struct {
	BaseHandler
	reportService services.ReportService
}

func NewReportHandler(reportService services.ReportService, logger utils.Logger) *ReportHandler {
	return &ReportHandler{
		BaseHandler:   NewBaseHandler(logger),
		reportService: reportService,
	}
}

// GetAssignmentReport
// @Summary Assignment report
// @Description The assignment with its owner, violations and submissions
// @Tags reports
// @Produce json
// @Param id path int true "Assignment ID"
// @Success 200 {object} models.AssignmentReport
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Assignment not found"
// @Router /reports/assignments/{id} [get]
func (h *ReportHandler) GetAssignmentReport(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	h.LogRequest(c, "Building assignment report", "assignment_id", id)

	report, err := h.reportService.AssignmentReport(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetExamSummary
// @Summary Exam summary
// @Tags reports
// @Produce json
// @Param id path int true "Exam ID"
// @Success 200 {object} repositories.ExamStats
// @Failure 404 {object} ErrorResponse "Exam not found"
// @Router /reports/exams/{id}/summary [get]
func (h *ReportHandler) GetExamSummary(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	h.LogRequest(c, "Building exam summary", "exam_id", id)

	stats, err := h.reportService.ExamSummary(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
