package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
	"github.com/SAP-F-2025/exam-session-service/internal/services"
	"github.com/SAP-F-2025/exam-session-service/internal/utils"
)

const healthCheckTimeout = 2 * time.Second

type HandlerManager struct {
	examHandler       *ExamHandler
	assignmentHandler *AssignmentHandler
	reportHandler     *ReportHandler
	userHandler       *UserHandler
	authMiddleware    *CasdoorAuthMiddleware
	health            func(ctx context.Context) error
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
	authMiddleware *CasdoorAuthMiddleware,
	userRepo repositories.UserRepository,
) *HandlerManager {
	return &HandlerManager{
		examHandler:       NewExamHandler(serviceManager.Exam(), serviceManager.Session(), logger),
		assignmentHandler: NewAssignmentHandler(serviceManager, logger),
		reportHandler:     NewReportHandler(serviceManager.Report(), logger),
		userHandler:       NewUserHandler(userRepo, logger),
		authMiddleware:    authMiddleware,
		health:            serviceManager.HealthCheck,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	staffOnly := hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleProctor)

	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		exams := v1.Group("/exams")
		{
			exams.GET("", hm.examHandler.ListExams)
			exams.GET("/:id", hm.examHandler.GetExam)
			exams.POST("/:id/session", hm.examHandler.StartSession)
		}

		// Owner checks happen in the services; staff may read but never write
		assignments := v1.Group("/assignments")
		{
			assignments.GET("/:id", hm.assignmentHandler.GetAssignment)
			assignments.POST("/:id/violations", hm.assignmentHandler.RecordViolation)
			assignments.GET("/:id/violations", hm.assignmentHandler.ListViolations)
			assignments.POST("/:id/browser-events", hm.assignmentHandler.IngestBrowserEvents)
			assignments.POST("/:id/submissions", hm.assignmentHandler.SubmitCode)
			assignments.GET("/:id/submissions", hm.assignmentHandler.ListSubmissions)
			assignments.PUT("/:id/drafts", hm.assignmentHandler.SaveDraft)
			assignments.GET("/:id/drafts", hm.assignmentHandler.GetDraft)
			assignments.POST("/:id/finish", hm.assignmentHandler.FinishExam)
		}

		reports := v1.Group("/reports")
		reports.Use(staffOnly)
		{
			reports.GET("/assignments/:id", hm.reportHandler.GetAssignmentReport)
			reports.GET("/exams/:id/summary", hm.reportHandler.GetExamSummary)
		}

		users := v1.Group("/users")
		users.Use(staffOnly)
		{
			users.GET("/:id", hm.userHandler.GetUser)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		if err := hm.health(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": "exam-session-service",
				"error":   err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "exam-session-service",
		})
	})
}
