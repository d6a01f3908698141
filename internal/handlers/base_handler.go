package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/services"
	"github.com/SAP-F-2025/exam-session-service/internal/utils"
	"github.com/SAP-F-2025/exam-session-service/internal/validator"
)

// judgeRetryAfter is the Retry-After hint, in seconds, sent with judge outages
const judgeRetryAfter = "5"

type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.GetLogger(c, h.logger).Info(msg, append(args,
		"method", c.Request.Method,
		"path", c.FullPath())...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	utils.GetLogger(c, h.logger).Error(msg, append(args, "error", err)...)
}

// parseIDParam writes a 400 and returns false when the path param is not a positive id
func (h *BaseHandler) parseIDParam(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
		})
		return 0, false
	}
	return uint(id), true
}

// parseOptionalUintQuery returns nil when the query param is absent
func (h *BaseHandler) parseOptionalUintQuery(c *gin.Context, param string) (*uint, bool) {
	raw := c.Query(param)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
		})
		return nil, false
	}
	id := uint(v)
	return &id, true
}

// bindJSON writes a 400 and returns false on malformed bodies
func (h *BaseHandler) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return false
	}
	return true
}

// getCaller reads the identity set by the auth middleware
func (h *BaseHandler) getCaller(c *gin.Context) (services.Caller, bool) {
	userID, err := GetUserIDFromContext(c)
	if err != nil || userID == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return services.Caller{}, false
	}
	role, err := GetUserRoleFromContext(c)
	if err != nil {
		role = models.RoleStudent
	}
	return services.Caller{UserID: userID, Role: role}, true
}

func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var se *services.ServiceError
	if !errors.As(err, &se) {
		h.LogError(c, err, "Unclassified service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
		return
	}

	switch se.Kind {
	case services.KindUnauthorized:
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: se.Message})
	case services.KindAccessDenied:
		c.JSON(http.StatusForbidden, ErrorResponse{Message: se.Message})
	case services.KindNotFound:
		c.JSON(http.StatusNotFound, ErrorResponse{Message: se.Message})
	case services.KindValidation:
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Validation failed",
				Details: verrs,
			})
			return
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: se.Error()})
	case services.KindJudgeUnavailable:
		c.Header("Retry-After", judgeRetryAfter)
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Message: se.Message})
	default:
		h.LogError(c, err, "Service operation failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
