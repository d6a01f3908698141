package services

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/SAP-F-2025/exam-session-service/internal/validator"
)

type ErrorKind string

const (
	KindUnauthorized     ErrorKind = "unauthorized"
	KindAccessDenied     ErrorKind = "access_denied"
	KindNotFound         ErrorKind = "not_found"
	KindValidation       ErrorKind = "validation"
	KindJudgeUnavailable ErrorKind = "judge_unavailable"
	KindSystem           ErrorKind = "system_error"
)

// Sentinels for errors.Is; every ServiceError matches the one for its kind
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrAccessDenied     = errors.New("access denied")
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation failed")
	ErrJudgeUnavailable = errors.New("judge unavailable")
	ErrSystem           = errors.New("system error")
)

var errRequestRequired = errors.New("request body is required")

var kindSentinels = map[ErrorKind]error{
	KindUnauthorized:     ErrUnauthorized,
	KindAccessDenied:     ErrAccessDenied,
	KindNotFound:         ErrNotFound,
	KindValidation:       ErrValidation,
	KindJudgeUnavailable: ErrJudgeUnavailable,
	KindSystem:           ErrSystem,
}

// ServiceError is the only error shape a service operation returns
type ServiceError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

func NewUnauthorizedError(message string) *ServiceError {
	return &ServiceError{Kind: KindUnauthorized, Message: message}
}

func NewAccessDeniedError(message string) *ServiceError {
	return &ServiceError{Kind: KindAccessDenied, Message: message}
}

func NewNotFoundError(message string) *ServiceError {
	return &ServiceError{Kind: KindNotFound, Message: message}
}

func NewValidationError(err error) *ServiceError {
	return &ServiceError{Kind: KindValidation, Message: "validation failed", Err: err}
}

func NewJudgeUnavailableError(err error) *ServiceError {
	return &ServiceError{Kind: KindJudgeUnavailable, Message: "judge is unavailable, try again later", Err: err}
}

func NewSystemError(message string, err error) *ServiceError {
	return &ServiceError{Kind: KindSystem, Message: message, Err: err}
}

// KindOf reports the kind of err, treating anything unclassified as a system error
func KindOf(err error) ErrorKind {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindSystem
}

// finalize runs deferred at every operation boundary. It turns panics and
// unclassified errors into system errors so callers only ever see ServiceError.
func finalize(logger *slog.Logger, operation string, errp *error) {
	if r := recover(); r != nil {
		logger.Error("Recovered from panic",
			"operation", operation,
			"panic", r,
			"stack", string(debug.Stack()))
		*errp = NewSystemError("internal error", fmt.Errorf("panic: %v", r))
		return
	}

	err := *errp
	if err == nil {
		return
	}

	var se *ServiceError
	if errors.As(err, &se) {
		return
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		*errp = NewValidationError(verrs)
		return
	}

	logger.Error("Operation failed",
		"operation", operation,
		"error", err)
	*errp = NewSystemError("internal error", err)
}
