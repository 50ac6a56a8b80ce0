package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/gin-gonic/gin"
)

// ErrorCategory defines the type of error for proper handling
type ErrorCategory string

const (
	CategoryValidation    ErrorCategory = "validation"
	CategoryNotFound      ErrorCategory = "not_found"
	CategoryNetwork       ErrorCategory = "network"
	CategoryTimeout       ErrorCategory = "timeout"
	CategoryRateLimit     ErrorCategory = "rate_limit"
	CategoryQuota         ErrorCategory = "quota"
	CategoryInternal      ErrorCategory = "internal"
	CategoryExternalAPI   ErrorCategory = "external_api"
	CategoryConfiguration ErrorCategory = "configuration"
)

var categoryCodes = map[ErrorCategory]string{
	CategoryValidation:    "VALIDATION_ERROR",
	CategoryNotFound:      "NOT_FOUND",
	CategoryNetwork:       "NETWORK_ERROR",
	CategoryTimeout:       "TIMEOUT_ERROR",
	CategoryRateLimit:     "RATE_LIMIT_EXCEEDED",
	CategoryQuota:         "QUOTA_EXCEEDED",
	CategoryInternal:      "INTERNAL_ERROR",
	CategoryExternalAPI:   "EXTERNAL_API_ERROR",
	CategoryConfiguration: "CONFIGURATION_ERROR",
}

// AppError wraps an errbuilder error with the HTTP-facing context the API needs
type AppError struct {
	*errbuilder.ErrBuilder
	Category   ErrorCategory     `json:"category"`
	HTTPStatus int               `json:"http_status"`
	Timestamp  time.Time         `json:"timestamp"`
	RequestID  string            `json:"request_id,omitempty"`
	Fields     map[string]string `json:"details,omitempty"`
	StackTrace string            `json:"stack_trace,omitempty"`
}

// Code returns the stable string code for the error category
func (e *AppError) Code() string {
	if code, ok := categoryCodes[e.Category]; ok {
		return code
	}
	return "UNKNOWN_ERROR"
}

func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code(), e.ErrBuilder.Msg)
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.ErrBuilder.Unwrap()
}

// Response renders the error as the JSON body returned to API clients
func (e *AppError) Response() gin.H {
	body := gin.H{
		"error":     e.Code(),
		"message":   e.ErrBuilder.Msg,
		"category":  e.Category,
		"timestamp": e.Timestamp.Format(time.RFC3339),
	}
	if len(e.Fields) > 0 {
		body["details"] = e.Fields
	}
	if e.RequestID != "" {
		body["request_id"] = e.RequestID
	}
	return body
}

// NewAppError creates an AppError from errbuilder with additional context
func NewAppError(builder *errbuilder.ErrBuilder, category ErrorCategory, httpStatus int) *AppError {
	return &AppError{
		ErrBuilder: builder,
		Category:   category,
		HTTPStatus: httpStatus,
		Timestamp:  time.Now(),
	}
}

func withFields(appErr *AppError, fields map[string]string) *AppError {
	if len(fields) == 0 {
		return appErr
	}
	errorMap := errbuilder.ErrorMap{}
	for k, v := range fields {
		errorMap.Set(k, errors.New(v))
	}
	appErr.ErrBuilder = appErr.ErrBuilder.WithDetails(errbuilder.NewErrDetails(errorMap))
	appErr.Fields = fields
	return appErr
}

// NewValidationError creates a validation error. Optional details are
// key/value pairs describing the offending input.
func NewValidationError(message string, details ...string) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(message)

	fields := map[string]string{}
	for i := 0; i+1 < len(details); i += 2 {
		fields[details[i]] = details[i+1]
	}
	if len(details)%2 == 1 {
		fields["validation_details"] = details[len(details)-1]
	}

	return withFields(NewAppError(builder, CategoryValidation, http.StatusBadRequest), fields)
}

// NewValidationErrorWithMap creates a validation error covering several fields
func NewValidationErrorWithMap(validationErrors map[string]string) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg("Multiple validation errors")

	return withFields(NewAppError(builder, CategoryValidation, http.StatusBadRequest), validationErrors)
}

// NewNotFoundError reports a missing resource (channel, analysis, period)
func NewNotFoundError(resource, id string) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("%s not found", resource))

	return withFields(NewAppError(builder, CategoryNotFound, http.StatusNotFound), map[string]string{
		"resource": resource,
		"id":       id,
	})
}

// NewNetworkError creates a network error using errbuilder
func NewNetworkError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeUnavailable).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryNetwork, http.StatusBadGateway)
}

// NewTimeoutError creates a timeout error using errbuilder
func NewTimeoutError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeDeadlineExceeded).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryTimeout, http.StatusGatewayTimeout)
}

// NewRateLimitError creates a rate limit error using errbuilder
func NewRateLimitError(retryAfter time.Duration) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeResourceExhausted).
		WithMsg("Rate limit exceeded")

	return withFields(NewAppError(builder, CategoryRateLimit, http.StatusTooManyRequests), map[string]string{
		"retry_after": retryAfter.String(),
	})
}

// NewQuotaError reports an exhausted upstream API quota. Quota errors are not
// retried: the daily quota does not come back within a request.
func NewQuotaError(apiName string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeResourceExhausted).
		WithMsg(fmt.Sprintf("%s quota exceeded", apiName))

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return withFields(NewAppError(builder, CategoryQuota, http.StatusServiceUnavailable), map[string]string{
		"api_name": apiName,
	})
}

// NewExternalAPIError creates an external API error using errbuilder
func NewExternalAPIError(apiName string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeUnavailable).
		WithMsg(fmt.Sprintf("%s API error", apiName))

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return withFields(NewAppError(builder, CategoryExternalAPI, http.StatusBadGateway), map[string]string{
		"api_name": apiName,
	})
}

// NewInternalError creates an internal server error using errbuilder
func NewInternalError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("Internal server error")

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("internal_details", errors.New(message))
	builder = builder.WithDetails(errbuilder.NewErrDetails(errorMap))

	appErr := NewAppError(builder, CategoryInternal, http.StatusInternalServerError)

	if gin.Mode() == gin.DebugMode || gin.Mode() == gin.TestMode {
		appErr.StackTrace = captureStackTrace()
	}

	return appErr
}

// NewConfigurationError creates a configuration error using errbuilder
func NewConfigurationError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg("Configuration error")

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return withFields(NewAppError(builder, CategoryConfiguration, http.StatusServiceUnavailable), map[string]string{
		"config_details": message,
	})
}

func captureStackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// ErrorHandler is a Gin middleware that renders the last handler error
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		appErr := ToAppError(c.Errors.Last().Err)
		appErr.RequestID = c.GetHeader("X-Request-ID")

		LogError(c, appErr)
		c.JSON(appErr.HTTPStatus, appErr.Response())
	}
}

// RecoveryHandler provides panic recovery with structured error responses
func RecoveryHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		appErr := NewInternalError(
			fmt.Sprintf("Panic recovered: %v", recovered),
			fmt.Errorf("%v", recovered),
		)
		appErr.StackTrace = captureStackTrace()

		LogError(c, appErr)
		c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.Response())
	})
}

// ToAppError converts any error to an AppError
func ToAppError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var ebErr *errbuilder.ErrBuilder
	if errors.As(err, &ebErr) {
		return NewAppError(ebErr, CategoryInternal, http.StatusInternalServerError)
	}

	if errors.Is(err, context.Canceled) {
		return NewTimeoutError("Request cancelled", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError("Request deadline exceeded", err)
	}

	errMsg := err.Error()

	if strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "no such host") ||
		strings.Contains(errMsg, "network is unreachable") {
		return NewNetworkError("Network connection failed", err)
	}

	if strings.Contains(errMsg, "timeout") {
		return NewTimeoutError("Request timeout", err)
	}

	return NewInternalError("An unexpected error occurred", err)
}

// Abort records err on the gin context and writes the structured response
func Abort(c *gin.Context, err error) {
	appErr := ToAppError(err)
	appErr.RequestID = c.GetHeader("X-Request-ID")
	_ = c.Error(appErr)

	LogError(c, appErr)
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.Response())
}

// LogError logs an error with appropriate level and context
func LogError(c *gin.Context, err *AppError) {
	logEntry := slog.With(
		"error_category", err.Category,
		"error_code", err.Code(),
		"http_status", err.HTTPStatus,
		"ip", c.ClientIP(),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"request_id", err.RequestID,
	)

	if len(err.Fields) > 0 {
		logEntry = logEntry.With("details", err.Fields)
	}
	if cause := err.ErrBuilder.Unwrap(); cause != nil {
		logEntry = logEntry.With("cause", cause.Error())
	}

	switch err.Category {
	case CategoryValidation, CategoryNotFound, CategoryRateLimit:
		logEntry.Warn(err.ErrBuilder.Msg)
	case CategoryNetwork, CategoryTimeout, CategoryExternalAPI, CategoryQuota:
		logEntry.Info(err.ErrBuilder.Msg)
	default:
		logEntry.Error(err.ErrBuilder.Msg)
	}

	if err.StackTrace != "" && gin.Mode() == gin.DebugMode {
		logEntry.Debug("stack_trace", "trace", err.StackTrace)
	}
}

// IsRetryableError checks if an error should trigger a retry
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	switch ToAppError(err).Category {
	case CategoryNetwork, CategoryTimeout, CategoryExternalAPI:
		return !errors.Is(err, context.Canceled)
	default:
		return false
	}
}

// GetRetryDelay returns appropriate retry delay based on error type
func GetRetryDelay(err error, attempt int) time.Duration {
	baseDelay := time.Duration(100*attempt) * time.Millisecond

	switch ToAppError(err).Category {
	case CategoryRateLimit:
		return time.Duration(attempt*attempt) * time.Second
	case CategoryNetwork, CategoryTimeout:
		return baseDelay * time.Duration(1<<attempt)
	case CategoryExternalAPI:
		return baseDelay * time.Duration(attempt)
	default:
		return baseDelay
	}
}

// IsCategory reports whether err is an AppError of the given category
func IsCategory(err error, category ErrorCategory) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Category == category
}

// SafeClose closes a resource and logs any error
func SafeClose(closer interface{ Close() error }, resourceName string) {
	if closer == nil {
		return
	}

	if err := closer.Close(); err != nil {
		slog.Warn("Failed to close resource",
			"resource", resourceName,
			"error", err)
	}
}
