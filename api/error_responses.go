package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	linkerrors "github.com/gcbaptista/go-entity-linker/internal/errors"
)

// ErrorCode represents standardized error codes for the API
type ErrorCode string

const (
	// Client Error Codes (4xx)
	ErrorCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrorCodeJobNotFound        ErrorCode = "JOB_NOT_FOUND"
	ErrorCodeJobNotCancellable  ErrorCode = "JOB_NOT_CANCELLABLE"
	ErrorCodeInvalidRequest     ErrorCode = "INVALID_REQUEST"
	ErrorCodeInvalidJSON        ErrorCode = "INVALID_JSON"
	ErrorCodeInvalidFixture     ErrorCode = "INVALID_KNOWLEDGE_BASE"
	ErrorCodeEmptyInput         ErrorCode = "EMPTY_INPUT"
	ErrorCodeNoMentions         ErrorCode = "NO_MENTIONS"
	ErrorCodeNoCandidates       ErrorCode = "NO_CANDIDATES"
	ErrorCodeRequestTooLarge    ErrorCode = "REQUEST_TOO_LARGE"
	ErrorCodeOperationCancelled ErrorCode = "OPERATION_CANCELLED"

	// Server Error Codes (5xx)
	ErrorCodeInternalError       ErrorCode = "INTERNAL_ERROR"
	ErrorCodeKnowledgeBaseFailed ErrorCode = "KNOWLEDGE_BASE_FAILED"
	ErrorCodeScoringFailed       ErrorCode = "SCORING_FAILED"
	ErrorCodeTimeout             ErrorCode = "TIMEOUT"
	ErrorCodeJobExecutionFailed  ErrorCode = "JOB_EXECUTION_FAILED"
	ErrorCodeNotSupported        ErrorCode = "NOT_SUPPORTED"
)

// ErrorDetail provides additional context for an error
type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// APIError represents a standardized API error response
type APIError struct {
	Error     string        `json:"error"`
	Code      ErrorCode     `json:"code"`
	Message   string        `json:"message"`
	Details   []ErrorDetail `json:"details,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	RequestID string        `json:"request_id,omitempty"`
}

// APIErrorResponse creates a standardized error response
func APIErrorResponse(code ErrorCode, message string, details ...ErrorDetail) *APIError {
	return &APIError{
		Error:     "Request failed",
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	}
}

// SendError sends a standardized error response
func SendError(c *gin.Context, statusCode int, code ErrorCode, message string, details ...ErrorDetail) {
	errorResponse := APIErrorResponse(code, message, details...)

	// Add request ID if available
	if requestID, exists := c.Get(requestIDKey); exists {
		if id, ok := requestID.(string); ok {
			errorResponse.RequestID = id
		}
	}

	c.JSON(statusCode, errorResponse)
}

// SendStructuredValidationError sends a validation error with structured details
func SendStructuredValidationError(c *gin.Context, result *ValidationResult) {
	details := make([]ErrorDetail, len(result.Errors))
	for i, err := range result.Errors {
		details[i] = ErrorDetail{
			Field:   err.Field,
			Message: err.Message,
			Code:    "VALIDATION_ERROR",
		}
	}

	SendError(c, http.StatusBadRequest, ErrorCodeValidationFailed, "Request validation failed", details...)
}

// SendJobNotFoundError sends a standardized job not found error
func SendJobNotFoundError(c *gin.Context, jobID string) {
	SendError(c, http.StatusNotFound, ErrorCodeJobNotFound,
		"Job '"+jobID+"' not found")
}

// SendBindError reports a request body that could not be decoded.
// Bodies cut off by the size limit are reported as such.
func SendBindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		SendError(c, http.StatusRequestEntityTooLarge, ErrorCodeRequestTooLarge,
			"Request body exceeds the limit of "+formatBytes(tooLarge.Limit))
		return
	}
	SendError(c, http.StatusBadRequest, ErrorCodeInvalidJSON,
		"Invalid request body: "+err.Error())
}

// SendInternalError sends a standardized internal server error
func SendInternalError(c *gin.Context, operation string, err error) {
	SendError(c, http.StatusInternalServerError, ErrorCodeInternalError,
		"Internal error during "+operation+": "+err.Error())
}

// SendJobExecutionError sends a standardized job execution error
func SendJobExecutionError(c *gin.Context, operation string, err error) {
	SendError(c, http.StatusInternalServerError, ErrorCodeJobExecutionFailed,
		"Failed to start "+operation+" job: "+err.Error())
}

// SendNotSupportedError reports a feature the configured backend does not offer
func SendNotSupportedError(c *gin.Context, feature string) {
	SendError(c, http.StatusNotImplemented, ErrorCodeNotSupported,
		feature+" is not supported by the configured knowledge base")
}

// runErrorStatus maps the error that aborted a disambiguation run to an HTTP status.
func runErrorStatus(err error) (int, ErrorCode) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, linkerrors.ErrEmptyInput):
		return http.StatusBadRequest, ErrorCodeEmptyInput
	case errors.Is(err, linkerrors.ErrNoMentions):
		return http.StatusBadRequest, ErrorCodeNoMentions
	case errors.Is(err, linkerrors.ErrInvalidInput):
		return http.StatusBadRequest, ErrorCodeValidationFailed
	case errors.Is(err, linkerrors.ErrNoCandidates):
		return http.StatusUnprocessableEntity, ErrorCodeNoCandidates
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrorCodeTimeout
	case errors.Is(err, context.Canceled):
		return 499, ErrorCodeOperationCancelled
	case errors.Is(err, linkerrors.ErrLinkGraphQuery):
		return http.StatusBadGateway, ErrorCodeKnowledgeBaseFailed
	case errors.Is(err, linkerrors.ErrInvalidScore), errors.Is(err, linkerrors.ErrMissingSourceCount):
		return http.StatusInternalServerError, ErrorCodeScoringFailed
	default:
		return http.StatusInternalServerError, ErrorCodeInternalError
	}
}
