// Package api provides validation utilities for API request handling.
package api

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-entity-linker/model"
)

// maxSurfaceFormLength bounds a single explicit surface form, in characters
const maxSurfaceFormLength = 256

// ValidationError represents a validation error with field context
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult holds the result of validation operations
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// AddError adds a validation error to the result
func (vr *ValidationResult) AddError(field, message string) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// ValidateDisambiguationRequest checks the shape of a request. Empty text and
// missing mentions are left to the engine, which reports them in the result.
func ValidateDisambiguationRequest(req *model.DisambiguationRequest) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if req == nil {
		result.AddError("request", "Request is required")
		return result
	}

	if !utf8.ValidString(req.Text) {
		result.AddError("text", "Text must be valid UTF-8")
	}

	for i, sf := range req.SurfaceForms {
		field := fmt.Sprintf("surface_forms[%d]", i)
		if strings.TrimSpace(sf) == "" {
			result.AddError(field, "Surface form cannot be empty or whitespace-only")
			continue
		}
		if utf8.RuneCountInString(sf) > maxSurfaceFormLength {
			result.AddError(field, fmt.Sprintf("Surface form cannot be longer than %d characters", maxSurfaceFormLength))
		}
	}

	return result
}

// ValidateJobID validates a job ID path parameter
func ValidateJobID(jobID string) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if jobID == "" {
		result.AddError("jobId", "Job ID is required")
		return result
	}

	if strings.TrimSpace(jobID) != jobID {
		result.AddError("jobId", "Job ID cannot have leading or trailing whitespace")
	}

	return result
}

// ValidateJobStatus parses an optional status filter. An empty value means no filter.
func ValidateJobStatus(status string) (*model.JobStatus, *ValidationResult) {
	result := &ValidationResult{Valid: true}
	if status == "" {
		return nil, result
	}

	s := model.JobStatus(status)
	switch s {
	case model.JobStatusPending, model.JobStatusRunning, model.JobStatusCompleted,
		model.JobStatusFailed, model.JobStatusCancelling, model.JobStatusCancelled:
		return &s, result
	default:
		result.AddError("status", "Unknown job status '"+status+"'")
		return nil, result
	}
}

// SendValidationError sends a standardized validation error response
func SendValidationError(c *gin.Context, result *ValidationResult) {
	SendStructuredValidationError(c, result)
}
