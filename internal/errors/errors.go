package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure kinds of a disambiguation run.
var (
	// ErrEmptyInput is returned when the request text is empty or too short
	ErrEmptyInput = errors.New("empty input")

	// ErrNoMentions is returned when no surface forms were found in the request
	ErrNoMentions = errors.New("no mentions detected")

	// ErrNoCandidates is returned when every mention has zero candidates
	ErrNoCandidates = errors.New("no candidates for any mention")

	// ErrInvalidScore is returned when a computed score falls outside [0,1]
	ErrInvalidScore = errors.New("invalid score")

	// ErrMissingSourceCount is returned when relatedness is requested before a
	// candidate's in-link count was established
	ErrMissingSourceCount = errors.New("missing source count")

	// ErrLinkGraphQuery is returned when a knowledge-base query fails
	ErrLinkGraphQuery = errors.New("link graph query failure")

	// ErrJobNotFound is returned when a job is not found
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
)

// EmptyInputError describes why the request text was rejected.
type EmptyInputError struct {
	Length    int
	MinLength int
}

func (e *EmptyInputError) Error() string {
	if e.Length == 0 {
		return "the input text is empty"
	}
	return fmt.Sprintf("the input text must have at least %d characters, got %d", e.MinLength, e.Length)
}

func (e *EmptyInputError) Is(target error) bool {
	return target == ErrEmptyInput
}

// NewEmptyInputError creates a new EmptyInputError
func NewEmptyInputError(length, minLength int) *EmptyInputError {
	return &EmptyInputError{Length: length, MinLength: minLength}
}

// InvalidScoreError reports a score that was rejected by a candidate.
type InvalidScoreError struct {
	Title string
	Value float64
}

func (e *InvalidScoreError) Error() string {
	return fmt.Sprintf("attempted to set a score of %g to candidate '%s'", e.Value, e.Title)
}

func (e *InvalidScoreError) Is(target error) bool {
	return target == ErrInvalidScore
}

// NewInvalidScoreError creates a new InvalidScoreError
func NewInvalidScoreError(title string, value float64) *InvalidScoreError {
	return &InvalidScoreError{Title: title, Value: value}
}

// MissingSourceCountError reports a candidate whose in-link count is unset.
type MissingSourceCountError struct {
	Title   string
	Sources int
}

func (e *MissingSourceCountError) Error() string {
	return fmt.Sprintf("number of in-links for '%s' is %d", e.Title, e.Sources)
}

func (e *MissingSourceCountError) Is(target error) bool {
	return target == ErrMissingSourceCount
}

// NewMissingSourceCountError creates a new MissingSourceCountError
func NewMissingSourceCountError(title string, sources int) *MissingSourceCountError {
	return &MissingSourceCountError{Title: title, Sources: sources}
}

// KnowledgeBaseError wraps a failed knowledge-base operation.
type KnowledgeBaseError struct {
	Op  string
	Err error
}

func (e *KnowledgeBaseError) Error() string {
	return fmt.Sprintf("knowledge base %s failed: %v", e.Op, e.Err)
}

func (e *KnowledgeBaseError) Is(target error) bool {
	return target == ErrLinkGraphQuery
}

func (e *KnowledgeBaseError) Unwrap() error {
	return e.Err
}

// NewKnowledgeBaseError creates a new KnowledgeBaseError
func NewKnowledgeBaseError(op string, err error) *KnowledgeBaseError {
	return &KnowledgeBaseError{Op: op, Err: err}
}

// JobNotFoundError represents a job not found error with context
type JobNotFoundError struct {
	JobID string
}

func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("job with ID '%s' not found", e.JobID)
}

func (e *JobNotFoundError) Is(target error) bool {
	return target == ErrJobNotFound
}

// NewJobNotFoundError creates a new JobNotFoundError
func NewJobNotFoundError(jobID string) *JobNotFoundError {
	return &JobNotFoundError{JobID: jobID}
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
