package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrSessionNotFound is returned when a quiz session does not exist or was discarded.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a submitted option ID is invalid.
	ErrOptionNotFound = errors.New("option not found")
	// ErrIndexOutOfRange is returned for navigation outside the question list.
	ErrIndexOutOfRange = errors.New("question index out of range")
	// ErrSessionCompleted is returned when mutating a finished session.
	ErrSessionCompleted = errors.New("quiz session already completed")
	// ErrSessionInProgress is returned when a result is requested too early.
	ErrSessionInProgress = errors.New("quiz session still in progress")
	// ErrConfirmationRequired guards discarding a session that holds answers.
	ErrConfirmationRequired = errors.New("exit requires confirmation: progress will be lost")
)

// ValidationError reports malformed generation input, keyed by field.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid generation request"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid generation request: " + strings.Join(parts, "; ")
}

// ConfigurationError means the generation backend is unconfigured or unreachable.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "generator not configured: " + e.Reason
}

// GenerationError wraps a backend failure during generation.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return "quiz generation failed: " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error { return e.Err }
