package errors

import (
	"errors"
	"fmt"
)

// Application-specific errors
var (
	ErrNotFound            = errors.New("resource not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrConflict            = errors.New("resource conflict")
	ErrServiceUnavailable  = errors.New("service unavailable")
	ErrTimeout             = errors.New("operation timeout")
	ErrToolMissing         = errors.New("required tool missing")
	ErrCaptureFailed       = errors.New("audio capture failed")
	ErrTranscriptionFailed = errors.New("transcription failed")
)

// Pipeline stage names used in PipelineError
const (
	StageValidate   = "validate"
	StageCapture    = "capture"
	StageTranscribe = "transcribe"
	StagePersist    = "persist"
	StagePublish    = "publish"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// MultiError represents multiple errors
type MultiError struct {
	Errors []error `json:"errors"`
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", e.Errors[0].Error(), len(e.Errors)-1)
}

// Unwrap exposes the collected errors to errors.Is and errors.As
func (e MultiError) Unwrap() []error {
	return e.Errors
}

// Add adds an error to the MultiError
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors
func (e *MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ErrorOrNil returns nil when nothing was collected
func (e *MultiError) ErrorOrNil() error {
	if !e.HasErrors() {
		return nil
	}
	return *e
}

// DatabaseError represents a database-related error
type DatabaseError struct {
	Operation string
	Err       error
}

func (e DatabaseError) Error() string {
	return fmt.Sprintf("database error during %s: %v", e.Operation, e.Err)
}

func (e DatabaseError) Unwrap() error {
	return e.Err
}

// ConfigurationError marks a fault that needs operator intervention.
// A monitor that hits one stops without retrying.
type ConfigurationError struct {
	Component string
	Path      string
	Err       error
}

func (e ConfigurationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("configuration error in %s: %v", e.Component, e.Err)
	}
	return fmt.Sprintf("configuration error in %s (%s): %v", e.Component, e.Path, e.Err)
}

func (e ConfigurationError) Unwrap() error {
	return e.Err
}

// IsConfiguration reports whether err carries a ConfigurationError
func IsConfiguration(err error) bool {
	var cfgErr ConfigurationError
	return errors.As(err, &cfgErr)
}

// PipelineError represents a failure at one stage of a feed's pipeline
type PipelineError struct {
	Feed  int64
	Stage string
	Err   error
}

func (e PipelineError) Error() string {
	return fmt.Sprintf("pipeline error for feed %d at stage %s: %v", e.Feed, e.Stage, e.Err)
}

func (e PipelineError) Unwrap() error {
	return e.Err
}
