package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{
		Field:   "url",
		Message: "is required",
	}

	expected := "validation error on field 'url': is required"
	if err.Error() != expected {
		t.Errorf("Expected %s, got %s", expected, err.Error())
	}
}

func TestMultiError_Error(t *testing.T) {
	tests := []struct {
		name     string
		errors   []error
		expected string
	}{
		{
			name:     "No errors",
			errors:   []error{},
			expected: "no errors",
		},
		{
			name:     "Single error",
			errors:   []error{errors.New("first error")},
			expected: "first error",
		},
		{
			name:     "Multiple errors",
			errors:   []error{errors.New("first error"), errors.New("second error")},
			expected: "first error (and 1 more errors)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			multiErr := MultiError{Errors: tt.errors}
			result := multiErr.Error()
			if result != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, result)
			}
		})
	}
}

func TestMultiError_AddAndErrorOrNil(t *testing.T) {
	multiErr := &MultiError{}

	multiErr.Add(nil)
	if multiErr.HasErrors() {
		t.Error("Expected HasErrors to return false after adding nil")
	}
	if multiErr.ErrorOrNil() != nil {
		t.Error("Expected ErrorOrNil to return nil for empty MultiError")
	}

	missing := ConfigurationError{Component: "whisper", Path: "/opt/model.bin", Err: ErrToolMissing}
	multiErr.Add(missing)
	multiErr.Add(errors.New("second"))
	if len(multiErr.Errors) != 2 {
		t.Fatalf("Expected 2 errors, got %d", len(multiErr.Errors))
	}

	err := multiErr.ErrorOrNil()
	if !errors.Is(err, ErrToolMissing) {
		t.Error("Expected errors.Is to find ErrToolMissing through MultiError")
	}
	if !IsConfiguration(err) {
		t.Error("Expected IsConfiguration to find ConfigurationError through MultiError")
	}
}

func TestDatabaseError_Error(t *testing.T) {
	originalErr := errors.New("connection failed")
	dbErr := DatabaseError{
		Operation: "migrate",
		Err:       originalErr,
	}

	expected := "database error during migrate: connection failed"
	if dbErr.Error() != expected {
		t.Errorf("Expected %s, got %s", expected, dbErr.Error())
	}
	if dbErr.Unwrap() != originalErr {
		t.Error("Expected Unwrap to return original error")
	}
}

func TestConfigurationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      ConfigurationError
		expected string
	}{
		{
			name:     "With path",
			err:      ConfigurationError{Component: "ffmpeg", Path: "ffmpeg", Err: ErrToolMissing},
			expected: "configuration error in ffmpeg (ffmpeg): required tool missing",
		},
		{
			name:     "Without path",
			err:      ConfigurationError{Component: "whisper", Err: ErrToolMissing},
			expected: "configuration error in whisper: required tool missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, tt.err.Error())
			}
		})
	}
}

func TestIsConfiguration(t *testing.T) {
	wrapped := fmt.Errorf("validate: %w", ConfigurationError{Component: "ffmpeg", Err: ErrToolMissing})
	if !IsConfiguration(wrapped) {
		t.Error("Expected wrapped ConfigurationError to be detected")
	}
	if IsConfiguration(ErrCaptureFailed) {
		t.Error("Expected capture failure not to be a configuration error")
	}
}

func TestPipelineError_Error(t *testing.T) {
	originalErr := fmt.Errorf("%w: exit status 1", ErrCaptureFailed)
	pipelineErr := PipelineError{
		Feed:  3,
		Stage: StageCapture,
		Err:   originalErr,
	}

	expected := "pipeline error for feed 3 at stage capture: audio capture failed: exit status 1"
	if pipelineErr.Error() != expected {
		t.Errorf("Expected %s, got %s", expected, pipelineErr.Error())
	}
	if !errors.Is(pipelineErr, ErrCaptureFailed) {
		t.Error("Expected errors.Is to reach ErrCaptureFailed")
	}
}

func TestPipelineError_UnwrapCancellation(t *testing.T) {
	pipelineErr := PipelineError{Feed: 1, Stage: StageTranscribe, Err: context.Canceled}
	if !errors.Is(pipelineErr, context.Canceled) {
		t.Error("Expected errors.Is to reach context.Canceled")
	}
}

func TestErrorConstants(t *testing.T) {
	errorConstants := []error{
		ErrNotFound,
		ErrInvalidInput,
		ErrConflict,
		ErrServiceUnavailable,
		ErrTimeout,
		ErrToolMissing,
		ErrCaptureFailed,
		ErrTranscriptionFailed,
	}

	for i, err := range errorConstants {
		if err == nil {
			t.Errorf("Error constant at index %d is nil", i)
		}
		if err.Error() == "" {
			t.Errorf("Error constant at index %d has empty message", i)
		}
	}
}
