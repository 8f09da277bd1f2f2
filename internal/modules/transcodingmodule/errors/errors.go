// Package errors provides structured error handling for the transcoding module.
// It defines error types, sentinel errors, and utility functions for consistent
// error handling across stages, jobs and sessions.
package errors

import (
	"errors"
	"fmt"
)

// Error types for classification
type ErrorType string

const (
	// ErrorTypeConfig indicates a stage specification failed validation
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeUsage indicates the caller drove a job incorrectly
	ErrorTypeUsage ErrorType = "usage"
	// ErrorTypeProcess indicates a spawned stage process failed
	ErrorTypeProcess ErrorType = "process"
	// ErrorTypeProbe indicates media probing failed
	ErrorTypeProbe ErrorType = "probe"
	// ErrorTypeSession indicates session-related errors
	ErrorTypeSession ErrorType = "session"
	// ErrorTypeStorage indicates storage-related errors
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeValidation indicates input validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeInternal indicates internal system errors
	ErrorTypeInternal ErrorType = "internal"
)

// Stage configuration errors. This set is closed: every stage validator
// reports exactly one of these.
var (
	ErrVideoEncoderKind    = errors.New("video cannot have an audio or subtitle encoder")
	ErrAudioEncoderKind    = errors.New("audio cannot have an video or subtitle encoder")
	ErrSubtitleEncoderKind = errors.New("subtitle cannot have an audio or video encoder")
	ErrNoStreamsEnabled    = errors.New("no streams are enabled")
	ErrCRFOnNonVideo       = errors.New("audio and subtitles cannot have a crf")
	ErrRateWithoutEncoder  = errors.New("bitrate and crf cannot be set without an encoder")
	ErrFileNotFound        = errors.New("File does not exist")
	ErrDirectoryExists     = errors.New("directory already exists")
	ErrNotDirectory        = errors.New("path must be a directory")
	ErrNoInputs            = errors.New("no input files")
)

// Sentinel errors for common scenarios
var (
	// ErrAlreadyStarted is returned when starting a job twice or with no stages
	ErrAlreadyStarted = errors.New("the session has already been started")

	// ErrProcessFailed indicates a stage process exited non-zero
	ErrProcessFailed = errors.New("stage process failed")

	// ErrSessionNotFound indicates a session ID doesn't exist
	ErrSessionNotFound = errors.New("session not found")

	// ErrMediaNotFound indicates a media id did not resolve to an accepted file
	ErrMediaNotFound = errors.New("media not found")

	// ErrInvalidInput indicates invalid request parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrCancelled indicates an operation was cancelled
	ErrCancelled = errors.New("operation cancelled")
)

// TranscodingError provides structured error information with context
type TranscodingError struct {
	Type      ErrorType              // Error classification
	Op        string                 // Operation that failed (e.g., "validate_encoding", "run_stage")
	SessionID string                 // Related session ID if applicable
	Err       error                  // Underlying error
	Details   map[string]interface{} // Additional context
}

// Error implements the error interface
func (e *TranscodingError) Error() string {
	if e.SessionID != "" {
		return fmt.Sprintf("%s error in %s for session %s: %v", e.Type, e.Op, e.SessionID, e.Err)
	}
	return fmt.Sprintf("%s error in %s: %v", e.Type, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *TranscodingError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for sentinel errors
func (e *TranscodingError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// New creates a new TranscodingError
func New(errType ErrorType, op string, err error) *TranscodingError {
	return &TranscodingError{
		Type:    errType,
		Op:      op,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// WithSession adds session context to the error
func (e *TranscodingError) WithSession(sessionID string) *TranscodingError {
	e.SessionID = sessionID
	return e
}

// WithDetail adds a key-value detail to the error
func (e *TranscodingError) WithDetail(key string, value interface{}) *TranscodingError {
	e.Details[key] = value
	return e
}

// Error creation helpers

// ConfigError creates a stage configuration error
func ConfigError(op string, err error) *TranscodingError {
	return New(ErrorTypeConfig, op, err)
}

// UsageError creates a caller usage error
func UsageError(op string, err error) *TranscodingError {
	return New(ErrorTypeUsage, op, err)
}

// ProcessError creates a stage process error
func ProcessError(op string, err error) *TranscodingError {
	return New(ErrorTypeProcess, op, err)
}

// ProbeError creates a media probe error
func ProbeError(op string, err error) *TranscodingError {
	return New(ErrorTypeProbe, op, err)
}

// SessionError creates a session-related error
func SessionError(op string, err error) *TranscodingError {
	return New(ErrorTypeSession, op, err)
}

// StorageError creates a storage-related error
func StorageError(op string, err error) *TranscodingError {
	return New(ErrorTypeStorage, op, err)
}

// ValidationError creates a validation error
func ValidationError(op string, err error) *TranscodingError {
	return New(ErrorTypeValidation, op, err)
}

// InternalError creates an internal system error
func InternalError(op string, err error) *TranscodingError {
	return New(ErrorTypeInternal, op, err)
}

// Wrap wraps an error with operation context if it's not already a TranscodingError
func Wrap(err error, errType ErrorType, op string) error {
	if err == nil {
		return nil
	}

	var tErr *TranscodingError
	if errors.As(err, &tErr) {
		return err
	}

	return New(errType, op, err)
}

// IsConfig reports whether err is a stage configuration error
func IsConfig(err error) bool {
	return GetType(err) == ErrorTypeConfig
}

// GetType extracts the error type from an error
func GetType(err error) ErrorType {
	var tErr *TranscodingError
	if errors.As(err, &tErr) {
		return tErr.Type
	}
	return ErrorTypeInternal
}

// GetOperation extracts the operation from an error
func GetOperation(err error) string {
	var tErr *TranscodingError
	if errors.As(err, &tErr) {
		return tErr.Op
	}
	return "unknown"
}

// GetDetails extracts error details
func GetDetails(err error) map[string]interface{} {
	var tErr *TranscodingError
	if errors.As(err, &tErr) {
		return tErr.Details
	}
	return nil
}
