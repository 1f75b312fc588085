// Package apperrors defines the typed error carried from validation gates
// to the HTTP and CLI boundaries. Boundaries log the full error with its
// metadata and surface only UserMessage() to end users.
package apperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Error codes produced by this core.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeFileTooLarge = "FILE_TOO_LARGE"
	CodeFileEmpty    = "FILE_EMPTY"
	CodeFileName     = "FILE_NAME_INVALID"
	CodeFileType     = "FILE_TYPE_INVALID"
	CodeTypeMismatch = "FILE_TYPE_MISMATCH"
	CodeUnreadable   = "FILE_UNREADABLE"
	CodeProbeFailed  = "VIDEO_PROBE_FAILED"
	CodeBadEmail     = "EMAIL_INVALID"
	CodeBadJSON      = "JSON_INVALID"
	CodeBadNumber    = "NUMBER_INVALID"
	CodeAssertion    = "ASSERTION_FAILED"
	CodeInternal     = "INTERNAL_ERROR"
)

const genericUserMessage = "Something went wrong. Please try again."

// AppError is the single error type crossing module boundaries. Message is
// machine-safe but internal; Metadata is for logs only and must never be
// shown to users.
type AppError struct {
	Code     string
	Message  string
	Status   int
	Metadata map[string]any

	userMessage string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// UserMessage returns the string safe to show an end user. Validation
// errors describe user input and pass through; everything else collapses
// to a generic message.
func (e *AppError) UserMessage() string {
	if e.userMessage != "" {
		return e.userMessage
	}
	if e.Status == 400 {
		return e.Message
	}
	return genericUserMessage
}

// WithUserMessage overrides the user-facing string, for gates whose
// internal message would leak processing details.
func (e *AppError) WithUserMessage(msg string) *AppError {
	e.userMessage = msg
	return e
}

// MarshalJSON shapes the error the way HTTP boundaries respond with it.
func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}{Error: e.Code, Message: e.UserMessage()})
}

// New builds an AppError with an explicit status.
func New(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, Status: status}
}

// NewValidation builds a 400-class error for a user input problem.
// Metadata carries the offending values for logging.
func NewValidation(code, message string, metadata map[string]any) *AppError {
	return &AppError{Code: code, Message: message, Status: 400, Metadata: metadata}
}

// IsValidation reports whether err is (or wraps) a 400-class AppError.
func IsValidation(err error) bool {
	var ae *AppError
	return errors.As(err, &ae) && ae.Status == 400
}

// As unwraps err into an *AppError if possible.
func As(err error) (*AppError, bool) {
	var ae *AppError
	ok := errors.As(err, &ae)
	return ae, ok
}

// Assert returns a validation error when cond is false. Fail fast with a
// precise message instead of propagating a bad state.
func Assert(cond bool, message string) error {
	if cond {
		return nil
	}
	return NewValidation(CodeAssertion, message, nil)
}

// AssertNotNil rejects nil values for a named field.
func AssertNotNil(name string, v any) error {
	if v == nil {
		return NewValidation(CodeAssertion, name+" must not be nil", map[string]any{"field": name})
	}
	return nil
}

// AssertFinite rejects NaN and infinities for a named field.
func AssertFinite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NewValidation(CodeAssertion, name+" must be a finite number", map[string]any{"field": name, "value": fmt.Sprint(v)})
	}
	return nil
}

// AssertInRange rejects values outside [min, max] for a named field.
func AssertInRange(name string, v, min, max float64) error {
	if err := AssertFinite(name, v); err != nil {
		return err
	}
	if v < min || v > max {
		return NewValidation(CodeAssertion,
			fmt.Sprintf("%s must be between %v and %v", name, min, max),
			map[string]any{"field": name, "value": v})
	}
	return nil
}
