package analysis

import (
	"errors"
	"fmt"
)

// FailureMessage is the only text a client ever sees for a failed analysis.
const FailureMessage = "Analysis failed. Please try again with clear evidence."

var (
	// ErrGeolocationUnavailable is reported by a location provider that cannot resolve a position.
	ErrGeolocationUnavailable = errors.New("geolocation unavailable")
	// ErrBusy is returned when an analysis is already in flight for the workspace.
	ErrBusy = errors.New("analysis already in progress")
	// ErrNoChamber is returned when an upload arrives before a chamber is selected.
	ErrNoChamber = errors.New("no chamber selected")
	// ErrUnknownChamber is returned when a caller names a chamber that does not exist.
	ErrUnknownChamber = errors.New("unknown chamber")
)

// ValidationError is a user input problem handled inline, without any state transition.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidationError builds a ValidationError from a format string.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// AnalysisFailure wraps any synthesizer failure. Error() stays generic;
// the cause is only for logs.
type AnalysisFailure struct {
	Cause error
}

func (e *AnalysisFailure) Error() string { return FailureMessage }

func (e *AnalysisFailure) Unwrap() error { return e.Cause }

// Detail returns the underlying cause text for logging.
func (e *AnalysisFailure) Detail() string {
	if e.Cause == nil {
		return "unknown"
	}
	return e.Cause.Error()
}
