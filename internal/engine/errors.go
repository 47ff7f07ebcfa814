package engine

import (
	"errors"
	"fmt"
)

// ExecutionError is returned by Execute for precondition failures and
// dispatcher failures. Context cancellation is returned as ctx.Err() instead.
//
// Execution errors include:
//   - Already running: another run holds the engine
//   - Service unavailable: the dispatcher reports it cannot tap
//   - No enabled points: nothing left after filtering
//   - Invalid config: negative start delay or loop count
//   - Dispatch failed: SimulateClick returned an error mid-run
type ExecutionError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// RunID identifies the affected run (dispatch failures only).
	RunID string

	// PointID identifies the point whose tap failed (dispatch failures only).
	PointID string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes execution errors.
type ErrorCode string

const (
	// ErrCodeAlreadyRunning indicates a concurrent Execute. Recoverable by
	// stopping the current run first.
	ErrCodeAlreadyRunning ErrorCode = "ALREADY_RUNNING"

	// ErrCodeServiceUnavailable indicates the dispatcher cannot tap.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"

	// ErrCodeNoEnabledPoints indicates every point is disabled or the list is empty.
	ErrCodeNoEnabledPoints ErrorCode = "NO_ENABLED_POINTS"

	// ErrCodeInvalidConfig indicates a RunConfig with negative values.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"

	// ErrCodeDispatchFailed indicates SimulateClick failed and the run was aborted.
	ErrCodeDispatchFailed ErrorCode = "DISPATCH_FAILED"
)

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.RunID != "" && e.PointID != "" {
		msg = fmt.Sprintf("%s (run=%s, point=%s)", msg, e.RunID, e.PointID)
	} else if e.RunID != "" {
		msg = fmt.Sprintf("%s (run=%s)", msg, e.RunID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// CodeOf returns the ExecutionError code in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

// IsAlreadyRunning reports whether err is an already-running error.
func IsAlreadyRunning(err error) bool {
	return CodeOf(err) == ErrCodeAlreadyRunning
}

// IsServiceUnavailable reports whether err is a service-unavailable error.
func IsServiceUnavailable(err error) bool {
	return CodeOf(err) == ErrCodeServiceUnavailable
}

// IsNoEnabledPoints reports whether err is a no-enabled-points error.
func IsNoEnabledPoints(err error) bool {
	return CodeOf(err) == ErrCodeNoEnabledPoints
}

// IsDispatchFailed reports whether err is a mid-run dispatcher failure.
func IsDispatchFailed(err error) bool {
	return CodeOf(err) == ErrCodeDispatchFailed
}

// NewAlreadyRunningError creates an ExecutionError for a concurrent Execute.
func NewAlreadyRunningError() *ExecutionError {
	return &ExecutionError{
		Code:    ErrCodeAlreadyRunning,
		Message: "execution already in progress",
	}
}

// NewServiceUnavailableError creates an ExecutionError for a disabled dispatcher.
func NewServiceUnavailableError() *ExecutionError {
	return &ExecutionError{
		Code:    ErrCodeServiceUnavailable,
		Message: "input service not enabled",
	}
}

// NewNoEnabledPointsError creates an ExecutionError when filtering leaves nothing.
func NewNoEnabledPointsError(total int) *ExecutionError {
	return &ExecutionError{
		Code:    ErrCodeNoEnabledPoints,
		Message: fmt.Sprintf("no enabled click points (%d total)", total),
	}
}

// NewInvalidConfigError wraps a RunConfig validation failure.
func NewInvalidConfigError(err error) *ExecutionError {
	return &ExecutionError{
		Code:    ErrCodeInvalidConfig,
		Message: "invalid run config",
		Err:     err,
	}
}

// NewDispatchError wraps a SimulateClick failure.
func NewDispatchError(runID, pointID string, err error) *ExecutionError {
	return &ExecutionError{
		Code:    ErrCodeDispatchFailed,
		Message: "tap dispatch failed",
		RunID:   runID,
		PointID: pointID,
		Err:     err,
	}
}
