package errors

import (
	"errors"
	"strings"
)

// StageError wraps a failure with the pipeline stage that produced it.
type StageError struct {
	Stage  string // Pipeline stage (e.g., "stage_workspace", "upload_blobs")
	Kind   Kind   // Failure category
	Reason string // Upstream classification (e.g., "rate_limit"), optional
	Err    error  // Underlying cause
}

// New creates a StageError.
func New(stage string, kind Kind, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}

// Newf is New with an upstream reason attached.
func Newf(stage string, kind Kind, reason string, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Reason: reason, Err: err}
}

func (e *StageError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Stage)
	if e.Reason != "" {
		sb.WriteString(" (")
		sb.WriteString(e.Reason)
		sb.WriteString(")")
	}
	sb.WriteString(": ")
	if e.Err != nil {
		sb.WriteString(e.Err.Error())
	} else {
		sb.WriteString(string(e.Kind))
	}
	return sb.String()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *StageError) Is(target error) bool {
	s := sentinels[e.Kind]
	return s != nil && s == target
}

// KindOf returns the Kind of the first StageError in err's chain.
// Returns "" when err carries no StageError.
func KindOf(err error) Kind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// StageOf returns the stage of the first StageError in err's chain.
func StageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
