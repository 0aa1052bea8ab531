package errors

import (
	"errors"
	"strings"
)

// CLIError wraps an error with user-friendly context and suggestions.
type CLIError struct {
	// Err is the underlying error
	Err error

	// Message is a user-friendly description of what went wrong
	Message string

	// Suggestion is an actionable hint for the user
	Suggestion string

	// Details provides additional context (optional)
	Details string
}

func (e *CLIError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)

	if e.Details != "" {
		sb.WriteString("\n")
		sb.WriteString(e.Details)
	}

	if e.Suggestion != "" {
		sb.WriteString("\n\n")
		sb.WriteString(e.Suggestion)
	}

	return sb.String()
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// UserMessage converts any publish failure into a terse CLIError.
// Returns nil for a nil error. An error that already is a CLIError is
// returned unchanged.
func UserMessage(err error) *CLIError {
	if err == nil {
		return nil
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}

	switch KindOf(err) {
	case KindAuth:
		return &CLIError{
			Err:        err,
			Message:    "GitHub rejected the credential.",
			Suggestion: "Sign out and sign in again, granting the repo scope.",
		}
	case KindRepoCreation:
		return &CLIError{
			Err:        err,
			Message:    "Failed to create GitHub repository.",
			Details:    causeText(err),
			Suggestion: "Please ensure you've granted the necessary permissions.",
		}
	case KindRemoteObject:
		return &CLIError{
			Err:        err,
			Message:    "Failed to push project files to the repository.",
			Details:    causeText(err),
			Suggestion: "The repository was created but left unchanged. Try again.",
		}
	case KindDocumentWrite:
		return &CLIError{
			Err:     err,
			Message: "Unable to prepare documents.",
			Details: causeText(err),
		}
	case KindIO:
		return &CLIError{
			Err:     err,
			Message: "Failed to stage the project template.",
			Details: causeText(err),
		}
	case KindInvalidRequest:
		return &CLIError{
			Err:     err,
			Message: "Invalid submission.",
			Details: causeText(err),
		}
	}

	// Errors without a stage come from outside the pipeline, such as a
	// ledger or archive call, and are classified by their text.
	if IsAuthError(err) {
		return &CLIError{
			Err:        ErrNotAuthenticated,
			Message:    "Not signed in to GitHub.",
			Details:    err.Error(),
			Suggestion: "Pass --token or set GITHUB_TOKEN to a token with the repo scope.",
		}
	}
	if IsPermissionError(err) {
		return &CLIError{
			Err:        ErrPermissionDenied,
			Message:    "Permission denied.",
			Details:    err.Error(),
			Suggestion: "Check that the token has the repo scope.",
		}
	}
	if IsConnectionError(err) {
		return &CLIError{
			Err:        ErrConnectionFailed,
			Message:    "Cannot reach GitHub.",
			Suggestion: "Check your network connection and try again.",
		}
	}

	return &CLIError{Err: err, Message: "Failed to orchestrate repository."}
}

// causeText returns the message of the cause below the StageError.
func causeText(err error) string {
	var se *StageError
	if errors.As(err, &se) && se.Err != nil {
		return se.Err.Error()
	}
	return err.Error()
}
