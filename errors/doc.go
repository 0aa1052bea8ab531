// Package errors defines the failure taxonomy for a publish attempt and the
// user-facing messages derived from it.
//
// Core types:
//   - Kind: the category of a failure (io, document write, auth, ...)
//   - StageError: a failure tagged with the pipeline stage that produced it
//   - CLIError: a terse message plus an actionable suggestion for the caller
//
// Every StageError matches its kind's sentinel with errors.Is, so callers
// can branch without type assertions:
//
//	if errors.Is(err, seederrors.ErrAuth) {
//	    // ask the user to sign in again
//	}
package errors
