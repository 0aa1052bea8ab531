package errors

import "errors"

// Kind categorizes a publish failure.
type Kind string

// Failure kinds.
const (
	KindIO             Kind = "io_failure"
	KindDocumentWrite  Kind = "document_write_failure"
	KindAuth           Kind = "auth_failure"
	KindRepoCreation   Kind = "repo_creation_failure"
	KindRemoteObject   Kind = "remote_object_failure"
	KindInvalidRequest Kind = "invalid_request"
)

// Sentinels matched by StageError via errors.Is.
var (
	// ErrIO indicates a local filesystem copy, read, write or list failed.
	ErrIO = errors.New("filesystem operation failed")

	// ErrDocumentWrite indicates a caller-supplied document could not be materialized.
	ErrDocumentWrite = errors.New("document could not be written")

	// ErrAuth indicates the credential is invalid or lacks the required scope.
	ErrAuth = errors.New("authentication failed")

	// ErrRepoCreation indicates the remote repository could not be created.
	ErrRepoCreation = errors.New("repository creation failed")

	// ErrRemoteObject indicates a blob, tree, commit or ref step failed
	// after the repository was created.
	ErrRemoteObject = errors.New("remote object creation failed")

	// ErrInvalidRequest indicates the request failed validation.
	ErrInvalidRequest = errors.New("invalid request")
)

// Common CLI errors with actionable guidance.
var (
	// ErrNotAuthenticated indicates the user needs to log in.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrConnectionFailed indicates the server is unreachable.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrPermissionDenied indicates insufficient permissions.
	ErrPermissionDenied = errors.New("permission denied")
)

var sentinels = map[Kind]error{
	KindIO:             ErrIO,
	KindDocumentWrite:  ErrDocumentWrite,
	KindAuth:           ErrAuth,
	KindRepoCreation:   ErrRepoCreation,
	KindRemoteObject:   ErrRemoteObject,
	KindInvalidRequest: ErrInvalidRequest,
}

// Sentinel returns the sentinel error for a kind, or nil for an unknown kind.
func Sentinel(k Kind) error {
	return sentinels[k]
}
