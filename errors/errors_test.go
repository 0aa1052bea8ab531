package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestStageError_IsMatchesKindSentinel(t *testing.T) {
	tests := []struct {
		kind Kind
		want error
	}{
		{KindIO, ErrIO},
		{KindDocumentWrite, ErrDocumentWrite},
		{KindAuth, ErrAuth},
		{KindRepoCreation, ErrRepoCreation},
		{KindRemoteObject, ErrRemoteObject},
		{KindInvalidRequest, ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := New("some_stage", tt.kind, errors.New("boom"))
			if !errors.Is(err, tt.want) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.want)
			}
			for _, other := range tests {
				if other.kind != tt.kind && errors.Is(err, other.want) {
					t.Errorf("%s error unexpectedly matches %v", tt.kind, other.want)
				}
			}
		})
	}
}

func TestStageError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("run: %w", New("merge_documents", KindDocumentWrite, cause))

	if !errors.Is(err, cause) {
		t.Error("expected error chain to reach the cause")
	}
	if got := KindOf(err); got != KindDocumentWrite {
		t.Errorf("KindOf = %q, want %q", got, KindDocumentWrite)
	}
	if got := StageOf(err); got != "merge_documents" {
		t.Errorf("StageOf = %q, want merge_documents", got)
	}
}

func TestStageError_Message(t *testing.T) {
	err := Newf("create_repository", KindRepoCreation, "validation", errors.New("name already exists"))
	want := "create_repository (validation): name already exists"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestKindOf_NoStageError(t *testing.T) {
	if got := KindOf(errors.New("plain")); got != "" {
		t.Errorf("KindOf = %q, want empty", got)
	}
	if got := KindOf(nil); got != "" {
		t.Errorf("KindOf(nil) = %q, want empty", got)
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantNil    bool
		wantSubstr string
	}{
		{name: "nil", err: nil, wantNil: true},
		{
			name:       "auth",
			err:        New("resolve_identity", KindAuth, errors.New("401 Bad credentials")),
			wantSubstr: "repo scope",
		},
		{
			name:       "repo creation keeps upstream message",
			err:        New("create_repository", KindRepoCreation, errors.New("name already exists on this account")),
			wantSubstr: "name already exists on this account",
		},
		{
			name:       "remote object",
			err:        New("advance_ref", KindRemoteObject, errors.New("422 Update is not a fast forward")),
			wantSubstr: "left unchanged",
		},
		{
			name:       "raw auth failure",
			err:        errors.New("GET https://api.github.com/user: 401 Bad credentials"),
			wantSubstr: "Not signed in",
		},
		{
			name:       "raw permission failure",
			err:        errors.New("POST https://api.github.com/user/repos: 403 Resource not accessible"),
			wantSubstr: "Permission denied",
		},
		{
			name:       "connection",
			err:        errors.New("dial tcp: connection refused"),
			wantSubstr: "Cannot reach GitHub",
		},
		{
			name:       "fallback",
			err:        errors.New("something odd"),
			wantSubstr: "Failed to orchestrate repository.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UserMessage(tt.err)
			if tt.wantNil {
				if got != nil {
					t.Errorf("expected nil, got %v", got)
				}
				return
			}
			if !strings.Contains(got.Error(), tt.wantSubstr) {
				t.Errorf("UserMessage() = %q, want substring %q", got.Error(), tt.wantSubstr)
			}
		})
	}
}

func TestUserMessage_StagelessSentinels(t *testing.T) {
	if got := UserMessage(errors.New("401 Unauthorized")); !errors.Is(got, ErrNotAuthenticated) {
		t.Errorf("UserMessage(401) = %v, want ErrNotAuthenticated", got)
	}
	if got := UserMessage(errors.New("403 Forbidden")); !errors.Is(got, ErrPermissionDenied) {
		t.Errorf("UserMessage(403) = %v, want ErrPermissionDenied", got)
	}
	staged := New("resolve_identity", KindAuth, errors.New("401 Bad credentials"))
	if got := UserMessage(staged); errors.Is(got, ErrNotAuthenticated) {
		t.Error("staged auth failures keep their own message")
	}
}

func TestUserMessage_PassesThroughCLIError(t *testing.T) {
	orig := &CLIError{Err: ErrPermissionDenied, Message: "nope"}
	if got := UserMessage(fmt.Errorf("wrapped: %w", orig)); got != orig {
		t.Errorf("expected original CLIError, got %v", got)
	}
}

func TestCLIError(t *testing.T) {
	err := &CLIError{
		Err:        ErrNotAuthenticated,
		Message:    "Test message",
		Suggestion: "Test suggestion",
		Details:    "Test details",
	}

	errStr := err.Error()
	for _, want := range []string{"Test message", "Test details", "Test suggestion"} {
		if !strings.Contains(errStr, want) {
			t.Errorf("expected error to contain %q, got %q", want, errStr)
		}
	}
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Error("expected error to unwrap to ErrNotAuthenticated")
	}
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		auth       bool
		permission bool
		connection bool
	}{
		{name: "nil", err: nil},
		{name: "auth sentinel", err: New("resolve_identity", KindAuth, errors.New("x")), auth: true},
		{name: "bad credentials", err: errors.New("GET /user: 401 Bad credentials"), auth: true},
		{name: "forbidden", err: errors.New("403 Forbidden"), permission: true},
		{name: "timeout", err: errors.New("context deadline exceeded"), connection: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAuthError(tt.err); got != tt.auth {
				t.Errorf("IsAuthError = %v, want %v", got, tt.auth)
			}
			if got := IsPermissionError(tt.err); got != tt.permission {
				t.Errorf("IsPermissionError = %v, want %v", got, tt.permission)
			}
			if got := IsConnectionError(tt.err); got != tt.connection {
				t.Errorf("IsConnectionError = %v, want %v", got, tt.connection)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(Newf("upload_blobs", KindRemoteObject, "rate_limit", errors.New("API rate limit exceeded"))) {
		t.Error("rate-limited failure should be retryable by the caller")
	}
	if IsRetryable(Newf("create_repository", KindRepoCreation, "validation", errors.New("exists"))) {
		t.Error("validation failure should not be retryable")
	}
}
