package publish

import (
	"errors"
	"net/http"

	"github.com/google/go-github/v57/github"

	seederrors "github.com/randalmurphal/seedrepo/errors"
)

// Upstream failure reasons recorded on StageError.Reason.
const (
	ReasonAuth       = "auth"
	ReasonNotFound   = "not_found"
	ReasonValidation = "validation"
	ReasonRateLimit  = "rate_limit"
	ReasonUnknown    = "unknown"
)

// Classify maps a go-github error to an upstream failure reason.
func Classify(err error) string {
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	var respErr *github.ErrorResponse

	switch {
	case err == nil:
		return ""
	case errors.As(err, &rateErr), errors.As(err, &abuseErr):
		return ReasonRateLimit
	case errors.As(err, &respErr) && respErr.Response != nil:
		switch respErr.Response.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return ReasonAuth
		case http.StatusNotFound:
			return ReasonNotFound
		case http.StatusUnprocessableEntity, http.StatusConflict:
			return ReasonValidation
		case http.StatusTooManyRequests:
			return ReasonRateLimit
		}
	}
	return ReasonUnknown
}

// stageErr wraps err with the kind its stage maps to.
//
// Identity failures are always AuthFailure. Repository creation is
// RepoCreationFailure unless GitHub rejected the credential outright (401).
// Everything after creation is RemoteObjectFailure.
func stageErr(stage string, err error) error {
	reason := Classify(err)
	kind := seederrors.KindRemoteObject

	switch stage {
	case stageIdentity:
		kind = seederrors.KindAuth
	case stageCreateRepo:
		kind = seederrors.KindRepoCreation
		var respErr *github.ErrorResponse
		if errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode == http.StatusUnauthorized {
			kind = seederrors.KindAuth
		}
	}
	return seederrors.Newf(stage, kind, reason, err)
}
