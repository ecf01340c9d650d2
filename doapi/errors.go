package doapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/digitalocean/godo"

	"github.com/atoll-cloud/atoll/types"
)

// Normalize reduces any backend error to the uniform APIError shape.
// The error is never swallowed or retried here; callers decide what to
// do with the normalized result.
func Normalize(err error) *types.APIError {
	if err == nil {
		return nil
	}

	var errResp *godo.ErrorResponse
	if errors.As(err, &errResp) {
		code := 0
		reason := "unknown"
		if errResp.Response != nil {
			code = errResp.Response.StatusCode
			if text := http.StatusText(code); text != "" {
				reason = text
			}
		}
		return &types.APIError{
			Message:    errResp.Message,
			StatusCode: code,
			Reason:     reason,
		}
	}

	return &types.APIError{Message: err.Error(), Reason: "unknown"}
}

// StatusCode extracts the HTTP status from a backend error, 0 if none.
func StatusCode(err error) int {
	var errResp *godo.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		return errResp.Response.StatusCode
	}
	return 0
}

// IsNotFound reports a 404 from the backend.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsDuplicate reports a 422 "already in use" on a create-by-unique-value
// call. This is the one failure shape the engine may rescue: a single
// follow-up lookup resolves the pre-existing record instead of failing.
func IsDuplicate(err error) bool {
	if StatusCode(err) != http.StatusUnprocessableEntity {
		return false
	}
	var errResp *godo.ErrorResponse
	if !errors.As(err, &errResp) {
		return false
	}
	msg := strings.ToLower(errResp.Message)
	return strings.Contains(msg, "already in use") || strings.Contains(msg, "already exists")
}
