package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized is matched by every 401 response. Callers send the user to login.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound is matched by every 404 response.
	ErrNotFound = errors.New("not found")

	// ErrInvalidVariables is returned before upload when template variables are not a usable schema.
	ErrInvalidVariables = errors.New("invalid template variables")

	// ErrEmptyJobID is returned when a job endpoint answers without a job id.
	ErrEmptyJobID = errors.New("backend returned no job id")
)

// Error is a non-2xx answer from the backend.
type Error struct {
	// Op is the client method that failed (e.g., "GetDocument").
	Op string

	// StatusCode is the HTTP status of the response.
	StatusCode int

	// Detail is the backend's "detail" message, or the raw body.
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api: %s failed: %d %s: %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode), e.Detail)
	}
	return fmt.Sprintf("api: %s failed: %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
}

// Is lets errors.Is match ErrUnauthorized and ErrNotFound by status code.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Detail returns the backend detail carried by err, or "".
func Detail(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return ""
}
