package web

import (
	"fmt"
	"net/http"
)

// HTTPError is the JSON body of a failed API-style response.
type HTTPError struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func NewHTTPError(code int, detail string) *HTTPError {
	return &HTTPError{Code: code, Message: http.StatusText(code), Detail: detail}
}

func (e *HTTPError) WithRequestID(requestID string) *HTTPError {
	e.RequestID = requestID
	return e
}

func (e *HTTPError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Detail)
	}
	return e.Message
}

func (e *HTTPError) StatusCode() int {
	return e.Code
}
