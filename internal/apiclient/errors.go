package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// NetworkError means the request never produced an HTTP response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// TimeoutError means the call's deadline passed before a response arrived.
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out: %v", e.Op, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx response. Message comes from the body's error or
// message field when present.
type HTTPError struct {
	Op      string
	Status  int
	Code    string
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: http %d: %s", e.Op, e.Status, e.Message)
}

// StaleStateError means the server rejected a change made against an
// outdated list version, or a newer local change superseded this one.
type StaleStateError struct {
	Op      string
	Message string
}

func (e *StaleStateError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "changes conflicted, please retry"
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

// ValidationError rejects input before any request is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// SchemaError means a response did not match the expected shape.
type SchemaError struct {
	Op     string
	Reason string
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: unexpected response: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: unexpected response: %s", e.Op, e.Reason)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// Kind names the error category for logs and metrics labels.
func Kind(err error) string {
	var (
		netErr     *NetworkError
		timeoutErr *TimeoutError
		httpErr    *HTTPError
		staleErr   *StaleStateError
		validErr   *ValidationError
		schemaErr  *SchemaError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &validErr):
		return "validation"
	case errors.As(err, &staleErr):
		return "stale"
	case errors.As(err, &timeoutErr):
		return "timeout"
	case errors.As(err, &netErr):
		return "network"
	case errors.As(err, &httpErr):
		return "http"
	case errors.As(err, &schemaErr):
		return "schema"
	default:
		return "unknown"
	}
}

// UserMessage renders err as a short notification text.
func UserMessage(err error) string {
	var (
		httpErr  *HTTPError
		validErr *ValidationError
	)
	switch Kind(err) {
	case "validation":
		errors.As(err, &validErr)
		return validErr.Message
	case "stale":
		return "Changes conflicted, please retry."
	case "timeout":
		return "The server took too long to respond."
	case "network":
		return "Could not reach the server."
	case "http":
		errors.As(err, &httpErr)
		return httpErr.Message
	case "schema":
		return "The server sent an unexpected response."
	default:
		return "Something went wrong."
	}
}

// classifyTransport converts a transport failure into NetworkError or
// TimeoutError.
func classifyTransport(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Op: op, Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &TimeoutError{Op: op, Err: err}
	}
	return &NetworkError{Op: op, Err: err}
}

// apiError mirrors the server's error body. Some endpoints use message
// instead of error.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func statusError(op string, status int, body *apiError) error {
	msg := ""
	code := ""
	if body != nil {
		code = body.Code
		msg = body.Error
		if msg == "" {
			msg = body.Message
		}
	}
	if msg == "" {
		msg = genericMessage(status)
	}
	if status == http.StatusConflict {
		return &StaleStateError{Op: op, Message: msg}
	}
	return &HTTPError{Op: op, Status: status, Code: code, Message: msg}
}

func genericMessage(status int) string {
	if text := http.StatusText(status); text != "" {
		return "request failed: " + text
	}
	return fmt.Sprintf("request failed with status %d", status)
}
