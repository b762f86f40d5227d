package grading

import (
	"context"
	"errors"
	"net/http"
)

// Kind classifies grading failures. It implements error so that
// errors.Is(err, ErrTimeout) and friends work on any wrapped *Error.
type Kind string

func (k Kind) Error() string { return string(k) }

const (
	ErrValidation          Kind = "validation error"
	ErrConfiguration       Kind = "configuration error"
	ErrUpstreamUnavailable Kind = "upstream unavailable"
	ErrEmptyResponse       Kind = "empty response"
	ErrMalformedResponse   Kind = "malformed response"
	ErrTimeout             Kind = "timeout"
)

type Error struct {
	Kind Kind
	// Message is safe to return to the caller.
	Message string
	// StatusCode is the upstream HTTP status when one was received.
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

func NewError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func ValidationError(message string) *Error {
	return &Error{Kind: ErrValidation, Message: message}
}

func ConfigurationError(message string) *Error {
	return &Error{Kind: ErrConfiguration, Message: message}
}

func UpstreamError(message string, statusCode int, err error) *Error {
	return &Error{Kind: ErrUpstreamUnavailable, Message: message, StatusCode: statusCode, Err: err}
}

// StatusCode maps an error to the HTTP status the grading endpoint answers with.
func StatusCode(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case ErrValidation:
		return http.StatusBadRequest
	case ErrUpstreamUnavailable, ErrEmptyResponse, ErrMalformedResponse, ErrTimeout:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the caller-facing message of err.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if err == nil || err.Error() == "" {
		return "Unexpected error while grading"
	}
	return err.Error()
}

// IsRetryable reports whether err is a transient upstream failure: a network
// error, a rate limit or a 5xx.
func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) || e.Kind != ErrUpstreamUnavailable {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch {
	case e.StatusCode == 0:
		return e.Err != nil
	case e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	}
	return false
}
