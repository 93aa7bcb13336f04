package provider

import (
	"fmt"
	"net/http"
)

// StatusCoder is implemented by errors that carry an HTTP-equivalent status.
type StatusCoder interface {
	StatusCode() int
}

// Error is a failure reported by a provider call.
type Error struct {
	Provider string
	Status   int
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Status != 0 {
		msg = http.StatusText(e.Status)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Provider == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Provider, msg)
}

func (e *Error) StatusCode() int {
	return e.Status
}

func (e *Error) Unwrap() error {
	return e.Cause
}
