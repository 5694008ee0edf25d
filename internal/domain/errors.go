// Package domain defines core types, naming rules, and errors for taxi trip ingestion.
package domain

import "fmt"

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// RemoteError reports a non-success HTTP response from a remote endpoint.
type RemoteError struct {
	Method     string // empty means GET
	URL        string
	StatusCode int
	Status     string
}

func (e *RemoteError) Error() string {
	method := e.Method
	if method == "" {
		method = "GET"
	}
	return fmt.Sprintf("%s %s: unexpected status %s", method, e.URL, e.Status)
}

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
