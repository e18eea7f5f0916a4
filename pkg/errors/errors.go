// Package errors defines the sentinel errors shared by the indexer, the
// searcher and the HTTP API, plus an AppError type that attaches a message
// to a sentinel without hiding it from errors.Is.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrEmptyOrMissingStore means the document store could not be enumerated.
	ErrEmptyOrMissingStore = errors.New("document store missing or not enumerable")
	// ErrMalformedDocument means a document name is not a valid id or its
	// content cannot be read as text.
	ErrMalformedDocument = errors.New("malformed document")
	// ErrDocumentTooShort means a document is shorter than the snippet length.
	ErrDocumentTooShort = errors.New("document too short for snippet")
	// ErrDocumentUnavailable means a document could not be re-read from the
	// store after indexing.
	ErrDocumentUnavailable = errors.New("document unavailable")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInternal            = errors.New("internal error")
)

type AppError struct {
	Err     error
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, message string) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: message,
	}
}

func Newf(sentinel error, format string, args ...any) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
	}
}

// HTTPStatusCode maps an error to the status code the search API answers with.
func HTTPStatusCode(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrDocumentUnavailable):
		return http.StatusNotFound
	case errors.Is(err, ErrDocumentTooShort):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrEmptyOrMissingStore), errors.Is(err, ErrMalformedDocument):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
