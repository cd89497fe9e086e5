// Package service implements the question, answer, vote and user operations
// shared by the HTML pages and the JSON API.
package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("permission denied")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError reports bad input for one field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// PageOutOfRangeError is returned for a page number past the last page.
// It matches ErrNotFound.
type PageOutOfRangeError struct {
	Page int
	Last int
}

func (e *PageOutOfRangeError) Error() string {
	return fmt.Sprintf("page %d out of range (last page is %d)", e.Page, e.Last)
}

func (e *PageOutOfRangeError) Is(target error) bool {
	return target == ErrNotFound
}
