// Package apperror defines the error kinds the billing engine reports to its caller.
package apperror

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error codes
const (
	// CodeValidation marks rejected input. Nothing was mutated.
	CodeValidation = "VALIDATION_ERROR"

	// CodeNotFound marks a reference to a missing item or archive entry.
	CodeNotFound = "NOT_FOUND"

	// CodeNotEditing marks an update for an item that is not in edit mode.
	CodeNotEditing = "NOT_EDITING"

	// CodeStorageUnavailable marks a failed read or write of durable storage.
	// For mutations the in-memory effect has still been applied.
	CodeStorageUnavailable = "STORAGE_UNAVAILABLE"
)

// AppError is the error type returned by the billing engine.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, ids)
	Details map[string]any `json:"details,omitempty"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// NewValidation creates a validation error
func NewValidation(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message}
}

// NewFieldValidation creates a validation error listing each failing field
// with the rule it broke.
func NewFieldValidation(fields map[string]string) *AppError {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	e := NewValidation("invalid fields: " + strings.Join(names, ", "))
	for _, name := range names {
		e.WithDetail(name, fields[name])
	}
	return e
}

// NewNotFound creates a not found error
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", entity),
		Details: map[string]any{"entity": entity, "id": id},
	}
}

// NewNotEditing creates an error for updating an item that is not being edited
func NewNotEditing(id string) *AppError {
	return &AppError{
		Code:    CodeNotEditing,
		Message: "item is not being edited",
		Details: map[string]any{"id": id},
	}
}

// NewStorageUnavailable wraps a storage failure
func NewStorageUnavailable(op string, err error) *AppError {
	return &AppError{
		Code:    CodeStorageUnavailable,
		Message: fmt.Sprintf("storage unavailable during %s", op),
		Details: map[string]any{"operation": op},
		Err:     err,
	}
}

// Code returns the code of the first AppError in err's chain, or "".
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return Code(err) == CodeValidation }

// IsNotFound reports whether err is a not found error.
func IsNotFound(err error) bool { return Code(err) == CodeNotFound }

// IsNotEditing reports whether err is a not editing error.
func IsNotEditing(err error) bool { return Code(err) == CodeNotEditing }

// IsStorageUnavailable reports whether err is a storage failure.
func IsStorageUnavailable(err error) bool { return Code(err) == CodeStorageUnavailable }
