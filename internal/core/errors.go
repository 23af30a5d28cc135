package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidDate  = errors.New("invalid date")
	ErrNotFound     = errors.New("not found")

	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyName        = errors.New("empty name")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidScope     = errors.New("invalid scope")
)

// InvalidInputError reports a non-positive, non-finite or otherwise unusable
// numeric input. Field names the offending form field.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// InvalidDateError reports a date value that could not be parsed.
type InvalidDateError struct {
	Value string
	Err   error
}

func (e *InvalidDateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid date %q: %v", e.Value, e.Err)
	}
	return fmt.Sprintf("invalid date %q", e.Value)
}

func (e *InvalidDateError) Unwrap() error { return e.Err }

func (e *InvalidDateError) Is(target error) bool {
	return target == ErrInvalidDate
}

// FieldErrors collects per-field validation messages, keyed by form field.
type FieldErrors map[string]string

// Add records msg for field unless the field already has a message.
func (f FieldErrors) Add(field, msg string) {
	if _, ok := f[field]; ok {
		return
	}
	f[field] = msg
}

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+f[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (f FieldErrors) Is(target error) bool {
	return target == ErrInvalidInput
}

// Err returns f as an error, or nil when no field failed.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return f
}
