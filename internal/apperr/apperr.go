// Package apperr classifies failures at service boundaries so that the
// transport layer can map them without inspecting messages.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the category of a service error
type Kind int

const (
	Internal Kind = iota
	Validation
	NotFound
	Conflict
	Extraction
	Delivery
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation_error"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Extraction:
		return "extraction_error"
	case Delivery:
		return "delivery_error"
	default:
		return "internal_error"
	}
}

// Error is a classified error with a human readable message
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given kind
func New(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind with a message
func Wrap(kind Kind, err error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the outermost classified error, Internal otherwise
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// IsKind reports whether err is classified as kind
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// Message returns the human readable part of a classified error
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
