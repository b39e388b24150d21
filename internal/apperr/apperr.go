// Package apperr classifies request failures so the HTTP layer can map them
// to a status code without inspecting messages.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind error category
type Kind int

const (
	KindUnexpected Kind = iota
	KindValidation
	KindUnclassified
	KindAuthentication
	KindAuthorization
	KindDependency
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnclassified:
		return "unclassified"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindDependency:
		return "dependency"
	default:
		return "unexpected"
	}
}

// Status HTTP status for the kind
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindUnclassified:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error categorized error
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Validation malformed or incomplete input
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Unclassified payload matched none of the known message shapes
func Unclassified(keys []string) error {
	return &Error{Kind: KindUnclassified, Message: fmt.Sprintf("unrecognized payload structure (keys: %v)", keys)}
}

// Authentication credential, key or secret mismatch
func Authentication(msg string) error {
	return &Error{Kind: KindAuthentication, Message: msg}
}

// Authorization caller is authenticated but not permitted
func Authorization(msg string) error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

// Dependency wraps a persistence or secret store failure
func Dependency(msg string, err error) error {
	return &Error{Kind: KindDependency, Message: msg, Err: err}
}

// KindOf returns the kind of err, KindUnexpected for uncategorized errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// Is reports whether err is of kind k
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// Message client-safe message of err
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		switch e.Kind {
		case KindDependency, KindUnexpected:
			return "An error occurred while processing the request"
		}
		return e.Message
	}
	return "An unexpected error occurred"
}
