// Package domain defines the structured error taxonomy shared by services
// and mapped to HTTP status codes at the handler boundary.
package domain

import "errors"

type Kind string

const (
	KindValidation       Kind = "validation"
	KindNotFound         Kind = "not_found"
	KindForbidden        Kind = "forbidden"
	KindConflict         Kind = "conflict"
	KindAlreadyProcessed Kind = "already_processed"
)

// Error is a (kind, message) pair. Conflict is retry-worthy (a state guard or
// race lost); Validation is not.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func Validation(msg string) *Error       { return &Error{Kind: KindValidation, Message: msg} }
func NotFound(msg string) *Error         { return &Error{Kind: KindNotFound, Message: msg} }
func Forbidden(msg string) *Error        { return &Error{Kind: KindForbidden, Message: msg} }
func Conflict(msg string) *Error         { return &Error{Kind: KindConflict, Message: msg} }
func AlreadyProcessed(msg string) *Error { return &Error{Kind: KindAlreadyProcessed, Message: msg} }

// KindOf returns the error's kind, or "" for non-domain errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is a domain error of the given kind.
func IsKind(err error, k Kind) bool { return KindOf(err) == k }
