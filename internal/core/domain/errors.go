package domain

import (
	"errors"
	"net/http"
)

// Kind is the discriminant of the identity error taxonomy. Boundary code
// switches on Kind instead of on error identity.
type Kind string

const (
	KindConflict           Kind = "CONFLICT"
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindInvalidToken       Kind = "INVALID_TOKEN"
	KindUserNotFound       Kind = "USER_NOT_FOUND"
	KindUnauthenticated    Kind = "UNAUTHENTICATED"
	KindForbidden          Kind = "FORBIDDEN"
	KindConfiguration      Kind = "CONFIGURATION"
	KindInvalidInput       Kind = "INVALID_INPUT"
	KindInternal           Kind = "INTERNAL"
)

// Status returns the transport status suggested for the kind. The boundary
// layer is free to override it.
func (k Kind) Status() int {
	switch k {
	case KindConflict:
		return http.StatusConflict
	case KindInvalidCredentials, KindInvalidToken, KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindUserNotFound:
		return http.StatusNotFound
	case KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is a typed failure carrying a Kind, a user-safe Message and optionally
// the underlying cause. The cause is for logs only and is never rendered.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrConflict)
// holds for wrapped variants too.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Wrap returns a copy of the canonical error for kind carrying cause.
func Wrap(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Message: canonical(kind).Message, Err: cause}
}

var (
	ErrConflict           = &Error{Kind: KindConflict, Message: "your details are too similar to an existing user"}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Message: "invalid credentials"}
	ErrInvalidToken       = &Error{Kind: KindInvalidToken, Message: "invalid token"}
	ErrUserNotFound       = &Error{Kind: KindUserNotFound, Message: "user not found"}
	ErrUnauthenticated    = &Error{Kind: KindUnauthenticated, Message: "not authenticated"}
	ErrForbidden          = &Error{Kind: KindForbidden, Message: "not authorized"}
	ErrConfiguration      = &Error{Kind: KindConfiguration, Message: "service is misconfigured"}
	ErrInvalidInput       = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	ErrInternal           = &Error{Kind: KindInternal, Message: "internal error"}
)

func canonical(kind Kind) *Error {
	switch kind {
	case KindConflict:
		return ErrConflict
	case KindInvalidCredentials:
		return ErrInvalidCredentials
	case KindInvalidToken:
		return ErrInvalidToken
	case KindUserNotFound:
		return ErrUserNotFound
	case KindUnauthenticated:
		return ErrUnauthenticated
	case KindForbidden:
		return ErrForbidden
	case KindConfiguration:
		return ErrConfiguration
	case KindInvalidInput:
		return ErrInvalidInput
	default:
		return ErrInternal
	}
}

// KindOf extracts the taxonomy kind from err; untyped errors are KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Sanitize drops everything but the kind: it returns the canonical error for
// err's kind, so store or driver details never reach the caller.
func Sanitize(err error) error {
	if err == nil {
		return nil
	}
	return canonical(KindOf(err))
}
