package domain

import "errors"

// Error kinds. Every domain error unwraps to exactly one of these so the
// transport layer can map it to a status code without knowing the details.
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidState      = errors.New("invalid state")
	ErrInvalidInput      = errors.New("invalid input")
	ErrForbidden         = errors.New("access forbidden")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrUnavailable       = errors.New("service unavailable")
	ErrInternal          = errors.New("internal error")
)

var kinds = []error{
	ErrNotFound,
	ErrConflict,
	ErrInvalidState,
	ErrInvalidInput,
	ErrForbidden,
	ErrUnauthorized,
	ErrResourceExhausted,
	ErrUnavailable,
	ErrInternal,
}

// Error is a domain failure carrying a user-facing message and its kind.
type Error struct {
	kind error
	msg  string
}

func newError(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

// Kind returns the kind sentinel err belongs to, or nil for foreign errors.
func Kind(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// IsDomain reports whether err was produced by the domain layer.
func IsDomain(err error) bool {
	return Kind(err) != nil
}

// Invalid builds an ErrInvalidInput error with the given message.
func Invalid(msg string) error {
	return newError(ErrInvalidInput, msg)
}

// NotFound builds an ErrNotFound error with the given message.
func NotFound(msg string) error {
	return newError(ErrNotFound, msg)
}

// Unavailable builds an ErrUnavailable error with the given message.
func Unavailable(msg string) error {
	return newError(ErrUnavailable, msg)
}

var (
	ErrInvalidCredentials = newError(ErrUnauthorized, "invalid credentials")
	ErrAccessDenied       = newError(ErrForbidden, "access forbidden")
	ErrInvalidToken       = newError(ErrUnauthorized, "invalid token")
)

// KindName returns the short name of err's kind, for transports that cannot
// carry Go error values. It is empty for foreign errors.
func KindName(err error) string {
	if k := Kind(err); k != nil {
		return k.Error()
	}
	return ""
}

// Restore rebuilds a domain error from a kind name and message produced by
// KindName. Unknown kinds become ErrInternal.
func Restore(kindName, msg string) error {
	for _, k := range kinds {
		if k.Error() == kindName {
			return newError(k, msg)
		}
	}
	return newError(ErrInternal, msg)
}
