package apperr

import "errors"

// Error kinds shared by every layer. Repositories and services return errors
// that unwrap to one of these; the HTTP layer maps them to status codes.
var (
	ErrNotFound            = errors.New("not found")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrUnauthorized        = errors.New("Unauthorized")
	ErrSessionExpired      = errors.New("Session expired. Please log in again.")
	ErrQueryExecution      = errors.New("Failed to fetch data")
	ErrInvalidInput        = errors.New("invalid data provided")
)

// Error is a classified error with a message that is safe to show to clients.
type Error struct {
	kind error
	msg  string
}

// New returns an error of the given kind carrying msg as its client message.
func New(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string {
	if e.msg == "" {
		return e.kind.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.kind }

// Kind returns the first known kind err unwraps to, or nil.
func Kind(err error) error {
	for _, k := range []error{
		ErrNotFound,
		ErrConstraintViolation,
		ErrUnauthorized,
		ErrSessionExpired,
		ErrQueryExecution,
		ErrInvalidInput,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Message returns the client-safe message of a classified error.
// Unclassified errors never expose their text.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Error()
	}
	if k := Kind(err); k != nil {
		return k.Error()
	}
	return "Internal Server Error"
}
