package domain

// ErrorKind is the closed set of failure kinds exposed by the identity core.
// Callers branch on kinds (via errors.Is against the package sentinels or
// errors.As against *Error), never on message text.
type ErrorKind string

const (
	KindInvalidName          ErrorKind = "INVALID_NAME"
	KindInvalidNationalID    ErrorKind = "INVALID_CPF"
	KindInvalidEmail         ErrorKind = "INVALID_EMAIL"
	KindAmbiguousRequest     ErrorKind = "AMBIGUOUS_REQUEST"
	KindMissingIdentifier    ErrorKind = "MISSING_IDENTIFIER"
	KindDuplicateIdentifier  ErrorKind = "DUPLICATE_CPF"
	KindDuplicateEmail       ErrorKind = "DUPLICATE_EMAIL"
	KindUserNotFound         ErrorKind = "USER_NOT_FOUND"
	KindUnauthorized         ErrorKind = "UNAUTHORIZED"
	KindDirectoryUnavailable ErrorKind = "DIRECTORY_UNAVAILABLE"
)

// Error is a tagged domain error. Message is safe for callers; the wrapped
// cause is diagnostics only and must never reach a response body.
type Error struct {
	Kind    ErrorKind
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

// Is matches any *Error of the same kind, so
// errors.Is(err, ErrDuplicateIdentifier) holds regardless of which layer
// produced the duplicate (pre-check or the directory's native constraint).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// NewError builds a domain error with the given kind and caller-safe message.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError attaches an underlying cause for diagnostics.
func WrapError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Sentinels for errors.Is checks. Their messages are the defaults used when a
// call site has nothing more specific to say.
var (
	ErrInvalidName          = NewError(KindInvalidName, "invalid name")
	ErrInvalidNationalID    = NewError(KindInvalidNationalID, "invalid CPF")
	ErrInvalidEmail         = NewError(KindInvalidEmail, "invalid email")
	ErrAmbiguousRequest     = NewError(KindAmbiguousRequest, "provide either CPF or name, not both")
	ErrMissingIdentifier    = NewError(KindMissingIdentifier, "provide either CPF or name")
	ErrDuplicateIdentifier  = NewError(KindDuplicateIdentifier, "CPF already registered")
	ErrDuplicateEmail       = NewError(KindDuplicateEmail, "email already registered")
	ErrUserNotFound         = NewError(KindUserNotFound, "user not found")
	ErrUnauthorized         = NewError(KindUnauthorized, "invalid credentials")
	ErrDirectoryUnavailable = NewError(KindDirectoryUnavailable, "identity directory unavailable")
)
