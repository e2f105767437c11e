package domain

// Kind classifies a failure so the transport layer can map it to a status code.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindNotFound        Kind = "not_found"
	KindExpired         Kind = "expired"
	KindUnauthorized    Kind = "unauthorized"
	KindForbidden       Kind = "forbidden"
	KindConflict        Kind = "conflict"
	KindTooManyRequests Kind = "too_many_requests"
	KindDependency      Kind = "dependency"
)

// Error is a typed flow failure. Errors that are not *Error are dependency failures.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrUserNotFound           = &Error{Kind: KindNotFound, Message: "User not found"}
	ErrUserNotFoundOrVerified = &Error{Kind: KindNotFound, Message: "User not found or email already verified"}
	ErrDuplicateEmail         = &Error{Kind: KindConflict, Message: "Email already exists"}
	ErrTokenNotFound          = &Error{Kind: KindNotFound, Message: "Invalid or expired link. Please try again."}
	ErrTokenExpired           = &Error{Kind: KindExpired, Message: "Invalid or expired link. Please request a new link."}
	ErrPasswordMismatch       = &Error{Kind: KindUnauthorized, Message: "Email or password incorrect"}
	ErrEmailNotVerified       = &Error{Kind: KindForbidden, Message: "Email not verified"}
	ErrInvalidSession         = &Error{Kind: KindUnauthorized, Message: "Unauthorized"}
	ErrTooManyRequests        = &Error{Kind: KindTooManyRequests, Message: "Too many requests. Please check your email or try again later."}
)
