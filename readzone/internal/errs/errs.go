package errs

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

type ErrorType string

const (
	InvalidParams     ErrorType = "INVALID_PARAMS"
	InvalidISBN       ErrorType = "INVALID_ISBN"
	Unauthorized      ErrorType = "UNAUTHORIZED"
	Forbidden         ErrorType = "FORBIDDEN"
	NotFound          ErrorType = "NOT_FOUND"
	QuotaExceeded     ErrorType = "QUOTA_EXCEEDED"
	RateLimitExceeded ErrorType = "RATE_LIMIT_EXCEEDED"
	ServerError       ErrorType = "SERVER_ERROR"
	Timeout           ErrorType = "TIMEOUT"
	NetworkError      ErrorType = "NETWORK_ERROR"
	UnknownError      ErrorType = "UNKNOWN_ERROR"
)

// Error is a failure the caller can act on.
type Error struct {
	Type    ErrorType
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(t ErrorType, msg string) *Error {
	return &Error{Type: t, Message: msg}
}

func Wrap(err error, t ErrorType, msg string) *Error {
	return &Error{Type: t, Message: msg, Err: err}
}

func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

func Invalid(msg string) *Error {
	return New(InvalidParams, msg)
}

// TypeOf reports the taxonomy type of err. Bare ErrNotFound maps to NOT_FOUND,
// anything unclassified to UNKNOWN_ERROR.
func TypeOf(err error) ErrorType {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	if errors.Is(err, ErrNotFound) {
		return NotFound
	}
	return UnknownError
}

// As returns the *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func HTTPStatus(t ErrorType) int {
	switch t {
	case InvalidParams, InvalidISBN:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case QuotaExceeded, RateLimitExceeded:
		return http.StatusTooManyRequests
	case ServerError:
		return http.StatusBadGateway
	case Timeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
