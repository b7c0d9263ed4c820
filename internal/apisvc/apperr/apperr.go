package apperr

import (
	"fmt"
	"net/http"
)

// Error carries the HTTP status a rule violation maps to. Handlers surface
// Detail verbatim in the JSON `detail` field of the response body.
type Error struct {
	Code   int
	Detail string
}

func (e *Error) Error() string { return e.Detail }

func Validation(format string, args ...interface{}) *Error {
	return &Error{Code: http.StatusBadRequest, Detail: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...interface{}) *Error {
	return &Error{Code: http.StatusUnauthorized, Detail: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...interface{}) *Error {
	return &Error{Code: http.StatusForbidden, Detail: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Code: http.StatusNotFound, Detail: fmt.Sprintf(format, args...)}
}
