package service

import (
	"net/http"

	"github.com/yakoovad/gitlab-mr-batch/internal/gitlab"
)

type ErrorCode string

const (
	ErrorCodeInvalidBody  ErrorCode = "INVALID_BODY"
	ErrorCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrorCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrorCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrorCodeUpstream     ErrorCode = "UPSTREAM"
	ErrorCodeUnspecified  ErrorCode = "UNSPECIFIED"
)

type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

func (e *Error) Error() string {
	return e.Message
}

// FromUpstream maps a GitLab client failure onto a service error.
// Transport failures without a status are reported as UPSTREAM.
func FromUpstream(err error) *Error {
	switch gitlab.StatusCode(err) {
	case http.StatusUnauthorized:
		return NewError(ErrorCodeUnauthorized, err.Error())
	case http.StatusForbidden:
		return NewError(ErrorCodeForbidden, err.Error())
	case http.StatusNotFound:
		return NewError(ErrorCodeNotFound, err.Error())
	default:
		return NewError(ErrorCodeUpstream, err.Error())
	}
}
