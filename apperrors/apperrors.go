// Package apperrors defines the stable error codes surfaced by the API.
// Guard failures in the membership state machine and input validation in
// discovery each map to exactly one code; storage failures are wrapped into
// INTERNAL_SERVER_ERROR with an opaque reference instead of leaking driver
// details to the caller.
package apperrors

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
)

type Code string

const (
	CodeNotFound         Code = "NOT_FOUND"
	CodeUserNotFound     Code = "USER_NOT_FOUND"
	CodeBadRequestInput  Code = "BAD_REQUEST_INPUT"
	CodeForbidden        Code = "FORBIDDEN"
	CodeForbiddenSelf    Code = "FORBIDDEN_SELF_ACTION"
	CodeAlreadyMember    Code = "ALREADY_MEMBER"
	CodePendingMember    Code = "PENDING_MEMBER"
	CodeBanned           Code = "BANNED"
	CodeRejected         Code = "REJECTED"
	CodeNotPending       Code = "NOT_PENDING"
	CodeNotApproved      Code = "NOT_APPROVED"
	CodeNotBanned        Code = "NOT_BANNED"
	CodeAlreadyBanned    Code = "ALREADY_BANNED"
	CodeSameRole         Code = "SAME_ROLE"
	CodeOnlyOwnerDemote  Code = "CANNOT_DEMOTE_ONLY_OWNER"
	CodeOnlyOwnerRemove  Code = "CANNOT_REMOVE_ONLY_OWNER"
	CodeOwnerCannotLeave Code = "OWNER_CANNOT_LEAVE"
	CodeCannotBanOwner   Code = "CANNOT_BAN_OWNER"
	CodeCannotUnbanOwner Code = "CANNOT_UNBAN_OWNER"
	CodeBanReasonNeeded  Code = "BAN_REASON_REQUIRED"
	CodePaymentRequired  Code = "PAYMENT_REQUIRED"
	CodeInternal         Code = "INTERNAL_SERVER_ERROR"
)

type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	// Ref is an opaque reference to the original cause, set for internal
	// errors so operators can correlate logs without exposing the cause.
	Ref string `json:"ref,omitempty"`
	Err error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		return string(e.Code) + ": " + e.Message
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a cause to a coded error without changing what the caller sees.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Internal wraps an unexpected failure (usually from the persistence layer)
// behind a generic code and a correlation reference.
func Internal(err error) *Error {
	return &Error{
		Code:    CodeInternal,
		Message: "an unexpected error occurred",
		Ref:     uuid.New().String(),
		Err:     err,
	}
}

// CodeOf extracts the stable code from err, or CodeInternal when err carries none.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// HTTPStatus maps a code to the HTTP status the controllers respond with.
func HTTPStatus(code Code) int {
	switch code {
	case CodeNotFound, CodeUserNotFound:
		return http.StatusNotFound
	case CodeBadRequestInput, CodeBanReasonNeeded:
		return http.StatusBadRequest
	case CodeForbidden, CodeForbiddenSelf, CodeOwnerCannotLeave,
		CodeCannotBanOwner, CodeCannotUnbanOwner:
		return http.StatusForbidden
	case CodeAlreadyMember, CodePendingMember, CodeBanned, CodeRejected,
		CodeNotPending, CodeNotApproved, CodeNotBanned, CodeAlreadyBanned,
		CodeSameRole, CodeOnlyOwnerDemote, CodeOnlyOwnerRemove:
		return http.StatusConflict
	case CodePaymentRequired:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}
