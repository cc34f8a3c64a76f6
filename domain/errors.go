package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInvalid      ErrorCode = "INVALID"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeInternal     ErrorCode = "INTERNAL"

	// Provisioning write failures, one per step so the caller knows which
	// half of the create-then-link sequence succeeded.
	ErrCodeSocietyCreate      ErrorCode = "SOCIETY_CREATE_FAILED"
	ErrCodeProfileLink        ErrorCode = "PROFILE_LINK_FAILED"
	ErrCodeIdentityUnresolved ErrorCode = "IDENTITY_UNRESOLVED"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewValidationError builds an INVALID error carrying per-field messages.
func NewValidationError(fields map[string]string) *Error {
	return &Error{
		Code:    ErrCodeInvalid,
		Message: "Please fill in all required fields",
		Fields:  fields,
	}
}

// Common domain errors.
var (
	ErrUserNotFound       = NewError(ErrCodeNotFound, "user not found")
	ErrProfileNotFound    = NewError(ErrCodeNotFound, "profile not found")
	ErrRoleNotFound       = NewError(ErrCodeNotFound, "role not found")
	ErrSocietyNotFound    = NewError(ErrCodeNotFound, "society not found")
	ErrSessionNotFound    = NewError(ErrCodeNotFound, "session not found")
	ErrDraftNotFound      = NewError(ErrCodeNotFound, "Society data not found. Please set up your society first.")
	ErrResetTokenInvalid  = NewError(ErrCodeInvalid, "reset token is invalid or expired")
	ErrUnauthorized       = NewError(ErrCodeUnauthorized, "unauthorized")
	ErrInvalidCredentials = NewError(ErrCodeUnauthorized, "invalid credentials")
	ErrNotAdmin           = NewError(ErrCodeForbidden, "You don't have access to the admin area")
	ErrNotSocietyCreator  = NewError(ErrCodeForbidden, "only the society creator can change it")
	ErrEmailTaken         = NewError(ErrCodeConflict, "an account with this email already exists")
	ErrInvalidPayload     = NewError(ErrCodeInvalid, "invalid payload")
	ErrIdentityUnresolved = NewError(ErrCodeIdentityUnresolved, "User ID not found after signup")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost domain error, or INTERNAL.
func CodeOf(err error) ErrorCode {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code
	}
	return ErrCodeInternal
}
