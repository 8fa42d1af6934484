package domain

import (
	"errors"
	"fmt"
)

var (
	ErrBadRequest         = errors.New("bad request")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("access forbidden")
	ErrTooManyRequests    = errors.New("too many requests")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrHashing            = errors.New("hashing failed")
	ErrConfiguration      = errors.New("invalid configuration")
	ErrStorage            = errors.New("storage failure")

	// ErrRefreshConflict means the stored refresh hash changed between read and
	// write, so the presented token was already rotated.
	ErrRefreshConflict = errors.New("refresh token already rotated")
)

// ValidationError rejects a single malformed request.
type ValidationError struct {
	Msg string
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Unwrap() error { return ErrBadRequest }

// RateLimitError carries how many seconds the caller should wait.
type RateLimitError struct {
	RetryAfter int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many requests, retry after %ds", e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return ErrTooManyRequests }
