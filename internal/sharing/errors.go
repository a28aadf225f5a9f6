package sharing

import (
	"errors"

	"sharetrack/backend/internal/auth"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("not a party to this resource")
	ErrAlreadyResolved = errors.New("request already resolved")
	ErrAlreadyPending  = errors.New("a request is already pending between these users")
	ErrAlreadyActive   = errors.New("a session is already active between these users")
	ErrSelfRequest     = errors.New("cannot share with yourself")
	ErrExpired         = errors.New("session expired")
	ErrNotActive       = errors.New("session is not active")
	ErrEmptyMessage    = errors.New("message needs a body or a location")
	ErrInvalidLocation = errors.New("location out of range")
	ErrInvalidRequest  = errors.New("invalid request")
)

// Error codes sent to clients in share.error and HTTP error bodies.
const (
	CodeAuthRequired    = "AuthRequired"
	CodeInvalidToken    = "InvalidToken"
	CodeNotFound        = "NotFound"
	CodeForbidden       = "Forbidden"
	CodeAlreadyResolved = "AlreadyResolved"
	CodeAlreadyPending  = "AlreadyPending"
	CodeAlreadyActive   = "AlreadyActive"
	CodeSelfRequest     = "SelfRequest"
	CodeExpired         = "Expired"
	CodeNotActive       = "NotActive"
	CodeEmptyMessage    = "EmptyMessage"
	CodeInvalidLocation = "InvalidLocation"
	CodeInvalidRequest  = "InvalidRequest"
	CodeRateLimited     = "RateLimited"
	CodeInternal        = "Internal"
)

var codes = []struct {
	err  error
	code string
}{
	{auth.ErrAuthRequired, CodeAuthRequired},
	{auth.ErrInvalidToken, CodeInvalidToken},
	{ErrNotFound, CodeNotFound},
	{ErrForbidden, CodeForbidden},
	{ErrAlreadyResolved, CodeAlreadyResolved},
	{ErrAlreadyPending, CodeAlreadyPending},
	{ErrAlreadyActive, CodeAlreadyActive},
	{ErrSelfRequest, CodeSelfRequest},
	{ErrExpired, CodeExpired},
	{ErrNotActive, CodeNotActive},
	{ErrEmptyMessage, CodeEmptyMessage},
	{ErrInvalidLocation, CodeInvalidLocation},
	{ErrInvalidRequest, CodeInvalidRequest},
}

// Code classifies err into a client-facing code. Anything unrecognised is
// CodeInternal so storage details never reach the caller.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}
