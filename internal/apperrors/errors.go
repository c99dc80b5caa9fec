package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")

	// Returned on login for unknown username and wrong password alike
	ErrInvalidCredentials = errors.New("invalid username or password")

	ErrRoleUnknown = errors.New("unknown role")

	// Signature, structure or expiry check of a signed token failed
	ErrTokenInvalid = errors.New("invalid or expired token")

	ErrTokenNotFound = errors.New("token not found")
	ErrTokenRevoked  = errors.New("token is revoked")
)
