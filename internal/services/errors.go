package services

import "errors"

var (
	// ErrInvalidCredentials is returned on login for unknown emails,
	// soft-deleted accounts, and wrong passwords alike, so callers cannot
	// enumerate users.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRefreshToken is returned when a refresh token is unknown,
	// expired, or already rotated or revoked.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrInvalidOrExpiredToken is returned when a one-time reset or
	// verification token is unknown, expired, or already redeemed.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	// ErrEmailAlreadyRegistered is returned on registration with a taken email.
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	// ErrInvalidRole is returned on registration with an unknown role.
	ErrInvalidRole = errors.New("invalid role")
	// ErrOrganizationNotFound is returned when the referenced tenant does not exist.
	ErrOrganizationNotFound = errors.New("organization not found")
	// ErrUserNotFound is returned when an operation references a missing user.
	ErrUserNotFound = errors.New("user not found")
)
