// Package repository declares the persistence contracts consumed by the
// service layer. Implementations live in subpackages; services never touch
// the database directly.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jd-builds/forestry-optimizer-backend/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist, is soft-deleted,
	// or (for tokens) has expired. Callers cannot tell these apart.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a uniqueness constraint is violated.
	ErrDuplicate = errors.New("duplicate record")
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, userID, hash string) error
	MarkEmailVerified(ctx context.Context, userID string) error
}

// TokenRepository owns the lifecycle of refresh, password-reset, and
// email-verification token rows. Services orchestrate redemptions but only
// mutate tokens through these operations, so the single-use invariant is
// enforced in one place.
type TokenRepository interface {
	// Store persists a new token. It fails with ErrDuplicate if the token
	// string already exists for the kind.
	Store(ctx context.Context, kind models.TokenKind, token, userID string, expiresAt time.Time) (*models.TokenRecord, error)
	// FindActive returns the record for token only if it is not revoked and
	// strictly not yet expired (expires_at > now); otherwise ErrNotFound.
	FindActive(ctx context.Context, kind models.TokenKind, token string, now time.Time) (*models.TokenRecord, error)
	// FindActiveForUpdate is FindActive with a row lock. It must be called
	// inside a transaction; concurrent redeemers of the same token serialize
	// on the lock and the loser observes ErrNotFound after the winner's
	// revocation commits.
	FindActiveForUpdate(ctx context.Context, kind models.TokenKind, token string, now time.Time) (*models.TokenRecord, error)
	// Revoke soft-deletes a token by id. Revoking twice is not an error.
	Revoke(ctx context.Context, kind models.TokenKind, id string) error
	// RevokeByToken soft-deletes a token by its opaque string. Idempotent.
	RevokeByToken(ctx context.Context, kind models.TokenKind, token string) error
	// RevokeAllForUser soft-deletes every token of the kind owned by the user.
	RevokeAllForUser(ctx context.Context, kind models.TokenKind, userID string) error
}

// OrganizationRepository defines the interface for organization data access
type OrganizationRepository interface {
	Create(ctx context.Context, org *models.Organization) error
	FindByID(ctx context.Context, id string) (*models.Organization, error)
	Update(ctx context.Context, org *models.Organization) error
	SoftDelete(ctx context.Context, id string) error
}

// Manager vends the repositories and scopes them to transactions. Within
// WithinTransaction, the Manager passed to fn is bound to a single
// transaction; it commits when fn returns nil and rolls back otherwise.
type Manager interface {
	Users() UserRepository
	Tokens() TokenRepository
	Organizations() OrganizationRepository
	WithinTransaction(ctx context.Context, fn func(tx Manager) error) error
}
