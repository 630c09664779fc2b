// Package postgres implements the repository contracts with GORM over
// PostgreSQL.
package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/jd-builds/forestry-optimizer-backend/internal/repository"
)

// Manager vends GORM-backed repositories. The zero value is not usable;
// construct with NewManager.
type Manager struct {
	db *gorm.DB
}

// NewManager wraps a GORM handle in a repository.Manager.
func NewManager(db *gorm.DB) *Manager {
	return &Manager{db: db}
}

// Users returns the user repository bound to this manager's handle.
func (m *Manager) Users() repository.UserRepository {
	return &userRepository{db: m.db}
}

// Tokens returns the token repository bound to this manager's handle.
func (m *Manager) Tokens() repository.TokenRepository {
	return &tokenRepository{db: m.db}
}

// Organizations returns the organization repository bound to this manager's handle.
func (m *Manager) Organizations() repository.OrganizationRepository {
	return &organizationRepository{db: m.db}
}

// WithinTransaction runs fn with a Manager bound to a single database
// transaction. The transaction commits when fn returns nil and rolls back
// on error or panic.
func (m *Manager) WithinTransaction(ctx context.Context, fn func(tx repository.Manager) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Manager{db: tx})
	})
}
