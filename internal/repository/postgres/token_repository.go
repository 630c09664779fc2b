package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jd-builds/forestry-optimizer-backend/internal/models"
	"github.com/jd-builds/forestry-optimizer-backend/internal/repository"
)

type tokenRepository struct {
	db *gorm.DB
}

// scope returns a query builder bound to the token kind's table. The model
// is always TokenRecord, so GORM's soft-delete filtering (deleted_at IS
// NULL) applies to every kind.
func (r *tokenRepository) scope(ctx context.Context, kind models.TokenKind) *gorm.DB {
	return r.db.WithContext(ctx).Table(kind.TableName()).Model(&models.TokenRecord{})
}

func (r *tokenRepository) Store(ctx context.Context, kind models.TokenKind, token, userID string, expiresAt time.Time) (*models.TokenRecord, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown token kind %q", kind)
	}

	rec := &models.TokenRecord{
		ID:        uuid.New().String(),
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt,
	}
	if err := r.scope(ctx, kind).Create(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, repository.ErrDuplicate
		}
		return nil, fmt.Errorf("failed to store %s token: %w", kind, err)
	}
	return rec, nil
}

func (r *tokenRepository) FindActive(ctx context.Context, kind models.TokenKind, token string, now time.Time) (*models.TokenRecord, error) {
	return r.findActive(ctx, kind, token, now, false)
}

func (r *tokenRepository) FindActiveForUpdate(ctx context.Context, kind models.TokenKind, token string, now time.Time) (*models.TokenRecord, error) {
	return r.findActive(ctx, kind, token, now, true)
}

func (r *tokenRepository) findActive(ctx context.Context, kind models.TokenKind, token string, now time.Time, lock bool) (*models.TokenRecord, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown token kind %q", kind)
	}

	q := r.scope(ctx, kind)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var rec models.TokenRecord
	// Strict expires_at > now: a token expiring exactly now is already dead.
	err := q.Where("token = ? AND expires_at > ?", token, now).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s token: %w", kind, err)
	}
	return &rec, nil
}

func (r *tokenRepository) Revoke(ctx context.Context, kind models.TokenKind, id string) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown token kind %q", kind)
	}

	// Soft delete; zero rows affected means already revoked, which is fine.
	if err := r.scope(ctx, kind).Where("id = ?", id).Delete(&models.TokenRecord{}).Error; err != nil {
		return fmt.Errorf("failed to revoke %s token: %w", kind, err)
	}
	return nil
}

func (r *tokenRepository) RevokeByToken(ctx context.Context, kind models.TokenKind, token string) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown token kind %q", kind)
	}

	if err := r.scope(ctx, kind).Where("token = ?", token).Delete(&models.TokenRecord{}).Error; err != nil {
		return fmt.Errorf("failed to revoke %s token: %w", kind, err)
	}
	return nil
}

func (r *tokenRepository) RevokeAllForUser(ctx context.Context, kind models.TokenKind, userID string) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown token kind %q", kind)
	}

	if err := r.scope(ctx, kind).Where("user_id = ?", userID).Delete(&models.TokenRecord{}).Error; err != nil {
		return fmt.Errorf("failed to revoke %s tokens for user: %w", kind, err)
	}
	return nil
}
