package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jd-builds/forestry-optimizer-backend/internal/models"
	"github.com/jd-builds/forestry-optimizer-backend/internal/repository"
	"github.com/jd-builds/forestry-optimizer-backend/internal/security"
)

// RecoveryService manages the password-reset and email-verification side
// channels. Both use single-use opaque tokens: redemption revokes the
// token in the same transaction as the side effect it authorizes.
type RecoveryService struct {
	logger    *zap.Logger
	repos     repository.Manager
	hasher    *security.Hasher
	codec     *security.TokenCodec
	sender    TokenSender
	resetTTL  time.Duration
	verifyTTL time.Duration
}

// NewRecoveryService creates a new recovery service
func NewRecoveryService(logger *zap.Logger, repos repository.Manager, hasher *security.Hasher, codec *security.TokenCodec, sender TokenSender, resetTTL, verifyTTL time.Duration) *RecoveryService {
	return &RecoveryService{
		logger:    logger,
		repos:     repos,
		hasher:    hasher,
		codec:     codec,
		sender:    sender,
		resetTTL:  resetTTL,
		verifyTTL: verifyTTL,
	}
}

// RequestPasswordReset issues a reset token for the account behind email
// and hands it to the sender. For an unknown or deleted email it silently
// does nothing: the caller observes the same success either way, so the
// endpoint cannot be used to enumerate accounts.
func (s *RecoveryService) RequestPasswordReset(ctx context.Context, email string, now time.Time) error {
	user, err := s.repos.Users().FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reset request lookup failed: %w", err)
	}

	token, err := s.codec.GenerateOpaqueToken()
	if err != nil {
		return err
	}

	if _, err := s.repos.Tokens().Store(ctx, models.TokenKindPasswordReset, token, user.ID, now.Add(s.resetTTL)); err != nil {
		return fmt.Errorf("failed to persist reset token: %w", err)
	}

	if err := s.sender.SendPasswordReset(ctx, user.Email, token); err != nil {
		// Delivery failure must not change the response shape.
		s.logger.Error("failed to deliver reset token",
			zap.String("user_id", user.ID), zap.Error(err))
	}
	return nil
}

// RedeemPasswordReset consumes a reset token and sets a new password. The
// password change, the token revocation, and the revocation of every
// refresh token for the user commit together or not at all. A second
// redemption of the same token fails with ErrInvalidOrExpiredToken.
func (s *RecoveryService) RedeemPasswordReset(ctx context.Context, token, newPassword string, now time.Time) error {
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	var userID string
	err = s.repos.WithinTransaction(ctx, func(tx repository.Manager) error {
		rec, err := tx.Tokens().FindActiveForUpdate(ctx, models.TokenKindPasswordReset, token, now)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidOrExpiredToken
		}
		if err != nil {
			return fmt.Errorf("reset token lookup failed: %w", err)
		}
		userID = rec.UserID

		if err := tx.Users().UpdatePasswordHash(ctx, rec.UserID, hash); err != nil {
			return err
		}
		if err := tx.Tokens().Revoke(ctx, models.TokenKindPasswordReset, rec.ID); err != nil {
			return err
		}
		// Force re-login everywhere with the new password.
		return tx.Tokens().RevokeAllForUser(ctx, models.TokenKindRefresh, rec.UserID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("password reset completed", zap.String("user_id", userID))
	return nil
}

// RequestEmailVerification issues a verification token for the user and
// hands it to the sender. Already-verified users are a no-op.
func (s *RecoveryService) RequestEmailVerification(ctx context.Context, userID string, now time.Time) error {
	user, err := s.repos.Users().FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("verification request lookup failed: %w", err)
	}
	if user.EmailVerified {
		return nil
	}

	token, err := s.codec.GenerateOpaqueToken()
	if err != nil {
		return err
	}

	if _, err := s.repos.Tokens().Store(ctx, models.TokenKindEmailVerification, token, user.ID, now.Add(s.verifyTTL)); err != nil {
		return fmt.Errorf("failed to persist verification token: %w", err)
	}

	if err := s.sender.SendEmailVerification(ctx, user.Email, token); err != nil {
		s.logger.Error("failed to deliver verification token",
			zap.String("user_id", user.ID), zap.Error(err))
	}
	return nil
}

// RedeemEmailVerification consumes a verification token and marks the
// owner's email as verified. Verification does not touch active sessions.
func (s *RecoveryService) RedeemEmailVerification(ctx context.Context, token string, now time.Time) error {
	var userID string
	err := s.repos.WithinTransaction(ctx, func(tx repository.Manager) error {
		rec, err := tx.Tokens().FindActiveForUpdate(ctx, models.TokenKindEmailVerification, token, now)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidOrExpiredToken
		}
		if err != nil {
			return fmt.Errorf("verification token lookup failed: %w", err)
		}
		userID = rec.UserID

		if err := tx.Users().MarkEmailVerified(ctx, rec.UserID); err != nil {
			return err
		}
		return tx.Tokens().Revoke(ctx, models.TokenKindEmailVerification, rec.ID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("email verified", zap.String("user_id", userID))
	return nil
}
