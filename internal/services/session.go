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

// Session is the result of a successful login or refresh.
type Session struct {
	AccessToken     string
	AccessExpiresAt time.Time
	RefreshToken    string
	User            *models.User
}

// SessionService orchestrates login, refresh rotation, and logout. Refresh
// tokens are single use: every successful refresh revokes the presented
// token and issues a replacement inside one transaction.
type SessionService struct {
	logger     *zap.Logger
	repos      repository.Manager
	hasher     *security.Hasher
	codec      *security.TokenCodec
	refreshTTL time.Duration
}

// NewSessionService creates a new session service
func NewSessionService(logger *zap.Logger, repos repository.Manager, hasher *security.Hasher, codec *security.TokenCodec, refreshTTL time.Duration) *SessionService {
	return &SessionService{
		logger:     logger,
		repos:      repos,
		hasher:     hasher,
		codec:      codec,
		refreshTTL: refreshTTL,
	}
}

// Login verifies the credentials and opens a session. Unknown emails,
// soft-deleted accounts, and wrong passwords all fail with the same
// ErrInvalidCredentials.
func (s *SessionService) Login(ctx context.Context, email, password string, now time.Time) (*Session, error) {
	user, err := s.repos.Users().FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("login lookup failed: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	session, err := s.openSession(ctx, s.repos, user, now)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in",
		zap.String("user_id", user.ID),
		zap.String("org_id", user.OrgID))
	return session, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a
// new access/refresh pair is issued for the same user, atomically. A token
// that was already rotated, revoked, or expired fails with
// ErrInvalidRefreshToken, so a replayed token can never double-issue.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string, now time.Time) (*Session, error) {
	var session *Session

	err := s.repos.WithinTransaction(ctx, func(tx repository.Manager) error {
		rec, err := tx.Tokens().FindActiveForUpdate(ctx, models.TokenKindRefresh, refreshToken, now)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidRefreshToken
		}
		if err != nil {
			return fmt.Errorf("refresh token lookup failed: %w", err)
		}

		user, err := tx.Users().FindByID(ctx, rec.UserID)
		if errors.Is(err, repository.ErrNotFound) {
			// Owner was soft-deleted since issuance; the token dies with them.
			return ErrInvalidRefreshToken
		}
		if err != nil {
			return fmt.Errorf("refresh user lookup failed: %w", err)
		}

		if err := tx.Tokens().Revoke(ctx, models.TokenKindRefresh, rec.ID); err != nil {
			return err
		}

		session, err = s.openSession(ctx, tx, user, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("refresh token rotated", zap.String("user_id", session.User.ID))
	return session, nil
}

// Logout revokes the named refresh token. It is idempotent and never fails
// on a token that is unknown or already revoked.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) error {
	return s.repos.Tokens().RevokeByToken(ctx, models.TokenKindRefresh, refreshToken)
}

// LogoutAll revokes every outstanding refresh token for the user, forcing
// re-login everywhere.
func (s *SessionService) LogoutAll(ctx context.Context, userID string) error {
	if err := s.repos.Tokens().RevokeAllForUser(ctx, models.TokenKindRefresh, userID); err != nil {
		return err
	}
	s.logger.Info("all sessions revoked", zap.String("user_id", userID))
	return nil
}

// Register creates a new user account in an existing organization. The
// password is hashed before storage; new accounts start as operators
// unless a valid role is given.
func (s *SessionService) Register(ctx context.Context, req *models.RegisterRequest, now time.Time) (*models.User, error) {
	if _, err := s.repos.Organizations().FindByID(ctx, req.OrgID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("organization lookup failed: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PhoneNumber:  req.PhoneNumber,
		PasswordHash: hash,
		Role:         models.RoleOperator,
		OrgID:        req.OrgID,
	}

	if err := s.repos.Users().Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailAlreadyRegistered
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("org_id", user.OrgID))
	return user, nil
}

// openSession issues an access token and persists a fresh refresh token
// using the given repositories (which may be transaction-scoped).
func (s *SessionService) openSession(ctx context.Context, repos repository.Manager, user *models.User, now time.Time) (*Session, error) {
	access, expiresAt, err := s.codec.IssueAccessToken(user.ID, user.OrgID, user.Role, now)
	if err != nil {
		return nil, err
	}

	opaque, err := s.codec.GenerateOpaqueToken()
	if err != nil {
		return nil, err
	}

	if _, err := repos.Tokens().Store(ctx, models.TokenKindRefresh, opaque, user.ID, now.Add(s.refreshTTL)); err != nil {
		// A duplicate here means the 256-bit random space collided; treat as
		// fatal rather than retrying.
		return nil, fmt.Errorf("failed to persist refresh token: %w", err)
	}

	return &Session{
		AccessToken:     access,
		AccessExpiresAt: expiresAt,
		RefreshToken:    opaque,
		User:            user,
	}, nil
}
