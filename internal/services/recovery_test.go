package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jd-builds/forestry-optimizer-backend/internal/models"
	"github.com/jd-builds/forestry-optimizer-backend/internal/security"
)

func newRecoveryFixture(t *testing.T) (*RecoveryService, *SessionService, *fakeStore, *security.Hasher, *captureSender) {
	t.Helper()
	store := newFakeStore()
	hasher := security.NewHasher()
	codec := newTestCodec(t)
	sender := newCaptureSender()
	logger := zaptest.NewLogger(t)

	recovery := NewRecoveryService(logger, store, hasher, codec, sender, time.Hour, 24*time.Hour)
	sessions := NewSessionService(logger, store, hasher, codec, 30*24*time.Hour)
	return recovery, sessions, store, hasher, sender
}

func TestRequestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	recovery, _, store, _, sender := newRecoveryFixture(t)

	err := recovery.RequestPasswordReset(context.Background(), "nobody@timber.example", time.Now())
	assert.NoError(t, err, "unknown emails must look exactly like known ones")
	assert.Empty(t, sender.resets, "no token may be delivered")
	assert.Empty(t, store.activeTokens(models.TokenKindPasswordReset, time.Now().Add(-time.Hour)), "no token may be stored")
}

func TestPasswordResetFlow(t *testing.T) {
	recovery, sessions, store, hasher, sender := newRecoveryFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	org := seedOrg(t, store, "Timber Co")
	seedUser(t, store, hasher, "jane@timber.example", "old-password-1", org.ID, models.RoleOperator)

	// An open session that the reset must kill.
	session, err := sessions.Login(ctx, "jane@timber.example", "old-password-1", now)
	require.NoError(t, err)

	require.NoError(t, recovery.RequestPasswordReset(ctx, "jane@timber.example", now))
	token := sender.resetToken("jane@timber.example")
	require.NotEmpty(t, token)

	require.NoError(t, recovery.RedeemPasswordReset(ctx, token, "new-password-1", now.Add(time.Minute)))

	// Old password is dead, new one works.
	_, err = sessions.Login(ctx, "jane@timber.example", "old-password-1", now.Add(time.Minute))
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = sessions.Login(ctx, "jane@timber.example", "new-password-1", now.Add(time.Minute))
	assert.NoError(t, err)

	// The pre-reset session was revoked.
	_, err = sessions.Refresh(ctx, session.RefreshToken, now.Add(time.Minute))
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	// The token is single use.
	err = recovery.RedeemPasswordReset(ctx, token, "another-password", now.Add(2*time.Minute))
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)
}

func TestRedeemPasswordResetExpiredToken(t *testing.T) {
	recovery, _, store, hasher, sender := newRecoveryFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	org := seedOrg(t, store, "Timber Co")
	user := seedUser(t, store, hasher, "jane@timber.example", "old-password-1", org.ID, models.RoleOperator)

	require.NoError(t, recovery.RequestPasswordReset(ctx, "jane@timber.example", now))
	token := sender.resetToken("jane@timber.example")

	// The reset TTL is one hour; at exactly one hour the token is invalid.
	err := recovery.RedeemPasswordReset(ctx, token, "new-password-1", now.Add(time.Hour))
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)

	// The password was not touched by the failed redemption.
	stored, err := store.Users().FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, hasher.Verify("old-password-1", stored.PasswordHash))
}

func TestRedeemPasswordResetGarbageToken(t *testing.T) {
	recovery, _, _, _, _ := newRecoveryFixture(t)
	err := recovery.RedeemPasswordReset(context.Background(), "never-issued", "new-password-1", time.Now())
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)
}

func TestEmailVerificationFlow(t *testing.T) {
	recovery, sessions, store, hasher, sender := newRecoveryFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	org := seedOrg(t, store, "Timber Co")
	user := seedUser(t, store, hasher, "jane@timber.example", "hunter2hunter2", org.ID, models.RoleOperator)

	session, err := sessions.Login(ctx, "jane@timber.example", "hunter2hunter2", now)
	require.NoError(t, err)

	require.NoError(t, recovery.RequestEmailVerification(ctx, user.ID, now))
	token := sender.verificationToken("jane@timber.example")
	require.NotEmpty(t, token)

	require.NoError(t, recovery.RedeemEmailVerification(ctx, token, now.Add(time.Minute)))

	stored, err := store.Users().FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.EmailVerified)

	// Verifying an email does not disturb live sessions.
	_, err = sessions.Refresh(ctx, session.RefreshToken, now.Add(time.Minute))
	assert.NoError(t, err)

	// Single use.
	err = recovery.RedeemEmailVerification(ctx, token, now.Add(2*time.Minute))
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)
}

func TestRequestEmailVerificationAlreadyVerified(t *testing.T) {
	recovery, _, store, hasher, sender := newRecoveryFixture(t)
	ctx := context.Background()

	org := seedOrg(t, store, "Timber Co")
	user := seedUser(t, store, hasher, "jane@timber.example", "hunter2hunter2", org.ID, models.RoleOperator)
	require.NoError(t, store.Users().MarkEmailVerified(ctx, user.ID))

	require.NoError(t, recovery.RequestEmailVerification(ctx, user.ID, time.Now()))
	assert.Empty(t, sender.verifications, "verified users should not receive tokens")
}

func TestRequestEmailVerificationUnknownUser(t *testing.T) {
	recovery, _, _, _, _ := newRecoveryFixture(t)
	err := recovery.RequestEmailVerification(context.Background(), "00000000-0000-0000-0000-000000000000", time.Now())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRequestPasswordResetDeliveryFailureIsSwallowed(t *testing.T) {
	recovery, _, store, hasher, sender := newRecoveryFixture(t)
	ctx := context.Background()
	now := time.Now()

	org := seedOrg(t, store, "Timber Co")
	seedUser(t, store, hasher, "jane@timber.example", "hunter2hunter2", org.ID, models.RoleOperator)

	sender.err = errors.New("smtp down")
	assert.NoError(t, recovery.RequestPasswordReset(ctx, "jane@timber.example", now),
		"delivery failures must not change the response")
	// The token was still persisted for a later retry.
	assert.Len(t, store.activeTokens(models.TokenKindPasswordReset, now), 1)
}