package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/jd-builds/forestry-optimizer-backend/internal/metrics"
	"github.com/jd-builds/forestry-optimizer-backend/internal/middleware"
	"github.com/jd-builds/forestry-optimizer-backend/internal/models"
	"github.com/jd-builds/forestry-optimizer-backend/internal/services"
)

// AuthHandler handles the authentication and credential recovery endpoints.
type AuthHandler struct {
	logger   *zap.Logger
	sessions *services.SessionService
	recovery *services.RecoveryService
	metrics  *metrics.Metrics
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(logger *zap.Logger, sessions *services.SessionService, recovery *services.RecoveryService, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{
		logger:   logger,
		sessions: sessions,
		recovery: recovery,
		metrics:  m,
	}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "Email and password are required")
	}

	session, err := h.sessions.Login(c.UserContext(), req.Email, req.Password, time.Now())
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			h.metrics.LoginFailure.Inc()
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid credentials",
			})
		}
		h.logger.Error("login failed", zap.Error(err))
		return internalError(c)
	}

	h.metrics.LoginSuccess.Inc()
	return c.JSON(tokenResponse(session))
}

// Register handles POST /auth/register. A verification token is issued for
// the new account as part of registration.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req models.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Email == "" || req.FirstName == "" || req.LastName == "" || req.OrgID == "" {
		return badRequest(c, "First name, last name, email, and org_id are required")
	}
	if len(req.Password) < 8 {
		return badRequest(c, "Password must be at least 8 characters long")
	}

	user, err := h.sessions.Register(c.UserContext(), &req, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmailAlreadyRegistered):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Email already registered",
			})
		case errors.Is(err, services.ErrOrganizationNotFound):
			return badRequest(c, "Organization does not exist")
		default:
			h.logger.Error("registration failed", zap.Error(err))
			return internalError(c)
		}
	}

	if err := h.recovery.RequestEmailVerification(c.UserContext(), user.ID, time.Now()); err != nil {
		// Verification can be re-requested later; the account stands.
		h.logger.Error("failed to issue verification token", zap.Error(err))
	}

	return c.Status(fiber.StatusCreated).JSON(models.NewUserResponse(user))
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req models.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.RefreshToken == "" {
		return badRequest(c, "Refresh token is required")
	}

	session, err := h.sessions.Refresh(c.UserContext(), req.RefreshToken, time.Now())
	if err != nil {
		if errors.Is(err, services.ErrInvalidRefreshToken) {
			h.metrics.RefreshFailure.Inc()
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid refresh token",
			})
		}
		h.logger.Error("refresh failed", zap.Error(err))
		return internalError(c)
	}

	h.metrics.RefreshSuccess.Inc()
	return c.JSON(tokenResponse(session))
}

// Logout handles POST /auth/logout. Always answers OK.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req models.LogoutRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if req.RefreshToken != "" {
		if err := h.sessions.Logout(c.UserContext(), req.RefreshToken); err != nil {
			h.logger.Error("logout failed", zap.Error(err))
			return internalError(c)
		}
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// LogoutAll handles POST /auth/logout-all. It revokes every refresh token
// of the authenticated caller.
func (h *AuthHandler) LogoutAll(c *fiber.Ctx) error {
	claims := middleware.ClaimsFromCtx(c)
	if claims == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	if err := h.sessions.LogoutAll(c.UserContext(), claims.Subject); err != nil {
		h.logger.Error("logout-all failed", zap.Error(err))
		return internalError(c)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// RequestPasswordReset handles POST /auth/password-reset/request. The
// response is identical whether or not the email exists.
func (h *AuthHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req models.PasswordResetRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Email == "" {
		return badRequest(c, "Email is required")
	}

	if err := h.recovery.RequestPasswordReset(c.UserContext(), req.Email, time.Now()); err != nil {
		h.logger.Error("password reset request failed", zap.Error(err))
		return internalError(c)
	}

	h.metrics.ResetRequested.Inc()
	return c.JSON(fiber.Map{"status": "ok"})
}

// ConfirmPasswordReset handles POST /auth/password-reset/confirm.
func (h *AuthHandler) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req models.PasswordResetConfirm
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Token == "" {
		return badRequest(c, "Token is required")
	}
	if len(req.NewPassword) < 8 {
		return badRequest(c, "Password must be at least 8 characters long")
	}

	if err := h.recovery.RedeemPasswordReset(c.UserContext(), req.Token, req.NewPassword, time.Now()); err != nil {
		if errors.Is(err, services.ErrInvalidOrExpiredToken) {
			h.metrics.ResetFailed.Inc()
			return badRequest(c, "Invalid or expired token")
		}
		h.logger.Error("password reset confirm failed", zap.Error(err))
		return internalError(c)
	}

	h.metrics.ResetCompleted.Inc()
	return c.JSON(fiber.Map{"status": "ok"})
}

// RequestEmailVerification handles POST /auth/verify-email/request. It
// requires authentication and issues a token for the caller's own account.
func (h *AuthHandler) RequestEmailVerification(c *fiber.Ctx) error {
	claims := middleware.ClaimsFromCtx(c)
	if claims == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	if err := h.recovery.RequestEmailVerification(c.UserContext(), claims.Subject, time.Now()); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
		}
		h.logger.Error("verification request failed", zap.Error(err))
		return internalError(c)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// ConfirmEmailVerification handles POST /auth/verify-email/confirm.
func (h *AuthHandler) ConfirmEmailVerification(c *fiber.Ctx) error {
	var req models.EmailVerificationConfirm
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Token == "" {
		return badRequest(c, "Token is required")
	}

	if err := h.recovery.RedeemEmailVerification(c.UserContext(), req.Token, time.Now()); err != nil {
		if errors.Is(err, services.ErrInvalidOrExpiredToken) {
			return badRequest(c, "Invalid or expired token")
		}
		h.logger.Error("email verification confirm failed", zap.Error(err))
		return internalError(c)
	}

	h.metrics.VerificationCompleted.Inc()
	return c.JSON(fiber.Map{"status": "ok"})
}

func tokenResponse(s *services.Session) *models.TokenResponse {
	return &models.TokenResponse{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(time.Until(s.AccessExpiresAt).Seconds()),
	}
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal server error",
	})
}
