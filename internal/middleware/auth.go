// Package middleware holds the Fiber middleware for authentication,
// authorization, and rate limiting.
package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/jd-builds/forestry-optimizer-backend/internal/models"
	"github.com/jd-builds/forestry-optimizer-backend/internal/security"
)

// ClaimsKey is the fiber.Ctx locals key under which Authenticate stores
// the validated access token claims.
const ClaimsKey = "claims"

// Authenticate validates the Bearer access token and stores its claims in
// the request locals. Expired and bad-signature tokens are logged with
// their distinct cause but both answer 401 with the same body.
func Authenticate(codec *security.TokenCodec, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return unauthorized(c)
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return unauthorized(c)
		}

		claims, err := codec.ValidateAccessToken(parts[1], time.Now())
		if err != nil {
			if errors.Is(err, security.ErrTokenExpired) {
				logger.Debug("access token expired", zap.String("path", c.Path()))
			} else {
				logger.Warn("access token rejected", zap.String("path", c.Path()), zap.Error(err))
			}
			return unauthorized(c)
		}

		c.Locals(ClaimsKey, claims)
		return c.Next()
	}
}

// RequireRole gates a route on the caller's role within their own tenant.
// Tenant checks against a specific resource happen in the handlers, where
// the resource's organization is known.
func RequireRole(required models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := ClaimsFromCtx(c)
		if claims == nil {
			return unauthorized(c)
		}
		if !claims.Role.Covers(required) {
			return forbidden(c)
		}
		return c.Next()
	}
}

// ClaimsFromCtx returns the claims stored by Authenticate, or nil.
func ClaimsFromCtx(c *fiber.Ctx) *security.Claims {
	claims, _ := c.Locals(ClaimsKey).(*security.Claims)
	return claims
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "unauthorized",
	})
}

func forbidden(c *fiber.Ctx) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"error": "forbidden",
	})
}
