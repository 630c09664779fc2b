package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/jd-builds/forestry-optimizer-backend/internal/metrics"
	"github.com/jd-builds/forestry-optimizer-backend/internal/middleware"
	"github.com/jd-builds/forestry-optimizer-backend/internal/models"
	"github.com/jd-builds/forestry-optimizer-backend/internal/security"
	"github.com/jd-builds/forestry-optimizer-backend/internal/services"
)

// OrganizationHandler handles the tenant endpoints. Reads require
// membership; mutations require the admin role. The guard's denial reason
// (wrong role vs wrong tenant) is logged but never exposed.
type OrganizationHandler struct {
	logger  *zap.Logger
	orgs    *services.OrganizationService
	metrics *metrics.Metrics
}

// NewOrganizationHandler creates a new organization handler
func NewOrganizationHandler(logger *zap.Logger, orgs *services.OrganizationService, m *metrics.Metrics) *OrganizationHandler {
	return &OrganizationHandler{logger: logger, orgs: orgs, metrics: m}
}

// Create handles POST /orgs. Unauthenticated: creating an organization is
// the bootstrap step before its first user registers.
func (h *OrganizationHandler) Create(c *fiber.Ctx) error {
	var req models.OrganizationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Name == "" {
		return badRequest(c, "Name is required")
	}

	org, err := h.orgs.Create(c.UserContext(), req.Name)
	if err != nil {
		h.logger.Error("organization create failed", zap.Error(err))
		return internalError(c)
	}
	return c.Status(fiber.StatusCreated).JSON(org)
}

// Get handles GET /orgs/:id. Any member of the organization may read it.
func (h *OrganizationHandler) Get(c *fiber.Ctx) error {
	orgID := c.Params("id")
	if err := h.authorize(c, models.RoleOperator, orgID); err != nil {
		return err
	}

	org, err := h.orgs.Get(c.UserContext(), orgID)
	if err != nil {
		if errors.Is(err, services.ErrOrganizationNotFound) {
			return notFound(c)
		}
		h.logger.Error("organization get failed", zap.Error(err))
		return internalError(c)
	}
	return c.JSON(org)
}

// Update handles PUT /orgs/:id. Admin only.
func (h *OrganizationHandler) Update(c *fiber.Ctx) error {
	orgID := c.Params("id")
	if err := h.authorize(c, models.RoleAdmin, orgID); err != nil {
		return err
	}

	var req models.OrganizationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Name == "" {
		return badRequest(c, "Name is required")
	}

	org, err := h.orgs.Rename(c.UserContext(), orgID, req.Name)
	if err != nil {
		if errors.Is(err, services.ErrOrganizationNotFound) {
			return notFound(c)
		}
		h.logger.Error("organization update failed", zap.Error(err))
		return internalError(c)
	}
	return c.JSON(org)
}

// Delete handles DELETE /orgs/:id. Admin only.
func (h *OrganizationHandler) Delete(c *fiber.Ctx) error {
	orgID := c.Params("id")
	if err := h.authorize(c, models.RoleAdmin, orgID); err != nil {
		return err
	}

	if err := h.orgs.Delete(c.UserContext(), orgID); err != nil {
		if errors.Is(err, services.ErrOrganizationNotFound) {
			return notFound(c)
		}
		h.logger.Error("organization delete failed", zap.Error(err))
		return internalError(c)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// authorize runs the guard for the resource's tenant and writes the 403
// response on denial. Role and tenant denials are indistinguishable to the
// caller.
func (h *OrganizationHandler) authorize(c *fiber.Ctx, required models.Role, resourceOrgID string) error {
	claims := middleware.ClaimsFromCtx(c)
	if err := security.Authorize(claims, required, resourceOrgID); err != nil {
		h.metrics.AuthzDenied.Inc()
		h.logger.Info("authorization denied",
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
	}
	return nil
}

func notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
}
