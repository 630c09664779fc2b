package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// HealthHandler reports process and dependency health.
type HealthHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *gorm.DB, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: redisClient}
}

// Check handles GET /health.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	status := fiber.StatusOK
	checks := fiber.Map{}

	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(c.UserContext()) != nil {
		checks["database"] = "down"
		status = fiber.StatusServiceUnavailable
	} else {
		checks["database"] = "up"
	}

	if err := h.redis.Ping(c.UserContext()).Err(); err != nil {
		checks["redis"] = "down"
		status = fiber.StatusServiceUnavailable
	} else {
		checks["redis"] = "up"
	}

	return c.Status(status).JSON(fiber.Map{
		"status":    statusWord(status),
		"checks":    checks,
		"timestamp": time.Now().Unix(),
	})
}

func statusWord(status int) string {
	if status == fiber.StatusOK {
		return "ok"
	}
	return "degraded"
}
