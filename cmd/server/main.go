package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/jd-builds/forestry-optimizer-backend/internal/config"
	"github.com/jd-builds/forestry-optimizer-backend/internal/database"
	"github.com/jd-builds/forestry-optimizer-backend/internal/handlers"
	"github.com/jd-builds/forestry-optimizer-backend/internal/logger"
	"github.com/jd-builds/forestry-optimizer-backend/internal/metrics"
	"github.com/jd-builds/forestry-optimizer-backend/internal/middleware"
	"github.com/jd-builds/forestry-optimizer-backend/internal/models"
	"github.com/jd-builds/forestry-optimizer-backend/internal/repository/postgres"
	"github.com/jd-builds/forestry-optimizer-backend/internal/security"
	"github.com/jd-builds/forestry-optimizer-backend/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	zapLogger, err := logger.New(cfg.Server.Env)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := database.Connect(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}

	if err := database.Migrate(context.Background(), db); err != nil {
		zapLogger.Fatal("failed to run migrations", zap.Error(err))
	}

	redisClient, err := database.NewRedis(cfg)
	if err != nil {
		zapLogger.Fatal("failed to connect to redis", zap.Error(err))
	}

	hasher := security.NewHasher()
	codec, err := security.NewTokenCodec(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTTL)
	if err != nil {
		zapLogger.Fatal("invalid token configuration", zap.Error(err))
	}

	repos := postgres.NewManager(db)
	sender := services.NewLogSender(zapLogger)

	sessions := services.NewSessionService(zapLogger, repos, hasher, codec, cfg.Tokens.RefreshTTL)
	recovery := services.NewRecoveryService(zapLogger, repos, hasher, codec, sender,
		cfg.Tokens.ResetTTL, cfg.Tokens.VerificationTTL)
	orgs := services.NewOrganizationService(zapLogger, repos)

	m := metrics.New()

	authHandler := handlers.NewAuthHandler(zapLogger, sessions, recovery, m)
	orgHandler := handlers.NewOrganizationHandler(zapLogger, orgs, m)
	healthHandler := handlers.NewHealthHandler(db, redisClient)

	limiter := middleware.NewRateLimiter(redisClient, zapLogger, cfg.RateLimit.Window)
	authenticate := middleware.Authenticate(codec, zapLogger)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "Internal server error"
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				message = e.Message
			}
			zapLogger.Error("request failed",
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
				zap.Error(err))
			return c.Status(code).JSON(fiber.Map{"error": message})
		},
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New())
	app.Use(m.Middleware())

	app.Get("/health", healthHandler.Check)
	app.Get("/metrics", m.Handler())

	auth := app.Group("/auth")
	auth.Post("/login", limiter.Limit(cfg.RateLimit.LoginLimit), authHandler.Login)
	auth.Post("/register", limiter.Limit(cfg.RateLimit.RecoverLimit), authHandler.Register)
	auth.Post("/refresh", authHandler.Refresh)
	auth.Post("/logout", authHandler.Logout)
	auth.Post("/logout-all", authenticate, authHandler.LogoutAll)
	auth.Post("/password-reset/request", limiter.Limit(cfg.RateLimit.RecoverLimit), authHandler.RequestPasswordReset)
	auth.Post("/password-reset/confirm", authHandler.ConfirmPasswordReset)
	auth.Post("/verify-email/request", authenticate, authHandler.RequestEmailVerification)
	auth.Post("/verify-email/confirm", authHandler.ConfirmEmailVerification)

	api := app.Group("/api/v1")
	api.Post("/orgs", orgHandler.Create)
	api.Get("/orgs/:id", authenticate, orgHandler.Get)
	api.Put("/orgs/:id", authenticate, middleware.RequireRole(models.RoleAdmin), orgHandler.Update)
	api.Delete("/orgs/:id", authenticate, middleware.RequireRole(models.RoleAdmin), orgHandler.Delete)

	go func() {
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			zapLogger.Fatal("server stopped", zap.Error(err))
		}
	}()
	zapLogger.Info("server started", zap.String("port", cfg.Server.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down")
	if err := app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil {
		zapLogger.Error("shutdown error", zap.Error(err))
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	redisClient.Close()
}
