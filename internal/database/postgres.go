// Package database manages the PostgreSQL and Redis connections and the
// schema migrations.
package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/jd-builds/forestry-optimizer-backend/internal/config"
)

// Connect opens a GORM handle to PostgreSQL with retry and pool settings.
// TranslateError is enabled so unique-constraint violations surface as
// gorm.ErrDuplicatedKey.
func Connect(cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	}
	if cfg.IsDevelopment() {
		gormConfig.Logger = gormlogger.Default.LogMode(gormlogger.Warn)
	}

	db, err := connectWithRetry(cfg, gormConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func connectWithRetry(cfg *config.Config, gormConfig *gorm.Config, logger *zap.Logger) (*gorm.DB, error) {
	var lastErr error
	for attempt := 1; attempt <= cfg.Database.RetryAttempts; attempt++ {
		db, err := gorm.Open(postgres.Open(cfg.Database.URL), gormConfig)
		if err == nil {
			return db, nil
		}
		lastErr = err

		logger.Warn("database connection failed, retrying",
			zap.Int("attempt", attempt),
			zap.Error(err))
		time.Sleep(cfg.Database.RetryBackoff * time.Duration(attempt))
	}
	return nil, lastErr
}
