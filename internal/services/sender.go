package services

import (
	"context"

	"go.uber.org/zap"
)

// TokenSender delivers one-time tokens out of band. Real deployments plug
// in a mail provider; the recovery service only cares that delivery was
// handed off.
type TokenSender interface {
	SendPasswordReset(ctx context.Context, email, token string) error
	SendEmailVerification(ctx context.Context, email, token string) error
}

// LogSender is a development TokenSender that writes tokens to the log
// instead of sending mail.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendPasswordReset(_ context.Context, email, token string) error {
	s.logger.Info("password reset token issued",
		zap.String("email", email),
		zap.String("token", token))
	return nil
}

func (s *LogSender) SendEmailVerification(_ context.Context, email, token string) error {
	s.logger.Info("email verification token issued",
		zap.String("email", email),
		zap.String("token", token))
	return nil
}
