package models

import (
	"time"

	"gorm.io/gorm"
)

// TokenKind selects which token table a record lives in. The three kinds
// share an identical row shape but are stored in separate tables so that
// a token string issued for one purpose can never be redeemed for another.
type TokenKind string

const (
	TokenKindRefresh           TokenKind = "refresh"
	TokenKindPasswordReset     TokenKind = "password_reset"
	TokenKindEmailVerification TokenKind = "email_verification"
)

// TableName returns the database table backing this token kind.
func (k TokenKind) TableName() string {
	switch k {
	case TokenKindRefresh:
		return "refresh_tokens"
	case TokenKindPasswordReset:
		return "password_reset_tokens"
	case TokenKindEmailVerification:
		return "email_verification_tokens"
	}
	return ""
}

// Valid reports whether k is one of the known token kinds.
func (k TokenKind) Valid() bool {
	return k.TableName() != ""
}

// TokenRecord is the durable record of an issued refresh, password-reset,
// or email-verification token. A non-null DeletedAt marks the token as
// revoked; revoked and expired tokens are indistinguishable to callers of
// the repository's FindActive.
type TokenRecord struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	Token     string         `gorm:"size:255;not null" json:"-"`
	UserID    string         `gorm:"type:uuid;not null" json:"user_id"`
	ExpiresAt time.Time      `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"`
}
