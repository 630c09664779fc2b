package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jd-builds/forestry-optimizer-backend/internal/models"
)

const opaqueTokenBytes = 32

var (
	// ErrTokenExpired means the access token's signature checked out but
	// its expiry has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenSignature means the access token is malformed, unsigned, or
	// signed with the wrong key.
	ErrTokenSignature = errors.New("invalid token signature")
)

// Claims are the statements embedded in an access token: who the caller
// is (Subject), which organization they belong to, and what role they hold.
type Claims struct {
	OrgID string      `json:"org_id"`
	Role  models.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenCodec creates and validates signed access tokens and generates the
// opaque strings used for refresh, reset, and verification tokens. The
// signing secret is fixed at construction and never mutated.
type TokenCodec struct {
	secret    []byte
	issuer    string
	accessTTL time.Duration
}

// NewTokenCodec builds a codec for HS256 access tokens. A secret shorter
// than 32 bytes is a configuration error and rejected outright.
func NewTokenCodec(secret, issuer string, accessTTL time.Duration) (*TokenCodec, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 bytes, got %d", len(secret))
	}
	if accessTTL <= 0 {
		return nil, fmt.Errorf("access token ttl must be positive, got %s", accessTTL)
	}
	return &TokenCodec{
		secret:    []byte(secret),
		issuer:    issuer,
		accessTTL: accessTTL,
	}, nil
}

// IssueAccessToken signs a short-lived token for the given user. The
// expiry is embedded in the token itself so validation needs no store
// lookup.
func (c *TokenCodec) IssueAccessToken(userID, orgID string, role models.Role, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(c.accessTTL)

	claims := Claims{
		OrgID: orgID,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateAccessToken verifies the signature and expiry of an access token
// and returns its claims. Expiry and signature failures are distinguished
// for diagnostics; callers should surface both as unauthenticated.
func (c *TokenCodec) ValidateAccessToken(tokenString string, now time.Time) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenSignature
	}
	if !token.Valid {
		return nil, ErrTokenSignature
	}
	return claims, nil
}

// GenerateOpaqueToken returns a cryptographically random URL-safe string
// for use as a refresh, reset, or verification token. Collisions are
// treated as impossible; the store still enforces uniqueness as a backstop.
func (c *TokenCodec) GenerateOpaqueToken() (string, error) {
	b := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
