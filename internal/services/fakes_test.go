package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/jd-builds/forestry-optimizer-backend/internal/models"
	"github.com/jd-builds/forestry-optimizer-backend/internal/repository"
	"github.com/jd-builds/forestry-optimizer-backend/internal/security"
)

// fakeStore is an in-memory repository.Manager. A single mutex serializes
// every operation, which is enough to stand in for row locking in tests.
type fakeStore struct {
	mu     sync.Mutex
	users  map[string]*models.User
	orgs   map[string]*models.Organization
	tokens map[models.TokenKind]map[string]*models.TokenRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: make(map[string]*models.User),
		orgs:  make(map[string]*models.Organization),
		tokens: map[models.TokenKind]map[string]*models.TokenRecord{
			models.TokenKindRefresh:           {},
			models.TokenKindPasswordReset:     {},
			models.TokenKindEmailVerification: {},
		},
	}
}

func (s *fakeStore) Users() repository.UserRepository                 { return (*fakeUsers)(s) }
func (s *fakeStore) Tokens() repository.TokenRepository               { return (*fakeTokens)(s) }
func (s *fakeStore) Organizations() repository.OrganizationRepository { return (*fakeOrgs)(s) }

func (s *fakeStore) WithinTransaction(ctx context.Context, fn func(tx repository.Manager) error) error {
	return fn(s)
}

// activeTokens returns the live (not revoked, not expired) tokens of a kind.
func (s *fakeStore) activeTokens(kind models.TokenKind, now time.Time) []*models.TokenRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.TokenRecord
	for _, rec := range s.tokens[kind] {
		if !rec.DeletedAt.Valid && rec.ExpiresAt.After(now) {
			out = append(out, rec)
		}
	}
	return out
}

type fakeUsers fakeStore

func (s *fakeUsers) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email && !u.DeletedAt.Valid {
			return repository.ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	s.users[user.ID] = user
	return nil
}

func (s *fakeUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || u.DeletedAt.Valid {
		return nil, repository.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *fakeUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email && !u.DeletedAt.Valid {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeUsers) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok || u.DeletedAt.Valid {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (s *fakeUsers) MarkEmailVerified(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok || u.DeletedAt.Valid {
		return repository.ErrNotFound
	}
	u.EmailVerified = true
	return nil
}

type fakeTokens fakeStore

func (s *fakeTokens) Store(ctx context.Context, kind models.TokenKind, token, userID string, expiresAt time.Time) (*models.TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.tokens[kind] {
		if rec.Token == token {
			return nil, repository.ErrDuplicate
		}
	}
	rec := &models.TokenRecord{
		ID:        uuid.NewString(),
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt,
	}
	s.tokens[kind][rec.ID] = rec
	copied := *rec
	return &copied, nil
}

func (s *fakeTokens) FindActive(ctx context.Context, kind models.TokenKind, token string, now time.Time) (*models.TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.tokens[kind] {
		if rec.Token == token && !rec.DeletedAt.Valid && rec.ExpiresAt.After(now) {
			copied := *rec
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeTokens) FindActiveForUpdate(ctx context.Context, kind models.TokenKind, token string, now time.Time) (*models.TokenRecord, error) {
	return s.FindActive(ctx, kind, token, now)
}

func (s *fakeTokens) Revoke(ctx context.Context, kind models.TokenKind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.tokens[kind][id]; ok {
		rec.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}
	return nil
}

func (s *fakeTokens) RevokeByToken(ctx context.Context, kind models.TokenKind, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.tokens[kind] {
		if rec.Token == token && !rec.DeletedAt.Valid {
			rec.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
		}
	}
	return nil
}

func (s *fakeTokens) RevokeAllForUser(ctx context.Context, kind models.TokenKind, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.tokens[kind] {
		if rec.UserID == userID && !rec.DeletedAt.Valid {
			rec.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
		}
	}
	return nil
}

type fakeOrgs fakeStore

func (s *fakeOrgs) Create(ctx context.Context, org *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if org.ID == "" {
		org.ID = uuid.NewString()
	}
	s.orgs[org.ID] = org
	return nil
}

func (s *fakeOrgs) FindByID(ctx context.Context, id string) (*models.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orgs[id]
	if !ok || o.DeletedAt.Valid {
		return nil, repository.ErrNotFound
	}
	copied := *o
	return &copied, nil
}

func (s *fakeOrgs) Update(ctx context.Context, org *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orgs[org.ID]
	if !ok || o.DeletedAt.Valid {
		return repository.ErrNotFound
	}
	s.orgs[org.ID] = org
	return nil
}

func (s *fakeOrgs) SoftDelete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orgs[id]
	if !ok || o.DeletedAt.Valid {
		return repository.ErrNotFound
	}
	o.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	return nil
}

// captureSender records the tokens handed to it instead of delivering them.
type captureSender struct {
	mu            sync.Mutex
	resets        map[string]string
	verifications map[string]string
	err           error
}

func newCaptureSender() *captureSender {
	return &captureSender{
		resets:        make(map[string]string),
		verifications: make(map[string]string),
	}
}

func (c *captureSender) SendPasswordReset(ctx context.Context, email, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.resets[email] = token
	return nil
}

func (c *captureSender) SendEmailVerification(ctx context.Context, email, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.verifications[email] = token
	return nil
}

func (c *captureSender) resetToken(email string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resets[email]
}

func (c *captureSender) verificationToken(email string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.verifications[email]
}

const fakeSecret = "0123456789abcdef0123456789abcdef"

func newTestCodec(t *testing.T) *security.TokenCodec {
	t.Helper()
	codec, err := security.NewTokenCodec(fakeSecret, "forestry-backend", 15*time.Minute)
	require.NoError(t, err)
	return codec
}

// seedOrg inserts an organization and returns it.
func seedOrg(t *testing.T, store *fakeStore, name string) *models.Organization {
	t.Helper()
	org := &models.Organization{Name: name}
	require.NoError(t, store.Organizations().Create(context.Background(), org))
	return org
}

// seedUser inserts a user with a real argon2id hash of password.
func seedUser(t *testing.T, store *fakeStore, hasher *security.Hasher, email, password, orgID string, role models.Role) *models.User {
	t.Helper()
	hash, err := hasher.Hash(password)
	require.NoError(t, err)
	user := &models.User{
		FirstName:    "Test",
		LastName:     "User",
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		OrgID:        orgID,
	}
	require.NoError(t, store.Users().Create(context.Background(), user))
	return user
}
