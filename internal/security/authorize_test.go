package security

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"github.com/jd-builds/forestry-optimizer-backend/internal/models"
)

func claimsFor(role models.Role, orgID string) *Claims {
	return &Claims{
		OrgID:            orgID,
		Role:             role,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	}
}

func TestAuthorizeRoleMatrix(t *testing.T) {
	cases := []struct {
		name     string
		holder   models.Role
		required models.Role
		allowed  bool
	}{
		{"admin acts as admin", models.RoleAdmin, models.RoleAdmin, true},
		{"admin acts as manager", models.RoleAdmin, models.RoleManager, true},
		{"admin acts as operator", models.RoleAdmin, models.RoleOperator, true},
		{"manager acts as manager", models.RoleManager, models.RoleManager, true},
		{"manager acts as operator", models.RoleManager, models.RoleOperator, true},
		{"manager denied admin", models.RoleManager, models.RoleAdmin, false},
		{"operator acts as operator", models.RoleOperator, models.RoleOperator, true},
		{"operator denied manager", models.RoleOperator, models.RoleManager, false},
		{"operator denied admin", models.RoleOperator, models.RoleAdmin, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Authorize(claimsFor(tc.holder, "org-1"), tc.required, "org-1")
			if tc.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrForbidden)
				assert.ErrorIs(t, err, ErrInsufficientRole)
			}
		})
	}
}

func TestAuthorizeTenantBoundaryIsAbsolute(t *testing.T) {
	// Even an admin is confined to their own organization.
	err := Authorize(claimsFor(models.RoleAdmin, "org-1"), models.RoleOperator, "org-2")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, err, ErrCrossTenant)
}

func TestAuthorizeEmptyOrgDenied(t *testing.T) {
	err := Authorize(claimsFor(models.RoleAdmin, ""), models.RoleOperator, "")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAuthorizeNilClaims(t *testing.T) {
	assert.ErrorIs(t, Authorize(nil, models.RoleOperator, "org-1"), ErrForbidden)
}

func TestAuthorizeUnknownRoleDenied(t *testing.T) {
	err := Authorize(claimsFor(models.Role("superuser"), "org-1"), models.RoleOperator, "org-1")
	assert.ErrorIs(t, err, ErrInsufficientRole)
}
