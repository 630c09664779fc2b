package security

import (
	"errors"
	"fmt"

	"github.com/jd-builds/forestry-optimizer-backend/internal/models"
)

// ErrForbidden is the generic denial surfaced to callers. The specific
// reasons below wrap it so internal logs can tell them apart without
// leaking role or tenant topology to the outside.
var (
	ErrForbidden        = errors.New("forbidden")
	ErrInsufficientRole = fmt.Errorf("%w: insufficient role", ErrForbidden)
	ErrCrossTenant      = fmt.Errorf("%w: cross-tenant access", ErrForbidden)
)

// Authorize decides whether the holder of claims may perform an operation
// that requires the given role on a resource owned by resourceOrgID.
//
// The tenant boundary is absolute: no role, however high, reaches outside
// its own organization. Within a tenant, roles cover each other per the
// partial order defined on models.Role.
func Authorize(claims *Claims, required models.Role, resourceOrgID string) error {
	if claims == nil {
		return ErrForbidden
	}
	if claims.OrgID == "" || claims.OrgID != resourceOrgID {
		return ErrCrossTenant
	}
	if !claims.Role.Covers(required) {
		return ErrInsufficientRole
	}
	return nil
}
