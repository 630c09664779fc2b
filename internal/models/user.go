package models

import (
	"time"

	"gorm.io/gorm"
)

// Role is a user's role within their organization.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleOperator Role = "operator"
)

// roleCapabilities maps each role to the set of roles it may act as.
// Admins cover managers and operators, managers cover operators. The
// ordering is partial: no role covers anything outside its own tenant,
// which is checked separately by the authorization guard.
var roleCapabilities = map[Role][]Role{
	RoleAdmin:    {RoleAdmin, RoleManager, RoleOperator},
	RoleManager:  {RoleManager, RoleOperator},
	RoleOperator: {RoleOperator},
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleCapabilities[r]
	return ok
}

// Covers reports whether a holder of r may act as required.
func (r Role) Covers(required Role) bool {
	for _, c := range roleCapabilities[r] {
		if c == required {
			return true
		}
	}
	return false
}

// User represents a user account. Each user belongs to exactly one
// organization and holds exactly one role.
type User struct {
	ID            string         `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName     string         `gorm:"size:255;not null" json:"first_name"`
	LastName      string         `gorm:"size:255;not null" json:"last_name"`
	Email         string         `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PhoneNumber   string         `gorm:"size:255" json:"phone_number"`
	PasswordHash  string         `gorm:"column:password;size:255;not null" json:"-"`
	Role          Role           `gorm:"size:32;not null" json:"role"`
	OrgID         string         `gorm:"type:uuid;index;not null" json:"org_id"`
	EmailVerified bool           `gorm:"not null;default:false" json:"email_verified"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}
