package models

import (
	"time"

	"gorm.io/gorm"
)

// Organization is the tenant: the unit of data isolation. Every user and
// every domain record belongs to exactly one organization.
type Organization struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string         `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
