package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jd-builds/forestry-optimizer-backend/internal/models"
	"github.com/jd-builds/forestry-optimizer-backend/internal/repository"
)

type organizationRepository struct {
	db *gorm.DB
}

func (r *organizationRepository) Create(ctx context.Context, org *models.Organization) error {
	if org.ID == "" {
		org.ID = uuid.New().String()
	}

	if err := r.db.WithContext(ctx).Create(org).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

func (r *organizationRepository) FindByID(ctx context.Context, id string) (*models.Organization, error) {
	var org models.Organization
	err := r.db.WithContext(ctx).First(&org, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}
	return &org, nil
}

func (r *organizationRepository) Update(ctx context.Context, org *models.Organization) error {
	res := r.db.WithContext(ctx).Model(&models.Organization{}).
		Where("id = ?", org.ID).
		Update("name", org.Name)
	if res.Error != nil {
		return fmt.Errorf("failed to update organization: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *organizationRepository) SoftDelete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Organization{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete organization: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
