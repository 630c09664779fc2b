package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jd-builds/forestry-optimizer-backend/internal/models"
	"github.com/jd-builds/forestry-optimizer-backend/internal/repository"
)

// OrganizationService handles tenant lifecycle. Tenant isolation itself is
// enforced by the authorization guard at the transport layer; this service
// assumes the caller was already cleared for the organization it names.
type OrganizationService struct {
	logger *zap.Logger
	repos  repository.Manager
}

// NewOrganizationService creates a new organization service
func NewOrganizationService(logger *zap.Logger, repos repository.Manager) *OrganizationService {
	return &OrganizationService{logger: logger, repos: repos}
}

// Create registers a new organization.
func (s *OrganizationService) Create(ctx context.Context, name string) (*models.Organization, error) {
	org := &models.Organization{Name: name}
	if err := s.repos.Organizations().Create(ctx, org); err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}
	s.logger.Info("organization created", zap.String("org_id", org.ID))
	return org, nil
}

// Get returns the organization by id.
func (s *OrganizationService) Get(ctx context.Context, id string) (*models.Organization, error) {
	org, err := s.repos.Organizations().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, err
	}
	return org, nil
}

// Rename changes the organization's name.
func (s *OrganizationService) Rename(ctx context.Context, id, name string) (*models.Organization, error) {
	org := &models.Organization{ID: id, Name: name}
	err := s.repos.Organizations().Update(ctx, org)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete soft-deletes the organization.
func (s *OrganizationService) Delete(ctx context.Context, id string) error {
	err := s.repos.Organizations().SoftDelete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrOrganizationNotFound
	}
	if err != nil {
		return err
	}
	s.logger.Info("organization deleted", zap.String("org_id", id))
	return nil
}
