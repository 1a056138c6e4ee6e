package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/iota-uz/campus-feed/modules/feed/domain/aggregates/organization"
)

type OrganizationService struct {
	repo organization.Repository
}

func NewOrganizationService(repo organization.Repository) *OrganizationService {
	return &OrganizationService{repo: repo}
}

func (s *OrganizationService) GetAll(ctx context.Context) ([]organization.Organization, error) {
	return s.repo.GetAll(ctx)
}

func (s *OrganizationService) GetByID(ctx context.Context, id uuid.UUID) (organization.Organization, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *OrganizationService) GetBySchoolID(ctx context.Context, schoolID uuid.UUID) ([]organization.Organization, error) {
	return s.repo.GetBySchoolID(ctx, schoolID)
}

func (s *OrganizationService) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}
