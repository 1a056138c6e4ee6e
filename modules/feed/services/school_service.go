package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/iota-uz/campus-feed/modules/feed/domain/aggregates/school"
)

type SchoolService struct {
	repo school.Repository
}

func NewSchoolService(repo school.Repository) *SchoolService {
	return &SchoolService{repo: repo}
}

func (s *SchoolService) GetAll(ctx context.Context) ([]school.School, error) {
	return s.repo.GetAll(ctx)
}

func (s *SchoolService) GetByID(ctx context.Context, id uuid.UUID) (school.School, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *SchoolService) GetByName(ctx context.Context, name string) (school.School, error) {
	return s.repo.GetByName(ctx, strings.TrimSpace(name))
}

func (s *SchoolService) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}
