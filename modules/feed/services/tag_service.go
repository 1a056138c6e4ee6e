package services

import (
	"context"
	"strings"

	"github.com/iota-uz/campus-feed/modules/feed/domain/aggregates/tag"
)

type TagService struct {
	repo tag.Repository
}

func NewTagService(repo tag.Repository) *TagService {
	return &TagService{repo: repo}
}

func (s *TagService) GetAll(ctx context.Context) ([]tag.Tag, error) {
	return s.repo.GetAll(ctx)
}

func (s *TagService) GetByName(ctx context.Context, name string) (tag.Tag, error) {
	return s.repo.GetByName(ctx, strings.TrimSpace(name))
}

func (s *TagService) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}
