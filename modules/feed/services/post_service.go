package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/iota-uz/campus-feed/modules/feed/domain/aggregates/post"
)

type PostService struct {
	repo post.Repository
}

func NewPostService(repo post.Repository) *PostService {
	return &PostService{repo: repo}
}

func (s *PostService) GetFeed(ctx context.Context, params post.FindParams) ([]post.Post, error) {
	return s.repo.GetPaginated(ctx, params)
}

func (s *PostService) GetByID(ctx context.Context, id uuid.UUID) (post.Post, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *PostService) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}
