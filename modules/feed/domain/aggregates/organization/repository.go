package organization

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("organization not found")
	ErrNameTaken = errors.New("organization name already taken")
)

type Repository interface {
	Create(ctx context.Context, o Organization) (Organization, error)
	GetByID(ctx context.Context, id uuid.UUID) (Organization, error)
	GetByName(ctx context.Context, name string) (Organization, error)
	GetBySchoolID(ctx context.Context, schoolID uuid.UUID) ([]Organization, error)
	GetAll(ctx context.Context) ([]Organization, error)
	Count(ctx context.Context) (int64, error)
}
