package tag

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("tag not found")
	ErrNameTaken = errors.New("tag name already taken")
)

type Repository interface {
	Create(ctx context.Context, t Tag) (Tag, error)
	GetByID(ctx context.Context, id uuid.UUID) (Tag, error)
	GetByName(ctx context.Context, name string) (Tag, error)
	GetAll(ctx context.Context) ([]Tag, error)
	Count(ctx context.Context) (int64, error)
}
