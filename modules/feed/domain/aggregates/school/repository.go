package school

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("school not found")
	ErrNameTaken = errors.New("school name already taken")
)

type Repository interface {
	// Create persists a new school. Returns ErrNameTaken when another
	// school with the same name already exists.
	Create(ctx context.Context, s School) (School, error)
	GetByID(ctx context.Context, id uuid.UUID) (School, error)
	// GetByName matches the name exactly, case sensitive.
	GetByName(ctx context.Context, name string) (School, error)
	GetAll(ctx context.Context) ([]School, error)
	Count(ctx context.Context) (int64, error)
}
