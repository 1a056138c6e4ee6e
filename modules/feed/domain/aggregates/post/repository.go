package post

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("post not found")
	// ErrDuplicate is returned on an exact replay: same poster, same
	// timestamp, same content.
	ErrDuplicate = errors.New("post already exists")
)

type FindParams struct {
	SchoolID uuid.UUID
	OrgID    uuid.UUID
	TagID    uuid.UUID
	Limit    int
	Offset   int
}

type Repository interface {
	Create(ctx context.Context, p Post) (Post, error)
	GetByID(ctx context.Context, id uuid.UUID) (Post, error)
	GetPaginated(ctx context.Context, params FindParams) ([]Post, error)
	Count(ctx context.Context) (int64, error)
}
