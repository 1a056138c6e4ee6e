package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iota-uz/campus-feed/modules/feed/domain/aggregates/tag"
	"github.com/iota-uz/campus-feed/pkg/composables"
)

const (
	tagInsertQuery = `
		INSERT INTO tags (id, name, created_at)
		VALUES ($1, $2, now())
		RETURNING id, name, created_at`

	tagSelectByIDQuery = `
		SELECT id, name, created_at
		FROM tags
		WHERE id = $1`

	tagSelectByNameQuery = `
		SELECT id, name, created_at
		FROM tags
		WHERE name = $1`

	tagSelectAllQuery = `
		SELECT id, name, created_at
		FROM tags
		ORDER BY name`

	tagCountQuery = `SELECT COUNT(*) FROM tags`
)

type TagRepository struct{}

func NewTagRepository() tag.Repository {
	return &TagRepository{}
}

func (r *TagRepository) Create(ctx context.Context, t tag.Tag) (tag.Tag, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return tag.Tag{}, err
	}

	row := tx.QueryRow(ctx, tagInsertQuery, pgUUIDFromUUID(uuid.New()), t.Name())
	created, err := scanTag(row)
	if err != nil {
		return tag.Tag{}, fmt.Errorf("create tag: %w", classifyError(err, tag.ErrNameTaken))
	}
	return created, nil
}

func (r *TagRepository) GetByID(ctx context.Context, id uuid.UUID) (tag.Tag, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return tag.Tag{}, err
	}

	t, err := scanTag(tx.QueryRow(ctx, tagSelectByIDQuery, pgUUIDFromUUID(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tag.Tag{}, tag.ErrNotFound
		}
		return tag.Tag{}, classifyError(err, tag.ErrNameTaken)
	}
	return t, nil
}

func (r *TagRepository) GetByName(ctx context.Context, name string) (tag.Tag, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return tag.Tag{}, err
	}

	t, err := scanTag(tx.QueryRow(ctx, tagSelectByNameQuery, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tag.Tag{}, tag.ErrNotFound
		}
		return tag.Tag{}, classifyError(err, tag.ErrNameTaken)
	}
	return t, nil
}

func (r *TagRepository) GetAll(ctx context.Context) ([]tag.Tag, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, tagSelectAllQuery)
	if err != nil {
		return nil, classifyError(err, tag.ErrNameTaken)
	}
	defer rows.Close()

	out := make([]tag.Tag, 0)
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TagRepository) Count(ctx context.Context) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := tx.QueryRow(ctx, tagCountQuery).Scan(&count); err != nil {
		return 0, classifyError(err, tag.ErrNameTaken)
	}
	return count, nil
}

func scanTag(row pgx.Row) (tag.Tag, error) {
	var (
		id        pgtype.UUID
		name      string
		createdAt time.Time
	)
	if err := row.Scan(&id, &name, &createdAt); err != nil {
		return tag.Tag{}, err
	}
	return tag.Hydrate(uuidFromPg(id), name, createdAt), nil
}
