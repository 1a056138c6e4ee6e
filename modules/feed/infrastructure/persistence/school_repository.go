package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iota-uz/campus-feed/modules/feed/domain/aggregates/school"
	"github.com/iota-uz/campus-feed/pkg/composables"
)

const (
	schoolInsertQuery = `
		INSERT INTO schools (id, name, address, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING id, name, address, created_at`

	schoolSelectByIDQuery = `
		SELECT id, name, address, created_at
		FROM schools
		WHERE id = $1`

	schoolSelectByNameQuery = `
		SELECT id, name, address, created_at
		FROM schools
		WHERE name = $1`

	schoolSelectAllQuery = `
		SELECT id, name, address, created_at
		FROM schools
		ORDER BY name`

	schoolCountQuery = `SELECT COUNT(*) FROM schools`
)

type SchoolRepository struct{}

func NewSchoolRepository() school.Repository {
	return &SchoolRepository{}
}

func (r *SchoolRepository) Create(ctx context.Context, s school.School) (school.School, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return school.School{}, err
	}

	row := tx.QueryRow(ctx, schoolInsertQuery, pgUUIDFromUUID(uuid.New()), s.Name(), pgNullableText(s.Address()))
	created, err := scanSchool(row)
	if err != nil {
		return school.School{}, fmt.Errorf("create school: %w", classifyError(err, school.ErrNameTaken))
	}
	return created, nil
}

func (r *SchoolRepository) GetByID(ctx context.Context, id uuid.UUID) (school.School, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return school.School{}, err
	}

	s, err := scanSchool(tx.QueryRow(ctx, schoolSelectByIDQuery, pgUUIDFromUUID(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return school.School{}, school.ErrNotFound
		}
		return school.School{}, classifyError(err, school.ErrNameTaken)
	}
	return s, nil
}

func (r *SchoolRepository) GetByName(ctx context.Context, name string) (school.School, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return school.School{}, err
	}

	s, err := scanSchool(tx.QueryRow(ctx, schoolSelectByNameQuery, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return school.School{}, school.ErrNotFound
		}
		return school.School{}, classifyError(err, school.ErrNameTaken)
	}
	return s, nil
}

func (r *SchoolRepository) GetAll(ctx context.Context) ([]school.School, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, schoolSelectAllQuery)
	if err != nil {
		return nil, classifyError(err, school.ErrNameTaken)
	}
	defer rows.Close()

	out := make([]school.School, 0)
	for rows.Next() {
		s, err := scanSchool(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SchoolRepository) Count(ctx context.Context) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := tx.QueryRow(ctx, schoolCountQuery).Scan(&count); err != nil {
		return 0, classifyError(err, school.ErrNameTaken)
	}
	return count, nil
}

func scanSchool(row pgx.Row) (school.School, error) {
	var (
		id        pgtype.UUID
		name      string
		address   pgtype.Text
		createdAt time.Time
	)
	if err := row.Scan(&id, &name, &address, &createdAt); err != nil {
		return school.School{}, err
	}
	return school.Hydrate(uuidFromPg(id), name, address.String, createdAt), nil
}
