package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iota-uz/campus-feed/modules/feed/domain/aggregates/organization"
	"github.com/iota-uz/campus-feed/pkg/composables"
)

const (
	orgInsertQuery = `
		INSERT INTO organizations (id, name, school_id, admin_email, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, name, school_id, admin_email, created_at`

	orgSelectByIDQuery = `
		SELECT id, name, school_id, admin_email, created_at
		FROM organizations
		WHERE id = $1`

	orgSelectByNameQuery = `
		SELECT id, name, school_id, admin_email, created_at
		FROM organizations
		WHERE name = $1`

	orgSelectBySchoolQuery = `
		SELECT id, name, school_id, admin_email, created_at
		FROM organizations
		WHERE school_id = $1
		ORDER BY name`

	orgSelectAllQuery = `
		SELECT id, name, school_id, admin_email, created_at
		FROM organizations
		ORDER BY name`

	orgCountQuery = `SELECT COUNT(*) FROM organizations`
)

type OrganizationRepository struct{}

func NewOrganizationRepository() organization.Repository {
	return &OrganizationRepository{}
}

func (r *OrganizationRepository) Create(ctx context.Context, o organization.Organization) (organization.Organization, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return organization.Organization{}, err
	}

	row := tx.QueryRow(ctx, orgInsertQuery,
		pgUUIDFromUUID(uuid.New()),
		o.Name(),
		pgUUIDFromUUID(o.SchoolID()),
		pgNullableText(o.AdminEmail()),
	)
	created, err := scanOrganization(row)
	if err != nil {
		return organization.Organization{}, fmt.Errorf("create organization: %w", classifyError(err, organization.ErrNameTaken))
	}
	return created, nil
}

func (r *OrganizationRepository) GetByID(ctx context.Context, id uuid.UUID) (organization.Organization, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return organization.Organization{}, err
	}

	o, err := scanOrganization(tx.QueryRow(ctx, orgSelectByIDQuery, pgUUIDFromUUID(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return organization.Organization{}, organization.ErrNotFound
		}
		return organization.Organization{}, classifyError(err, organization.ErrNameTaken)
	}
	return o, nil
}

func (r *OrganizationRepository) GetByName(ctx context.Context, name string) (organization.Organization, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return organization.Organization{}, err
	}

	o, err := scanOrganization(tx.QueryRow(ctx, orgSelectByNameQuery, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return organization.Organization{}, organization.ErrNotFound
		}
		return organization.Organization{}, classifyError(err, organization.ErrNameTaken)
	}
	return o, nil
}

func (r *OrganizationRepository) GetBySchoolID(ctx context.Context, schoolID uuid.UUID) ([]organization.Organization, error) {
	return r.list(ctx, orgSelectBySchoolQuery, pgUUIDFromUUID(schoolID))
}

func (r *OrganizationRepository) GetAll(ctx context.Context) ([]organization.Organization, error) {
	return r.list(ctx, orgSelectAllQuery)
}

func (r *OrganizationRepository) Count(ctx context.Context) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := tx.QueryRow(ctx, orgCountQuery).Scan(&count); err != nil {
		return 0, classifyError(err, organization.ErrNameTaken)
	}
	return count, nil
}

func (r *OrganizationRepository) list(ctx context.Context, query string, args ...any) ([]organization.Organization, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, classifyError(err, organization.ErrNameTaken)
	}
	defer rows.Close()

	out := make([]organization.Organization, 0)
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanOrganization(row pgx.Row) (organization.Organization, error) {
	var (
		id         pgtype.UUID
		name       string
		schoolID   pgtype.UUID
		adminEmail pgtype.Text
		createdAt  time.Time
	)
	if err := row.Scan(&id, &name, &schoolID, &adminEmail, &createdAt); err != nil {
		return organization.Organization{}, err
	}
	return organization.Hydrate(uuidFromPg(id), name, uuidFromPg(schoolID), adminEmail.String, createdAt), nil
}
