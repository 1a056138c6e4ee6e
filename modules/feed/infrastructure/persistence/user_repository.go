package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iota-uz/campus-feed/modules/feed/domain/aggregates/user"
	"github.com/iota-uz/campus-feed/pkg/composables"
)

const (
	userInsertQuery = `
		INSERT INTO users (id, email, password_hash, phone, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, email, password_hash, phone, created_at`

	userSelectByIDQuery = `
		SELECT id, email, password_hash, phone, created_at
		FROM users
		WHERE id = $1`

	userSelectByEmailQuery = `
		SELECT id, email, password_hash, phone, created_at
		FROM users
		WHERE email = $1`

	userCountQuery = `SELECT COUNT(*) FROM users`
)

type UserRepository struct{}

func NewUserRepository() user.Repository {
	return &UserRepository{}
}

func (r *UserRepository) Create(ctx context.Context, u user.User) (user.User, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return user.User{}, err
	}

	row := tx.QueryRow(ctx, userInsertQuery,
		pgUUIDFromUUID(uuid.New()),
		u.Email(),
		pgNullableText(u.PasswordHash()),
		pgNullableText(u.Phone()),
	)
	created, err := scanUser(row)
	if err != nil {
		return user.User{}, fmt.Errorf("create user: %w", classifyError(err, user.ErrEmailTaken))
	}
	return created, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return user.User{}, err
	}

	u, err := scanUser(tx.QueryRow(ctx, userSelectByIDQuery, pgUUIDFromUUID(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, classifyError(err, user.ErrEmailTaken)
	}
	return u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (user.User, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return user.User{}, err
	}

	u, err := scanUser(tx.QueryRow(ctx, userSelectByEmailQuery, user.NormalizeEmail(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, classifyError(err, user.ErrEmailTaken)
	}
	return u, nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := tx.QueryRow(ctx, userCountQuery).Scan(&count); err != nil {
		return 0, classifyError(err, user.ErrEmailTaken)
	}
	return count, nil
}

func scanUser(row pgx.Row) (user.User, error) {
	var (
		id           pgtype.UUID
		email        string
		passwordHash pgtype.Text
		phone        pgtype.Text
		createdAt    time.Time
	)
	if err := row.Scan(&id, &email, &passwordHash, &phone, &createdAt); err != nil {
		return user.User{}, err
	}
	return user.Hydrate(uuidFromPg(id), email, passwordHash.String, phone.String, createdAt), nil
}
