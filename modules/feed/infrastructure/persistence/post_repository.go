package persistence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iota-uz/campus-feed/modules/feed/domain/aggregates/post"
	"github.com/iota-uz/campus-feed/pkg/composables"
)

const (
	postInsertQuery = `
		INSERT INTO posts (id, poster_id, school_id, org_id, tag_id, content, content_digest, posted_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		RETURNING id, poster_id, school_id, org_id, tag_id, content, posted_at, created_at`

	postSelectByIDQuery = `
		SELECT id, poster_id, school_id, org_id, tag_id, content, posted_at, created_at
		FROM posts
		WHERE id = $1`

	postSelectBase = `
		SELECT id, poster_id, school_id, org_id, tag_id, content, posted_at, created_at
		FROM posts`

	postCountQuery = `SELECT COUNT(*) FROM posts`
)

type PostRepository struct{}

func NewPostRepository() post.Repository {
	return &PostRepository{}
}

// contentDigest collapses arbitrarily long content into a fixed-width
// column so the replay-detection index stays small.
func contentDigest(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func (r *PostRepository) Create(ctx context.Context, p post.Post) (post.Post, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return post.Post{}, err
	}

	row := tx.QueryRow(ctx, postInsertQuery,
		pgUUIDFromUUID(uuid.New()),
		pgUUIDFromUUID(p.PosterID()),
		pgUUIDFromUUID(p.SchoolID()),
		pgNullableUUID(p.OrgID()),
		pgNullableUUID(p.TagID()),
		p.Content(),
		contentDigest(p.Content()),
		p.PostedAt(),
	)
	created, err := scanPost(row)
	if err != nil {
		return post.Post{}, fmt.Errorf("create post: %w", classifyError(err, post.ErrDuplicate))
	}
	return created, nil
}

func (r *PostRepository) GetByID(ctx context.Context, id uuid.UUID) (post.Post, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return post.Post{}, err
	}

	p, err := scanPost(tx.QueryRow(ctx, postSelectByIDQuery, pgUUIDFromUUID(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return post.Post{}, post.ErrNotFound
		}
		return post.Post{}, classifyError(err, post.ErrDuplicate)
	}
	return p, nil
}

func (r *PostRepository) GetPaginated(ctx context.Context, params post.FindParams) ([]post.Post, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if params.SchoolID != uuid.Nil {
		args = append(args, pgUUIDFromUUID(params.SchoolID))
		where = append(where, fmt.Sprintf("school_id = $%d", len(args)))
	}
	if params.OrgID != uuid.Nil {
		args = append(args, pgUUIDFromUUID(params.OrgID))
		where = append(where, fmt.Sprintf("org_id = $%d", len(args)))
	}
	if params.TagID != uuid.Nil {
		args = append(args, pgUUIDFromUUID(params.TagID))
		where = append(where, fmt.Sprintf("tag_id = $%d", len(args)))
	}

	query := postSelectBase
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY posted_at DESC"

	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit)
	query += fmt.Sprintf("\n\t\tLIMIT $%d", len(args))
	args = append(args, offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, classifyError(err, post.ErrDuplicate)
	}
	defer rows.Close()

	out := make([]post.Post, 0, limit)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostRepository) Count(ctx context.Context) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := tx.QueryRow(ctx, postCountQuery).Scan(&count); err != nil {
		return 0, classifyError(err, post.ErrDuplicate)
	}
	return count, nil
}

func scanPost(row pgx.Row) (post.Post, error) {
	var (
		id        pgtype.UUID
		posterID  pgtype.UUID
		schoolID  pgtype.UUID
		orgID     pgtype.UUID
		tagID     pgtype.UUID
		content   string
		postedAt  time.Time
		createdAt time.Time
	)
	if err := row.Scan(&id, &posterID, &schoolID, &orgID, &tagID, &content, &postedAt, &createdAt); err != nil {
		return post.Post{}, err
	}
	return post.Hydrate(
		uuidFromPg(id),
		uuidFromPg(posterID),
		uuidFromPg(schoolID),
		uuidFromPg(orgID),
		uuidFromPg(tagID),
		content,
		postedAt,
		createdAt,
	), nil
}
