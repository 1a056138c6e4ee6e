package ingest

import (
	"context"
	"errors"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/campus-feed/modules/feed/domain/aggregates/organization"
	"github.com/iota-uz/campus-feed/modules/feed/domain/aggregates/post"
	"github.com/iota-uz/campus-feed/modules/feed/domain/aggregates/school"
	"github.com/iota-uz/campus-feed/modules/feed/domain/aggregates/tag"
	"github.com/iota-uz/campus-feed/modules/feed/domain/aggregates/user"
)

// EntityResolver turns one source row into at most one entity of its
// kind: create it, recognize it as already present, skip it, or fail it.
// Resolvers are safe for concurrent use by stage workers.
type EntityResolver interface {
	Kind() Kind
	Resolve(ctx context.Context, row Row) RowResult
}

type SchoolResolver struct {
	repo     school.Repository
	registry *Registry
	log      *logrus.Logger
}

func NewSchoolResolver(repo school.Repository, registry *Registry, log *logrus.Logger) *SchoolResolver {
	return &SchoolResolver{repo: repo, registry: registry, log: log}
}

func (r *SchoolResolver) Kind() Kind { return KindSchool }

func (r *SchoolResolver) Resolve(ctx context.Context, row Row) RowResult {
	res := RowResult{Line: row.Line, Kind: KindSchool, Key: row.SchoolName}
	if row.SchoolName == "" {
		res.Outcome = Failed
		res.Err = gerrors.Wrap(ErrParse, "missing school name")
		return res
	}

	fresh, divergent := r.registry.MarkIfNew(KindSchool, row.SchoolName, row.SchoolAddress)
	if !fresh {
		if divergent {
			r.log.WithFields(logrus.Fields{
				"line":   row.Line,
				"school": row.SchoolName,
			}).Warn("repeated school name with a different address; keeping first")
		}
		res.Outcome = AlreadyExisted
		return res
	}

	if _, err := r.repo.Create(ctx, school.New(row.SchoolName, row.SchoolAddress)); err != nil {
		if errors.Is(err, school.ErrNameTaken) {
			return r.lookup(ctx, res, row.SchoolName)
		}
		res.Outcome = Failed
		res.Err = err
		return res
	}
	res.Outcome = Created
	return res
}

func (r *SchoolResolver) lookup(ctx context.Context, res RowResult, name string) RowResult {
	if _, err := r.repo.GetByName(ctx, name); err != nil {
		res.Outcome = Failed
		if errors.Is(err, school.ErrNotFound) {
			res.Err = gerrors.Wrapf(ErrConflict, "school %q vanished after create conflict", name)
		} else {
			res.Err = err
		}
		return res
	}
	res.Outcome = AlreadyExisted
	return res
}

type OrganizationResolver struct {
	repo     organization.Repository
	schools  school.Repository
	registry *Registry
	log      *logrus.Logger
}

func NewOrganizationResolver(
	repo organization.Repository,
	schools school.Repository,
	registry *Registry,
	log *logrus.Logger,
) *OrganizationResolver {
	return &OrganizationResolver{repo: repo, schools: schools, registry: registry, log: log}
}

func (r *OrganizationResolver) Kind() Kind { return KindOrganization }

func (r *OrganizationResolver) Resolve(ctx context.Context, row Row) RowResult {
	res := RowResult{Line: row.Line, Kind: KindOrganization, Key: row.OrgName}
	if row.OrgName == "" {
		res.Outcome = Skipped
		return res
	}

	fresh, divergent := r.registry.MarkIfNew(KindOrganization, row.OrgName, row.SchoolName+"\x1f"+user.NormalizeEmail(row.UserEmail))
	if !fresh {
		if divergent {
			r.log.WithFields(logrus.Fields{
				"line": row.Line,
				"org":  row.OrgName,
			}).Warn("repeated organization name with different attributes; keeping first")
		}
		res.Outcome = AlreadyExisted
		return res
	}

	host, err := r.schools.GetByName(ctx, row.SchoolName)
	if err != nil {
		res.Outcome = Failed
		if errors.Is(err, school.ErrNotFound) {
			res.Err = gerrors.Wrapf(ErrMissingParent, "school %q for organization %q", row.SchoolName, row.OrgName)
		} else {
			res.Err = err
		}
		return res
	}

	if _, err := r.repo.Create(ctx, organization.New(row.OrgName, host.ID(), row.UserEmail)); err != nil {
		if errors.Is(err, organization.ErrNameTaken) {
			return r.lookup(ctx, res, row.OrgName)
		}
		res.Outcome = Failed
		res.Err = err
		return res
	}
	res.Outcome = Created
	return res
}

func (r *OrganizationResolver) lookup(ctx context.Context, res RowResult, name string) RowResult {
	if _, err := r.repo.GetByName(ctx, name); err != nil {
		res.Outcome = Failed
		if errors.Is(err, organization.ErrNotFound) {
			res.Err = gerrors.Wrapf(ErrConflict, "organization %q vanished after create conflict", name)
		} else {
			res.Err = err
		}
		return res
	}
	res.Outcome = AlreadyExisted
	return res
}

type UserResolver struct {
	repo     user.Repository
	registry *Registry
	log      *logrus.Logger
}

func NewUserResolver(repo user.Repository, registry *Registry, log *logrus.Logger) *UserResolver {
	return &UserResolver{repo: repo, registry: registry, log: log}
}

func (r *UserResolver) Kind() Kind { return KindUser }

func (r *UserResolver) Resolve(ctx context.Context, row Row) RowResult {
	email := user.NormalizeEmail(row.UserEmail)
	res := RowResult{Line: row.Line, Kind: KindUser, Key: email}
	if email == "" {
		res.Outcome = Failed
		res.Err = gerrors.Wrap(ErrParse, "missing user email")
		return res
	}

	fresh, divergent := r.registry.MarkIfNew(KindUser, email, row.UserPhone+"\x1f"+row.UserHash)
	if !fresh {
		if divergent {
			r.log.WithFields(logrus.Fields{
				"line":  row.Line,
				"email": email,
			}).Warn("repeated user email with different attributes; keeping first")
		}
		res.Outcome = AlreadyExisted
		return res
	}

	if _, err := r.repo.Create(ctx, user.New(email, row.UserHash, row.UserPhone)); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return r.lookup(ctx, res, email)
		}
		res.Outcome = Failed
		res.Err = err
		return res
	}
	res.Outcome = Created
	return res
}

func (r *UserResolver) lookup(ctx context.Context, res RowResult, email string) RowResult {
	if _, err := r.repo.GetByEmail(ctx, email); err != nil {
		res.Outcome = Failed
		if errors.Is(err, user.ErrNotFound) {
			res.Err = gerrors.Wrapf(ErrConflict, "user %q vanished after create conflict", email)
		} else {
			res.Err = err
		}
		return res
	}
	res.Outcome = AlreadyExisted
	return res
}

type TagResolver struct {
	repo     tag.Repository
	registry *Registry
	log      *logrus.Logger
}

func NewTagResolver(repo tag.Repository, registry *Registry, log *logrus.Logger) *TagResolver {
	return &TagResolver{repo: repo, registry: registry, log: log}
}

func (r *TagResolver) Kind() Kind { return KindTag }

func (r *TagResolver) Resolve(ctx context.Context, row Row) RowResult {
	res := RowResult{Line: row.Line, Kind: KindTag, Key: row.Tag}
	if row.Tag == "" {
		res.Outcome = Skipped
		return res
	}

	fresh, _ := r.registry.MarkIfNew(KindTag, row.Tag, "")
	if !fresh {
		res.Outcome = AlreadyExisted
		return res
	}

	if _, err := r.repo.Create(ctx, tag.New(row.Tag)); err != nil {
		if errors.Is(err, tag.ErrNameTaken) {
			return r.lookup(ctx, res, row.Tag)
		}
		res.Outcome = Failed
		res.Err = err
		return res
	}
	res.Outcome = Created
	return res
}

func (r *TagResolver) lookup(ctx context.Context, res RowResult, name string) RowResult {
	if _, err := r.repo.GetByName(ctx, name); err != nil {
		res.Outcome = Failed
		if errors.Is(err, tag.ErrNotFound) {
			res.Err = gerrors.Wrapf(ErrConflict, "tag %q vanished after create conflict", name)
		} else {
			res.Err = err
		}
		return res
	}
	res.Outcome = AlreadyExisted
	return res
}

type PostResolver struct {
	repo     post.Repository
	users    user.Repository
	schools  school.Repository
	orgs     organization.Repository
	tags     tag.Repository
	registry *Registry
	log      *logrus.Logger
}

func NewPostResolver(
	repo post.Repository,
	users user.Repository,
	schools school.Repository,
	orgs organization.Repository,
	tags tag.Repository,
	registry *Registry,
	log *logrus.Logger,
) *PostResolver {
	return &PostResolver{
		repo:     repo,
		users:    users,
		schools:  schools,
		orgs:     orgs,
		tags:     tags,
		registry: registry,
		log:      log,
	}
}

func (r *PostResolver) Kind() Kind { return KindPost }

func (r *PostResolver) Resolve(ctx context.Context, row Row) RowResult {
	email := user.NormalizeEmail(row.UserEmail)
	res := RowResult{Line: row.Line, Kind: KindPost, Key: email + "|" + row.PostedAt}
	if row.PostContent == "" {
		res.Outcome = Failed
		res.Err = gerrors.Wrap(ErrParse, "missing post content")
		return res
	}

	postedAt, err := ParseTimestamp(row.PostedAt)
	if err != nil {
		res.Outcome = Failed
		res.Err = err
		return res
	}

	fresh, _ := r.registry.MarkIfNew(KindPost, res.Key+"|"+row.PostContent, "")
	if !fresh {
		res.Outcome = AlreadyExisted
		return res
	}

	poster, err := r.users.GetByEmail(ctx, email)
	if err != nil {
		return r.failRef(res, err, user.ErrNotFound, "poster %q", email)
	}
	host, err := r.schools.GetByName(ctx, row.SchoolName)
	if err != nil {
		return r.failRef(res, err, school.ErrNotFound, "school %q", row.SchoolName)
	}

	// Organization and tag are optional: a lookup miss leaves the
	// reference absent instead of failing the row.
	orgID := uuid.Nil
	if row.OrgName != "" {
		o, err := r.orgs.GetByName(ctx, row.OrgName)
		switch {
		case err == nil:
			orgID = o.ID()
		case errors.Is(err, organization.ErrNotFound):
			r.log.WithFields(logrus.Fields{
				"line": row.Line,
				"org":  row.OrgName,
			}).Warn("post references an unknown organization; storing without one")
		default:
			res.Outcome = Failed
			res.Err = err
			return res
		}
	}
	tagID := uuid.Nil
	if row.Tag != "" {
		t, err := r.tags.GetByName(ctx, row.Tag)
		switch {
		case err == nil:
			tagID = t.ID()
		case errors.Is(err, tag.ErrNotFound):
			r.log.WithFields(logrus.Fields{
				"line": row.Line,
				"tag":  row.Tag,
			}).Warn("post references an unknown tag; storing without one")
		default:
			res.Outcome = Failed
			res.Err = err
			return res
		}
	}

	p := post.New(poster.ID(), host.ID(), orgID, tagID, row.PostContent, postedAt)
	if _, err := r.repo.Create(ctx, p); err != nil {
		if errors.Is(err, post.ErrDuplicate) {
			res.Outcome = AlreadyExisted
			return res
		}
		res.Outcome = Failed
		res.Err = err
		return res
	}
	res.Outcome = Created
	return res
}

// failRef fills res for a failed reference lookup, mapping the
// repository's not-found sentinel onto ErrMissingParent.
func (r *PostResolver) failRef(res RowResult, err, notFound error, format string, args ...any) RowResult {
	res.Outcome = Failed
	if errors.Is(err, notFound) {
		res.Err = gerrors.Wrapf(ErrMissingParent, format, args...)
	} else {
		res.Err = err
	}
	return res
}
