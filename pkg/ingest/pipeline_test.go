package ingest_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/campus-feed/modules/feed/domain/aggregates/organization"
	"github.com/iota-uz/campus-feed/modules/feed/domain/aggregates/post"
	"github.com/iota-uz/campus-feed/modules/feed/domain/aggregates/school"
	"github.com/iota-uz/campus-feed/modules/feed/domain/aggregates/tag"
	"github.com/iota-uz/campus-feed/modules/feed/domain/aggregates/user"
	"github.com/iota-uz/campus-feed/pkg/eventbus"
	"github.com/iota-uz/campus-feed/pkg/ingest"
)

// In-memory stores mirroring the conflict and not-found behavior of the
// Postgres repositories.

type memSchools struct {
	mu     sync.Mutex
	byName map[string]school.School
}

func newMemSchools() *memSchools {
	return &memSchools{byName: map[string]school.School{}}
}

func (m *memSchools) Create(_ context.Context, s school.School) (school.School, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byName[s.Name()]; ok {
		return school.School{}, school.ErrNameTaken
	}
	saved := school.Hydrate(uuid.New(), s.Name(), s.Address(), time.Now())
	m.byName[s.Name()] = saved
	return saved, nil
}

func (m *memSchools) GetByID(_ context.Context, id uuid.UUID) (school.School, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byName {
		if s.ID() == id {
			return s, nil
		}
	}
	return school.School{}, school.ErrNotFound
}

func (m *memSchools) GetByName(_ context.Context, name string) (school.School, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byName[name]
	if !ok {
		return school.School{}, school.ErrNotFound
	}
	return s, nil
}

func (m *memSchools) GetAll(_ context.Context) ([]school.School, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]school.School, 0, len(m.byName))
	for _, s := range m.byName {
		out = append(out, s)
	}
	return out, nil
}

func (m *memSchools) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.byName)), nil
}

type memOrgs struct {
	mu     sync.Mutex
	byName map[string]organization.Organization
}

func newMemOrgs() *memOrgs {
	return &memOrgs{byName: map[string]organization.Organization{}}
}

func (m *memOrgs) Create(_ context.Context, o organization.Organization) (organization.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byName[o.Name()]; ok {
		return organization.Organization{}, organization.ErrNameTaken
	}
	saved := organization.Hydrate(uuid.New(), o.Name(), o.SchoolID(), o.AdminEmail(), time.Now())
	m.byName[o.Name()] = saved
	return saved, nil
}

func (m *memOrgs) GetByID(_ context.Context, id uuid.UUID) (organization.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.byName {
		if o.ID() == id {
			return o, nil
		}
	}
	return organization.Organization{}, organization.ErrNotFound
}

func (m *memOrgs) GetByName(_ context.Context, name string) (organization.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byName[name]
	if !ok {
		return organization.Organization{}, organization.ErrNotFound
	}
	return o, nil
}

func (m *memOrgs) GetBySchoolID(_ context.Context, schoolID uuid.UUID) ([]organization.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]organization.Organization, 0)
	for _, o := range m.byName {
		if o.SchoolID() == schoolID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memOrgs) GetAll(_ context.Context) ([]organization.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]organization.Organization, 0, len(m.byName))
	for _, o := range m.byName {
		out = append(out, o)
	}
	return out, nil
}

func (m *memOrgs) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.byName)), nil
}

type memUsers struct {
	mu      sync.Mutex
	byEmail map[string]user.User
	// createErr, when set, is returned by Create to simulate an
	// unreachable store.
	createErr error
}

func newMemUsers() *memUsers {
	return &memUsers{byEmail: map[string]user.User{}}
}

func (m *memUsers) Create(_ context.Context, u user.User) (user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return user.User{}, m.createErr
	}
	if _, ok := m.byEmail[u.Email()]; ok {
		return user.User{}, user.ErrEmailTaken
	}
	saved := user.Hydrate(uuid.New(), u.Email(), u.PasswordHash(), u.Phone(), time.Now())
	m.byEmail[u.Email()] = saved
	return saved, nil
}

func (m *memUsers) GetByID(_ context.Context, id uuid.UUID) (user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byEmail {
		if u.ID() == id {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byEmail[user.NormalizeEmail(email)]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.byEmail)), nil
}

type memTags struct {
	mu     sync.Mutex
	byName map[string]tag.Tag
}

func newMemTags() *memTags {
	return &memTags{byName: map[string]tag.Tag{}}
}

func (m *memTags) Create(_ context.Context, t tag.Tag) (tag.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byName[t.Name()]; ok {
		return tag.Tag{}, tag.ErrNameTaken
	}
	saved := tag.Hydrate(uuid.New(), t.Name(), time.Now())
	m.byName[t.Name()] = saved
	return saved, nil
}

func (m *memTags) GetByID(_ context.Context, id uuid.UUID) (tag.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.byName {
		if t.ID() == id {
			return t, nil
		}
	}
	return tag.Tag{}, tag.ErrNotFound
}

func (m *memTags) GetByName(_ context.Context, name string) (tag.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byName[name]
	if !ok {
		return tag.Tag{}, tag.ErrNotFound
	}
	return t, nil
}

func (m *memTags) GetAll(_ context.Context) ([]tag.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]tag.Tag, 0, len(m.byName))
	for _, t := range m.byName {
		out = append(out, t)
	}
	return out, nil
}

func (m *memTags) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.byName)), nil
}

type memPosts struct {
	mu    sync.Mutex
	byKey map[string]post.Post
}

func newMemPosts() *memPosts {
	return &memPosts{byKey: map[string]post.Post{}}
}

func postKey(p post.Post) string {
	return fmt.Sprintf("%s|%d|%s", p.PosterID(), p.PostedAt().UnixNano(), p.Content())
}

func (m *memPosts) Create(_ context.Context, p post.Post) (post.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := postKey(p)
	if _, ok := m.byKey[key]; ok {
		return post.Post{}, post.ErrDuplicate
	}
	saved := post.Hydrate(uuid.New(), p.PosterID(), p.SchoolID(), p.OrgID(), p.TagID(), p.Content(), p.PostedAt(), time.Now())
	m.byKey[key] = saved
	return saved, nil
}

func (m *memPosts) GetByID(_ context.Context, id uuid.UUID) (post.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byKey {
		if p.ID() == id {
			return p, nil
		}
	}
	return post.Post{}, post.ErrNotFound
}

func (m *memPosts) GetPaginated(_ context.Context, params post.FindParams) ([]post.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]post.Post, 0)
	for _, p := range m.byKey {
		if params.SchoolID != uuid.Nil && p.SchoolID() != params.SchoolID {
			continue
		}
		if params.TagID != uuid.Nil && p.TagID() != params.TagID {
			continue
		}
		if params.OrgID != uuid.Nil && p.OrgID() != params.OrgID {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memPosts) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.byKey)), nil
}

type memStores struct {
	schools *memSchools
	orgs    *memOrgs
	users   *memUsers
	tags    *memTags
	posts   *memPosts
}

func newMemStores() memStores {
	return memStores{
		schools: newMemSchools(),
		orgs:    newMemOrgs(),
		users:   newMemUsers(),
		tags:    newMemTags(),
		posts:   newMemPosts(),
	}
}

func (m memStores) stores() ingest.Stores {
	return ingest.Stores{
		Schools:       m.schools,
		Organizations: m.orgs,
		Users:         m.users,
		Tags:          m.tags,
		Posts:         m.posts,
	}
}

func newPipeline(src ingest.RowSource, stores ingest.Stores, log *logrus.Logger) *ingest.Pipeline {
	return &ingest.Pipeline{
		Source:    src,
		Resolvers: ingest.Resolvers(stores, ingest.NewRegistry(), log),
		Workers:   4,
		Log:       log,
	}
}

const feedHeader = "SchoolName,OrganizationName,SchoolAddress,UserEmail,UserPhone,UserHash,PostContent,Timestamp,Tag\n"

func stageByKind(t *testing.T, report *ingest.Report, kind ingest.Kind) ingest.StageSummary {
	t.Helper()
	for _, s := range report.Stages {
		if s.Kind == kind {
			return s
		}
	}
	t.Fatalf("no stage %s in report", kind)
	return ingest.StageSummary{}
}

func TestRun_TwoRowsSharedSchool(t *testing.T) {
	// Two posts by the same user in the same org at the same school must
	// produce exactly one school, one org, one user and two posts.
	path := writeCSV(t, feedHeader+
		"School A,Org 1,1 Main St,u1@x.io,555-0100,h1,first post,2024-09-01T10:00:00Z,chess\n"+
		"School A,Org 1,1 Main St,u1@x.io,555-0100,h1,second post,2024-09-01T11:00:00Z,null\n")

	mem := newMemStores()
	log := nullLogger()
	pipe := newPipeline(ingest.NewCSVSource(path, "null", log), mem.stores(), log)

	report, err := pipe.Run(context.Background())
	require.NoError(t, err)
	require.False(t, report.Aborted)
	require.Len(t, report.Stages, 5)

	schools := stageByKind(t, report, ingest.KindSchool)
	require.Equal(t, 1, schools.Created)
	require.Equal(t, 1, schools.AlreadyExisted)

	orgs := stageByKind(t, report, ingest.KindOrganization)
	require.Equal(t, 1, orgs.Created)
	require.Equal(t, 1, orgs.AlreadyExisted)

	users := stageByKind(t, report, ingest.KindUser)
	require.Equal(t, 1, users.Created)

	tags := stageByKind(t, report, ingest.KindTag)
	require.Equal(t, 1, tags.Created)
	require.Equal(t, 1, tags.Skipped)

	posts := stageByKind(t, report, ingest.KindPost)
	require.Equal(t, 2, posts.Created)
	require.Zero(t, posts.Failed)

	n, _ := mem.posts.Count(context.Background())
	require.EqualValues(t, 2, n)
}

func TestRun_SecondRunCreatesNothing(t *testing.T) {
	path := writeCSV(t, feedHeader+
		"School A,Org 1,1 Main St,u1@x.io,555-0100,h1,first post,2024-09-01T10:00:00Z,chess\n"+
		"School B,null,2 Oak Ave,u2@x.io,null,h2,another post,2024-09-02T09:30:00Z,null\n")

	mem := newMemStores()
	log := nullLogger()

	first := newPipeline(ingest.NewCSVSource(path, "null", log), mem.stores(), log)
	report, err := first.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 8, report.TotalCreated())

	// Fresh pipeline, fresh registry, same store.
	second := newPipeline(ingest.NewCSVSource(path, "null", log), mem.stores(), log)
	report, err = second.Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, report.TotalCreated())
	require.Zero(t, report.TotalFailed())

	n, _ := mem.posts.Count(context.Background())
	require.EqualValues(t, 2, n)
}

func TestRun_OrganizationWithUnknownSchoolFails(t *testing.T) {
	mem := newMemStores()
	log := nullLogger()

	// The school stage never sees "Ghost U" because its resolver fails
	// the row, so the org stage has no parent to attach to.
	src := rowSourceFunc(func(ctx context.Context, fn func(ingest.Row) error) (int, error) {
		return 0, fn(ingest.Row{
			Line:        2,
			SchoolName:  "",
			OrgName:     "Orphan Org",
			UserEmail:   "u1@x.io",
			PostContent: "hello",
			PostedAt:    "2024-09-01T10:00:00Z",
		})
	})

	pipe := newPipeline(src, mem.stores(), log)
	report, err := pipe.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, stageByKind(t, report, ingest.KindSchool).Failed)
	orgs := stageByKind(t, report, ingest.KindOrganization)
	require.Equal(t, 1, orgs.Failed)
	require.Zero(t, orgs.Created)
	require.Equal(t, 1, stageByKind(t, report, ingest.KindPost).Failed)
}

func TestRun_NullTagPostHasNoTag(t *testing.T) {
	path := writeCSV(t, feedHeader+
		"School A,null,1 Main St,u1@x.io,null,h1,untagged post,2024-09-01T10:00:00Z,null\n")

	mem := newMemStores()
	log := nullLogger()
	pipe := newPipeline(ingest.NewCSVSource(path, "null", log), mem.stores(), log)

	report, err := pipe.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stageByKind(t, report, ingest.KindTag).Skipped)
	require.Equal(t, 1, stageByKind(t, report, ingest.KindPost).Created)

	posts, err := mem.posts.GetPaginated(context.Background(), post.FindParams{})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Equal(t, uuid.Nil, posts[0].TagID())
	require.Equal(t, uuid.Nil, posts[0].OrgID())
}

func TestPostResolver_UnresolvableOptionalRefsStoredAbsent(t *testing.T) {
	// An org or tag name that resolves to nothing must not fail the row:
	// the post is created with the reference left absent, and a warning
	// records the dangling name.
	ctx := context.Background()
	mem := newMemStores()
	_, err := mem.users.Create(ctx, user.New("u1@x.io", "h1", "555-0100"))
	require.NoError(t, err)
	_, err = mem.schools.Create(ctx, school.New("School A", "1 Main St"))
	require.NoError(t, err)

	log, hook := logrustest.NewNullLogger()
	r := ingest.NewPostResolver(mem.posts, mem.users, mem.schools, mem.orgs, mem.tags, ingest.NewRegistry(), log)

	res := r.Resolve(ctx, ingest.Row{
		Line:        2,
		SchoolName:  "School A",
		OrgName:     "Ghost Org",
		UserEmail:   "u1@x.io",
		PostContent: "hello",
		PostedAt:    "2024-09-01T10:00:00Z",
		Tag:         "ghost-tag",
	})
	require.Equal(t, ingest.Created, res.Outcome)
	require.NoError(t, res.Err)

	posts, err := mem.posts.GetPaginated(ctx, post.FindParams{})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Equal(t, uuid.Nil, posts[0].OrgID())
	require.Equal(t, uuid.Nil, posts[0].TagID())

	warns := 0
	for _, e := range hook.Entries {
		if e.Level == logrus.WarnLevel {
			warns++
		}
	}
	require.Equal(t, 2, warns)
}

func TestRun_DivergentUserAttributesKeepFirstAndWarn(t *testing.T) {
	// Row two diverges on the phone, row three on the hash; both must
	// surface a warning and neither overrides the first claim.
	path := writeCSV(t, feedHeader+
		"School A,null,1 Main St,u1@x.io,555-0100,h1,post one,2024-09-01T10:00:00Z,null\n"+
		"School A,null,1 Main St,u1@x.io,555-0199,h1,post two,2024-09-01T11:00:00Z,null\n"+
		"School A,null,1 Main St,u1@x.io,555-0100,h9,post three,2024-09-01T12:00:00Z,null\n")

	mem := newMemStores()
	log, hook := logrustest.NewNullLogger()
	// Single worker so the first file row claims the registry key first.
	pipe := newPipeline(ingest.NewCSVSource(path, "null", log), mem.stores(), log)
	pipe.Workers = 1

	report, err := pipe.Run(context.Background())
	require.NoError(t, err)

	users := stageByKind(t, report, ingest.KindUser)
	require.Equal(t, 1, users.Created)
	require.Equal(t, 2, users.AlreadyExisted)

	u, err := mem.users.GetByEmail(context.Background(), "u1@x.io")
	require.NoError(t, err)
	require.Equal(t, "555-0100", u.Phone())

	warned := 0
	for _, e := range hook.Entries {
		if e.Level == logrus.WarnLevel && strings.Contains(e.Message, "repeated user email") {
			warned++
		}
	}
	require.Equal(t, 2, warned)
}

func TestRun_DivergentOrgAdminWarns(t *testing.T) {
	path := writeCSV(t, feedHeader+
		"School A,Org 1,1 Main St,u1@x.io,null,h1,post one,2024-09-01T10:00:00Z,null\n"+
		"School A,Org 1,1 Main St,u2@x.io,null,h2,post two,2024-09-01T11:00:00Z,null\n")

	mem := newMemStores()
	log, hook := logrustest.NewNullLogger()
	pipe := newPipeline(ingest.NewCSVSource(path, "null", log), mem.stores(), log)
	pipe.Workers = 1

	report, err := pipe.Run(context.Background())
	require.NoError(t, err)

	orgs := stageByKind(t, report, ingest.KindOrganization)
	require.Equal(t, 1, orgs.Created)
	require.Equal(t, 1, orgs.AlreadyExisted)

	warned := false
	for _, e := range hook.Entries {
		if e.Level == logrus.WarnLevel && strings.Contains(e.Message, "repeated organization name") {
			warned = true
		}
	}
	require.True(t, warned)
}

func TestRun_FatalStoreErrorAbortsRun(t *testing.T) {
	path := writeCSV(t, feedHeader+
		"School A,null,1 Main St,u1@x.io,null,h1,hello,2024-09-01T10:00:00Z,null\n")

	errStoreDown := errors.New("store down")
	mem := newMemStores()
	mem.users.createErr = errStoreDown

	log := nullLogger()
	pipe := newPipeline(ingest.NewCSVSource(path, "null", log), mem.stores(), log)
	pipe.Fatal = func(err error) bool { return errors.Is(err, errStoreDown) }

	report, err := pipe.Run(context.Background())
	require.ErrorIs(t, err, ingest.ErrAborted)
	require.True(t, report.Aborted)

	// Schools ran to completion, users aborted, posts never started.
	require.Len(t, report.Stages, 3)
	require.Equal(t, ingest.KindUser, report.Stages[2].Kind)
}

func TestRun_PublishesStageEvents(t *testing.T) {
	path := writeCSV(t, feedHeader+
		"School A,null,1 Main St,u1@x.io,null,h1,hello,2024-09-01T10:00:00Z,null\n")

	mem := newMemStores()
	log := nullLogger()

	var (
		mu       sync.Mutex
		started  []ingest.Kind
		finished []ingest.Kind
		runDone  bool
	)
	bus := eventbus.NewEventPublisher(log)
	bus.Subscribe(func(e ingest.StageStarted) {
		mu.Lock()
		started = append(started, e.Kind)
		mu.Unlock()
	})
	bus.Subscribe(func(e ingest.StageFinished) {
		mu.Lock()
		finished = append(finished, e.Summary.Kind)
		mu.Unlock()
	})
	bus.Subscribe(func(ingest.RunFinished) {
		mu.Lock()
		runDone = true
		mu.Unlock()
	})

	pipe := newPipeline(ingest.NewCSVSource(path, "null", log), mem.stores(), log)
	pipe.Bus = bus

	_, err := pipe.Run(context.Background())
	require.NoError(t, err)

	want := []ingest.Kind{
		ingest.KindSchool,
		ingest.KindOrganization,
		ingest.KindUser,
		ingest.KindTag,
		ingest.KindPost,
	}
	require.Equal(t, want, started)
	require.Equal(t, want, finished)
	require.True(t, runDone)
}

// rowSourceFunc adapts a function to the RowSource interface.
type rowSourceFunc func(ctx context.Context, fn func(ingest.Row) error) (int, error)

func (f rowSourceFunc) Scan(ctx context.Context, fn func(ingest.Row) error) (int, error) {
	return f(ctx, fn)
}
