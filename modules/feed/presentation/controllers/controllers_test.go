package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/campus-feed/modules/feed/domain/aggregates/organization"
	"github.com/iota-uz/campus-feed/modules/feed/domain/aggregates/post"
	"github.com/iota-uz/campus-feed/modules/feed/domain/aggregates/school"
	"github.com/iota-uz/campus-feed/modules/feed/domain/aggregates/tag"
	"github.com/iota-uz/campus-feed/modules/feed/domain/aggregates/user"
	"github.com/iota-uz/campus-feed/modules/feed/presentation/controllers"
	"github.com/iota-uz/campus-feed/modules/feed/services"
)

const testSecret = "test-secret"

// Seeded in-memory stores backing the controllers under test.

type fixtureStores struct {
	schools *stubSchools
	orgs    *stubOrgs
	users   *stubUsers
	tags    *stubTags
	posts   *stubPosts
}

type stubSchools struct{ items []school.School }

func (s *stubSchools) Create(_ context.Context, sc school.School) (school.School, error) {
	saved := school.Hydrate(uuid.New(), sc.Name(), sc.Address(), time.Now())
	s.items = append(s.items, saved)
	return saved, nil
}

func (s *stubSchools) GetByID(_ context.Context, id uuid.UUID) (school.School, error) {
	for _, sc := range s.items {
		if sc.ID() == id {
			return sc, nil
		}
	}
	return school.School{}, school.ErrNotFound
}

func (s *stubSchools) GetByName(_ context.Context, name string) (school.School, error) {
	for _, sc := range s.items {
		if sc.Name() == name {
			return sc, nil
		}
	}
	return school.School{}, school.ErrNotFound
}

func (s *stubSchools) GetAll(_ context.Context) ([]school.School, error) { return s.items, nil }
func (s *stubSchools) Count(_ context.Context) (int64, error)            { return int64(len(s.items)), nil }

type stubOrgs struct{ items []organization.Organization }

func (s *stubOrgs) Create(_ context.Context, o organization.Organization) (organization.Organization, error) {
	saved := organization.Hydrate(uuid.New(), o.Name(), o.SchoolID(), o.AdminEmail(), time.Now())
	s.items = append(s.items, saved)
	return saved, nil
}

func (s *stubOrgs) GetByID(_ context.Context, id uuid.UUID) (organization.Organization, error) {
	for _, o := range s.items {
		if o.ID() == id {
			return o, nil
		}
	}
	return organization.Organization{}, organization.ErrNotFound
}

func (s *stubOrgs) GetByName(_ context.Context, name string) (organization.Organization, error) {
	for _, o := range s.items {
		if o.Name() == name {
			return o, nil
		}
	}
	return organization.Organization{}, organization.ErrNotFound
}

func (s *stubOrgs) GetBySchoolID(_ context.Context, schoolID uuid.UUID) ([]organization.Organization, error) {
	out := make([]organization.Organization, 0)
	for _, o := range s.items {
		if o.SchoolID() == schoolID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *stubOrgs) GetAll(_ context.Context) ([]organization.Organization, error) {
	return s.items, nil
}
func (s *stubOrgs) Count(_ context.Context) (int64, error) { return int64(len(s.items)), nil }

type stubUsers struct{ items []user.User }

func (s *stubUsers) Create(_ context.Context, u user.User) (user.User, error) {
	for _, existing := range s.items {
		if existing.Email() == u.Email() {
			return user.User{}, user.ErrEmailTaken
		}
	}
	saved := user.Hydrate(uuid.New(), u.Email(), u.PasswordHash(), u.Phone(), time.Now())
	s.items = append(s.items, saved)
	return saved, nil
}

func (s *stubUsers) GetByID(_ context.Context, id uuid.UUID) (user.User, error) {
	for _, u := range s.items {
		if u.ID() == id {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (s *stubUsers) GetByEmail(_ context.Context, email string) (user.User, error) {
	for _, u := range s.items {
		if u.Email() == user.NormalizeEmail(email) {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (s *stubUsers) Count(_ context.Context) (int64, error) { return int64(len(s.items)), nil }

type stubTags struct{ items []tag.Tag }

func (s *stubTags) Create(_ context.Context, t tag.Tag) (tag.Tag, error) {
	saved := tag.Hydrate(uuid.New(), t.Name(), time.Now())
	s.items = append(s.items, saved)
	return saved, nil
}

func (s *stubTags) GetByID(_ context.Context, id uuid.UUID) (tag.Tag, error) {
	for _, t := range s.items {
		if t.ID() == id {
			return t, nil
		}
	}
	return tag.Tag{}, tag.ErrNotFound
}

func (s *stubTags) GetByName(_ context.Context, name string) (tag.Tag, error) {
	for _, t := range s.items {
		if t.Name() == name {
			return t, nil
		}
	}
	return tag.Tag{}, tag.ErrNotFound
}

func (s *stubTags) GetAll(_ context.Context) ([]tag.Tag, error) { return s.items, nil }
func (s *stubTags) Count(_ context.Context) (int64, error)      { return int64(len(s.items)), nil }

type stubPosts struct{ items []post.Post }

func (s *stubPosts) Create(_ context.Context, p post.Post) (post.Post, error) {
	saved := post.Hydrate(uuid.New(), p.PosterID(), p.SchoolID(), p.OrgID(), p.TagID(), p.Content(), p.PostedAt(), time.Now())
	s.items = append(s.items, saved)
	return saved, nil
}

func (s *stubPosts) GetByID(_ context.Context, id uuid.UUID) (post.Post, error) {
	for _, p := range s.items {
		if p.ID() == id {
			return p, nil
		}
	}
	return post.Post{}, post.ErrNotFound
}

func (s *stubPosts) GetPaginated(_ context.Context, params post.FindParams) ([]post.Post, error) {
	out := make([]post.Post, 0)
	for _, p := range s.items {
		if params.SchoolID != uuid.Nil && p.SchoolID() != params.SchoolID {
			continue
		}
		if params.OrgID != uuid.Nil && p.OrgID() != params.OrgID {
			continue
		}
		if params.TagID != uuid.Nil && p.TagID() != params.TagID {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *stubPosts) Count(_ context.Context) (int64, error) { return int64(len(s.items)), nil }

func newFixture() fixtureStores {
	return fixtureStores{
		schools: &stubSchools{},
		orgs:    &stubOrgs{},
		users:   &stubUsers{},
		tags:    &stubTags{},
		posts:   &stubPosts{},
	}
}

func newTestRouter(f fixtureStores) *mux.Router {
	r := mux.NewRouter()

	auth := controllers.NewAuthController(services.NewUserService(f.users), testSecret)
	auth.Register(r)

	feed := controllers.NewFeedAPIController(
		services.NewSchoolService(f.schools),
		services.NewOrganizationService(f.orgs),
		services.NewTagService(f.tags),
		services.NewPostService(f.posts),
	)
	feed.FeedMiddleware = []mux.MiddlewareFunc{controllers.RequireAuth(testSecret)}
	feed.Register(r)

	return r
}

func doJSON(t *testing.T, router *mux.Router, method, target string, body any, header http.Header) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func registerAndLogin(t *testing.T, router *mux.Router) string {
	t.Helper()
	rec, body := doJSON(t, router, http.MethodPost, "/auth/register", map[string]string{
		"email":    "reader@x.io",
		"password": "password123",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}
