package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/iota-uz/campus-feed/modules/feed/domain/aggregates/organization"
	"github.com/iota-uz/campus-feed/modules/feed/domain/aggregates/post"
	"github.com/iota-uz/campus-feed/modules/feed/domain/aggregates/school"
	"github.com/iota-uz/campus-feed/modules/feed/domain/aggregates/tag"
	"github.com/iota-uz/campus-feed/modules/feed/services"
	"github.com/iota-uz/campus-feed/pkg/configuration"
)

type FeedAPIController struct {
	schools  *services.SchoolService
	orgs     *services.OrganizationService
	tags     *services.TagService
	posts    *services.PostService
	basePath string
	// FeedMiddleware guards the feed route; typically RequireAuth.
	FeedMiddleware []mux.MiddlewareFunc
}

func NewFeedAPIController(
	schools *services.SchoolService,
	orgs *services.OrganizationService,
	tags *services.TagService,
	posts *services.PostService,
) *FeedAPIController {
	return &FeedAPIController{
		schools:  schools,
		orgs:     orgs,
		tags:     tags,
		posts:    posts,
		basePath: "/api",
	}
}

func (c *FeedAPIController) Key() string {
	return c.basePath
}

func (c *FeedAPIController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("/schools", c.Schools).Methods(http.MethodGet)
	router.HandleFunc("/tags", c.Tags).Methods(http.MethodGet)
	router.HandleFunc("/organizations", c.Organizations).Methods(http.MethodGet)

	feedRouter := r.PathPrefix(c.basePath).Subrouter()
	feedRouter.Use(c.FeedMiddleware...)
	feedRouter.HandleFunc("/feed", c.Feed).Methods(http.MethodGet)
}

func (c *FeedAPIController) Schools(w http.ResponseWriter, r *http.Request) {
	items, err := c.schools.GetAll(r.Context())
	if err != nil {
		writeAPIError(w, r, http.StatusInternalServerError, "FEED_INTERNAL", "internal error")
		return
	}

	out := make([]map[string]any, 0, len(items))
	for _, s := range items {
		out = append(out, schoolToVM(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (c *FeedAPIController) Tags(w http.ResponseWriter, r *http.Request) {
	items, err := c.tags.GetAll(r.Context())
	if err != nil {
		writeAPIError(w, r, http.StatusInternalServerError, "FEED_INTERNAL", "internal error")
		return
	}

	out := make([]map[string]any, 0, len(items))
	for _, t := range items {
		out = append(out, tagToVM(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (c *FeedAPIController) Organizations(w http.ResponseWriter, r *http.Request) {
	var (
		items []organization.Organization
		err   error
	)
	if raw := strings.TrimSpace(r.URL.Query().Get("school_id")); raw != "" {
		schoolID, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			writeAPIError(w, r, http.StatusBadRequest, "FEED_INVALID_SCHOOL_ID", "invalid school_id")
			return
		}
		items, err = c.orgs.GetBySchoolID(r.Context(), schoolID)
	} else {
		items, err = c.orgs.GetAll(r.Context())
	}
	if err != nil {
		writeAPIError(w, r, http.StatusInternalServerError, "FEED_INTERNAL", "internal error")
		return
	}

	out := make([]map[string]any, 0, len(items))
	for _, o := range items {
		out = append(out, orgToVM(o))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (c *FeedAPIController) Feed(w http.ResponseWriter, r *http.Request) {
	params, ok := c.feedParams(w, r)
	if !ok {
		return
	}

	items, err := c.posts.GetFeed(r.Context(), params)
	if err != nil {
		writeAPIError(w, r, http.StatusInternalServerError, "FEED_INTERNAL", "internal error")
		return
	}

	out := make([]map[string]any, 0, len(items))
	for _, p := range items {
		out = append(out, postToVM(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":  out,
		"limit":  params.Limit,
		"offset": params.Offset,
	})
}

func (c *FeedAPIController) feedParams(w http.ResponseWriter, r *http.Request) (post.FindParams, bool) {
	conf := configuration.Use()
	params := post.FindParams{Limit: conf.PageSize}

	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			params.Limit = parsed
			if params.Limit > conf.MaxPageSize {
				params.Limit = conf.MaxPageSize
			}
		}
	}
	if raw := strings.TrimSpace(q.Get("offset")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			params.Offset = parsed
		}
	}
	if raw := strings.TrimSpace(q.Get("school_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeAPIError(w, r, http.StatusBadRequest, "FEED_INVALID_SCHOOL_ID", "invalid school_id")
			return params, false
		}
		params.SchoolID = id
	}
	if raw := strings.TrimSpace(q.Get("org_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeAPIError(w, r, http.StatusBadRequest, "FEED_INVALID_ORG_ID", "invalid org_id")
			return params, false
		}
		params.OrgID = id
	}
	if name := strings.TrimSpace(q.Get("tag")); name != "" {
		t, err := c.tags.GetByName(r.Context(), name)
		if err != nil {
			if errors.Is(err, tag.ErrNotFound) {
				writeAPIError(w, r, http.StatusNotFound, "FEED_UNKNOWN_TAG", "unknown tag")
				return params, false
			}
			writeAPIError(w, r, http.StatusInternalServerError, "FEED_INTERNAL", "internal error")
			return params, false
		}
		params.TagID = t.ID()
	}
	return params, true
}

func schoolToVM(s school.School) map[string]any {
	return map[string]any{
		"id":      s.ID().String(),
		"name":    s.Name(),
		"address": s.Address(),
	}
}

func tagToVM(t tag.Tag) map[string]any {
	return map[string]any{
		"id":   t.ID().String(),
		"name": t.Name(),
	}
}

func orgToVM(o organization.Organization) map[string]any {
	return map[string]any{
		"id":          o.ID().String(),
		"name":        o.Name(),
		"school_id":   o.SchoolID().String(),
		"admin_email": o.AdminEmail(),
	}
}

func postToVM(p post.Post) map[string]any {
	vm := map[string]any{
		"id":        p.ID().String(),
		"poster_id": p.PosterID().String(),
		"school_id": p.SchoolID().String(),
		"content":   p.Content(),
		"posted_at": p.PostedAt(),
	}
	if p.OrgID() != uuid.Nil {
		vm["org_id"] = p.OrgID().String()
	}
	if p.TagID() != uuid.Nil {
		vm["tag_id"] = p.TagID().String()
	}
	return vm
}
