package post

import (
	"time"

	"github.com/google/uuid"
)

// Post is a single feed entry. OrgID and TagID are optional references
// and hold uuid.Nil when the post is not tied to an organization or tag.
type Post struct {
	id        uuid.UUID
	posterID  uuid.UUID
	schoolID  uuid.UUID
	orgID     uuid.UUID
	tagID     uuid.UUID
	content   string
	postedAt  time.Time
	createdAt time.Time
}

func New(posterID, schoolID, orgID, tagID uuid.UUID, content string, postedAt time.Time) Post {
	return Post{
		posterID: posterID,
		schoolID: schoolID,
		orgID:    orgID,
		tagID:    tagID,
		content:  content,
		postedAt: postedAt,
	}
}

func Hydrate(
	id, posterID, schoolID, orgID, tagID uuid.UUID,
	content string,
	postedAt, createdAt time.Time,
) Post {
	return Post{
		id:        id,
		posterID:  posterID,
		schoolID:  schoolID,
		orgID:     orgID,
		tagID:     tagID,
		content:   content,
		postedAt:  postedAt,
		createdAt: createdAt,
	}
}

func (p Post) ID() uuid.UUID        { return p.id }
func (p Post) PosterID() uuid.UUID  { return p.posterID }
func (p Post) SchoolID() uuid.UUID  { return p.schoolID }
func (p Post) OrgID() uuid.UUID     { return p.orgID }
func (p Post) TagID() uuid.UUID     { return p.tagID }
func (p Post) Content() string      { return p.content }
func (p Post) PostedAt() time.Time  { return p.postedAt }
func (p Post) CreatedAt() time.Time { return p.createdAt }
func (p Post) IsZero() bool         { return p.id == uuid.Nil && p.content == "" }
