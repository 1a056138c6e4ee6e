package tag

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Tag struct {
	id        uuid.UUID
	name      string
	createdAt time.Time
}

func New(name string) Tag {
	return Tag{name: strings.TrimSpace(name)}
}

func Hydrate(id uuid.UUID, name string, createdAt time.Time) Tag {
	return Tag{id: id, name: strings.TrimSpace(name), createdAt: createdAt}
}

func (t Tag) ID() uuid.UUID        { return t.id }
func (t Tag) Name() string         { return t.name }
func (t Tag) CreatedAt() time.Time { return t.createdAt }
func (t Tag) IsZero() bool         { return t.id == uuid.Nil && t.name == "" }
