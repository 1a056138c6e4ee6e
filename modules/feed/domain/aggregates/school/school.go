package school

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type School struct {
	id        uuid.UUID
	name      string
	address   string
	createdAt time.Time
}

func New(name, address string) School {
	return School{
		name:    strings.TrimSpace(name),
		address: strings.TrimSpace(address),
	}
}

func Hydrate(id uuid.UUID, name, address string, createdAt time.Time) School {
	return School{
		id:        id,
		name:      strings.TrimSpace(name),
		address:   strings.TrimSpace(address),
		createdAt: createdAt,
	}
}

func (s School) ID() uuid.UUID        { return s.id }
func (s School) Name() string         { return s.name }
func (s School) Address() string      { return s.address }
func (s School) CreatedAt() time.Time { return s.createdAt }
func (s School) IsZero() bool         { return s.id == uuid.Nil && s.name == "" }
