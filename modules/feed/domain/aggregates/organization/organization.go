package organization

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Organization is a student organization hosted by a school. AdminEmail
// points at the user who administers it and may be empty.
type Organization struct {
	id         uuid.UUID
	name       string
	schoolID   uuid.UUID
	adminEmail string
	createdAt  time.Time
}

func New(name string, schoolID uuid.UUID, adminEmail string) Organization {
	return Organization{
		name:       strings.TrimSpace(name),
		schoolID:   schoolID,
		adminEmail: strings.ToLower(strings.TrimSpace(adminEmail)),
	}
}

func Hydrate(id uuid.UUID, name string, schoolID uuid.UUID, adminEmail string, createdAt time.Time) Organization {
	return Organization{
		id:         id,
		name:       strings.TrimSpace(name),
		schoolID:   schoolID,
		adminEmail: strings.ToLower(strings.TrimSpace(adminEmail)),
		createdAt:  createdAt,
	}
}

func (o Organization) ID() uuid.UUID        { return o.id }
func (o Organization) Name() string         { return o.name }
func (o Organization) SchoolID() uuid.UUID  { return o.schoolID }
func (o Organization) AdminEmail() string   { return o.adminEmail }
func (o Organization) CreatedAt() time.Time { return o.createdAt }
func (o Organization) IsZero() bool         { return o.id == uuid.Nil && o.name == "" }
