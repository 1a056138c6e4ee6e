package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type User struct {
	id           uuid.UUID
	email        string
	passwordHash string
	phone        string
	createdAt    time.Time
}

// New builds an unsaved user. The email is the natural identity and is
// normalized to lower case; phone may be empty.
func New(email, passwordHash, phone string) User {
	return User{
		email:        NormalizeEmail(email),
		passwordHash: passwordHash,
		phone:        strings.TrimSpace(phone),
	}
}

func Hydrate(id uuid.UUID, email, passwordHash, phone string, createdAt time.Time) User {
	return User{
		id:           id,
		email:        NormalizeEmail(email),
		passwordHash: passwordHash,
		phone:        strings.TrimSpace(phone),
		createdAt:    createdAt,
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u User) ID() uuid.UUID        { return u.id }
func (u User) Email() string        { return u.email }
func (u User) PasswordHash() string { return u.passwordHash }
func (u User) Phone() string        { return u.phone }
func (u User) CreatedAt() time.Time { return u.createdAt }
func (u User) IsZero() bool         { return u.id == uuid.Nil && u.email == "" }
