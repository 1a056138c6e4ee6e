package services

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/iota-uz/campus-feed/modules/feed/domain/aggregates/user"
)

// ErrInvalidCredentials covers both an unknown email and a wrong
// password so callers cannot probe which emails are registered.
var ErrInvalidCredentials = errors.New("invalid credentials")

type UserService struct {
	repo user.Repository
}

func NewUserService(repo user.Repository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) Register(ctx context.Context, dto *user.RegisterDTO) (user.User, error) {
	if dto == nil {
		return user.User{}, errors.New("missing dto")
	}
	dto.Normalize()

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return user.User{}, errors.Wrap(err, "hash password")
	}
	return s.repo.Create(ctx, user.New(dto.Email, string(hash), dto.Phone))
}

func (s *UserService) Authenticate(ctx context.Context, email, password string) (user.User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, ErrInvalidCredentials
		}
		return user.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash()), []byte(password)) != nil {
		return user.User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return s.repo.GetByEmail(ctx, email)
}
