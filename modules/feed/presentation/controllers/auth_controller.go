package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"

	"github.com/iota-uz/campus-feed/modules/feed/domain/aggregates/user"
	"github.com/iota-uz/campus-feed/modules/feed/services"
)

const tokenTTL = 24 * time.Hour

type AuthController struct {
	users    *services.UserService
	secret   []byte
	basePath string
}

func NewAuthController(users *services.UserService, secret string) *AuthController {
	return &AuthController{
		users:    users,
		secret:   []byte(secret),
		basePath: "/auth",
	}
}

func (c *AuthController) Key() string {
	return c.basePath
}

func (c *AuthController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("/register", c.RegisterUser).Methods(http.MethodPost)
	router.HandleFunc("/login", c.Login).Methods(http.MethodPost)
}

func (c *AuthController) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var dto user.RegisterDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "AUTH_INVALID_JSON", "invalid json")
		return
	}

	if errs, ok := dto.Ok(); !ok {
		message := "validation failed"
		for _, field := range []string{"Email", "Password", "Phone"} {
			if v := strings.TrimSpace(errs[field]); v != "" {
				message = field + ": " + v
				break
			}
		}
		writeAPIError(w, r, http.StatusUnprocessableEntity, "AUTH_VALIDATION_FAILED", message)
		return
	}

	created, err := c.users.Register(r.Context(), &dto)
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			writeAPIError(w, r, http.StatusConflict, "AUTH_EMAIL_CONFLICT", "email already registered")
			return
		}
		writeAPIError(w, r, http.StatusInternalServerError, "AUTH_INTERNAL", "internal error")
		return
	}

	token, err := c.issueToken(created)
	if err != nil {
		writeAPIError(w, r, http.StatusInternalServerError, "AUTH_INTERNAL", "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":  userToVM(created),
		"token": token,
	})
}

func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var dto struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "AUTH_INVALID_JSON", "invalid json")
		return
	}

	u, err := c.users.Authenticate(r.Context(), dto.Email, dto.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeAPIError(w, r, http.StatusUnauthorized, "AUTH_INVALID_CREDENTIALS", "invalid credentials")
			return
		}
		writeAPIError(w, r, http.StatusInternalServerError, "AUTH_INTERNAL", "internal error")
		return
	}

	token, err := c.issueToken(u)
	if err != nil {
		writeAPIError(w, r, http.StatusInternalServerError, "AUTH_INTERNAL", "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":  userToVM(u),
		"token": token,
	})
}

func (c *AuthController) issueToken(u user.User) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   u.ID().String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

func userToVM(u user.User) map[string]any {
	return map[string]any{
		"id":    u.ID().String(),
		"email": u.Email(),
		"phone": u.Phone(),
	}
}
