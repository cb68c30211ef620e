package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"studytrack/internal/apperr"
	"studytrack/internal/models"
	"studytrack/internal/store"
)

type UserStore interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (models.User, error)
	UserByEmail(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id int) (models.User, error)
	UpdatePreferences(ctx context.Context, userID int, p store.PreferencesUpdate) (models.User, error)
}

type AuthHandler struct {
	users     UserStore
	jwtSecret []byte
	tokenTTL  time.Duration
	log       *zap.Logger
}

func NewAuthHandler(users UserStore, jwtSecret []byte, tokenTTL time.Duration, log *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, jwtSecret: jwtSecret, tokenTTL: tokenTTL, log: log}
}

const maxPasswordBytes = 72

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	User  UserDTO `json:"user"`
	Token string  `json:"token"`
}

// Register godoc
// @Summary Create an account
// @Tags auth
// @Accept json
// @Produce json
// @Success 201 {object} authResponse
// @Failure 400 {object} errorBody
// @Failure 409 {object} errorBody "username or email taken"
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if err := check(&req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	// bcrypt's limit counts bytes, the max tag counts runes.
	if len(req.Password) > maxPasswordBytes {
		writeError(w, r, h.log, apperr.Validation("password must be at most %d bytes", maxPasswordBytes))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	user, err := h.users.CreateUser(r.Context(), req.Username, req.Email, string(hashed))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	token, err := h.issueJWT(user)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	h.log.Info("user registered", zap.Int("user_id", user.ID))
	writeJSON(w, http.StatusCreated, authResponse{User: ToUserDTO(user), Token: token})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))

	user, err := h.users.UserByEmail(r.Context(), email)
	if apperr.IsNotFound(err) {
		writeError(w, r, h.log, apperr.Unauthorized("invalid credentials"))
		return
	}
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, r, h.log, apperr.Unauthorized("invalid credentials"))
		return
	}
	token, err := h.issueJWT(user)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{User: ToUserDTO(user), Token: token})
}

func (h *AuthHandler) issueJWT(u models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      u.ID,
		"username": u.Username,
		"exp":      now.Add(h.tokenTTL).Unix(),
		"iat":      now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.jwtSecret)
}
