package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/playperu/dailygeo/internal/auth"
	"github.com/playperu/dailygeo/internal/store"
)

type UserStore interface {
	CreateUser(ctx context.Context, u store.User) error
	UserByUsername(ctx context.Context, username string) (store.User, error)
	UserByID(ctx context.Context, id string) (store.User, error)
}

type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

type TokenResponse struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

func handleRegister(logger zerolog.Logger, users UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CredentialsRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Username = auth.NormalizeUsername(req.Username)
		if err := auth.ValidateCredentials(req.Username, req.Password); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			internalError(w, r, logger, err)
			return
		}
		u := store.User{
			ID:           uuid.NewString(),
			Username:     req.Username,
			PasswordHash: hash,
			CreatedAt:    time.Now().UTC(),
		}
		err = users.CreateUser(r.Context(), u)
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "username already taken")
			return
		}
		if err != nil {
			internalError(w, r, logger, err)
			return
		}

		logger.Info().Str("user_id", u.ID).Str("username", u.Username).Msg("user registered")
		writeJSON(w, http.StatusCreated, UserResponse{ID: u.ID, Username: u.Username, CreatedAt: u.CreatedAt})
	}
}

// rejectPassword runs for unknown usernames so they cost the same bcrypt
// work as a wrong password.
var rejectPassword = auth.RejectPassword

func handleLogin(logger zerolog.Logger, users UserStore, tokens *auth.Tokens) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CredentialsRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		u, err := users.UserByUsername(r.Context(), auth.NormalizeUsername(req.Username))
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			internalError(w, r, logger, err)
			return
		}
		if err != nil {
			rejectPassword(req.Password)
			writeError(w, http.StatusUnauthorized, "invalid username or password")
			return
		}
		if !auth.CheckPassword(u.PasswordHash, req.Password) {
			writeError(w, http.StatusUnauthorized, "invalid username or password")
			return
		}

		token, exp, err := tokens.Issue(u.ID, u.Username)
		if err != nil {
			internalError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer", ExpiresAt: exp})
	}
}

func handleMe(logger zerolog.Logger, users UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := users.UserByID(r.Context(), userFrom(r))
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		if err != nil {
			internalError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, UserResponse{ID: u.ID, Username: u.Username, CreatedAt: u.CreatedAt})
	}
}
