package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pietjesbak/puppies/internal/auth"
	"github.com/pietjesbak/puppies/internal/database"
	"github.com/pietjesbak/puppies/internal/models"
)

// resolveToken validates a session token and loads the account behind it.
func resolveToken(ctx context.Context, token string) (uuid.UUID, string, error) {
	sub, err := auth.VerifyJWT(token)
	if err != nil {
		return uuid.Nil, "", err
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("invalid user id in token: %w", err)
	}
	if database.DB == nil {
		// Without Postgres the signed token is the whole identity.
		return userID, "Guest", nil
	}
	u, err := database.GetUserByID(ctx, userID)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("user lookup: %w", err)
	}
	return u.ID, u.Username, nil
}

// createGuest mints an ephemeral account and hands its token back as a
// cookie, so the guest keeps their identity across reconnects.
func createGuest(w http.ResponseWriter, r *http.Request) (uuid.UUID, string, error) {
	guest := models.User{
		Username:    "Guest",
		IsEphemeral: true,
	}
	if database.DB == nil {
		guest.ID = uuid.New()
	} else if err := database.CreateUser(r.Context(), &guest); err != nil {
		return uuid.Nil, "", fmt.Errorf("create guest user: %w", err)
	}
	token, err := auth.CreateJWT(guest.ID.String())
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("create guest token: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		HttpOnly: true,
		Path:     "/",
	})
	return guest.ID, guest.Username, nil
}

// CreateUserHandler registers a permanent account.
func CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	if database.DB == nil {
		http.Error(w, "accounts unavailable", http.StatusServiceUnavailable)
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	user := models.User{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
	}
	if err := database.CreateUser(r.Context(), &user); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			http.Error(w, "email already exists", http.StatusConflict)
			return
		}
		http.Error(w, "error creating user", http.StatusInternalServerError)
		return
	}

	user.Password = ""
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// LoginHandler checks credentials and returns a session token, both in the
// body and as an auth_token cookie.
func LoginHandler(w http.ResponseWriter, r *http.Request) {
	if database.DB == nil {
		http.Error(w, "accounts unavailable", http.StatusServiceUnavailable)
		return
	}
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}

	token, err := database.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		HttpOnly: true,
		Path:     "/",
		MaxAge:   int(auth.TokenTTL.Seconds()),
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(loginResponse{Token: token})
}

type claimEphemeralRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

// ClaimEphemeralHandler upgrades a guest account to a permanent one, keeping
// its id and game history.
func ClaimEphemeralHandler(w http.ResponseWriter, r *http.Request) {
	if database.DB == nil {
		http.Error(w, "accounts unavailable", http.StatusServiceUnavailable)
		return
	}
	token := extractCookieToken(r.Header.Get("Cookie"), "auth_token")
	userID, _, err := resolveToken(r.Context(), token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusForbidden)
		return
	}

	u, err := database.GetUserByID(r.Context(), userID)
	if err != nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	if !u.IsEphemeral {
		http.Error(w, "user is not ephemeral", http.StatusBadRequest)
		return
	}

	var req claimEphemeralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid claim payload", http.StatusBadRequest)
		return
	}

	u.Email = req.Email
	u.Password = req.Password
	if req.Username != "" {
		u.Username = req.Username
	}

	if err := database.UpdateUserCredentials(r.Context(), u); err != nil {
		http.Error(w, "failed to claim ephemeral user", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ephemeral user claimed successfully")
}
