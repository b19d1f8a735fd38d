package server

import (
	"net/http"

	"github.com/tallyhour/tallyhour/internal/auth"
	"github.com/tallyhour/tallyhour/internal/middleware"
	"github.com/tallyhour/tallyhour/internal/models"
)

// AuthHandler owns the register/login/logout endpoints.
type AuthHandler struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	tokens        *auth.TokenStore
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(authenticator auth.Authenticator, jwtManager *auth.JWTManager, tokens *auth.TokenStore) *AuthHandler {
	return &AuthHandler{authenticator: authenticator, jwtManager: jwtManager, tokens: tokens}
}

// Register attaches the public auth routes to the mux.
func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/register", h.handleRegister)
	mux.HandleFunc("POST /auth/login", h.handleLogin)
}

// RegisterProtected attaches routes that require authentication.
func (h *AuthHandler) RegisterProtected(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/logout", h.handleLogout)
}

type registerRequest struct {
	Email       string  `json:"email"`
	DisplayName string  `json:"display_name"`
	HourlyRate  float64 `json:"hourly_rate"`
	Password    string  `json:"password"`
}

type sessionResponse struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Token       string `json:"token"`
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.authenticator.Register(r.Context(), req.Email, req.DisplayName, req.HourlyRate, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	token, err := h.issue(r, user.ID, user.Email)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, "user registered", sessionResponse{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Token:       token,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.authenticator.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	token, err := h.issue(r, user.ID, user.Email)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, "logged in", sessionResponse{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Token:       token,
	})
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	token := middleware.GetToken(r.Context())
	if err := h.tokens.Revoke(r.Context(), userID, token); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "logged out", nil)
}

func (h *AuthHandler) issue(r *http.Request, userID, email string) (string, error) {
	token, err := h.jwtManager.Generate(&models.User{ID: userID, Email: email})
	if err != nil {
		return "", err
	}
	if err := h.tokens.Save(r.Context(), userID, token, h.jwtManager.Duration()); err != nil {
		return "", err
	}
	return token, nil
}
