package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/expense-ledger/internal/service"
)

// AuthHandler exposes login, refresh-token rotation and logout.
//
// HANDLER RESPONSIBILITIES:
//   - HandleLogin   → verify username + password, return access and refresh tokens
//   - HandleRefresh → trade a refresh token for a new pair (the old one is burned)
//   - HandleLogout  → revoke a refresh token
//
// None of these routes require an access token; the refresh token in the
// body is the credential.
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(auth *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		logger: logger,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// HandleLogin authenticates a user.
//
// HTTP: POST /api/auth/login
// REQUEST BODY: {"username": "alice", "password": "pw1"}
// RESPONSE: {"userId", "username", "nickname", "email", "accessToken", "refreshToken"}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleRefresh rotates a refresh token.
//
// HTTP: POST /api/auth/refresh
// REQUEST BODY: {"refreshToken": "..."}
// RESPONSE: {"accessToken": "...", "refreshToken": "..."}
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pair, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

// HandleLogout revokes the given refresh token. The access token stays valid
// until it expires; clients are expected to drop it.
//
// HTTP: POST /api/auth/logout
// REQUEST BODY: {"refreshToken": "..."}
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.auth.Logout(r.Context(), req.RefreshToken); err != nil {
		h.logger.Error("logout failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
