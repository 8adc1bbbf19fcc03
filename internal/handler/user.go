package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/expense-ledger/internal/service"
)

// UserHandler serves registration and profile routes.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: logger,
	}
}

// HandleRegister creates an account. Self-registration always yields the
// User role; admins are created with cmd/adduser.
//
// HTTP: POST /api/users
// REQUEST BODY: {"username", "password", "nickname", "email"}
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if !decodeJSON(w, r, &in) {
		return
	}

	user, err := h.users.Register(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// HandleMe returns the caller's own profile.
//
// HTTP: GET /api/users/me
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	user, err := h.users.Get(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// HandleGet returns a user by id. Admins may read anyone, other callers
// only themselves.
//
// HTTP: GET /api/users/{id}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	user, err := h.users.GetForViewer(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// HandleUpdateMe changes the caller's nickname, email or password. Blank
// fields are left as they are.
//
// HTTP: PUT /api/users/me
// REQUEST BODY: {"nickname", "email", "password"}
func (h *UserHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var in service.ProfileInput
	if !decodeJSON(w, r, &in) {
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), userID, in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
