package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/expense-ledger/internal/apperror"
	"github.com/sakif/expense-ledger/internal/auth"
	"github.com/sakif/expense-ledger/internal/model"
)

func TestWriteError_Mapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantField  string
	}{
		{"validation", apperror.ValidationFailed("title", "title is required"), http.StatusBadRequest, "validation_error", "title"},
		{"unauthorized", apperror.Unauthorized("invalid username or password"), http.StatusUnauthorized, "unauthorized", ""},
		{"forbidden", apperror.Forbidden("global categories cannot be modified"), http.StatusForbidden, "forbidden", ""},
		{"not found", apperror.NotFound("expense", "abc"), http.StatusNotFound, "not_found", ""},
		{"wrapped not found", fmt.Errorf("service/expense: %w", apperror.NotFound("expense", "abc")), http.StatusNotFound, "not_found", ""},
		{"conflict", apperror.Conflict("category", "Food"), http.StatusConflict, "conflict", ""},
		{"transient", apperror.Transient("transaction", errors.New("database is locked")), http.StatusServiceUnavailable, "unavailable", ""},
		{"unknown", errors.New("sqlite: no such table: expenses"), http.StatusInternalServerError, "internal_error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.Equal(t, tt.wantType, body.Error)
			assert.Equal(t, tt.wantField, body.Field)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestWriteError_DoesNotLeakInternals(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, errors.New("sqlite: no such table: expenses"))

	assert.NotContains(t, rr.Body.String(), "sqlite")
}

func TestWriteError_TransientSetsRetryAfter(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, apperror.Transient("transaction", errors.New("database is locked")))

	assert.Equal(t, "1", rr.Header().Get("Retry-After"))
	assert.NotContains(t, rr.Body.String(), "database is locked")
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantOK      bool
		wantMessage string
	}{
		{"valid", `{"name":"Food"}`, true, ""},
		{"empty", ``, false, "request body is required"},
		{"malformed", `{"name":`, false, "request body must be valid JSON"},
		{"too large", `{"name":"` + strings.Repeat("x", maxBodyBytes) + `"}`, false, "request body is too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()

			var dst categoryRequest
			ok := decodeJSON(rr, req, &dst)

			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, "Food", dst.Name)
				return
			}
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.Equal(t, tt.wantMessage, body.Message)
		})
	}
}

func TestPageParams(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=2&limit=10", nil)
	page, limit, err := pageParams(req)
	require.NoError(t, err)
	assert.Equal(t, 2, page)
	assert.Equal(t, 10, limit)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	page, limit, err = pageParams(req)
	require.NoError(t, err)
	assert.Zero(t, page)
	assert.Zero(t, limit)

	req = httptest.NewRequest(http.MethodGet, "/?limit=ten", nil)
	_, _, err = pageParams(req)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestIdentity(t *testing.T) {
	rr := httptest.NewRecorder()
	_, ok := identity(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: "u1", Role: model.RoleUser}))
	got, ok := identity(httptest.NewRecorder(), req)
	assert.True(t, ok)
	assert.Equal(t, "u1", got.UserID)
}

func TestCallerID(t *testing.T) {
	rr := httptest.NewRecorder()
	_, ok := callerID(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: "u1", Role: model.RoleUser}))
	userID, ok := callerID(httptest.NewRecorder(), req)
	assert.True(t, ok)
	assert.Equal(t, "u1", userID)
}
