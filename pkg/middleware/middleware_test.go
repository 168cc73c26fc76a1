package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workspace-client/pkg/logger"
	"workspace-client/pkg/models"
	"workspace-client/pkg/utils"
)

func TestAuthMiddleware(t *testing.T) {
	jwtSvc := utils.NewJWTService("secret")
	tok, _, err := jwtSvc.GenerateAccessToken(&models.User{ID: 3, Username: "alice"})
	require.NoError(t, err)

	var seen *models.User
	h := AuthMiddleware(jwtSvc, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, err = RequireUser(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer abc", http.StatusUnauthorized},
		{"valid", "Bearer " + tok, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/orgs", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
	require.NotNil(t, seen)
	assert.Equal(t, "alice", seen.Username)

	_, err = RequireUser(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.Error(t, err)
}

func TestContentTypeJSON(t *testing.T) {
	h := ContentTypeJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name, ctype, body string
		code              int
	}{
		{"json", "application/json; charset=utf-8", `{}`, http.StatusNoContent},
		{"bodyless", "", "", http.StatusNoContent},
		{"form", "application/x-www-form-urlencoded", "a=b", http.StatusBadRequest},
		{"body without type", "", `{}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/invites/accept", strings.NewReader(tt.body))
			if tt.ctype != "" {
				req.Header.Set("Content-Type", tt.ctype)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(logger.Nop(), false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestNormalize(t *testing.T) {
	var gotPath, gotHost, gotScheme string
	h := Normalize(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotHost, gotScheme = r.URL.Path, r.Host, r.URL.Scheme
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.URL.Path = "/api/health  "
	req.Header.Set("X-Forwarded-Host", "workspace.example.com")
	req.Header.Set("X-Forwarded-Proto", "https")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "/api/health", gotPath)
	assert.Equal(t, "workspace.example.com", gotHost)
	assert.Equal(t, "https", gotScheme)
}
