package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yugmi/sense-api/internal/auth"
	"github.com/yugmi/sense-api/internal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubLoader struct {
	users map[uuid.UUID]*domain.User
}

func (s *stubLoader) GetWithRelations(_ context.Context, id uuid.UUID) (*domain.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func serve(t *testing.T, h http.Handler, token string) (*httptest.ResponseRecorder, domain.APIResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var body domain.APIResponse
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestMiddleware_Authenticate(t *testing.T) {
	tokens := newTokenService()
	active := individual().User
	retired := individual().User
	retired.State = domain.StateRetired
	loader := &stubLoader{users: map[uuid.UUID]*domain.User{active.ID: active, retired.ID: retired}}
	mw := auth.NewMiddleware(tokens, loader, zap.NewNop())

	var captured *auth.UserContext
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = auth.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("valid token", func(t *testing.T) {
		pair, err := tokens.IssuePair(active.ID)
		require.NoError(t, err)
		w, _ := serve(t, handler, pair.AccessToken)
		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, captured)
		assert.Equal(t, active.ID, captured.UserID())
	})

	t.Run("missing header", func(t *testing.T) {
		w, body := serve(t, handler, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.False(t, body.Success)
	})

	t.Run("invalid token", func(t *testing.T) {
		w, _ := serve(t, handler, "garbage")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		pair, err := tokens.IssuePair(active.ID)
		require.NoError(t, err)
		w, _ := serve(t, handler, pair.RefreshToken)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("retired user", func(t *testing.T) {
		pair, err := tokens.IssuePair(retired.ID)
		require.NoError(t, err)
		w, body := serve(t, handler, pair.AccessToken)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid or inactive credential", body.Message)
	})

	t.Run("unknown user", func(t *testing.T) {
		pair, err := tokens.IssuePair(uuid.New())
		require.NoError(t, err)
		w, _ := serve(t, handler, pair.AccessToken)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestMiddleware_RequirePermission(t *testing.T) {
	mw := auth.NewMiddleware(newTokenService(), &stubLoader{}, zap.NewNop())
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	tests := []struct {
		name     string
		user     *auth.UserContext
		cap      domain.Capability
		expected int
	}{
		{name: "individual allowed", user: individual(), cap: domain.CanDeleteProject, expected: http.StatusOK},
		{name: "role grants", user: orgUser(domain.DefaultPermissions(), domain.FullScope()), cap: domain.CanCapture, expected: http.StatusOK},
		{name: "role denies", user: orgUser(domain.DefaultPermissions(), domain.FullScope()), cap: domain.CanDeleteProject, expected: http.StatusForbidden},
		{name: "no user context", user: nil, cap: domain.CanCapture, expected: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/api/v1/projects/1", nil)
			if tt.user != nil {
				req = req.WithContext(auth.WithUserContext(req.Context(), tt.user))
			}
			w := httptest.NewRecorder()
			mw.RequirePermission(tt.cap)(ok).ServeHTTP(w, req)
			assert.Equal(t, tt.expected, w.Code)
		})
	}
}

func TestMiddleware_RequireOrgAdmin(t *testing.T) {
	mw := auth.NewMiddleware(newTokenService(), &stubLoader{}, zap.NewNop())
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	for name, tc := range map[string]struct {
		user     *auth.UserContext
		expected int
	}{
		"admin":      {user: orgUser(domain.FullPermissions(), domain.FullScope()), expected: http.StatusOK},
		"member":     {user: orgUser(domain.DefaultPermissions(), domain.FullScope()), expected: http.StatusForbidden},
		"individual": {user: individual(), expected: http.StatusForbidden},
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/sites/assign-user", nil)
			req = req.WithContext(auth.WithUserContext(req.Context(), tc.user))
			w := httptest.NewRecorder()
			mw.RequireOrgAdmin(ok).ServeHTTP(w, req)
			assert.Equal(t, tc.expected, w.Code)
		})
	}
}
