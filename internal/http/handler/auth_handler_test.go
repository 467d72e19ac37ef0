package handler_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yugmi/sense-api/internal/auth"
	"github.com/yugmi/sense-api/internal/config"
	"github.com/yugmi/sense-api/internal/domain"
	"github.com/yugmi/sense-api/internal/http/handler"
	"github.com/yugmi/sense-api/internal/repository"
	"github.com/yugmi/sense-api/internal/service"
	"github.com/yugmi/sense-api/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func createAuthHandler(t *testing.T) (*handler.AuthHandler, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t)
	tokens := auth.NewTokenService(&config.AuthConfig{
		AccessSecret:  "access-secret-for-tests",
		RefreshSecret: "refresh-secret-for-tests",
		AccessTTL:     15,
		RefreshTTL:    60,
	})
	svc := service.NewAuthService(
		db,
		repository.NewUserRepository(db),
		repository.NewOrganizationRepository(db),
		tokens,
		4,
		zap.NewNop(),
	)
	return handler.NewAuthHandler(svc, zap.NewNop()), db
}

func TestAuthHandler_RegisterAndLogin(t *testing.T) {
	h, db := createAuthHandler(t)

	register := map[string]interface{}{
		"email":     "site.lead@example.com",
		"password":  "secret1",
		"firstName": "Site",
		"lastName":  "Lead",
		"userType":  "individual",
	}

	t.Run("register individual", func(t *testing.T) {
		rr := serve(h.Register, jsonRequest(t, http.MethodPost, "/auth/register", register))
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		var resp domain.AuthResponse
		env := decodeData(t, rr, &resp)
		assert.True(t, env.Success)
		assert.Equal(t, "site.lead@example.com", resp.User.Email)
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		rr := serve(h.Register, jsonRequest(t, http.MethodPost, "/auth/register", register))
		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.False(t, decodeEnvelope(t, rr).Success)
	})

	t.Run("login", func(t *testing.T) {
		rr := serve(h.Login, jsonRequest(t, http.MethodPost, "/auth/login", map[string]string{
			"email":    "site.lead@example.com",
			"password": "secret1",
		}))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var resp domain.AuthResponse
		decodeData(t, rr, &resp)
		assert.NotEmpty(t, resp.AccessToken)

		t.Run("refresh", func(t *testing.T) {
			rr := serve(h.Refresh, jsonRequest(t, http.MethodPost, "/auth/refresh", map[string]string{
				"refreshToken": resp.RefreshToken,
			}))
			assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		})
	})

	t.Run("wrong password", func(t *testing.T) {
		rr := serve(h.Login, jsonRequest(t, http.MethodPost, "/auth/login", map[string]string{
			"email":    "site.lead@example.com",
			"password": "wrong-password",
		}))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "Invalid credentials", decodeEnvelope(t, rr).Message)
	})

	t.Run("profile", func(t *testing.T) {
		user := testutil.CreateIndividual(t, db)
		req := asUser(t, db, httptest.NewRequest(http.MethodGet, "/auth/profile", nil), user)

		rr := serve(h.Profile, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var dto domain.UserDTO
		decodeData(t, rr, &dto)
		assert.Equal(t, user.ID, dto.ID)
	})

	t.Run("profile requires authentication", func(t *testing.T) {
		rr := serve(h.Profile, httptest.NewRequest(http.MethodGet, "/auth/profile", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestAuthHandler_Validation(t *testing.T) {
	h, _ := createAuthHandler(t)

	t.Run("field errors", func(t *testing.T) {
		rr := serve(h.Register, jsonRequest(t, http.MethodPost, "/auth/register", map[string]string{
			"email":     "not-an-email",
			"password":  "secret1",
			"firstName": "Site",
			"lastName":  "Lead",
			"userType":  "individual",
		}))
		require.Equal(t, http.StatusBadRequest, rr.Code)

		env := decodeEnvelope(t, rr)
		assert.False(t, env.Success)
		assert.Equal(t, "Validation failed", env.Message)
		require.Len(t, env.Errors, 1)
		assert.Equal(t, "email", env.Errors[0].Field)
	})

	t.Run("organization data required", func(t *testing.T) {
		rr := serve(h.Register, jsonRequest(t, http.MethodPost, "/auth/register", map[string]string{
			"email":     "owner@example.com",
			"password":  "secret1",
			"firstName": "Org",
			"lastName":  "Owner",
			"userType":  "organization",
		}))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":`))
		rr := serve(h.Login, req)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, decodeEnvelope(t, rr).Message, "malformed JSON")
	})
}
