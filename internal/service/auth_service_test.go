package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yugmi/sense-api/internal/auth"
	"github.com/yugmi/sense-api/internal/config"
	"github.com/yugmi/sense-api/internal/domain"
	"github.com/yugmi/sense-api/internal/repository"
	"github.com/yugmi/sense-api/internal/service"
	"github.com/yugmi/sense-api/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupAuthService(t *testing.T) (*service.AuthService, *gorm.DB, *auth.TokenService) {
	t.Helper()
	db := testutil.NewTestDB(t)
	tokens := auth.NewTokenService(&config.AuthConfig{
		AccessSecret:  "access-secret-for-tests",
		RefreshSecret: "refresh-secret-for-tests",
		AccessTTL:     15,
		RefreshTTL:    60 * 24 * 7,
	})
	svc := service.NewAuthService(
		db,
		repository.NewUserRepository(db),
		repository.NewOrganizationRepository(db),
		tokens,
		4,
		zap.NewNop(),
	)
	return svc, db, tokens
}

func TestAuthService_RegisterIndividual(t *testing.T) {
	svc, _, tokens := setupAuthService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, &domain.RegisterRequest{
		Email:     "  Jane.Doe@Example.com ",
		Password:  "secret1",
		FirstName: "Jane",
		LastName:  "Doe",
		UserType:  domain.UserTypeIndividual,
	})
	require.NoError(t, err)

	assert.Equal(t, "jane.doe@example.com", resp.User.Email)
	assert.Equal(t, domain.UserTypeIndividual, resp.User.UserType)
	assert.Nil(t, resp.Organization)
	assert.Equal(t, int64(15*60), resp.ExpiresIn)

	userID, err := tokens.ParseAccess(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, userID)

	_, err = svc.Register(ctx, &domain.RegisterRequest{
		Email:     "jane.doe@example.com",
		Password:  "secret1",
		FirstName: "Jane",
		LastName:  "Again",
		UserType:  domain.UserTypeIndividual,
	})
	assert.ErrorIs(t, err, service.ErrEmailTaken)
}

func TestAuthService_RegisterOrganization(t *testing.T) {
	svc, db, _ := setupAuthService(t)
	ctx := context.Background()

	req := &domain.RegisterRequest{
		Email:     "founder@acme.test",
		Password:  "secret1",
		FirstName: "Ada",
		LastName:  "Builder",
		UserType:  domain.UserTypeOrganization,
		OrganizationData: &domain.OrganizationInput{
			Name:  "Acme Construction",
			Email: "office@acme.test",
		},
	}
	resp, err := svc.Register(ctx, req)
	require.NoError(t, err)

	require.NotNil(t, resp.Organization)
	assert.Equal(t, "Acme Construction", resp.Organization.Name)
	require.NotNil(t, resp.User.Role)
	assert.Equal(t, service.AdminRoleName, resp.User.Role.Name)

	var stored domain.User
	require.NoError(t, db.Preload("Role").First(&stored, "id = ?", resp.User.ID).Error)
	userCtx := auth.NewUserContext(&stored)
	assert.True(t, userCtx.IsOrgAdmin())
	assert.True(t, stored.Role.Scope.Data().Sites.IsUnrestricted())

	t.Run("organization email already used", func(t *testing.T) {
		again := *req
		again.Email = "second@acme.test"
		_, err := svc.Register(ctx, &again)
		assert.ErrorIs(t, err, service.ErrOrganizationEmailTaken)

		var count int64
		require.NoError(t, db.Model(&domain.User{}).Where("email = ?", "second@acme.test").Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("organization data required", func(t *testing.T) {
		missing := *req
		missing.Email = "third@acme.test"
		missing.OrganizationData = nil
		_, err := svc.Register(ctx, &missing)
		assert.ErrorIs(t, err, service.ErrOrganizationDataRequired)
	})
}

func TestAuthService_Login(t *testing.T) {
	svc, db, _ := setupAuthService(t)
	ctx := context.Background()
	user := testutil.CreateIndividual(t, db)

	resp, err := svc.Login(ctx, &domain.LoginRequest{Email: user.Email, Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, resp.User.ID)
	assert.NotEmpty(t, resp.RefreshToken)

	var stored domain.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	assert.NotNil(t, stored.LastLoginAt)

	_, err = svc.Login(ctx, &domain.LoginRequest{Email: user.Email, Password: "wrong-password"})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, err = svc.Login(ctx, &domain.LoginRequest{Email: "nobody@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	require.NoError(t, db.Model(&domain.User{}).Where("id = ?", user.ID).Update("state", domain.StateRetired).Error)
	_, err = svc.Login(ctx, &domain.LoginRequest{Email: user.Email, Password: "secret1"})
	assert.ErrorIs(t, err, service.ErrAccountDeactivated)
}

func TestAuthService_Refresh(t *testing.T) {
	svc, db, _ := setupAuthService(t)
	ctx := context.Background()
	user := testutil.CreateIndividual(t, db)

	login, err := svc.Login(ctx, &domain.LoginRequest{Email: user.Email, Password: "secret1"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, refreshed.User.ID)

	_, err = svc.Refresh(ctx, login.AccessToken)
	assert.ErrorIs(t, err, service.ErrInvalidRefreshToken)

	require.NoError(t, db.Model(&domain.User{}).Where("id = ?", user.ID).Update("state", domain.StateRetired).Error)
	_, err = svc.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, service.ErrInvalidRefreshToken)
}
