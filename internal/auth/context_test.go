package auth_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yugmi/sense-api/internal/auth"
	"github.com/yugmi/sense-api/internal/domain"
	"gorm.io/datatypes"
)

func orgUser(perms domain.Permissions, scope domain.RoleScope) *auth.UserContext {
	orgID := uuid.New()
	role := &domain.Role{
		Name:           "Field Engineer",
		OrganizationID: orgID,
		Permissions:    datatypes.NewJSONType(perms),
		Scope:          datatypes.NewJSONType(scope),
	}
	role.ID = uuid.New()
	user := &domain.User{
		Email:          "field@acme.com",
		UserType:       domain.UserTypeOrganization,
		OrganizationID: &orgID,
		RoleID:         &role.ID,
		Role:           role,
		State:          domain.StateActive,
	}
	user.ID = uuid.New()
	return auth.NewUserContext(user)
}

func individual() *auth.UserContext {
	user := &domain.User{Email: "solo@example.com", UserType: domain.UserTypeIndividual, State: domain.StateActive}
	user.ID = uuid.New()
	return auth.NewUserContext(user)
}

func TestUserContext_Can(t *testing.T) {
	t.Run("individual holds every capability", func(t *testing.T) {
		u := individual()
		for _, c := range domain.AllCapabilities {
			assert.True(t, u.Can(c), string(c))
		}
	})

	t.Run("organization user follows role permissions", func(t *testing.T) {
		u := orgUser(domain.DefaultPermissions(), domain.FullScope())
		defaults := domain.DefaultPermissions()
		for _, c := range domain.AllCapabilities {
			assert.Equal(t, defaults.Allows(c), u.Can(c), string(c))
		}
	})

	t.Run("organization user without role is denied", func(t *testing.T) {
		u := orgUser(domain.FullPermissions(), domain.FullScope())
		u.Role = nil
		assert.False(t, u.Can(domain.CanViewProject))
	})

	t.Run("unknown user type is denied", func(t *testing.T) {
		u := individual()
		u.User.UserType = domain.UserType("robot")
		assert.False(t, u.Can(domain.CanViewProject))
	})
}

func TestUserContext_IsOrgAdmin(t *testing.T) {
	assert.True(t, orgUser(domain.FullPermissions(), domain.FullScope()).IsOrgAdmin())
	assert.False(t, orgUser(domain.DefaultPermissions(), domain.FullScope()).IsOrgAdmin())
	assert.False(t, individual().IsOrgAdmin())
}

func TestUserContext_Scopes(t *testing.T) {
	siteID := uuid.New()

	t.Run("individual is unrestricted", func(t *testing.T) {
		u := individual()
		assert.True(t, u.SiteScope().IsUnrestricted())
		assert.True(t, u.ProjectScope().IsUnrestricted())
		assert.Nil(t, u.OrganizationID())
	})

	t.Run("empty role scope yields nothing", func(t *testing.T) {
		u := orgUser(domain.DefaultPermissions(), domain.NoScope())
		assert.True(t, u.SiteScope().IsEmpty())
		assert.True(t, u.ProjectScope().IsEmpty())
	})

	t.Run("restricted role scope", func(t *testing.T) {
		u := orgUser(domain.DefaultPermissions(), domain.RoleScope{
			Projects: domain.Unrestricted(),
			Sites:    domain.Restricted(siteID),
		})
		assert.True(t, u.SiteScope().Allows(siteID))
		assert.False(t, u.SiteScope().Allows(uuid.New()))
		assert.True(t, u.ProjectScope().IsUnrestricted())
		require.NotNil(t, u.OrganizationID())
	})

	t.Run("organization user without role has no scope", func(t *testing.T) {
		u := orgUser(domain.FullPermissions(), domain.FullScope())
		u.Role = nil
		assert.True(t, u.SiteScope().IsEmpty())
	})
}

func TestFromContext(t *testing.T) {
	_, ok := auth.FromContext(context.Background())
	assert.False(t, ok)

	u := individual()
	got, ok := auth.FromContext(auth.WithUserContext(context.Background(), u))
	require.True(t, ok)
	assert.Same(t, u, got)

	assert.Panics(t, func() { auth.MustFromContext(context.Background()) })
}
