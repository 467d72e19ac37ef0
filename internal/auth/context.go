package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/yugmi/sense-api/internal/domain"
)

// UserContext holds the authenticated caller together with its organization and role
type UserContext struct {
	User         *domain.User
	Organization *domain.Organization
	Role         *domain.Role
}

type contextKey string

const userContextKey contextKey = "userContext"

// NewUserContext builds a UserContext from a user loaded with Organization and Role
func NewUserContext(user *domain.User) *UserContext {
	return &UserContext{
		User:         user,
		Organization: user.Organization,
		Role:         user.Role,
	}
}

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok
}

// MustFromContext extracts user context or panics
func MustFromContext(ctx context.Context) *UserContext {
	user, ok := FromContext(ctx)
	if !ok {
		panic("user context not found in context")
	}
	return user
}

func (u *UserContext) UserID() uuid.UUID {
	return u.User.ID
}

// IsIndividual reports whether the caller owns its data outright
func (u *UserContext) IsIndividual() bool {
	return u.User.UserType == domain.UserTypeIndividual
}

// OrganizationID returns the caller's organization, nil for individuals
func (u *UserContext) OrganizationID() *uuid.UUID {
	if u.User.UserType != domain.UserTypeOrganization {
		return nil
	}
	return u.User.OrganizationID
}

// Can decides whether the caller holds a capability. Individuals hold every
// capability; organization users hold what their role grants.
func (u *UserContext) Can(c domain.Capability) bool {
	switch u.User.UserType {
	case domain.UserTypeIndividual:
		return true
	case domain.UserTypeOrganization:
		return u.Role != nil && u.Role.Permissions.Data().Allows(c)
	}
	return false
}

// IsOrgAdmin requires an organization user whose role can manage users
func (u *UserContext) IsOrgAdmin() bool {
	return u.User.UserType == domain.UserTypeOrganization &&
		u.Role != nil &&
		u.Role.Permissions.Data().CanManageUsers
}

// SiteScope returns the sites the caller may act upon
func (u *UserContext) SiteScope() domain.IDScope {
	return u.scope().Sites
}

// ProjectScope returns the projects the caller may act upon
func (u *UserContext) ProjectScope() domain.IDScope {
	return u.scope().Projects
}

func (u *UserContext) scope() domain.RoleScope {
	if u.IsIndividual() {
		return domain.FullScope()
	}
	if u.User.UserType == domain.UserTypeOrganization && u.Role != nil {
		return u.Role.Scope.Data()
	}
	return domain.NoScope()
}
