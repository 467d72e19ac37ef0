package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/yugmi/sense-api/internal/domain"
	"github.com/yugmi/sense-api/internal/mapper"
	"github.com/yugmi/sense-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RoleService handles role management inside the caller's organization
type RoleService struct {
	roleRepo *repository.RoleRepository
	logger   *zap.Logger
}

// NewRoleService creates a new role service
func NewRoleService(roleRepo *repository.RoleRepository, logger *zap.Logger) *RoleService {
	return &RoleService{
		roleRepo: roleRepo,
		logger:   logger,
	}
}

// List returns every role of the caller's organization
func (s *RoleService) List(ctx context.Context) ([]domain.RoleDTO, error) {
	userCtx, err := authorizeOrgAdmin(ctx)
	if err != nil {
		return nil, err
	}

	roles, err := s.roleRepo.ListByOrganization(ctx, *userCtx.OrganizationID())
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	dtos := make([]domain.RoleDTO, len(roles))
	for i := range roles {
		dtos[i] = mapper.ToRoleDTO(&roles[i])
	}
	return dtos, nil
}

// Create adds a role to the caller's organization. Missing permissions fall back to
// the default set and a missing scope grants nothing.
func (s *RoleService) Create(ctx context.Context, req *domain.CreateRoleRequest) (*domain.RoleDTO, error) {
	userCtx, err := authorizeOrgAdmin(ctx)
	if err != nil {
		return nil, err
	}

	permissions := domain.DefaultPermissions()
	if req.Permissions != nil {
		permissions = *req.Permissions
	}
	scope := domain.NoScope()
	if req.Scope != nil {
		scope = *req.Scope
	}

	role := &domain.Role{
		Name:           strings.TrimSpace(req.Name),
		OrganizationID: *userCtx.OrganizationID(),
		Permissions:    datatypes.NewJSONType(permissions),
		Scope:          datatypes.NewJSONType(scope),
	}
	if err := s.roleRepo.Create(ctx, role); err != nil {
		return nil, fmt.Errorf("failed to create role: %w", err)
	}

	s.logger.Info("role created",
		zap.String("role_id", role.ID.String()),
		zap.String("organization_id", role.OrganizationID.String()),
		zap.String("created_by", userCtx.UserID().String()))

	dto := mapper.ToRoleDTO(role)
	return &dto, nil
}

// Update changes a role's name, permissions or scope
func (s *RoleService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateRoleRequest) (*domain.RoleDTO, error) {
	userCtx, err := authorizeOrgAdmin(ctx)
	if err != nil {
		return nil, err
	}

	role, err := s.roleRepo.GetInOrganization(ctx, *userCtx.OrganizationID(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	if req.Name != nil {
		role.Name = strings.TrimSpace(*req.Name)
	}
	if req.Permissions != nil {
		role.Permissions = datatypes.NewJSONType(*req.Permissions)
	}
	if req.Scope != nil {
		role.Scope = datatypes.NewJSONType(*req.Scope)
	}

	if err := s.roleRepo.Update(ctx, role); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	dto := mapper.ToRoleDTO(role)
	return &dto, nil
}
