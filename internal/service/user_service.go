package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yugmi/sense-api/internal/auth"
	"github.com/yugmi/sense-api/internal/domain"
	"github.com/yugmi/sense-api/internal/mapper"
	"github.com/yugmi/sense-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserService manages the members of the caller's organization
type UserService struct {
	userRepo   *repository.UserRepository
	roleRepo   *repository.RoleRepository
	orgRepo    *repository.OrganizationRepository
	bcryptCost int
	logger     *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(
	userRepo *repository.UserRepository,
	roleRepo *repository.RoleRepository,
	orgRepo *repository.OrganizationRepository,
	bcryptCost int,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		userRepo:   userRepo,
		roleRepo:   roleRepo,
		orgRepo:    orgRepo,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// List returns a page of organization members
func (s *UserService) List(ctx context.Context, page, pageSize int) (*domain.PaginatedResponse, error) {
	userCtx, err := authorizeOrgAdmin(ctx)
	if err != nil {
		return nil, err
	}

	p := repository.NewPagination(page, pageSize)
	users, total, err := s.userRepo.ListByOrganization(ctx, *userCtx.OrganizationID(), p)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	dtos := make([]domain.UserDTO, len(users))
	for i := range users {
		dtos[i] = mapper.ToUserDTO(&users[i])
	}

	resp := mapper.NewPaginatedResponse(dtos, total, p.Page, p.PageSize)
	return &resp, nil
}

// Create adds a member with a role of the caller's organization, honoring the member quota
func (s *UserService) Create(ctx context.Context, req *domain.CreateMemberRequest) (*domain.UserDTO, error) {
	userCtx, err := authorizeOrgAdmin(ctx)
	if err != nil {
		return nil, err
	}
	orgID := *userCtx.OrganizationID()

	role, err := s.roleRepo.GetInOrganization(ctx, orgID, req.RoleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	org, err := s.orgRepo.GetByID(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	members, err := s.orgRepo.CountActiveMembers(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to count members: %w", err)
	}
	if members >= int64(org.MaxUsers) {
		return nil, ErrUserQuotaExceeded
	}

	email := normalizeEmail(req.Email)
	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hash, err := auth.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:          email,
		PasswordHash:   hash,
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		Phone:          req.Phone,
		UserType:       domain.UserTypeOrganization,
		OrganizationID: &orgID,
		RoleID:         &role.ID,
		State:          domain.StateActive,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("organization member created",
		zap.String("user_id", user.ID.String()),
		zap.String("organization_id", orgID.String()),
		zap.String("role_id", role.ID.String()))

	user.Role = role
	dto := mapper.ToUserDTO(user)
	return &dto, nil
}
