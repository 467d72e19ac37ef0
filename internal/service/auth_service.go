package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yugmi/sense-api/internal/auth"
	"github.com/yugmi/sense-api/internal/domain"
	"github.com/yugmi/sense-api/internal/mapper"
	"github.com/yugmi/sense-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AdminRoleName is the role created for the registering user of a new organization
const AdminRoleName = "Organization Admin"

// AuthService handles registration, login and token refresh
type AuthService struct {
	db         *gorm.DB
	userRepo   *repository.UserRepository
	orgRepo    *repository.OrganizationRepository
	tokens     *auth.TokenService
	bcryptCost int
	logger     *zap.Logger
	now        func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(
	db *gorm.DB,
	userRepo *repository.UserRepository,
	orgRepo *repository.OrganizationRepository,
	tokens *auth.TokenService,
	bcryptCost int,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		db:         db,
		userRepo:   userRepo,
		orgRepo:    orgRepo,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		logger:     logger,
		now:        time.Now,
	}
}

// Register creates an individual user, or an organization with its admin role and
// admin user in a single transaction
func (s *AuthService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResponse, error) {
	email := normalizeEmail(req.Email)

	if req.UserType == domain.UserTypeOrganization && req.OrganizationData == nil {
		return nil, ErrOrganizationDataRequired
	}

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
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Phone:        req.Phone,
		UserType:     req.UserType,
		State:        domain.StateActive,
	}

	if req.UserType == domain.UserTypeOrganization {
		err = s.registerOrganization(ctx, user, req.OrganizationData)
	} else {
		err = s.userRepo.Create(ctx, user)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		if errors.Is(err, ErrOrganizationEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("user_type", string(user.UserType)))

	return s.issue(user)
}

func (s *AuthService) registerOrganization(ctx context.Context, user *domain.User, data *domain.OrganizationInput) error {
	orgEmail := normalizeEmail(data.Email)
	taken, err := s.orgRepo.ExistsByContactEmail(ctx, orgEmail)
	if err != nil {
		return fmt.Errorf("failed to check organization email: %w", err)
	}
	if taken {
		return ErrOrganizationEmailTaken
	}

	org := &domain.Organization{
		Name:             strings.TrimSpace(data.Name),
		ContactEmail:     orgEmail,
		Phone:            data.Phone,
		Address:          data.Address,
		SubscriptionType: domain.SubscriptionBasic,
		MaxUsers:         10,
		MaxProjects:      5,
		State:            domain.StateActive,
	}
	role := &domain.Role{
		Name:        AdminRoleName,
		Permissions: datatypes.NewJSONType(domain.FullPermissions()),
		Scope:       datatypes.NewJSONType(domain.FullScope()),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewOrganizationRepository(tx).Create(ctx, org); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrOrganizationEmailTaken
			}
			return err
		}

		role.OrganizationID = org.ID
		if err := repository.NewRoleRepository(tx).Create(ctx, role); err != nil {
			return err
		}

		user.OrganizationID = &org.ID
		user.RoleID = &role.ID
		return repository.NewUserRepository(tx).Create(ctx, user)
	})
	if err != nil {
		return err
	}

	user.Organization = org
	user.Role = role
	return nil
}

// Login verifies credentials and issues a fresh token pair
func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}
	if !user.State.IsActive() {
		return nil, ErrAccountDeactivated
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, s.now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}

	user, err = s.userRepo.GetWithRelations(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	return s.issue(user)
}

// Refresh exchanges a valid refresh token for a new token pair
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.AuthResponse, error) {
	userID, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.userRepo.GetWithRelations(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.State.IsActive() {
		return nil, ErrInvalidRefreshToken
	}

	return s.issue(user)
}

// Profile returns the authenticated user with organization and role
func (s *AuthService) Profile(ctx context.Context) (*domain.UserDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	user, err := s.userRepo.GetWithRelations(ctx, userCtx.UserID())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	dto := mapper.ToUserDTO(user)
	return &dto, nil
}

func (s *AuthService) issue(user *domain.User) (*domain.AuthResponse, error) {
	pair, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		return nil, err
	}

	resp := &domain.AuthResponse{
		User:         mapper.ToUserDTO(user),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    int64(pair.ExpiresIn.Seconds()),
	}
	if user.Organization != nil {
		org := mapper.ToOrganizationDTO(user.Organization)
		resp.Organization = &org
	}
	return resp, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
