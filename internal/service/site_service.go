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

// SiteListParams holds the query parameters of a site listing
type SiteListParams struct {
	Page          int
	PageSize      int
	ProjectID     *uuid.UUID
	OperationType *domain.OperationType
}

// SiteService handles business logic for sites and site access grants
type SiteService struct {
	siteRepo    *repository.SiteRepository
	projectRepo *repository.ProjectRepository
	userRepo    *repository.UserRepository
	logger      *zap.Logger
}

// NewSiteService creates a new SiteService
func NewSiteService(
	siteRepo *repository.SiteRepository,
	projectRepo *repository.ProjectRepository,
	userRepo *repository.UserRepository,
	logger *zap.Logger,
) *SiteService {
	return &SiteService{
		siteRepo:    siteRepo,
		projectRepo: projectRepo,
		userRepo:    userRepo,
		logger:      logger,
	}
}

// Create creates a site inside an active project visible to the caller
func (s *SiteService) Create(ctx context.Context, req *domain.CreateSiteRequest) (*domain.SiteDTO, error) {
	userCtx, err := authorize(ctx, domain.CanCreateSite)
	if err != nil {
		return nil, err
	}
	if !req.OperationType.IsValid() {
		return nil, ErrInvalidOperationType
	}

	project, err := s.projectRepo.GetAccessible(ctx, req.ProjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	wbs := req.WBSMapping
	if wbs == nil {
		wbs = domain.WBSMap{}
	}

	site := &domain.Site{
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		ProjectID:     project.ID,
		OperationType: req.OperationType,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		Address:       req.Address,
		StructureType: req.StructureType,
		WBSMapping:    datatypes.NewJSONType(wbs),
		State:         domain.StateActive,
	}
	if err := s.siteRepo.Create(ctx, site); err != nil {
		return nil, fmt.Errorf("failed to create site: %w", err)
	}

	s.logger.Info("site created",
		zap.String("site_id", site.ID.String()),
		zap.String("project_id", project.ID.String()),
		zap.String("created_by", userCtx.UserID().String()))

	site.Project = project
	dto := mapper.ToSiteDTO(site)
	return &dto, nil
}

// List returns active sites of the caller's projects, limited by its site scope
func (s *SiteService) List(ctx context.Context, params SiteListParams) (*domain.PaginatedResponse, error) {
	if _, err := authorize(ctx, domain.CanViewSite); err != nil {
		return nil, err
	}

	page := repository.NewPagination(params.Page, params.PageSize)
	sites, total, err := s.siteRepo.List(ctx, repository.SiteFilter{
		ProjectID:     params.ProjectID,
		OperationType: params.OperationType,
		Page:          page,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}

	dtos := make([]domain.SiteDTO, len(sites))
	for i := range sites {
		dtos[i] = mapper.ToSiteDTO(&sites[i])
	}

	resp := mapper.NewPaginatedResponse(dtos, total, page.Page, page.PageSize)
	return &resp, nil
}

// GetByID returns a site with its project and authorized users. Sites outside the
// caller's scope are reported as not found.
func (s *SiteService) GetByID(ctx context.Context, id uuid.UUID) (*domain.SiteDTO, error) {
	if _, err := authorize(ctx, domain.CanViewSite); err != nil {
		return nil, err
	}

	site, err := s.siteRepo.GetAccessibleWithUsers(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSiteNotFound
		}
		return nil, fmt.Errorf("failed to get site: %w", err)
	}

	dto := mapper.ToSiteDTO(site)
	return &dto, nil
}

// Update applies a partial update to a site
func (s *SiteService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateSiteRequest) (*domain.SiteDTO, error) {
	if _, err := authorize(ctx, domain.CanUpdateSite); err != nil {
		return nil, err
	}

	site, err := s.siteRepo.GetAccessible(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSiteNotFound
		}
		return nil, fmt.Errorf("failed to get site: %w", err)
	}

	if req.Name != nil {
		site.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		site.Description = *req.Description
	}
	if req.OperationType != nil {
		if !req.OperationType.IsValid() {
			return nil, ErrInvalidOperationType
		}
		site.OperationType = *req.OperationType
	}
	if req.Latitude != nil {
		site.Latitude = req.Latitude
	}
	if req.Longitude != nil {
		site.Longitude = req.Longitude
	}
	if req.Address != nil {
		site.Address = *req.Address
	}
	if req.StructureType != nil {
		site.StructureType = *req.StructureType
	}
	if req.WBSMapping != nil {
		site.WBSMapping = datatypes.NewJSONType(req.WBSMapping)
	}

	if err := s.siteRepo.Update(ctx, site); err != nil {
		return nil, fmt.Errorf("failed to update site: %w", err)
	}

	dto := mapper.ToSiteDTO(site)
	return &dto, nil
}

// Delete retires a site. Sites with captures are left unchanged.
func (s *SiteService) Delete(ctx context.Context, id uuid.UUID) error {
	userCtx, err := authorize(ctx, domain.CanDeleteSite)
	if err != nil {
		return err
	}

	site, err := s.siteRepo.GetAccessible(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSiteNotFound
		}
		return fmt.Errorf("failed to get site: %w", err)
	}

	captures, err := s.siteRepo.CountCaptures(ctx, site.ID)
	if err != nil {
		return fmt.Errorf("failed to count captures: %w", err)
	}
	if captures > 0 {
		return ErrSiteHasCaptures
	}

	if err := s.siteRepo.Retire(ctx, site.ID); err != nil {
		return fmt.Errorf("failed to delete site: %w", err)
	}

	s.logger.Info("site retired",
		zap.String("site_id", site.ID.String()),
		zap.String("retired_by", userCtx.UserID().String()))
	return nil
}

// AssignUser grants a member of the caller's organization access to a site.
// Repeated grants update the existing row.
func (s *SiteService) AssignUser(ctx context.Context, req *domain.AssignUserRequest) (*domain.SiteAccessDTO, error) {
	userCtx, err := authorizeOrgAdmin(ctx)
	if err != nil {
		return nil, err
	}

	level := req.AccessLevel
	if level == "" {
		level = domain.AccessCapture
	}

	member, err := s.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if member.OrganizationID == nil || *member.OrganizationID != *userCtx.OrganizationID() {
		return nil, ErrUserNotFound
	}

	site, err := s.siteRepo.GetAccessible(ctx, req.SiteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSiteNotFound
		}
		return nil, fmt.Errorf("failed to get site: %w", err)
	}

	grantedBy := userCtx.UserID()
	access := &domain.UserSiteAccess{
		UserID:      member.ID,
		SiteID:      site.ID,
		AccessLevel: level,
		GrantedByID: &grantedBy,
	}
	if err := s.siteRepo.UpsertAccess(ctx, access); err != nil {
		return nil, fmt.Errorf("failed to assign user: %w", err)
	}

	stored, err := s.siteRepo.GetAccess(ctx, member.ID, site.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load site access: %w", err)
	}

	s.logger.Info("user assigned to site",
		zap.String("user_id", member.ID.String()),
		zap.String("site_id", site.ID.String()),
		zap.String("access_level", string(level)))

	dto := mapper.ToSiteAccessDTO(stored)
	return &dto, nil
}
