package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yugmi/sense-api/internal/domain"
	"github.com/yugmi/sense-api/internal/mapper"
	"github.com/yugmi/sense-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProjectListParams holds the query parameters of a project listing
type ProjectListParams struct {
	Page           int
	PageSize       int
	Status         *domain.ProjectStatus
	IncludeRetired bool
}

// ProjectService handles business logic for projects
type ProjectService struct {
	projectRepo *repository.ProjectRepository
	orgRepo     *repository.OrganizationRepository
	logger      *zap.Logger
}

// NewProjectService creates a new ProjectService
func NewProjectService(
	projectRepo *repository.ProjectRepository,
	orgRepo *repository.OrganizationRepository,
	logger *zap.Logger,
) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		orgRepo:     orgRepo,
		logger:      logger,
	}
}

// Create creates a project owned by the caller's organization, or by the caller itself
// for individual accounts
func (s *ProjectService) Create(ctx context.Context, req *domain.CreateProjectRequest) (*domain.ProjectDTO, error) {
	userCtx, err := authorize(ctx, domain.CanCreateProject)
	if err != nil {
		return nil, err
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		return nil, err
	}
	endDate, err := parseOptionalDate(req.EndDate)
	if err != nil {
		return nil, err
	}
	if endDate != nil && endDate.Before(startDate) {
		return nil, ErrInvalidDateRange
	}

	status := req.Status
	if status == "" {
		status = domain.ProjectStatusPlanning
	}
	if !status.IsValid() {
		return nil, ErrInvalidProjectStatus
	}

	orgID := userCtx.OrganizationID()
	if orgID != nil {
		if err := s.checkProjectQuota(ctx, *orgID); err != nil {
			return nil, err
		}
	}

	wbs := req.WBSData
	if wbs == nil {
		wbs = domain.WBSMap{}
	}

	project := &domain.Project{
		Name:           strings.TrimSpace(req.Name),
		Description:    req.Description,
		OrganizationID: orgID,
		CreatedByID:    userCtx.UserID(),
		Address:        req.Address,
		StartDate:      startDate,
		EndDate:        endDate,
		Budget:         req.Budget,
		Status:         status,
		WBSData:        datatypes.NewJSONType(wbs),
		State:          domain.StateActive,
	}

	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	s.logger.Info("project created",
		zap.String("project_id", project.ID.String()),
		zap.String("created_by", userCtx.UserID().String()))

	dto := mapper.ToProjectDTO(project)
	return &dto, nil
}

func (s *ProjectService) checkProjectQuota(ctx context.Context, orgID uuid.UUID) error {
	org, err := s.orgRepo.GetByID(ctx, orgID)
	if err != nil {
		return fmt.Errorf("failed to get organization: %w", err)
	}
	count, err := s.orgRepo.CountActiveProjects(ctx, orgID)
	if err != nil {
		return fmt.Errorf("failed to count projects: %w", err)
	}
	if count >= int64(org.MaxProjects) {
		return ErrProjectQuotaExceeded
	}
	return nil
}

// List returns the caller's projects with their active site counts
func (s *ProjectService) List(ctx context.Context, params ProjectListParams) (*domain.PaginatedResponse, error) {
	if _, err := authorize(ctx, domain.CanViewProject); err != nil {
		return nil, err
	}

	page := repository.NewPagination(params.Page, params.PageSize)
	projects, total, err := s.projectRepo.List(ctx, repository.ProjectFilter{
		Status:         params.Status,
		IncludeRetired: params.IncludeRetired,
		Page:           page,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	ids := make([]uuid.UUID, len(projects))
	for i := range projects {
		ids[i] = projects[i].ID
	}
	counts, err := s.projectRepo.ActiveSiteCounts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to count sites: %w", err)
	}

	dtos := make([]domain.ProjectDTO, len(projects))
	for i := range projects {
		dtos[i] = mapper.ToProjectDTO(&projects[i])
		count := counts[projects[i].ID]
		dtos[i].SiteCount = &count
	}

	resp := mapper.NewPaginatedResponse(dtos, total, page.Page, page.PageSize)
	return &resp, nil
}

// GetByID returns a project with its active sites
func (s *ProjectService) GetByID(ctx context.Context, id uuid.UUID) (*domain.ProjectDTO, error) {
	if _, err := authorize(ctx, domain.CanViewProject); err != nil {
		return nil, err
	}

	project, err := s.projectRepo.GetAccessibleWithSites(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	dto := mapper.ToProjectDTO(project)
	count := int64(len(project.Sites))
	dto.SiteCount = &count
	return &dto, nil
}

// Update applies a partial update to a project
func (s *ProjectService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateProjectRequest) (*domain.ProjectDTO, error) {
	if _, err := authorize(ctx, domain.CanUpdateProject); err != nil {
		return nil, err
	}

	project, err := s.projectRepo.GetAccessible(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	if req.Name != nil {
		project.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.Address != nil {
		project.Address = *req.Address
	}
	if req.StartDate != nil {
		start, err := parseDate(*req.StartDate)
		if err != nil {
			return nil, err
		}
		project.StartDate = start
	}
	if req.EndDate != nil {
		// an empty end date clears it
		if *req.EndDate == "" {
			project.EndDate = nil
		} else {
			end, err := parseDate(*req.EndDate)
			if err != nil {
				return nil, err
			}
			project.EndDate = &end
		}
	}
	if project.EndDate != nil && project.EndDate.Before(project.StartDate) {
		return nil, ErrInvalidDateRange
	}
	if req.Budget != nil {
		project.Budget = req.Budget
	}
	if req.Status != nil {
		if !req.Status.IsValid() {
			return nil, ErrInvalidProjectStatus
		}
		project.Status = *req.Status
	}
	if req.WBSData != nil {
		project.WBSData = datatypes.NewJSONType(req.WBSData)
	}

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	dto := mapper.ToProjectDTO(project)
	return &dto, nil
}

// Delete retires a project. Projects with active sites are left unchanged.
func (s *ProjectService) Delete(ctx context.Context, id uuid.UUID) error {
	userCtx, err := authorize(ctx, domain.CanDeleteProject)
	if err != nil {
		return err
	}

	project, err := s.projectRepo.GetAccessible(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("failed to get project: %w", err)
	}

	sites, err := s.projectRepo.CountActiveSites(ctx, project.ID)
	if err != nil {
		return fmt.Errorf("failed to count sites: %w", err)
	}
	if sites > 0 {
		return ErrProjectHasSites
	}

	if err := s.projectRepo.Retire(ctx, project.ID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	s.logger.Info("project retired",
		zap.String("project_id", project.ID.String()),
		zap.String("retired_by", userCtx.UserID().String()))
	return nil
}

func parseDate(value string) (time.Time, error) {
	t, err := domain.ParseDate(strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return t.UTC(), nil
}

func parseOptionalDate(value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	t, err := parseDate(*value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
