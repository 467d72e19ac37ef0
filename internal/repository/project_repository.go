package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/yugmi/sense-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProjectFilter narrows project listings
type ProjectFilter struct {
	Status         *domain.ProjectStatus
	IncludeRetired bool
	Page           Pagination
}

type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(project).Error
}

// GetAccessible fetches an active project the caller owns and has in scope
func (r *ProjectRepository) GetAccessible(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	var project domain.Project
	query := r.db.WithContext(ctx).
		Table("projects").
		Where("projects.id = ? AND projects.state = ?", id, domain.StateActive)
	query = ApplyProjectAccess(ctx, query, "projects")
	if err := query.First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// GetAccessibleWithSites is GetAccessible with the project's active sites preloaded
func (r *ProjectRepository) GetAccessibleWithSites(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	var project domain.Project
	query := r.db.WithContext(ctx).
		Table("projects").
		Preload("Sites", "state = ?", domain.StateActive).
		Where("projects.id = ? AND projects.state = ?", id, domain.StateActive)
	query = ApplyProjectAccess(ctx, query, "projects")
	if err := query.First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *ProjectRepository) List(ctx context.Context, filter ProjectFilter) ([]domain.Project, int64, error) {
	var projects []domain.Project
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Project{})
	query = ApplyProjectAccess(ctx, query, "projects")

	if !filter.IncludeRetired {
		query = query.Where("projects.state = ?", domain.StateActive)
	}
	if filter.Status != nil {
		query = query.Where("projects.status = ?", *filter.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("projects.created_at DESC").
		Offset(filter.Page.Offset()).
		Limit(filter.Page.PageSize).
		Find(&projects).Error
	return projects, total, err
}

// ActiveSiteCounts returns the number of active sites per project
func (r *ProjectRepository) ActiveSiteCounts(ctx context.Context, projectIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(projectIDs))
	if len(projectIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		ProjectID uuid.UUID
		Count     int64
	}
	err := r.db.WithContext(ctx).Model(&domain.Site{}).
		Select("project_id, COUNT(*) AS count").
		Where("project_id IN ? AND state = ?", projectIDs, domain.StateActive).
		Group("project_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.ProjectID] = row.Count
	}
	return counts, nil
}

func (r *ProjectRepository) CountActiveSites(ctx context.Context, projectID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Site{}).
		Where("project_id = ? AND state = ?", projectID, domain.StateActive).
		Count(&count).Error
	return count, err
}

func (r *ProjectRepository) Update(ctx context.Context, project *domain.Project) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(project).Error
}

// Retire logically deletes a project
func (r *ProjectRepository) Retire(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&domain.Project{}).
		Where("id = ?", id).
		Update("state", domain.StateRetired).Error
}
