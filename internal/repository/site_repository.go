package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/yugmi/sense-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SiteFilter narrows site listings
type SiteFilter struct {
	ProjectID     *uuid.UUID
	OperationType *domain.OperationType
	Page          Pagination
}

type SiteRepository struct {
	db *gorm.DB
}

func NewSiteRepository(db *gorm.DB) *SiteRepository {
	return &SiteRepository{db: db}
}

func (r *SiteRepository) Create(ctx context.Context, site *domain.Site) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(site).Error
}

// GetAccessible fetches an active site the caller can see, with its project
func (r *SiteRepository) GetAccessible(ctx context.Context, id uuid.UUID) (*domain.Site, error) {
	var site domain.Site
	query := r.db.WithContext(ctx).
		Table("sites").
		Preload("Project").
		Where("sites.id = ? AND sites.state = ?", id, domain.StateActive)
	query = ApplySiteAccess(ctx, query, "sites")
	if err := query.First(&site).Error; err != nil {
		return nil, err
	}
	return &site, nil
}

// GetAccessibleWithUsers is GetAccessible with the authorized users preloaded
func (r *SiteRepository) GetAccessibleWithUsers(ctx context.Context, id uuid.UUID) (*domain.Site, error) {
	var site domain.Site
	query := r.db.WithContext(ctx).
		Table("sites").
		Preload("Project").
		Preload("Access").
		Preload("Access.User").
		Where("sites.id = ? AND sites.state = ?", id, domain.StateActive)
	query = ApplySiteAccess(ctx, query, "sites")
	if err := query.First(&site).Error; err != nil {
		return nil, err
	}
	return &site, nil
}

func (r *SiteRepository) List(ctx context.Context, filter SiteFilter) ([]domain.Site, int64, error) {
	var sites []domain.Site
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Site{}).Where("sites.state = ?", domain.StateActive)
	query = ApplySiteAccess(ctx, query, "sites")

	if filter.ProjectID != nil {
		query = query.Where("sites.project_id = ?", *filter.ProjectID)
	}
	if filter.OperationType != nil {
		query = query.Where("sites.operation_type = ?", *filter.OperationType)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Preload("Project").
		Order("sites.created_at DESC").
		Offset(filter.Page.Offset()).
		Limit(filter.Page.PageSize).
		Find(&sites).Error
	return sites, total, err
}

func (r *SiteRepository) CountCaptures(ctx context.Context, siteID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Capture{}).
		Where("site_id = ?", siteID).
		Count(&count).Error
	return count, err
}

func (r *SiteRepository) Update(ctx context.Context, site *domain.Site) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(site).Error
}

// Retire logically deletes a site
func (r *SiteRepository) Retire(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&domain.Site{}).
		Where("id = ?", id).
		Update("state", domain.StateRetired).Error
}

// UpsertAccess grants or updates a user's access to a site. The unique index on
// (user_id, site_id) keeps concurrent grants from creating duplicate rows.
func (r *SiteRepository) UpsertAccess(ctx context.Context, access *domain.UserSiteAccess) error {
	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "site_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"access_level", "granted_by_id", "updated_at"}),
		}).
		Create(access).Error
}

// GetAccess returns the stored grant for a user on a site
func (r *SiteRepository) GetAccess(ctx context.Context, userID, siteID uuid.UUID) (*domain.UserSiteAccess, error) {
	var access domain.UserSiteAccess
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND site_id = ?", userID, siteID).
		First(&access).Error
	if err != nil {
		return nil, err
	}
	return &access, nil
}
