package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/yugmi/sense-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReportFilter narrows report listings
type ReportFilter struct {
	SiteID     *uuid.UUID
	ReportType *domain.ReportType
	Status     *domain.ReportStatus
	Page       Pagination
}

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create stores the report and flags its captures as reported in one transaction
func (r *ReportRepository) Create(ctx context.Context, report *domain.Report) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(report).Error; err != nil {
			return err
		}
		return markReported(tx, report.CaptureIDs)
	})
}

// GetAccessible fetches a report whose site is visible to the caller
func (r *ReportRepository) GetAccessible(ctx context.Context, id uuid.UUID) (*domain.Report, error) {
	var report domain.Report
	err := r.db.WithContext(ctx).
		Preload("Site").
		Where("reports.id = ?", id).
		Where("reports.site_id IN (?)", accessibleSiteIDs(ctx, r.db.WithContext(ctx))).
		First(&report).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *ReportRepository) List(ctx context.Context, filter ReportFilter) ([]domain.Report, int64, error) {
	var reports []domain.Report
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Report{}).
		Where("reports.site_id IN (?)", accessibleSiteIDs(ctx, r.db.WithContext(ctx)))

	if filter.SiteID != nil {
		query = query.Where("reports.site_id = ?", *filter.SiteID)
	}
	if filter.ReportType != nil {
		query = query.Where("reports.report_type = ?", *filter.ReportType)
	}
	if filter.Status != nil {
		query = query.Where("reports.status = ?", *filter.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Preload("Site").
		Order("reports.created_at DESC").
		Offset(filter.Page.Offset()).
		Limit(filter.Page.PageSize).
		Find(&reports).Error
	return reports, total, err
}

func (r *ReportRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ReportStatus) error {
	return r.db.WithContext(ctx).Model(&domain.Report{}).
		Where("id = ?", id).
		Update("status", status).Error
}
