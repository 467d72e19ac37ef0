package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yugmi/sense-api/internal/auth"
	"github.com/yugmi/sense-api/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CaptureFilter narrows capture listings
type CaptureFilter struct {
	SiteID           *uuid.UUID
	ProjectID        *uuid.UUID
	MediaType        *domain.MediaType
	ProcessingStatus *domain.ProcessingStatus
	Page             Pagination
}

type CaptureRepository struct {
	db *gorm.DB
}

func NewCaptureRepository(db *gorm.DB) *CaptureRepository {
	return &CaptureRepository{db: db}
}

func (r *CaptureRepository) Create(ctx context.Context, capture *domain.Capture) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(capture).Error
}

func (r *CaptureRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Capture, error) {
	var capture domain.Capture
	err := r.db.WithContext(ctx).First(&capture, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &capture, nil
}

// GetOwned fetches a capture uploaded by the caller, with its site and annotations
func (r *CaptureRepository) GetOwned(ctx context.Context, id uuid.UUID) (*domain.Capture, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}

	var capture domain.Capture
	err := r.db.WithContext(ctx).
		Preload("Site").
		Preload("Annotations", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("id = ? AND user_id = ?", id, userCtx.UserID()).
		First(&capture).Error
	if err != nil {
		return nil, err
	}
	return &capture, nil
}

// ListOwned lists captures uploaded by the caller
func (r *CaptureRepository) ListOwned(ctx context.Context, filter CaptureFilter) ([]domain.Capture, int64, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, 0, nil
	}
	query := r.db.WithContext(ctx).Model(&domain.Capture{}).
		Where("captures.user_id = ?", userCtx.UserID())
	return r.list(applyCaptureFilter(query, filter), filter.Page)
}

// ListVisible lists captures of every site visible to the caller, not only its own uploads
func (r *CaptureRepository) ListVisible(ctx context.Context, filter CaptureFilter) ([]domain.Capture, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Capture{}).
		Where("captures.site_id IN (?)", accessibleSiteIDs(ctx, r.db.WithContext(ctx)))
	return r.list(applyCaptureFilter(query, filter), filter.Page)
}

func applyCaptureFilter(query *gorm.DB, filter CaptureFilter) *gorm.DB {
	if filter.SiteID != nil {
		query = query.Where("captures.site_id = ?", *filter.SiteID)
	}
	if filter.ProjectID != nil {
		query = query.Where("captures.site_id IN (?)",
			query.Session(&gorm.Session{NewDB: true}).Table("sites").Select("id").Where("project_id = ?", *filter.ProjectID))
	}
	if filter.MediaType != nil {
		query = query.Where("captures.media_type = ?", *filter.MediaType)
	}
	if filter.ProcessingStatus != nil {
		query = query.Where("captures.processing_status = ?", *filter.ProcessingStatus)
	}
	return query
}

func (r *CaptureRepository) list(query *gorm.DB, page Pagination) ([]domain.Capture, int64, error) {
	var captures []domain.Capture
	var total int64

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Preload("Site").
		Order("captures.created_at DESC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&captures).Error
	return captures, total, err
}

// ListBySite returns captures of a site, optionally limited to the given ids
func (r *CaptureRepository) ListBySite(ctx context.Context, siteID uuid.UUID, ids []uuid.UUID) ([]domain.Capture, error) {
	var captures []domain.Capture
	query := r.db.WithContext(ctx).Where("site_id = ?", siteID)
	if len(ids) > 0 {
		query = query.Where("id IN ?", ids)
	}
	err := query.Order("created_at ASC").Find(&captures).Error
	return captures, err
}

// TryStartAnalysis moves a capture to processing unless another analysis started after
// staleBefore is still running. It returns false when the capture is busy.
func (r *CaptureRepository) TryStartAnalysis(ctx context.Context, id uuid.UUID, now, staleBefore time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.Capture{}).
		Where("id = ?", id).
		Where("processing_status <> ? OR analysis_started_at IS NULL OR analysis_started_at < ?",
			domain.ProcessingInProgress, staleBefore).
		Updates(map[string]interface{}{
			"processing_status":   domain.ProcessingInProgress,
			"analysis_started_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// CompleteAnalysis stores the analysis result and marks the capture completed
func (r *CaptureRepository) CompleteAnalysis(ctx context.Context, id uuid.UUID, analysis *domain.AIAnalysis) error {
	return r.db.WithContext(ctx).Model(&domain.Capture{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"ai_analysis":         datatypes.NewJSONType(analysis),
			"processing_status":   domain.ProcessingCompleted,
			"analysis_started_at": nil,
		}).Error
}

// FailAnalysis marks the capture failed and leaves the previous analysis untouched
func (r *CaptureRepository) FailAnalysis(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&domain.Capture{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"processing_status":   domain.ProcessingFailed,
			"analysis_started_at": nil,
		}).Error
}

// FailStale marks every capture stuck in processing since before cutoff as failed
func (r *CaptureRepository) FailStale(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.Capture{}).
		Where("processing_status = ?", domain.ProcessingInProgress).
		Where("analysis_started_at IS NULL OR analysis_started_at < ?", cutoff).
		Updates(map[string]interface{}{
			"processing_status":   domain.ProcessingFailed,
			"analysis_started_at": nil,
		})
	return result.RowsAffected, result.Error
}

// MarkShared merges a share channel into the capture's sharing state
func (r *CaptureRepository) MarkShared(ctx context.Context, id uuid.UUID, method domain.ShareMethod) (domain.SharedVia, error) {
	var merged domain.SharedVia
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var capture domain.Capture
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "shared_via").
			First(&capture, "id = ?", id).Error
		if err != nil {
			return err
		}
		merged = capture.SharedVia.Data().With(method)
		return tx.Model(&domain.Capture{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"is_shared":  true,
				"shared_via": datatypes.NewJSONType(merged),
			}).Error
	})
	return merged, err
}

// MarkReported flags the captures as included in a report
func (r *CaptureRepository) MarkReported(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return markReported(tx, ids)
	})
}

func markReported(tx *gorm.DB, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	var captures []domain.Capture
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "shared_via").
		Where("id IN ?", ids).
		Find(&captures).Error
	if err != nil {
		return err
	}
	for _, c := range captures {
		via := c.SharedVia.Data()
		via.Report = true
		err := tx.Model(&domain.Capture{}).
			Where("id = ?", c.ID).
			Update("shared_via", datatypes.NewJSONType(via)).Error
		if err != nil {
			return err
		}
	}
	return nil
}
