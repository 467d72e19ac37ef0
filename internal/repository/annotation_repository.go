package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/yugmi/sense-api/internal/domain"
	"gorm.io/gorm"
)

type AnnotationRepository struct {
	db *gorm.DB
}

func NewAnnotationRepository(db *gorm.DB) *AnnotationRepository {
	return &AnnotationRepository{db: db}
}

func (r *AnnotationRepository) Create(ctx context.Context, annotation *domain.Annotation) error {
	return r.db.WithContext(ctx).Create(annotation).Error
}

func (r *AnnotationRepository) ListByCapture(ctx context.Context, captureID uuid.UUID) ([]domain.Annotation, error) {
	var annotations []domain.Annotation
	err := r.db.WithContext(ctx).
		Where("capture_id = ?", captureID).
		Order("created_at ASC").
		Find(&annotations).Error
	return annotations, err
}

// CountByCaptures returns the number of annotations per capture
func (r *AnnotationRepository) CountByCaptures(ctx context.Context, captureIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(captureIDs))
	if len(captureIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		CaptureID uuid.UUID
		Count     int
	}
	err := r.db.WithContext(ctx).Model(&domain.Annotation{}).
		Select("capture_id, COUNT(*) AS count").
		Where("capture_id IN ?", captureIDs).
		Group("capture_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.CaptureID] = row.Count
	}
	return counts, nil
}
