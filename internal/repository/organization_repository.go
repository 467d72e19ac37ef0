package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/yugmi/sense-api/internal/domain"
	"gorm.io/gorm"
)

type OrganizationRepository struct {
	db *gorm.DB
}

func NewOrganizationRepository(db *gorm.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

func (r *OrganizationRepository) Create(ctx context.Context, org *domain.Organization) error {
	return r.db.WithContext(ctx).Create(org).Error
}

func (r *OrganizationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Organization, error) {
	var org domain.Organization
	err := r.db.WithContext(ctx).First(&org, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// ExistsByContactEmail reports whether an organization already uses the contact email
func (r *OrganizationRepository) ExistsByContactEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Organization{}).
		Where("contact_email = ?", email).
		Count(&count).Error
	return count > 0, err
}

// CountActiveMembers counts active users of an organization
func (r *OrganizationRepository) CountActiveMembers(ctx context.Context, orgID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("organization_id = ? AND state = ?", orgID, domain.StateActive).
		Count(&count).Error
	return count, err
}

// CountActiveProjects counts active projects owned by an organization
func (r *OrganizationRepository) CountActiveProjects(ctx context.Context, orgID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Project{}).
		Where("organization_id = ? AND state = ?", orgID, domain.StateActive).
		Count(&count).Error
	return count, err
}
