package repository

import (
	"context"

	"github.com/yugmi/sense-api/internal/auth"
	"github.com/yugmi/sense-api/internal/domain"
	"gorm.io/gorm"
)

// MaxPageSize is the maximum allowed page size for paginated queries
const MaxPageSize = 200

// DefaultPageSize is used when the caller does not ask for a page size
const DefaultPageSize = 20

// Pagination holds normalized paging parameters
type Pagination struct {
	Page     int
	PageSize int
}

// NewPagination clamps page to >= 1 and pageSize to [1, MaxPageSize]
func NewPagination(page, pageSize int) Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return Pagination{Page: page, PageSize: pageSize}
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// TotalPages returns the number of pages needed for total rows
func (p Pagination) TotalPages(total int64) int {
	if total == 0 {
		return 0
	}
	return int((total + int64(p.PageSize) - 1) / int64(p.PageSize))
}

// ApplyIDScope restricts column to the identifiers allowed by scope.
// An unrestricted scope leaves the query unchanged and an empty scope matches nothing.
func ApplyIDScope(query *gorm.DB, column string, scope domain.IDScope) *gorm.DB {
	if scope.IsUnrestricted() {
		return query
	}
	ids := scope.IDs()
	if len(ids) == 0 {
		return query.Where("1 = 0")
	}
	return query.Where(column+" IN ?", ids)
}

// ApplyProjectOwnership restricts a query on the projects table (or alias) to projects
// owned by the caller: its organization's projects, or for individuals the projects it
// created outside any organization. Without a caller nothing matches.
func ApplyProjectOwnership(ctx context.Context, query *gorm.DB, alias string) *gorm.DB {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return query.Where("1 = 0")
	}
	if orgID := userCtx.OrganizationID(); orgID != nil {
		return query.Where(alias+".organization_id = ?", *orgID)
	}
	if userCtx.IsIndividual() {
		return query.Where(alias+".organization_id IS NULL AND "+alias+".created_by_id = ?", userCtx.UserID())
	}
	return query.Where("1 = 0")
}

// ApplyProjectAccess combines ownership with the caller's project scope
func ApplyProjectAccess(ctx context.Context, query *gorm.DB, alias string) *gorm.DB {
	query = ApplyProjectOwnership(ctx, query, alias)
	if userCtx, ok := auth.FromContext(ctx); ok {
		query = ApplyIDScope(query, alias+".id", userCtx.ProjectScope())
	}
	return query
}

// ApplySiteAccess restricts a query on the sites table (or alias) to active sites of
// active projects owned by the caller, filtered by the caller's site scope
func ApplySiteAccess(ctx context.Context, query *gorm.DB, alias string) *gorm.DB {
	owned := query.Session(&gorm.Session{NewDB: true}).
		Table("projects").
		Select("projects.id").
		Where("projects.state = ?", domain.StateActive)
	owned = ApplyProjectOwnership(ctx, owned, "projects")

	query = query.Where(alias+".project_id IN (?)", owned)
	if userCtx, ok := auth.FromContext(ctx); ok {
		query = ApplyIDScope(query, alias+".id", userCtx.SiteScope())
	} else {
		query = query.Where("1 = 0")
	}
	return query
}

// accessibleSiteIDs returns a subquery selecting the ids of sites visible to the caller
func accessibleSiteIDs(ctx context.Context, db *gorm.DB) *gorm.DB {
	sub := db.Session(&gorm.Session{NewDB: true}).
		Table("sites").
		Select("sites.id").
		Where("sites.state = ?", domain.StateActive)
	return ApplySiteAccess(ctx, sub, "sites")
}
