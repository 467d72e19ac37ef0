package service_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yugmi/sense-api/internal/domain"
	"github.com/yugmi/sense-api/internal/repository"
	"github.com/yugmi/sense-api/internal/service"
	"github.com/yugmi/sense-api/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupProjectService(t *testing.T) (*service.ProjectService, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t)
	svc := service.NewProjectService(
		repository.NewProjectRepository(db),
		repository.NewOrganizationRepository(db),
		zap.NewNop(),
	)
	return svc, db
}

func strPtr(s string) *string { return &s }

func TestProjectService_Create(t *testing.T) {
	svc, db := setupProjectService(t)

	t.Run("individual owns the project", func(t *testing.T) {
		user := testutil.CreateIndividual(t, db)
		dto, err := svc.Create(asUser(t, db, user), &domain.CreateProjectRequest{
			Name:      "  Riverside Bridge ",
			StartDate: "2024-03-01",
			EndDate:   strPtr("2025-03-01T00:00:00Z"),
		})
		require.NoError(t, err)

		assert.Equal(t, "Riverside Bridge", dto.Name)
		assert.Nil(t, dto.OrganizationID)
		assert.Equal(t, user.ID, dto.CreatedBy)
		assert.Equal(t, domain.ProjectStatusPlanning, dto.Status)
	})

	t.Run("end before start", func(t *testing.T) {
		user := testutil.CreateIndividual(t, db)
		_, err := svc.Create(asUser(t, db, user), &domain.CreateProjectRequest{
			Name:      "Backwards",
			StartDate: "2024-03-01",
			EndDate:   strPtr("2024-02-01"),
		})
		assert.ErrorIs(t, err, service.ErrInvalidDateRange)
	})

	t.Run("bad date", func(t *testing.T) {
		user := testutil.CreateIndividual(t, db)
		_, err := svc.Create(asUser(t, db, user), &domain.CreateProjectRequest{Name: "Bad", StartDate: "01/03/2024"})
		assert.ErrorIs(t, err, service.ErrInvalidDate)
	})

	t.Run("organization quota", func(t *testing.T) {
		org, admin := testutil.CreateOrganization(t, db, "Tiny Co")
		require.NoError(t, db.Model(org).Update("max_projects", 1).Error)
		ctx := asUser(t, db, admin)

		dto, err := svc.Create(ctx, &domain.CreateProjectRequest{Name: "First", StartDate: "2024-01-01"})
		require.NoError(t, err)
		require.NotNil(t, dto.OrganizationID)
		assert.Equal(t, org.ID, *dto.OrganizationID)

		_, err = svc.Create(ctx, &domain.CreateProjectRequest{Name: "Second", StartDate: "2024-01-01"})
		assert.ErrorIs(t, err, service.ErrProjectQuotaExceeded)
	})
}

func TestProjectService_ScopeAndOwnership(t *testing.T) {
	svc, db := setupProjectService(t)
	org, admin := testutil.CreateOrganization(t, db, "Scoped Co")
	visible := testutil.CreateProject(t, db, admin, "Visible")
	hidden := testutil.CreateProject(t, db, admin, "Hidden")
	testutil.CreateSite(t, db, visible, "North", domain.OperationInspection)

	scope := domain.RoleScope{Projects: domain.Restricted(visible.ID), Sites: domain.Unrestricted()}
	role := testutil.CreateRole(t, db, org.ID, "Field", domain.DefaultPermissions(), scope)
	member := testutil.CreateOrgUser(t, db, org, role, "field")
	ctx := asUser(t, db, member)

	resp, err := svc.List(ctx, service.ProjectListParams{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Total)
	items := resp.Items.([]domain.ProjectDTO)
	require.Len(t, items, 1)
	assert.Equal(t, visible.ID, items[0].ID)
	require.NotNil(t, items[0].SiteCount)
	assert.Equal(t, int64(1), *items[0].SiteCount)

	_, err = svc.GetByID(ctx, hidden.ID)
	assert.ErrorIs(t, err, service.ErrProjectNotFound)

	outsider := testutil.CreateIndividual(t, db)
	_, err = svc.GetByID(asUser(t, db, outsider), visible.ID)
	assert.ErrorIs(t, err, service.ErrProjectNotFound)

	_, err = svc.Update(ctx, visible.ID, &domain.UpdateProjectRequest{Name: strPtr("Renamed")})
	assert.ErrorIs(t, err, service.ErrPermissionDenied)
}

func TestProjectService_UpdateAndDelete(t *testing.T) {
	svc, db := setupProjectService(t)
	user := testutil.CreateIndividual(t, db)
	ctx := asUser(t, db, user)

	project := testutil.CreateProject(t, db, user, "Depot")
	status := domain.ProjectStatusActive
	dto, err := svc.Update(ctx, project.ID, &domain.UpdateProjectRequest{
		Status:  &status,
		EndDate: strPtr("2024-12-31"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ProjectStatusActive, dto.Status)
	require.NotNil(t, dto.EndDate)

	dto, err = svc.Update(ctx, project.ID, &domain.UpdateProjectRequest{EndDate: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, dto.EndDate)

	bad := domain.ProjectStatus("archived")
	_, err = svc.Update(ctx, project.ID, &domain.UpdateProjectRequest{Status: &bad})
	assert.ErrorIs(t, err, service.ErrInvalidProjectStatus)

	site := testutil.CreateSite(t, db, project, "Gate", domain.OperationAuditing)
	err = svc.Delete(ctx, project.ID)
	assert.ErrorIs(t, err, service.ErrProjectHasSites)

	require.NoError(t, db.Model(site).Update("state", domain.StateRetired).Error)
	require.NoError(t, svc.Delete(ctx, project.ID))

	_, err = svc.GetByID(ctx, project.ID)
	assert.ErrorIs(t, err, service.ErrProjectNotFound)

	err = svc.Delete(ctx, uuid.New())
	assert.ErrorIs(t, err, service.ErrProjectNotFound)
}
