package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yugmi/sense-api/internal/auth"
	"github.com/yugmi/sense-api/internal/domain"
	"github.com/yugmi/sense-api/internal/repository"
	"github.com/yugmi/sense-api/internal/testutil"
)

func TestCaptureRepository_AnalysisLock(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewCaptureRepository(db)
	ctx := context.Background()

	user := testutil.CreateIndividual(t, db)
	project := testutil.CreateProject(t, db, user, "Bridge")
	site := testutil.CreateSite(t, db, project, "Pier 1", domain.OperationInspection)
	capture := testutil.CreateCapture(t, db, site, user)

	now := time.Now().UTC()
	staleBefore := now.Add(-10 * time.Minute)

	started, err := repo.TryStartAnalysis(ctx, capture.ID, now, staleBefore)
	require.NoError(t, err)
	assert.True(t, started)

	started, err = repo.TryStartAnalysis(ctx, capture.ID, now.Add(time.Second), staleBefore)
	require.NoError(t, err)
	assert.False(t, started, "second analysis must not start while one is in flight")

	// a lock older than the stale cutoff can be reclaimed
	started, err = repo.TryStartAnalysis(ctx, capture.ID, now.Add(time.Hour), now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, started)

	analysis := &domain.AIAnalysis{Summary: "All good", Defects: []domain.Defect{}, Confidence: 0.9, APIProvider: "gemini"}
	require.NoError(t, repo.CompleteAnalysis(ctx, capture.ID, analysis))

	stored, err := repo.GetByID(ctx, capture.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProcessingCompleted, stored.ProcessingStatus)
	require.NotNil(t, stored.Analysis())
	assert.Equal(t, "All good", stored.Analysis().Summary)
	assert.Nil(t, stored.AnalysisStartedAt)

	// failure keeps the previous analysis
	started, err = repo.TryStartAnalysis(ctx, capture.ID, now, staleBefore)
	require.NoError(t, err)
	require.True(t, started)
	require.NoError(t, repo.FailAnalysis(ctx, capture.ID))

	stored, err = repo.GetByID(ctx, capture.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProcessingFailed, stored.ProcessingStatus)
	require.NotNil(t, stored.Analysis())
	assert.Equal(t, "All good", stored.Analysis().Summary)
}

func TestCaptureRepository_FailStale(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewCaptureRepository(db)
	ctx := context.Background()

	user := testutil.CreateIndividual(t, db)
	project := testutil.CreateProject(t, db, user, "Bridge")
	site := testutil.CreateSite(t, db, project, "Pier 1", domain.OperationInspection)
	stuck := testutil.CreateCapture(t, db, site, user)
	fresh := testutil.CreateCapture(t, db, site, user)

	now := time.Now().UTC()
	_, err := repo.TryStartAnalysis(ctx, stuck.ID, now.Add(-time.Hour), now.Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = repo.TryStartAnalysis(ctx, fresh.ID, now, now.Add(-time.Hour))
	require.NoError(t, err)

	swept, err := repo.FailStale(ctx, now.Add(-10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), swept)

	got, err := repo.GetByID(ctx, stuck.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProcessingFailed, got.ProcessingStatus)

	got, err = repo.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProcessingInProgress, got.ProcessingStatus)
}

func TestCaptureRepository_MarkSharedAccumulates(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewCaptureRepository(db)
	ctx := context.Background()

	user := testutil.CreateIndividual(t, db)
	project := testutil.CreateProject(t, db, user, "Bridge")
	site := testutil.CreateSite(t, db, project, "Pier 1", domain.OperationInspection)
	capture := testutil.CreateCapture(t, db, site, user)

	via, err := repo.MarkShared(ctx, capture.ID, domain.ShareEmail)
	require.NoError(t, err)
	assert.True(t, via.Email)

	via, err = repo.MarkShared(ctx, capture.ID, domain.ShareWhatsApp)
	require.NoError(t, err)
	assert.True(t, via.Email)
	assert.True(t, via.WhatsApp)

	require.NoError(t, repo.MarkReported(ctx, []uuid.UUID{capture.ID}))

	got, err := repo.GetByID(ctx, capture.ID)
	require.NoError(t, err)
	assert.True(t, got.IsShared)
	assert.Equal(t, domain.SharedVia{Email: true, WhatsApp: true, Report: true}, got.SharedVia.Data())
}

func TestCaptureRepository_OwnedAndVisible(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewCaptureRepository(db)

	org, admin := testutil.CreateOrganization(t, db, "Acme")
	project := testutil.CreateProject(t, db, admin, "Tower")
	site := testutil.CreateSite(t, db, project, "North", domain.OperationProgressMonitoring)

	role := testutil.CreateRole(t, db, org.ID, "Crew", domain.DefaultPermissions(), domain.FullScope())
	crew := testutil.CreateOrgUser(t, db, org, role, "crew")

	adminCapture := testutil.CreateCapture(t, db, site, admin)
	crewCapture := testutil.CreateCapture(t, db, site, crew)

	crewCtx := auth.WithUserContext(context.Background(), testutil.UserContext(t, db, crew))

	owned, total, err := repo.ListOwned(crewCtx, repository.CaptureFilter{Page: repository.NewPagination(1, 20)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, owned, 1)
	assert.Equal(t, crewCapture.ID, owned[0].ID)

	visible, total, err := repo.ListVisible(crewCtx, repository.CaptureFilter{
		ProjectID: &project.ID,
		Page:      repository.NewPagination(1, 20),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, visible, 2)

	_, err = repo.GetOwned(crewCtx, adminCapture.ID)
	assert.Error(t, err)

	got, err := repo.GetOwned(crewCtx, crewCapture.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Site)
	assert.Equal(t, site.ID, got.Site.ID)
}

func TestSiteRepository_UpsertAccess(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewSiteRepository(db)
	ctx := context.Background()

	org, admin := testutil.CreateOrganization(t, db, "Acme")
	project := testutil.CreateProject(t, db, admin, "Tower")
	site := testutil.CreateSite(t, db, project, "North", domain.OperationProgressMonitoring)
	role := testutil.CreateRole(t, db, org.ID, "Crew", domain.DefaultPermissions(), domain.FullScope())
	crew := testutil.CreateOrgUser(t, db, org, role, "crew")

	for _, level := range []domain.AccessLevel{domain.AccessCapture, domain.AccessFull} {
		require.NoError(t, repo.UpsertAccess(ctx, &domain.UserSiteAccess{
			UserID:      crew.ID,
			SiteID:      site.ID,
			AccessLevel: level,
			GrantedByID: &admin.ID,
		}))
	}

	var count int64
	require.NoError(t, db.Model(&domain.UserSiteAccess{}).Where("user_id = ? AND site_id = ?", crew.ID, site.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	access, err := repo.GetAccess(ctx, crew.ID, site.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AccessFull, access.AccessLevel)
}
