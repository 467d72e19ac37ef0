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
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func progress(v float64) *float64 { return &v }

func analyzedCapture(t *testing.T, db *gorm.DB, site *domain.Site, user *domain.User, wbs string, analysis *domain.AIAnalysis) *domain.Capture {
	t.Helper()
	capture := testutil.CreateCapture(t, db, site, user)
	capture.WBSID = wbs
	capture.AIAnalysis = datatypes.NewJSONType(analysis)
	capture.ProcessingStatus = domain.ProcessingCompleted
	require.NoError(t, db.Model(capture).Select("wbs_id", "ai_analysis", "processing_status").Updates(capture).Error)
	return capture
}

func TestAggregateReportData(t *testing.T) {
	captures := []domain.Capture{
		{WBSID: "A", AIAnalysis: datatypes.NewJSONType(&domain.AIAnalysis{
			Defects:        []domain.Defect{{Type: "crack"}, {Type: "spalling"}},
			ProgressStatus: progress(40),
			Extra:          map[string]interface{}{"recommendations": []interface{}{"Patch slab", "Add bracing"}},
		})},
		{WBSID: "A", AIAnalysis: datatypes.NewJSONType(&domain.AIAnalysis{
			Defects:        []domain.Defect{{Type: "rust"}},
			ProgressStatus: progress(60),
			Extra:          map[string]interface{}{"correctiveActions": "Patch slab"},
		})},
		{WBSID: "B", AIAnalysis: datatypes.NewJSONType(&domain.AIAnalysis{ProgressStatus: progress(90)})},
		{AIAnalysis: datatypes.NewJSONType[*domain.AIAnalysis](nil)},
	}

	data := service.AggregateReportData(captures)

	assert.Equal(t, 4, data.TotalCaptures)
	assert.Equal(t, 3, data.DefectsFound)
	require.NotNil(t, data.ProgressPercentage)
	assert.InDelta(t, 63.333, *data.ProgressPercentage, 0.01)
	assert.Equal(t, []string{"Patch slab", "Add bracing"}, data.Recommendations)
	assert.Equal(t, map[string]float64{"A": 50, "B": 90}, data.WBSProgress)

	empty := service.AggregateReportData(nil)
	assert.Equal(t, 0, empty.TotalCaptures)
	assert.Nil(t, empty.ProgressPercentage)
	assert.Empty(t, empty.Recommendations)
}

func TestReportService_Lifecycle(t *testing.T) {
	db := testutil.NewTestDB(t)
	mailer := &fakeMailer{}
	messenger := &fakeMessenger{}
	captureRepo := repository.NewCaptureRepository(db)
	svc := service.NewReportService(
		repository.NewReportRepository(db),
		repository.NewSiteRepository(db),
		captureRepo,
		mailer,
		messenger,
		zap.NewNop(),
	)

	user := testutil.CreateIndividual(t, db)
	project := testutil.CreateProject(t, db, user, "Tower")
	site := testutil.CreateSite(t, db, project, "Level 3", domain.OperationProgressMonitoring)
	otherSite := testutil.CreateSite(t, db, project, "Level 4", domain.OperationProgressMonitoring)
	ctx := asUser(t, db, user)

	first := analyzedCapture(t, db, site, user, "WBS-1", &domain.AIAnalysis{
		Defects:        []domain.Defect{{Type: "crack", Severity: domain.SeverityHigh}},
		ProgressStatus: progress(70),
	})
	second := analyzedCapture(t, db, site, user, "WBS-1", &domain.AIAnalysis{ProgressStatus: progress(80)})
	foreign := testutil.CreateCapture(t, db, otherSite, user)

	t.Run("selected captures", func(t *testing.T) {
		report, err := svc.Create(ctx, &domain.CreateReportRequest{
			SiteID:     site.ID,
			ReportType: domain.ReportProgress,
			Title:      "Weekly progress",
			CaptureIDs: []uuid.UUID{first.ID, second.ID, first.ID},
		})
		require.NoError(t, err)

		assert.Equal(t, domain.ReportGenerated, report.Status)
		assert.Equal(t, "Level 3", report.SiteName)
		assert.ElementsMatch(t, []uuid.UUID{first.ID, second.ID}, report.CaptureIDs)
		assert.Equal(t, 2, report.ReportData.TotalCaptures)
		assert.Equal(t, 1, report.ReportData.DefectsFound)
		require.NotNil(t, report.ReportData.ProgressPercentage)
		assert.InDelta(t, 75.0, *report.ReportData.ProgressPercentage, 0.001)

		stored, err := captureRepo.GetByID(ctx, first.ID)
		require.NoError(t, err)
		assert.True(t, stored.SharedVia.Data().Report)

		fetched, err := svc.GetByID(ctx, report.ID)
		require.NoError(t, err)
		assert.Equal(t, report.Title, fetched.Title)

		result, err := svc.Share(ctx, report.ID, &domain.ShareRequest{Method: domain.ShareEmail, Recipient: "owner@example.com"})
		require.NoError(t, err)
		assert.Equal(t, domain.ShareEmail, result.Method)
		require.Len(t, mailer.sent, 1)
		assert.Equal(t, "Weekly progress", mailer.sent[0].Subject)

		fetched, err = svc.GetByID(ctx, report.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ReportShared, fetched.Status)
	})

	t.Run("all site captures when none selected", func(t *testing.T) {
		report, err := svc.Create(ctx, &domain.CreateReportRequest{
			SiteID:     site.ID,
			ReportType: domain.ReportInspection,
			Title:      "Full inspection",
		})
		require.NoError(t, err)
		assert.Equal(t, 2, report.ReportData.TotalCaptures)
	})

	t.Run("captures of another site", func(t *testing.T) {
		_, err := svc.Create(ctx, &domain.CreateReportRequest{
			SiteID:     site.ID,
			ReportType: domain.ReportAudit,
			Title:      "Mixed",
			CaptureIDs: []uuid.UUID{first.ID, foreign.ID},
		})
		assert.ErrorIs(t, err, service.ErrInvalidCaptureSelection)
	})

	t.Run("list and visibility", func(t *testing.T) {
		resp, err := svc.List(ctx, service.ReportListParams{Page: 1, PageSize: 20})
		require.NoError(t, err)
		assert.Equal(t, int64(2), resp.Total)

		stranger := testutil.CreateIndividual(t, db)
		strangerCtx := asUser(t, db, stranger)
		resp, err = svc.List(strangerCtx, service.ReportListParams{})
		require.NoError(t, err)
		assert.Equal(t, int64(0), resp.Total)

		_, err = svc.Create(strangerCtx, &domain.CreateReportRequest{SiteID: site.ID, ReportType: domain.ReportAudit, Title: "Nope"})
		assert.ErrorIs(t, err, service.ErrSiteNotFound)
	})
}
