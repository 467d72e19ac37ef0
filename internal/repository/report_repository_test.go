package repository_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yugmi/sense-api/internal/domain"
	"github.com/yugmi/sense-api/internal/repository"
	"github.com/yugmi/sense-api/internal/testutil"
	"gorm.io/datatypes"
)

func newReport(site *domain.Site, user *domain.User, captureIDs ...uuid.UUID) *domain.Report {
	return &domain.Report{
		SiteID:      site.ID,
		CreatedByID: user.ID,
		ReportType:  domain.ReportInspection,
		Title:       "Pier inspection",
		CaptureIDs:  datatypes.NewJSONSlice(captureIDs),
		ReportData:  datatypes.NewJSONType(domain.ReportData{TotalCaptures: len(captureIDs)}),
		Status:      domain.ReportGenerated,
	}
}

func TestReportRepository_CreateFlagsCaptures(t *testing.T) {
	db := testutil.NewTestDB(t)
	reports := repository.NewReportRepository(db)
	captures := repository.NewCaptureRepository(db)
	ctx := context.Background()

	user := testutil.CreateIndividual(t, db)
	project := testutil.CreateProject(t, db, user, "Bridge")
	site := testutil.CreateSite(t, db, project, "Pier 1", domain.OperationInspection)
	included := testutil.CreateCapture(t, db, site, user)
	excluded := testutil.CreateCapture(t, db, site, user)

	first := newReport(site, user, included.ID)
	require.NoError(t, reports.Create(ctx, first))

	got, err := captures.GetByID(ctx, included.ID)
	require.NoError(t, err)
	assert.True(t, got.SharedVia.Data().Report)

	got, err = captures.GetByID(ctx, excluded.ID)
	require.NoError(t, err)
	assert.False(t, got.SharedVia.Data().Report)

	t.Run("failed insert leaves captures untouched", func(t *testing.T) {
		duplicate := newReport(site, user, excluded.ID)
		duplicate.ID = first.ID

		require.Error(t, reports.Create(ctx, duplicate))

		got, err := captures.GetByID(ctx, excluded.ID)
		require.NoError(t, err)
		assert.False(t, got.SharedVia.Data().Report)
	})
}
