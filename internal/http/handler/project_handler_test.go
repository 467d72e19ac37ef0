package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yugmi/sense-api/internal/domain"
	"github.com/yugmi/sense-api/internal/http/handler"
	"github.com/yugmi/sense-api/internal/repository"
	"github.com/yugmi/sense-api/internal/service"
	"github.com/yugmi/sense-api/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func createProjectHandler(t *testing.T) (*handler.ProjectHandler, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t)
	svc := service.NewProjectService(
		repository.NewProjectRepository(db),
		repository.NewOrganizationRepository(db),
		zap.NewNop(),
	)
	return handler.NewProjectHandler(svc, zap.NewNop()), db
}

func TestProjectHandler_CRUD(t *testing.T) {
	h, db := createProjectHandler(t)
	user := testutil.CreateIndividual(t, db)

	var created domain.ProjectDTO

	t.Run("create", func(t *testing.T) {
		req := asUser(t, db, jsonRequest(t, http.MethodPost, "/projects", map[string]interface{}{
			"name":      "Harbour Bridge Retrofit",
			"startDate": "2024-03-01",
			"address":   "Pier 4",
		}), user)

		rr := serve(h.Create, req)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		env := decodeData(t, rr, &created)
		assert.True(t, env.Success)
		assert.Equal(t, "Harbour Bridge Retrofit", created.Name)
		assert.Equal(t, domain.ProjectStatusPlanning, created.Status)
	})

	t.Run("get by id", func(t *testing.T) {
		req := asUser(t, db, httptest.NewRequest(http.MethodGet, "/projects/"+created.ID.String(), nil), user)
		rr := serve(h.GetByID, withURLParams(req, map[string]string{"id": created.ID.String()}))
		require.Equal(t, http.StatusOK, rr.Code)

		var dto domain.ProjectDTO
		decodeData(t, rr, &dto)
		assert.Equal(t, created.ID, dto.ID)
	})

	t.Run("invalid id", func(t *testing.T) {
		req := asUser(t, db, httptest.NewRequest(http.MethodGet, "/projects/abc", nil), user)
		rr := serve(h.GetByID, withURLParams(req, map[string]string{"id": "abc"}))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unknown id", func(t *testing.T) {
		id := uuid.NewString()
		req := asUser(t, db, httptest.NewRequest(http.MethodGet, "/projects/"+id, nil), user)
		rr := serve(h.GetByID, withURLParams(req, map[string]string{"id": id}))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("other user's project is not found", func(t *testing.T) {
		other := testutil.CreateIndividual(t, db)
		req := asUser(t, db, httptest.NewRequest(http.MethodGet, "/projects/"+created.ID.String(), nil), other)
		rr := serve(h.GetByID, withURLParams(req, map[string]string{"id": created.ID.String()}))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("update", func(t *testing.T) {
		req := asUser(t, db, jsonRequest(t, http.MethodPut, "/projects/"+created.ID.String(), map[string]interface{}{
			"status": "active",
		}), user)
		rr := serve(h.Update, withURLParams(req, map[string]string{"id": created.ID.String()}))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var dto domain.ProjectDTO
		decodeData(t, rr, &dto)
		assert.Equal(t, domain.ProjectStatusActive, dto.Status)
	})

	t.Run("invalid date", func(t *testing.T) {
		req := asUser(t, db, jsonRequest(t, http.MethodPost, "/projects", map[string]interface{}{
			"name":      "Broken Dates",
			"startDate": "first of march",
		}), user)
		rr := serve(h.Create, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("list", func(t *testing.T) {
		req := asUser(t, db, httptest.NewRequest(http.MethodGet, "/projects?page=1&pageSize=10", nil), user)
		rr := serve(h.List, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var page struct {
			Items []domain.ProjectDTO `json:"items"`
			Total int64               `json:"total"`
		}
		decodeData(t, rr, &page)
		assert.Equal(t, int64(1), page.Total)
		require.Len(t, page.Items, 1)
	})
}

func TestProjectHandler_Delete(t *testing.T) {
	h, db := createProjectHandler(t)
	user := testutil.CreateIndividual(t, db)

	t.Run("project with active sites conflicts", func(t *testing.T) {
		project := testutil.CreateProject(t, db, user, "With Sites")
		testutil.CreateSite(t, db, project, "North Wing", domain.OperationInspection)

		req := asUser(t, db, httptest.NewRequest(http.MethodDelete, "/projects/"+project.ID.String(), nil), user)
		rr := serve(h.Delete, withURLParams(req, map[string]string{"id": project.ID.String()}))
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("empty project is deleted", func(t *testing.T) {
		project := testutil.CreateProject(t, db, user, "Empty")

		req := asUser(t, db, httptest.NewRequest(http.MethodDelete, "/projects/"+project.ID.String(), nil), user)
		rr := serve(h.Delete, withURLParams(req, map[string]string{"id": project.ID.String()}))
		require.Equal(t, http.StatusOK, rr.Code)

		req = asUser(t, db, httptest.NewRequest(http.MethodGet, "/projects/"+project.ID.String(), nil), user)
		rr = serve(h.GetByID, withURLParams(req, map[string]string{"id": project.ID.String()}))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestProjectHandler_PermissionDenied(t *testing.T) {
	h, db := createProjectHandler(t)
	org, _ := testutil.CreateOrganization(t, db, "Acme Builders")
	viewer := testutil.CreateRole(t, db, org.ID, "Viewer", domain.DefaultPermissions(), domain.FullScope())
	member := testutil.CreateOrgUser(t, db, org, viewer, "viewer")

	req := asUser(t, db, jsonRequest(t, http.MethodPost, "/projects", map[string]interface{}{
		"name":      "Not Allowed",
		"startDate": "2024-03-01",
	}), member)

	rr := serve(h.Create, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "Insufficient permissions", decodeEnvelope(t, rr).Message)
}
