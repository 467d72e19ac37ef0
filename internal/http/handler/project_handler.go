package handler

import (
	"errors"
	"net/http"

	"github.com/yugmi/sense-api/internal/domain"
	"github.com/yugmi/sense-api/internal/service"
	"go.uber.org/zap"
)

type ProjectHandler struct {
	projectService *service.ProjectService
	logger         *zap.Logger
}

func NewProjectHandler(projectService *service.ProjectService, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		logger:         logger,
	}
}

// List godoc
// @Summary List projects
// @Description Get paginated list of projects owned by the caller and inside its role scope
// @Tags Projects
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param status query string false "Filter by status" Enums(planning, active, on-hold, completed, cancelled)
// @Param includeRetired query bool false "Include deleted projects"
// @Success 200 {object} domain.APIResponse{data=domain.PaginatedResponse}
// @Failure 401 {object} domain.APIResponse
// @Failure 403 {object} domain.APIResponse
// @Security BearerAuth
// @Router /projects [get]
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	params := service.ProjectListParams{
		Page:           page,
		PageSize:       pageSize,
		IncludeRetired: r.URL.Query().Get("includeRetired") == "true",
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.ProjectStatus(s)
		params.Status = &status
	}

	result, err := h.projectService.List(r.Context(), params)
	if err != nil {
		h.handleProjectError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Projects retrieved", result)
}

// Create godoc
// @Summary Create project
// @Tags Projects
// @Accept json
// @Produce json
// @Param request body domain.CreateProjectRequest true "Project data"
// @Success 201 {object} domain.APIResponse{data=domain.ProjectDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 403 {object} domain.APIResponse
// @Failure 409 {object} domain.APIResponse
// @Security BearerAuth
// @Router /projects [post]
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateProjectRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	project, err := h.projectService.Create(r.Context(), &req)
	if err != nil {
		h.handleProjectError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusCreated, "Project created successfully", project)
}

// GetByID godoc
// @Summary Get project
// @Tags Projects
// @Produce json
// @Param id path string true "Project ID" format(uuid)
// @Success 200 {object} domain.APIResponse{data=domain.ProjectDTO}
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /projects/{id} [get]
func (h *ProjectHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	project, err := h.projectService.GetByID(r.Context(), id)
	if err != nil {
		h.handleProjectError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Project retrieved", project)
}

// Update godoc
// @Summary Update project
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID" format(uuid)
// @Param request body domain.UpdateProjectRequest true "Project changes"
// @Success 200 {object} domain.APIResponse{data=domain.ProjectDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /projects/{id} [put]
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	var req domain.UpdateProjectRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	project, err := h.projectService.Update(r.Context(), id, &req)
	if err != nil {
		h.handleProjectError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Project updated successfully", project)
}

// Delete godoc
// @Summary Delete project
// @Description Soft-deletes a project. Fails while the project has active sites.
// @Tags Projects
// @Produce json
// @Param id path string true "Project ID" format(uuid)
// @Success 200 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Failure 409 {object} domain.APIResponse
// @Security BearerAuth
// @Router /projects/{id} [delete]
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	if err := h.projectService.Delete(r.Context(), id); err != nil {
		h.handleProjectError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Project deleted successfully", nil)
}

func (h *ProjectHandler) handleProjectError(w http.ResponseWriter, r *http.Request, err error) {
	if handleCommonError(w, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrProjectNotFound):
		respondWithError(w, http.StatusNotFound, "Project not found")
	case errors.Is(err, service.ErrProjectHasSites):
		respondWithError(w, http.StatusConflict, "Cannot delete project with active sites")
	case errors.Is(err, service.ErrProjectQuotaExceeded):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidProjectStatus):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		logFailure(h.logger, r, "project request failed", err)
		respondInternalError(w, "Project request failed", err)
	}
}
