package handler

import (
	"errors"
	"net/http"

	"github.com/yugmi/sense-api/internal/domain"
	"github.com/yugmi/sense-api/internal/service"
	"go.uber.org/zap"
)

type SiteHandler struct {
	siteService *service.SiteService
	logger      *zap.Logger
}

func NewSiteHandler(siteService *service.SiteService, logger *zap.Logger) *SiteHandler {
	return &SiteHandler{
		siteService: siteService,
		logger:      logger,
	}
}

// List godoc
// @Summary List sites
// @Tags Sites
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param projectId query string false "Filter by project" format(uuid)
// @Param operationType query string false "Filter by operation type" Enums(progress-monitoring, auditing, inspection)
// @Success 200 {object} domain.APIResponse{data=domain.PaginatedResponse}
// @Failure 400 {object} domain.APIResponse
// @Security BearerAuth
// @Router /sites [get]
func (h *SiteHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	projectID, err := queryUUID(r, "projectId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	params := service.SiteListParams{Page: page, PageSize: pageSize, ProjectID: projectID}
	if op := r.URL.Query().Get("operationType"); op != "" {
		opType := domain.OperationType(op)
		params.OperationType = &opType
	}

	result, err := h.siteService.List(r.Context(), params)
	if err != nil {
		h.handleSiteError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Sites retrieved", result)
}

// Create godoc
// @Summary Create site
// @Tags Sites
// @Accept json
// @Produce json
// @Param request body domain.CreateSiteRequest true "Site data"
// @Success 201 {object} domain.APIResponse{data=domain.SiteDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /sites [post]
func (h *SiteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateSiteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	site, err := h.siteService.Create(r.Context(), &req)
	if err != nil {
		h.handleSiteError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusCreated, "Site created successfully", site)
}

// GetByID godoc
// @Summary Get site
// @Description Site with project name and authorized users
// @Tags Sites
// @Produce json
// @Param id path string true "Site ID" format(uuid)
// @Success 200 {object} domain.APIResponse{data=domain.SiteDTO}
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /sites/{id} [get]
func (h *SiteHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid site ID")
		return
	}

	site, err := h.siteService.GetByID(r.Context(), id)
	if err != nil {
		h.handleSiteError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Site retrieved", site)
}

// Update godoc
// @Summary Update site
// @Tags Sites
// @Accept json
// @Produce json
// @Param id path string true "Site ID" format(uuid)
// @Param request body domain.UpdateSiteRequest true "Site changes"
// @Success 200 {object} domain.APIResponse{data=domain.SiteDTO}
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /sites/{id} [put]
func (h *SiteHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid site ID")
		return
	}

	var req domain.UpdateSiteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	site, err := h.siteService.Update(r.Context(), id, &req)
	if err != nil {
		h.handleSiteError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Site updated successfully", site)
}

// Delete godoc
// @Summary Delete site
// @Description Soft-deletes a site. Fails while the site has captures.
// @Tags Sites
// @Produce json
// @Param id path string true "Site ID" format(uuid)
// @Success 200 {object} domain.APIResponse
// @Failure 409 {object} domain.APIResponse
// @Security BearerAuth
// @Router /sites/{id} [delete]
func (h *SiteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid site ID")
		return
	}

	if err := h.siteService.Delete(r.Context(), id); err != nil {
		h.handleSiteError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Site deleted successfully", nil)
}

// AssignUser godoc
// @Summary Grant a member access to a site
// @Description Organization admins only. Re-assigning updates the access level.
// @Tags Sites
// @Accept json
// @Produce json
// @Param request body domain.AssignUserRequest true "Assignment"
// @Success 200 {object} domain.APIResponse{data=domain.SiteAccessDTO}
// @Failure 403 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /sites/assign-user [post]
func (h *SiteHandler) AssignUser(w http.ResponseWriter, r *http.Request) {
	var req domain.AssignUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	access, err := h.siteService.AssignUser(r.Context(), &req)
	if err != nil {
		h.handleSiteError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "User assigned to site successfully", access)
}

func (h *SiteHandler) handleSiteError(w http.ResponseWriter, r *http.Request, err error) {
	if handleCommonError(w, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrSiteNotFound):
		respondWithError(w, http.StatusNotFound, "Site not found")
	case errors.Is(err, service.ErrProjectNotFound):
		respondWithError(w, http.StatusNotFound, "Project not found")
	case errors.Is(err, service.ErrUserNotFound):
		respondWithError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, service.ErrSiteHasCaptures):
		respondWithError(w, http.StatusConflict, "Cannot delete site with existing captures")
	case errors.Is(err, service.ErrInvalidOperationType):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		logFailure(h.logger, r, "site request failed", err)
		respondInternalError(w, "Site request failed", err)
	}
}
