package handler

import (
	"errors"
	"net/http"

	"github.com/yugmi/sense-api/internal/domain"
	"github.com/yugmi/sense-api/internal/service"
	"go.uber.org/zap"
)

type ReportHandler struct {
	reportService *service.ReportService
	logger        *zap.Logger
}

func NewReportHandler(reportService *service.ReportService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		logger:        logger,
	}
}

// Create godoc
// @Summary Generate report
// @Description Aggregate the analyses of a site's captures into a report. Without captureIds every capture of the site is included.
// @Tags Reports
// @Accept json
// @Produce json
// @Param request body domain.CreateReportRequest true "Report data"
// @Success 201 {object} domain.APIResponse{data=domain.ReportDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /reports [post]
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateReportRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	report, err := h.reportService.Create(r.Context(), &req)
	if err != nil {
		h.handleReportError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusCreated, "Report generated successfully", report)
}

// List godoc
// @Summary List reports
// @Tags Reports
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param siteId query string false "Filter by site" format(uuid)
// @Param reportType query string false "Filter by type" Enums(progress, audit, inspection)
// @Param status query string false "Filter by status" Enums(draft, generated, shared)
// @Success 200 {object} domain.APIResponse{data=domain.PaginatedResponse}
// @Security BearerAuth
// @Router /reports [get]
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	siteID, err := queryUUID(r, "siteId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	params := service.ReportListParams{Page: page, PageSize: pageSize, SiteID: siteID}
	if rt := r.URL.Query().Get("reportType"); rt != "" {
		reportType := domain.ReportType(rt)
		params.ReportType = &reportType
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.ReportStatus(s)
		params.Status = &status
	}

	result, err := h.reportService.List(r.Context(), params)
	if err != nil {
		h.handleReportError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Reports retrieved", result)
}

// GetByID godoc
// @Summary Get report
// @Tags Reports
// @Produce json
// @Param id path string true "Report ID" format(uuid)
// @Success 200 {object} domain.APIResponse{data=domain.ReportDTO}
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /reports/{id} [get]
func (h *ReportHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid report ID")
		return
	}

	report, err := h.reportService.GetByID(r.Context(), id)
	if err != nil {
		h.handleReportError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Report retrieved", report)
}

// Share godoc
// @Summary Share report
// @Tags Reports
// @Accept json
// @Produce json
// @Param id path string true "Report ID" format(uuid)
// @Param request body domain.ShareRequest true "Share target"
// @Success 200 {object} domain.APIResponse{data=domain.ShareResultDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 502 {object} domain.APIResponse
// @Security BearerAuth
// @Router /reports/{id}/share [post]
func (h *ReportHandler) Share(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid report ID")
		return
	}

	var req domain.ShareRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.reportService.Share(r.Context(), id, &req)
	if err != nil {
		h.handleReportError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Report shared successfully via "+string(result.Method), result)
}

func (h *ReportHandler) handleReportError(w http.ResponseWriter, r *http.Request, err error) {
	if handleCommonError(w, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrReportNotFound):
		respondWithError(w, http.StatusNotFound, "Report not found")
	case errors.Is(err, service.ErrSiteNotFound):
		respondWithError(w, http.StatusNotFound, "Site not found or access denied")
	case errors.Is(err, service.ErrInvalidCaptureSelection), errors.Is(err, service.ErrInvalidShareMethod):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrShareFailed):
		h.logger.Warn("report share failed", zap.Error(err))
		respondJSON(w, http.StatusBadGateway, domain.APIResponse{Success: false, Message: "Failed to share report", Error: err.Error()})
	default:
		logFailure(h.logger, r, "report request failed", err)
		respondInternalError(w, "Report request failed", err)
	}
}
