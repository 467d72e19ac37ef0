package handler

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/yugmi/sense-api/internal/domain"
	"github.com/yugmi/sense-api/internal/service"
	"github.com/yugmi/sense-api/internal/vision"
	"go.uber.org/zap"
)

// multipart overhead allowed on top of the media size limit
const multipartSlack = 1 << 20

type CaptureHandler struct {
	captureService  *service.CaptureService
	analysisService *service.AnalysisService
	maxUploadBytes  int64
	logger          *zap.Logger
}

func NewCaptureHandler(captureService *service.CaptureService, analysisService *service.AnalysisService, maxUploadBytes int64, logger *zap.Logger) *CaptureHandler {
	return &CaptureHandler{
		captureService:  captureService,
		analysisService: analysisService,
		maxUploadBytes:  maxUploadBytes,
		logger:          logger,
	}
}

// Create godoc
// @Summary Upload capture
// @Description Upload a photo or video with its sensor data. The capture starts in pending state.
// @Tags Captures
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Media file"
// @Param siteId formData string true "Site ID" format(uuid)
// @Param mediaType formData string false "Media type, inferred from the file when absent" Enums(image, video)
// @Param sensorData formData string true "Sensor data as JSON"
// @Param wbsId formData string false "WBS element"
// @Param structurePart formData string false "Structure part"
// @Param duration formData int false "Video duration in seconds"
// @Param fileName formData string false "File path on the device"
// @Success 201 {object} domain.APIResponse{data=domain.CaptureDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Failure 413 {object} domain.APIResponse
// @Failure 502 {object} domain.APIResponse
// @Security BearerAuth
// @Router /captures [post]
func (h *CaptureHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartSlack)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, service.ErrFileTooLarge.Error())
			return
		}
		respondWithError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	siteID, err := uuid.Parse(r.FormValue("siteId"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, domain.APIResponse{
			Success: false,
			Message: "Validation failed",
			Errors:  []domain.ValidationFieldError{{Field: "siteId", Message: "Must be a valid UUID"}},
		})
		return
	}

	upload := &service.CaptureUpload{
		SiteID:        siteID,
		MediaType:     domain.MediaType(r.FormValue("mediaType")),
		SensorData:    r.FormValue("sensorData"),
		WBSID:         r.FormValue("wbsId"),
		StructurePart: r.FormValue("structurePart"),
		ClientPath:    r.FormValue("fileName"),
	}
	if d := r.FormValue("duration"); d != "" {
		duration, err := strconv.Atoi(d)
		if err != nil || duration < 0 {
			respondWithError(w, http.StatusBadRequest, "duration must be a non-negative integer")
			return
		}
		upload.Duration = &duration
	}

	file, header, err := r.FormFile("file")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		respondWithError(w, http.StatusBadRequest, "Invalid file upload")
		return
	}
	if file != nil {
		defer file.Close()
		reader, contentType, err := sniffContentType(file, header)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid file upload")
			return
		}
		upload.File = reader
		upload.FileName = header.Filename
		upload.ContentType = contentType
	}

	capture, err := h.captureService.Create(r.Context(), upload)
	if err != nil {
		h.handleCaptureError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusCreated, "Capture uploaded successfully", capture)
}

// sniffContentType returns the declared content type of the part, or detects it from
// the first bytes when the client sent none
func sniffContentType(file multipart.File, header *multipart.FileHeader) (io.Reader, string, error) {
	contentType := header.Header.Get("Content-Type")
	if contentType != "" && contentType != "application/octet-stream" {
		return file, contentType, nil
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, "", err
	}
	head = head[:n]
	return io.MultiReader(bytes.NewReader(head), file), http.DetectContentType(head), nil
}

// List godoc
// @Summary List own captures
// @Description Captures uploaded by the caller with signed URLs and annotation counts
// @Tags Captures
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param siteId query string false "Filter by site" format(uuid)
// @Param projectId query string false "Filter by project" format(uuid)
// @Param mediaType query string false "Filter by media type" Enums(image, video)
// @Param processingStatus query string false "Filter by analysis state" Enums(pending, processing, completed, failed)
// @Success 200 {object} domain.APIResponse{data=domain.PaginatedResponse}
// @Security BearerAuth
// @Router /captures [get]
func (h *CaptureHandler) List(w http.ResponseWriter, r *http.Request) {
	params, ok := captureListParams(w, r)
	if !ok {
		return
	}

	result, err := h.captureService.List(r.Context(), params)
	if err != nil {
		h.handleCaptureError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Captures retrieved", result)
}

// ListByProjectOrSite godoc
// @Summary List captures of a project or site
// @Description Captures of every uploader in sites visible to the caller
// @Tags Captures
// @Produce json
// @Param projectId query string false "Project ID" format(uuid)
// @Param siteId query string false "Site ID" format(uuid)
// @Success 200 {object} domain.APIResponse{data=domain.PaginatedResponse}
// @Failure 400 {object} domain.APIResponse
// @Security BearerAuth
// @Router /captures/by-project-or-site [get]
func (h *CaptureHandler) ListByProjectOrSite(w http.ResponseWriter, r *http.Request) {
	params, ok := captureListParams(w, r)
	if !ok {
		return
	}
	if params.ProjectID == nil && params.SiteID == nil {
		respondWithError(w, http.StatusBadRequest, "projectId or siteId is required")
		return
	}

	result, err := h.captureService.ListByProjectOrSite(r.Context(), params)
	if err != nil {
		h.handleCaptureError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Captures retrieved", result)
}

func captureListParams(w http.ResponseWriter, r *http.Request) (service.CaptureListParams, bool) {
	page, pageSize := pageParams(r)
	params := service.CaptureListParams{Page: page, PageSize: pageSize}

	var err error
	if params.SiteID, err = queryUUID(r, "siteId"); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return params, false
	}
	if params.ProjectID, err = queryUUID(r, "projectId"); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return params, false
	}
	if mt := r.URL.Query().Get("mediaType"); mt != "" {
		mediaType := domain.MediaType(mt)
		params.MediaType = &mediaType
	}
	if ps := r.URL.Query().Get("processingStatus"); ps != "" {
		status := domain.ProcessingStatus(ps)
		params.ProcessingStatus = &status
	}
	return params, true
}

// GetByID godoc
// @Summary Get capture
// @Description Own capture with signed URLs and annotations
// @Tags Captures
// @Produce json
// @Param id path string true "Capture ID" format(uuid)
// @Success 200 {object} domain.APIResponse{data=domain.CaptureDTO}
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /captures/{id} [get]
func (h *CaptureHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid capture ID")
		return
	}

	capture, err := h.captureService.GetByID(r.Context(), id)
	if err != nil {
		h.handleCaptureError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Capture retrieved", capture)
}

// Analyze godoc
// @Summary Run AI analysis
// @Description Analyze a capture with the prompt of its site's operation type
// @Tags Captures
// @Accept json
// @Produce json
// @Param request body domain.AnalysisRequest true "Analysis request"
// @Success 200 {object} domain.APIResponse{data=domain.AIAnalysis}
// @Failure 404 {object} domain.APIResponse
// @Failure 409 {object} domain.APIResponse
// @Failure 502 {object} domain.APIResponse
// @Failure 503 {object} domain.APIResponse
// @Security BearerAuth
// @Router /captures/analysis [post]
func (h *CaptureHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req domain.AnalysisRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	analysis, err := h.analysisService.Analyze(r.Context(), &req)
	if err != nil {
		h.handleCaptureError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "AI analysis completed", analysis)
}

// Redo godoc
// @Summary Redo AI analysis
// @Description Re-run the analysis, optionally with a custom prompt
// @Tags Captures
// @Accept json
// @Produce json
// @Param id path string true "Capture ID" format(uuid)
// @Param request body domain.RedoAnalysisRequest false "Custom prompt"
// @Success 200 {object} domain.APIResponse{data=domain.AIAnalysis}
// @Failure 404 {object} domain.APIResponse
// @Failure 409 {object} domain.APIResponse
// @Failure 502 {object} domain.APIResponse
// @Security BearerAuth
// @Router /captures/{id}/ai-analysis/redo [post]
func (h *CaptureHandler) Redo(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid capture ID")
		return
	}

	var req domain.RedoAnalysisRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	analysis, err := h.analysisService.Redo(r.Context(), id, &req)
	if err != nil {
		h.handleCaptureError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "AI analysis redone successfully", analysis)
}

// Share godoc
// @Summary Share capture
// @Description Send a time-limited link to the capture by email or WhatsApp
// @Tags Captures
// @Accept json
// @Produce json
// @Param id path string true "Capture ID" format(uuid)
// @Param request body domain.ShareRequest true "Share target"
// @Success 200 {object} domain.APIResponse{data=domain.ShareResultDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 502 {object} domain.APIResponse
// @Security BearerAuth
// @Router /captures/{id}/share [post]
func (h *CaptureHandler) Share(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid capture ID")
		return
	}

	var req domain.ShareRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.captureService.Share(r.Context(), id, &req)
	if err != nil {
		h.handleCaptureError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Capture shared successfully via "+string(result.Method), result)
}

// Annotate godoc
// @Summary Annotate capture
// @Tags Captures
// @Accept json
// @Produce json
// @Param id path string true "Capture ID" format(uuid)
// @Param request body domain.CreateAnnotationRequest true "Annotation"
// @Success 201 {object} domain.APIResponse{data=domain.AnnotationDTO}
// @Failure 404 {object} domain.APIResponse
// @Security BearerAuth
// @Router /captures/{id}/annotations [post]
func (h *CaptureHandler) Annotate(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid capture ID")
		return
	}

	var req domain.CreateAnnotationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	annotation, err := h.captureService.Annotate(r.Context(), id, &req)
	if err != nil {
		h.handleCaptureError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusCreated, "Annotation added successfully", annotation)
}

func (h *CaptureHandler) handleCaptureError(w http.ResponseWriter, r *http.Request, err error) {
	if handleCommonError(w, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrCaptureNotFound):
		respondWithError(w, http.StatusNotFound, "Capture not found")
	case errors.Is(err, service.ErrSiteNotFound):
		respondWithError(w, http.StatusNotFound, "Site not found or access denied")
	case errors.Is(err, service.ErrMediaRequired):
		respondWithError(w, http.StatusBadRequest, "Media file is required")
	case errors.Is(err, service.ErrSensorDataRequired),
		errors.Is(err, service.ErrInvalidSensorData),
		errors.Is(err, service.ErrInvalidMediaType),
		errors.Is(err, service.ErrInvalidShareMethod),
		errors.Is(err, service.ErrInvalidOperationType):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrFileTooLarge):
		respondWithError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrAnalysisInProgress):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, vision.ErrNoProvider):
		respondWithError(w, http.StatusServiceUnavailable, "AI analysis is not configured")
	case errors.Is(err, service.ErrAnalysisFailed):
		h.logger.Warn("ai analysis failed", zap.Error(err))
		respondJSON(w, http.StatusBadGateway, domain.APIResponse{Success: false, Message: "AI analysis failed", Error: err.Error()})
	case errors.Is(err, service.ErrShareFailed):
		h.logger.Warn("share failed", zap.Error(err))
		respondJSON(w, http.StatusBadGateway, domain.APIResponse{Success: false, Message: "Failed to share capture", Error: err.Error()})
	case errors.Is(err, service.ErrStorageFailed):
		logFailure(h.logger, r, "storage upload failed", err)
		respondJSON(w, http.StatusBadGateway, domain.APIResponse{Success: false, Message: "Failed to store media", Error: err.Error()})
	default:
		logFailure(h.logger, r, "capture request failed", err)
		respondInternalError(w, "Capture request failed", err)
	}
}
