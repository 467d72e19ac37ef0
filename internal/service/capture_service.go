package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yugmi/sense-api/internal/config"
	"github.com/yugmi/sense-api/internal/domain"
	"github.com/yugmi/sense-api/internal/logger"
	"github.com/yugmi/sense-api/internal/mapper"
	"github.com/yugmi/sense-api/internal/media"
	"github.com/yugmi/sense-api/internal/notification"
	"github.com/yugmi/sense-api/internal/repository"
	"github.com/yugmi/sense-api/internal/storage"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultAnnotationColor       = "#FF0000"
	defaultAnnotationStrokeWidth = 2.0
	defaultMeasurementUnit       = "meters"
)

// CaptureUpload is a media upload together with its form fields
type CaptureUpload struct {
	SiteID        uuid.UUID
	MediaType     domain.MediaType
	SensorData    string
	WBSID         string
	StructurePart string
	Duration      *int
	// ClientPath is the file name reported by the device, kept as LocalFilePath
	ClientPath  string
	FileName    string
	ContentType string
	File        io.Reader
}

// CaptureListParams holds the query parameters of a capture listing
type CaptureListParams struct {
	Page             int
	PageSize         int
	SiteID           *uuid.UUID
	ProjectID        *uuid.UUID
	MediaType        *domain.MediaType
	ProcessingStatus *domain.ProcessingStatus
}

// CaptureService handles uploads, listings, sharing and annotation of captures
type CaptureService struct {
	captureRepo    *repository.CaptureRepository
	siteRepo       *repository.SiteRepository
	annotationRepo *repository.AnnotationRepository
	store          storage.Storage
	keys           *storage.KeyBuilder
	thumbnails     *media.Thumbnailer
	mailer         notification.Mailer
	messenger      notification.Messenger
	signedURLTTL   time.Duration
	shareURLTTL    time.Duration
	maxUploadBytes int64
	logger         *zap.Logger
	now            func() time.Time
}

// NewCaptureService creates a new CaptureService
func NewCaptureService(
	captureRepo *repository.CaptureRepository,
	siteRepo *repository.SiteRepository,
	annotationRepo *repository.AnnotationRepository,
	store storage.Storage,
	thumbnails *media.Thumbnailer,
	mailer notification.Mailer,
	messenger notification.Messenger,
	cfg *config.StorageConfig,
	logger *zap.Logger,
) *CaptureService {
	return &CaptureService{
		captureRepo:    captureRepo,
		siteRepo:       siteRepo,
		annotationRepo: annotationRepo,
		store:          store,
		keys:           storage.NewKeyBuilder(cfg.Namespace),
		thumbnails:     thumbnails,
		mailer:         mailer,
		messenger:      messenger,
		signedURLTTL:   cfg.SignedURLTTLDuration(),
		shareURLTTL:    cfg.ShareURLTTLDuration(),
		maxUploadBytes: cfg.MaxUploadBytes(),
		logger:         logger,
		now:            time.Now,
	}
}

// Create stores the uploaded media and records a pending capture. Images also get a
// thumbnail; thumbnail failures are logged and ignored.
func (s *CaptureService) Create(ctx context.Context, upload *CaptureUpload) (*domain.CaptureDTO, error) {
	userCtx, err := authorize(ctx, domain.CanCapture)
	if err != nil {
		return nil, err
	}
	if upload.File == nil {
		return nil, ErrMediaRequired
	}

	site, err := s.siteRepo.GetAccessible(ctx, upload.SiteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSiteNotFound
		}
		return nil, fmt.Errorf("failed to get site: %w", err)
	}

	sensorData, err := parseSensorData(upload.SensorData)
	if err != nil {
		return nil, err
	}

	mediaType, err := resolveMediaType(upload.MediaType, upload.ContentType)
	if err != nil {
		return nil, err
	}

	data, err := s.readUpload(upload.File)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	owner := storage.CaptureOwner{
		ProjectID: site.ProjectID,
		SiteID:    site.ID,
		UserID:    userCtx.UserID(),
	}
	if site.Project != nil {
		owner.OrganizationID = site.Project.OrganizationID
	}
	key := s.keys.CaptureKey(owner, upload.FileName, now)

	log := logger.WithUser(s.logger, userCtx.UserID().String(), string(userCtx.User.UserType))

	location, size, err := s.store.Upload(ctx, key, upload.ContentType, bytes.NewReader(data))
	if err != nil {
		log.Error("failed to upload capture media", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStorageFailed, err)
	}

	capture := &domain.Capture{
		SiteID:           site.ID,
		UserID:           userCtx.UserID(),
		MediaType:        mediaType,
		StorageKey:       key,
		FileURL:          location,
		LocalFilePath:    upload.ClientPath,
		FileName:         upload.FileName,
		FileSize:         size,
		MimeType:         upload.ContentType,
		Duration:         upload.Duration,
		SensorData:       datatypes.NewJSONType(sensorData),
		AIAnalysis:       datatypes.NewJSONType[*domain.AIAnalysis](nil),
		WBSID:            upload.WBSID,
		StructurePart:    upload.StructurePart,
		ProcessingStatus: domain.ProcessingPending,
		SharedVia:        datatypes.NewJSONType(domain.SharedVia{}),
	}

	if mediaType == domain.MediaImage {
		capture.ThumbnailKey = s.storeThumbnail(ctx, log, key, data)
	}

	if err := s.captureRepo.Create(ctx, capture); err != nil {
		s.discard(ctx, key, capture.ThumbnailKey)
		return nil, fmt.Errorf("failed to create capture: %w", err)
	}

	logger.WithCapture(log, capture.ID.String(), site.ID.String()).Info("capture created",
		zap.String("media_type", string(mediaType)),
		zap.Int64("file_size", size))

	capture.Site = site
	dto := s.toDTO(ctx, capture)
	return &dto, nil
}

func (s *CaptureService) readUpload(file io.Reader) ([]byte, error) {
	limit := s.maxUploadBytes
	if limit <= 0 {
		return io.ReadAll(file)
	}
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, ErrFileTooLarge
	}
	return data, nil
}

func (s *CaptureService) storeThumbnail(ctx context.Context, log *zap.Logger, key string, data []byte) string {
	thumb, err := s.thumbnails.Generate(bytes.NewReader(data))
	if err != nil {
		log.Warn("thumbnail generation failed", zap.String("key", key), zap.Error(err))
		return ""
	}

	thumbKey := storage.ThumbnailKey(key)
	if _, _, err := s.store.Upload(ctx, thumbKey, "image/jpeg", bytes.NewReader(thumb)); err != nil {
		log.Warn("thumbnail upload failed", zap.String("key", thumbKey), zap.Error(err))
		return ""
	}
	return thumbKey
}

func (s *CaptureService) discard(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("failed to delete orphaned object", zap.String("key", key), zap.Error(err))
		}
	}
}

// List returns captures uploaded by the caller
func (s *CaptureService) List(ctx context.Context, params CaptureListParams) (*domain.PaginatedResponse, error) {
	if _, err := authorize(ctx, domain.CanViewCaptures); err != nil {
		return nil, err
	}
	page := repository.NewPagination(params.Page, params.PageSize)
	captures, total, err := s.captureRepo.ListOwned(ctx, params.filter(page))
	if err != nil {
		return nil, fmt.Errorf("failed to list captures: %w", err)
	}
	return s.page(ctx, captures, total, page)
}

// ListByProjectOrSite returns captures of every site visible to the caller, not only
// its own uploads
func (s *CaptureService) ListByProjectOrSite(ctx context.Context, params CaptureListParams) (*domain.PaginatedResponse, error) {
	if _, err := authorize(ctx, domain.CanViewCaptures); err != nil {
		return nil, err
	}
	page := repository.NewPagination(params.Page, params.PageSize)
	captures, total, err := s.captureRepo.ListVisible(ctx, params.filter(page))
	if err != nil {
		return nil, fmt.Errorf("failed to list captures: %w", err)
	}
	return s.page(ctx, captures, total, page)
}

func (p CaptureListParams) filter(page repository.Pagination) repository.CaptureFilter {
	return repository.CaptureFilter{
		SiteID:           p.SiteID,
		ProjectID:        p.ProjectID,
		MediaType:        p.MediaType,
		ProcessingStatus: p.ProcessingStatus,
		Page:             page,
	}
}

func (s *CaptureService) page(ctx context.Context, captures []domain.Capture, total int64, page repository.Pagination) (*domain.PaginatedResponse, error) {
	ids := make([]uuid.UUID, len(captures))
	for i := range captures {
		ids[i] = captures[i].ID
	}
	counts, err := s.annotationRepo.CountByCaptures(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to count annotations: %w", err)
	}

	dtos := make([]domain.CaptureDTO, len(captures))
	for i := range captures {
		dtos[i] = s.toDTO(ctx, &captures[i])
		dtos[i].AnnotationCount = counts[captures[i].ID]
	}

	resp := mapper.NewPaginatedResponse(dtos, total, page.Page, page.PageSize)
	return &resp, nil
}

// GetByID returns one of the caller's captures with its annotations
func (s *CaptureService) GetByID(ctx context.Context, id uuid.UUID) (*domain.CaptureDTO, error) {
	if _, err := authorize(ctx, domain.CanViewCaptures); err != nil {
		return nil, err
	}

	capture, err := s.getOwned(ctx, id)
	if err != nil {
		return nil, err
	}

	dto := s.toDTO(ctx, capture)
	return &dto, nil
}

func (s *CaptureService) getOwned(ctx context.Context, id uuid.UUID) (*domain.Capture, error) {
	capture, err := s.captureRepo.GetOwned(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCaptureNotFound
		}
		return nil, fmt.Errorf("failed to get capture: %w", err)
	}
	return capture, nil
}

// toDTO maps a capture and attaches short-lived signed URLs
func (s *CaptureService) toDTO(ctx context.Context, capture *domain.Capture) domain.CaptureDTO {
	dto := mapper.ToCaptureDTO(capture)
	dto.SignedURL = s.signedURL(ctx, capture.StorageKey, s.signedURLTTL)
	if capture.ThumbnailKey != "" {
		dto.ThumbnailSignedURL = s.signedURL(ctx, capture.ThumbnailKey, s.signedURLTTL)
	}
	return dto
}

func (s *CaptureService) signedURL(ctx context.Context, key string, ttl time.Duration) string {
	if key == "" {
		return ""
	}
	url, err := s.store.SignedURL(ctx, key, ttl)
	if err != nil {
		s.logger.Warn("failed to sign object url", zap.String("key", key), zap.Error(err))
		return ""
	}
	return url
}

// Share sends a capture by email or WhatsApp and records the channel
func (s *CaptureService) Share(ctx context.Context, id uuid.UUID, req *domain.ShareRequest) (*domain.ShareResultDTO, error) {
	if _, err := authorize(ctx, domain.CanShareCaptures); err != nil {
		return nil, err
	}
	if req.Method != domain.ShareEmail && req.Method != domain.ShareWhatsApp {
		return nil, ErrInvalidShareMethod
	}

	capture, err := s.getOwned(ctx, id)
	if err != nil {
		return nil, err
	}

	shareURL, err := s.store.SignedURL(ctx, capture.StorageKey, s.shareURLTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign share url: %w", err)
	}

	view := captureShareView(capture, shareURL)
	recipient := strings.TrimSpace(req.Recipient)

	switch req.Method {
	case domain.ShareEmail:
		email, err := notification.RenderCaptureEmail(view)
		if err != nil {
			return nil, err
		}
		email.To = []string{recipient}
		err = s.mailer.SendEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("%w via email: %v", ErrShareFailed, err)
		}
	case domain.ShareWhatsApp:
		body, err := notification.RenderCaptureMessage(view)
		if err != nil {
			return nil, err
		}
		msg := notification.Message{To: recipient, Body: body}
		if capture.MediaType == domain.MediaImage {
			msg.MediaURL = shareURL
		} else {
			msg.Body += "\n\n" + shareURL
		}
		err = s.messenger.SendMessage(ctx, msg)
		if err != nil {
			return nil, fmt.Errorf("%w via whatsapp: %v", ErrShareFailed, err)
		}
	}

	sharedVia, err := s.captureRepo.MarkShared(ctx, capture.ID, req.Method)
	if err != nil {
		return nil, fmt.Errorf("failed to record share: %w", err)
	}

	s.logger.Info("capture shared",
		zap.String("capture_id", capture.ID.String()),
		zap.String("method", string(req.Method)))

	return &domain.ShareResultDTO{
		Method:    req.Method,
		Recipient: recipient,
		ShareURL:  shareURL,
		SharedVia: &sharedVia,
	}, nil
}

func captureShareView(capture *domain.Capture, mediaURL string) notification.CaptureShare {
	sensors := capture.SensorData.Data()
	view := notification.CaptureShare{
		CapturedAt:    capture.CreatedAt,
		Analysis:      capture.Analysis(),
		Latitude:      sensors.Latitude,
		Longitude:     sensors.Longitude,
		Altitude:      sensors.Altitude,
		WBSID:         capture.WBSID,
		StructurePart: capture.StructurePart,
		MediaURL:      mediaURL,
	}
	if capture.Site != nil {
		view.SiteName = capture.Site.Name
		view.OperationType = capture.Site.OperationType
	}
	return view
}

// Annotate adds an annotation to one of the caller's captures
func (s *CaptureService) Annotate(ctx context.Context, id uuid.UUID, req *domain.CreateAnnotationRequest) (*domain.AnnotationDTO, error) {
	userCtx, err := authorize(ctx, domain.CanAnnotate)
	if err != nil {
		return nil, err
	}

	capture, err := s.getOwned(ctx, id)
	if err != nil {
		return nil, err
	}

	color := req.Color
	if color == "" {
		color = defaultAnnotationColor
	}
	strokeWidth := defaultAnnotationStrokeWidth
	if req.StrokeWidth != nil {
		strokeWidth = *req.StrokeWidth
	}
	measurement := req.Measurement
	if measurement != nil && measurement.Unit == "" {
		m := *measurement
		m.Unit = defaultMeasurementUnit
		measurement = &m
	}
	coordinates := req.Coordinates
	if coordinates == nil {
		coordinates = []domain.Point{}
	}

	annotation := &domain.Annotation{
		CaptureID:   capture.ID,
		CreatedByID: userCtx.UserID(),
		Type:        req.Type,
		Coordinates: datatypes.NewJSONSlice(coordinates),
		Label:       req.Label,
		Measurement: datatypes.NewJSONType(measurement),
		Color:       color,
		StrokeWidth: strokeWidth,
		Notes:       req.Notes,
	}
	if err := s.annotationRepo.Create(ctx, annotation); err != nil {
		return nil, fmt.Errorf("failed to create annotation: %w", err)
	}

	dto := mapper.ToAnnotationDTO(annotation)
	return &dto, nil
}

// parseSensorData decodes the sensor payload form field
func parseSensorData(raw string) (domain.SensorData, error) {
	var data domain.SensorData
	if strings.TrimSpace(raw) == "" {
		return data, ErrSensorDataRequired
	}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return data, fmt.Errorf("%w: %v", ErrInvalidSensorData, err)
	}
	return data, nil
}

// resolveMediaType validates the declared media type or infers it from the MIME type
func resolveMediaType(declared domain.MediaType, contentType string) (domain.MediaType, error) {
	switch declared {
	case domain.MediaImage, domain.MediaVideo:
		return declared, nil
	case "":
	default:
		return "", ErrInvalidMediaType
	}

	switch {
	case strings.HasPrefix(contentType, "image/"):
		return domain.MediaImage, nil
	case strings.HasPrefix(contentType, "video/"):
		return domain.MediaVideo, nil
	}
	return "", ErrInvalidMediaType
}
