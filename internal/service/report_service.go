package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/yugmi/sense-api/internal/domain"
	"github.com/yugmi/sense-api/internal/mapper"
	"github.com/yugmi/sense-api/internal/notification"
	"github.com/yugmi/sense-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ReportListParams holds the query parameters of a report listing
type ReportListParams struct {
	Page       int
	PageSize   int
	SiteID     *uuid.UUID
	ReportType *domain.ReportType
	Status     *domain.ReportStatus
}

// ReportService generates and shares site reports
type ReportService struct {
	reportRepo  *repository.ReportRepository
	siteRepo    *repository.SiteRepository
	captureRepo *repository.CaptureRepository
	mailer      notification.Mailer
	messenger   notification.Messenger
	logger      *zap.Logger
}

// NewReportService creates a new ReportService
func NewReportService(
	reportRepo *repository.ReportRepository,
	siteRepo *repository.SiteRepository,
	captureRepo *repository.CaptureRepository,
	mailer notification.Mailer,
	messenger notification.Messenger,
	logger *zap.Logger,
) *ReportService {
	return &ReportService{
		reportRepo:  reportRepo,
		siteRepo:    siteRepo,
		captureRepo: captureRepo,
		mailer:      mailer,
		messenger:   messenger,
		logger:      logger,
	}
}

// Create aggregates the selected captures of a site into a generated report. Without
// an explicit selection every capture of the site is included.
func (s *ReportService) Create(ctx context.Context, req *domain.CreateReportRequest) (*domain.ReportDTO, error) {
	userCtx, err := authorize(ctx, domain.CanCreateReport)
	if err != nil {
		return nil, err
	}

	site, err := s.siteRepo.GetAccessible(ctx, req.SiteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSiteNotFound
		}
		return nil, fmt.Errorf("failed to get site: %w", err)
	}

	selection := uniqueIDs(req.CaptureIDs)
	captures, err := s.captureRepo.ListBySite(ctx, site.ID, selection)
	if err != nil {
		return nil, fmt.Errorf("failed to load captures: %w", err)
	}
	if len(selection) > 0 && len(captures) != len(selection) {
		return nil, ErrInvalidCaptureSelection
	}

	ids := make([]uuid.UUID, len(captures))
	for i := range captures {
		ids[i] = captures[i].ID
	}

	report := &domain.Report{
		SiteID:      site.ID,
		CreatedByID: userCtx.UserID(),
		ReportType:  req.ReportType,
		Title:       strings.TrimSpace(req.Title),
		Summary:     req.Summary,
		CaptureIDs:  datatypes.NewJSONSlice(ids),
		ReportData:  datatypes.NewJSONType(AggregateReportData(captures)),
		Status:      domain.ReportGenerated,
	}
	if err := s.reportRepo.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}

	s.logger.Info("report generated",
		zap.String("report_id", report.ID.String()),
		zap.String("site_id", site.ID.String()),
		zap.Int("captures", len(ids)))

	report.Site = site
	dto := mapper.ToReportDTO(report)
	return &dto, nil
}

// AggregateReportData summarizes the analyses of the given captures
func AggregateReportData(captures []domain.Capture) domain.ReportData {
	data := domain.ReportData{
		TotalCaptures:   len(captures),
		Recommendations: []string{},
		WBSProgress:     map[string]float64{},
	}

	var progressSum float64
	var progressCount int
	wbsSum := map[string]float64{}
	wbsCount := map[string]int{}
	seen := map[string]bool{}

	for i := range captures {
		analysis := captures[i].Analysis()
		if analysis == nil {
			continue
		}
		data.DefectsFound += len(analysis.Defects)

		if analysis.ProgressStatus != nil {
			progressSum += *analysis.ProgressStatus
			progressCount++
			if wbs := captures[i].WBSID; wbs != "" {
				wbsSum[wbs] += *analysis.ProgressStatus
				wbsCount[wbs]++
			}
		}

		for _, key := range []string{"recommendations", "correctiveActions"} {
			for _, rec := range stringsFrom(analysis.Extra[key]) {
				if !seen[rec] {
					seen[rec] = true
					data.Recommendations = append(data.Recommendations, rec)
				}
			}
		}
	}

	if progressCount > 0 {
		mean := progressSum / float64(progressCount)
		data.ProgressPercentage = &mean
	}
	for wbs, sum := range wbsSum {
		data.WBSProgress[wbs] = sum / float64(wbsCount[wbs])
	}
	return data
}

// stringsFrom flattens a decoded JSON value into its non-empty strings
func stringsFrom(value interface{}) []string {
	switch v := value.(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}
		}
	case []interface{}:
		var out []string
		for _, item := range v {
			out = append(out, stringsFrom(item)...)
		}
		return out
	case []string:
		var out []string
		for _, item := range v {
			out = append(out, stringsFrom(item)...)
		}
		return out
	}
	return nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// List returns reports of sites visible to the caller
func (s *ReportService) List(ctx context.Context, params ReportListParams) (*domain.PaginatedResponse, error) {
	if _, err := authorize(ctx, domain.CanViewReport); err != nil {
		return nil, err
	}

	page := repository.NewPagination(params.Page, params.PageSize)
	reports, total, err := s.reportRepo.List(ctx, repository.ReportFilter{
		SiteID:     params.SiteID,
		ReportType: params.ReportType,
		Status:     params.Status,
		Page:       page,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	dtos := make([]domain.ReportDTO, len(reports))
	for i := range reports {
		dtos[i] = mapper.ToReportDTO(&reports[i])
	}

	resp := mapper.NewPaginatedResponse(dtos, total, page.Page, page.PageSize)
	return &resp, nil
}

// GetByID returns a report whose site is visible to the caller
func (s *ReportService) GetByID(ctx context.Context, id uuid.UUID) (*domain.ReportDTO, error) {
	if _, err := authorize(ctx, domain.CanViewReport); err != nil {
		return nil, err
	}

	report, err := s.getAccessible(ctx, id)
	if err != nil {
		return nil, err
	}

	dto := mapper.ToReportDTO(report)
	return &dto, nil
}

func (s *ReportService) getAccessible(ctx context.Context, id uuid.UUID) (*domain.Report, error) {
	report, err := s.reportRepo.GetAccessible(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return report, nil
}

// Share sends the report summary by email or WhatsApp and marks it shared
func (s *ReportService) Share(ctx context.Context, id uuid.UUID, req *domain.ShareRequest) (*domain.ShareResultDTO, error) {
	if _, err := authorize(ctx, domain.CanShareCaptures); err != nil {
		return nil, err
	}
	if req.Method != domain.ShareEmail && req.Method != domain.ShareWhatsApp {
		return nil, ErrInvalidShareMethod
	}

	report, err := s.getAccessible(ctx, id)
	if err != nil {
		return nil, err
	}

	view := notification.ReportShare{
		Title:      report.Title,
		ReportType: report.ReportType,
		Summary:    report.Summary,
		CreatedAt:  report.CreatedAt,
		Data:       report.ReportData.Data(),
	}
	if report.Site != nil {
		view.SiteName = report.Site.Name
	}
	recipient := strings.TrimSpace(req.Recipient)

	switch req.Method {
	case domain.ShareEmail:
		email, err := notification.RenderReportEmail(view)
		if err != nil {
			return nil, err
		}
		email.To = []string{recipient}
		if err := s.mailer.SendEmail(ctx, email); err != nil {
			return nil, fmt.Errorf("%w via email: %v", ErrShareFailed, err)
		}
	case domain.ShareWhatsApp:
		body, err := notification.RenderReportMessage(view)
		if err != nil {
			return nil, err
		}
		msg := notification.Message{To: recipient, Body: body, MediaURL: report.PDFURL}
		if err := s.messenger.SendMessage(ctx, msg); err != nil {
			return nil, fmt.Errorf("%w via whatsapp: %v", ErrShareFailed, err)
		}
	}

	if err := s.reportRepo.UpdateStatus(ctx, report.ID, domain.ReportShared); err != nil {
		return nil, fmt.Errorf("failed to update report status: %w", err)
	}

	s.logger.Info("report shared",
		zap.String("report_id", report.ID.String()),
		zap.String("method", string(req.Method)))

	return &domain.ShareResultDTO{
		Method:    req.Method,
		Recipient: recipient,
		ShareURL:  report.PDFURL,
	}, nil
}
