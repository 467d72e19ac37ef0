package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yugmi/sense-api/internal/config"
	"github.com/yugmi/sense-api/internal/domain"
	"github.com/yugmi/sense-api/internal/logger"
	"github.com/yugmi/sense-api/internal/repository"
	"github.com/yugmi/sense-api/internal/storage"
	"github.com/yugmi/sense-api/internal/vision"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AnalysisService runs vision analyses of captures
type AnalysisService struct {
	captureRepo *repository.CaptureRepository
	store       storage.Storage
	analyzer    vision.Analyzer
	timeout     time.Duration
	staleAfter  time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// NewAnalysisService creates a new AnalysisService
func NewAnalysisService(
	captureRepo *repository.CaptureRepository,
	store storage.Storage,
	analyzer vision.Analyzer,
	cfg *config.VisionConfig,
	logger *zap.Logger,
) *AnalysisService {
	return &AnalysisService{
		captureRepo: captureRepo,
		store:       store,
		analyzer:    analyzer,
		timeout:     cfg.TimeoutDuration(),
		staleAfter:  cfg.StaleAfterDuration(),
		logger:      logger,
		now:         time.Now,
	}
}

type analysisJob struct {
	capture      *domain.Capture
	operation    domain.OperationType
	wbsID        string
	mediaURL     string
	customPrompt string
}

// Analyze runs the operation-specific analysis of one of the caller's captures.
// The operation type defaults to the site's and the WBS id to the capture's.
func (s *AnalysisService) Analyze(ctx context.Context, req *domain.AnalysisRequest) (*domain.AIAnalysis, error) {
	if _, err := authorize(ctx, domain.CanCapture); err != nil {
		return nil, err
	}
	if req.OperationType != "" && !req.OperationType.IsValid() {
		return nil, ErrInvalidOperationType
	}

	capture, err := s.getOwned(ctx, req.CaptureID)
	if err != nil {
		return nil, err
	}

	job := analysisJob{
		capture:   capture,
		operation: req.OperationType,
		wbsID:     strings.TrimSpace(req.WBSID),
		mediaURL:  strings.TrimSpace(req.MediaURL),
	}
	return s.run(ctx, job)
}

// Redo re-runs the analysis of a capture, optionally with a custom prompt. The previous
// analysis is kept when the new one fails.
func (s *AnalysisService) Redo(ctx context.Context, id uuid.UUID, req *domain.RedoAnalysisRequest) (*domain.AIAnalysis, error) {
	if _, err := authorize(ctx, domain.CanCapture); err != nil {
		return nil, err
	}

	capture, err := s.getOwned(ctx, id)
	if err != nil {
		return nil, err
	}

	job := analysisJob{
		capture:      capture,
		customPrompt: strings.TrimSpace(req.CustomPrompt),
	}
	return s.run(ctx, job)
}

func (s *AnalysisService) getOwned(ctx context.Context, id uuid.UUID) (*domain.Capture, error) {
	capture, err := s.captureRepo.GetOwned(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCaptureNotFound
		}
		return nil, fmt.Errorf("failed to get capture: %w", err)
	}
	return capture, nil
}

func (s *AnalysisService) run(ctx context.Context, job analysisJob) (*domain.AIAnalysis, error) {
	if s.analyzer.Provider() == vision.ProviderNone {
		return nil, vision.ErrNoProvider
	}

	capture := job.capture
	if job.operation == "" && capture.Site != nil {
		job.operation = capture.Site.OperationType
	}
	if job.wbsID == "" {
		job.wbsID = capture.WBSID
	}

	prompt := vision.PromptFor(job.operation, job.wbsID)
	if job.customPrompt != "" {
		prompt = job.customPrompt
	}

	start := s.now()
	started, err := s.captureRepo.TryStartAnalysis(ctx, capture.ID, start.UTC(), start.Add(-s.staleAfter).UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to start analysis: %w", err)
	}
	if !started {
		return nil, ErrAnalysisInProgress
	}

	log := logger.WithCapture(s.logger, capture.ID.String(), capture.SiteID.String())

	result, err := s.call(ctx, job, prompt)
	if err != nil {
		// the request context may already be done; the status must still leave processing
		if ferr := s.captureRepo.FailAnalysis(context.WithoutCancel(ctx), capture.ID); ferr != nil {
			log.Error("failed to mark analysis failed", zap.Error(ferr))
		}
		log.Warn("analysis failed",
			zap.String("provider", s.analyzer.Provider()),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	analysis := vision.ParseResponse(result.Text)
	analysis.APIProvider = result.Provider
	analysis.ProcessedAt = s.now().UTC()
	analysis.ProcessingTime = analysis.ProcessedAt.Sub(start).Milliseconds()
	if job.customPrompt != "" {
		custom := job.customPrompt
		analysis.CustomPrompt = &custom
	}

	if err := s.captureRepo.CompleteAnalysis(context.WithoutCancel(ctx), capture.ID, analysis); err != nil {
		return nil, fmt.Errorf("failed to store analysis: %w", err)
	}

	log.Info("analysis completed",
		zap.String("provider", result.Provider),
		zap.String("model", result.Model),
		zap.String("operation_type", string(job.operation)),
		zap.Int("defects", len(analysis.Defects)),
		zap.Int64("processing_time_ms", analysis.ProcessingTime))

	return analysis, nil
}

// call sends the capture media to the analyzer. An explicit media URL is fetched by the
// analyzer; otherwise the stored object is read directly.
func (s *AnalysisService) call(ctx context.Context, job analysisJob, prompt string) (*vision.Result, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req := vision.Request{
		Prompt:   prompt,
		MimeType: job.capture.MimeType,
	}
	if job.mediaURL != "" {
		req.MediaURL = job.mediaURL
	} else {
		data, err := s.readMedia(ctx, job.capture.StorageKey)
		if err != nil {
			return nil, err
		}
		req.MediaData = data
	}

	return s.analyzer.Analyze(ctx, req)
}

func (s *AnalysisService) readMedia(ctx context.Context, key string) ([]byte, error) {
	rc, err := s.store.Download(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read capture media: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read capture media: %w", err)
	}
	return data, nil
}

// SweepStale fails analyses that have been processing for longer than the stale window
func (s *AnalysisService) SweepStale(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.staleAfter).UTC()
	count, err := s.captureRepo.FailStale(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep stale analyses: %w", err)
	}
	if count > 0 {
		s.logger.Warn("stale analyses marked failed", zap.Int64("count", count))
	}
	return count, nil
}
