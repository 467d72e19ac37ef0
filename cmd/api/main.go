package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yugmi/sense-api/docs"
	"github.com/yugmi/sense-api/internal/auth"
	"github.com/yugmi/sense-api/internal/config"
	"github.com/yugmi/sense-api/internal/database"
	"github.com/yugmi/sense-api/internal/http/handler"
	"github.com/yugmi/sense-api/internal/http/middleware"
	"github.com/yugmi/sense-api/internal/http/router"
	"github.com/yugmi/sense-api/internal/jobs"
	"github.com/yugmi/sense-api/internal/logger"
	"github.com/yugmi/sense-api/internal/media"
	"github.com/yugmi/sense-api/internal/notification"
	"github.com/yugmi/sense-api/internal/repository"
	"github.com/yugmi/sense-api/internal/service"
	"github.com/yugmi/sense-api/internal/storage"
	"github.com/yugmi/sense-api/internal/vision"
	"go.uber.org/zap"
)

// @title Yugmi Sense API
// @version 1.0
// @description Construction site capture API: projects, sites, media captures with AI analysis, annotations, sharing and reports
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@yugmi.io

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	// In staging/production secrets come from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	docs.SwaggerInfo.Host = swaggerHost(cfg)

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		log.Info("Database schema migrated", zap.String("driver", cfg.Database.Driver))
	}

	fileStorage, err := storage.NewStorage(&cfg.Storage, cfg.App.PublicURL, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	analyzer, err := vision.NewAnalyzer(ctx, &cfg.Vision, log)
	if err != nil {
		return fmt.Errorf("failed to initialize vision analyzer: %w", err)
	}
	log.Info("Vision analyzer initialized", zap.String("provider", analyzer.Provider()))

	mailer, messenger, err := notification.New(ctx, &cfg.Notification, log)
	if err != nil {
		return fmt.Errorf("failed to initialize notifications: %w", err)
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	siteRepo := repository.NewSiteRepository(db)
	captureRepo := repository.NewCaptureRepository(db)
	annotationRepo := repository.NewAnnotationRepository(db)
	reportRepo := repository.NewReportRepository(db)

	// Services
	tokens := auth.NewTokenService(&cfg.Auth)
	authService := service.NewAuthService(db, userRepo, orgRepo, tokens, cfg.Auth.BcryptCost, log)
	roleService := service.NewRoleService(roleRepo, log)
	userService := service.NewUserService(userRepo, roleRepo, orgRepo, cfg.Auth.BcryptCost, log)
	projectService := service.NewProjectService(projectRepo, orgRepo, log)
	siteService := service.NewSiteService(siteRepo, projectRepo, userRepo, log)
	captureService := service.NewCaptureService(
		captureRepo, siteRepo, annotationRepo,
		fileStorage, media.NewThumbnailer(),
		mailer, messenger,
		&cfg.Storage, log,
	)
	analysisService := service.NewAnalysisService(captureRepo, fileStorage, analyzer, &cfg.Vision, log)
	reportService := service.NewReportService(reportRepo, siteRepo, captureRepo, mailer, messenger, log)

	// HTTP
	handlers := router.Handlers{
		Auth:         handler.NewAuthHandler(authService, log),
		Organization: handler.NewOrganizationHandler(roleService, userService, log),
		Project:      handler.NewProjectHandler(projectService, log),
		Site:         handler.NewSiteHandler(siteService, log),
		Capture:      handler.NewCaptureHandler(captureService, analysisService, cfg.Storage.MaxUploadBytes(), log),
		Report:       handler.NewReportHandler(reportService, log),
		Health:       handler.NewHealthHandler(db, analyzer.Provider(), log),
	}
	if local, ok := fileStorage.(*storage.LocalStorage); ok {
		handlers.File = handler.NewFileHandler(local, log)
	}

	authMiddleware := auth.NewMiddleware(tokens, userRepo, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)
	rt := router.NewRouter(cfg, log, authMiddleware, rateLimiter, handlers)

	// Background jobs
	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		scheduler = jobs.NewScheduler(log)
		if err := jobs.RegisterAnalysisSweepJob(scheduler, analysisService, log, cfg.Jobs.AnalysisSweepCron); err != nil {
			return fmt.Errorf("failed to register analysis sweep job: %w", err)
		}
		scheduler.Start()
	} else {
		log.Info("Background jobs disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			<-scheduler.Stop().Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Warn("Error closing database connection", zap.Error(err))
			}
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}

// swaggerHost derives the documented host from the public URL
func swaggerHost(cfg *config.Config) string {
	if u, err := url.Parse(cfg.App.PublicURL); err == nil && u.Host != "" {
		return u.Host
	}
	return fmt.Sprintf("localhost:%d", cfg.App.Port)
}
