package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"github.com/yugmi/sense-api/internal/auth"
	"github.com/yugmi/sense-api/internal/config"
	"github.com/yugmi/sense-api/internal/domain"
	"github.com/yugmi/sense-api/internal/http/handler"
	"github.com/yugmi/sense-api/internal/http/middleware"
	"go.uber.org/zap"

	_ "github.com/yugmi/sense-api/docs" // Import generated swagger docs
)

// Handlers groups the HTTP handlers mounted by the router. File is nil unless
// objects are stored locally.
type Handlers struct {
	Auth         *handler.AuthHandler
	Organization *handler.OrganizationHandler
	Project      *handler.ProjectHandler
	Site         *handler.SiteHandler
	Capture      *handler.CaptureHandler
	Report       *handler.ReportHandler
	File         *handler.FileHandler
	Health       *handler.HealthHandler
}

type Router struct {
	cfg            *config.Config
	logger         *zap.Logger
	authMiddleware *auth.Middleware
	rateLimiter    *middleware.RateLimiter
	handlers       Handlers
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	handlers Handlers,
) *Router {
	return &Router{
		cfg:            cfg,
		logger:         logger,
		authMiddleware: authMiddleware,
		rateLimiter:    rateLimiter,
		handlers:       handlers,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()
	h := rt.handlers
	can := rt.authMiddleware.RequirePermission

	r.Use(middleware.Recovery(rt.logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP)

	r.Get("/health", h.Health.Health)
	r.Get("/health/db", h.Health.Database)
	r.Get("/health/ready", h.Health.Ready)

	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	// signed links of local storage, see storage.LocalStorage
	if h.File != nil {
		r.Get("/files/*", h.File.Serve)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if timeout := rt.cfg.Server.RequestTimeoutDuration(); timeout > 0 {
			r.Use(chimiddleware.Timeout(timeout))
		}

		r.Post("/auth/register", h.Auth.Register)
		r.Post("/auth/login", h.Auth.Login)
		r.Post("/auth/refresh", h.Auth.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.Authenticate)
			r.Use(middleware.CaptureUser)
			r.Use(rt.rateLimiter.LimitByUser)

			r.Get("/auth/profile", h.Auth.Profile)

			r.Group(func(r chi.Router) {
				r.Use(rt.authMiddleware.RequireOrgAdmin)
				r.Get("/roles", h.Organization.ListRoles)
				r.Post("/roles", h.Organization.CreateRole)
				r.Put("/roles/{id}", h.Organization.UpdateRole)
				r.Get("/users", h.Organization.ListUsers)
				r.Post("/users", h.Organization.CreateUser)
			})

			r.Route("/projects", func(r chi.Router) {
				r.With(can(domain.CanViewProject)).Get("/", h.Project.List)
				r.With(can(domain.CanCreateProject)).Post("/", h.Project.Create)
				r.With(can(domain.CanViewProject)).Get("/{id}", h.Project.GetByID)
				r.With(can(domain.CanUpdateProject)).Put("/{id}", h.Project.Update)
				r.With(can(domain.CanDeleteProject)).Delete("/{id}", h.Project.Delete)
			})

			r.Route("/sites", func(r chi.Router) {
				r.With(can(domain.CanViewSite)).Get("/", h.Site.List)
				r.With(can(domain.CanCreateSite)).Post("/", h.Site.Create)
				r.With(rt.authMiddleware.RequireOrgAdmin).Post("/assign-user", h.Site.AssignUser)
				r.With(can(domain.CanViewSite)).Get("/{id}", h.Site.GetByID)
				r.With(can(domain.CanUpdateSite)).Put("/{id}", h.Site.Update)
				r.With(can(domain.CanDeleteSite)).Delete("/{id}", h.Site.Delete)
			})

			r.Route("/captures", func(r chi.Router) {
				r.With(can(domain.CanViewCaptures)).Get("/", h.Capture.List)
				r.With(can(domain.CanCapture)).Post("/", h.Capture.Create)
				r.With(can(domain.CanViewCaptures)).Get("/by-project-or-site", h.Capture.ListByProjectOrSite)
				r.With(can(domain.CanCapture)).Post("/analysis", h.Capture.Analyze)
				r.With(can(domain.CanViewCaptures)).Get("/{id}", h.Capture.GetByID)
				r.With(can(domain.CanCapture)).Post("/{id}/ai-analysis/redo", h.Capture.Redo)
				r.With(can(domain.CanShareCaptures)).Post("/{id}/share", h.Capture.Share)
				r.With(can(domain.CanAnnotate)).Post("/{id}/annotations", h.Capture.Annotate)
			})

			r.Route("/reports", func(r chi.Router) {
				r.With(can(domain.CanViewReport)).Get("/", h.Report.List)
				r.With(can(domain.CanCreateReport)).Post("/", h.Report.Create)
				r.With(can(domain.CanViewReport)).Get("/{id}", h.Report.GetByID)
				r.With(can(domain.CanShareCaptures)).Post("/{id}/share", h.Report.Share)
			})
		})
	})

	return r
}
