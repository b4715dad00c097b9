// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/thinkspace/internal/cache"
	"github.com/olegiv/thinkspace/internal/config"
	"github.com/olegiv/thinkspace/internal/geoip"
	"github.com/olegiv/thinkspace/internal/handler"
	"github.com/olegiv/thinkspace/internal/logging"
	"github.com/olegiv/thinkspace/internal/mailer"
	"github.com/olegiv/thinkspace/internal/metrics"
	"github.com/olegiv/thinkspace/internal/middleware"
	"github.com/olegiv/thinkspace/internal/render"
	"github.com/olegiv/thinkspace/internal/scheduler"
	"github.com/olegiv/thinkspace/internal/service"
	"github.com/olegiv/thinkspace/internal/session"
	"github.com/olegiv/thinkspace/internal/store"
	"github.com/olegiv/thinkspace/internal/version"
	"github.com/olegiv/thinkspace/internal/webhook"
	"github.com/olegiv/thinkspace/web"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

// Cache lifetimes for served files.
const (
	staticMaxAge  = 365 * 24 * time.Hour
	uploadsMaxAge = 7 * 24 * time.Hour
)

// crudHandlers defines the standard CRUD handler methods.
type crudHandlers struct {
	List     http.HandlerFunc
	NewForm  http.HandlerFunc
	Create   http.HandlerFunc
	EditForm http.HandlerFunc
	Update   http.HandlerFunc
	Delete   http.HandlerFunc
}

// registerCRUD registers standard CRUD routes for a resource.
// Routes: GET /, GET /new, POST /, GET /{id}/edit, POST /{id}, POST /{id}/delete
func registerCRUD(r chi.Router, base string, h crudHandlers) {
	baseID := base + handler.RouteParamID
	r.Get(base, h.List)
	if h.NewForm != nil {
		r.Get(base+handler.RouteSuffixNew, h.NewForm)
	}
	r.Post(base, h.Create)
	r.Get(baseID+"/edit", h.EditForm)
	r.Post(baseID, h.Update)
	r.Post(baseID+"/delete", h.Delete)
}

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "ThinkSpace - blog and webinar platform\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  THINKSPACE_SESSION_SECRET   Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  THINKSPACE_DB_PATH          SQLite database path (default: ./data/thinkspace.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  THINKSPACE_SERVER_PORT      Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  THINKSPACE_ENV              Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  THINKSPACE_UPLOADS_DIR      Uploads directory (default: ./uploads)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  THINKSPACE_REDIS_URL        Redis URL for shared caching (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  THINKSPACE_WEBHOOK_URLS     Comma-separated notification endpoints (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  THINKSPACE_SMTP_HOST        SMTP server for registration emails (optional)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		_, _ = fmt.Printf("thinkspace %s\n", version.New(appVersion, appGitCommit, appBuildTime))
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	build := version.New(appVersion, appGitCommit, appBuildTime)

	logger, logCloser := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer func() { _ = logCloser.Close() }()
	slog.SetDefault(logger)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.MkdirAll(cfg.UploadsDir, 0o755); err != nil {
		return fmt.Errorf("creating uploads directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Mirror WARN and ERROR records into the event log.
	logger = slog.New(logging.NewEventLogHandler(logger.Handler(), db))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	ctx := context.Background()
	if cfg.DoSeed {
		if err := store.Seed(ctx, db, store.SeedConfig{
			AdminEmail:    cfg.AdminEmail,
			AdminPassword: cfg.AdminPassword,
		}); err != nil {
			return fmt.Errorf("seeding database: %w", err)
		}
	}
	if cfg.DemoMode {
		if err := store.SeedDemo(ctx, db); err != nil {
			return fmt.Errorf("seeding demo content: %w", err)
		}
	}

	sessionManager := session.New(db, cfg.IsDevelopment())
	slog.Info("session manager initialized")

	cacheBackend := cache.New(ctx, cache.Config{
		RedisURL:   cfg.RedisURL,
		Prefix:     cfg.CachePrefix,
		DefaultTTL: cfg.CacheDuration(),
		MaxSize:    cfg.CacheMaxSize,
	}, logger)
	defer func() { _ = cacheBackend.Close() }()

	geo, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		slog.Warn("GeoIP lookups disabled", "error", err)
	}
	defer func() { _ = geo.Close() }()

	dispatcher := webhook.NewDispatcher(db, logger, webhook.Config{
		Endpoints:    cfg.WebhookURLs,
		Secret:       cfg.WebhookSecret,
		AllowPrivate: cfg.WebhookAllowPrivate,
	})
	dispatcher.Start(ctx)
	defer dispatcher.Stop()
	// Editors save drafts repeatedly; blog notifications are coalesced.
	blogNotifier := webhook.NewDebouncer(dispatcher, webhook.DefaultDebounceConfig())
	defer blogNotifier.Stop()
	slog.Info("webhook dispatcher initialized", "endpoints", len(cfg.WebhookURLs))

	mail := mailer.New(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}, logger)

	uploads := service.NewUploadService(cfg.UploadsDir, logger)
	content := service.NewContentRenderer()
	svc := handler.Services{
		Blogs:     service.NewBlogService(db, uploads, content, cacheBackend, blogNotifier, logger),
		Comments:  service.NewCommentService(db, content, logger),
		Webinars:  service.NewWebinarService(db, uploads, content, cacheBackend, logger),
		Resources: service.NewResourceService(db, uploads, logger),
		Speakers:  service.NewSpeakerService(db, uploads, cacheBackend, logger),
		Taxonomy:  service.NewTaxonomyService(db, cacheBackend, cfg.CacheDuration(), logger),
		Registrations: service.NewRegistrationService(db, uploads, mail, dispatcher, service.RegistrationOptions{
			PaymentPrefix: cfg.PaymentPrefix,
			BaseURL:       cfg.BaseURL(),
		}, logger),
		Users:  service.NewUserService(db, uploads, geo, dispatcher, logger),
		Events: service.NewEventService(db, logger),
		Stats: service.NewStatsService(db, uploads, cacheBackend, service.StatsOptions{
			DBPath:   cfg.DBPath,
			CacheTTL: cfg.CacheDuration(),
			Build:    build,
		}, logger),
		Search:  service.NewSearchService(db),
		Export:  service.NewExportService(db, logger),
		Uploads: uploads,
		Sitemap: service.NewSitemapService(db, cfg.BaseURL(), !cfg.IsDevelopment(), cacheBackend, cfg.CacheDuration()),
	}

	sched := scheduler.New(logger)
	if err := sched.RegisterDefaults(scheduler.Deps{
		Webinars: svc.Webinars,
		Blogs:    svc.Blogs,
		Events:   svc.Events,
		Webhooks: dispatcher,
		GeoIP:    geo,
	}); err != nil {
		return fmt.Errorf("registering scheduled jobs: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return fmt.Errorf("getting templates fs: %w", err)
	}
	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sessionManager,
		IsDev:          cfg.IsDevelopment(),
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}
	slog.Info("template renderer initialized")

	csrfMiddleware := middleware.CSRF(middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment(), cfg.ServerAddr()))

	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	defer loginProtection.Stop()

	// Sign-up and registration posts: 10 requests per second with burst of 20 per IP
	publicRateLimiter := middleware.NewGlobalRateLimiter(10.0, 20)

	publicHandler := handler.NewPublicHandler(renderer, sessionManager, svc)
	authHandler := handler.NewAuthHandler(renderer, sessionManager, svc, loginProtection)
	dashboardHandler := handler.NewDashboardHandler(renderer, sessionManager, svc)
	blogsHandler := handler.NewBlogsHandler(renderer, sessionManager, svc)
	taxonomyHandler := handler.NewTaxonomyHandler(renderer, sessionManager, svc)
	commentsHandler := handler.NewCommentsHandler(renderer, sessionManager, svc)
	webinarsHandler := handler.NewWebinarsHandler(renderer, sessionManager, svc)
	speakersHandler := handler.NewSpeakersHandler(renderer, sessionManager, svc)
	usersHandler := handler.NewUsersHandler(renderer, sessionManager, svc)
	healthHandler := handler.NewHealthHandler(db, cfg.UploadsDir, build)
	seoHandler := handler.NewSEOHandler(svc)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(middleware.Timeout(30*time.Second, handler.RouteDashboard+handler.RouteExport))
	r.Use(middleware.StripTrailingSlash)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))
	r.Use(middleware.RequestPath)
	r.Use(sessionManager.LoadAndSave)
	r.Use(csrfMiddleware)

	r.Handle("/metrics", metrics.Handler())

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		return fmt.Errorf("getting static fs: %w", err)
	}
	r.Handle("/static/*", middleware.StaticCache(staticMaxAge)(http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))))
	r.Handle("/uploads/*", middleware.StaticCache(uploadsMaxAge)(handler.NewUploadsHandler(cfg.UploadsDir)))

	// Public site; signing in is optional.
	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalLoadUser(sessionManager, db))

		r.Get("/health", healthHandler.Health)
		r.Get("/health/live", healthHandler.Liveness)
		r.Get("/health/ready", healthHandler.Readiness)
		r.Get("/sitemap.xml", seoHandler.Sitemap)
		r.Get("/robots.txt", seoHandler.Robots)

		r.Get(handler.RouteRoot, publicHandler.Home)
		r.Get("/about", publicHandler.About)
		r.Get(handler.RouteBlog, publicHandler.BlogList)
		r.Get(handler.RouteBlog+handler.RouteParamSlug, publicHandler.BlogDetail)
		r.Get(handler.RouteWebinar, publicHandler.WebinarList)
		r.Get(handler.RouteWebinar+handler.RouteParamSlug, publicHandler.WebinarDetail)
		r.Get(handler.RouteWebinar+"/{slug}/register", publicHandler.RegisterForm)
		r.With(publicRateLimiter.Middleware()).Post(handler.RouteWebinar+"/{slug}/register", publicHandler.Register)
		r.Get(handler.RouteWebinar+"/{slug}/register/confirmation/{id}", publicHandler.RegistrationConfirmation)

		r.Get(handler.RouteLogin, authHandler.LoginForm)
		r.With(loginProtection.Middleware()).Post(handler.RouteLogin, authHandler.Login)
		r.Get(handler.RouteSignup, authHandler.SignupForm)
		r.With(publicRateLimiter.Middleware()).Post(handler.RouteSignup, authHandler.Signup)

		r.NotFound(publicHandler.NotFound)
	})

	// Signed-in users.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(sessionManager))
		r.Use(middleware.LoadUser(sessionManager, db))

		r.Post(handler.RouteLogout, authHandler.Logout)
		r.Post("/impersonate/stop", authHandler.StopImpersonation)
		r.Get(handler.RouteProfile, authHandler.Profile)
		r.Get(handler.RouteProfile+"/edit", authHandler.EditProfileForm)
		r.Post(handler.RouteProfile+"/edit", authHandler.EditProfile)
		r.Post(handler.RouteProfile+"/account", authHandler.UpdateAccount)

		r.Post(handler.RouteBlog+"/{slug}/comments", publicHandler.AddComment)
		r.Post(handler.RouteBlog+"/{slug}/comments/{id}/like", publicHandler.LikeComment)
		r.Get(handler.RouteWebinar+"/{slug}/join", publicHandler.Join)
	})

	// Dashboard: staff, with user administration for superusers.
	r.Route(handler.RouteDashboard, func(r chi.Router) {
		r.Use(middleware.Auth(sessionManager))
		r.Use(middleware.LoadUser(sessionManager, db))
		r.Use(middleware.RequireStaff(svc.Events))

		r.Get(handler.RouteRoot, dashboardHandler.Index)
		r.Get("/search", dashboardHandler.Search)
		r.Get(handler.RouteExport, dashboardHandler.Export)
		r.Get(handler.RouteExport+"/download", dashboardHandler.ExportDownload)
		r.Get("/activity", dashboardHandler.Activity)
		r.Get("/system-status", dashboardHandler.SystemStatus)

		registerCRUD(r, handler.RouteBlogs, crudHandlers{
			List:     blogsHandler.List,
			NewForm:  blogsHandler.NewForm,
			Create:   blogsHandler.Create,
			EditForm: blogsHandler.EditForm,
			Update:   blogsHandler.Update,
			Delete:   blogsHandler.Delete,
		})
		r.Post(handler.RouteBlogs+"/{id}/verify", blogsHandler.Verify)
		r.Post(handler.RouteBlogs+"/{id}/publish", blogsHandler.Publish)

		registerCRUD(r, handler.RouteCategories, crudHandlers{
			List:     taxonomyHandler.ListCategories,
			NewForm:  taxonomyHandler.NewCategoryForm,
			Create:   taxonomyHandler.CreateCategory,
			EditForm: taxonomyHandler.EditCategoryForm,
			Update:   taxonomyHandler.UpdateCategory,
			Delete:   taxonomyHandler.DeleteCategory,
		})
		// New tags are created from the list page.
		registerCRUD(r, handler.RouteTags, crudHandlers{
			List:     taxonomyHandler.ListTags,
			Create:   taxonomyHandler.CreateTag,
			EditForm: taxonomyHandler.EditTagForm,
			Update:   taxonomyHandler.UpdateTag,
			Delete:   taxonomyHandler.DeleteTag,
		})

		r.Get(handler.RouteComments, commentsHandler.List)
		r.Post(handler.RouteComments+"/{id}/approve", commentsHandler.Approve)
		r.Post(handler.RouteComments+"/{id}/delete", commentsHandler.Delete)

		registerCRUD(r, handler.RouteWebinars, crudHandlers{
			List:     webinarsHandler.List,
			NewForm:  webinarsHandler.NewForm,
			Create:   webinarsHandler.Create,
			EditForm: webinarsHandler.EditForm,
			Update:   webinarsHandler.Update,
			Delete:   webinarsHandler.Delete,
		})
		r.Route(handler.RouteWebinars+handler.RouteParamID, func(r chi.Router) {
			r.Get(handler.RouteRoot, webinarsHandler.Detail)
			r.Post("/status", webinarsHandler.SetStatus)
			r.Get("/registrations", webinarsHandler.Registrations)
			r.Get("/registrations/export", webinarsHandler.ExportRegistrations)
			r.Post("/registrations/{regID}/confirm", webinarsHandler.ConfirmRegistration)
			r.Post("/registrations/{regID}/cancel", webinarsHandler.CancelRegistration)
			r.Post("/registrations/{regID}/attendance", webinarsHandler.MarkAttendance)
			r.Get("/registrations/{regID}/payment-proof", webinarsHandler.PaymentProof)
			r.Get("/resources", webinarsHandler.Resources)
			r.Post("/resources", webinarsHandler.AddResource)
			r.Post("/resources/{resourceID}/delete", webinarsHandler.DeleteResource)
		})

		registerCRUD(r, handler.RouteSpeakers, crudHandlers{
			List:     speakersHandler.List,
			NewForm:  speakersHandler.NewForm,
			Create:   speakersHandler.Create,
			EditForm: speakersHandler.EditForm,
			Update:   speakersHandler.Update,
			Delete:   speakersHandler.Delete,
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSuperuser(svc.Events))

			r.Get(handler.RouteUsers+"/export", usersHandler.Export)
			registerCRUD(r, handler.RouteUsers, crudHandlers{
				List:     usersHandler.List,
				NewForm:  usersHandler.NewForm,
				Create:   usersHandler.Create,
				EditForm: usersHandler.EditForm,
				Update:   usersHandler.Update,
				Delete:   usersHandler.Delete,
			})
			r.Route(handler.RouteUsers+handler.RouteParamID, func(r chi.Router) {
				r.Get("/detail", usersHandler.Detail)
				r.Post("/toggle-active", usersHandler.ToggleActive)
				r.Post("/impersonate", usersHandler.Impersonate)
				r.Post("/roles", usersHandler.AssignRole)
				r.Post("/roles/remove", usersHandler.RemoveRole)
			})

			r.Get(handler.RouteRoles, usersHandler.Roles)
			r.Post(handler.RouteRoles, usersHandler.CreateRole)
			r.Post(handler.RouteRoles+"/{id}/delete", usersHandler.DeleteRole)
		})
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second, // Longer to allow for uploads and exports
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", build.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
