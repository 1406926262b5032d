package app

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"custos/internal/config"
	apierrors "custos/internal/errors"
	"custos/internal/infrastructure"
	customMiddleware "custos/internal/middleware"
	"custos/internal/services"
	handlers "custos/internal/transport/http"
	"custos/internal/validation"
	"custos/pkg/contracts"
)

// BuildID is a unique identifier for this build
var BuildID = generateBuildID()

func generateBuildID() string {
	h := sha256.New()
	h.Write([]byte(contracts.Version))
	h.Write([]byte(contracts.BuildTime))
	h.Write([]byte(contracts.GitCommit))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

// Application represents the main application container
type Application struct {
	Config           *config.Config
	Router           *chi.Mux
	Server           *http.Server
	Logger           *slog.Logger
	OTelProviders    *infrastructure.OTelProviders
	Metrics          *infrastructure.BusinessMetrics
	Sessions         *services.SessionStore
	DashboardService *services.DashboardService
	HealthService    *services.HealthService
	ErrorHandler     *apierrors.ErrorHandler
	Validator        *customMiddleware.Validator
}

// NewApplication loads the configuration, initializes the global logger and
// wires the application. configFile may be empty.
func NewApplication(configFile string) (*Application, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	cfg.Logging.FilePath = cfg.LogFilePath()
	paths, err := config.GetPaths()
	if err == nil && cfg.Logging.Output != "console" {
		if err := paths.EnsureDirectories(); err != nil {
			return nil, fmt.Errorf("failed to prepare directories: %w", err)
		}
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if paths != nil {
		paths.LogPathResolution(logger)
	}

	return New(cfg, logger)
}

// New wires an application from an explicit configuration and logger
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("build_id", BuildID))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Telemetry, config.AppVersion), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.setupRouter(); err != nil {
		return nil, fmt.Errorf("failed to set up routes: %w", err)
	}

	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	metrics, err := infrastructure.CreateBusinessMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create business metrics: %w", err)
	}
	a.Metrics = metrics

	a.Sessions = services.NewSessionStore(a.Config.Session.TTL, a.Config.Session.MaxSessions, metrics, a.Logger)

	uploads := validation.NewUploadValidator(a.Config.Upload.MaxBytes, a.Config.Upload.AllowedExtensions, a.Logger)
	a.DashboardService = services.NewDashboardService(a.Sessions, uploads, a.Config.Dashboard, metrics, a.Logger)

	a.HealthService = services.NewHealthService(
		contracts.Version,
		contracts.BuildTime,
		BuildID,
		a.Sessions,
		a.Config.Session.MaxSessions,
		a.Logger,
	)

	a.ErrorHandler = apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)
	a.Validator = customMiddleware.NewValidator(a.Logger)
	return nil
}

// setupRouter configures the HTTP router with all routes.
// Ordering: RequestID → RealIP → OTel → Logger → Recoverer → headers → CORS → rate limit → Timeout.
func (a *Application) setupRouter() error {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics, a.Logger).Handler)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(apierrors.RecoveryMiddleware(a.ErrorHandler))
	r.Use(customMiddleware.StripSlashes)

	secure := customMiddleware.DefaultSecureHeaders()
	secure.DevMode = a.Config.Logging.Development
	r.Use(secure.Handler)
	r.Use(customMiddleware.CORS(a.getCORSConfig()))

	if a.Config.Security.RateLimit.Enabled {
		r.Use(customMiddleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
			a.ErrorHandler,
		).Handler)
	}

	r.Use(customMiddleware.AuditLog(a.Logger, config.SessionCookieName))
	r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	a.setupAPIRoutes(r)
	if err := a.setupHTMLRoutes(r); err != nil {
		return err
	}

	metricsHandler := handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP, a.HealthService, a.ErrorHandler)
	r.Mount("/metrics", metricsHandler.Routes())

	a.Router = r
	return nil
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/ready", healthHandler.ReadinessCheck)
		r.Get("/health/live", healthHandler.LivenessCheck)
		r.Get("/health/detailed", healthHandler.Detailed)
		r.Get("/version", healthHandler.Version)

		dashboardHandler := handlers.NewDashboardHandler(
			a.DashboardService,
			a.Validator,
			a.Config.Upload.MaxBytes,
			a.Logger,
			a.ErrorHandler,
		)
		r.Mount("/workbooks", dashboardHandler.Routes())
	})
}

// setupHTMLRoutes configures the server-rendered pages
func (a *Application) setupHTMLRoutes(r chi.Router) error {
	pages, err := handlers.NewPageHandler(a.DashboardService, a.Validator, handlers.PageConfig{
		MaxBytes:      a.Config.Upload.MaxBytes,
		SessionTTL:    a.Config.Session.TTL,
		SecureCookies: a.Config.Security.SecureCookies,
		ChartTheme:    a.Config.Dashboard.ChartTheme,
	}, a.Logger, a.ErrorHandler)
	if err != nil {
		return fmt.Errorf("failed to parse page templates: %w", err)
	}

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.Compress(5))
		pages.RegisterRoutes(r)
	})
	return nil
}

// getCORSConfig allows the configured origins, or the local server alone when CORS is off
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	cfg := customMiddleware.CORSConfig{
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
			"Content-Disposition",
		},
		AllowCredentials: true,
		MaxAge:           300,
		Logger:           a.Logger,
	}

	local := fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)
	cfg.AllowedOrigins = []string{local, fmt.Sprintf("http://127.0.0.1:%d", a.Config.Server.Port)}
	if a.Config.Security.EnableCORS {
		for _, origin := range a.Config.Security.AllowedOrigins {
			if origin != local {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}

	a.Logger.Info("CORS configured", slog.Any("allowed_origins", cfg.AllowedOrigins))
	return cfg
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Server.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Run serves until SIGINT or SIGTERM, then shuts down gracefully
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.Serve(ctx, nil)
}

// Serve runs the HTTP server and the session sweeper until ctx is done or one
// of them fails. A nil listener listens on the configured address.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfoContext(gctx, "HTTP server listening", slog.String("address", a.Server.Addr))
		var err error
		if ln != nil {
			err = a.Server.Serve(ln)
		} else {
			err = a.Server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.Sessions.RunSweeper(gctx, a.Config.Session.SweepInterval)
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.Stop(context.WithoutCancel(gctx))
	})

	return g.Wait()
}

// Stop gracefully stops the server and flushes telemetry
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete",
		slog.Int("sessions_dropped", a.Sessions.Len()),
		slog.Duration("timeout", a.Config.Server.ShutdownTimeout))
	return errors.Join(errs...)
}
