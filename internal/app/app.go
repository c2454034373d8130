package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"shopfloor/internal/config"
	"shopfloor/internal/infrastructure"
	"shopfloor/internal/license"
	"shopfloor/internal/middleware"
	"shopfloor/internal/services"
	transporthttp "shopfloor/internal/transport/http"
	"shopfloor/internal/workorder"
)

// Application is the main application container holding config,
// infrastructure, services and the HTTP server.
type Application struct {
	config  *config.Config
	logger  *slog.Logger
	otel    *infrastructure.OTelProviders
	metrics *infrastructure.BusinessMetrics

	workOrderService services.WorkOrderService
	licenseService   services.LicenseService
	healthService    services.HealthService

	router chi.Router
	server *http.Server
}

// New creates a fully wired application from configuration.
func New(cfg *config.Config) (*Application, error) {
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	providers, err := infrastructure.InitializeOTel(nil, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	app := &Application{
		config: cfg,
		logger: logger,
		otel:   providers,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.setupRouter()
	app.createServer()

	return app, nil
}

func (a *Application) initializeServices() error {
	if a.otel.Meter != nil {
		m, err := infrastructure.CreateBusinessMetrics(a.otel.Meter)
		if err != nil {
			return fmt.Errorf("failed to create business metrics: %w", err)
		}
		a.metrics = m
	}

	store := workorder.NewStore()
	issuer := workorder.NewAccessIssuer()
	workOrderManager := workorder.NewManager(store, issuer)

	if a.config.Demo.SeedWorkOrders {
		if err := workOrderManager.SeedDemoData(); err != nil {
			return fmt.Errorf("failed to seed demo work orders: %w", err)
		}
		a.logger.Info("demo work orders seeded")
	}

	licenseManager := license.NewManager(license.NewRegistry())

	a.workOrderService = services.NewWorkOrderService(workOrderManager, a.logger, a.metrics)
	a.licenseService = services.NewLicenseService(licenseManager, a.logger, a.metrics)
	a.healthService = services.NewHealthService()
	return nil
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.StructuredLogger(a.logger))
	r.Use(middleware.Metrics(a.metrics))
	r.Use(middleware.Recoverer(a.logger))
	r.Use(chimiddleware.Compress(5))
	r.Use(render.SetContentType(render.ContentTypeJSON))

	if a.config.Security.EnableCORS {
		r.Use(middleware.CORS(middleware.CORSConfig{
			AllowedOrigins: a.config.Security.AllowedOrigins,
			Logger:         a.logger,
		}))
	}
	if a.config.Security.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(
			a.config.Security.RateLimit.RPS,
			a.config.Security.RateLimit.Burst,
			a.logger,
		)
		r.Use(limiter.Handler)
	}
	r.Use(middleware.Timeout(30*time.Second, a.logger))

	r.Route("/api", func(r chi.Router) {
		r.Mount("/work-orders", transporthttp.NewWorkOrderHandler(a.workOrderService, a.logger).Routes())
		r.Mount("/licenses", transporthttp.NewLicenseHandler(a.licenseService, a.logger).Routes())
		r.Mount("/health", transporthttp.NewHealthHandler(a.healthService, a.logger).Routes())
	})

	if a.otel.PrometheusHTTP != nil {
		r.Handle("/metrics", a.otel.PrometheusHTTP)
	}

	a.router = r
}

func (a *Application) createServer() {
	a.server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.config.Server.Port),
		Handler:        a.router,
		ReadTimeout:    a.config.Server.ReadTimeout,
		WriteTimeout:   a.config.Server.WriteTimeout,
		IdleTimeout:    a.config.Server.IdleTimeout,
		MaxHeaderBytes: a.config.Server.MaxHeaderBytes,
	}
}

// Router exposes the configured router, mainly for tests.
func (a *Application) Router() chi.Router {
	return a.router
}

// Run starts the HTTP server and blocks until shutdown completes.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("server starting",
			slog.String("addr", a.server.Addr),
			slog.String("version", infrastructure.ServiceVersion),
		)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
		defer cancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		if err := a.otel.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("telemetry shutdown", slog.String("error", err.Error()))
		}
		if err := infrastructure.CloseLogFile(); err != nil {
			a.logger.Warn("log file close", slog.String("error", err.Error()))
		}
		return nil
	})

	return g.Wait()
}
