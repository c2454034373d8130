package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apierrors "shopfloor/internal/errors"
	"shopfloor/internal/infrastructure"
	"shopfloor/internal/middleware"
	"shopfloor/internal/services"
)

// LicenseHandler handles license lifecycle HTTP requests
type LicenseHandler struct {
	service  services.LicenseService
	logger   *slog.Logger
	validate *middleware.Validator
}

// NewLicenseHandler creates a new license handler
func NewLicenseHandler(service services.LicenseService, logger *slog.Logger) *LicenseHandler {
	return &LicenseHandler{
		service:  service,
		logger:   logger.With(slog.String("handler", "license")),
		validate: middleware.NewValidator(),
	}
}

// ActivationRequest is the payload for activation and renewal.
type ActivationRequest struct {
	Code     string `json:"code" validate:"required,min=6,max=64"`
	Operator string `json:"operator" validate:"required,min=1,max=60"`
}

// Bind implements the render.Binder interface
func (a *ActivationRequest) Bind(r *http.Request) error {
	a.Code = strings.TrimSpace(a.Code)
	a.Operator = strings.TrimSpace(a.Operator)
	if a.Code == "" {
		return errors.New("code is required")
	}
	if len(a.Code) < 6 || len(a.Code) > 64 {
		return errors.New("code must be between 6 and 64 characters")
	}
	if a.Operator == "" {
		return errors.New("operator is required")
	}
	if len(a.Operator) > 60 {
		return errors.New("operator must be at most 60 characters")
	}
	return nil
}

// SuspendRequest is the payload for license suspension.
type SuspendRequest struct {
	Operator string `json:"operator" validate:"required,min=1,max=60"`
	Reason   string `json:"reason,omitempty" validate:"max=200"`
}

// Bind implements the render.Binder interface
func (s *SuspendRequest) Bind(r *http.Request) error {
	s.Operator = strings.TrimSpace(s.Operator)
	if s.Operator == "" {
		return errors.New("operator is required")
	}
	if len(s.Operator) > 60 {
		return errors.New("operator must be at most 60 characters")
	}
	if len(s.Reason) > 200 {
		return errors.New("reason must be at most 200 characters")
	}
	return nil
}

// ResumeRequest is the payload for license resumption.
type ResumeRequest struct {
	Operator string `json:"operator" validate:"required,min=1,max=60"`
}

// Bind implements the render.Binder interface
func (s *ResumeRequest) Bind(r *http.Request) error {
	s.Operator = strings.TrimSpace(s.Operator)
	if s.Operator == "" {
		return errors.New("operator is required")
	}
	if len(s.Operator) > 60 {
		return errors.New("operator must be at most 60 characters")
	}
	return nil
}

// Routes returns a chi router for license endpoints
func (h *LicenseHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/plans", h.GetPlans)
	r.Get("/status", h.GetStatus)
	r.Post("/activate", h.Activate)
	r.Post("/renew", h.Renew)
	r.Post("/suspend", h.Suspend)
	r.Post("/resume", h.Resume)

	return r
}

// GetPlans handles GET /api/licenses/plans
func (h *LicenseHandler) GetPlans(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	plans := h.service.Plans(ctx)
	render.JSON(w, r, plans)
}

// GetStatus handles GET /api/licenses/status
func (h *LicenseHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("license-handler")

	ctx, span := tracer.Start(ctx, "license_handler.get_status",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/licenses/status"),
		),
	)
	defer span.End()

	view := h.service.Status(ctx)
	span.SetAttributes(attribute.String("license.status", string(view.Status)))
	render.JSON(w, r, view)
}

// Activate handles POST /api/licenses/activate
func (h *LicenseHandler) Activate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("license-handler")
	start := time.Now()

	ctx, span := tracer.Start(ctx, "license_handler.activate",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/licenses/activate"),
		),
	)
	defer span.End()

	var req ActivationRequest
	if err := render.Bind(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid activation request",
			slog.String("error", err.Error()),
		)
		render.Render(w, r, apierrors.NewProblemDetails(
			http.StatusBadRequest,
			"/errors/invalid-request",
			"Invalid Request",
			err.Error(),
			r.URL.Path,
		).WithExtension("trace_id", infrastructure.GetTraceID(ctx)))
		return
	}
	if fieldErrors := h.validate.Struct(&req); fieldErrors != nil {
		renderValidationErrors(w, r, fieldErrors)
		return
	}

	view, err := h.service.Activate(ctx, req.Code, req.Operator)
	latency := time.Since(start)
	span.SetAttributes(
		attribute.Int64("request.latency_ms", latency.Milliseconds()),
		attribute.Bool("request.success", err == nil),
	)
	if err != nil {
		span.RecordError(err)
		render.Render(w, r, apierrors.MapLicenseError(err, infrastructure.GetTraceID(ctx)))
		return
	}

	h.logger.InfoContext(ctx, "license activation completed",
		slog.String("operator", req.Operator),
		slog.String("status", string(view.Status)),
		slog.Duration("latency", latency),
	)
	render.JSON(w, r, view)
}

// Renew handles POST /api/licenses/renew
func (h *LicenseHandler) Renew(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("license-handler")

	ctx, span := tracer.Start(ctx, "license_handler.renew",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/licenses/renew"),
		),
	)
	defer span.End()

	var req ActivationRequest
	if err := render.Bind(r, &req); err != nil {
		render.Render(w, r, apierrors.NewProblemDetails(
			http.StatusBadRequest,
			"/errors/invalid-request",
			"Invalid Request",
			err.Error(),
			r.URL.Path,
		).WithExtension("trace_id", infrastructure.GetTraceID(ctx)))
		return
	}
	if fieldErrors := h.validate.Struct(&req); fieldErrors != nil {
		renderValidationErrors(w, r, fieldErrors)
		return
	}

	view, err := h.service.Renew(ctx, req.Code, req.Operator)
	if err != nil {
		span.RecordError(err)
		render.Render(w, r, apierrors.MapLicenseError(err, infrastructure.GetTraceID(ctx)))
		return
	}
	render.JSON(w, r, view)
}

// Suspend handles POST /api/licenses/suspend
func (h *LicenseHandler) Suspend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	var req SuspendRequest
	if err := render.Bind(r, &req); err != nil {
		render.Render(w, r, apierrors.NewProblemDetails(
			http.StatusBadRequest,
			"/errors/invalid-request",
			"Invalid Request",
			err.Error(),
			r.URL.Path,
		).WithExtension("trace_id", infrastructure.GetTraceID(ctx)))
		return
	}
	if fieldErrors := h.validate.Struct(&req); fieldErrors != nil {
		renderValidationErrors(w, r, fieldErrors)
		return
	}

	view, err := h.service.Suspend(ctx, req.Reason, req.Operator)
	if err != nil {
		h.logger.WarnContext(ctx, "license suspend rejected",
			slog.String("request_id", reqID),
			slog.String("error", err.Error()),
		)
		render.Render(w, r, apierrors.MapLicenseError(err, infrastructure.GetTraceID(ctx)))
		return
	}
	render.JSON(w, r, view)
}

// Resume handles POST /api/licenses/resume
func (h *LicenseHandler) Resume(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ResumeRequest
	if err := render.Bind(r, &req); err != nil {
		render.Render(w, r, apierrors.NewProblemDetails(
			http.StatusBadRequest,
			"/errors/invalid-request",
			"Invalid Request",
			err.Error(),
			r.URL.Path,
		).WithExtension("trace_id", infrastructure.GetTraceID(ctx)))
		return
	}
	if fieldErrors := h.validate.Struct(&req); fieldErrors != nil {
		renderValidationErrors(w, r, fieldErrors)
		return
	}

	view, err := h.service.Resume(ctx, req.Operator)
	if err != nil {
		render.Render(w, r, apierrors.MapLicenseError(err, infrastructure.GetTraceID(ctx)))
		return
	}
	render.JSON(w, r, view)
}
