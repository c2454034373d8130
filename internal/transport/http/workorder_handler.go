package http

import (
	"errors"
	"fmt"
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
	"shopfloor/internal/workorder"
)

// WorkOrderHandler handles work order HTTP requests
type WorkOrderHandler struct {
	service  services.WorkOrderService
	logger   *slog.Logger
	validate *middleware.Validator
}

// NewWorkOrderHandler creates a new work order handler
func NewWorkOrderHandler(service services.WorkOrderService, logger *slog.Logger) *WorkOrderHandler {
	return &WorkOrderHandler{
		service:  service,
		logger:   logger.With(slog.String("handler", "work_order")),
		validate: middleware.NewValidator(),
	}
}

// renderValidationErrors reports tag-level validation failures with
// per-field messages.
func renderValidationErrors(w http.ResponseWriter, r *http.Request, fields map[string]string) {
	details := make([]apierrors.ValidationError, 0, len(fields))
	for field, message := range fields {
		details = append(details, apierrors.ValidationError{Field: field, Message: message})
	}
	render.Render(w, r, apierrors.NewValidationErrors(details))
}

// ProcurementDTO mirrors the procurement preference sub-object.
type ProcurementDTO struct {
	AutoNotify        bool    `json:"auto_notify"`
	TargetFactoryID   *string `json:"target_factory_id,omitempty"`
	TargetFactoryName *string `json:"target_factory_name,omitempty"`
}

// StepAssignmentDTO is one step in a create request.
type StepAssignmentDTO struct {
	StepCode              string     `json:"step_code" validate:"required"`
	StepName              string     `json:"step_name" validate:"required"`
	AssigneeID            string     `json:"assignee_id" validate:"required"`
	AssigneeName          string     `json:"assignee_name" validate:"required"`
	ExpectedQuantity      int        `json:"expected_quantity" validate:"gte=1"`
	EstimatedCompletionAt *time.Time `json:"estimated_completion_at,omitempty"`
}

// CreateWorkOrderRequest is the payload for POST /api/work-orders.
type CreateWorkOrderRequest struct {
	Code           string              `json:"code" validate:"required"`
	Title          string              `json:"title" validate:"required"`
	Description    *string             `json:"description,omitempty"`
	OwnerID        string              `json:"owner_id" validate:"required"`
	OwnerName      string              `json:"owner_name" validate:"required"`
	Priority       string              `json:"priority" validate:"required,oneof=LOW MEDIUM HIGH"`
	StartAt        time.Time           `json:"start_at" validate:"required"`
	EndAt          time.Time           `json:"end_at" validate:"required"`
	TargetQuantity int                 `json:"target_quantity" validate:"gte=1"`
	Procurement    ProcurementDTO      `json:"procurement"`
	Steps          []StepAssignmentDTO `json:"steps"`
	Watchers       []string            `json:"watchers,omitempty"`
}

// Bind implements the render.Binder interface
func (c *CreateWorkOrderRequest) Bind(r *http.Request) error {
	if strings.TrimSpace(c.Code) == "" {
		return errors.New("code is required")
	}
	if strings.TrimSpace(c.Title) == "" {
		return errors.New("title is required")
	}
	if strings.TrimSpace(c.OwnerID) == "" || strings.TrimSpace(c.OwnerName) == "" {
		return errors.New("owner_id and owner_name are required")
	}
	if !validPriority(c.Priority) {
		return fmt.Errorf("priority must be one of LOW, MEDIUM, HIGH, got %q", c.Priority)
	}
	if c.StartAt.IsZero() || c.EndAt.IsZero() {
		return errors.New("start_at and end_at are required")
	}
	if c.TargetQuantity < 1 {
		return errors.New("target_quantity must be at least 1")
	}
	for i, step := range c.Steps {
		if strings.TrimSpace(step.StepCode) == "" {
			return fmt.Errorf("steps[%d].step_code is required", i)
		}
		if step.ExpectedQuantity < 1 {
			return fmt.Errorf("steps[%d].expected_quantity must be at least 1", i)
		}
	}
	return nil
}

func (c *CreateWorkOrderRequest) toInput() workorder.CreateInput {
	in := workorder.CreateInput{
		Code:           c.Code,
		Title:          c.Title,
		Description:    c.Description,
		OwnerID:        c.OwnerID,
		OwnerName:      c.OwnerName,
		Priority:       workorder.Priority(c.Priority),
		StartAt:        c.StartAt,
		EndAt:          c.EndAt,
		TargetQuantity: c.TargetQuantity,
		Procurement: workorder.ProcurementPreference{
			AutoNotify:        c.Procurement.AutoNotify,
			TargetFactoryID:   c.Procurement.TargetFactoryID,
			TargetFactoryName: c.Procurement.TargetFactoryName,
		},
		Watchers: c.Watchers,
	}
	for _, step := range c.Steps {
		in.Steps = append(in.Steps, workorder.StepAssignment{
			StepCode:              step.StepCode,
			StepName:              step.StepName,
			AssigneeID:            step.AssigneeID,
			AssigneeName:          step.AssigneeName,
			ExpectedQuantity:      step.ExpectedQuantity,
			EstimatedCompletionAt: step.EstimatedCompletionAt,
		})
	}
	return in
}

// StepUpdateDTO is one step in a partial update. Unknown step codes
// append a new step; recorded quantities are never writable here.
type StepUpdateDTO struct {
	StepCode              string     `json:"step_code" validate:"required"`
	StepName              *string    `json:"step_name,omitempty"`
	AssigneeID            *string    `json:"assignee_id,omitempty"`
	AssigneeName          *string    `json:"assignee_name,omitempty"`
	ExpectedQuantity      *int       `json:"expected_quantity,omitempty"`
	EstimatedCompletionAt *time.Time `json:"estimated_completion_at,omitempty"`
}

// UpdateWorkOrderRequest is the payload for PATCH /api/work-orders/{id}.
// Absent fields keep their current values.
type UpdateWorkOrderRequest struct {
	Code           *string         `json:"code,omitempty"`
	Title          *string         `json:"title,omitempty"`
	Description    *string         `json:"description,omitempty"`
	OwnerID        *string         `json:"owner_id,omitempty"`
	OwnerName      *string         `json:"owner_name,omitempty"`
	Priority       *string         `json:"priority,omitempty"`
	StartAt        *time.Time      `json:"start_at,omitempty"`
	EndAt          *time.Time      `json:"end_at,omitempty"`
	TargetQuantity *int            `json:"target_quantity,omitempty"`
	Procurement    *ProcurementDTO `json:"procurement,omitempty"`
	Steps          []StepUpdateDTO `json:"steps,omitempty"`
	Watchers       []string        `json:"watchers,omitempty"`
}

// Bind implements the render.Binder interface
func (u *UpdateWorkOrderRequest) Bind(r *http.Request) error {
	if u.Priority != nil && !validPriority(*u.Priority) {
		return fmt.Errorf("priority must be one of LOW, MEDIUM, HIGH, got %q", *u.Priority)
	}
	if u.TargetQuantity != nil && *u.TargetQuantity < 1 {
		return errors.New("target_quantity must be at least 1")
	}
	for i, step := range u.Steps {
		if strings.TrimSpace(step.StepCode) == "" {
			return fmt.Errorf("steps[%d].step_code is required", i)
		}
		if step.ExpectedQuantity != nil && *step.ExpectedQuantity < 1 {
			return fmt.Errorf("steps[%d].expected_quantity must be at least 1", i)
		}
	}
	return nil
}

func (u *UpdateWorkOrderRequest) toInput() workorder.UpdateInput {
	in := workorder.UpdateInput{
		Code:           u.Code,
		Title:          u.Title,
		Description:    u.Description,
		OwnerID:        u.OwnerID,
		OwnerName:      u.OwnerName,
		StartAt:        u.StartAt,
		EndAt:          u.EndAt,
		TargetQuantity: u.TargetQuantity,
		Watchers:       u.Watchers,
	}
	if u.Priority != nil {
		p := workorder.Priority(*u.Priority)
		in.Priority = &p
	}
	if u.Procurement != nil {
		in.Procurement = &workorder.ProcurementPreference{
			AutoNotify:        u.Procurement.AutoNotify,
			TargetFactoryID:   u.Procurement.TargetFactoryID,
			TargetFactoryName: u.Procurement.TargetFactoryName,
		}
	}
	for _, step := range u.Steps {
		in.Steps = append(in.Steps, workorder.StepUpdate{
			StepCode:              step.StepCode,
			StepName:              step.StepName,
			AssigneeID:            step.AssigneeID,
			AssigneeName:          step.AssigneeName,
			ExpectedQuantity:      step.ExpectedQuantity,
			EstimatedCompletionAt: step.EstimatedCompletionAt,
		})
	}
	return in
}

// UpdateStatusRequest is the payload for PATCH /api/work-orders/{id}/status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=PLANNED IN_PROGRESS COMPLETED CANCELLED"`
}

// Bind implements the render.Binder interface
func (u *UpdateStatusRequest) Bind(r *http.Request) error {
	switch workorder.Status(u.Status) {
	case workorder.StatusPlanned, workorder.StatusInProgress, workorder.StatusCompleted, workorder.StatusCancelled:
		return nil
	}
	return fmt.Errorf("status must be one of PLANNED, IN_PROGRESS, COMPLETED, CANCELLED, got %q", u.Status)
}

// ProgressConfirmation proves the reporter was present at the station.
// Only its shape is checked here; the engine does not retain it.
type ProgressConfirmation struct {
	Method        string   `json:"method" validate:"required,oneof=fingerprint double_confirm"`
	FingerprintID string   `json:"fingerprint_id,omitempty"`
	Confirmers    []string `json:"confirmers,omitempty"`
}

func (p *ProgressConfirmation) validate() error {
	switch p.Method {
	case "fingerprint":
		n := len(strings.TrimSpace(p.FingerprintID))
		if n < 1 || n > 64 {
			return errors.New("fingerprint_id must be between 1 and 64 characters")
		}
	case "double_confirm":
		if len(p.Confirmers) != 2 {
			return errors.New("double_confirm requires exactly two confirmers")
		}
		first := strings.TrimSpace(p.Confirmers[0])
		second := strings.TrimSpace(p.Confirmers[1])
		if first == "" || second == "" {
			return errors.New("confirmers must not be empty")
		}
		if len(first) > 32 || len(second) > 32 {
			return errors.New("confirmers must be at most 32 characters")
		}
		if first == second {
			return errors.New("double_confirm requires two distinct confirmers")
		}
	default:
		return fmt.Errorf("confirmation method must be fingerprint or double_confirm, got %q", p.Method)
	}
	return nil
}

// RecordProgressRequest is the payload for
// PATCH /api/work-orders/{id}/steps/{stepCode}/progress.
type RecordProgressRequest struct {
	CompletedQuantity int                   `json:"completed_quantity" validate:"gte=0"`
	DefectiveQuantity int                   `json:"defective_quantity" validate:"gte=0"`
	Reporter          *string               `json:"reporter,omitempty"`
	Note              *string               `json:"note,omitempty"`
	Confirmation      *ProgressConfirmation `json:"confirmation"`
}

// Bind implements the render.Binder interface
func (p *RecordProgressRequest) Bind(r *http.Request) error {
	if p.CompletedQuantity < 0 {
		return errors.New("completed_quantity must not be negative")
	}
	if p.DefectiveQuantity < 0 {
		return errors.New("defective_quantity must not be negative")
	}
	if p.Confirmation == nil {
		return errors.New("confirmation is required")
	}
	return p.Confirmation.validate()
}

// CreateAccessRequest is the payload for
// POST /api/work-orders/{id}/customer-access.
type CreateAccessRequest struct {
	CustomerName string  `json:"customer_name" validate:"required"`
	Company      *string `json:"company,omitempty"`
	ContactPhone *string `json:"contact_phone,omitempty"`
}

// Bind implements the render.Binder interface
func (c *CreateAccessRequest) Bind(r *http.Request) error {
	// Whitespace-only names are rejected by the engine with the same
	// error; no duplicate check here.
	return nil
}

// ConfirmAccessRequest is the payload for
// PATCH /api/work-orders/{id}/customer-access/{accessId}/confirm.
type ConfirmAccessRequest struct {
	ConfirmedBy string `json:"confirmed_by,omitempty" validate:"max=60"`
}

// Bind implements the render.Binder interface
func (c *ConfirmAccessRequest) Bind(r *http.Request) error {
	if len(c.ConfirmedBy) > 60 {
		return errors.New("confirmed_by must be at most 60 characters")
	}
	return nil
}

func validPriority(p string) bool {
	switch workorder.Priority(p) {
	case workorder.PriorityLow, workorder.PriorityMedium, workorder.PriorityHigh:
		return true
	}
	return false
}

// Routes returns a chi router for work order endpoints
func (h *WorkOrderHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}", h.Update)
	r.Delete("/{id}", h.Remove)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Patch("/{id}/steps/{stepCode}/progress", h.RecordProgress)
	r.Post("/{id}/customer-access", h.CreateCustomerAccess)
	r.Patch("/{id}/customer-access/{accessID}/confirm", h.ConfirmCustomerAccess)

	return r
}

// List handles GET /api/work-orders
func (h *WorkOrderHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summaries, err := h.service.List(ctx)
	if err != nil {
		render.Render(w, r, apierrors.MapWorkOrderError(err, infrastructure.GetTraceID(ctx)))
		return
	}
	render.JSON(w, r, summaries)
}

// Get handles GET /api/work-orders/{id}
func (h *WorkOrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	detail, err := h.service.Get(ctx, id)
	if err != nil {
		render.Render(w, r, apierrors.MapWorkOrderError(err, infrastructure.GetTraceID(ctx)))
		return
	}
	render.JSON(w, r, detail)
}

// Create handles POST /api/work-orders
func (h *WorkOrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("workorder-handler")

	ctx, span := tracer.Start(ctx, "workorder_handler.create",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/work-orders"),
		),
	)
	defer span.End()

	var req CreateWorkOrderRequest
	if err := render.Bind(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid create request",
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

	detail, err := h.service.Create(ctx, req.toInput())
	if err != nil {
		span.RecordError(err)
		render.Render(w, r, apierrors.MapWorkOrderError(err, infrastructure.GetTraceID(ctx)))
		return
	}

	span.SetAttributes(attribute.String("work_order.id", detail.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, detail)
}

// Update handles PATCH /api/work-orders/{id}
func (h *WorkOrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req UpdateWorkOrderRequest
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

	detail, err := h.service.Update(ctx, id, req.toInput())
	if err != nil {
		render.Render(w, r, apierrors.MapWorkOrderError(err, infrastructure.GetTraceID(ctx)))
		return
	}
	render.JSON(w, r, detail)
}

// UpdateStatus handles PATCH /api/work-orders/{id}/status
func (h *WorkOrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req UpdateStatusRequest
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

	detail, err := h.service.UpdateStatus(ctx, id, workorder.Status(req.Status))
	if err != nil {
		render.Render(w, r, apierrors.MapWorkOrderError(err, infrastructure.GetTraceID(ctx)))
		return
	}
	render.JSON(w, r, detail)
}

// RecordProgress handles PATCH /api/work-orders/{id}/steps/{stepCode}/progress
func (h *WorkOrderHandler) RecordProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("workorder-handler")
	id := chi.URLParam(r, "id")
	stepCode := chi.URLParam(r, "stepCode")

	ctx, span := tracer.Start(ctx, "workorder_handler.record_progress",
		trace.WithAttributes(
			attribute.String("work_order.id", id),
			attribute.String("work_order.step", stepCode),
		),
	)
	defer span.End()

	var req RecordProgressRequest
	if err := render.Bind(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid progress request",
			slog.String("id", id),
			slog.String("step", stepCode),
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

	detail, err := h.service.RecordProgress(ctx, id, stepCode, workorder.ProgressInput{
		Completed: req.CompletedQuantity,
		Defective: req.DefectiveQuantity,
		Reporter:  req.Reporter,
		Note:      req.Note,
	})
	if err != nil {
		span.RecordError(err)
		render.Render(w, r, apierrors.MapWorkOrderError(err, infrastructure.GetTraceID(ctx)))
		return
	}
	render.JSON(w, r, detail)
}

// CreateCustomerAccess handles POST /api/work-orders/{id}/customer-access
func (h *WorkOrderHandler) CreateCustomerAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req CreateAccessRequest
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

	detail, err := h.service.CreateCustomerAccess(ctx, id, workorder.AccessInput{
		CustomerName: req.CustomerName,
		Company:      req.Company,
		ContactPhone: req.ContactPhone,
	})
	if err != nil {
		render.Render(w, r, apierrors.MapWorkOrderError(err, infrastructure.GetTraceID(ctx)))
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, detail)
}

// ConfirmCustomerAccess handles
// PATCH /api/work-orders/{id}/customer-access/{accessID}/confirm
func (h *WorkOrderHandler) ConfirmCustomerAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	accessID := chi.URLParam(r, "accessID")

	var req ConfirmAccessRequest
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

	detail, err := h.service.ConfirmCustomerAccess(ctx, id, accessID, req.ConfirmedBy)
	if err != nil {
		render.Render(w, r, apierrors.MapWorkOrderError(err, infrastructure.GetTraceID(ctx)))
		return
	}
	render.JSON(w, r, detail)
}

// Remove handles DELETE /api/work-orders/{id}
func (h *WorkOrderHandler) Remove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := h.service.Remove(ctx, id); err != nil {
		render.Render(w, r, apierrors.MapWorkOrderError(err, infrastructure.GetTraceID(ctx)))
		return
	}
	render.NoContent(w, r)
}
