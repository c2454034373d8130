package services

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"shopfloor/internal/infrastructure"
	"shopfloor/internal/workorder"
)

type workOrderService struct {
	manager *workorder.Manager
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics
}

// NewWorkOrderService creates a work order service backed by the
// in-memory manager.
func NewWorkOrderService(manager *workorder.Manager, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) WorkOrderService {
	return &workOrderService{
		manager: manager,
		logger:  logger,
		metrics: metrics,
	}
}

func (s *workOrderService) List(ctx context.Context) ([]workorder.Summary, error) {
	ctx, span := otel.Tracer(infrastructure.ServiceName).Start(ctx, "WorkOrderService.List")
	defer span.End()

	summaries := s.manager.FindAll()
	s.logger.DebugContext(ctx, "listed work orders", "count", len(summaries))
	return summaries, nil
}

func (s *workOrderService) Get(ctx context.Context, id string) (*workorder.Detail, error) {
	ctx, span := otel.Tracer(infrastructure.ServiceName).Start(ctx, "WorkOrderService.Get")
	defer span.End()
	span.SetAttributes(attribute.String("work_order.id", id))

	detail, err := s.manager.FindOne(id)
	if err != nil {
		s.logger.WarnContext(ctx, "work order lookup failed", "id", id, "error", err)
		return nil, err
	}
	return detail, nil
}

func (s *workOrderService) Create(ctx context.Context, input workorder.CreateInput) (*workorder.Detail, error) {
	ctx, span := otel.Tracer(infrastructure.ServiceName).Start(ctx, "WorkOrderService.Create")
	defer span.End()

	detail := s.manager.Create(input)

	if s.metrics != nil {
		s.metrics.WorkOrdersCreated.Add(ctx, 1)
	}
	s.logger.InfoContext(ctx, "work order created",
		"id", detail.ID,
		"code", detail.Code,
		"steps", len(detail.Steps),
	)
	return detail, nil
}

func (s *workOrderService) Update(ctx context.Context, id string, input workorder.UpdateInput) (*workorder.Detail, error) {
	ctx, span := otel.Tracer(infrastructure.ServiceName).Start(ctx, "WorkOrderService.Update")
	defer span.End()
	span.SetAttributes(attribute.String("work_order.id", id))

	detail, err := s.manager.Update(id, input)
	if err != nil {
		s.logger.WarnContext(ctx, "work order update failed", "id", id, "error", err)
		return nil, err
	}
	s.logger.InfoContext(ctx, "work order updated", "id", id)
	return detail, nil
}

func (s *workOrderService) UpdateStatus(ctx context.Context, id string, status workorder.Status) (*workorder.Detail, error) {
	ctx, span := otel.Tracer(infrastructure.ServiceName).Start(ctx, "WorkOrderService.UpdateStatus")
	defer span.End()
	span.SetAttributes(
		attribute.String("work_order.id", id),
		attribute.String("work_order.status", string(status)),
	)

	detail, err := s.manager.UpdateStatus(id, status)
	if err != nil {
		s.logger.WarnContext(ctx, "work order status change failed", "id", id, "error", err)
		return nil, err
	}
	s.logger.InfoContext(ctx, "work order status changed", "id", id, "status", status)
	return detail, nil
}

func (s *workOrderService) RecordProgress(ctx context.Context, id, stepCode string, input workorder.ProgressInput) (*workorder.Detail, error) {
	ctx, span := otel.Tracer(infrastructure.ServiceName).Start(ctx, "WorkOrderService.RecordProgress")
	defer span.End()
	span.SetAttributes(
		attribute.String("work_order.id", id),
		attribute.String("work_order.step", stepCode),
	)

	detail, err := s.manager.RecordProgress(id, stepCode, input)
	if err != nil {
		s.logger.WarnContext(ctx, "progress recording failed",
			"id", id,
			"step", stepCode,
			"error", err,
		)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ProgressReportsTotal.Add(ctx, 1)
	}
	infrastructure.AddSpanEvent(ctx, "progress recorded", map[string]interface{}{
		"step":      stepCode,
		"completed": input.Completed,
		"defective": input.Defective,
	})
	s.logger.InfoContext(ctx, "progress recorded",
		"id", id,
		"step", stepCode,
		"completed", input.Completed,
		"defective", input.Defective,
	)
	return detail, nil
}

func (s *workOrderService) CreateCustomerAccess(ctx context.Context, id string, input workorder.AccessInput) (*workorder.Detail, error) {
	ctx, span := otel.Tracer(infrastructure.ServiceName).Start(ctx, "WorkOrderService.CreateCustomerAccess")
	defer span.End()
	span.SetAttributes(attribute.String("work_order.id", id))

	detail, err := s.manager.CreateCustomerAccess(id, input)
	if err != nil {
		s.logger.WarnContext(ctx, "customer access creation failed", "id", id, "error", err)
		return nil, err
	}
	s.logger.InfoContext(ctx, "customer access issued", "id", id)
	return detail, nil
}

func (s *workOrderService) ConfirmCustomerAccess(ctx context.Context, id, accessID string, confirmedBy string) (*workorder.Detail, error) {
	ctx, span := otel.Tracer(infrastructure.ServiceName).Start(ctx, "WorkOrderService.ConfirmCustomerAccess")
	defer span.End()
	span.SetAttributes(
		attribute.String("work_order.id", id),
		attribute.String("work_order.access_id", accessID),
	)

	var by *string
	if confirmedBy != "" {
		by = &confirmedBy
	}
	detail, err := s.manager.ConfirmCustomerAccess(id, accessID, by)
	if err != nil {
		s.logger.WarnContext(ctx, "customer access confirmation failed",
			"id", id,
			"access_id", accessID,
			"error", err,
		)
		return nil, err
	}
	s.logger.InfoContext(ctx, "customer access confirmed",
		"id", id,
		"access_id", accessID,
		"confirmed_by", confirmedBy,
	)
	return detail, nil
}

func (s *workOrderService) Remove(ctx context.Context, id string) error {
	ctx, span := otel.Tracer(infrastructure.ServiceName).Start(ctx, "WorkOrderService.Remove")
	defer span.End()
	span.SetAttributes(attribute.String("work_order.id", id))

	if err := s.manager.Remove(id); err != nil {
		s.logger.WarnContext(ctx, "work order removal failed", "id", id, "error", err)
		return err
	}
	s.logger.InfoContext(ctx, "work order removed", "id", id)
	return nil
}
