package services

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"shopfloor/internal/infrastructure"
	"shopfloor/internal/license"
)

type licenseService struct {
	manager *license.Manager
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics
}

// NewLicenseService creates a license service backed by the
// in-memory license manager.
func NewLicenseService(manager *license.Manager, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) LicenseService {
	return &licenseService{
		manager: manager,
		logger:  logger,
		metrics: metrics,
	}
}

func (s *licenseService) Plans(ctx context.Context) []license.Plan {
	_, span := otel.Tracer(infrastructure.ServiceName).Start(ctx, "LicenseService.Plans")
	defer span.End()
	return s.manager.Plans()
}

func (s *licenseService) Status(ctx context.Context) license.StatusView {
	_, span := otel.Tracer(infrastructure.ServiceName).Start(ctx, "LicenseService.Status")
	defer span.End()
	return s.manager.Status()
}

func (s *licenseService) Activate(ctx context.Context, code, operator string) (license.StatusView, error) {
	ctx, span := otel.Tracer(infrastructure.ServiceName).Start(ctx, "LicenseService.Activate")
	defer span.End()

	view, err := s.manager.Activate(code, operator)
	if err != nil {
		if s.metrics != nil {
			s.metrics.LicenseActivationErrors.Add(ctx, 1)
		}
		s.logger.WarnContext(ctx, "license activation failed",
			"operator", operator,
			"error", err,
		)
		return view, err
	}

	if s.metrics != nil {
		s.metrics.LicenseActivations.Add(ctx, 1)
	}
	span.SetAttributes(attribute.String("license.status", string(view.Status)))
	s.logger.InfoContext(ctx, "license activated",
		"operator", operator,
		"status", view.Status,
	)
	return view, nil
}

func (s *licenseService) Renew(ctx context.Context, code, operator string) (license.StatusView, error) {
	ctx, span := otel.Tracer(infrastructure.ServiceName).Start(ctx, "LicenseService.Renew")
	defer span.End()

	view, err := s.manager.Renew(code, operator)
	if err != nil {
		s.logger.WarnContext(ctx, "license renewal failed",
			"operator", operator,
			"error", err,
		)
		return view, err
	}
	s.logger.InfoContext(ctx, "license renewed",
		"operator", operator,
		"expires_at", view.ExpiresAt,
	)
	return view, nil
}

func (s *licenseService) Suspend(ctx context.Context, reason, operator string) (license.StatusView, error) {
	ctx, span := otel.Tracer(infrastructure.ServiceName).Start(ctx, "LicenseService.Suspend")
	defer span.End()

	var r *string
	if reason != "" {
		r = &reason
	}
	view, err := s.manager.Suspend(operator, r)
	if err != nil {
		s.logger.WarnContext(ctx, "license suspension failed",
			"operator", operator,
			"error", err,
		)
		return view, err
	}
	s.logger.InfoContext(ctx, "license suspended",
		"operator", operator,
		"reason", reason,
	)
	return view, nil
}

func (s *licenseService) Resume(ctx context.Context, operator string) (license.StatusView, error) {
	ctx, span := otel.Tracer(infrastructure.ServiceName).Start(ctx, "LicenseService.Resume")
	defer span.End()

	view, err := s.manager.Resume(operator)
	if err != nil {
		s.logger.WarnContext(ctx, "license resume failed",
			"operator", operator,
			"error", err,
		)
		return view, err
	}
	s.logger.InfoContext(ctx, "license resumed", "operator", operator)
	return view, nil
}
