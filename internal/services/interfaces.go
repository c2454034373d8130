package services

import (
	"context"

	"shopfloor/internal/license"
	"shopfloor/internal/workorder"
)

// WorkOrderService manages the work order lifecycle, progress
// recording, and customer access credentials.
type WorkOrderService interface {
	List(ctx context.Context) ([]workorder.Summary, error)
	Get(ctx context.Context, id string) (*workorder.Detail, error)
	Create(ctx context.Context, input workorder.CreateInput) (*workorder.Detail, error)
	Update(ctx context.Context, id string, input workorder.UpdateInput) (*workorder.Detail, error)
	UpdateStatus(ctx context.Context, id string, status workorder.Status) (*workorder.Detail, error)
	RecordProgress(ctx context.Context, id, stepCode string, input workorder.ProgressInput) (*workorder.Detail, error)
	CreateCustomerAccess(ctx context.Context, id string, input workorder.AccessInput) (*workorder.Detail, error)
	ConfirmCustomerAccess(ctx context.Context, id, accessID string, confirmedBy string) (*workorder.Detail, error)
	Remove(ctx context.Context, id string) error
}

// LicenseService manages the subscription license lifecycle.
type LicenseService interface {
	Plans(ctx context.Context) []license.Plan
	Status(ctx context.Context) license.StatusView
	Activate(ctx context.Context, code, operator string) (license.StatusView, error)
	Renew(ctx context.Context, code, operator string) (license.StatusView, error)
	Suspend(ctx context.Context, reason, operator string) (license.StatusView, error)
	Resume(ctx context.Context, operator string) (license.StatusView, error)
}

// HealthService reports service liveness and version info.
type HealthService interface {
	Check(ctx context.Context) HealthStatus
}

// HealthStatus is the response body for health checks.
type HealthStatus struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}
