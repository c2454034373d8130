package services

import (
	"context"
	"time"

	"shopfloor/internal/infrastructure"
)

type healthService struct {
	clock func() time.Time
}

// NewHealthService returns a health service using the wall clock.
func NewHealthService() HealthService {
	return &healthService{clock: time.Now}
}

func (s *healthService) Check(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "healthy",
		Version:   infrastructure.ServiceVersion,
		Timestamp: s.clock().UTC().Format(time.RFC3339),
	}
}
