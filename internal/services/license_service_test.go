package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopfloor/internal/license"
)

func newTestLicenseService(t *testing.T) LicenseService {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewLicenseService(license.NewManager(license.NewRegistry()), logger, nil)
}

func TestLicenseService_PlansAndStatus(t *testing.T) {
	svc := newTestLicenseService(t)
	ctx := context.Background()

	plans := svc.Plans(ctx)
	assert.Len(t, plans, 3)

	view := svc.Status(ctx)
	assert.Equal(t, license.StatusInactive, view.Status)
}

func TestLicenseService_ActivateRenew(t *testing.T) {
	svc := newTestLicenseService(t)
	ctx := context.Background()

	view, err := svc.Activate(ctx, "GXL-STARTER-90D", "张敏")
	require.NoError(t, err)
	assert.Equal(t, license.StatusActive, view.Status)

	view, err = svc.Renew(ctx, "GXL-PRO-365D", "张敏")
	require.NoError(t, err)
	require.NotNil(t, view.Tier)
	assert.Equal(t, license.TierProfessional, *view.Tier)

	_, err = svc.Activate(ctx, "GXL-STARTER-90D", "李雷")
	assert.ErrorIs(t, err, license.ErrCodeAlreadyUsed)
}

func TestLicenseService_SuspendResume(t *testing.T) {
	svc := newTestLicenseService(t)
	ctx := context.Background()

	_, err := svc.Suspend(ctx, "欠费", "张敏")
	assert.ErrorIs(t, err, license.ErrNothingToSuspend)

	_, err = svc.Activate(ctx, "GXL-ENT-180D", "张敏")
	require.NoError(t, err)

	view, err := svc.Suspend(ctx, "欠费", "张敏")
	require.NoError(t, err)
	assert.Equal(t, license.StatusSuspended, view.Status)
	require.NotNil(t, view.SuspensionReason)
	assert.Equal(t, "欠费", *view.SuspensionReason)

	view, err = svc.Resume(ctx, "李雷")
	require.NoError(t, err)
	assert.Equal(t, license.StatusActive, view.Status)

	_, err = svc.Resume(ctx, "李雷")
	assert.ErrorIs(t, err, license.ErrNotSuspended)
}

func TestLicenseService_SuspendWithoutReason(t *testing.T) {
	svc := newTestLicenseService(t)
	ctx := context.Background()

	_, err := svc.Activate(ctx, "GXL-STARTER-90D", "张敏")
	require.NoError(t, err)

	view, err := svc.Suspend(ctx, "", "张敏")
	require.NoError(t, err)
	assert.Equal(t, license.StatusSuspended, view.Status)
	assert.Nil(t, view.SuspensionReason)
}
