package license

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClock is a settable clock for driving expiry transitions.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(now time.Time) *testClock {
	return &testClock{now: now}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLicenseManager(t *testing.T) (*Manager, *testClock) {
	t.Helper()
	clock := newTestClock(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	m := NewManager(NewRegistry())
	m.clock = clock.Now
	return m, clock
}

func TestManager_InitialState(t *testing.T) {
	m, _ := newTestLicenseManager(t)

	view := m.Status()
	assert.Equal(t, StatusInactive, view.Status)
	assert.Nil(t, view.Tier)
	assert.Nil(t, view.ExpiresAt)
	assert.Nil(t, view.RemainingDays)
}

func TestManager_Plans(t *testing.T) {
	m, _ := newTestLicenseManager(t)

	plans := m.Plans()
	require.Len(t, plans, 3)
	assert.Equal(t, TierStarter, plans[0].Tier)
	assert.Equal(t, "云启版", plans[0].Name)
	assert.Equal(t, TierProfessional, plans[1].Tier)
	assert.Equal(t, "智控版", plans[1].Name)
	assert.Equal(t, TierEnterprise, plans[2].Tier)
	assert.Equal(t, "旗舰版", plans[2].Name)
}

func TestManager_Activate(t *testing.T) {
	m, clock := newTestLicenseManager(t)

	view, err := m.Activate("GXL-STARTER-90D", "张敏")
	require.NoError(t, err)

	assert.Equal(t, StatusActive, view.Status)
	require.NotNil(t, view.Tier)
	assert.Equal(t, TierStarter, *view.Tier)
	require.NotNil(t, view.PlanName)
	assert.Equal(t, "云启版", *view.PlanName)
	require.NotNil(t, view.Seats)
	assert.Equal(t, 15, *view.Seats)
	require.NotNil(t, view.ActivatedAt)
	assert.Equal(t, clock.Now(), *view.ActivatedAt)
	require.NotNil(t, view.ExpiresAt)
	assert.Equal(t, clock.Now().Add(90*24*time.Hour), *view.ExpiresAt)
	require.NotNil(t, view.RemainingDays)
	assert.Equal(t, 90, *view.RemainingDays)
	require.NotNil(t, view.LastActionBy)
	assert.Equal(t, "张敏", *view.LastActionBy)
}

func TestManager_Activate_InvalidCode(t *testing.T) {
	m, _ := newTestLicenseManager(t)

	_, err := m.Activate("GXL-BOGUS-1D", "张敏")
	assert.ErrorIs(t, err, ErrInvalidCode)
	assert.Equal(t, StatusInactive, m.Status().Status, "failed activation leaves state untouched")
}

func TestManager_Activate_CodeConsumedExactlyOnce(t *testing.T) {
	m, _ := newTestLicenseManager(t)

	_, err := m.Activate("GXL-STARTER-90D", "张敏")
	require.NoError(t, err)

	_, err = m.Activate("GXL-STARTER-90D", "李雷")
	assert.ErrorIs(t, err, ErrCodeAlreadyUsed)

	// the failed second attempt did not disturb the active license
	view := m.Status()
	assert.Equal(t, StatusActive, view.Status)
	assert.Equal(t, "张敏", *view.LastActionBy)
}

func TestManager_Activate_OverwritesExistingLicense(t *testing.T) {
	m, _ := newTestLicenseManager(t)

	_, err := m.Activate("GXL-STARTER-90D", "张敏")
	require.NoError(t, err)

	view, err := m.Activate("GXL-ENT-180D", "李雷")
	require.NoError(t, err)
	assert.Equal(t, TierEnterprise, *view.Tier)
	assert.Equal(t, 120, *view.Seats)
	assert.Equal(t, 180, *view.RemainingDays, "replacement, not extension")
}

func TestManager_LazyExpiry(t *testing.T) {
	m, clock := newTestLicenseManager(t)

	_, err := m.Activate("GXL-STARTER-90D", "张敏")
	require.NoError(t, err)

	clock.Advance(89 * 24 * time.Hour)
	view := m.Status()
	assert.Equal(t, StatusActive, view.Status)
	assert.Equal(t, 1, *view.RemainingDays)

	clock.Advance(2 * 24 * time.Hour)
	view = m.Status()
	assert.Equal(t, StatusExpired, view.Status)
	assert.Equal(t, 0, *view.RemainingDays)
	assert.NotNil(t, view.Tier, "plan data survives expiry")
}

func TestManager_LazyExpiry_SuspendedAlsoExpires(t *testing.T) {
	m, clock := newTestLicenseManager(t)

	_, err := m.Activate("GXL-STARTER-90D", "张敏")
	require.NoError(t, err)
	_, err = m.Suspend("张敏", nil)
	require.NoError(t, err)

	clock.Advance(91 * 24 * time.Hour)
	assert.Equal(t, StatusExpired, m.Status().Status)
}

func TestManager_RemainingDays_Ceiling(t *testing.T) {
	m, clock := newTestLicenseManager(t)

	_, err := m.Activate("GXL-STARTER-90D", "张敏")
	require.NoError(t, err)

	// one hour into the license: 89 days and 23 hours left rounds up
	clock.Advance(time.Hour)
	assert.Equal(t, 90, *m.Status().RemainingDays)

	clock.Advance(23 * time.Hour)
	assert.Equal(t, 89, *m.Status().RemainingDays)
}

func TestManager_Renew_ExtendsFromExpiry(t *testing.T) {
	m, clock := newTestLicenseManager(t)

	_, err := m.Activate("GXL-STARTER-90D", "张敏")
	require.NoError(t, err)
	originalExpiry := *m.Status().ExpiresAt

	clock.Advance(10 * 24 * time.Hour)
	view, err := m.Renew("GXL-STARTER-365D", "张敏")
	require.NoError(t, err)

	// renewing before expiry stacks onto the remaining term
	assert.Equal(t, originalExpiry.Add(365*24*time.Hour), *view.ExpiresAt)
	assert.Equal(t, StatusActive, view.Status)
}

func TestManager_Renew_ExtendsFromNowWhenExpired(t *testing.T) {
	m, clock := newTestLicenseManager(t)

	_, err := m.Activate("GXL-STARTER-90D", "张敏")
	require.NoError(t, err)

	clock.Advance(200 * 24 * time.Hour)
	view, err := m.Renew("GXL-PRO-365D", "张敏")
	require.NoError(t, err)

	assert.Equal(t, clock.Now().Add(365*24*time.Hour), *view.ExpiresAt)
	assert.Equal(t, StatusActive, view.Status)
	assert.Equal(t, TierProfessional, *view.Tier, "renewal code swaps the tier")
	assert.Equal(t, 40, *view.Seats)
}

func TestManager_Renew_FromInactive(t *testing.T) {
	m, clock := newTestLicenseManager(t)

	view, err := m.Renew("GXL-PRO-365D", "张敏")
	require.NoError(t, err)

	assert.Equal(t, StatusActive, view.Status)
	require.NotNil(t, view.ActivatedAt)
	assert.Equal(t, clock.Now(), *view.ActivatedAt)
	assert.Equal(t, clock.Now().Add(365*24*time.Hour), *view.ExpiresAt)
}

func TestManager_Renew_ClearsSuspension(t *testing.T) {
	m, _ := newTestLicenseManager(t)

	_, err := m.Activate("GXL-STARTER-90D", "张敏")
	require.NoError(t, err)
	reason := "欠费"
	_, err = m.Suspend("张敏", &reason)
	require.NoError(t, err)

	view, err := m.Renew("GXL-STARTER-365D", "张敏")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, view.Status)
	assert.Nil(t, view.SuspensionReason)
}

func TestManager_Renew_NeverShortens(t *testing.T) {
	m, _ := newTestLicenseManager(t)

	_, err := m.Activate("GXL-ENT-365D", "张敏")
	require.NoError(t, err)
	before := *m.Status().ExpiresAt

	view, err := m.Renew("GXL-STARTER-365D", "张敏")
	require.NoError(t, err)
	assert.True(t, view.ExpiresAt.After(before), "renewal always moves expiry forward")
}

func TestManager_Suspend(t *testing.T) {
	m, _ := newTestLicenseManager(t)

	_, err := m.Activate("GXL-STARTER-90D", "张敏")
	require.NoError(t, err)

	reason := "项目暂停"
	view, err := m.Suspend("李雷", &reason)
	require.NoError(t, err)
	assert.Equal(t, StatusSuspended, view.Status)
	require.NotNil(t, view.SuspensionReason)
	assert.Equal(t, "项目暂停", *view.SuspensionReason)
	assert.Equal(t, "李雷", *view.LastActionBy)
	assert.NotNil(t, view.ExpiresAt, "expiry is retained through suspension")
}

func TestManager_Suspend_RejectsInactive(t *testing.T) {
	m, _ := newTestLicenseManager(t)

	_, err := m.Suspend("张敏", nil)
	assert.ErrorIs(t, err, ErrNothingToSuspend)
}

func TestManager_Resume(t *testing.T) {
	m, _ := newTestLicenseManager(t)

	_, err := m.Activate("GXL-STARTER-90D", "张敏")
	require.NoError(t, err)
	reason := "项目暂停"
	_, err = m.Suspend("张敏", &reason)
	require.NoError(t, err)

	view, err := m.Resume("李雷")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, view.Status)
	assert.Nil(t, view.SuspensionReason, "reason cleared on resume")
	assert.Equal(t, "李雷", *view.LastActionBy)
}

func TestManager_Resume_RejectsNonSuspended(t *testing.T) {
	m, _ := newTestLicenseManager(t)

	_, err := m.Resume("张敏")
	assert.ErrorIs(t, err, ErrNotSuspended)

	_, err = m.Activate("GXL-STARTER-90D", "张敏")
	require.NoError(t, err)
	_, err = m.Resume("张敏")
	assert.ErrorIs(t, err, ErrNotSuspended)
}

func TestManager_Resume_PastExpiryFlipsExpired(t *testing.T) {
	m, clock := newTestLicenseManager(t)

	_, err := m.Activate("GXL-STARTER-90D", "张敏")
	require.NoError(t, err)
	_, err = m.Suspend("张敏", nil)
	require.NoError(t, err)

	clock.Advance(91 * 24 * time.Hour)
	_, err = m.Resume("张敏")
	assert.ErrorIs(t, err, ErrExpiredUseRenewal)
	assert.Equal(t, StatusExpired, m.Status().Status)

	// renewal is the only way back
	view, err := m.Renew("GXL-STARTER-365D", "张敏")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, view.Status)
}

func TestManager_ConcurrentActivation(t *testing.T) {
	m, _ := newTestLicenseManager(t)

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Activate("GXL-PRO-90D", "张敏")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, StatusActive, m.Status().Status)
}
