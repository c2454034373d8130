package license

import (
	"fmt"
	"sync"
	"time"
)

// Status is the lifecycle state of the deployment's license.
type Status string

const (
	StatusInactive  Status = "inactive"
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusExpired   Status = "expired"
)

const dayDuration = 24 * time.Hour

// state is the singleton license record. Absent fields stay nil so
// cleared-on-transition rules are explicit in the type.
type state struct {
	Status             Status
	Tier               *Tier
	PlanName           *string
	LicenseKey         *string
	ActivatedAt        *time.Time
	ExpiresAt          *time.Time
	Seats              *int
	OCRCredits         *int
	AutomationCoverage *string
	LastActionAt       *time.Time
	LastActionBy       *string
	SuspensionReason   *string
}

// StatusView is the full projected license state returned to callers.
type StatusView struct {
	Status             Status     `json:"status"`
	Tier               *Tier      `json:"tier"`
	PlanName           *string    `json:"plan_name"`
	LicenseKey         *string    `json:"license_key"`
	ActivatedAt        *time.Time `json:"activated_at"`
	ExpiresAt          *time.Time `json:"expires_at"`
	RemainingDays      *int       `json:"remaining_days"`
	Seats              *int       `json:"seats"`
	OCRCredits         *int       `json:"ocr_credits"`
	AutomationCoverage *string    `json:"automation_coverage"`
	LastActionAt       *time.Time `json:"last_action_at"`
	LastActionBy       *string    `json:"last_action_by"`
	SuspensionReason   *string    `json:"suspension_reason"`
}

// Manager owns the per-deployment license singleton and drives
// activation, renewal, suspension and expiry using codes consumed from
// the registry. One mutex serializes every operation so consumption
// and state mutation are atomic together; failed operations leave the
// prior state untouched.
type Manager struct {
	mu       sync.Mutex
	registry *Registry
	current  state
	clock    func() time.Time
}

// NewManager creates a manager in the INACTIVE state.
func NewManager(registry *Registry) *Manager {
	return &Manager{
		registry: registry,
		current:  state{Status: StatusInactive},
		clock:    time.Now,
	}
}

// Plans returns the static tier catalog. Pure read, no state.
func (m *Manager) Plans() []Plan {
	return Plans()
}

// Status returns the projected license state, first applying the lazy
// expiry transition: an ACTIVE or SUSPENDED license whose expiry has
// passed flips to EXPIRED at read time.
func (m *Manager) Status() StatusView {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recalculate()
	return m.view()
}

// Activate consumes the code and overwrites the license state
// unconditionally, including an active unexpired one.
func (m *Manager) Activate(codeInput, operator string) (StatusView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	code, err := m.registry.Consume(codeInput)
	if err != nil {
		return StatusView{}, err
	}
	plan, ok := planByTier(code.Tier)
	if !ok {
		return StatusView{}, fmt.Errorf("tier %q: %w", code.Tier, ErrUnknownTier)
	}

	now := m.clock()
	expiresAt := now.Add(time.Duration(code.DurationDays) * dayDuration)
	m.current = state{
		Status:             StatusActive,
		Tier:               &plan.Tier,
		PlanName:           &plan.Name,
		LicenseKey:         &code.Code,
		ActivatedAt:        &now,
		ExpiresAt:          &expiresAt,
		Seats:              &plan.MaxSeats,
		OCRCredits:         &plan.OCRCredits,
		AutomationCoverage: &plan.AutomationCoverage,
		LastActionAt:       &now,
		LastActionBy:       &operator,
	}
	return m.view(), nil
}

// Renew consumes a code and extends the license from whichever is
// later: the current expiry or now. The new code's plan replaces tier,
// seats and credits, so renewal doubles as silent upgrade or
// downgrade. Status is forced to ACTIVE.
func (m *Manager) Renew(codeInput, operator string) (StatusView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	code, err := m.registry.Consume(codeInput)
	if err != nil {
		return StatusView{}, err
	}
	plan, ok := planByTier(code.Tier)
	if !ok {
		return StatusView{}, fmt.Errorf("tier %q: %w", code.Tier, ErrUnknownTier)
	}

	now := m.clock()
	if m.current.ActivatedAt == nil {
		m.current.ActivatedAt = &now
	}
	base := now
	if m.current.ExpiresAt != nil && m.current.ExpiresAt.After(now) {
		base = *m.current.ExpiresAt
	}
	expiresAt := base.Add(time.Duration(code.DurationDays) * dayDuration)

	m.current.Status = StatusActive
	m.current.Tier = &plan.Tier
	m.current.PlanName = &plan.Name
	m.current.LicenseKey = &code.Code
	m.current.ExpiresAt = &expiresAt
	m.current.Seats = &plan.MaxSeats
	m.current.OCRCredits = &plan.OCRCredits
	m.current.AutomationCoverage = &plan.AutomationCoverage
	m.current.LastActionAt = &now
	m.current.LastActionBy = &operator
	m.current.SuspensionReason = nil
	return m.view(), nil
}

// Suspend pauses the subscription, retaining expiry and seat data for
// a later resume. Suspending an INACTIVE license is rejected.
func (m *Manager) Suspend(operator string, reason *string) (StatusView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.Status == StatusInactive {
		return StatusView{}, ErrNothingToSuspend
	}
	now := m.clock()
	m.current.Status = StatusSuspended
	m.current.LastActionAt = &now
	m.current.LastActionBy = &operator
	m.current.SuspensionReason = reason
	return m.view(), nil
}

// Resume reactivates a SUSPENDED license before its expiry. Past
// expiry the license flips to EXPIRED and the call fails: resume never
// succeeds past expiry, the caller must renew.
func (m *Manager) Resume(operator string) (StatusView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.Status != StatusSuspended {
		return StatusView{}, ErrNotSuspended
	}
	now := m.clock()
	if m.current.ExpiresAt == nil || !m.current.ExpiresAt.After(now) {
		m.current.Status = StatusExpired
		m.current.LastActionAt = &now
		m.current.LastActionBy = &operator
		return StatusView{}, ErrExpiredUseRenewal
	}

	m.current.Status = StatusActive
	m.current.LastActionAt = &now
	m.current.LastActionBy = &operator
	m.current.SuspensionReason = nil
	return m.view(), nil
}

// recalculate applies the read-time expiry flip. Only ACTIVE and
// SUSPENDED licenses expire; INACTIVE and EXPIRED stay as they are.
func (m *Manager) recalculate() {
	if m.current.ExpiresAt == nil {
		return
	}
	if m.current.Status != StatusActive && m.current.Status != StatusSuspended {
		return
	}
	if !m.current.ExpiresAt.After(m.clock()) {
		m.current.Status = StatusExpired
	}
}

// view projects the current state; the caller must hold the lock.
func (m *Manager) view() StatusView {
	var remaining *int
	if m.current.ExpiresAt != nil {
		days := 0
		if until := m.current.ExpiresAt.Sub(m.clock()); until > 0 {
			days = int((until + dayDuration - 1) / dayDuration)
		}
		remaining = &days
	}
	return StatusView{
		Status:             m.current.Status,
		Tier:               m.current.Tier,
		PlanName:           m.current.PlanName,
		LicenseKey:         m.current.LicenseKey,
		ActivatedAt:        m.current.ActivatedAt,
		ExpiresAt:          m.current.ExpiresAt,
		RemainingDays:      remaining,
		Seats:              m.current.Seats,
		OCRCredits:         m.current.OCRCredits,
		AutomationCoverage: m.current.AutomationCoverage,
		LastActionAt:       m.current.LastActionAt,
		LastActionBy:       m.current.LastActionBy,
		SuspensionReason:   m.current.SuspensionReason,
	}
}
