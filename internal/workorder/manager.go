package workorder

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// defaultStepName labels steps appended through a partial update that
// did not carry a name.
const defaultStepName = "未命名工序"

// Manager owns creation, mutation, step-progress recording and status
// derivation for work orders. Every mutation builds the complete next
// record and swaps it into the store atomically; failures leave the
// prior state untouched. A per-order lock serializes mutations so two
// concurrent requests cannot read-then-write stale aggregates.
type Manager struct {
	store  *Store
	issuer *AccessIssuer
	clock  func() time.Time
	ids    func() string

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewManager creates a manager over the given store.
func NewManager(store *Store, issuer *AccessIssuer) *Manager {
	return &Manager{
		store:  store,
		issuer: issuer,
		clock:  time.Now,
		ids:    newID,
		locks:  make(map[string]*sync.Mutex),
	}
}

// StepAssignment describes one step at order-creation time.
type StepAssignment struct {
	StepCode              string
	StepName              string
	AssigneeID            string
	AssigneeName          string
	ExpectedQuantity      int
	EstimatedCompletionAt *time.Time
}

// CreateInput carries the caller-supplied fields for a new work order.
type CreateInput struct {
	Code           string
	Title          string
	Description    *string
	OwnerID        string
	OwnerName      string
	Priority       Priority
	StartAt        time.Time
	EndAt          time.Time
	TargetQuantity int
	Procurement    ProcurementPreference
	Steps          []StepAssignment
	Watchers       []string
}

// StepUpdate merges into an existing step by StepCode, or appends a new
// step at zero progress when the code is unknown. Nil fields keep the
// existing values; recorded quantities are never touched by an update.
type StepUpdate struct {
	StepCode              string
	StepName              *string
	AssigneeID            *string
	AssigneeName          *string
	ExpectedQuantity      *int
	EstimatedCompletionAt *time.Time
}

// UpdateInput is a partial update: nil fields retain the existing
// values, provided fields overwrite them.
type UpdateInput struct {
	Code           *string
	Title          *string
	Description    *string
	OwnerID        *string
	OwnerName      *string
	Priority       *Priority
	StartAt        *time.Time
	EndAt          *time.Time
	TargetQuantity *int
	Procurement    *ProcurementPreference
	Steps          []StepUpdate
	Watchers       []string
}

// ProgressInput carries one progress report against a step. Negative
// increments are clamped to zero rather than rejected.
type ProgressInput struct {
	Completed int
	Defective int
	Reporter  *string
	Note      *string
}

// FindAll returns the reduced summary view of every work order.
func (m *Manager) FindAll() []Summary {
	details := m.store.FindAll()
	summaries := make([]Summary, 0, len(details))
	for _, detail := range details {
		summaries = append(summaries, detail.Summary())
	}
	return summaries
}

// FindOne returns the full record or ErrNotFound.
func (m *Manager) FindOne(id string) (*Detail, error) {
	detail := m.store.FindByID(id)
	if detail == nil {
		return nil, fmt.Errorf("work order %s: %w", id, ErrNotFound)
	}
	return detail, nil
}

// Create registers a new work order in PLANNED state. Steps start at
// zero progress, watchers are normalized against the owner, and the
// order aggregates are derived from the step list.
func (m *Manager) Create(in CreateInput) *Detail {
	now := m.clock()
	detail := &Detail{
		ID:             m.ids(),
		Code:           in.Code,
		Title:          in.Title,
		Description:    trimOptional(in.Description),
		Priority:       in.Priority,
		OwnerID:        in.OwnerID,
		OwnerName:      in.OwnerName,
		Status:         StatusPlanned,
		StartAt:        in.StartAt,
		EndAt:          in.EndAt,
		TargetQuantity: in.TargetQuantity,
		Procurement:    cloneProcurement(in.Procurement),
		Steps:          buildSteps(in.Steps),
		Watchers:       normalizeWatchers(in.Watchers, in.OwnerName),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	detail.CompletedQuantity = sumCompleted(detail.Steps)
	detail.DefectiveQuantity = sumDefective(detail.Steps)
	m.store.Save(detail)
	return detail
}

// Update merges the provided fields into the existing record. Steps
// merge by step code, watchers are renormalized against the resulting
// owner, and the quantity aggregates are recomputed from the resulting
// step list rather than trusted from caller input.
func (m *Manager) Update(id string, in UpdateInput) (*Detail, error) {
	unlock := m.lockOrder(id)
	defer unlock()

	existing, err := m.FindOne(id)
	if err != nil {
		return nil, err
	}

	next := existing.Clone()
	applyIfSet(&next.Code, in.Code)
	applyIfSet(&next.Title, in.Title)
	if in.Description != nil {
		next.Description = trimOptional(in.Description)
	}
	applyIfSet(&next.OwnerID, in.OwnerID)
	applyIfSet(&next.OwnerName, in.OwnerName)
	applyIfSet(&next.Priority, in.Priority)
	applyIfSet(&next.StartAt, in.StartAt)
	applyIfSet(&next.EndAt, in.EndAt)
	applyIfSet(&next.TargetQuantity, in.TargetQuantity)
	if in.Procurement != nil {
		next.Procurement = cloneProcurement(*in.Procurement)
	}
	if in.Steps != nil {
		next.Steps = mergeSteps(next.Steps, in.Steps)
	}
	if in.Watchers != nil {
		next.Watchers = normalizeWatchers(in.Watchers, next.OwnerName)
	} else {
		next.Watchers = normalizeWatchers(next.Watchers, next.OwnerName)
	}
	next.CompletedQuantity = sumCompleted(next.Steps)
	next.DefectiveQuantity = sumDefective(next.Steps)
	next.UpdatedAt = m.clock()

	m.store.Save(next)
	return next, nil
}

// UpdateStatus sets the overall status unconditionally. This is a
// manual override and is deliberately not validated against
// step-derived completion.
func (m *Manager) UpdateStatus(id string, status Status) (*Detail, error) {
	unlock := m.lockOrder(id)
	defer unlock()

	existing, err := m.FindOne(id)
	if err != nil {
		return nil, err
	}
	next := existing.Clone()
	next.Status = status
	next.UpdatedAt = m.clock()
	m.store.Save(next)
	return next, nil
}

// RecordProgress applies one progress report to a step. The completed
// increment clamps at the step's expected quantity; excess is silently
// dropped. The defective increment has no upper bound. Step and order
// statuses are rederived, and the order auto-promotes PLANNED ->
// IN_PROGRESS on first progress and -> COMPLETED when every step is
// complete. There is no auto-regression.
func (m *Manager) RecordProgress(id, stepCode string, in ProgressInput) (*Detail, error) {
	unlock := m.lockOrder(id)
	defer unlock()

	existing, err := m.FindOne(id)
	if err != nil {
		return nil, err
	}

	next := existing.Clone()
	stepIndex := -1
	for i, step := range next.Steps {
		if step.StepCode == stepCode {
			stepIndex = i
			break
		}
	}
	if stepIndex == -1 {
		return nil, fmt.Errorf("work order %s step %s: %w", id, stepCode, ErrStepNotFound)
	}

	step := next.Steps[stepIndex]
	completedIncrement := max(in.Completed, 0)
	defectiveIncrement := max(in.Defective, 0)

	nextCompleted := min(step.CompletedQuantity+completedIncrement, step.ExpectedQuantity)
	switch {
	case nextCompleted >= step.ExpectedQuantity:
		step.Status = StepCompleted
	case nextCompleted > 0:
		step.Status = StepInProgress
	}
	step.CompletedQuantity = nextCompleted
	step.DefectiveQuantity += defectiveIncrement
	next.Steps[stepIndex] = step

	next.CompletedQuantity = sumCompleted(next.Steps)
	next.DefectiveQuantity = sumDefective(next.Steps)

	if allStepsComplete(next.Steps) {
		next.Status = StatusCompleted
	} else if next.CompletedQuantity > 0 && next.Status == StatusPlanned {
		next.Status = StatusInProgress
	}
	next.UpdatedAt = m.clock()

	m.store.Save(next)
	return next, nil
}

// CreateCustomerAccess issues a fresh credential for the order,
// replacing any prior access record.
func (m *Manager) CreateCustomerAccess(id string, in AccessInput) (*Detail, error) {
	unlock := m.lockOrder(id)
	defer unlock()

	existing, err := m.FindOne(id)
	if err != nil {
		return nil, err
	}
	access, err := m.issuer.Issue(existing.ID, in)
	if err != nil {
		return nil, err
	}
	next := existing.Clone()
	next.CustomerAccess = access
	next.UpdatedAt = access.CreatedAt
	m.store.Save(next)
	return next, nil
}

// ConfirmCustomerAccess confirms the live credential. Confirming an
// already-confirmed credential is a no-op that returns the unchanged
// record.
func (m *Manager) ConfirmCustomerAccess(id, accessID string, confirmedBy *string) (*Detail, error) {
	unlock := m.lockOrder(id)
	defer unlock()

	existing, err := m.FindOne(id)
	if err != nil {
		return nil, err
	}
	access := existing.CustomerAccess
	if access == nil || access.ID != accessID {
		return nil, fmt.Errorf("work order %s access %s: %w", id, accessID, ErrAccessNotFound)
	}
	if access.Status != AccessActive {
		return existing, nil
	}

	next := existing.Clone()
	next.CustomerAccess = m.issuer.Confirm(next.CustomerAccess, confirmedBy)
	next.UpdatedAt = *next.CustomerAccess.ConfirmedAt
	m.store.Save(next)
	return next, nil
}

// Remove deletes the record or returns ErrNotFound.
func (m *Manager) Remove(id string) error {
	unlock := m.lockOrder(id)
	defer unlock()

	if !m.store.Remove(id) {
		return fmt.Errorf("work order %s: %w", id, ErrNotFound)
	}
	return nil
}

// lockOrder takes the per-order mutex and returns its release func.
func (m *Manager) lockOrder(id string) func() {
	m.locksMu.Lock()
	lock, ok := m.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[id] = lock
	}
	m.locksMu.Unlock()
	lock.Lock()
	return lock.Unlock
}

func buildSteps(assignments []StepAssignment) []Step {
	steps := make([]Step, 0, len(assignments))
	for _, a := range assignments {
		steps = append(steps, Step{
			StepCode:              a.StepCode,
			StepName:              a.StepName,
			AssigneeID:            a.AssigneeID,
			AssigneeName:          a.AssigneeName,
			ExpectedQuantity:      a.ExpectedQuantity,
			EstimatedCompletionAt: a.EstimatedCompletionAt,
			Status:                StepPlanned,
		})
	}
	return steps
}

// mergeSteps overwrites assignment fields of existing steps matched by
// step code and appends unknown codes as new steps at zero progress.
// Quantities already recorded are preserved.
func mergeSteps(existing []Step, updates []StepUpdate) []Step {
	updateByCode := make(map[string]StepUpdate, len(updates))
	for _, u := range updates {
		updateByCode[u.StepCode] = u
	}

	merged := make([]Step, 0, len(existing)+len(updates))
	seen := make(map[string]bool, len(existing))
	for _, step := range existing {
		seen[step.StepCode] = true
		incoming, ok := updateByCode[step.StepCode]
		if !ok {
			merged = append(merged, step)
			continue
		}
		applyIfSet(&step.StepName, incoming.StepName)
		applyIfSet(&step.AssigneeID, incoming.AssigneeID)
		applyIfSet(&step.AssigneeName, incoming.AssigneeName)
		applyIfSet(&step.ExpectedQuantity, incoming.ExpectedQuantity)
		if incoming.EstimatedCompletionAt != nil {
			t := *incoming.EstimatedCompletionAt
			step.EstimatedCompletionAt = &t
		}
		merged = append(merged, step)
	}

	for _, incoming := range updates {
		if seen[incoming.StepCode] {
			continue
		}
		step := Step{
			StepCode: incoming.StepCode,
			StepName: defaultStepName,
			Status:   StepPlanned,
		}
		applyIfSet(&step.StepName, incoming.StepName)
		applyIfSet(&step.AssigneeID, incoming.AssigneeID)
		applyIfSet(&step.AssigneeName, incoming.AssigneeName)
		applyIfSet(&step.ExpectedQuantity, incoming.ExpectedQuantity)
		if incoming.EstimatedCompletionAt != nil {
			t := *incoming.EstimatedCompletionAt
			step.EstimatedCompletionAt = &t
		}
		merged = append(merged, step)
	}
	return merged
}

// normalizeWatchers trims entries, drops empties and duplicates while
// preserving first-seen order, and injects the owner at the front when
// absent.
func normalizeWatchers(watchers []string, ownerName string) []string {
	normalized := make([]string, 0, len(watchers)+1)
	seen := make(map[string]bool, len(watchers)+1)
	if ownerName != "" {
		hasOwner := false
		for _, w := range watchers {
			if strings.TrimSpace(w) == ownerName {
				hasOwner = true
				break
			}
		}
		if !hasOwner {
			normalized = append(normalized, ownerName)
			seen[ownerName] = true
		}
	}
	for _, w := range watchers {
		v := strings.TrimSpace(w)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		normalized = append(normalized, v)
	}
	return normalized
}

// allStepsComplete treats zero-expectation steps as complete; an order
// with no steps never auto-completes through this path because the
// caller only reaches it after touching a step.
func allStepsComplete(steps []Step) bool {
	for _, step := range steps {
		if step.Status != StepCompleted && step.ExpectedQuantity != 0 {
			return false
		}
	}
	return true
}

func applyIfSet[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
