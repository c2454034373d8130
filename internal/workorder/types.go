package workorder

import "time"

// Status is the overall lifecycle state of a work order.
type Status string

const (
	StatusPlanned    Status = "PLANNED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// StepStatus is the derived state of a single step.
type StepStatus string

const (
	StepPlanned    StepStatus = "PLANNED"
	StepInProgress StepStatus = "IN_PROGRESS"
	StepCompleted  StepStatus = "COMPLETED"
)

// Priority ranks a work order for scheduling.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// AccessStatus is the state of a customer access credential.
// The only transition is ACTIVE -> CONFIRMED; it is one-way.
type AccessStatus string

const (
	AccessActive    AccessStatus = "ACTIVE"
	AccessConfirmed AccessStatus = "CONFIRMED"
)

// ProcurementPreference controls whether defect detection notifies
// procurement and which factory it targets.
type ProcurementPreference struct {
	AutoNotify        bool    `json:"auto_notify"`
	TargetFactoryID   *string `json:"target_factory_id,omitempty"`
	TargetFactoryName *string `json:"target_factory_name,omitempty"`
}

// Step is one stage of a work order. CompletedQuantity never exceeds
// ExpectedQuantity and both quantity counters are monotonically
// non-decreasing; Status is derived from the quantities.
type Step struct {
	StepCode              string     `json:"step_code"`
	StepName              string     `json:"step_name"`
	AssigneeID            string     `json:"assignee_id"`
	AssigneeName          string     `json:"assignee_name"`
	ExpectedQuantity      int        `json:"expected_quantity"`
	CompletedQuantity     int        `json:"completed_quantity"`
	DefectiveQuantity     int        `json:"defective_quantity"`
	EstimatedCompletionAt *time.Time `json:"estimated_completion_at,omitempty"`
	Status                StepStatus `json:"status"`
}

// CustomerAccess is a credential grant that lets an external customer
// view one work order. At most one access record is live per order;
// issuing a new one replaces the prior record entirely.
type CustomerAccess struct {
	ID           string       `json:"id"`
	WorkOrderID  string       `json:"work_order_id"`
	CustomerName string       `json:"customer_name"`
	Company      *string      `json:"company,omitempty"`
	ContactPhone *string      `json:"contact_phone,omitempty"`
	Login        string       `json:"login"`
	Password     string       `json:"password"`
	Status       AccessStatus `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
	ConfirmedBy  *string      `json:"confirmed_by,omitempty"`
	ConfirmedAt  *time.Time   `json:"confirmed_at,omitempty"`
}

// Summary is the reduced list view of a work order. It omits steps,
// procurement detail and credentials; the customer account pointer is
// present only while the access record is still ACTIVE.
type Summary struct {
	ID                    string        `json:"id"`
	Code                  string        `json:"code"`
	Title                 string        `json:"title"`
	Priority              Priority      `json:"priority"`
	OwnerID               string        `json:"owner_id"`
	OwnerName             string        `json:"owner_name"`
	Status                Status        `json:"status"`
	StartAt               time.Time     `json:"start_at"`
	EndAt                 time.Time     `json:"end_at"`
	TargetQuantity        int           `json:"target_quantity"`
	CompletedQuantity     int           `json:"completed_quantity"`
	DefectiveQuantity     int           `json:"defective_quantity"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
	Watchers              []string      `json:"watchers"`
	CustomerAccountID     *string       `json:"customer_account_id,omitempty"`
	CustomerAccountStatus *AccessStatus `json:"customer_account_status,omitempty"`
}

// Detail is the full authoritative record of a work order.
type Detail struct {
	ID                string                `json:"id"`
	Code              string                `json:"code"`
	Title             string                `json:"title"`
	Description       *string               `json:"description,omitempty"`
	Priority          Priority              `json:"priority"`
	OwnerID           string                `json:"owner_id"`
	OwnerName         string                `json:"owner_name"`
	Status            Status                `json:"status"`
	StartAt           time.Time             `json:"start_at"`
	EndAt             time.Time             `json:"end_at"`
	TargetQuantity    int                   `json:"target_quantity"`
	CompletedQuantity int                   `json:"completed_quantity"`
	DefectiveQuantity int                   `json:"defective_quantity"`
	Procurement       ProcurementPreference `json:"procurement"`
	Steps             []Step                `json:"steps"`
	Watchers          []string              `json:"watchers"`
	CustomerAccess    *CustomerAccess       `json:"customer_access,omitempty"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

// Clone returns a deep copy of the detail so callers can never mutate
// store state through a returned record.
func (d *Detail) Clone() *Detail {
	out := *d
	out.Steps = make([]Step, len(d.Steps))
	copy(out.Steps, d.Steps)
	out.Watchers = append([]string(nil), d.Watchers...)
	if d.Description != nil {
		v := *d.Description
		out.Description = &v
	}
	out.Procurement = cloneProcurement(d.Procurement)
	if d.CustomerAccess != nil {
		access := *d.CustomerAccess
		access.Company = cloneString(d.CustomerAccess.Company)
		access.ContactPhone = cloneString(d.CustomerAccess.ContactPhone)
		access.ConfirmedBy = cloneString(d.CustomerAccess.ConfirmedBy)
		if d.CustomerAccess.ConfirmedAt != nil {
			t := *d.CustomerAccess.ConfirmedAt
			access.ConfirmedAt = &t
		}
		out.CustomerAccess = &access
	}
	return &out
}

func cloneProcurement(p ProcurementPreference) ProcurementPreference {
	return ProcurementPreference{
		AutoNotify:        p.AutoNotify,
		TargetFactoryID:   cloneString(p.TargetFactoryID),
		TargetFactoryName: cloneString(p.TargetFactoryName),
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// Summary projects the reduced list view from the full record.
func (d *Detail) Summary() Summary {
	s := Summary{
		ID:                d.ID,
		Code:              d.Code,
		Title:             d.Title,
		Priority:          d.Priority,
		OwnerID:           d.OwnerID,
		OwnerName:         d.OwnerName,
		Status:            d.Status,
		StartAt:           d.StartAt,
		EndAt:             d.EndAt,
		TargetQuantity:    d.TargetQuantity,
		CompletedQuantity: sumCompleted(d.Steps),
		DefectiveQuantity: sumDefective(d.Steps),
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
		Watchers:          append([]string(nil), d.Watchers...),
	}
	if d.CustomerAccess != nil {
		status := d.CustomerAccess.Status
		s.CustomerAccountStatus = &status
		if status == AccessActive {
			id := d.CustomerAccess.ID
			s.CustomerAccountID = &id
		}
	}
	return s
}

func sumCompleted(steps []Step) int {
	total := 0
	for _, step := range steps {
		total += step.CompletedQuantity
	}
	return total
}

func sumDefective(steps []Step) int {
	total := 0
	for _, step := range steps {
		total += step.DefectiveQuantity
	}
	return total
}
