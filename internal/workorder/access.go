package workorder

import (
	"strings"
	"time"
)

// AccessIssuer issues and confirms customer access credentials for a
// single work order. Generated logins and passwords are opaque; the
// issuer keeps no state of its own, the live record hangs off the
// work order.
type AccessIssuer struct {
	clock func() time.Time
	ids   func() string
}

// NewAccessIssuer creates an issuer with the real clock.
func NewAccessIssuer() *AccessIssuer {
	return &AccessIssuer{clock: time.Now, ids: newID}
}

// AccessInput carries the caller-supplied fields for a new credential.
type AccessInput struct {
	CustomerName string
	Company      *string
	ContactPhone *string
}

// Issue creates a fresh ACTIVE credential for the work order. The
// caller is responsible for attaching it to the order, which replaces
// any prior record; old credentials are discarded, not retained.
func (i *AccessIssuer) Issue(workOrderID string, in AccessInput) (*CustomerAccess, error) {
	customerName := strings.TrimSpace(in.CustomerName)
	if customerName == "" {
		return nil, ErrCustomerNameRequired
	}
	return &CustomerAccess{
		ID:           i.ids(),
		WorkOrderID:  workOrderID,
		CustomerName: customerName,
		Company:      trimOptional(in.Company),
		ContactPhone: trimOptional(in.ContactPhone),
		Login:        i.generateLogin(),
		Password:     i.generatePassword(),
		Status:       AccessActive,
		CreatedAt:    i.clock(),
	}, nil
}

// Confirm moves the credential from ACTIVE to CONFIRMED. Confirming an
// already-confirmed credential returns it unchanged; the transition is
// one-way and idempotent after the first success.
func (i *AccessIssuer) Confirm(access *CustomerAccess, confirmedBy *string) *CustomerAccess {
	if access.Status != AccessActive {
		return access
	}
	confirmedAt := i.clock()
	next := *access
	next.Status = AccessConfirmed
	next.ConfirmedAt = &confirmedAt
	next.ConfirmedBy = trimOptional(confirmedBy)
	return &next
}

func (i *AccessIssuer) generateLogin() string {
	return "cust-" + strings.ToLower(compactUUID()[:8])
}

func (i *AccessIssuer) generatePassword() string {
	return compactUUID()[:10]
}

// trimOptional trims an optional string and collapses empty to absent.
func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
