package workorder

import "errors"

// Sentinel errors returned by the manager. Callers classify them with
// errors.Is; the transport layer maps them to HTTP problem responses.
var (
	// ErrNotFound means the work order id did not resolve.
	ErrNotFound = errors.New("work order not found")

	// ErrStepNotFound means the step code did not resolve within the order.
	ErrStepNotFound = errors.New("work order step not found")

	// ErrAccessNotFound means no customer access exists for the order or
	// the access id did not match the live record.
	ErrAccessNotFound = errors.New("customer access not found")

	// ErrCustomerNameRequired means the customer name trimmed to empty.
	ErrCustomerNameRequired = errors.New("customer name must not be empty")
)
