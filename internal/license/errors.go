package license

import "errors"

// Sentinel errors for the license lifecycle. All of them belong to the
// BadRequest family: the request was understood but violates a
// business rule, and the prior state is left untouched.
var (
	// ErrInvalidCode means the activation code is not in the catalog.
	ErrInvalidCode = errors.New("activation code is invalid")

	// ErrCodeAlreadyUsed means the code was consumed by an earlier call.
	ErrCodeAlreadyUsed = errors.New("activation code already used")

	// ErrNothingToSuspend means suspend was called while INACTIVE.
	ErrNothingToSuspend = errors.New("no active subscription to suspend")

	// ErrNotSuspended means resume was called while not SUSPENDED.
	ErrNotSuspended = errors.New("license is not suspended")

	// ErrExpiredUseRenewal means resume was attempted past expiry; the
	// license flips to EXPIRED and the caller must renew instead.
	ErrExpiredUseRenewal = errors.New("license expired, renew with a renewal code")

	// ErrUnknownTier means a code references a tier with no plan. The
	// shipped catalog covers every tier, so this only fires on a
	// miswired registry.
	ErrUnknownTier = errors.New("no plan for tier")
)
