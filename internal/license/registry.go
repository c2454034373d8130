package license

import (
	"fmt"
	"strings"
	"sync"
)

// CodePurpose tags why an activation code was minted. The tag is
// informational; any valid code activates or renews regardless.
type CodePurpose string

const (
	PurposeActivation CodePurpose = "activation"
	PurposeRenewal    CodePurpose = "renewal"
	PurposeUpgrade    CodePurpose = "upgrade"
)

// ActivationCode is a single-use token granting a tier for a fixed
// duration. Once consumed it can never be consumed again.
type ActivationCode struct {
	Code         string      `json:"code"`
	Tier         Tier        `json:"tier"`
	DurationDays int         `json:"duration_days"`
	Purpose      CodePurpose `json:"purpose"`

	used bool
}

// Registry holds the fixed catalog of activation codes, keyed
// case-insensitively. Codes are seeded once at construction and only
// their used flag ever changes.
type Registry struct {
	mu    sync.Mutex
	codes map[string]*ActivationCode
}

// NewRegistry seeds the shipped activation-code catalog.
func NewRegistry() *Registry {
	r := &Registry{codes: make(map[string]*ActivationCode)}
	r.register(ActivationCode{Code: "GXL-STARTER-90D", Tier: TierStarter, DurationDays: 90, Purpose: PurposeActivation})
	r.register(ActivationCode{Code: "GXL-STARTER-365D", Tier: TierStarter, DurationDays: 365, Purpose: PurposeRenewal})
	r.register(ActivationCode{Code: "GXL-PRO-90D", Tier: TierProfessional, DurationDays: 90, Purpose: PurposeUpgrade})
	r.register(ActivationCode{Code: "GXL-PRO-365D", Tier: TierProfessional, DurationDays: 365, Purpose: PurposeRenewal})
	r.register(ActivationCode{Code: "GXL-ENT-180D", Tier: TierEnterprise, DurationDays: 180, Purpose: PurposeUpgrade})
	r.register(ActivationCode{Code: "GXL-ENT-365D", Tier: TierEnterprise, DurationDays: 365, Purpose: PurposeRenewal})
	return r
}

func (r *Registry) register(code ActivationCode) {
	normalized := strings.ToUpper(code.Code)
	code.Code = normalized
	r.codes[normalized] = &code
}

// Consume atomically looks up the normalized code and marks it used.
// The check and the mark happen under one lock so two concurrent
// callers can never both observe an unused code. Returns a copy of the
// record; ErrInvalidCode or ErrCodeAlreadyUsed on failure.
func (r *Registry) Consume(input string) (ActivationCode, error) {
	normalized := strings.ToUpper(strings.TrimSpace(input))

	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.codes[normalized]
	if !ok {
		return ActivationCode{}, fmt.Errorf("code %q: %w", normalized, ErrInvalidCode)
	}
	if record.used {
		return ActivationCode{}, fmt.Errorf("code %q: %w", normalized, ErrCodeAlreadyUsed)
	}
	record.used = true
	return *record, nil
}
