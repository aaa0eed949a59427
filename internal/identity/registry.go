// Package identity provides the simulated signing-identity layer.
//
// Real deployments would authenticate callers and map them to ledger
// accounts; here a fixed roster of demo signers stands in for that layer.
// The reconciliation engine treats the selected signer as an opaque
// parameter — all role enforcement happens inside the ledger, exactly as it
// would on a real chain.
package identity

import "strings"

// Role is the permission level a signer holds on the ledger.
type Role string

const (
	// RoleCertifier may submit state-changing certificate transactions.
	RoleCertifier Role = "certifier"
	// RoleAuditor may only read; any state-changing submission is rejected.
	RoleAuditor Role = "auditor"
)

// Signer is one simulated ledger account.
type Signer struct {
	Address string `json:"address" mapstructure:"address"`
	Name    string `json:"name"    mapstructure:"name"`
	Role    Role   `json:"role"    mapstructure:"role"`
}

// Registry is the process-wide roster of simulated signers. It is built once
// at startup from configuration and never mutated afterwards, so lookups need
// no locking.
type Registry struct {
	byAddr map[string]*Signer
	order  []*Signer
}

// NewRegistry builds a Registry from the configured signers. Addresses are
// matched case-insensitively, as ledger addresses conventionally are.
func NewRegistry(signers []Signer) *Registry {
	r := &Registry{byAddr: make(map[string]*Signer, len(signers))}
	for i := range signers {
		s := signers[i]
		r.byAddr[strings.ToLower(s.Address)] = &s
		r.order = append(r.order, &s)
	}
	return r
}

// Lookup returns the signer with the given address, if configured.
func (r *Registry) Lookup(address string) (*Signer, bool) {
	s, ok := r.byAddr[strings.ToLower(address)]
	return s, ok
}

// IsCertifier implements ledger.SignerRoster.
func (r *Registry) IsCertifier(address string) bool {
	s, ok := r.Lookup(address)
	return ok && s.Role == RoleCertifier
}

// Default returns the first configured signer — the deployer account in the
// demo roster — used when a caller supplies no identity on read-only paths.
func (r *Registry) Default() *Signer {
	if len(r.order) == 0 {
		return nil
	}
	return r.order[0]
}

// List returns all configured signers in configuration order.
func (r *Registry) List() []*Signer {
	out := make([]*Signer, len(r.order))
	copy(out, r.order)
	return out
}

// DefaultSigners is the demo roster used when no signers are configured.
// The addresses are the well-known first accounts of a deterministic
// Ganache workspace, so curl examples line up with local chain tooling.
func DefaultSigners() []Signer {
	return []Signer{
		{Address: "0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1", Name: "deployer", Role: RoleCertifier},
		{Address: "0xFFcf8FDEE72ac11b5c542428B35EEF5769C409f0", Name: "certifying-body", Role: RoleCertifier},
		{Address: "0x22d491Bde2303f2f43325b2108D26f1eAbA1e32b", Name: "auditor", Role: RoleAuditor},
	}
}
