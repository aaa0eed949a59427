// Package ledger is the typed façade over the append-only certificate ledger.
//
// Each certificate id carries an append-only history of commits; the latest
// commit is the authoritative commitment (digest + validity flag) readable
// via FetchCommitment. Absence is signalled by the reserved zero digest, not
// by an error. State-changing operations estimate their resource cost first,
// apply a fixed 20% safety margin, and submit with that margin as the budget.
//
// Two implementations of the Ledger interface are provided:
//   - MemoryLedger: in-process simulated chain, for testing and demo mode.
//   - PostgresLedger: durable, for deployments with a database.
package ledger

import (
	"context"
	"time"
)

// SentinelDigest is the zero-value commitment digest meaning "absent".
const SentinelDigest = "0x0000000000000000000000000000000000000000000000000000000000000000"

// Commitment is the latest on-ledger state for one certificate.
type Commitment struct {
	CertificateID    string `json:"certificateId"`
	OffchainDataHash string `json:"offchainDataHash"`
	IsValid          bool   `json:"isValid"`
}

// Absent reports whether this commitment is the "never committed" state.
func (c *Commitment) Absent() bool {
	return c == nil || c.OffchainDataHash == "" || c.OffchainDataHash == SentinelDigest
}

// Commit is a single entry in a certificate's append-only history.
type Commit struct {
	Sequence         int64     `json:"sequence"`
	CertificateID    string    `json:"certificateId"`
	OffchainDataHash string    `json:"offchainDataHash"`
	IsValid          bool      `json:"isValid"`
	Signer           string    `json:"signer"`
	TxHash           string    `json:"txHash"`
	GasUsed          int64     `json:"gasUsed"`
	Timestamp        time.Time `json:"timestamp"`
}

// TxReceipt is returned by every successful state-changing operation and
// serves as the caller's proof-of-commit.
type TxReceipt struct {
	TxHash   string `json:"txHash"`
	Sequence int64  `json:"sequence"`
	GasUsed  int64  `json:"gasUsed"`
	GasLimit int64  `json:"gasLimit"`
}

// SignerRoster reports whether a signing identity holds the certifier role.
// The ledger never chooses the identity; it only enforces authorisation on
// the one the caller submitted under. *identity.Registry satisfies this.
type SignerRoster interface {
	IsCertifier(address string) bool
}

// Ledger is the adapter interface over the certificate ledger's read and
// write operations. Implementations surface business-rule refusals as
// *RejectedError and transport failures as *UnavailableError; they never
// interpret either into caller-facing categories — that is the
// reconciliation engine's job.
type Ledger interface {
	// CommitCertificate records (digest, isValid) as the latest state for id,
	// submitted under the given signer identity.
	CommitCertificate(ctx context.Context, signer, id, digest string, isValid bool) (*TxReceipt, error)

	// InvalidateCertificate flips the validity flag to false. Only legal when
	// a commitment for id exists and is currently valid.
	InvalidateCertificate(ctx context.Context, signer, id string) (*TxReceipt, error)

	// FetchCommitment returns the latest commitment for id. A certificate
	// that was never committed yields a commitment whose digest is
	// SentinelDigest; this is not an error.
	FetchCommitment(ctx context.Context, id string) (*Commitment, error)

	// History returns the full append-only commit history for id, oldest first.
	History(ctx context.Context, id string) ([]*Commit, error)

	// Height returns the total number of commits across all certificates.
	Height(ctx context.Context) (int64, error)
}
