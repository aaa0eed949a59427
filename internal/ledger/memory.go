package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLedger is an in-process, thread-safe simulated chain. It enforces the
// same execution rules as the durable backend (certifier-role authorisation,
// no double invalidation) and keeps the full append-only commit history.
// It is used in tests and in demo mode when no database is configured.
type MemoryLedger struct {
	roster SignerRoster

	mu      sync.RWMutex
	commits []*Commit
	latest  map[string]*Commit
}

// NewMemory creates an empty MemoryLedger whose state-changing operations are
// authorised against the given roster.
func NewMemory(roster SignerRoster) *MemoryLedger {
	return &MemoryLedger{
		roster: roster,
		latest: make(map[string]*Commit),
	}
}

// CommitCertificate implements Ledger.
func (l *MemoryLedger) CommitCertificate(_ context.Context, signer, id, digest string, isValid bool) (*TxReceipt, error) {
	// Estimation executes the same checks the submission would, so refusals
	// surface before any state changes.
	if !l.roster.IsCertifier(signer) {
		return nil, reject(ReasonNotAuthorized, "signer %s does not hold the certifier role", signer)
	}
	estimate := estimateCommitGas(id, digest)

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.append(signer, id, digest, isValid, estimate), nil
}

// InvalidateCertificate implements Ledger.
func (l *MemoryLedger) InvalidateCertificate(_ context.Context, signer, id string) (*TxReceipt, error) {
	if !l.roster.IsCertifier(signer) {
		return nil, reject(ReasonNotAuthorized, "signer %s does not hold the certifier role", signer)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	prev, ok := l.latest[id]
	if !ok {
		return nil, reject(ReasonUnknownCertificate, "certificate %s does not exist on the ledger", id)
	}
	if !prev.IsValid {
		return nil, reject(ReasonAlreadyInvalid, "certificate %s is already invalid", id)
	}

	estimate := estimateCommitGas(id, prev.OffchainDataHash)
	return l.append(signer, id, prev.OffchainDataHash, false, estimate), nil
}

// append records a commit and returns its receipt. Callers hold l.mu.
func (l *MemoryLedger) append(signer, id, digest string, isValid bool, estimate int64) *TxReceipt {
	seq := int64(len(l.commits)) + 1
	commit := &Commit{
		Sequence:         seq,
		CertificateID:    id,
		OffchainDataHash: digest,
		IsValid:          isValid,
		Signer:           signer,
		TxHash:           txHash(seq, signer, id, digest, isValid, uuid.New().String()),
		GasUsed:          estimate,
		Timestamp:        time.Now().UTC(),
	}
	l.commits = append(l.commits, commit)
	l.latest[id] = commit

	return &TxReceipt{
		TxHash:   commit.TxHash,
		Sequence: seq,
		GasUsed:  estimate,
		GasLimit: withGasMargin(estimate),
	}
}

// FetchCommitment implements Ledger.
func (l *MemoryLedger) FetchCommitment(_ context.Context, id string) (*Commitment, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	commit, ok := l.latest[id]
	if !ok {
		return &Commitment{CertificateID: id, OffchainDataHash: SentinelDigest}, nil
	}
	return &Commitment{
		CertificateID:    id,
		OffchainDataHash: commit.OffchainDataHash,
		IsValid:          commit.IsValid,
	}, nil
}

// History implements Ledger.
func (l *MemoryLedger) History(_ context.Context, id string) ([]*Commit, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []*Commit
	for _, c := range l.commits {
		if c.CertificateID == id {
			out = append(out, c)
		}
	}
	return out, nil
}

// Height implements Ledger.
func (l *MemoryLedger) Height(_ context.Context) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return int64(len(l.commits)), nil
}
