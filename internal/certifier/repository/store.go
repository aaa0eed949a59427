// Package repository implements the mutable-store adapter for certificate
// records. The store has key-value document semantics keyed by certificate
// id: upsert and point lookup, with single-document atomicity. No
// cross-record guarantees are needed — every operation keys on one id.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/opencertify/certledger/internal/certifier/model"
)

// ErrNotFound is returned when no record exists for a certificate id.
var ErrNotFound = errors.New("certificate record not found")

// CertStore is the mutable-store façade consumed by the reconciliation
// engine. Both PostgresStore and MemoryStore implement it.
type CertStore interface {
	// Upsert replaces or inserts the record by its certificate id.
	// Idempotent under retry with identical fields.
	Upsert(ctx context.Context, rec *model.CertificateRecord) error

	// FindByID returns the record for id, or ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.CertificateRecord, error)

	// SetValidity updates only the validity mirror and the update timestamp.
	// Returns ErrNotFound when no record exists.
	SetValidity(ctx context.Context, id string, isValid bool, at time.Time) error
}
