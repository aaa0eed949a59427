package model

import "errors"

// The reconciliation engine classifies every failure into exactly one of
// these categories at its boundary; adapters surface raw errors upward
// uninterpreted. Handlers map categories to HTTP status codes.
var (
	// ErrNotFound — no ledger commitment exists for the certificate id.
	ErrNotFound = errors.New("certificate not found")

	// ErrAlreadyInvalid — the certificate has already been invalidated.
	ErrAlreadyInvalid = errors.New("certificate is already invalid")

	// ErrPermissionDenied — the submitting signer lacks the certifier role.
	ErrPermissionDenied = errors.New("signer is not authorized to modify certificates")

	// ErrInconsistency — a commitment exists but the off-chain record is
	// missing. A server-side correctness fault, never silently repaired.
	ErrInconsistency = errors.New("off-chain record missing for ledger commitment")

	// ErrIntegrityViolation — the stored record no longer matches the
	// on-ledger digest. Treated as a tampering signal; data is withheld.
	ErrIntegrityViolation = errors.New("off-chain data does not match ledger digest")

	// ErrLedgerUnavailable — the ledger endpoint could not be reached.
	ErrLedgerUnavailable = errors.New("ledger unavailable")

	// ErrStoreUnavailable — the mutable store could not be reached.
	ErrStoreUnavailable = errors.New("certificate store unavailable")
)

// ErrValidation is returned when the caller supplies missing or malformed
// input. No ledger or store call is attempted.
type ErrValidation struct{ Msg string }

func (e *ErrValidation) Error() string { return e.Msg }

// ErrRejected carries a ledger refusal that matched no known reason; the raw
// rejection text is passed through to the caller only in this case.
type ErrRejected struct{ Msg string }

func (e *ErrRejected) Error() string { return "ledger rejected transaction: " + e.Msg }
