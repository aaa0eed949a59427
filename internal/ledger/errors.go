package ledger

import "fmt"

// RejectReason is a structured classification of why the ledger's execution
// logic refused a transaction. It replaces matching on rejection message
// strings, which is fragile across ledger client versions.
type RejectReason string

const (
	// ReasonUnknownCertificate — no commitment exists for the certificate id.
	ReasonUnknownCertificate RejectReason = "unknown_certificate"
	// ReasonAlreadyInvalid — the commitment exists but is already invalid.
	ReasonAlreadyInvalid RejectReason = "already_invalid"
	// ReasonNotAuthorized — the submitting signer lacks the certifier role.
	ReasonNotAuthorized RejectReason = "not_authorized"
	// ReasonExecutionReverted — any other business-rule refusal.
	ReasonExecutionReverted RejectReason = "execution_reverted"
)

// RejectedError is a business-rule refusal by the ledger. The transaction was
// understood and evaluated but not accepted; no state changed.
type RejectedError struct {
	Reason RejectReason
	Msg    string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("ledger rejected transaction (%s): %s", e.Reason, e.Msg)
}

// UnavailableError means the ledger endpoint could not be reached or the
// submission failed before execution; whether state changed is unknown.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("ledger unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// reject is a constructor shorthand used by both backends.
func reject(reason RejectReason, format string, args ...any) error {
	return &RejectedError{Reason: reason, Msg: fmt.Sprintf(format, args...)}
}
