package model

import "time"

// CertificateRecord is the full off-chain certificate document owned by the
// mutable store. The ledger holds only its canonical digest and validity
// flag; IsValid here mirrors the ledger and may transiently lag it.
type CertificateRecord struct {
	CertificateID    string    `json:"certificateId"`
	ProductID        string    `json:"productId,omitempty"`
	ManufacturerID   string    `json:"manufacturerId,omitempty"`
	CertifyingBodyID string    `json:"certifyingBodyId,omitempty"`
	IssueDate        string    `json:"issueDate,omitempty"`
	ExpiryDate       string    `json:"expiryDate,omitempty"`
	LastUpdated      time.Time `json:"lastUpdated,omitzero"`
	IsValid          bool      `json:"isValid"`
}

// HashedFields returns the field set covered by the canonical digest.
// The key, the validity flag, and LastUpdated are excluded: the first two by
// contract, the timestamp so that benign churn on mirror updates cannot
// break digest verification.
func (r *CertificateRecord) HashedFields() map[string]string {
	return map[string]string{
		"productId":        r.ProductID,
		"manufacturerId":   r.ManufacturerID,
		"certifyingBodyId": r.CertifyingBodyID,
		"issueDate":        r.IssueDate,
		"expiryDate":       r.ExpiryDate,
	}
}

// CertificateDetail is the read-path result: the stored record united with
// the ledger-authoritative fields. IsValid and OffchainDataHash always come
// from the ledger, never from the store.
type CertificateDetail struct {
	CertificateRecord
	OffchainDataHash string `json:"offchainDataHash,omitempty"`
}

// AddCertificateRequest is the payload for creating or updating a certificate.
type AddCertificateRequest struct {
	CertificateID    string `json:"certificateId"`
	ProductID        string `json:"productId"`
	ManufacturerID   string `json:"manufacturerId"`
	CertifyingBodyID string `json:"certifyingBodyId"`
	IssueDate        string `json:"issueDate"`
	ExpiryDate       string `json:"expiryDate"`
}

// Validate checks that every required field is present. It fails before any
// ledger or store call is attempted.
func (r *AddCertificateRequest) Validate() error {
	missing := func(name, v string) *ErrValidation {
		if v == "" {
			return &ErrValidation{Msg: "missing required certificate field: " + name}
		}
		return nil
	}
	for _, err := range []*ErrValidation{
		missing("certificateId", r.CertificateID),
		missing("productId", r.ProductID),
		missing("manufacturerId", r.ManufacturerID),
		missing("certifyingBodyId", r.CertifyingBodyID),
		missing("issueDate", r.IssueDate),
		missing("expiryDate", r.ExpiryDate),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

// Record builds the off-chain record for this request with the update
// timestamp stamped and the validity flag set, ready for hashing and upsert.
func (r *AddCertificateRequest) Record(now time.Time) *CertificateRecord {
	return &CertificateRecord{
		CertificateID:    r.CertificateID,
		ProductID:        r.ProductID,
		ManufacturerID:   r.ManufacturerID,
		CertifyingBodyID: r.CertifyingBodyID,
		IssueDate:        r.IssueDate,
		ExpiryDate:       r.ExpiryDate,
		LastUpdated:      now,
		IsValid:          true,
	}
}
