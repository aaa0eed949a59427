// Package service implements the reconciliation engine: it orchestrates
// writes across the ledger and the mutable store, verifies reads across
// both, and classifies every outcome into the caller-facing error taxonomy.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opencertify/certledger/internal/canonhash"
	"github.com/opencertify/certledger/internal/certifier/model"
	"github.com/opencertify/certledger/internal/certifier/repository"
	"github.com/opencertify/certledger/internal/ledger"
	"go.uber.org/zap"
)

// CertificateService coordinates the dual-store write, read, and invalidate
// paths. The ledger is authoritative for the digest and validity flag; the
// store owns the full record and may transiently lag.
type CertificateService struct {
	store  repository.CertStore
	ledger ledger.Ledger
	logger *zap.Logger
	keys   *keyLocks
}

// NewCertificateService creates a CertificateService.
func NewCertificateService(store repository.CertStore, l ledger.Ledger, logger *zap.Logger) *CertificateService {
	return &CertificateService{
		store:  store,
		ledger: l,
		logger: logger,
		keys:   newKeyLocks(),
	}
}

// AddOrUpdate commits the record's canonical digest to the ledger and then
// upserts the full record into the store. The ledger write happens first so
// the store never implies a commitment that does not exist; if the upsert
// fails after a successful commit, the orphaned commitment is reported, not
// masked — a retry or repair closes the window.
func (s *CertificateService) AddOrUpdate(ctx context.Context, signer string, req *model.AddCertificateRequest) (*ledger.TxReceipt, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	unlock := s.keys.lock(req.CertificateID)
	defer unlock()

	rec := req.Record(time.Now().UTC())
	digest := canonhash.Sum(rec.HashedFields())

	receipt, err := s.ledger.CommitCertificate(ctx, signer, rec.CertificateID, digest, true)
	if err != nil {
		return nil, s.classifyLedger(err)
	}

	if err := s.store.Upsert(ctx, rec); err != nil {
		s.logger.Error("store upsert failed after ledger commit",
			zap.String("certificate_id", rec.CertificateID),
			zap.String("tx_hash", receipt.TxHash),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: commitment %s has no off-chain record until retried",
			model.ErrStoreUnavailable, receipt.TxHash)
	}

	s.logger.Info("certificate committed",
		zap.String("certificate_id", rec.CertificateID),
		zap.String("tx_hash", receipt.TxHash),
		zap.String("digest", digest),
		zap.Int64("gas_used", receipt.GasUsed),
	)
	return receipt, nil
}

// Get reconciles the ledger commitment with the stored record.
//
// An invalidated certificate returns a minimal result (id + isValid=false)
// without consulting the store: its stored detail is not guaranteed current
// and is not exposed via the success path. A valid commitment whose record
// is missing reports an inconsistency; a digest mismatch reports an
// integrity violation and withholds the data.
func (s *CertificateService) Get(ctx context.Context, id string) (*model.CertificateDetail, error) {
	com, err := s.ledger.FetchCommitment(ctx, id)
	if err != nil {
		return nil, s.classifyLedger(err)
	}
	if com.Absent() {
		return nil, model.ErrNotFound
	}

	if !com.IsValid {
		return &model.CertificateDetail{
			CertificateRecord: model.CertificateRecord{CertificateID: id, IsValid: false},
		}, nil
	}

	rec, err := s.store.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.Error("commitment without off-chain record",
			zap.String("certificate_id", id),
			zap.String("digest", com.OffchainDataHash),
		)
		return nil, fmt.Errorf("%w: certificate %s", model.ErrInconsistency, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStoreUnavailable, err)
	}

	if recomputed := canonhash.Sum(rec.HashedFields()); recomputed != com.OffchainDataHash {
		s.logger.Error("digest mismatch — possible off-chain tampering",
			zap.String("certificate_id", id),
			zap.String("ledger_digest", com.OffchainDataHash),
			zap.String("recomputed_digest", recomputed),
		)
		return nil, fmt.Errorf("%w: certificate %s", model.ErrIntegrityViolation, id)
	}

	detail := &model.CertificateDetail{
		CertificateRecord: *rec,
		OffchainDataHash:  com.OffchainDataHash,
	}
	// Ledger fields win on any collision with stored fields.
	detail.IsValid = com.IsValid
	return detail, nil
}

// Invalidate flips the validity flag on the ledger and then best-effort
// mirrors it into the store. A mirror failure is logged, never rolled back:
// the ledger is authoritative and the store may lag until Repair runs.
func (s *CertificateService) Invalidate(ctx context.Context, signer, id string) (*ledger.TxReceipt, error) {
	unlock := s.keys.lock(id)
	defer unlock()

	receipt, err := s.ledger.InvalidateCertificate(ctx, signer, id)
	if err != nil {
		return nil, s.classifyLedger(err)
	}

	if err := s.store.SetValidity(ctx, id, false, time.Now().UTC()); err != nil {
		s.logger.Warn("store mirror of invalidation failed (ledger remains authoritative)",
			zap.String("certificate_id", id),
			zap.String("tx_hash", receipt.TxHash),
			zap.Error(err),
		)
	}

	s.logger.Info("certificate invalidated",
		zap.String("certificate_id", id),
		zap.String("tx_hash", receipt.TxHash),
	)
	return receipt, nil
}

// RepairResult reports the outcome of a repair pass for one certificate.
type RepairResult struct {
	CertificateID string `json:"certificateId"`
	IsValid       bool   `json:"isValid"`
	Repaired      bool   `json:"repaired"`
}

// Repair re-reads the ledger and re-syncs the store's validity mirror. It
// closes the lag window left by a failed best-effort mirror write. A missing
// off-chain record is still reported as an inconsistency — repair never
// fabricates a record the write path did not produce.
func (s *CertificateService) Repair(ctx context.Context, id string) (*RepairResult, error) {
	unlock := s.keys.lock(id)
	defer unlock()

	com, err := s.ledger.FetchCommitment(ctx, id)
	if err != nil {
		return nil, s.classifyLedger(err)
	}
	if com.Absent() {
		return nil, model.ErrNotFound
	}

	rec, err := s.store.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: certificate %s", model.ErrInconsistency, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStoreUnavailable, err)
	}

	result := &RepairResult{CertificateID: id, IsValid: com.IsValid}
	if rec.IsValid == com.IsValid {
		return result, nil
	}

	if err := s.store.SetValidity(ctx, id, com.IsValid, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStoreUnavailable, err)
	}
	result.Repaired = true

	s.logger.Info("validity mirror repaired",
		zap.String("certificate_id", id),
		zap.Bool("is_valid", com.IsValid),
	)
	return result, nil
}

// classifyLedger maps adapter-level ledger errors into the caller-facing
// taxonomy. All classification happens here; raw rejection text is passed
// through only for refusals matching no known reason.
func (s *CertificateService) classifyLedger(err error) error {
	var rej *ledger.RejectedError
	if errors.As(err, &rej) {
		switch rej.Reason {
		case ledger.ReasonUnknownCertificate:
			return model.ErrNotFound
		case ledger.ReasonAlreadyInvalid:
			return model.ErrAlreadyInvalid
		case ledger.ReasonNotAuthorized:
			return model.ErrPermissionDenied
		default:
			return &model.ErrRejected{Msg: rej.Msg}
		}
	}

	var un *ledger.UnavailableError
	if errors.As(err, &un) {
		return fmt.Errorf("%w: %v", model.ErrLedgerUnavailable, un.Err)
	}
	return fmt.Errorf("%w: %v", model.ErrLedgerUnavailable, err)
}
