package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// advisoryLockKey serialises concurrent state-changing commits, mirroring the
// single-writer ordering a real chain gives per block. The value is arbitrary
// but must be consistent across all certledger instances sharing a database.
const advisoryLockKey = int64(7_415_926_535)

// PostgresLedger persists the append-only commit history to PostgreSQL.
// It implements the Ledger interface.
type PostgresLedger struct {
	pool   *pgxpool.Pool
	roster SignerRoster
	logger *zap.Logger
}

// NewPostgresLedger creates a PostgresLedger backed by the given pool.
func NewPostgresLedger(pool *pgxpool.Pool, roster SignerRoster, logger *zap.Logger) *PostgresLedger {
	return &PostgresLedger{pool: pool, roster: roster, logger: logger}
}

// CommitCertificate implements Ledger.
func (l *PostgresLedger) CommitCertificate(ctx context.Context, signer, id, digest string, isValid bool) (*TxReceipt, error) {
	if !l.roster.IsCertifier(signer) {
		return nil, reject(ReasonNotAuthorized, "signer %s does not hold the certifier role", signer)
	}
	estimate := estimateCommitGas(id, digest)

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, &UnavailableError{Err: err}
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	receipt, err := l.insert(ctx, tx, signer, id, digest, isValid, estimate)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, &UnavailableError{Err: err}
	}

	l.logger.Debug("ledger commit recorded",
		zap.String("certificate_id", id),
		zap.String("tx_hash", receipt.TxHash),
		zap.Bool("is_valid", isValid),
	)
	return receipt, nil
}

// InvalidateCertificate implements Ledger.
func (l *PostgresLedger) InvalidateCertificate(ctx context.Context, signer, id string) (*TxReceipt, error) {
	if !l.roster.IsCertifier(signer) {
		return nil, reject(ReasonNotAuthorized, "signer %s does not hold the certifier role", signer)
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, &UnavailableError{Err: err}
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// The latest-state read and the invalidating insert must observe the same
	// history, so both happen under the advisory lock.
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", advisoryLockKey); err != nil {
		return nil, &UnavailableError{Err: err}
	}

	var digest string
	var valid bool
	err = tx.QueryRow(ctx,
		`SELECT offchain_data_hash, is_valid FROM ledger_commits
		 WHERE certificate_id = $1 ORDER BY seq DESC LIMIT 1`, id,
	).Scan(&digest, &valid)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, reject(ReasonUnknownCertificate, "certificate %s does not exist on the ledger", id)
	}
	if err != nil {
		return nil, &UnavailableError{Err: err}
	}
	if !valid {
		return nil, reject(ReasonAlreadyInvalid, "certificate %s is already invalid", id)
	}

	estimate := estimateCommitGas(id, digest)
	receipt, err := l.insertLocked(ctx, tx, signer, id, digest, false, estimate)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, &UnavailableError{Err: err}
	}

	l.logger.Debug("ledger invalidation recorded",
		zap.String("certificate_id", id),
		zap.String("tx_hash", receipt.TxHash),
	)
	return receipt, nil
}

// insert acquires the advisory lock and appends one commit.
func (l *PostgresLedger) insert(ctx context.Context, tx pgx.Tx, signer, id, digest string, isValid bool, estimate int64) (*TxReceipt, error) {
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", advisoryLockKey); err != nil {
		return nil, &UnavailableError{Err: err}
	}
	return l.insertLocked(ctx, tx, signer, id, digest, isValid, estimate)
}

// insertLocked appends one commit. Callers hold the advisory lock.
func (l *PostgresLedger) insertLocked(ctx context.Context, tx pgx.Tx, signer, id, digest string, isValid bool, estimate int64) (*TxReceipt, error) {
	var tail int64
	if err := tx.QueryRow(ctx, "SELECT COALESCE(MAX(seq), 0) FROM ledger_commits").Scan(&tail); err != nil {
		return nil, &UnavailableError{Err: err}
	}

	seq := tail + 1
	hash := txHash(seq, signer, id, digest, isValid, uuid.New().String())
	if _, err := tx.Exec(ctx,
		`INSERT INTO ledger_commits (seq, certificate_id, offchain_data_hash, is_valid, signer, tx_hash, gas_used, committed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		seq, id, digest, isValid, signer, hash, estimate, time.Now().UTC(),
	); err != nil {
		return nil, &UnavailableError{Err: err}
	}

	return &TxReceipt{
		TxHash:   hash,
		Sequence: seq,
		GasUsed:  estimate,
		GasLimit: withGasMargin(estimate),
	}, nil
}

// FetchCommitment implements Ledger.
func (l *PostgresLedger) FetchCommitment(ctx context.Context, id string) (*Commitment, error) {
	com := &Commitment{CertificateID: id}
	err := l.pool.QueryRow(ctx,
		`SELECT offchain_data_hash, is_valid FROM ledger_commits
		 WHERE certificate_id = $1 ORDER BY seq DESC LIMIT 1`, id,
	).Scan(&com.OffchainDataHash, &com.IsValid)
	if errors.Is(err, pgx.ErrNoRows) {
		com.OffchainDataHash = SentinelDigest
		return com, nil
	}
	if err != nil {
		return nil, &UnavailableError{Err: err}
	}
	return com, nil
}

// History implements Ledger.
func (l *PostgresLedger) History(ctx context.Context, id string) ([]*Commit, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT seq, certificate_id, offchain_data_hash, is_valid, signer, tx_hash, gas_used, committed_at
		 FROM ledger_commits WHERE certificate_id = $1 ORDER BY seq ASC`, id,
	)
	if err != nil {
		return nil, &UnavailableError{Err: err}
	}
	defer rows.Close()

	var out []*Commit
	for rows.Next() {
		c := &Commit{}
		if err := rows.Scan(
			&c.Sequence, &c.CertificateID, &c.OffchainDataHash, &c.IsValid,
			&c.Signer, &c.TxHash, &c.GasUsed, &c.Timestamp,
		); err != nil {
			return nil, &UnavailableError{Err: err}
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &UnavailableError{Err: err}
	}
	return out, nil
}

// Height implements Ledger.
func (l *PostgresLedger) Height(ctx context.Context) (int64, error) {
	var n int64
	if err := l.pool.QueryRow(ctx, "SELECT COUNT(*) FROM ledger_commits").Scan(&n); err != nil {
		return 0, &UnavailableError{Err: err}
	}
	return n, nil
}
