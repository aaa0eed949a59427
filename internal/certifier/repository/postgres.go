package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/opencertify/certledger/internal/certifier/model"
)

// PostgresStore persists certificate records to PostgreSQL.
// It implements CertStore.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a PostgresStore backed by the given pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Upsert implements CertStore.
func (s *PostgresStore) Upsert(ctx context.Context, rec *model.CertificateRecord) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO certificates (
			certificate_id, product_id, manufacturer_id, certifying_body_id,
			issue_date, expiry_date, last_updated, is_valid
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (certificate_id) DO UPDATE SET
			product_id         = EXCLUDED.product_id,
			manufacturer_id    = EXCLUDED.manufacturer_id,
			certifying_body_id = EXCLUDED.certifying_body_id,
			issue_date         = EXCLUDED.issue_date,
			expiry_date        = EXCLUDED.expiry_date,
			last_updated       = EXCLUDED.last_updated,
			is_valid           = EXCLUDED.is_valid`,
		rec.CertificateID, rec.ProductID, rec.ManufacturerID, rec.CertifyingBodyID,
		rec.IssueDate, rec.ExpiryDate, rec.LastUpdated, rec.IsValid,
	)
	if err != nil {
		return fmt.Errorf("upsert certificate %s: %w", rec.CertificateID, err)
	}
	return nil
}

// FindByID implements CertStore.
func (s *PostgresStore) FindByID(ctx context.Context, id string) (*model.CertificateRecord, error) {
	rec := &model.CertificateRecord{}
	err := s.db.QueryRow(ctx, `
		SELECT certificate_id, product_id, manufacturer_id, certifying_body_id,
		       issue_date, expiry_date, last_updated, is_valid
		FROM certificates WHERE certificate_id = $1`, id,
	).Scan(
		&rec.CertificateID, &rec.ProductID, &rec.ManufacturerID, &rec.CertifyingBodyID,
		&rec.IssueDate, &rec.ExpiryDate, &rec.LastUpdated, &rec.IsValid,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find certificate %s: %w", id, err)
	}
	return rec, nil
}

// SetValidity implements CertStore.
func (s *PostgresStore) SetValidity(ctx context.Context, id string, isValid bool, at time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE certificates SET is_valid = $2, last_updated = $3 WHERE certificate_id = $1`,
		id, isValid, at,
	)
	if err != nil {
		return fmt.Errorf("set validity for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
