package repository

import (
	"context"
	"sync"
	"time"

	"github.com/opencertify/certledger/internal/certifier/model"
)

// MemoryStore is an in-memory, thread-safe CertStore for tests and demo mode.
// Records are copied on the way in and out so callers never share memory with
// the store.
type MemoryStore struct {
	mu   sync.RWMutex
	recs map[string]*model.CertificateRecord
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string]*model.CertificateRecord)}
}

// Upsert implements CertStore.
func (s *MemoryStore) Upsert(_ context.Context, rec *model.CertificateRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.recs[rec.CertificateID] = &cp
	return nil
}

// FindByID implements CertStore.
func (s *MemoryStore) FindByID(_ context.Context, id string) (*model.CertificateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

// SetValidity implements CertStore.
func (s *MemoryStore) SetValidity(_ context.Context, id string, isValid bool, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return ErrNotFound
	}
	rec.IsValid = isValid
	rec.LastUpdated = at
	return nil
}
