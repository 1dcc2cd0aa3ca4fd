// Package memstore provides an in-memory implementation of triage.Store.
package memstore

import (
	"context"
	"sync"

	"github.com/linnemanlabs/sift/internal/triage"
)

// Store holds triage results in memory, keyed by fingerprint. Suitable
// for dev/testing; safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	results map[string]*triage.Result
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{results: make(map[string]*triage.Result)}
}

// Exists reports whether a result is stored for the fingerprint.
func (s *Store) Exists(_ context.Context, fp string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.results[fp]
	return ok, nil
}

// Get retrieves a triage result by fingerprint. Returns a copy.
func (s *Store) Get(_ context.Context, fp string) (*triage.Result, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[fp]
	if !ok {
		return nil, false, nil
	}
	cp := *r
	return &cp, true, nil
}

// Put stores a copy of the result keyed by its fingerprint. The check
// and insert happen under one lock, so of concurrent writers for the
// same fingerprint exactly one wins; the rest get ErrAlreadyExists
// (or a no-op when the stored result is the identical run).
func (s *Store) Put(_ context.Context, r *triage.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.results[r.Fingerprint]; ok {
		if existing.ID == r.ID {
			return nil
		}
		return triage.ErrAlreadyExists
	}
	cp := *r
	s.results[r.Fingerprint] = &cp
	return nil
}
