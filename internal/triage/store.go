package triage

import (
	"context"
	"errors"
)

// ErrAlreadyExists is returned by Store.Put when a different result is
// already stored for the fingerprint. Stored results are immutable; the
// caller redirects to the winning result instead of overwriting.
var ErrAlreadyExists = errors.New("triage: result already exists for fingerprint")

// Store is the dedup store: a keyed map from fingerprint to the immutable
// triage result. Implementations must make Put atomic with respect to the
// existence check for the same fingerprint, so that of N concurrent
// writers exactly one wins and the rest observe ErrAlreadyExists.
type Store interface {
	Exists(ctx context.Context, fingerprint string) (bool, error)
	Get(ctx context.Context, fingerprint string) (*Result, bool, error)

	// Put inserts the result keyed by its fingerprint. Re-inserting the
	// identical result is a no-op; a conflicting result returns
	// ErrAlreadyExists. Results are never overwritten.
	Put(ctx context.Context, result *Result) error
}
