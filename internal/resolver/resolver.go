// Package resolver implements the Resolver (RS) from §4.4 of the
// specification: look up the URL a short code (primary or alias) points
// at, using the bloom filter as a negative fast path.
package resolver

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/koopa0/shortcore/internal/bloom"
	"github.com/koopa0/shortcore/internal/store"
)

// Kind enumerates the ResolveError cases from §7 relevant to resolution.
type Kind string

const (
	KindNotFound           Kind = "NotFound"
	KindStorageUnavailable Kind = "StorageUnavailable"
	KindInvariantViolation Kind = "InvariantViolation"
)

// Error is returned by Resolve on a miss or failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolver: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("resolver: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Resolver answers "what URL does this code point at?", consulting the
// bloom filter before the store per §4.4.
type Resolver struct {
	store  store.Store
	filter *bloom.Filter
	log    *zap.Logger
}

// New builds a Resolver. logger may be nil, in which case a no-op
// logger is used.
func New(s store.Store, filter *bloom.Filter, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{store: s, filter: filter, log: logger}
}

// Resolve implements §4.4: a bloom negative short-circuits to NotFound
// without touching the store; otherwise the all_short_codes view is
// queried and exactly one matching row is expected.
func (r *Resolver) Resolve(ctx context.Context, code string) (string, error) {
	if !r.filter.MightContain(code) {
		return "", &Error{Kind: KindNotFound}
	}

	url, rows, err := r.store.Resolve(ctx, code)
	if err != nil {
		if kind, ok := store.KindOf(err); ok {
			return "", &Error{Kind: KindStorageUnavailable, Err: fmt.Errorf("%s: %w", kind, err)}
		}
		return "", &Error{Kind: KindStorageUnavailable, Err: err}
	}

	switch {
	case rows == 0:
		return "", &Error{Kind: KindNotFound}
	case rows == 1:
		return url, nil
	default:
		// The namespace disjointness invariant has been broken: a code
		// resolves to more than one row. Logged critical and surfaced as
		// StorageUnavailable per §7's policy, never auto-repaired.
		r.log.Error("namespace invariant violated on resolve", zap.String("code", code), zap.Int("rows", rows))
		return "", &Error{Kind: KindStorageUnavailable, Err: fmt.Errorf("invariant violation: code %q resolves to %d rows", code, rows)}
	}
}
