// Package store defines the Persistent Store (PS) capability contract
// from §4.6 and a PostgreSQL implementation of it.
// Every other core package (allocator, resolver, bloom warm-up) depends
// only on the Store interface, never on the concrete Postgres type.
package store

import (
	"context"
	"errors"
	"fmt"
)

// URLRecord is the subset of a urls row the Allocator and Resolver need.
type URLRecord struct {
	ID   int64
	Code string
	URL  string
}

// Kind enumerates the PS-level error conditions from §4.6.
type Kind string

const (
	KindCodeExists        Kind = "CodeExists"
	KindUrlHashExists      Kind = "UrlHashExists"
	KindNamespaceConflict Kind = "NamespaceConflict"
	KindAliasExists       Kind = "AliasExists"
	KindNotFoundTarget    Kind = "NotFoundTarget"
	KindTransient         Kind = "Transient"
)

// Error wraps a store-level failure with its Kind so callers can branch
// on cause without depending on engine-native error types. The adapter
// never leaks pgx/pgconn errors past this boundary.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("store: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("store: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the Kind from err if it is (or wraps) a *Error.
func KindOf(err error) (Kind, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return "", false
}

// Store is the capability set the Allocator, Resolver, and bloom
// snapshot task depend on. Implementations must be safe for concurrent
// use by many goroutines.
type Store interface {
	// FindURLByHash looks up a URL record by its content hash. Returns
	// (nil, nil) when no record matches.
	FindURLByHash(ctx context.Context, hash [32]byte) (*URLRecord, error)

	// InsertURL inserts a new primary URL record in its own transaction.
	// On a code or url_hash uniqueness violation, returns a *Error with
	// the matching Kind.
	InsertURL(ctx context.Context, code, url string, hash [32]byte) (id int64, err error)

	// InsertURLWithAlias inserts a new primary URL record and an alias
	// pointing at it within a single transaction, per the composite path
	// in §4.1 step 3. On any violation the whole transaction rolls back.
	InsertURLWithAlias(ctx context.Context, code, url string, hash [32]byte, alias string) (id int64, err error)

	// InsertAlias attaches alias to an existing URL record's id.
	InsertAlias(ctx context.Context, alias string, targetID int64) error

	// Resolve reads the unified all_short_codes view for a single code.
	// rows is the number of matching rows: 0 (not found), 1 (normal), or
	// more than 1 (a namespace disjointness violation the caller must
	// treat as StorageUnavailable per §7).
	Resolve(ctx context.Context, code string) (url string, rows int, err error)

	// ScanCodes streams every primary code and alias currently stored,
	// for bloom-filter rebuild.
	ScanCodes(ctx context.Context, fn func(code string) error) error

	// MaxPrimaryCode returns the lexicographically-irrelevant maximum
	// primary code currently stored (by insertion id, not string order),
	// used by the sequence generator to recover its counter at startup.
	// ok is false when the table is empty.
	MaxPrimaryCode(ctx context.Context) (code string, ok bool, err error)

	SaveSnapshot(ctx context.Context, name string, data []byte) error
	LoadSnapshot(ctx context.Context, name string) ([]byte, error)

	Ping(ctx context.Context) error
	Close() error
}
