// Package allocator implements §4.1: given a URL and an optional
// alias, it returns the canonical short code for that URL, creating
// persistent state as needed, while preserving code uniqueness, the
// disjointness of the primary-code and alias namespaces, and
// deduplication by URL content.
package allocator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/koopa0/shortcore/internal/alias"
	"github.com/koopa0/shortcore/internal/bloom"
	"github.com/koopa0/shortcore/internal/codegen"
	"github.com/koopa0/shortcore/internal/store"
)

// Kind enumerates the AllocateError cases from §7.
type Kind string

const (
	KindInvalidAlias       Kind = "InvalidAlias"
	KindAliasTaken         Kind = "AliasTaken"
	KindCodeSpaceExhausted Kind = "CodeSpaceExhausted"
	KindStorageUnavailable Kind = "StorageUnavailable"
	KindInvariantViolation Kind = "InvariantViolation"
)

// Error is the typed error every Allocate failure returns.
type Error struct {
	Kind   Kind
	Reason alias.Reason // populated only when Kind == KindInvalidAlias
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("allocator: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("allocator: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Outcome carries the result of a successful Allocate call.
type Outcome struct {
	Code  string
	URL   string
	IsNew bool
}

// Allocator orchestrates CG, BF, and PS per §4.1. A single Allocator is
// safe for concurrent use by many goroutines.
type Allocator struct {
	store       store.Store
	filter      *bloom.Filter
	generator   codegen.Generator
	validator   *alias.Validator
	retryBudget int
	dedupOn     bool
	log         *zap.Logger
}

// Config configures a new Allocator.
type Config struct {
	Store       store.Store
	Filter      *bloom.Filter
	Generator   codegen.Generator
	Validator   *alias.Validator
	RetryBudget int  // default 16 per §4.1's candidate-generation loop
	DedupOn     bool // dedup.enabled; New uses it as given (config defaults it to true)
	Logger      *zap.Logger
}

// New builds an Allocator from cfg.
func New(cfg Config) *Allocator {
	budget := cfg.RetryBudget
	if budget <= 0 {
		budget = 16
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Allocator{
		store:       cfg.Store,
		filter:      cfg.Filter,
		generator:   cfg.Generator,
		validator:   cfg.Validator,
		retryBudget: budget,
		dedupOn:     cfg.DedupOn,
		log:         logger,
	}
}

// Allocate implements the algorithm in §4.1.
func (a *Allocator) Allocate(ctx context.Context, url string, aliasOpt *string) (Outcome, error) {
	if aliasOpt != nil {
		if err := a.validator.Validate(*aliasOpt); err != nil {
			var ae *alias.Error
			if errors.As(err, &ae) {
				return Outcome{}, &Error{Kind: KindInvalidAlias, Reason: ae.Reason, Err: err}
			}
			return Outcome{}, &Error{Kind: KindInvalidAlias, Err: err}
		}
	}

	hash := store.Sum256(url)

	for attempt := 0; attempt < a.retryBudget; attempt++ {
		if !a.dedupOn {
			outcome, err, retry := a.createFresh(ctx, url, hash, aliasOpt)
			if retry {
				continue
			}
			return outcome, err
		}

		existing, err := a.store.FindURLByHash(ctx, hash)
		if err != nil {
			return Outcome{}, storageErr(err, a.log)
		}

		if existing != nil {
			if aliasOpt == nil {
				return Outcome{Code: existing.Code, URL: url, IsNew: false}, nil
			}
			outcome, err, retry := a.attachAlias(ctx, url, *aliasOpt, existing.ID)
			if retry {
				continue
			}
			return outcome, err
		}

		outcome, err, retry := a.createFresh(ctx, url, hash, aliasOpt)
		if retry {
			continue
		}
		return outcome, err
	}

	return Outcome{}, &Error{Kind: KindStorageUnavailable, Err: fmt.Errorf("allocate retry budget of %d exhausted", a.retryBudget)}
}

// createFresh implements §4.1 step 3: no prior URL record exists (or
// dedup is disabled), so a fresh primary code is generated and inserted,
// optionally alongside a user alias.
func (a *Allocator) createFresh(ctx context.Context, url string, hash [32]byte, aliasOpt *string) (Outcome, error, bool) {
	code, err := a.nextCandidate(ctx)
	if err != nil {
		return Outcome{}, err, false
	}

	if aliasOpt == nil {
		if _, err := a.store.InsertURL(ctx, code, url, hash); err != nil {
			kind, ok := store.KindOf(err)
			switch {
			case ok && kind == store.KindCodeExists:
				return Outcome{}, nil, true
			case ok && kind == store.KindUrlHashExists:
				return a.resolveHashConflict(ctx, url, hash, nil)
			}
			return Outcome{}, storageErr(err, a.log), false
		}
		a.filter.Insert(code)
		return Outcome{Code: code, URL: url, IsNew: true}, nil, false
	}

	if _, err := a.store.InsertURLWithAlias(ctx, code, url, hash, *aliasOpt); err != nil {
		kind, ok := store.KindOf(err)
		switch {
		case ok && kind == store.KindCodeExists:
			return Outcome{}, nil, true
		case ok && kind == store.KindUrlHashExists:
			return a.resolveHashConflict(ctx, url, hash, aliasOpt)
		case ok && (kind == store.KindAliasExists || kind == store.KindNamespaceConflict):
			return Outcome{}, &Error{Kind: KindAliasTaken, Err: err}, false
		}
		return Outcome{}, storageErr(err, a.log), false
	}
	a.filter.Insert(code)
	a.filter.Insert(*aliasOpt)
	return Outcome{Code: *aliasOpt, URL: url, IsNew: true}, nil, false
}

// resolveHashConflict handles a url_hash uniqueness violation on insert.
// The urls.url_hash constraint is global and unconditional (not relaxed
// by dedup.enabled), so a second record for identical content is never
// possible regardless of dedup configuration: the existing record is
// looked up and reused here instead of retrying the insert, which would
// otherwise fail the same way forever when dedup is disabled.
func (a *Allocator) resolveHashConflict(ctx context.Context, url string, hash [32]byte, aliasOpt *string) (Outcome, error, bool) {
	existing, err := a.store.FindURLByHash(ctx, hash)
	if err != nil {
		return Outcome{}, storageErr(err, a.log), false
	}
	if existing == nil {
		// Lost the race to observe our own conflict (e.g. the other writer's
		// row was deleted between the failed insert and this lookup); let
		// the bounded outer loop in Allocate retry from the top.
		return Outcome{}, nil, true
	}
	if aliasOpt == nil {
		return Outcome{Code: existing.Code, URL: url, IsNew: false}, nil, false
	}
	return a.attachAlias(ctx, url, *aliasOpt, existing.ID)
}

// attachAlias implements §4.1 step 4: attach a new alias to an already
// existing URL record.
func (a *Allocator) attachAlias(ctx context.Context, url, aliasValue string, targetID int64) (Outcome, error, bool) {
	if err := a.store.InsertAlias(ctx, aliasValue, targetID); err != nil {
		kind, ok := store.KindOf(err)
		if ok && (kind == store.KindAliasExists || kind == store.KindNamespaceConflict) {
			return Outcome{}, &Error{Kind: KindAliasTaken, Err: err}, false
		}
		return Outcome{}, storageErr(err, a.log), false
	}
	a.filter.Insert(aliasValue)
	return Outcome{Code: aliasValue, URL: url, IsNew: false}, nil, false
}

// nextCandidate runs the candidate-code generation loop from §4.2: ask
// CG for a candidate, reject it if it falls in the reserved-word set,
// probe BF, verify truly-present candidates against PS, and retry up to
// the configured budget.
func (a *Allocator) nextCandidate(ctx context.Context) (string, error) {
	for i := 0; i < a.retryBudget; i++ {
		candidate, err := a.generator.Next()
		if err != nil {
			if errors.Is(err, codegen.ErrExhausted) {
				return "", &Error{Kind: KindCodeSpaceExhausted, Err: err}
			}
			return "", &Error{Kind: KindStorageUnavailable, Err: err}
		}

		if a.validator.IsReserved(candidate) {
			continue
		}

		if a.filter.MightContain(candidate) {
			present, err := a.codeTruePositive(ctx, candidate)
			if err != nil {
				return "", storageErr(err, a.log)
			}
			if present {
				continue
			}
		}

		return candidate, nil
	}
	return "", &Error{Kind: KindCodeSpaceExhausted, Err: fmt.Errorf("retry budget of %d exhausted", a.retryBudget)}
}

// codeTruePositive resolves whether candidate is truly present in PS,
// to disambiguate a bloom filter positive from a true collision.
func (a *Allocator) codeTruePositive(ctx context.Context, candidate string) (bool, error) {
	_, rows, err := a.store.Resolve(ctx, candidate)
	if err != nil {
		return false, err
	}
	if rows > 1 {
		// The primary/alias namespace disjointness invariant has been
		// broken: a code resolves to more than one row. Logged critical and
		// surfaced as StorageUnavailable to the caller per §7's policy;
		// never auto-repaired.
		a.log.Error("namespace invariant violated", zap.String("code", candidate), zap.Int("rows", rows))
		return false, &Error{Kind: KindStorageUnavailable, Err: fmt.Errorf("invariant violation: code %q resolves to %d rows", candidate, rows)}
	}
	return rows == 1, nil
}

func storageErr(err error, log *zap.Logger) error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	log.Warn("storage error", zap.Error(err))
	return &Error{Kind: KindStorageUnavailable, Err: err}
}
