package bloom

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// CodeSource is the slice of the store's capability set the bloom filter
// needs at startup: load a previously saved snapshot, or stream every
// issued primary code and alias for a from-scratch rebuild.
type CodeSource interface {
	LoadSnapshot(ctx context.Context, name string) ([]byte, error)
	ScanCodes(ctx context.Context, fn func(code string) error) error
}

// SnapshotSink is the other half: where a background task persists a
// snapshot back to durable storage.
type SnapshotSink interface {
	SaveSnapshot(ctx context.Context, name string, data []byte) error
}

// Warm loads the named snapshot from src if present and valid; otherwise
// it rebuilds a fresh filter of the given capacity/false-positive rate by
// scanning every issued code. It returns the filter and whether it was
// restored from a snapshot (false means a full rebuild happened).
//
// Warm never returns a filter with false negatives relative to what src
// currently holds: a restore failure always falls through to a full
// rebuild rather than serving a possibly-incomplete filter.
func Warm(ctx context.Context, src CodeSource, name string, capacity uint64, fpRate float64, logger *zap.Logger) (*Filter, bool, error) {
	data, err := src.LoadSnapshot(ctx, name)
	if err != nil {
		return nil, false, fmt.Errorf("load bloom snapshot: %w", err)
	}

	if data != nil {
		f, err := Restore(data)
		if err == nil {
			logger.Info("bloom filter restored from snapshot", zap.String("name", name))
			return f, true, nil
		}
		logger.Warn("bloom snapshot invalid, rebuilding from store", zap.String("name", name), zap.Error(err))
	}

	f := New(capacity, fpRate)

	count := 0
	err = src.ScanCodes(ctx, func(code string) error {
		f.Insert(code)
		count++
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("rebuild bloom filter: %w", err)
	}

	logger.Info("bloom filter rebuilt from store", zap.String("name", name), zap.Int("codes", count))
	return f, false, nil
}
