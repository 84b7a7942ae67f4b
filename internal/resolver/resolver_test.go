package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/shortcore/internal/bloom"
	"github.com/koopa0/shortcore/internal/store"
)

// fakeStore implements store.Store, answering only Resolve; Ping and
// Close are no-ops, and every other method is unreachable from Resolver
// and panics if ever called, which would indicate a test wiring mistake
// rather than real behavior.
type fakeStore struct {
	rows map[string]string // code -> url, for a single matching row
	dup  map[string]int    // code -> row count, for invariant-violation cases
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]string), dup: make(map[string]int)}
}

func (f *fakeStore) Resolve(ctx context.Context, code string) (string, int, error) {
	if n, ok := f.dup[code]; ok {
		return "", n, nil
	}
	if url, ok := f.rows[code]; ok {
		return url, 1, nil
	}
	return "", 0, nil
}

func (f *fakeStore) FindURLByHash(ctx context.Context, hash [32]byte) (*store.URLRecord, error) {
	panic("unused in resolver tests")
}
func (f *fakeStore) InsertURL(ctx context.Context, code, url string, hash [32]byte) (int64, error) {
	panic("unused in resolver tests")
}
func (f *fakeStore) InsertURLWithAlias(ctx context.Context, code, url string, hash [32]byte, alias string) (int64, error) {
	panic("unused in resolver tests")
}
func (f *fakeStore) InsertAlias(ctx context.Context, alias string, targetID int64) error {
	panic("unused in resolver tests")
}
func (f *fakeStore) ScanCodes(ctx context.Context, fn func(code string) error) error {
	panic("unused in resolver tests")
}
func (f *fakeStore) MaxPrimaryCode(ctx context.Context) (string, bool, error) {
	panic("unused in resolver tests")
}
func (f *fakeStore) SaveSnapshot(ctx context.Context, name string, data []byte) error {
	panic("unused in resolver tests")
}
func (f *fakeStore) LoadSnapshot(ctx context.Context, name string) ([]byte, error) {
	panic("unused in resolver tests")
}
func (f *fakeStore) Ping(ctx context.Context) error { return nil }
func (f *fakeStore) Close() error                   { return nil }

func newTestResolver(fs *fakeStore) (*Resolver, *bloom.Filter) {
	filter := bloom.New(1000, 0.01)
	return New(fs, filter, nil), filter
}

func TestResolve_HitAfterBloomPositive(t *testing.T) {
	fs := newFakeStore()
	fs.rows["abc1234"] = "https://example.com/a"

	r, filter := newTestResolver(fs)
	filter.Insert("abc1234")

	url, err := r.Resolve(context.Background(), "abc1234")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a", url)
}

func TestResolve_BloomNegativeShortCircuits(t *testing.T) {
	fs := newFakeStore()
	r, _ := newTestResolver(fs)

	_, err := r.Resolve(context.Background(), "never-issued")
	require.Error(t, err)

	var re *Error
	require.True(t, errors.As(err, &re))
	assert.Equal(t, KindNotFound, re.Kind)
}

func TestResolve_BloomPositiveButMiss(t *testing.T) {
	fs := newFakeStore()
	r, filter := newTestResolver(fs)
	filter.Insert("ghost000")

	_, err := r.Resolve(context.Background(), "ghost000")
	require.Error(t, err)

	var re *Error
	require.True(t, errors.As(err, &re))
	assert.Equal(t, KindNotFound, re.Kind)
}

func TestResolve_InvariantViolationSurfacesAsStorageUnavailable(t *testing.T) {
	fs := newFakeStore()
	fs.dup["dup0000"] = 2

	r, filter := newTestResolver(fs)
	filter.Insert("dup0000")

	_, err := r.Resolve(context.Background(), "dup0000")
	require.Error(t, err)

	var re *Error
	require.True(t, errors.As(err, &re))
	assert.Equal(t, KindStorageUnavailable, re.Kind)
}
