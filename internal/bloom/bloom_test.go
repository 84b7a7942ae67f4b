package bloom

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFilter_InsertAndMightContain(t *testing.T) {
	f := New(1000, 0.01)

	f.Insert("abc1234")
	assert.True(t, f.MightContain("abc1234"))
}

func TestFilter_NoFalseNegatives(t *testing.T) {
	f := New(1000, 0.01)

	codes := make([]string, 0, 1000)
	for i := 0; i < 1000; i++ {
		code := fmt.Sprintf("code-%d", i)
		codes = append(codes, code)
		f.Insert(code)
	}

	for _, code := range codes {
		assert.True(t, f.MightContain(code), "inserted code %q must never be reported absent", code)
	}
}

func TestFilter_SnapshotRoundTrip(t *testing.T) {
	f := New(1000, 0.01)
	for i := 0; i < 200; i++ {
		f.Insert(fmt.Sprintf("code-%d", i))
	}

	data := f.Snapshot()
	restored, err := Restore(data)
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		code := fmt.Sprintf("code-%d", i)
		assert.Equal(t, f.MightContain(code), restored.MightContain(code))
	}

	m1, k1 := f.Stats()
	m2, k2 := restored.Stats()
	assert.Equal(t, m1, m2)
	assert.Equal(t, k1, k2)
}

func TestRestore_RejectsBadMagic(t *testing.T) {
	_, err := Restore([]byte("not a bloom snapshot at all, too short or wrong"))
	assert.Error(t, err)
}

func TestRestore_RejectsTruncated(t *testing.T) {
	f := New(100, 0.01)
	data := f.Snapshot()
	_, err := Restore(data[:len(data)-1])
	assert.Error(t, err)
}

func TestDeriveParams_Monotonic(t *testing.T) {
	small := DeriveParams(100, 0.01)
	large := DeriveParams(100_000, 0.01)
	assert.Greater(t, large.M, small.M)
}

type fakeCodeSource struct {
	snapshot []byte
	codes    []string
}

func (s *fakeCodeSource) LoadSnapshot(ctx context.Context, name string) ([]byte, error) {
	return s.snapshot, nil
}

func (s *fakeCodeSource) ScanCodes(ctx context.Context, fn func(code string) error) error {
	for _, c := range s.codes {
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

func TestWarm_RebuildsWhenNoSnapshot(t *testing.T) {
	src := &fakeCodeSource{codes: []string{"aaa1111", "bbb2222"}}

	f, restored, err := Warm(context.Background(), src, "short_to_long", 1000, 0.01, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, restored)
	assert.True(t, f.MightContain("aaa1111"))
	assert.True(t, f.MightContain("bbb2222"))
}

func TestWarm_RestoresFromSnapshot(t *testing.T) {
	original := New(1000, 0.01)
	original.Insert("ccc3333")
	snap := original.Snapshot()

	src := &fakeCodeSource{snapshot: snap}

	f, restored, err := Warm(context.Background(), src, "short_to_long", 1000, 0.01, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, restored)
	assert.True(t, f.MightContain("ccc3333"))
}

func TestWarm_FallsBackOnInvalidSnapshot(t *testing.T) {
	src := &fakeCodeSource{snapshot: []byte("garbage"), codes: []string{"ddd4444"}}

	f, restored, err := Warm(context.Background(), src, "short_to_long", 1000, 0.01, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, restored)
	assert.True(t, f.MightContain("ddd4444"))
}
