package codegen

import (
	"sync/atomic"
)

// SequenceEngine encodes a monotonically increasing counter in fixed-width
// base-N, where N is the size of the configured alphabet. The counter is
// recovered at startup by the caller from the current maximum issued
// primary code (see DecodeFixedWidth); SequenceEngine itself only holds
// and advances it.
//
// Unlike the block-allocator this was ported from (which pre-claims
// ranges of ids for sharding across instances), this single-process core
// just increments one atomic counter: there is no second instance to
// shard against.
type SequenceEngine struct {
	length   int
	alphabet []byte
	counter  atomic.Uint64
}

// NewSequenceEngine builds a sequence Generator starting at start (the
// next value to be issued).
func NewSequenceEngine(length int, alphabet []byte, start uint64) *SequenceEngine {
	e := &SequenceEngine{length: length, alphabet: alphabet}
	e.counter.Store(start)
	return e
}

func (e *SequenceEngine) Next() (string, error) {
	n := e.counter.Add(1) - 1
	code, ok := encodeFixedWidth(n, e.length, e.alphabet)
	if !ok {
		return "", ErrExhausted
	}
	return code, nil
}

func (e *SequenceEngine) Name() string {
	return "sequence"
}

// encodeFixedWidth base-N encodes v using alphabet, left-padded with
// alphabet[0] to exactly length characters. Returns ok=false if v does not
// fit in the available width.
func encodeFixedWidth(v uint64, length int, alphabet []byte) (string, bool) {
	base := uint64(len(alphabet))
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = alphabet[0]
	}

	i := length
	for v > 0 && i > 0 {
		i--
		buf[i] = alphabet[v%base]
		v /= base
	}

	if v != 0 {
		return "", false
	}

	return string(buf), true
}

// DecodeFixedWidth is the inverse of encodeFixedWidth, used to recover the
// sequence counter from a previously issued code. Returns ok=false if code
// contains a character outside alphabet.
func DecodeFixedWidth(code string, alphabet []byte) (uint64, bool) {
	index := make(map[byte]uint64, len(alphabet))
	for i, b := range alphabet {
		index[b] = uint64(i)
	}

	base := uint64(len(alphabet))
	var v uint64
	for i := 0; i < len(code); i++ {
		digit, ok := index[code[i]]
		if !ok {
			return 0, false
		}
		v = v*base + digit
	}
	return v, true
}
