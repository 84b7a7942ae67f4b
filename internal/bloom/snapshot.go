package bloom

import (
	"encoding/binary"
	"fmt"
)

// Snapshot wire format: a small fixed header followed by the packed bit
// words (magic + hash count + raw words), extended with a version byte
// and the two hash seeds so a restored filter reproduces exactly the
// same hash functions as the one that wrote the snapshot.
const (
	magic        uint32 = 0x42463031 // "BF01"
	snapshotVer  uint8  = 1
	headerLength        = 4 + 1 + 8 + 8 + 4 + 4 // magic, version, m, k, seed1, seed2
)

// Snapshot serializes the filter's bit array with a small header
// (magic, version, m, k, seed) into an opaque byte buffer suitable for
// persistence via the store's bloom_snapshots table. Snapshot takes the
// write lock only long enough to copy the underlying bit buffer.
func (f *Filter) Snapshot() []byte {
	f.mu.Lock()
	bitsCopy := make([]uint64, len(f.bits))
	copy(bitsCopy, f.bits)
	m, k, seed1, seed2 := f.m, f.k, f.seed1, f.seed2
	f.mu.Unlock()

	buf := make([]byte, headerLength+len(bitsCopy)*8)
	offset := 0

	binary.BigEndian.PutUint32(buf[offset:], magic)
	offset += 4
	buf[offset] = snapshotVer
	offset++
	binary.BigEndian.PutUint64(buf[offset:], m)
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], k)
	offset += 8
	binary.BigEndian.PutUint32(buf[offset:], seed1)
	offset += 4
	binary.BigEndian.PutUint32(buf[offset:], seed2)
	offset += 4

	for _, w := range bitsCopy {
		binary.BigEndian.PutUint64(buf[offset:], w)
		offset += 8
	}

	return buf
}

// Restore decodes a snapshot produced by Snapshot into a new Filter.
// Returns an error if the header is missing, truncated, or carries an
// unrecognized magic/version.
func Restore(data []byte) (*Filter, error) {
	if len(data) < headerLength {
		return nil, fmt.Errorf("bloom snapshot: payload too small (%d bytes)", len(data))
	}

	offset := 0
	gotMagic := binary.BigEndian.Uint32(data[offset:])
	offset += 4
	if gotMagic != magic {
		return nil, fmt.Errorf("bloom snapshot: bad magic %#x", gotMagic)
	}

	version := data[offset]
	offset++
	if version != snapshotVer {
		return nil, fmt.Errorf("bloom snapshot: unsupported version %d", version)
	}

	m := binary.BigEndian.Uint64(data[offset:])
	offset += 8
	k := binary.BigEndian.Uint64(data[offset:])
	offset += 8
	seed1 := binary.BigEndian.Uint32(data[offset:])
	offset += 4
	seed2 := binary.BigEndian.Uint32(data[offset:])
	offset += 4

	body := data[offset:]
	if len(body)%8 != 0 {
		return nil, fmt.Errorf("bloom snapshot: body length %d not a multiple of 8", len(body))
	}

	wantWords := (m + 63) / 64
	if uint64(len(body)/8) != wantWords {
		return nil, fmt.Errorf("bloom snapshot: expected %d words for m=%d, got %d", wantWords, m, len(body)/8)
	}

	f := newWithParams(m, k, seed1, seed2)
	for i := range f.bits {
		f.bits[i] = binary.BigEndian.Uint64(body[i*8:])
	}

	return f, nil
}
