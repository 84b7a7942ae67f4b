package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAlphabet(t *testing.T) {
	table, err := ParseAlphabet("0-9A-Za-z")
	require.NoError(t, err)
	assert.Len(t, table, 62)
	assert.Equal(t, byte('0'), table[0])
	assert.Equal(t, byte('9'), table[9])
	assert.Equal(t, byte('A'), table[10])
	assert.Equal(t, byte('z'), table[61])
}

func TestParseAlphabet_TooShort(t *testing.T) {
	_, err := ParseAlphabet("a")
	assert.Error(t, err)
}

func TestParseAlphabet_Dedup(t *testing.T) {
	table, err := ParseAlphabet("aabbcc")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), table)
}

func TestEncodeDecodeFixedWidth_RoundTrip(t *testing.T) {
	alphabet, err := ParseAlphabet("0-9A-Za-z")
	require.NoError(t, err)

	for _, v := range []uint64{0, 1, 61, 62, 1000, 123456789} {
		code, ok := encodeFixedWidth(v, 7, alphabet)
		require.True(t, ok)
		assert.Len(t, code, 7)

		decoded, ok := DecodeFixedWidth(code, alphabet)
		require.True(t, ok)
		assert.Equal(t, v, decoded)
	}
}

func TestEncodeFixedWidth_Exhausted(t *testing.T) {
	alphabet, err := ParseAlphabet("0-9")
	require.NoError(t, err)

	_, ok := encodeFixedWidth(100, 2, alphabet)
	assert.False(t, ok, "100 should not fit in 2 base-10 digits")
}

func TestSequenceEngine_Monotonic(t *testing.T) {
	alphabet, err := ParseAlphabet("0-9A-Za-z")
	require.NoError(t, err)

	e := NewSequenceEngine(7, alphabet, 0)

	c1, err := e.Next()
	require.NoError(t, err)
	c2, err := e.Next()
	require.NoError(t, err)

	assert.NotEqual(t, c1, c2)

	v1, ok := DecodeFixedWidth(c1, alphabet)
	require.True(t, ok)
	v2, ok := DecodeFixedWidth(c2, alphabet)
	require.True(t, ok)
	assert.Equal(t, v1+1, v2)
}

func TestSequenceEngine_Exhausted(t *testing.T) {
	alphabet, err := ParseAlphabet("0-9")
	require.NoError(t, err)

	e := NewSequenceEngine(1, alphabet, 9)
	_, err = e.Next() // consumes value 9, last one that fits in length 1
	require.NoError(t, err)

	_, err = e.Next() // value 10 no longer fits
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestNanoIDEngine_Length(t *testing.T) {
	alphabet, err := ParseAlphabet("0-9A-Za-z")
	require.NoError(t, err)

	e := NewNanoIDEngine(7, alphabet)
	code, err := e.Next()
	require.NoError(t, err)
	assert.Len(t, code, 7)
	assert.Equal(t, "nanoid", e.Name())
}

func TestBuild_UnknownEngine(t *testing.T) {
	_, err := Build(Config{Length: 7, AlphabetSpec: "0-9A-Za-z", EngineKind: "bogus"})
	assert.Error(t, err)
}
