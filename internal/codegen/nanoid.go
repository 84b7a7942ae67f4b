package codegen

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// NanoIDEngine samples each code position independently from a
// cryptographically strong source, uniform over the configured alphabet.
type NanoIDEngine struct {
	length   int
	alphabet string
}

// NewNanoIDEngine builds a nanoid-backed Generator for the given length
// and resolved alphabet table.
func NewNanoIDEngine(length int, alphabet []byte) *NanoIDEngine {
	return &NanoIDEngine{
		length:   length,
		alphabet: AlphabetString(alphabet),
	}
}

func (e *NanoIDEngine) Next() (string, error) {
	code, err := gonanoid.Generate(e.alphabet, e.length)
	if err != nil {
		return "", fmt.Errorf("nanoid generate: %w", err)
	}
	return code, nil
}

func (e *NanoIDEngine) Name() string {
	return "nanoid"
}
