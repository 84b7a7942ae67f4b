// Package codegen produces candidate short codes for the Allocator. A
// Generator is only responsible for producing well-formed candidates; it
// makes no uniqueness guarantee of its own (that is the Allocator's job).
package codegen

import (
	"fmt"
)

// Generator produces short-code candidates of a fixed, configured length
// drawn from a configured alphabet.
type Generator interface {
	// Next returns one candidate short code. Its length is deterministic;
	// its characters are drawn from the configured alphabet.
	Next() (string, error)

	// Name identifies the engine, for logging.
	Name() string
}

// ErrExhausted is returned by the sequence engine when the counter can no
// longer be represented in the configured length.
var ErrExhausted = fmt.Errorf("code space exhausted for configured length")

// Config selects and configures one of the two engines.
type Config struct {
	Length        int
	AlphabetSpec  string
	EngineKind    string // "nanoid" or "sequence"
	SequenceStart uint64 // recovered counter start for the sequence engine
}

// Build constructs the Generator named by cfg.EngineKind.
func Build(cfg Config) (Generator, error) {
	table, err := ParseAlphabet(cfg.AlphabetSpec)
	if err != nil {
		return nil, fmt.Errorf("build generator: %w", err)
	}
	if cfg.Length <= 0 {
		return nil, fmt.Errorf("build generator: length must be positive")
	}

	switch cfg.EngineKind {
	case "nanoid":
		return NewNanoIDEngine(cfg.Length, table), nil
	case "sequence":
		return NewSequenceEngine(cfg.Length, table, cfg.SequenceStart), nil
	default:
		return nil, fmt.Errorf("build generator: unknown engine kind %q", cfg.EngineKind)
	}
}
