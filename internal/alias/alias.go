// Package alias validates user-supplied short-code aliases per the rules
// in §4.5: length, character set, boundary
// characters, consecutive separators, and the reserved-word set.
package alias

import (
	"fmt"
	"strings"
)

// Reason enumerates why an alias was rejected.
type Reason string

const (
	ReasonInvalidLength          Reason = "InvalidLength"
	ReasonInvalidCharacter       Reason = "InvalidCharacter"
	ReasonInvalidBoundary        Reason = "InvalidBoundary"
	ReasonConsecutiveSeparators  Reason = "ConsecutiveSeparators"
	ReasonReserved               Reason = "Reserved"
)

// Error is returned when an alias fails validation.
type Error struct {
	Reason Reason
	Alias  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid alias %q: %s", e.Alias, e.Reason)
}

// DefaultReserved is the baseline reserved-word set from §6. Operators may
// extend it via the alias.reserved configuration option.
var DefaultReserved = []string{
	"admin", "api", "static", "health", "health_check", "login", "register",
	"dashboard", "profile", "logout", "shorten", "redirect", "users", "tags",
	"public", "help", "about", "contact", "terms", "privacy", "favicon.ico",
	"robots.txt", "sitemap.xml", "docs",
}

// Validator applies the alias rules with a configurable max length and
// reserved set.
type Validator struct {
	maxLength int
	reserved  map[string]struct{}
}

// NewValidator builds a Validator. maxLength <= 0 falls back to the
// specification's default of 50. extraReserved is merged with
// DefaultReserved, case-insensitively.
func NewValidator(maxLength int, extraReserved []string) *Validator {
	if maxLength <= 0 {
		maxLength = 50
	}

	reserved := make(map[string]struct{}, len(DefaultReserved)+len(extraReserved))
	for _, w := range DefaultReserved {
		reserved[w] = struct{}{}
	}
	for _, w := range extraReserved {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			reserved[w] = struct{}{}
		}
	}

	return &Validator{maxLength: maxLength, reserved: reserved}
}

// Validate checks alias against every rule in §4.5, returning the first
// violation encountered as an *Error, or nil if the alias is admissible.
// Validate is pure and synchronous: it performs no I/O.
func (v *Validator) Validate(a string) error {
	n := len(a)
	if n < 1 || n > v.maxLength {
		return &Error{Reason: ReasonInvalidLength, Alias: a}
	}

	for _, r := range a {
		if !isAliasRune(r) {
			return &Error{Reason: ReasonInvalidCharacter, Alias: a}
		}
	}

	first, last := a[0], a[n-1]
	if isSeparator(first) || isSeparator(last) {
		return &Error{Reason: ReasonInvalidBoundary, Alias: a}
	}

	if strings.Contains(a, "__") || strings.Contains(a, "--") {
		return &Error{Reason: ReasonConsecutiveSeparators, Alias: a}
	}

	if _, reserved := v.reserved[strings.ToLower(a)]; reserved {
		return &Error{Reason: ReasonReserved, Alias: a}
	}

	return nil
}

// IsReserved reports whether code matches an entry in the reserved set,
// case-insensitively. Exported so the Allocator can apply the same
// reserved-word filter to system-generated primary codes, not just
// user-supplied aliases.
func (v *Validator) IsReserved(code string) bool {
	_, reserved := v.reserved[strings.ToLower(code)]
	return reserved
}

func isAliasRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '_' || r == '-':
		return true
	default:
		return false
	}
}

func isSeparator(b byte) bool {
	return b == '_' || b == '-'
}
