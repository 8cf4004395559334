// Package allocator produces short identifiers for new URLs.
//
// Identifiers are drawn at random from a fixed alphabet using a
// cryptographically secure source, so they reveal nothing about creation
// order. Uniqueness is not decided here: the store's unique-key insert is the
// authority, and callers retry allocation when it reports a conflict.
package allocator

import (
	"errors"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Base62 is the default alphabet: digits, lower and upper case latin letters.
const Base62 = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// DefaultLength is the identifier length used when none is configured.
const DefaultLength = 7

var (
	// ErrInvalidLength is returned by New for a length below one.
	ErrInvalidLength = errors.New("identifier length must be positive")
	// ErrInvalidAlphabet is returned by New when WithAlphabet is given an unusable alphabet.
	ErrInvalidAlphabet = errors.New("alphabet must contain between 2 and 255 distinct characters")
)

// Option configures an Allocator.
type Option func(*Allocator)

// WithAlphabet overrides the Base62 alphabet.
func WithAlphabet(alphabet string) Option {
	return func(a *Allocator) {
		a.alphabet = alphabet
	}
}

// Allocator generates random identifiers of a fixed length.
// It holds no mutable state and is safe for concurrent use.
type Allocator struct {
	alphabet string
	length   int
}

// New returns an Allocator for identifiers of the given length.
func New(length int, opts ...Option) (*Allocator, error) {
	const op = "allocator.New"

	a := &Allocator{
		alphabet: Base62,
		length:   length,
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.length < 1 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidLength)
	}
	if !validAlphabet(a.alphabet) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidAlphabet)
	}

	return a, nil
}

// Next returns a fresh random identifier.
func (a *Allocator) Next() (string, error) {
	const op = "allocator.Allocator.Next"

	id, err := gonanoid.Generate(a.alphabet, a.length)
	if err != nil {
		return "", fmt.Errorf("%s: failed to generate identifier: %w", op, err)
	}

	return id, nil
}

// Length returns the length of generated identifiers.
func (a *Allocator) Length() int {
	return a.length
}

func validAlphabet(alphabet string) bool {
	if len(alphabet) < 2 || len(alphabet) > 255 {
		return false
	}

	seen := make(map[rune]struct{}, len(alphabet))
	for _, r := range alphabet {
		if _, ok := seen[r]; ok {
			return false
		}
		seen[r] = struct{}{}
	}

	return true
}
