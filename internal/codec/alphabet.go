package codec

import (
	"errors"
	"fmt"
)

// Symbol sets used by Gmail tokens.
const (
	// ReducedSymbols is the alphabet of new-format tokens, most significant digit first.
	ReducedSymbols = "BCDFGHJKLMNPQRSTVWXZbcdfghjklmnpqrstvwxz"

	// Base64Symbols is the standard Base64 alphabet.
	Base64Symbols = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
)

// ErrInvalidAlphabet is returned when an alphabet cannot be used for re-basing.
var ErrInvalidAlphabet = errors.New("invalid alphabet")

// Alphabet is an ordered set of ASCII symbols; a symbol's position is its digit value.
type Alphabet struct {
	symbols string
	index   [256]int16
}

// NewAlphabet builds an alphabet from its symbols in digit order.
// It needs at least two distinct ASCII symbols.
func NewAlphabet(symbols string) (*Alphabet, error) {
	if len(symbols) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 symbols, got %d", ErrInvalidAlphabet, len(symbols))
	}

	a := &Alphabet{symbols: symbols}
	for i := range a.index {
		a.index[i] = -1
	}
	for i := 0; i < len(symbols); i++ {
		c := symbols[i]
		if c >= 0x80 {
			return nil, fmt.Errorf("%w: non-ASCII symbol at position %d", ErrInvalidAlphabet, i)
		}
		if a.index[c] >= 0 {
			return nil, fmt.Errorf("%w: duplicate symbol %q", ErrInvalidAlphabet, c)
		}
		a.index[c] = int16(i)
	}
	return a, nil
}

// MustAlphabet is like NewAlphabet but panics on error.
func MustAlphabet(symbols string) *Alphabet {
	a, err := NewAlphabet(symbols)
	if err != nil {
		panic(err)
	}
	return a
}

// Base returns the number of symbols.
func (a *Alphabet) Base() int {
	return len(a.symbols)
}

// Digit returns the value of symbol c, or false if c is not in the alphabet.
func (a *Alphabet) Digit(c byte) (int, bool) {
	d := a.index[c]
	if d < 0 {
		return 0, false
	}
	return int(d), true
}

// Symbol returns the symbol for digit value d.
func (a *Alphabet) Symbol(d int) byte {
	return a.symbols[d]
}

// Contains reports whether every byte of s belongs to the alphabet.
func (a *Alphabet) Contains(s string) bool {
	for i := 0; i < len(s); i++ {
		if a.index[s[i]] < 0 {
			return false
		}
	}
	return true
}

var (
	// Reduced is the new-format token alphabet.
	Reduced = MustAlphabet(ReducedSymbols)

	// Base64 is the standard Base64 alphabet.
	Base64 = MustAlphabet(Base64Symbols)
)
