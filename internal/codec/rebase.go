package codec

import (
	"errors"
	"fmt"
)

// ErrInvalidDigit is returned when a token holds a symbol outside the source alphabet.
var ErrInvalidDigit = errors.New("invalid digit")

// Rebase re-expresses the integer written by digits in alphabet from
// (most significant digit first) as the minimal digit string of alphabet to.
// Leading zero digits vanish; the value zero yields the empty string.
func Rebase(digits string, from, to *Alphabet) (string, error) {
	srcBase := from.Base()
	dstBase := to.Base()

	// acc holds the running value in base dstBase, least significant digit first.
	acc := make([]int, 0, len(digits))
	for i := 0; i < len(digits); i++ {
		d, ok := from.Digit(digits[i])
		if !ok {
			return "", fmt.Errorf("%w: %q at position %d", ErrInvalidDigit, digits[i], i)
		}

		// acc = acc*srcBase + d
		carry := d
		for j := range acc {
			v := acc[j]*srcBase + carry
			acc[j] = v % dstBase
			carry = v / dstBase
		}
		for carry > 0 {
			acc = append(acc, carry%dstBase)
			carry /= dstBase
		}
	}

	out := make([]byte, len(acc))
	for i, d := range acc {
		out[len(acc)-1-i] = to.Symbol(d)
	}
	return string(out), nil
}
