package correct

import (
	"strings"

	"github.com/teemow/gmailurl/internal/codec"
)

// Defaults for the correction heuristics.
const (
	// DefaultLeadingDigit starts every legacy token issued in Gmail's lifetime.
	DefaultLeadingDigit = '1'

	// DefaultMinNewTokenLength is the shortest new-format token Gmail issues.
	DefaultMinNewTokenLength = 32

	// LegacyTokenLength is the longest legacy token the grammar captures.
	LegacyTokenLength = 16

	// ComposeSeparator joins legacy compose tokens inside a URL.
	ComposeSeparator = "%2C"
)

// Decoder decodes new-format tokens.
type Decoder interface {
	Decode(token string) (codec.Identifier, error)
}

// Options configures a Corrector.
type Options struct {
	// LeadingDigit is the expected first character of a 16-digit legacy token.
	LeadingDigit byte

	// MinNewTokenLength bounds how far a new-format token may be trimmed.
	// Values below DefaultMinNewTokenLength are raised to it.
	MinNewTokenLength int

	// Decoder validates new-format tokens. Defaults to codec.Default.
	Decoder Decoder
}

// Corrector applies the raw-data token heuristics.
type Corrector struct {
	leadingDigit byte
	minNewLen    int
	decoder      Decoder
}

// Result describes the outcome of NewToken.
type Result struct {
	// Token is the corrected token, or the input when nothing decoded.
	Token string

	// Identifier is the decoded token; empty unless Decoded is true.
	Identifier codec.Identifier

	// Decoded reports whether Token decoded successfully.
	Decoded bool

	// Trimmed is the number of trailing characters removed.
	Trimmed int

	// Attempts is the number of decode attempts made.
	Attempts int
}

// New returns a Corrector, filling unset options with the defaults.
func New(opts Options) *Corrector {
	c := &Corrector{
		leadingDigit: opts.LeadingDigit,
		minNewLen:    opts.MinNewTokenLength,
		decoder:      opts.Decoder,
	}
	if c.leadingDigit == 0 {
		c.leadingDigit = DefaultLeadingDigit
	}
	if c.minNewLen < DefaultMinNewTokenLength {
		c.minNewLen = DefaultMinNewTokenLength
	}
	if c.decoder == nil {
		c.decoder = codec.Default
	}
	return c
}

// LegacyView drops the last character of a 16-digit legacy token that does
// not start with the leading digit. Any other token is returned unchanged.
func (c *Corrector) LegacyView(token string) string {
	if len(token) == LegacyTokenLength && token[0] != c.leadingDigit {
		return token[:LegacyTokenLength-1]
	}
	return token
}

// LegacyCompose applies LegacyView to the last element of a compose token list.
func (c *Corrector) LegacyCompose(list string) string {
	i := strings.LastIndex(list, ComposeSeparator)
	head, last := "", list
	if i >= 0 {
		head, last = list[:i+len(ComposeSeparator)], list[i+len(ComposeSeparator):]
	}
	return head + c.LegacyView(last)
}

// NewToken trims trailing characters from token until it decodes or reaches
// the minimum new-format length. Tokens already at or below the minimum are
// tried once and never trimmed.
func (c *Corrector) NewToken(token string) Result {
	res := Result{Token: token}
	for cur := token; ; cur = cur[:len(cur)-1] {
		res.Attempts++
		if id, err := c.decoder.Decode(cur); err == nil {
			res.Token = cur
			res.Identifier = id
			res.Decoded = true
			res.Trimmed = len(token) - len(cur)
			return res
		}
		if len(cur) <= c.minNewLen {
			return res
		}
	}
}
