package codec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Markers that precede the embedded counters inside an identifier.
const (
	MarkerThread  = "thread-f:"
	MarkerMessage = "msg-f:"
)

// Markers lists the identifier markers in the order they are reported.
var Markers = []string{MarkerThread, MarkerMessage}

var (
	// ErrInvalidBase64 is returned when the re-based token is not valid Base64.
	ErrInvalidBase64 = errors.New("invalid base64")

	// ErrInvalidUTF8 is returned when the decoded bytes are not UTF-8 text.
	ErrInvalidUTF8 = errors.New("invalid utf-8")
)

// Identifier is the decoded text of a new-format token.
type Identifier string

// String returns the identifier text.
func (id Identifier) String() string {
	return string(id)
}

// HasMarker reports whether the identifier carries the given marker.
func (id Identifier) HasMarker(marker string) bool {
	return strings.Contains(string(id), marker)
}

// Codec decodes tokens written in a source alphabet that re-bases to Base64.
type Codec struct {
	from *Alphabet
	to   *Alphabet
}

// New returns a Codec that re-bases from the given alphabet into standard Base64.
func New(from *Alphabet) *Codec {
	return &Codec{from: from, to: Base64}
}

// Default decodes Gmail new-format tokens.
var Default = New(Reduced)

// Decode decodes a token with the Default codec.
func Decode(token string) (Identifier, error) {
	return Default.Decode(token)
}

// Decode re-bases token into Base64, decodes it and returns the UTF-8 identifier.
// Identifiers lacking both markers get one prepended: "thread-" when the text
// already starts with "f:", "thread-f:" otherwise.
func (c *Codec) Decode(token string) (Identifier, error) {
	b64, err := Rebase(token, c.from, c.to)
	if err != nil {
		return "", err
	}
	if pad := len(b64) % 4; pad != 0 {
		b64 += strings.Repeat("=", 4-pad)
	}

	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidBase64, err)
	}
	if !utf8.Valid(raw) {
		return "", ErrInvalidUTF8
	}

	id := Identifier(raw)
	if !id.HasMarker(MarkerThread) && !id.HasMarker(MarkerMessage) {
		if strings.HasPrefix(string(id), "f:") {
			id = "thread-" + id
		} else {
			id = MarkerThread + id
		}
	}
	return id, nil
}
