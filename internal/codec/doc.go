// Package codec decodes the new-format tokens found in Gmail address-bar URLs.
//
// A new-format token is a big unsigned integer written in a reduced
// 40-symbol alphabet of consonants. Decoding re-expresses that integer in the
// standard Base64 alphabet, pads and Base64-decodes the result, and returns
// the UTF-8 identifier text embedded by Gmail, for example:
//
//	thread-f:1681485283037415830|msg-f:1681485283037415830
//
// The re-basing works on a little-endian digit array, so tokens of any length
// convert exactly.
//
// Example usage:
//
//	id, err := codec.Decode("FMfcgzGqQmQthcfqRvdmCWpRJMTVPWXS")
//	if err != nil {
//	    // not a decodable token
//	}
//	fmt.Println(id)
package codec
