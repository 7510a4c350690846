// Package pattern locates Gmail web-interface URLs and splits them into fields.
//
// The grammar recognises the address-bar forms of the Gmail web client:
//
//	https://mail.google.com/mail/u/0/#inbox/15f3a2b1c4d5e601
//	https://mail.google.com/mail/u/0/#search/invoice/FMfcgxvwzcHJnwThBsNqnvSPLSsgPxnJ
//	https://mail.google.com/mail/u/1/#inbox?compose=15f3a2b1c4d5e601%2C15f3a2b1c4d5e602
//
// A Matcher is compiled once per run for one Mode. MatchLine matches a URL at
// the start of a text line; ForeachMatch scans a byte buffer, such as a
// memory-mapped disk image, for every embedded URL.
package pattern
