// Package timestamp derives creation times from Gmail tokens.
//
// Both token formats carry a counter that is the creation time in units of
// 1/1,048,576,000 s: nanoseconds scaled by 1.048576. Legacy tokens are the
// counter in hexadecimal; decoded new-format identifiers carry it in decimal
// after a "thread-f:" or "msg-f:" marker.
package timestamp
