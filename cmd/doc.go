// Package cmd implements the command-line interface for gmailurl.
//
// This package provides the following commands:
//   - decode: Extract and decode Gmail URLs from text or raw input
//   - version: Display version information
//
// The decode command is the default command when only flags are given, so
// "gmailurl -r -i dump.bin -o out.json" runs a decode.
package cmd
