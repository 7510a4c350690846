// Package scan drives the match, correct, decode and build pipeline over one
// input.
//
// A Scanner finds Gmail URLs with a pattern.Matcher and turns each match into
// a record.Record with a record.Builder. Records are handed to an EmitFunc in
// input order. With more than one worker, matches are collected in batches
// and built concurrently; the batch is emitted in order once complete.
package scan
