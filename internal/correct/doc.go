// Package correct repairs token captures taken from unstructured raw data.
//
// When URLs are carved out of memory or disk images, the bytes that follow a
// token often belong to the token's own alphabet, so the pattern matcher
// over-captures. The heuristics here trim such captures back to a plausible
// token boundary. They are only meant for raw sources; tokens read from
// line-oriented text are already bounded.
package correct
