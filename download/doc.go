// Package download streams demo file bodies with optional MD5
// verification and a duration-scaled timeout policy.
//
// # Streaming
//
// [Stream] is a single-consumption byte stream. It implements
// [io.ReadCloser] and additionally exposes [Stream.Chunks] for callers
// that want per-chunk error handling:
//
//	for chunk, err := range stream.Chunks() {
//		if err != nil { ... }
//		process(chunk)
//	}
//
// No verification is performed in this mode.
//
// # Verified Save
//
// [Save] copies a stream to a caller-supplied sink while feeding every
// chunk into an MD5 accumulator. Partial bytes are written before any
// failure surfaces, and the accumulated digest is compared against the
// expected value only after the stream completes.
//
// Most callers should use the higher-level
// [github.com/demostf/go-client] package, which drives this one via
// Demo.Download and Demo.Save.
package download
