// Package errors provides structured error types shared across pbs-cache.
//
// The code taxonomy mirrors how failures propagate through a sampling
// pass: INGESTION aborts the pass, TOPOLOGY skips the offending record,
// PUBLICATION isolates a single destination, and STALE_DATA is raised on
// the consumer side when a document fails the freshness check.
//
// Example usage:
//
//	err := errors.WrapWithContext(
//	    errors.ErrCodeIngestion,
//	    "pbs node query failed",
//	    cause,
//	    map[string]any{"command": "pbsnodes -avj -F json"},
//	)
package errors
