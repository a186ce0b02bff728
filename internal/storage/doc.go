// Package storage defines the persistence interfaces for the chronicle
// engine.
//
// It provides a high-level abstraction for storing world snapshots, the
// historical event journal, and turn summaries. Implementations of these
// interfaces (e.g., using SQLite) can be found in subpackages.
//
// # Error Types
//
// The package defines common error types used across storage
// implementations:
//   - ErrNotFound: Indicates a requested record is missing.
package storage
