// Package document implements the ordered block collection of an editor and
// the primitive operations that mutate it.
//
// Every mutating method validates its arguments, builds an Operation holding
// all the state needed to both apply and revert it, and applies it. The
// returned Operation is what the history records: replaying Apply and Revert
// never needs to re-inspect the live document.
//
// # Invariants
//
//   - Block ids are unique.
//   - The document is never empty. Deleting the last block synthesizes an
//     empty block of the registry's default type as part of the same
//     operation, so one Revert restores the exact prior state.
//
// Document is not safe for concurrent use. The engine serializes access.
package document
