// Package selection tracks caret and selection state across document edits.
//
// Snapshots are plain values keyed by block id and offset, never live
// references, so they survive blocks being removed and re-created by undo.
// The tracker reads the live position from a Provider (the renderer or
// whatever owns the caret), restores positions through a Setter, and applies
// caret placements that are only known after a layout pass through a
// Scheduler.
//
// # Deferred caret placement
//
// Some edits only know where the caret lands after the renderer has laid out
// the new blocks. Defer and UpdateLastSnapshot schedule a task that amends the
// After snapshot of the most recently committed transaction. Queue is a
// deterministic scheduler whose Flush runs pending tasks in order; the engine
// flushes it before undo and redo so a correction always lands first.
package selection
