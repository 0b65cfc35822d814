// Package engine provides the block document engine for Blockstorm.
//
// The engine package serves as the main facade, combining the block document,
// selection tracking, transactions and undo/redo into a unified, thread-safe
// API. Each Engine is one editor's history context; engines share nothing.
//
// # Architecture
//
// The engine is built on several sub-packages:
//
//   - block: blocks, tools, capability interfaces and the tool registry
//   - block/paragraph: the built-in text tool with merge and split
//   - document: the ordered block sequence and its reversible operations
//   - selection: selection snapshots, restoration and deferred caret updates
//   - history: transactions and the bounded undo/redo stack
//
// # Thread Safety
//
// All Engine operations are thread-safe. Top-level transactions, undo and
// redo are serialized through a one-slot gate: a transaction started while
// another is running waits for it to finish. Reads such as Snapshot or Len
// may run concurrently.
//
// Collaborators (selection.Provider, selection.Setter) are called with the
// engine lock held and must not call back into the engine.
//
// # Basic Usage
//
//	e, _ := engine.New()
//	ctx := context.Background()
//
//	// Each primitive outside a transaction is its own undo step
//	id, _ := e.Insert(ctx, engine.Block{Data: engine.Data{"text": "hello"}}, 1)
//	e.Update(ctx, id, engine.Data{"text": "hello world"})
//
//	e.Undo(ctx) // text is "hello" again
//	e.Redo(ctx)
//
// # Transactions
//
// Group primitives into a single undo step:
//
//	err := e.Transaction(ctx, func(ctx context.Context) error {
//	    tail, err := e.Split(ctx, id, 5)
//	    if err != nil {
//	        return err // everything done so far is rolled back
//	    }
//	    return e.Move(ctx, tail, 0)
//	})
//
// Always pass the context handed to fn: it is how primitives and nested
// transactions find the open transaction. Use TransactionValue to return a
// value from the transaction.
//
// # Deferred Caret
//
// The final caret of an edit is often known only after layout. DeferCaret and
// UpdateLastSnapshot schedule a correction of the latest transaction's After
// selection; the default scheduler is a queue flushed by FlushScheduled and
// before every undo, redo and transaction.
//
// # Error Handling
//
// Errors of the sub-packages are re-exported:
//
//   - ErrNotFound: No block with the given id
//   - ErrUnsupported: The block's tool lacks the merge or split capability
//   - ErrIndexOutOfRange: Insert or move index outside the document
//   - ErrDuplicateID: Insert with an id already in use
//   - ErrOffsetOutOfRange: Split offset outside the block's content
//   - ErrAborted: A nested transaction failed, so the outer one was rolled back
//   - ErrClosed: The engine was closed
package engine
