// Package history provides transactions and undo/redo for the block engine.
//
// # Transactions
//
// A Transaction is an ordered list of document operations plus the selection
// before the first edit and after the commit. The Manager opens, nests,
// commits and aborts transactions:
//
//	tx := m.Begin("Split paragraph")
//	op, err := doc.Split(id, offset)
//	if err != nil {
//	    m.Abort() // reverts everything recorded so far
//	    return err
//	}
//	m.Record(op)
//	m.Commit()
//
// Begin while a transaction is open increments a depth counter and returns the
// same transaction, so composite edits built from other composite edits still
// produce a single undo step.
//
// # History Stack
//
// The Stack keeps committed transactions on a bounded undo stack and undone
// ones on a redo stack. Committing clears redo. Undo reverts the newest
// transaction's operations in reverse order and restores its Before
// selection; Redo re-applies them in order and restores After.
package history
