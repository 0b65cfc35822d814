package history

import (
	"fmt"
	"sync"
	"time"

	"github.com/dshills/blockstorm/internal/engine/document"
	"github.com/dshills/blockstorm/internal/engine/selection"
)

// Manager groups document operations into transactions and hands committed
// transactions to a Stack.
//
// State machine: Idle -> Open (Begin) -> Committed or Aborted -> Idle.
type Manager struct {
	mu sync.Mutex

	doc     *document.Document
	tracker *selection.Tracker
	stack   *Stack

	open  *Transaction
	depth int
	seq   uint64
	now   func() time.Time
}

// NewManager creates a transaction manager. tracker may be nil, in which case
// transactions carry empty selections.
func NewManager(doc *document.Document, tracker *selection.Tracker, stack *Stack) *Manager {
	return &Manager{
		doc:     doc,
		tracker: tracker,
		stack:   stack,
		now:     time.Now,
	}
}

// Begin opens a transaction. If one is already open it increments the nesting
// depth and returns the open transaction; label is ignored in that case.
func (m *Manager) Begin(label string) *Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.open != nil {
		m.depth++
		return m.open
	}

	m.seq++
	m.open = &Transaction{Seq: m.seq, Label: label}
	m.depth = 1
	if m.tracker != nil {
		m.open.Before = m.tracker.CaptureBefore()
	}
	return m.open
}

// Record appends an applied operation to the open transaction.
func (m *Manager) Record(op document.Operation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.open == nil {
		return ErrNoTransaction
	}
	return m.open.record(op)
}

// Commit closes one nesting level. Closing the outermost level captures the
// After selection, seals the transaction and pushes it to the stack, then
// returns it. Transactions that recorded nothing are dropped and Commit
// returns nil. If a nested level aborted, the transaction is rolled back and
// ErrAborted is returned.
func (m *Manager) Commit() (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.open == nil {
		return nil, ErrNoTransaction
	}
	m.depth--
	if m.depth > 0 {
		return nil, nil
	}

	tx := m.open
	m.open = nil

	if tx.doomed {
		if err := tx.rollback(m.doc); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrAborted, err)
		}
		return nil, ErrAborted
	}
	if tx.IsEmpty() {
		return nil, nil
	}

	if m.tracker != nil {
		tx.After = m.tracker.CaptureAfter()
	}
	tx.sealed = true
	tx.Committed = m.now()
	m.stack.Push(tx)
	return tx, nil
}

// Abort closes one nesting level and discards the transaction. At the
// outermost level every recorded operation is reverted in reverse order. At
// a nested level the transaction is marked aborted and rolled back once the
// outermost level closes.
func (m *Manager) Abort() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.open == nil {
		return ErrNoTransaction
	}
	m.depth--
	m.open.doomed = true
	if m.depth > 0 {
		return nil
	}

	tx := m.open
	m.open = nil
	return tx.rollback(m.doc)
}

// AmendTarget returns the Seq of the open transaction, so that a caret
// correction scheduled while it runs lands on it once committed. When idle it
// defers to the stack.
func (m *Manager) AmendTarget() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.open != nil {
		return m.open.Seq
	}
	return m.stack.AmendTarget()
}

// AmendLast amends the committed entry seq on the stack.
func (m *Manager) AmendLast(seq uint64, after selection.Snapshot) bool {
	return m.stack.AmendLast(seq, after)
}

// IsOpen reports whether a transaction is open.
func (m *Manager) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open != nil
}

// Depth returns the current nesting depth, 0 when idle.
func (m *Manager) Depth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.depth
}

// Current returns the open transaction, or nil.
func (m *Manager) Current() *Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}
