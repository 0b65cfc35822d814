package history

import (
	"slices"

	"github.com/dshills/blockstorm/internal/engine/document"
	"github.com/dshills/blockstorm/internal/engine/selection"
)

// Scope is one nesting level of a transaction, closed exactly once:
//
//	scope := m.Scope("reorder")
//	defer scope.Close(&err)
type Scope struct {
	manager *Manager
	active  bool
}

// Scope begins a nesting level and returns the scope that closes it.
func (m *Manager) Scope(label string) *Scope {
	m.Begin(label)
	return &Scope{manager: m, active: true}
}

// End commits the scope's nesting level. Only the first End or Cancel has
// an effect.
func (s *Scope) End() (*Transaction, error) {
	if !s.active {
		return nil, nil
	}
	s.active = false
	return s.manager.Commit()
}

// Cancel aborts the scope's nesting level.
func (s *Scope) Cancel() error {
	if !s.active {
		return nil
	}
	s.active = false
	return s.manager.Abort()
}

// Close ends the scope if *errp is nil and cancels it otherwise. A commit
// failure is stored in *errp.
func (s *Scope) Close(errp *error) {
	if *errp != nil {
		_ = s.Cancel()
		return
	}
	if _, err := s.End(); err != nil {
		*errp = err
	}
}

// Checkpoint marks a position in history by the newest undo entry at the
// time it was taken. The zero Checkpoint is the start of history.
type Checkpoint struct {
	Seq uint64
}

// CreateCheckpoint returns a checkpoint at the current position.
func (s *Stack) CreateCheckpoint() Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.undoStack); n > 0 {
		return Checkpoint{Seq: s.undoStack[n-1].Seq}
	}
	return Checkpoint{}
}

// UndoToCheckpoint undoes every entry committed after cp and returns how
// many it undid. It fails with ErrUnknownCheckpoint if cp's entry is not on
// the undo stack, because it was undone, trimmed or cleared.
func (s *Stack) UndoToCheckpoint(cp Checkpoint, doc *document.Document, tracker *selection.Tracker) (int, error) {
	s.mu.Lock()
	depth := 0
	if cp.Seq != 0 {
		depth = slices.IndexFunc(s.undoStack, func(tx *Transaction) bool { return tx.Seq == cp.Seq }) + 1
		if depth == 0 {
			s.mu.Unlock()
			return 0, ErrUnknownCheckpoint
		}
	}
	steps := len(s.undoStack) - depth
	s.mu.Unlock()

	for i := 0; i < steps; i++ {
		if _, err := s.Undo(doc, tracker); err != nil {
			return i, err
		}
	}
	return steps, nil
}

// RedoToCheckpoint redoes entries until cp's entry is the newest undo entry
// again and returns how many it redid. cp must be on the redo stack, or
// already the newest undo entry.
func (s *Stack) RedoToCheckpoint(cp Checkpoint, doc *document.Document, tracker *selection.Tracker) (int, error) {
	s.mu.Lock()
	if n := len(s.undoStack); (n == 0 && cp.Seq == 0) || (n > 0 && s.undoStack[n-1].Seq == cp.Seq) {
		s.mu.Unlock()
		return 0, nil
	}
	i := slices.IndexFunc(s.redoStack, func(tx *Transaction) bool { return tx.Seq == cp.Seq })
	if i < 0 {
		s.mu.Unlock()
		return 0, ErrUnknownCheckpoint
	}
	steps := len(s.redoStack) - i
	s.mu.Unlock()

	for n := 0; n < steps; n++ {
		if _, err := s.Redo(doc, tracker); err != nil {
			return n, err
		}
	}
	return steps, nil
}
