package history

import (
	"fmt"
	"sync"

	"github.com/dshills/blockstorm/internal/engine/document"
	"github.com/dshills/blockstorm/internal/engine/selection"
)

// DefaultMaxEntries is the undo bound used when none is given.
const DefaultMaxEntries = 1000

// Stack manages the undo and redo stacks of committed transactions.
type Stack struct {
	mu sync.Mutex

	undoStack []*Transaction
	redoStack []*Transaction

	maxEntries int
}

// NewStack creates a history stack holding at most maxEntries undo entries.
func NewStack(maxEntries int) *Stack {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Stack{
		maxEntries: maxEntries,
	}
}

// Push adds a committed transaction to the undo stack and clears the redo
// stack. The previous top entry can no longer be amended. If the undo stack
// exceeds its bound, the oldest entries are dropped.
func (s *Stack) Push(tx *Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.undoStack); n > 0 {
		s.undoStack[n-1].frozen = true
	}
	s.undoStack = append(s.undoStack, tx)

	// Clear redo stack
	for _, r := range s.redoStack {
		r.frozen = true
	}
	s.redoStack = nil

	s.trimLocked()
}

func (s *Stack) trimLocked() {
	if len(s.undoStack) > s.maxEntries {
		excess := len(s.undoStack) - s.maxEntries
		for i := 0; i < excess; i++ {
			s.undoStack[i] = nil
		}
		s.undoStack = s.undoStack[excess:]
	}
}

// Undo reverts the newest transaction and restores its Before selection.
// It returns false if there is nothing to undo. On failure the document and
// the stacks are left unchanged.
func (s *Stack) Undo(doc *document.Document, tracker *selection.Tracker) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.undoStack) == 0 {
		return false, nil
	}

	tx := s.undoStack[len(s.undoStack)-1]
	if err := tx.revert(doc); err != nil {
		return false, fmt.Errorf("undo #%d %q: %w", tx.Seq, tx.Description(), err)
	}

	tx.frozen = true
	s.undoStack = s.undoStack[:len(s.undoStack)-1]
	s.redoStack = append(s.redoStack, tx)

	if tracker != nil {
		tracker.Restore(tx.Before)
	}
	return true, nil
}

// Redo re-applies the most recently undone transaction and restores its After
// selection. It returns false if there is nothing to redo.
func (s *Stack) Redo(doc *document.Document, tracker *selection.Tracker) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.redoStack) == 0 {
		return false, nil
	}

	tx := s.redoStack[len(s.redoStack)-1]
	if err := tx.apply(doc); err != nil {
		return false, fmt.Errorf("redo #%d %q: %w", tx.Seq, tx.Description(), err)
	}

	s.redoStack = s.redoStack[:len(s.redoStack)-1]
	s.undoStack = append(s.undoStack, tx)

	if tracker != nil {
		tracker.Restore(tx.After)
	}
	return true, nil
}

// AmendTarget returns the Seq of the newest undo entry if it can still be
// amended, or 0.
func (s *Stack) AmendTarget() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx := s.amendableLocked(); tx != nil {
		return tx.Seq
	}
	return 0
}

// AmendLast replaces the After selection of entry seq, provided it is the
// newest undo entry, nothing was committed on top of it and it was never
// undone.
func (s *Stack) AmendLast(seq uint64, after selection.Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.amendableLocked()
	if tx == nil || tx.Seq != seq {
		return false
	}
	tx.After = after
	return true
}

func (s *Stack) amendableLocked() *Transaction {
	if len(s.undoStack) == 0 {
		return nil
	}
	tx := s.undoStack[len(s.undoStack)-1]
	if tx.frozen {
		return nil
	}
	return tx
}

// CanUndo returns true if undo is available.
func (s *Stack) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.undoStack) > 0
}

// CanRedo returns true if redo is available.
func (s *Stack) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.redoStack) > 0
}

// UndoCount returns the number of undo entries.
func (s *Stack) UndoCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.undoStack)
}

// RedoCount returns the number of redo entries.
func (s *Stack) RedoCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.redoStack)
}

// CaptureInitialState marks the current document as the baseline: nothing
// before this point can be undone.
func (s *Stack) CaptureInitialState() {
	s.Clear()
}

// Clear removes all undo/redo history. The document is not touched.
func (s *Stack) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.undoStack = nil
	s.redoStack = nil
}

// PeekUndo returns info about the next undo entry without removing it.
func (s *Stack) PeekUndo() (Info, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.undoStack) == 0 {
		return Info{}, false
	}
	return s.undoStack[len(s.undoStack)-1].Info(), true
}

// PeekRedo returns info about the next redo entry without removing it.
func (s *Stack) PeekRedo() (Info, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.redoStack) == 0 {
		return Info{}, false
	}
	return s.redoStack[len(s.redoStack)-1].Info(), true
}

// UndoInfo returns info about all undo entries, oldest first.
func (s *Stack) UndoInfo() []Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Info, len(s.undoStack))
	for i, tx := range s.undoStack {
		result[i] = tx.Info()
	}
	return result
}

// SetMaxEntries changes the undo bound. If the undo stack is larger, the
// oldest entries are removed. The redo stack is never trimmed.
func (s *Stack) SetMaxEntries(max int) {
	if max <= 0 {
		max = DefaultMaxEntries
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.maxEntries = max
	s.trimLocked()
}

// MaxEntries returns the undo bound.
func (s *Stack) MaxEntries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxEntries
}
