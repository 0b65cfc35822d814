package script

import (
	"sync"

	"github.com/dshills/blockstorm/internal/engine/selection"
)

// Caret is an in-memory live selection. It serves as both the selection
// provider and setter of an engine driven by a script.
type Caret struct {
	mu  sync.Mutex
	cur selection.Snapshot
}

// NewCaret returns a caret with no selection.
func NewCaret() *Caret {
	return &Caret{}
}

// Selection returns the current selection.
func (c *Caret) Selection() (selection.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur, !c.cur.IsZero()
}

// SetSelection places the selection.
func (c *Caret) SetSelection(s selection.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = s
}
