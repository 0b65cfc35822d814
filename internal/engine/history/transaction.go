package history

import (
	"errors"
	"fmt"
	"time"

	"github.com/dshills/blockstorm/internal/engine/document"
	"github.com/dshills/blockstorm/internal/engine/selection"
)

// Transaction is an atomic group of operations with the selection before and
// after it. It is sealed on commit: operations can no longer be added, and
// only After may change, through a deferred caret amendment.
type Transaction struct {
	Seq       uint64
	Label     string
	Before    selection.Snapshot
	After     selection.Snapshot
	Committed time.Time

	ops    []document.Operation
	sealed bool
	frozen bool // After can no longer be amended
	doomed bool // a nested level aborted
}

// Operations returns the recorded operations in application order.
func (t *Transaction) Operations() []document.Operation {
	out := make([]document.Operation, len(t.ops))
	copy(out, t.ops)
	return out
}

// Len returns the number of recorded operations.
func (t *Transaction) Len() int {
	return len(t.ops)
}

// IsEmpty returns true if the transaction recorded nothing.
func (t *Transaction) IsEmpty() bool {
	return len(t.ops) == 0
}

// IsSealed reports whether the transaction was committed.
func (t *Transaction) IsSealed() bool {
	return t.sealed
}

// Info returns a read-only summary for display.
func (t *Transaction) Info() Info {
	kinds := make([]string, len(t.ops))
	for i, op := range t.ops {
		kinds[i] = op.Kind().String()
	}
	return Info{
		Seq:        t.Seq,
		Label:      t.Description(),
		Operations: kinds,
		Committed:  t.Committed,
	}
}

// Description returns the label, or a summary of the operations.
func (t *Transaction) Description() string {
	if t.Label != "" {
		return t.Label
	}
	switch len(t.ops) {
	case 0:
		return "Empty"
	case 1:
		return t.ops[0].Kind().String()
	default:
		return fmt.Sprintf("%d operations", len(t.ops))
	}
}

func (t *Transaction) record(op document.Operation) error {
	if t.sealed {
		return ErrSealed
	}
	t.ops = append(t.ops, op)
	return nil
}

// revert undoes the operations in reverse order. If one fails, the ones
// already reverted are re-applied so the document is left as it was.
func (t *Transaction) revert(doc *document.Document) error {
	for i := len(t.ops) - 1; i >= 0; i-- {
		if err := t.ops[i].Revert(doc); err != nil {
			for j := i + 1; j < len(t.ops); j++ {
				_ = t.ops[j].Apply(doc)
			}
			return fmt.Errorf("revert step %d (%s): %w", i, t.ops[i].Kind(), err)
		}
	}
	return nil
}

// apply re-applies the operations in order, undoing partial progress on
// failure.
func (t *Transaction) apply(doc *document.Document) error {
	for i, op := range t.ops {
		if err := op.Apply(doc); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = t.ops[j].Revert(doc)
			}
			return fmt.Errorf("apply step %d (%s): %w", i, op.Kind(), err)
		}
	}
	return nil
}

// rollback reverts every operation it can, in reverse order, and reports all
// failures. Used by abort, where stopping early would leave more damage.
func (t *Transaction) rollback(doc *document.Document) error {
	var errs []error
	for i := len(t.ops) - 1; i >= 0; i-- {
		if err := t.ops[i].Revert(doc); err != nil {
			errs = append(errs, fmt.Errorf("rollback step %d (%s): %w", i, t.ops[i].Kind(), err))
		}
	}
	return errors.Join(errs...)
}

// Info provides read-only info about a transaction.
type Info struct {
	Seq        uint64
	Label      string
	Operations []string
	Committed  time.Time
}
