package document

import (
	"github.com/dshills/blockstorm/internal/engine/block"
)

// Kind identifies the primitive an Operation performs.
type Kind uint8

const (
	KindInsert Kind = iota
	KindDelete
	KindMove
	KindUpdate
	KindMerge
	KindSplit
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindInsert:
		return "insert"
	case KindDelete:
		return "delete"
	case KindMove:
		return "move"
	case KindUpdate:
		return "update"
	case KindMerge:
		return "merge"
	case KindSplit:
		return "split"
	default:
		return "unknown"
	}
}

// Operation is a primitive mutation that carries its own inverse.
type Operation interface {
	// Kind returns the primitive this operation performs.
	Kind() Kind

	// Apply performs the mutation on d.
	Apply(d *Document) error

	// Revert undoes the mutation on d. d must be in the state Apply left it.
	Revert(d *Document) error

	// Invert returns the operation whose Apply is this operation's Revert.
	Invert() Operation
}

// inverse swaps Apply and Revert of the wrapped operation.
type inverse struct {
	op Operation
}

func (i inverse) Kind() Kind               { return i.op.Kind() }
func (i inverse) Apply(d *Document) error  { return i.op.Revert(d) }
func (i inverse) Revert(d *Document) error { return i.op.Apply(d) }
func (i inverse) Invert() Operation        { return i.op }

// InsertOp records an insertion.
type InsertOp struct {
	Block block.Block
	Index int
}

func (op *InsertOp) Kind() Kind { return KindInsert }

func (op *InsertOp) Apply(d *Document) error {
	if err := d.insertAt(op.Block, op.Index); err != nil {
		return opError("insert", op.Block.ID, err)
	}
	return nil
}

func (op *InsertOp) Revert(d *Document) error {
	if _, err := d.remove(op.Block.ID); err != nil {
		return opError("revert insert", op.Block.ID, err)
	}
	return nil
}

func (op *InsertOp) Invert() Operation { return inverse{op} }

// DeleteOp records a deletion. Replacement is the default block synthesized
// when the deletion emptied the document.
type DeleteOp struct {
	Block       block.Block
	Index       int
	Replacement *block.Block
}

func (op *DeleteOp) Kind() Kind { return KindDelete }

func (op *DeleteOp) Apply(d *Document) error {
	if _, err := d.remove(op.Block.ID); err != nil {
		return opError("delete", op.Block.ID, err)
	}
	if op.Replacement != nil && d.Len() == 0 {
		if err := d.insertAt(*op.Replacement, 0); err != nil {
			return opError("delete", op.Replacement.ID, err)
		}
	}
	return nil
}

func (op *DeleteOp) Revert(d *Document) error {
	if op.Replacement != nil {
		if _, err := d.remove(op.Replacement.ID); err != nil {
			return opError("revert delete", op.Replacement.ID, err)
		}
	}
	if err := d.insertAt(op.Block, op.Index); err != nil {
		return opError("revert delete", op.Block.ID, err)
	}
	return nil
}

func (op *DeleteOp) Invert() Operation { return inverse{op} }

// MoveOp records a relocation.
type MoveOp struct {
	ID   string
	From int
	To   int
}

// IsNoop reports whether the move leaves the document unchanged.
func (op *MoveOp) IsNoop() bool { return op.From == op.To }

func (op *MoveOp) Kind() Kind { return KindMove }

func (op *MoveOp) Apply(d *Document) error {
	if err := d.moveTo(op.ID, op.To); err != nil {
		return opError("move", op.ID, err)
	}
	return nil
}

func (op *MoveOp) Revert(d *Document) error {
	if err := d.moveTo(op.ID, op.From); err != nil {
		return opError("revert move", op.ID, err)
	}
	return nil
}

func (op *MoveOp) Invert() Operation { return inverse{op} }

// UpdateOp records a data change.
type UpdateOp struct {
	ID       string
	Previous block.Data
	Next     block.Data
}

func (op *UpdateOp) Kind() Kind { return KindUpdate }

func (op *UpdateOp) Apply(d *Document) error {
	if err := d.setData(op.ID, op.Next); err != nil {
		return opError("update", op.ID, err)
	}
	return nil
}

func (op *UpdateOp) Revert(d *Document) error {
	if err := d.setData(op.ID, op.Previous); err != nil {
		return opError("revert update", op.ID, err)
	}
	return nil
}

func (op *UpdateOp) Invert() Operation { return inverse{op} }

// MergeOp records a merge of Source into the target block.
type MergeOp struct {
	TargetID    string
	Source      block.Block
	SourceIndex int
	Previous    block.Data
	Merged      block.Data
}

func (op *MergeOp) Kind() Kind { return KindMerge }

func (op *MergeOp) Apply(d *Document) error {
	if d.IndexOf(op.TargetID) < 0 {
		return opError("merge", op.TargetID, ErrNotFound)
	}
	if _, err := d.remove(op.Source.ID); err != nil {
		return opError("merge", op.Source.ID, err)
	}
	if err := d.setData(op.TargetID, op.Merged); err != nil {
		return opError("merge", op.TargetID, err)
	}
	return nil
}

func (op *MergeOp) Revert(d *Document) error {
	if err := d.setData(op.TargetID, op.Previous); err != nil {
		return opError("revert merge", op.TargetID, err)
	}
	if err := d.insertAt(op.Source, op.SourceIndex); err != nil {
		return opError("revert merge", op.Source.ID, err)
	}
	return nil
}

func (op *MergeOp) Invert() Operation { return inverse{op} }

// SplitOp records a split. New is the block created for the tail content and
// is inserted at Index+1.
type SplitOp struct {
	ID       string
	Index    int
	Previous block.Data
	Head     block.Data
	New      block.Block
}

func (op *SplitOp) Kind() Kind { return KindSplit }

func (op *SplitOp) Apply(d *Document) error {
	if d.IndexOf(op.ID) < 0 {
		return opError("split", op.ID, ErrNotFound)
	}
	if err := d.insertAt(op.New, op.Index+1); err != nil {
		return opError("split", op.New.ID, err)
	}
	if err := d.setData(op.ID, op.Head); err != nil {
		return opError("split", op.ID, err)
	}
	return nil
}

func (op *SplitOp) Revert(d *Document) error {
	if _, err := d.remove(op.New.ID); err != nil {
		return opError("revert split", op.New.ID, err)
	}
	if err := d.setData(op.ID, op.Previous); err != nil {
		return opError("revert split", op.ID, err)
	}
	return nil
}

func (op *SplitOp) Invert() Operation { return inverse{op} }
