package selection

import (
	"fmt"

	"github.com/dshills/blockstorm/internal/engine/block"
)

// OffsetEnd places the caret at the end of a block.
const OffsetEnd = -1

// Snapshot is a position-independent selection.
// A zero Snapshot means "no selection".
type Snapshot struct {
	// BlockID is the block holding the caret (the focus end of a range).
	BlockID string
	// Offset is the caret offset inside BlockID, or OffsetEnd.
	Offset int
	// Index is BlockID's index when the snapshot was taken, used when the
	// block no longer exists at restore time.
	Index int
	// AnchorBlockID and FocusBlockID are set for selections spanning blocks.
	AnchorBlockID string
	FocusBlockID  string
}

// Caret returns a collapsed selection in blockID at offset.
func Caret(blockID string, offset int) Snapshot {
	return Snapshot{BlockID: blockID, Offset: offset}
}

// Span returns a selection from the anchor block to the focus block, with the
// caret at offset in the focus block.
func Span(anchorID, focusID string, offset int) Snapshot {
	return Snapshot{
		BlockID:       focusID,
		Offset:        offset,
		AnchorBlockID: anchorID,
		FocusBlockID:  focusID,
	}
}

// IsZero reports whether the snapshot holds no selection.
func (s Snapshot) IsZero() bool {
	return s.BlockID == ""
}

// IsMultiBlock reports whether the selection spans more than one block.
func (s Snapshot) IsMultiBlock() bool {
	return s.AnchorBlockID != "" && s.FocusBlockID != "" && s.AnchorBlockID != s.FocusBlockID
}

// String returns a compact description of the snapshot.
func (s Snapshot) String() string {
	if s.IsZero() {
		return "<none>"
	}
	if s.IsMultiBlock() {
		return fmt.Sprintf("%s..%s@%d", s.AnchorBlockID, s.FocusBlockID, s.Offset)
	}
	return fmt.Sprintf("%s@%d", s.BlockID, s.Offset)
}

// Locator is the read-only view of the document the tracker needs.
type Locator interface {
	Len() int
	IndexOf(id string) int
	At(i int) (block.Block, bool)
}

// Provider reports the live selection. ok is false when nothing is selected.
type Provider interface {
	Selection() (s Snapshot, ok bool)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func() (Snapshot, bool)

// Selection calls f.
func (f ProviderFunc) Selection() (Snapshot, bool) {
	return f()
}

// Setter places the live selection.
type Setter interface {
	SetSelection(s Snapshot)
}

// SetterFunc adapts a function to Setter.
type SetterFunc func(Snapshot)

// SetSelection calls f.
func (f SetterFunc) SetSelection(s Snapshot) {
	f(s)
}

// Amender corrects the After snapshot of a committed transaction.
type Amender interface {
	// AmendTarget returns the sequence number of the transaction an
	// amendment scheduled now is meant for, or 0 if there is none.
	AmendTarget() uint64

	// AmendLast replaces the After snapshot of transaction seq. It returns
	// false unless seq is still the newest amendable entry.
	AmendLast(seq uint64, s Snapshot) bool
}
