package document

import (
	"fmt"

	"dario.cat/mergo"

	"github.com/dshills/blockstorm/internal/engine/block"
)

// DefaultType is the block type of the default registry.
const DefaultType = "paragraph"

// Document is the ordered sequence of blocks.
type Document struct {
	blocks   []block.Block
	registry *block.Registry
	newID    block.IDGenerator

	// synthesized holds the ids of default blocks the document created
	// itself whose data was never written since.
	synthesized map[string]bool
}

// New creates a document holding a single empty block of the default type.
func New(opts ...Option) *Document {
	d := &Document{
		registry: block.NewRegistry(DefaultType),
		newID:    block.NewID,

		synthesized: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.blocks = []block.Block{d.defaultBlock()}
	return d
}

// Registry returns the tool registry.
func (d *Document) Registry() *block.Registry {
	return d.registry
}

// ============================================================================
// Read Operations
// ============================================================================

// Len returns the number of blocks.
func (d *Document) Len() int {
	return len(d.blocks)
}

// At returns a copy of the block at index i.
func (d *Document) At(i int) (block.Block, bool) {
	if i < 0 || i >= len(d.blocks) {
		return block.Block{}, false
	}
	return d.blocks[i].Clone(), true
}

// Block returns a copy of the block with the given id.
func (d *Document) Block(id string) (block.Block, bool) {
	i := d.IndexOf(id)
	if i < 0 {
		return block.Block{}, false
	}
	return d.blocks[i].Clone(), true
}

// IndexOf returns the index of the block with the given id, or -1.
func (d *Document) IndexOf(id string) int {
	for i := range d.blocks {
		if d.blocks[i].ID == id {
			return i
		}
	}
	return -1
}

// Blocks returns copies of all blocks in order.
func (d *Document) Blocks() []block.Block {
	out := make([]block.Block, len(d.blocks))
	for i, b := range d.blocks {
		out[i] = b.Clone()
	}
	return out
}

// Records returns the document as an ordered list of records.
func (d *Document) Records() []Record {
	out := make([]Record, len(d.blocks))
	for i, b := range d.blocks {
		out[i] = RecordOf(b)
	}
	return out
}

// Load replaces the document content. It records nothing; callers reset
// history afterwards. Records without an id get a fresh one; records without
// a type get the default type. An empty list loads one default block.
func (d *Document) Load(records []Record) error {
	blocks := make([]block.Block, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		b := r.Block()
		if b.ID == "" {
			b.ID = d.newID()
		}
		if b.Type == "" {
			b.Type = d.registry.DefaultType()
		}
		if b.Data == nil {
			b.Data = block.Data{}
		}
		if seen[b.ID] {
			return opError("load", b.ID, ErrDuplicateID)
		}
		seen[b.ID] = true
		blocks = append(blocks, b)
	}
	d.synthesized = make(map[string]bool)
	if len(blocks) == 0 {
		blocks = append(blocks, d.defaultBlock())
	}
	d.blocks = blocks
	return nil
}

// NewBlock builds a block of typ with empty tool data and a fresh id.
// An empty typ selects the default type.
func (d *Document) NewBlock(typ string) block.Block {
	if typ == "" {
		typ = d.registry.DefaultType()
	}
	return block.Block{
		ID:   d.newID(),
		Type: typ,
		Data: d.registry.EmptyData(typ),
	}
}

// defaultBlock builds the block that stands in for an empty document and
// marks it as synthesized.
func (d *Document) defaultBlock() block.Block {
	b := d.NewBlock("")
	d.synthesized[b.ID] = true
	return b
}

// IsPlaceholder reports whether id names a default block the document
// synthesized (on creation, on an empty load, or when a delete emptied it)
// whose data has not been written since. Undo does not restore the mark.
func (d *Document) IsPlaceholder(id string) bool {
	return d.synthesized[id]
}

// ============================================================================
// Write Operations
// ============================================================================

// Insert adds b at index. Index must be in [0, Len]. An empty id is replaced
// by a generated one; the inserted id is InsertOp.Block.ID.
func (d *Document) Insert(b block.Block, index int) (*InsertOp, error) {
	b = b.Clone()
	if b.ID == "" {
		b.ID = d.newID()
	}
	if b.Type == "" {
		b.Type = d.registry.DefaultType()
	}
	if b.Data == nil {
		b.Data = d.registry.EmptyData(b.Type)
	}
	if index < 0 || index > len(d.blocks) {
		return nil, opError("insert", b.ID, fmt.Errorf("%w: %d not in [0,%d]", ErrIndexOutOfRange, index, len(d.blocks)))
	}
	if d.IndexOf(b.ID) >= 0 {
		return nil, opError("insert", b.ID, ErrDuplicateID)
	}

	op := &InsertOp{Block: b, Index: index}
	if err := op.Apply(d); err != nil {
		return nil, err
	}
	return op, nil
}

// Delete removes the block with the given id. Removing the last block
// inserts a default empty block in its place within the same operation.
func (d *Document) Delete(id string) (*DeleteOp, error) {
	i := d.IndexOf(id)
	if i < 0 {
		return nil, opError("delete", id, ErrNotFound)
	}

	op := &DeleteOp{Block: d.blocks[i].Clone(), Index: i}
	if len(d.blocks) == 1 {
		repl := d.defaultBlock()
		op.Replacement = &repl
	}
	if err := op.Apply(d); err != nil {
		return nil, err
	}
	return op, nil
}

// Move relocates the block to index to, keeping the relative order of all
// other blocks. Moving a block to its current index returns a no-op.
func (d *Document) Move(id string, to int) (*MoveOp, error) {
	from := d.IndexOf(id)
	if from < 0 {
		return nil, opError("move", id, ErrNotFound)
	}
	if to < 0 || to >= len(d.blocks) {
		return nil, opError("move", id, fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, to, len(d.blocks)))
	}

	op := &MoveOp{ID: id, From: from, To: to}
	if op.IsNoop() {
		return op, nil
	}
	if err := op.Apply(d); err != nil {
		return nil, err
	}
	return op, nil
}

// Update merges partial into the block's data. Nested maps are merged key by
// key; every other value in partial replaces the existing one.
func (d *Document) Update(id string, partial block.Data) (*UpdateOp, error) {
	i := d.IndexOf(id)
	if i < 0 {
		return nil, opError("update", id, ErrNotFound)
	}

	prev := d.blocks[i].Data.Clone()
	next, err := mergeData(prev, partial)
	if err != nil {
		return nil, opError("update", id, err)
	}

	op := &UpdateOp{ID: id, Previous: prev, Next: next}
	if err := op.Apply(d); err != nil {
		return nil, err
	}
	return op, nil
}

// Merge appends the source block's data to the target block using the target
// tool's merge capability, then removes the source block.
func (d *Document) Merge(targetID, sourceID string) (*MergeOp, error) {
	ti := d.IndexOf(targetID)
	if ti < 0 {
		return nil, opError("merge", targetID, ErrNotFound)
	}
	si := d.IndexOf(sourceID)
	if si < 0 {
		return nil, opError("merge", sourceID, ErrNotFound)
	}
	if ti == si {
		return nil, opError("merge", targetID, fmt.Errorf("%w: block merged with itself", ErrUnsupported))
	}

	target, source := d.blocks[ti], d.blocks[si]
	if target.Type != source.Type {
		return nil, opError("merge", targetID, fmt.Errorf("%w: cannot merge %q into %q", ErrUnsupported, source.Type, target.Type))
	}
	tool, _ := d.registry.Tool(target.Type)
	merger, ok := block.AsMerger(tool)
	if !ok {
		return nil, opError("merge", targetID, fmt.Errorf("%w: %q has no merge", ErrUnsupported, target.Type))
	}

	merged, err := merger.Merge(target.Data.Clone(), source.Data.Clone())
	if err != nil {
		return nil, opError("merge", targetID, err)
	}

	op := &MergeOp{
		TargetID:    targetID,
		Source:      source.Clone(),
		SourceIndex: si,
		Previous:    target.Data.Clone(),
		Merged:      merged.Clone(),
	}
	if err := op.Apply(d); err != nil {
		return nil, err
	}
	return op, nil
}

// Split cuts the block at offset using its tool's split capability. The tail
// goes into a new block of the same type inserted right after; its id is
// SplitOp.New.ID.
func (d *Document) Split(id string, offset int) (*SplitOp, error) {
	i := d.IndexOf(id)
	if i < 0 {
		return nil, opError("split", id, ErrNotFound)
	}

	b := d.blocks[i]
	tool, _ := d.registry.Tool(b.Type)
	splitter, ok := block.AsSplitter(tool)
	if !ok {
		return nil, opError("split", id, fmt.Errorf("%w: %q has no split", ErrUnsupported, b.Type))
	}

	head, tail, err := splitter.Split(b.Data.Clone(), offset)
	if err != nil {
		return nil, opError("split", id, err)
	}

	op := &SplitOp{
		ID:       id,
		Index:    i,
		Previous: b.Data.Clone(),
		Head:     head.Clone(),
		New: block.Block{
			ID:    d.newID(),
			Type:  b.Type,
			Data:  tail.Clone(),
			Tunes: b.Tunes.Clone(),
		},
	}
	if err := op.Apply(d); err != nil {
		return nil, err
	}
	return op, nil
}

// mergeData returns a copy of base with partial merged in.
func mergeData(base, partial block.Data) (block.Data, error) {
	out := base.Clone()
	if out == nil {
		out = block.Data{}
	}
	for k, v := range partial.Clone() {
		dst, dstIsMap := out[k].(map[string]any)
		src, srcIsMap := v.(map[string]any)
		if dstIsMap && srcIsMap {
			if err := mergo.Merge(&dst, src, mergo.WithOverride); err != nil {
				return nil, fmt.Errorf("merge %q: %w", k, err)
			}
			out[k] = dst
			continue
		}
		out[k] = v
	}
	return out, nil
}

// ============================================================================
// Raw mutations used by operations
// ============================================================================

func (d *Document) insertAt(b block.Block, index int) error {
	if index < 0 || index > len(d.blocks) {
		return fmt.Errorf("%w: %d not in [0,%d]", ErrIndexOutOfRange, index, len(d.blocks))
	}
	if d.IndexOf(b.ID) >= 0 {
		return ErrDuplicateID
	}
	d.blocks = append(d.blocks, block.Block{})
	copy(d.blocks[index+1:], d.blocks[index:])
	d.blocks[index] = b.Clone()
	return nil
}

func (d *Document) remove(id string) (int, error) {
	i := d.IndexOf(id)
	if i < 0 {
		return -1, ErrNotFound
	}
	d.blocks = append(d.blocks[:i], d.blocks[i+1:]...)
	return i, nil
}

func (d *Document) moveTo(id string, to int) error {
	from := d.IndexOf(id)
	if from < 0 {
		return ErrNotFound
	}
	if to < 0 || to >= len(d.blocks) {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, to, len(d.blocks))
	}
	b := d.blocks[from]
	d.blocks = append(d.blocks[:from], d.blocks[from+1:]...)
	d.blocks = append(d.blocks, block.Block{})
	copy(d.blocks[to+1:], d.blocks[to:])
	d.blocks[to] = b
	return nil
}

func (d *Document) setData(id string, data block.Data) error {
	i := d.IndexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	d.blocks[i].Data = data.Clone()
	delete(d.synthesized, id)
	return nil
}
