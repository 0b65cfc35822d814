package block

// Tool serves one block type. Save and Validate are required of every tool.
type Tool interface {
	// Save returns the payload to persist for a block's data.
	Save(data Data) (Data, error)

	// Validate reports whether saved data is worth keeping.
	// Blocks failing validation are dropped from saved output.
	Validate(data Data) bool
}

// Merger is the optional capability of appending one block's data to another
// block of the same type.
type Merger interface {
	// Merge returns target's data with source's data appended.
	// Neither argument may be modified.
	Merge(target, source Data) (Data, error)
}

// Splitter is the optional capability of splitting a block's content in two.
type Splitter interface {
	// Split returns the data kept in the block (head) and the data for a new
	// block following it (tail). offset is tool-defined; out of range offsets
	// return ErrOffsetOutOfRange.
	Split(data Data, offset int) (head, tail Data, err error)
}

// Emptier is the optional capability of producing data for a new empty block.
type Emptier interface {
	Empty() Data
}

// AsMerger returns the tool's merge capability, if it has one.
func AsMerger(t Tool) (Merger, bool) {
	if t == nil {
		return nil, false
	}
	m, ok := t.(Merger)
	return m, ok
}

// AsSplitter returns the tool's split capability, if it has one.
func AsSplitter(t Tool) (Splitter, bool) {
	if t == nil {
		return nil, false
	}
	s, ok := t.(Splitter)
	return s, ok
}

// AsEmptier returns the tool's empty-data capability, if it has one.
func AsEmptier(t Tool) (Emptier, bool) {
	if t == nil {
		return nil, false
	}
	e, ok := t.(Emptier)
	return e, ok
}
