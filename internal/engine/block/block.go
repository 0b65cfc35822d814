package block

import (
	"reflect"
	"strconv"

	"github.com/google/uuid"
)

// Data is the opaque, JSON-shaped payload of a block or its tunes.
type Data map[string]any

// Clone returns a deep copy of the data. Nested maps and slices are copied so
// the result shares no mutable state with d.
func (d Data) Clone() Data {
	if d == nil {
		return nil
	}
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

// Equal reports whether two payloads are deeply equal.
// A nil payload equals an empty one.
func (d Data) Equal(other Data) bool {
	if len(d) == 0 && len(other) == 0 {
		return true
	}
	return reflect.DeepEqual(d, other)
}

// String returns the string stored under key, or "" if absent or not a string.
func (d Data) String(key string) string {
	s, _ := d[key].(string)
	return s
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Data:
		return t.Clone()
	case map[string]any:
		return map[string]any(Data(t).Clone())
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	default:
		return v
	}
}

// Block is an atomic, independently typed unit of document content.
type Block struct {
	ID    string
	Type  string
	Data  Data
	Tunes Data
}

// New creates a block of the given type with a fresh id.
func New(typ string, data Data) Block {
	return Block{
		ID:   NewID(),
		Type: typ,
		Data: data.Clone(),
	}
}

// NewID returns a new random block id.
func NewID() string {
	return uuid.NewString()
}

// Clone returns a deep copy of the block.
func (b Block) Clone() Block {
	return Block{
		ID:    b.ID,
		Type:  b.Type,
		Data:  b.Data.Clone(),
		Tunes: b.Tunes.Clone(),
	}
}

// Equal reports whether two blocks have the same id, type, data and tunes.
func (b Block) Equal(other Block) bool {
	return b.ID == other.ID &&
		b.Type == other.Type &&
		b.Data.Equal(other.Data) &&
		b.Tunes.Equal(other.Tunes)
}

// IDGenerator produces block ids.
type IDGenerator func() string

// SequentialIDs returns a generator yielding prefix1, prefix2, ...
// Useful where ids must be deterministic.
func SequentialIDs(prefix string) IDGenerator {
	var n int
	return func() string {
		n++
		return prefix + strconv.Itoa(n)
	}
}
