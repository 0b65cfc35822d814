package document

import (
	"github.com/dshills/blockstorm/internal/engine/block"
)

// Record is the externally visible shape of a block: what the saver
// serializes and what Load accepts.
type Record struct {
	ID    string     `json:"id" yaml:"id"`
	Type  string     `json:"type" yaml:"type"`
	Data  block.Data `json:"data" yaml:"data"`
	Tunes block.Data `json:"tunes,omitempty" yaml:"tunes,omitempty"`
}

// RecordOf converts a block to its record.
func RecordOf(b block.Block) Record {
	b = b.Clone()
	if b.Data == nil {
		b.Data = block.Data{}
	}
	return Record{ID: b.ID, Type: b.Type, Data: b.Data, Tunes: b.Tunes}
}

// Block converts the record back into a block.
func (r Record) Block() block.Block {
	return block.Block{
		ID:    r.ID,
		Type:  r.Type,
		Data:  r.Data.Clone(),
		Tunes: r.Tunes.Clone(),
	}
}
