package document

import (
	"github.com/dshills/blockstorm/internal/engine/block"
)

// Option configures a Document.
type Option func(*Document)

// WithRegistry sets the tool registry used for capability queries and
// default blocks.
func WithRegistry(r *block.Registry) Option {
	return func(d *Document) {
		if r != nil {
			d.registry = r
		}
	}
}

// WithIDGenerator sets the generator used for new block ids.
func WithIDGenerator(gen block.IDGenerator) Option {
	return func(d *Document) {
		if gen != nil {
			d.newID = gen
		}
	}
}
