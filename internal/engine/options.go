package engine

import (
	"log/slog"

	"github.com/dshills/blockstorm/internal/engine/block"
	"github.com/dshills/blockstorm/internal/engine/document"
	"github.com/dshills/blockstorm/internal/engine/history"
	"github.com/dshills/blockstorm/internal/engine/selection"
)

// Default configuration values.
const (
	DefaultMaxUndoEntries = history.DefaultMaxEntries
)

// Option configures an Engine during creation.
type Option func(*Engine)

// WithRegistry sets the tool registry. The default registry has the
// paragraph tool registered as its default type.
func WithRegistry(r *block.Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.registry = r
		}
	}
}

// WithMaxUndoEntries sets the maximum number of undo history entries.
func WithMaxUndoEntries(max int) Option {
	return func(e *Engine) {
		if max > 0 {
			e.maxUndoEntries = max
		}
	}
}

// WithIDGenerator sets the block id generator.
func WithIDGenerator(gen block.IDGenerator) Option {
	return func(e *Engine) {
		e.idGen = gen
	}
}

// WithProvider sets the collaborator that reports the current selection.
func WithProvider(p selection.Provider) Option {
	return func(e *Engine) {
		e.provider = p
	}
}

// WithSetter sets the collaborator that places the selection after undo and
// redo.
func WithSetter(s selection.Setter) Option {
	return func(e *Engine) {
		e.setter = s
	}
}

// WithScheduler sets the scheduler for deferred caret updates. Tasks must run
// after the call that scheduled them returns. The default is a Queue flushed
// by FlushScheduled and before every undo, redo and transaction.
func WithScheduler(s selection.Scheduler) Option {
	return func(e *Engine) {
		e.scheduler = s
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRecords sets the initial document content. The history starts empty.
func WithRecords(records []document.Record) Option {
	return func(e *Engine) {
		e.initRecords = records
	}
}

// WithReplaceEmpty controls whether inserting into a document that holds only
// an untouched default block replaces that block. Enabled by default.
func WithReplaceEmpty(enabled bool) Option {
	return func(e *Engine) {
		e.replaceEmpty = enabled
	}
}
