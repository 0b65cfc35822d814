package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dshills/blockstorm/internal/engine/block"
	"github.com/dshills/blockstorm/internal/engine/block/paragraph"
	"github.com/dshills/blockstorm/internal/engine/document"
	"github.com/dshills/blockstorm/internal/engine/history"
	"github.com/dshills/blockstorm/internal/engine/selection"
)

// Re-export commonly used types for convenience.
type (
	// Block is a single content unit of the document.
	Block = block.Block

	// Data is the opaque payload of a block.
	Data = block.Data

	// Record is the snapshot shape of a block.
	Record = document.Record

	// Selection is a selection snapshot.
	Selection = selection.Snapshot

	// Info describes a history entry.
	Info = history.Info

	// Checkpoint marks a history position.
	Checkpoint = history.Checkpoint
)

// txKey marks a context as running inside a transaction of one engine.
type txKey struct{}

type txMark struct {
	engine  *Engine
	session uint64
}

// Engine is the history context of one editor: it owns the document, the
// selection tracker, the transaction manager and the undo/redo stack.
//
// All operations are safe to call from multiple goroutines. Top-level
// transactions are serialized: a transaction started while another is
// running waits until the first one commits or aborts.
type Engine struct {
	mu sync.RWMutex

	// gate holds a token while a top-level transaction, undo or redo runs.
	gate chan struct{}
	done chan struct{}

	// Core components
	registry *block.Registry
	doc      *document.Document
	tracker  *selection.Tracker
	stack    *history.Stack
	manager  *history.Manager
	logger   *slog.Logger

	// Configuration
	maxUndoEntries int
	idGen          block.IDGenerator
	provider       selection.Provider
	setter         selection.Setter
	scheduler      selection.Scheduler

	// Initialization
	initRecords  []document.Record
	replaceEmpty bool

	session uint64 // id of the running top-level transaction, 0 when idle
	nextID  uint64
	closed  bool
}

// New creates a new Engine with the given options. The document starts with
// the records given by WithRecords, or a single default block.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		gate:           make(chan struct{}, 1),
		done:           make(chan struct{}),
		maxUndoEntries: DefaultMaxUndoEntries,
		replaceEmpty:   true,
		logger:         slog.New(slog.DiscardHandler),
	}

	// Apply options to get configuration
	for _, opt := range opts {
		opt(e)
	}

	if e.registry == nil {
		e.registry = block.NewRegistry(paragraph.Type)
		paragraph.Register(e.registry)
	}

	docOpts := []document.Option{document.WithRegistry(e.registry)}
	if e.idGen != nil {
		docOpts = append(docOpts, document.WithIDGenerator(e.idGen))
	}
	e.doc = document.New(docOpts...)
	if len(e.initRecords) > 0 {
		if err := e.doc.Load(e.initRecords); err != nil {
			return nil, err
		}
	}

	trackerOpts := []selection.Option{
		selection.WithGuard(e.locked),
	}
	if e.provider != nil {
		trackerOpts = append(trackerOpts, selection.WithProvider(e.provider))
	}
	if e.setter != nil {
		trackerOpts = append(trackerOpts, selection.WithSetter(e.setter))
	}
	if e.scheduler != nil {
		trackerOpts = append(trackerOpts, selection.WithScheduler(e.scheduler))
	}
	e.tracker = selection.NewTracker(e.doc, trackerOpts...)

	e.stack = history.NewStack(e.maxUndoEntries)
	e.manager = history.NewManager(e.doc, e.tracker, e.stack)
	e.tracker.Bind(e.manager)

	return e, nil
}

func (e *Engine) locked(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn()
}

// ============================================================================
// Read Operations
// ============================================================================

// Len returns the number of blocks.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.doc.Len()
}

// Block returns a copy of the block with the given id.
func (e *Engine) Block(id string) (Block, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.doc.Block(id)
}

// At returns a copy of the block at index i.
func (e *Engine) At(i int) (Block, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.doc.At(i)
}

// IndexOf returns the index of the block with the given id, or -1.
func (e *Engine) IndexOf(id string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.doc.IndexOf(id)
}

// Blocks returns copies of all blocks in order.
func (e *Engine) Blocks() []Block {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.doc.Blocks()
}

// Snapshot returns the ordered snapshot of the document. Inside a running
// transaction it includes the uncommitted changes.
func (e *Engine) Snapshot() []Record {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.doc.Records()
}

// Registry returns the tool registry.
func (e *Engine) Registry() *block.Registry {
	return e.registry
}

// Logger returns the engine's logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

// ============================================================================
// Transactions
// ============================================================================

// Transaction runs fn as one atomic, undoable unit. Every primitive called
// with the context handed to fn is recorded into the transaction; a
// Transaction called with that context joins it as a nested level instead of
// starting a new one. If fn returns an error or panics, the recorded
// operations are reverted and the error is returned (or the panic resumed). A
// transaction that recorded nothing leaves no history entry.
//
// Nesting is recognised by the context only. A call made from inside fn with
// a context that does not derive from fn's is a new top-level transaction: it
// waits for the running one and therefore blocks until its own ctx is done.
//
// A top-level transaction started while another is running waits for it; the
// wait honours ctx cancellation.
func (e *Engine) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return e.LabeledTransaction(ctx, "", fn)
}

// LabeledTransaction is Transaction with a label shown in the history info.
// The label of a nested transaction is ignored.
func (e *Engine) LabeledTransaction(ctx context.Context, label string, fn func(ctx context.Context) error) error {
	if e.inTransaction(ctx) {
		return e.nested(ctx, label, fn)
	}

	if err := e.acquire(ctx); err != nil {
		return err
	}
	defer e.release()
	defer e.locked(func() { e.session = 0 })

	// Land pending caret corrections on the entry they were made for.
	e.tracker.Flush()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.nextID++
	e.session = e.nextID
	txCtx := context.WithValue(ctx, txKey{}, txMark{engine: e, session: e.session})
	scope := e.manager.Scope(label)
	e.mu.Unlock()

	err := e.run(txCtx, scope, fn)

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.manager.IsOpen() {
		// Closed while fn was running; Close rolled back.
		if err != nil {
			return err
		}
		return ErrClosed
	}
	if err != nil {
		e.cancelLocked(scope, label, err)
		return err
	}

	tx, err := scope.End()
	if err != nil {
		e.logger.Debug("transaction aborted", "label", label, "error", err)
		return err
	}
	if tx != nil {
		e.logger.Debug("transaction committed",
			"seq", tx.Seq,
			"label", tx.Description(),
			"operations", tx.Len(),
		)
	}
	return nil
}

// TransactionValue runs fn like Transaction and returns its value. On failure
// the zero value is returned.
func TransactionValue[T any](ctx context.Context, e *Engine, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := e.Transaction(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func (e *Engine) nested(ctx context.Context, label string, fn func(ctx context.Context) error) (err error) {
	e.mu.Lock()
	if e.closed || !e.manager.IsOpen() {
		e.mu.Unlock()
		return ErrClosed
	}
	scope := e.manager.Scope(label)
	e.mu.Unlock()

	err = e.run(ctx, scope, fn)

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.manager.IsOpen() {
		if err != nil {
			return err
		}
		return ErrClosed
	}
	scope.Close(&err)
	return err
}

// run calls fn, cancelling scope if it panics.
func (e *Engine) run(ctx context.Context, scope *history.Scope, fn func(ctx context.Context) error) error {
	defer func() {
		if r := recover(); r != nil {
			e.mu.Lock()
			if e.manager.IsOpen() {
				if err := scope.Cancel(); err != nil {
					e.logger.Warn("rollback after panic failed", "error", err)
				}
			}
			e.mu.Unlock()
			panic(r)
		}
	}()
	return fn(ctx)
}

func (e *Engine) cancelLocked(scope *history.Scope, label string, cause error) {
	if err := scope.Cancel(); err != nil {
		e.logger.Warn("rollback failed", "label", label, "cause", cause, "error", err)
		return
	}
	e.logger.Debug("transaction aborted", "label", label, "cause", cause)
}

// inTransaction reports whether ctx was handed out by a running transaction
// of this engine.
func (e *Engine) inTransaction(ctx context.Context) bool {
	m, ok := ctx.Value(txKey{}).(txMark)
	if !ok || m.engine != e {
		return false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return m.session != 0 && m.session == e.session
}

func (e *Engine) acquire(ctx context.Context) error {
	select {
	case <-e.done:
		return ErrClosed
	default:
	}
	select {
	case e.gate <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrClosed
	}
}

func (e *Engine) release() {
	<-e.gate
}

// ============================================================================
// Primitives
// ============================================================================

// Insert adds b at index and returns its id. An empty id is generated and an
// empty type becomes the registry default. If the document holds nothing but
// the default block it synthesized itself, and that block was never edited,
// the new block replaces it.
func (e *Engine) Insert(ctx context.Context, b Block, index int) (string, error) {
	var id string
	err := e.primitive(ctx, "insert", func() ([]document.Operation, error) {
		placeholder, replace := e.placeholderLocked()
		op, err := e.doc.Insert(b, index)
		if err != nil {
			return nil, err
		}
		id = op.Block.ID
		if !replace {
			return []document.Operation{op}, nil
		}
		del, err := e.doc.Delete(placeholder)
		if err != nil {
			_ = op.Revert(e.doc)
			return nil, err
		}
		return []document.Operation{op, del}, nil
	})
	return id, err
}

// placeholderLocked returns the id of the document's only block if the
// document synthesized it and its data was never written.
func (e *Engine) placeholderLocked() (string, bool) {
	if !e.replaceEmpty || e.doc.Len() != 1 {
		return "", false
	}
	b, _ := e.doc.At(0)
	return b.ID, e.doc.IsPlaceholder(b.ID)
}

// Delete removes the block with the given id. Deleting the only block leaves
// a default empty block in its place.
func (e *Engine) Delete(ctx context.Context, id string) error {
	return e.primitive(ctx, "delete", func() ([]document.Operation, error) {
		op, err := e.doc.Delete(id)
		if err != nil {
			return nil, err
		}
		return []document.Operation{op}, nil
	})
}

// Move relocates the block to index to. Moving a block onto its own index
// records nothing.
func (e *Engine) Move(ctx context.Context, id string, to int) error {
	return e.primitive(ctx, "move", func() ([]document.Operation, error) {
		op, err := e.doc.Move(id, to)
		if err != nil {
			return nil, err
		}
		if op.IsNoop() {
			return nil, nil
		}
		return []document.Operation{op}, nil
	})
}

// Update merges partial into the block's data.
func (e *Engine) Update(ctx context.Context, id string, partial Data) error {
	return e.primitive(ctx, "update", func() ([]document.Operation, error) {
		op, err := e.doc.Update(id, partial)
		if err != nil {
			return nil, err
		}
		return []document.Operation{op}, nil
	})
}

// Merge appends the source block to the target block and removes the source.
func (e *Engine) Merge(ctx context.Context, targetID, sourceID string) error {
	return e.primitive(ctx, "merge", func() ([]document.Operation, error) {
		op, err := e.doc.Merge(targetID, sourceID)
		if err != nil {
			return nil, err
		}
		return []document.Operation{op}, nil
	})
}

// Split cuts the block at offset and returns the id of the new tail block.
func (e *Engine) Split(ctx context.Context, id string, offset int) (string, error) {
	var newID string
	err := e.primitive(ctx, "split", func() ([]document.Operation, error) {
		op, err := e.doc.Split(id, offset)
		if err != nil {
			return nil, err
		}
		newID = op.New.ID
		return []document.Operation{op}, nil
	})
	return newID, err
}

// primitive runs do and records its operations. Inside a transaction a failed
// primitive records nothing and leaves the transaction open. Outside a
// transaction the primitive is wrapped in its own transaction.
func (e *Engine) primitive(ctx context.Context, label string, do func() ([]document.Operation, error)) error {
	if !e.inTransaction(ctx) {
		return e.LabeledTransaction(ctx, label, func(ctx context.Context) error {
			return e.primitive(ctx, label, do)
		})
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if !e.manager.IsOpen() {
		return ErrNoTransaction
	}
	ops, err := do()
	if err != nil {
		return err
	}
	for _, op := range ops {
		if err := e.manager.Record(op); err != nil {
			return err
		}
	}
	return nil
}

// ============================================================================
// Undo/Redo Operations
// ============================================================================

// Undo reverts the most recent transaction and restores the selection it
// started with. It returns false if there is nothing to undo. Pending
// deferred caret updates are applied first.
func (e *Engine) Undo(ctx context.Context) (bool, error) {
	return e.move(ctx, "undo", e.stack.Undo)
}

// Redo re-applies the most recently undone transaction and restores the
// selection it ended with. It returns false if there is nothing to redo.
func (e *Engine) Redo(ctx context.Context) (bool, error) {
	return e.move(ctx, "redo", e.stack.Redo)
}

func (e *Engine) move(ctx context.Context, name string, step func(*document.Document, *selection.Tracker) (bool, error)) (bool, error) {
	if e.inTransaction(ctx) {
		return false, ErrInTransaction
	}
	if err := e.acquire(ctx); err != nil {
		return false, err
	}
	defer e.release()

	e.tracker.Flush()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false, ErrClosed
	}
	ok, err := step(e.doc, e.tracker)
	if err != nil {
		e.logger.Warn(name+" failed", "error", err)
		return false, err
	}
	if ok {
		e.logger.Debug(name, "undo", e.stack.UndoCount(), "redo", e.stack.RedoCount())
	}
	return ok, nil
}

// Checkpoint returns a mark of the current history position. Pending
// deferred caret updates are not applied.
func (e *Engine) Checkpoint() Checkpoint {
	return e.stack.CreateCheckpoint()
}

// UndoTo undoes every transaction committed after cp and returns how many it
// undid. It fails with ErrUnknownCheckpoint if cp's entry was undone, trimmed
// or cleared.
func (e *Engine) UndoTo(ctx context.Context, cp Checkpoint) (int, error) {
	return e.seek(ctx, "undo to checkpoint", func() (int, error) {
		return e.stack.UndoToCheckpoint(cp, e.doc, e.tracker)
	})
}

// RedoTo redoes transactions until cp's entry is the newest undo entry
// again and returns how many it redid.
func (e *Engine) RedoTo(ctx context.Context, cp Checkpoint) (int, error) {
	return e.seek(ctx, "redo to checkpoint", func() (int, error) {
		return e.stack.RedoToCheckpoint(cp, e.doc, e.tracker)
	})
}

func (e *Engine) seek(ctx context.Context, name string, walk func() (int, error)) (int, error) {
	var n int
	_, err := e.move(ctx, name, func(*document.Document, *selection.Tracker) (bool, error) {
		var err error
		n, err = walk()
		return n > 0, err
	})
	return n, err
}

// CanUndo returns true if undo is available.
func (e *Engine) CanUndo() bool {
	return e.stack.CanUndo()
}

// CanRedo returns true if redo is available.
func (e *Engine) CanRedo() bool {
	return e.stack.CanRedo()
}

// UndoCount returns the number of available undo entries.
func (e *Engine) UndoCount() int {
	return e.stack.UndoCount()
}

// RedoCount returns the number of available redo entries.
func (e *Engine) RedoCount() int {
	return e.stack.RedoCount()
}

// PeekUndo describes the entry the next Undo reverts.
func (e *Engine) PeekUndo() (Info, bool) {
	return e.stack.PeekUndo()
}

// PeekRedo describes the entry the next Redo re-applies.
func (e *Engine) PeekRedo() (Info, bool) {
	return e.stack.PeekRedo()
}

// History describes all undo entries, oldest first.
func (e *Engine) History() []Info {
	return e.stack.UndoInfo()
}

// Clear removes all undo/redo history. The document is not touched.
func (e *Engine) Clear() {
	e.stack.Clear()
}

// CaptureInitialState makes the current document the baseline, so that the
// first undo after the initial render is a no-op. It waits for a running
// transaction to finish.
func (e *Engine) CaptureInitialState(ctx context.Context) error {
	if e.inTransaction(ctx) {
		return ErrInTransaction
	}
	if err := e.acquire(ctx); err != nil {
		return err
	}
	defer e.release()

	e.tracker.Flush()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.stack.CaptureInitialState()
	return nil
}

// Load replaces the document content and makes it the new baseline. An empty
// record list leaves a single default block.
func (e *Engine) Load(ctx context.Context, records []Record) error {
	if e.inTransaction(ctx) {
		return ErrInTransaction
	}
	if err := e.acquire(ctx); err != nil {
		return err
	}
	defer e.release()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if err := e.doc.Load(records); err != nil {
		return err
	}
	e.stack.CaptureInitialState()
	e.logger.Debug("document loaded", "blocks", e.doc.Len())
	return nil
}

// SetMaxUndoEntries changes the undo bound. Excess entries are dropped,
// oldest first.
func (e *Engine) SetMaxUndoEntries(max int) {
	e.stack.SetMaxEntries(max)
}

// MaxUndoEntries returns the undo bound.
func (e *Engine) MaxUndoEntries() int {
	return e.stack.MaxEntries()
}

// ============================================================================
// Deferred Caret
// ============================================================================

// DeferCaret schedules fn to compute the final caret of the most recent
// transaction once layout has settled: the running one when called inside a
// transaction, the last committed one otherwise. The correction is dropped if
// another transaction commits before it runs. fn runs on the scheduler and
// must not call the engine.
func (e *Engine) DeferCaret(fn func() Selection) {
	e.tracker.Defer(fn)
}

// UpdateLastSnapshot schedules replacing the After selection of the most
// recent transaction with s, targeted like DeferCaret.
func (e *Engine) UpdateLastSnapshot(s Selection) {
	e.tracker.UpdateLastSnapshot(s)
}

// FlushScheduled runs pending deferred caret updates and returns how many ran.
// It is a no-op for schedulers that cannot be flushed.
func (e *Engine) FlushScheduled() int {
	return e.tracker.Flush()
}

// ============================================================================
// Lifecycle
// ============================================================================

// Close tears the engine down. A transaction still open is rolled back
// silently. Calls made after Close return ErrClosed. Close is idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	close(e.done)

	for e.manager.IsOpen() {
		if err := e.manager.Abort(); err != nil {
			e.logger.Debug("rollback on close failed", "error", err)
		}
	}
	e.logger.Debug("engine closed")
	return nil
}
