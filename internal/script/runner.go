package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/dshills/blockstorm/internal/engine"
	"github.com/dshills/blockstorm/internal/engine/selection"
)

// StepResult is the outcome of one step.
type StepResult struct {
	Path    string `json:"path" yaml:"path"`
	Op      string `json:"op" yaml:"op"`
	ID      string `json:"id,omitempty" yaml:"id,omitempty"`
	Changed bool   `json:"changed" yaml:"changed"`
	Aborted bool   `json:"aborted,omitempty" yaml:"aborted,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Result is the outcome of a script run.
type Result struct {
	Name  string       `json:"name" yaml:"name"`
	Steps []StepResult `json:"steps" yaml:"steps"`
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger for step tracing.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithCaret sets the live selection caret steps place. It should be the
// provider and setter the engine was built with.
func WithCaret(c *Caret) Option {
	return func(r *Runner) {
		r.caret = c
	}
}

// WithObserver sets a function called after every step, nested steps
// included.
func WithObserver(fn func(StepResult)) Option {
	return func(r *Runner) {
		r.observe = fn
	}
}

// Runner replays scripts against one engine.
type Runner struct {
	engine  *engine.Engine
	logger  *slog.Logger
	caret   *Caret
	observe func(StepResult)
	vars    map[string]string
	marks   map[string]engine.Checkpoint
}

// NewRunner creates a runner for e.
func NewRunner(e *engine.Engine, opts ...Option) *Runner {
	r := &Runner{
		engine: e,
		logger: slog.New(slog.DiscardHandler),
		vars:   make(map[string]string),
		marks:  make(map[string]engine.Checkpoint),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run replays s. It stops at the first step that fails unexpectedly and
// returns the results gathered so far together with a *StepError. Deferred
// caret updates still pending at the end are applied before Run returns.
func (r *Runner) Run(ctx context.Context, s *Script) (*Result, error) {
	res := &Result{Name: s.Name, Steps: []StepResult{}}
	if len(s.Records) > 0 {
		if err := r.engine.Load(ctx, s.Records); err != nil {
			return res, fmt.Errorf("loading records: %w", err)
		}
	}

	err := r.runSteps(ctx, s.Steps, "", res)
	r.engine.FlushScheduled()
	return res, err
}

// Ref resolves a "$name" reference to the id it was bound to. Other values
// are returned unchanged.
func (r *Runner) Ref(s string) (string, error) {
	name, ok := strings.CutPrefix(s, "$")
	if !ok {
		return s, nil
	}
	id, ok := r.vars[name]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownRef, s)
	}
	return id, nil
}

func (r *Runner) runSteps(ctx context.Context, steps []Step, prefix string, res *Result) error {
	for i, st := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := stepPath(prefix, i)
		sr := StepResult{Path: path, Op: st.Op}

		err := r.step(ctx, st, path, &sr, res)
		if err := r.check(st, &sr, err); err != nil {
			r.logger.Debug("step failed", "path", path, "op", st.Op, "error", err)
			return &StepError{Path: path, Op: st.Op, Err: err}
		}
		r.logger.Debug("step", "path", path, "op", st.Op, "id", sr.ID, "changed", sr.Changed)

		res.Steps = append(res.Steps, sr)
		if r.observe != nil {
			r.observe(sr)
		}
	}
	return nil
}

func (r *Runner) step(ctx context.Context, st Step, path string, sr *StepResult, res *Result) error {
	e := r.engine

	var ids []string
	for _, ref := range []string{st.ID, st.Target, st.Source} {
		id, err := r.Ref(ref)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	id, target, source := ids[0], ids[1], ids[2]

	switch st.Op {
	case OpLoad:
		if err := e.Load(ctx, st.Records); err != nil {
			return err
		}
		sr.Changed = true

	case OpInsert:
		bid, err := r.Ref(st.Block.ID)
		if err != nil {
			return err
		}
		b := engine.Block{
			ID:    bid,
			Type:  st.Block.Type,
			Data:  st.Block.Data,
			Tunes: st.Block.Tunes,
		}
		index := e.Len()
		if st.Index != nil {
			index = *st.Index
		}
		newID, err := e.Insert(ctx, b, index)
		if err != nil {
			return err
		}
		r.bind(st.As, newID)
		sr.ID, sr.Changed = newID, true

	case OpDelete:
		if err := e.Delete(ctx, id); err != nil {
			return err
		}
		sr.ID, sr.Changed = id, true

	case OpMove:
		from := e.IndexOf(id)
		if err := e.Move(ctx, id, st.To); err != nil {
			return err
		}
		sr.ID, sr.Changed = id, from != e.IndexOf(id)

	case OpUpdate:
		if err := e.Update(ctx, id, st.Data); err != nil {
			return err
		}
		sr.ID, sr.Changed = id, true

	case OpMerge:
		if err := e.Merge(ctx, target, source); err != nil {
			return err
		}
		sr.ID, sr.Changed = target, true

	case OpSplit:
		newID, err := e.Split(ctx, id, st.Offset)
		if err != nil {
			return err
		}
		r.bind(st.As, newID)
		sr.ID, sr.Changed = newID, true

	case OpUndo:
		changed, err := e.Undo(ctx)
		if err != nil {
			return err
		}
		sr.Changed = changed

	case OpRedo:
		changed, err := e.Redo(ctx)
		if err != nil {
			return err
		}
		sr.Changed = changed

	case OpCheckpoint:
		r.marks[st.Label] = e.Checkpoint()

	case OpUndoTo, OpRedoTo:
		cp, ok := r.marks[st.Label]
		if !ok {
			return fmt.Errorf("%w: checkpoint %q", ErrUnknownRef, st.Label)
		}
		seek := e.UndoTo
		if st.Op == OpRedoTo {
			seek = e.RedoTo
		}
		n, err := seek(ctx, cp)
		if err != nil {
			return err
		}
		sr.Changed = n > 0

	case OpTransaction:
		label := st.Label
		if label == "" {
			label = OpTransaction
		}
		before := e.UndoCount()
		err := e.LabeledTransaction(ctx, label, func(ctx context.Context) error {
			if err := r.runSteps(ctx, st.Steps, path, res); err != nil {
				return err
			}
			if st.Fail {
				return ErrForcedAbort
			}
			return nil
		})
		if st.Fail && errors.Is(err, ErrForcedAbort) {
			sr.Aborted = true
			return nil
		}
		if err != nil {
			return err
		}
		sr.Changed = e.UndoCount() != before

	case OpCaret:
		s := selection.Caret(id, st.Offset)
		if r.caret != nil {
			r.caret.SetSelection(s)
		}
		e.DeferCaret(func() engine.Selection { return s })
		sr.ID = id

	default:
		return fmt.Errorf("%w %q", ErrUnknownOp, st.Op)
	}
	return nil
}

func (r *Runner) bind(name, id string) {
	if name != "" {
		r.vars[name] = id
	}
}

// check applies st's expect clause to the step outcome and returns the
// error that should stop the run, if any.
func (r *Runner) check(st Step, sr *StepResult, err error) error {
	x := st.Expect
	if x == nil {
		return err
	}

	switch {
	case x.Error != "" && err == nil:
		return fmt.Errorf("%w: want error containing %q, got success", ErrExpectation, x.Error)
	case x.Error != "" && !strings.Contains(err.Error(), x.Error):
		return fmt.Errorf("%w: want error containing %q, got %v", ErrExpectation, x.Error, err)
	case err != nil && x.Error == "":
		return err
	case err != nil:
		sr.Error = err.Error()
	}

	if x.Changed != nil && *x.Changed != sr.Changed {
		return fmt.Errorf("%w: changed = %t, want %t", ErrExpectation, sr.Changed, *x.Changed)
	}

	if x.Order != nil {
		want := make([]string, len(x.Order))
		for i, ref := range x.Order {
			id, err := r.Ref(ref)
			if err != nil {
				return err
			}
			want[i] = id
		}
		got := r.order()
		if !slices.Equal(got, want) {
			return fmt.Errorf("%w: order = %v, want %v", ErrExpectation, got, want)
		}
	}

	for ref, text := range x.Text {
		id, err := r.Ref(ref)
		if err != nil {
			return err
		}
		b, ok := r.engine.Block(id)
		if !ok {
			return fmt.Errorf("%w: block %s not found", ErrExpectation, id)
		}
		if got := b.Data.String("text"); got != text {
			return fmt.Errorf("%w: text of %s = %q, want %q", ErrExpectation, id, got, text)
		}
	}
	return nil
}

func (r *Runner) order() []string {
	blocks := r.engine.Blocks()
	ids := make([]string, len(blocks))
	for i, b := range blocks {
		ids[i] = b.ID
	}
	return ids
}
