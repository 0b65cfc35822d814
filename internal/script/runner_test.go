package script

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/blockstorm/internal/engine"
	"github.com/dshills/blockstorm/internal/engine/block"
	"github.com/dshills/blockstorm/internal/engine/saver"
	"github.com/dshills/blockstorm/internal/engine/selection"
)

type fixture struct {
	engine *engine.Engine
	caret  *Caret
	runner *Runner
	seen   []StepResult
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{caret: NewCaret()}
	e, err := engine.New(
		engine.WithIDGenerator(block.SequentialIDs("b")),
		engine.WithProvider(f.caret),
		engine.WithSetter(f.caret),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	f.engine = e
	f.runner = NewRunner(e,
		WithCaret(f.caret),
		WithObserver(func(sr StepResult) { f.seen = append(f.seen, sr) }),
	)
	return f
}

func (f *fixture) run(t *testing.T, src string) (*Result, error) {
	t.Helper()
	s, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	return f.runner.Run(context.Background(), s)
}

func (f *fixture) texts() []string {
	var out []string
	for _, b := range f.engine.Blocks() {
		out = append(out, b.ID+":"+b.Data.String("text"))
	}
	return out
}

func TestRunDocumentScript(t *testing.T) {
	f := newFixture(t)
	s, err := LoadFile("testdata/scripts/document.yaml")
	require.NoError(t, err)

	res, err := f.runner.Run(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, "document", res.Name)
	var paths []string
	for _, sr := range res.Steps {
		paths = append(paths, sr.Path+" "+sr.Op)
	}
	// Nested steps report before the transaction that holds them.
	assert.Equal(t, []string{
		"1 split", "2 update", "3.1 insert", "3.2 move", "3 transaction",
		"4 undo", "5 redo", "6 delete",
	}, paths)
	assert.Equal(t, res.Steps, f.seen)
	assert.Equal(t, "b2", res.Steps[0].ID)
	assert.Contains(t, res.Steps[7].Error, "not found")

	info, ok := f.engine.PeekUndo()
	require.True(t, ok)
	assert.Equal(t, "reorder", info.Label)

	sv := saver.New(f.engine.Registry(),
		saver.WithClock(func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }),
		saver.WithVersion("test"),
	)
	var buf bytes.Buffer
	require.NoError(t, saver.EncodeJSON(&buf, sv.Save(f.engine.Snapshot())))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "document_snapshot", buf.Bytes())
}

func TestRunInsertScenario(t *testing.T) {
	f := newFixture(t)
	_, err := f.run(t, `
name: insert
steps:
  - op: insert
    block: {id: A, type: paragraph, data: {text: a}}
    index: 0
    expect: {order: [A]}
  - op: insert
    block: {id: B, type: paragraph, data: {text: b}}
    index: 1
    expect: {order: [A, B]}
  - op: undo
    expect: {order: [A]}
  - op: undo
    expect: {order: [b1]}
  - op: undo
    expect: {changed: false}
`)
	require.NoError(t, err)
}

func TestRunForcedAbort(t *testing.T) {
	f := newFixture(t)
	res, err := f.run(t, `
name: abort
records:
  - {id: a, type: paragraph, data: {text: one}}
steps:
  - op: transaction
    fail: true
    steps:
      - op: update
        id: a
        data: {text: two}
      - op: insert
        block: {id: c, type: paragraph, data: {text: three}}
        expect: {order: [a, c]}
    expect:
      order: [a]
      text: {a: one}
  - op: undo
    expect: {changed: false}
`)
	require.NoError(t, err)

	require.Len(t, res.Steps, 4)
	assert.Equal(t, "1", res.Steps[2].Path)
	assert.True(t, res.Steps[2].Aborted)
	assert.Equal(t, 0, f.engine.UndoCount())
}

func TestRunExpectedErrorKeepsTransactionOpen(t *testing.T) {
	f := newFixture(t)
	_, err := f.run(t, `
name: partial
records:
  - {id: a, type: paragraph, data: {text: one}}
steps:
  - op: transaction
    label: edit
    steps:
      - op: merge
        target: a
        source: ghost
        expect: {error: not found}
      - op: update
        id: a
        data: {text: uno}
  - op: undo
    expect:
      changed: true
      text: {a: one}
`)
	require.NoError(t, err)
}

func TestRunSplitMerge(t *testing.T) {
	f := newFixture(t)
	_, err := f.run(t, `
name: merge
records:
  - {id: a, type: paragraph, data: {text: hello}}
  - {id: b, type: paragraph, data: {text: world}}
steps:
  - op: merge
    target: a
    source: b
    expect:
      order: [a]
      text: {a: helloworld}
  - op: split
    id: a
    offset: 5
    as: rest
    expect:
      order: [a, $rest]
      text: {a: hello, $rest: world}
  - op: undo
  - op: undo
    expect:
      order: [a, b]
      text: {a: hello, b: world}
`)
	require.NoError(t, err)
}

func TestRunStopsAtUnexpectedError(t *testing.T) {
	f := newFixture(t)
	res, err := f.run(t, `
name: stop
steps:
  - op: update
    id: b1
    data: {text: x}
  - op: delete
    id: nope
  - op: undo
`)
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrNotFound)

	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "2", se.Path)
	assert.Equal(t, OpDelete, se.Op)
	assert.Len(t, res.Steps, 1)
	assert.Equal(t, []string{"b1:x"}, f.texts())
}

func TestRunExpectationFailure(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, "steps:\n  - op: undo\n    expect: {changed: true}\n")
	assert.ErrorIs(t, err, ErrExpectation)

	_, err = f.run(t, "steps:\n  - op: redo\n    expect: {error: nothing}\n")
	assert.ErrorIs(t, err, ErrExpectation)

	_, err = f.run(t, "steps:\n  - op: undo\n    expect: {order: [zz]}\n")
	assert.ErrorIs(t, err, ErrExpectation)
}

func TestRunUnknownReference(t *testing.T) {
	f := newFixture(t)
	_, err := f.run(t, "steps:\n  - op: delete\n    id: $ghost\n")
	assert.ErrorIs(t, err, ErrUnknownRef)
}

func TestRunCheckpoints(t *testing.T) {
	f := newFixture(t)
	res, err := f.run(t, `
records:
  - {id: a, type: paragraph, data: {text: one}}
steps:
  - op: checkpoint
    label: start
  - op: insert
    block: {id: x, type: paragraph, data: {text: ex}}
  - op: checkpoint
    label: middle
  - op: update
    id: a
    data: {text: two}
  - op: undo-to
    label: start
    expect: {changed: true, order: [a]}
  - op: redo-to
    label: middle
    expect: {changed: true, order: [a, x], text: {a: one}}
  - op: redo-to
    label: middle
    expect: {changed: false}
`)
	require.NoError(t, err)
	assert.Len(t, res.Steps, 7)
	assert.Equal(t, 1, f.engine.RedoCount())
}

func TestRunUnknownCheckpoint(t *testing.T) {
	f := newFixture(t)
	_, err := f.run(t, "steps:\n  - op: undo-to\n    label: never\n")
	assert.ErrorIs(t, err, ErrUnknownRef)

	_, err = f.run(t, `
steps:
  - op: update
    id: b1
    data: {text: x}
  - op: checkpoint
    label: gone
  - op: undo
  - op: update
    id: b1
    data: {text: y}
  - op: redo-to
    label: gone
    expect: {error: unknown checkpoint}
`)
	require.NoError(t, err)
}

func TestRunLoadStep(t *testing.T) {
	f := newFixture(t)
	_, err := f.run(t, `
steps:
  - op: update
    id: b1
    data: {text: x}
  - op: load
    records:
      - {id: z, type: paragraph, data: {text: zed}}
    expect: {order: [z]}
  - op: undo
    expect: {changed: false}
`)
	require.NoError(t, err)
}

func TestRunCaretAmendsLastTransaction(t *testing.T) {
	f := newFixture(t)
	_, err := f.run(t, `
name: caret
records:
  - {id: a, type: paragraph, data: {text: hello}}
steps:
  - op: caret
    id: a
    offset: 1
  - op: insert
    block: {id: x, type: paragraph, data: {text: world}}
    index: 1
  - op: caret
    id: x
    offset: 3
  - op: undo
`)
	require.NoError(t, err)

	s, ok := f.caret.Selection()
	require.True(t, ok)
	assert.Equal(t, "a", s.BlockID)
	assert.Equal(t, 1, s.Offset)

	changed, err := f.engine.Redo(context.Background())
	require.NoError(t, err)
	require.True(t, changed)

	s, _ = f.caret.Selection()
	assert.Equal(t, "x", s.BlockID)
	assert.Equal(t, 3, s.Offset)
}

func TestRunHonoursContext(t *testing.T) {
	f := newFixture(t)
	s, err := Parse(strings.NewReader("steps:\n  - op: undo\n"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.runner.Run(ctx, s)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCaret(t *testing.T) {
	c := NewCaret()
	_, ok := c.Selection()
	assert.False(t, ok)

	c.SetSelection(selection.Caret("a", 2))
	s, ok := c.Selection()
	assert.True(t, ok)
	assert.Equal(t, "a@2", s.String())
}
