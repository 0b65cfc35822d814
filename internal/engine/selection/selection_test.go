package selection

import (
	"testing"

	"github.com/dshills/blockstorm/internal/engine/block"
)

// fakeDoc is a Locator over a fixed list of ids.
type fakeDoc struct {
	ids []string
}

func (d *fakeDoc) Len() int { return len(d.ids) }

func (d *fakeDoc) IndexOf(id string) int {
	for i, x := range d.ids {
		if x == id {
			return i
		}
	}
	return -1
}

func (d *fakeDoc) At(i int) (block.Block, bool) {
	if i < 0 || i >= len(d.ids) {
		return block.Block{}, false
	}
	return block.Block{ID: d.ids[i]}, true
}

type recordingAmender struct {
	target uint64
	seqs   []uint64
	got    []Snapshot
}

func (a *recordingAmender) AmendTarget() uint64 { return a.target }

func (a *recordingAmender) AmendLast(seq uint64, s Snapshot) bool {
	a.seqs = append(a.seqs, seq)
	a.got = append(a.got, s)
	return true
}

func TestSnapshotHelpers(t *testing.T) {
	c := Caret("a", 3)
	if c.IsZero() || c.IsMultiBlock() {
		t.Error("caret should be a non-empty single block selection")
	}
	if c.String() != "a@3" {
		t.Errorf("String() = %q", c.String())
	}

	s := Span("a", "b", 2)
	if !s.IsMultiBlock() || s.BlockID != "b" {
		t.Errorf("span = %+v", s)
	}
	if s.String() != "a..b@2" {
		t.Errorf("String() = %q", s.String())
	}

	if !(Snapshot{}).IsZero() || (Snapshot{}).String() != "<none>" {
		t.Error("zero snapshot should be empty")
	}
}

func TestCaptureStampsIndex(t *testing.T) {
	doc := &fakeDoc{ids: []string{"a", "b", "c"}}
	live := Caret("b", 4)
	tr := NewTracker(doc, WithProvider(ProviderFunc(func() (Snapshot, bool) {
		return live, true
	})))

	got := tr.CaptureBefore()
	if got.BlockID != "b" || got.Offset != 4 || got.Index != 1 {
		t.Errorf("CaptureBefore = %+v", got)
	}

	live = Caret("c", 0)
	if got := tr.CaptureAfter(); got.Index != 2 {
		t.Errorf("CaptureAfter = %+v", got)
	}
}

func TestCaptureWithoutProvider(t *testing.T) {
	tr := NewTracker(&fakeDoc{ids: []string{"a"}})
	if got := tr.CaptureBefore(); !got.IsZero() {
		t.Errorf("expected zero snapshot, got %+v", got)
	}

	tr = NewTracker(&fakeDoc{ids: []string{"a"}}, WithProvider(ProviderFunc(func() (Snapshot, bool) {
		return Caret("a", 1), false
	})))
	if got := tr.CaptureAfter(); !got.IsZero() {
		t.Errorf("provider without selection should give zero snapshot, got %+v", got)
	}
}

func TestResolve(t *testing.T) {
	doc := &fakeDoc{ids: []string{"a", "b", "c"}}
	tr := NewTracker(doc)

	tests := []struct {
		name   string
		in     Snapshot
		wantID string
		offset int
		index  int
	}{
		{"present", Snapshot{BlockID: "b", Offset: 2, Index: 0}, "b", 2, 1},
		{"gone uses index", Snapshot{BlockID: "x", Offset: 2, Index: 2}, "c", 2, 2},
		{"gone past end", Snapshot{BlockID: "x", Offset: 2, Index: 7}, "c", OffsetEnd, 2},
		{"gone negative index", Snapshot{BlockID: "x", Offset: 2, Index: -1}, "c", OffsetEnd, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tr.Resolve(tt.in)
			if !ok {
				t.Fatal("Resolve failed")
			}
			if got.BlockID != tt.wantID || got.Offset != tt.offset || got.Index != tt.index {
				t.Errorf("Resolve = %+v, want %s@%d index %d", got, tt.wantID, tt.offset, tt.index)
			}
		})
	}

	if _, ok := tr.Resolve(Snapshot{}); ok {
		t.Error("zero snapshot should not resolve")
	}
}

func TestResolveCollapsesMissingSpan(t *testing.T) {
	doc := &fakeDoc{ids: []string{"a", "b"}}
	tr := NewTracker(doc)

	got, _ := tr.Resolve(Span("a", "b", 1))
	if !got.IsMultiBlock() {
		t.Error("span with existing blocks should be kept")
	}

	doc.ids = []string{"b"}
	got, _ = tr.Resolve(Span("a", "b", 1))
	if got.IsMultiBlock() || got.AnchorBlockID != "" {
		t.Errorf("span with missing anchor should collapse, got %+v", got)
	}
}

func TestRestoreCallsSetter(t *testing.T) {
	doc := &fakeDoc{ids: []string{"a"}}
	var placed []Snapshot
	tr := NewTracker(doc, WithSetter(SetterFunc(func(s Snapshot) {
		placed = append(placed, s)
	})))

	if _, ok := tr.Restore(Snapshot{}); ok {
		t.Error("zero snapshot should not restore")
	}
	if len(placed) != 0 {
		t.Error("setter called for zero snapshot")
	}

	got, ok := tr.Restore(Snapshot{BlockID: "gone", Offset: 3, Index: 5})
	if !ok || got.BlockID != "a" || got.Offset != OffsetEnd {
		t.Errorf("Restore = %+v", got)
	}
	if len(placed) != 1 || placed[0] != got {
		t.Errorf("setter got %v", placed)
	}
}

func TestDeferredAmendmentRunsOnFlush(t *testing.T) {
	doc := &fakeDoc{ids: []string{"a", "b"}}
	q := NewQueue()
	amender := &recordingAmender{target: 1}

	tr := NewTracker(doc, WithScheduler(q))
	tr.Bind(amender)

	tr.UpdateLastSnapshot(Caret("b", 1))
	laidOut := "a"
	tr.Defer(func() Snapshot { return Caret(laidOut, 9) })
	laidOut = "b"

	if len(amender.got) != 0 {
		t.Fatal("amendment ran before flush")
	}
	if q.Pending() != 2 {
		t.Fatalf("pending = %d, want 2", q.Pending())
	}

	if n := tr.Flush(); n != 2 {
		t.Errorf("Flush ran %d tasks, want 2", n)
	}
	if len(amender.got) != 2 {
		t.Fatalf("got %d amendments", len(amender.got))
	}
	if amender.got[0].BlockID != "b" || amender.got[0].Index != 1 {
		t.Errorf("first amendment = %+v", amender.got[0])
	}
	// The deferred function observes state at flush time, not schedule time.
	if amender.got[1].BlockID != "b" || amender.got[1].Offset != 9 {
		t.Errorf("second amendment = %+v", amender.got[1])
	}
}

func TestGuardWrapsAmendment(t *testing.T) {
	doc := &fakeDoc{ids: []string{"a"}}
	guarded := 0
	tr := NewTracker(doc, WithGuard(func(fn func()) {
		guarded++
		fn()
	}))
	tr.Bind(&recordingAmender{target: 1})

	tr.UpdateLastSnapshot(Caret("a", 0))
	tr.Flush()
	if guarded != 1 {
		t.Errorf("guard ran %d times, want 1", guarded)
	}
}

func TestDeferredAmendmentKeepsScheduledTarget(t *testing.T) {
	doc := &fakeDoc{ids: []string{"a"}}
	s := &manualScheduler{}
	amender := &recordingAmender{target: 4}

	tr := NewTracker(doc, WithScheduler(s))
	tr.Bind(amender)
	tr.UpdateLastSnapshot(Caret("a", 1))

	// A later commit moves the target before the task runs.
	amender.target = 5
	for _, task := range s.tasks {
		task()
	}
	if len(amender.seqs) != 1 || amender.seqs[0] != 4 {
		t.Errorf("amended seqs = %v, want [4]", amender.seqs)
	}
}

func TestDeferredAmendmentWithoutTarget(t *testing.T) {
	q := NewQueue()
	amender := &recordingAmender{}
	tr := NewTracker(&fakeDoc{ids: []string{"a"}}, WithScheduler(q))
	tr.Bind(amender)

	tr.UpdateLastSnapshot(Caret("a", 0))
	if n := tr.Flush(); n != 1 {
		t.Errorf("Flush ran %d tasks, want 1", n)
	}
	if len(amender.got) != 0 {
		t.Errorf("amendment without a target ran: %v", amender.got)
	}
}

func TestQueueFlushRunsNestedTasks(t *testing.T) {
	q := NewQueue()
	var order []int
	q.Schedule(func() {
		order = append(order, 1)
		q.Schedule(func() { order = append(order, 3) })
	})
	q.Schedule(func() { order = append(order, 2) })
	q.Schedule(nil)

	if n := q.Flush(); n != 3 {
		t.Errorf("Flush ran %d tasks, want 3", n)
	}
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("order = %v", order)
	}
	if q.Pending() != 0 {
		t.Error("queue should be empty")
	}
}

type manualScheduler struct {
	tasks []func()
}

func (m *manualScheduler) Schedule(task func()) { m.tasks = append(m.tasks, task) }

func TestFlushWithoutFlusher(t *testing.T) {
	s := &manualScheduler{}
	tr := NewTracker(&fakeDoc{ids: []string{"a"}}, WithScheduler(s))
	tr.UpdateLastSnapshot(Caret("a", 0))
	if n := tr.Flush(); n != 0 {
		t.Errorf("Flush = %d, want 0 for a scheduler without Flush", n)
	}
	if len(s.tasks) != 1 {
		t.Errorf("task not scheduled")
	}
}
