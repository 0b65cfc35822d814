package selection

import "sync"

// Option configures a Tracker.
type Option func(*Tracker)

// WithProvider sets the source of the live selection.
func WithProvider(p Provider) Option {
	return func(t *Tracker) {
		t.provider = p
	}
}

// WithSetter sets the sink for restored selections.
func WithSetter(s Setter) Option {
	return func(t *Tracker) {
		t.setter = s
	}
}

// WithScheduler sets the scheduler used for deferred caret updates.
func WithScheduler(s Scheduler) Option {
	return func(t *Tracker) {
		if s != nil {
			t.scheduler = s
		}
	}
}

// WithGuard wraps every amendment made by a scheduled task. The engine uses it
// to take its lock, since tasks may run outside any engine call.
func WithGuard(guard func(fn func())) Option {
	return func(t *Tracker) {
		if guard != nil {
			t.guard = guard
		}
	}
}

// Tracker captures and restores selection snapshots.
type Tracker struct {
	mu        sync.Mutex
	doc       Locator
	provider  Provider
	setter    Setter
	scheduler Scheduler
	amender   Amender
	guard     func(fn func())
}

// NewTracker creates a tracker over doc. Without a scheduler option it uses
// a fresh Queue.
func NewTracker(doc Locator, opts ...Option) *Tracker {
	t := &Tracker{
		doc:       doc,
		scheduler: NewQueue(),
		guard:     func(fn func()) { fn() },
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Bind sets the target of deferred amendments, normally the history stack.
func (t *Tracker) Bind(a Amender) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.amender = a
}

// Scheduler returns the scheduler in use.
func (t *Tracker) Scheduler() Scheduler {
	return t.scheduler
}

// CaptureBefore snapshots the selection before a transaction's first edit.
func (t *Tracker) CaptureBefore() Snapshot {
	return t.capture()
}

// CaptureAfter snapshots the selection when a transaction commits.
func (t *Tracker) CaptureAfter() Snapshot {
	return t.capture()
}

func (t *Tracker) capture() Snapshot {
	t.mu.Lock()
	p := t.provider
	t.mu.Unlock()
	if p == nil {
		return Snapshot{}
	}
	s, ok := p.Selection()
	if !ok {
		return Snapshot{}
	}
	return t.stamp(s)
}

// stamp records the current index of the snapshot's block.
func (t *Tracker) stamp(s Snapshot) Snapshot {
	if s.IsZero() {
		return s
	}
	s.Index = t.doc.IndexOf(s.BlockID)
	return s
}

// UpdateLastSnapshot schedules replacing the After snapshot of the most
// recent transaction with s.
func (t *Tracker) UpdateLastSnapshot(s Snapshot) {
	t.Defer(func() Snapshot { return s })
}

// Defer schedules fn and uses its result to amend the After snapshot of the
// transaction that is most recent now. If another transaction was committed
// on top of it by the time the task runs, the amendment is dropped. fn runs
// on the scheduler and must not call back into the engine that owns this
// tracker.
func (t *Tracker) Defer(fn func() Snapshot) {
	t.mu.Lock()
	a := t.amender
	t.mu.Unlock()
	var seq uint64
	if a != nil {
		seq = a.AmendTarget()
	}

	t.scheduler.Schedule(func() {
		s := fn()
		if a == nil || seq == 0 {
			return
		}
		t.guard(func() {
			a.AmendLast(seq, t.stamp(s))
		})
	})
}

// Flush runs pending deferred updates if the scheduler supports it.
func (t *Tracker) Flush() int {
	if f, ok := t.scheduler.(Flusher); ok {
		return f.Flush()
	}
	return 0
}

// Resolve maps a snapshot onto the current document. If the block is gone the
// selection moves to the block now at the snapshot's index; if that index is
// out of range it moves to the end of the last block. Anchor or focus blocks
// that no longer exist collapse the selection to a caret.
func (t *Tracker) Resolve(s Snapshot) (Snapshot, bool) {
	if s.IsZero() {
		return s, false
	}
	n := t.doc.Len()
	if n == 0 {
		return Snapshot{}, false
	}

	if i := t.doc.IndexOf(s.BlockID); i >= 0 {
		s.Index = i
	} else if s.Index >= 0 && s.Index < n {
		b, _ := t.doc.At(s.Index)
		s.BlockID = b.ID
	} else {
		b, _ := t.doc.At(n - 1)
		s.BlockID = b.ID
		s.Index = n - 1
		s.Offset = OffsetEnd
	}

	if s.AnchorBlockID != "" || s.FocusBlockID != "" {
		if t.doc.IndexOf(s.AnchorBlockID) < 0 || t.doc.IndexOf(s.FocusBlockID) < 0 {
			s.AnchorBlockID = ""
			s.FocusBlockID = ""
		}
	}
	return s, true
}

// Restore resolves s and hands the result to the setter. It returns the
// resolved snapshot.
func (t *Tracker) Restore(s Snapshot) (Snapshot, bool) {
	resolved, ok := t.Resolve(s)
	if !ok {
		return resolved, false
	}
	t.mu.Lock()
	setter := t.setter
	t.mu.Unlock()
	if setter != nil {
		setter.SetSelection(resolved)
	}
	return resolved, true
}
