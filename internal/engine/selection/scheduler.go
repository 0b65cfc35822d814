package selection

import "sync"

// Scheduler runs tasks at a later point chosen by its owner, typically after
// the renderer finished a layout pass.
type Scheduler interface {
	Schedule(task func())
}

// Flusher is implemented by schedulers whose pending tasks can be run on
// demand.
type Flusher interface {
	// Flush runs every pending task and returns how many ran.
	Flush() int
}

// Queue is a deterministic FIFO scheduler. Tasks run only when Flush is
// called. It is safe for concurrent use.
type Queue struct {
	mu    sync.Mutex
	tasks []func()
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Schedule appends task to the queue.
func (q *Queue) Schedule(task func()) {
	if task == nil {
		return
	}
	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()
}

// Flush runs pending tasks in order, including tasks scheduled by tasks
// running during the flush. Tasks run without the queue lock held.
func (q *Queue) Flush() int {
	n := 0
	for {
		q.mu.Lock()
		if len(q.tasks) == 0 {
			q.mu.Unlock()
			return n
		}
		task := q.tasks[0]
		q.tasks[0] = nil
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		task()
		n++
	}
}

// Pending returns the number of tasks waiting to run.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}
