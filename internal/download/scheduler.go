package download

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Scheduler runs deferred cleanup callbacks. Every scheduled task can be
// cancelled, and Stop cancels whatever is still pending.
type Scheduler struct {
	clock clockwork.Clock

	mu      sync.Mutex
	next    uint64
	pending map[uint64]clockwork.Timer
	stopped bool
}

// NewScheduler returns a scheduler driven by clock; nil selects the real clock.
func NewScheduler(clock clockwork.Clock) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{clock: clock, pending: make(map[uint64]clockwork.Timer)}
}

// Task is a handle to a scheduled callback.
type Task struct {
	s  *Scheduler
	id uint64
}

// Schedule runs fn once after d. After Stop it returns an inert task.
func (s *Scheduler) Schedule(d time.Duration, fn func()) *Task {
	s.mu.Lock()
	if s.stopped || fn == nil {
		s.mu.Unlock()
		return &Task{}
	}
	s.next++
	id := s.next
	s.pending[id] = nil
	s.mu.Unlock()

	// The timer is created outside the lock: a clock may fire the callback
	// before AfterFunc returns.
	timer := s.clock.AfterFunc(d, func() {
		if s.take(id) {
			fn()
		}
	})

	s.mu.Lock()
	if _, ok := s.pending[id]; ok {
		s.pending[id] = timer
	} else {
		timer.Stop()
	}
	s.mu.Unlock()
	return &Task{s: s, id: id}
}

// take removes id from the pending set and reports whether it was still there.
func (s *Scheduler) take(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[id]; !ok {
		return false
	}
	delete(s.pending, id)
	return true
}

// Cancel prevents the callback from running. It reports whether the task
// was still pending.
func (t *Task) Cancel() bool {
	if t == nil || t.s == nil {
		return false
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	timer, ok := t.s.pending[t.id]
	if !ok {
		return false
	}
	delete(t.s.pending, t.id)
	if timer != nil {
		timer.Stop()
	}
	return true
}

// Pending returns the number of tasks that have neither run nor been cancelled.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Stop cancels all pending tasks and rejects new ones.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for id, timer := range s.pending {
		if timer != nil {
			timer.Stop()
		}
		delete(s.pending, id)
	}
}
