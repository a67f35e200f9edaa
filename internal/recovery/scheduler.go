package recovery

import (
	"fmt"
	"sync"
	"time"
)

type taskKey struct {
	stage Stage
	name  string
}

type task struct {
	timer Timer
}

// Scheduler runs cancellable delayed tasks keyed by stage and name.
// Scheduling a key that is already pending replaces the earlier task.
type Scheduler struct {
	clock Clock

	mu     sync.Mutex
	tasks  map[taskKey]*task
	closed bool
}

// NewScheduler creates a scheduler on clock.
func NewScheduler(clock Clock) *Scheduler {
	if clock == nil {
		clock = RealClock{}
	}
	return &Scheduler{clock: clock, tasks: make(map[taskKey]*task)}
}

// After runs fn once d has elapsed unless the task is cancelled first.
// It reports false when the scheduler is closed.
func (s *Scheduler) After(stage Stage, name string, d time.Duration, fn func()) bool {
	key := taskKey{stage: stage, name: name}
	t := &task{}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if prev, ok := s.tasks[key]; ok {
		prev.timer.Stop()
	}
	s.tasks[key] = t
	t.timer = s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		current := s.tasks[key] == t
		if current {
			delete(s.tasks, key)
		}
		s.mu.Unlock()
		if current {
			fn()
		}
	})
	return true
}

// Countdown starts a countdown of units ticks of length unit and calls
// onZero when it runs out. onZero receives the countdown so the caller can
// tell a stale firing from the current one.
func (s *Scheduler) Countdown(stage Stage, name string, units int, unit time.Duration, onZero func(*Countdown)) *Countdown {
	c := &Countdown{
		clock:    s.clock,
		unit:     unit,
		deadline: s.clock.Now().Add(time.Duration(units) * unit),
	}
	if units <= 0 {
		c.stop()
		return c
	}
	if !s.After(stage, name, time.Duration(units)*unit, func() {
		if onZero != nil {
			onZero(c)
		}
	}) {
		c.stop()
	}
	return c
}

// CancelStage stops every task of stage and returns how many were pending.
func (s *Scheduler) CancelStage(stage Stage) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key, t := range s.tasks {
		if key.stage == stage {
			t.timer.Stop()
			delete(s.tasks, key)
			n++
		}
	}
	return n
}

// Pending returns the number of scheduled tasks.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Close cancels everything and refuses further scheduling.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, t := range s.tasks {
		t.timer.Stop()
		delete(s.tasks, key)
	}
	s.closed = true
}

// Countdown reports the whole units left until its deadline. A stopped
// countdown keeps the value it had when stopped.
type Countdown struct {
	clock    Clock
	unit     time.Duration
	deadline time.Time

	mu      sync.Mutex
	stopped bool
	frozen  int
}

// Remaining returns the units left, rounded up.
func (c *Countdown) Remaining() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return c.frozen
	}
	return c.remaining()
}

func (c *Countdown) remaining() int {
	left := c.deadline.Sub(c.clock.Now())
	if left <= 0 || c.unit <= 0 {
		return 0
	}
	return int((left + c.unit - 1) / c.unit)
}

func (c *Countdown) stop() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.stopped {
		c.frozen = c.remaining()
		c.stopped = true
	}
}

// FormatUnits renders a count of second-long units as mm:ss.
func FormatUnits(units int) string {
	if units < 0 {
		units = 0
	}
	return fmt.Sprintf("%02d:%02d", units/60, units%60)
}
