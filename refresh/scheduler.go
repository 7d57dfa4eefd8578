package refresh

import (
	"sort"
	"sync"
	"time"
)

// DefaultRenewBefore is how long before expiry a token is renewed.
const DefaultRenewBefore = 30 * time.Second

// Handle controls one scheduled task.
type Handle interface {
	// Cancel stops the task. It reports false when the task already ran or was cancelled.
	Cancel() bool
}

// Scheduler runs fn once after delay. A delay <= 0 means as soon as possible.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) Handle
}

// Delay returns how long to wait before renewing a token expiring at exp, renewing guard
// ahead of expiry. The result is negative or zero when renewal is already due.
func Delay(exp, now time.Time, guard time.Duration) time.Duration {
	return exp.Sub(now) - guard
}

// TimerScheduler schedules with time.AfterFunc.
type TimerScheduler struct{}

type timerHandle struct {
	t *time.Timer
}

func (h timerHandle) Cancel() bool {
	return h.t.Stop()
}

// Schedule runs fn on its own goroutine after delay.
func (TimerScheduler) Schedule(delay time.Duration, fn func()) Handle {
	if delay < 0 {
		delay = 0
	}
	return timerHandle{t: time.AfterFunc(delay, fn)}
}

// ManualScheduler runs tasks only when its clock is advanced.
//
// Tasks run synchronously on the goroutine calling Advance or RunDue, in deadline order.
// The zero value is not usable; call [NewManualScheduler].
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	tasks map[uint64]*manualTask
}

type manualTask struct {
	id uint64
	at time.Time
	fn func()
}

type manualHandle struct {
	s  *ManualScheduler
	id uint64
}

// NewManualScheduler returns a scheduler whose clock starts at now.
func NewManualScheduler(now time.Time) *ManualScheduler {
	return &ManualScheduler{now: now, tasks: make(map[uint64]*manualTask)}
}

// Now returns the scheduler clock. It can be used as the session clock.
func (s *ManualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Schedule records fn to run once the clock reaches now+delay.
func (s *ManualScheduler) Schedule(delay time.Duration, fn func()) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if delay < 0 {
		delay = 0
	}
	s.seq++
	s.tasks[s.seq] = &manualTask{id: s.seq, at: s.now.Add(delay), fn: fn}
	return manualHandle{s: s, id: s.seq}
}

func (h manualHandle) Cancel() bool {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	if _, ok := h.s.tasks[h.id]; !ok {
		return false
	}
	delete(h.s.tasks, h.id)
	return true
}

// Pending returns the number of scheduled tasks that have neither run nor been cancelled.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// NextDelay returns the delay of the earliest pending task relative to the clock.
func (s *ManualScheduler) NextDelay() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		best  time.Time
		found bool
	)
	for _, t := range s.tasks {
		if !found || t.at.Before(best) {
			best = t.at
			found = true
		}
	}
	if !found {
		return 0, false
	}
	return best.Sub(s.now), true
}

// Advance moves the clock forward by d and runs every task that became due.
// Tasks scheduled by a running task are run too when they are already due.
func (s *ManualScheduler) Advance(d time.Duration) int {
	s.mu.Lock()
	s.now = s.now.Add(d)
	s.mu.Unlock()
	return s.RunDue()
}

// RunDue runs every task whose deadline is not after the clock and returns how many ran.
func (s *ManualScheduler) RunDue() int {
	ran := 0
	for {
		task := s.popDue()
		if task == nil {
			return ran
		}
		task.fn()
		ran++
	}
}

func (s *ManualScheduler) popDue() *manualTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	due := make([]*manualTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		if !t.at.After(s.now) {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].at.Equal(due[j].at) {
			return due[i].id < due[j].id
		}
		return due[i].at.Before(due[j].at)
	})
	next := due[0]
	delete(s.tasks, next.id)
	return next
}
