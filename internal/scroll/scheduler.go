// Package scroll paces line-by-line display of song content on a viewer.
//
// A Scheduler is local to one viewer. Viewers are not coordinated: they start
// pacing when they receive a selection and share only the interval.
package scroll

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jamoveo/backend/internal/models"
)

// DefaultGrace is how long manual scrolling suspends automatic advancement.
const DefaultGrace = 5 * time.Second

// State is the scheduler's lifecycle state.
type State int

const (
	Idle State = iota
	Running
	Paused
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	default:
		return "idle"
	}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the real clock. Tests pass a clockwork.FakeClock.
func WithClock(c clockwork.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithGrace sets the manual-interaction grace period.
func WithGrace(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.grace = d
		}
	}
}

// WithOnAdvance registers fn to be called with the new cursor whenever it moves.
// Calls are serialized and arrive in cursor order; an index superseded before
// delivery is skipped. fn runs without the state lock held and may read the
// Scheduler, but must not call Start, Reset or ScrollBy.
func WithOnAdvance(fn func(index int)) Option {
	return func(s *Scheduler) { s.onAdvance = fn }
}

// Scheduler advances a cursor over a fixed sequence of lines.
//
// At most one tick loop is armed at a time. Timers are created and stopped
// under the lock; the loop owning the current stop channel is the only one
// allowed to move the cursor, and any other loop that wakes up exits.
type Scheduler struct {
	clock     clockwork.Clock
	grace     time.Duration
	onAdvance func(int)

	// emitMu serializes onAdvance. Start and Reset hold it so no callback for
	// replaced content is still running when they return.
	emitMu sync.Mutex

	mu         sync.Mutex
	state      State
	lines      models.Content
	cursor     int
	interval   time.Duration
	suspended  bool
	closed     bool
	tickStop   chan struct{}
	tickTimer  clockwork.Timer
	graceStop  chan struct{}
	graceTimer clockwork.Timer
	seq        uint64 // bumped on every cursor or content change

	wg sync.WaitGroup
}

// New creates an idle Scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		clock: clockwork.NewRealClock(),
		grace: DefaultGrace,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins pacing lines at interval from cursor 0, replacing whatever was
// running. Empty content leaves the scheduler Idle.
func (s *Scheduler) Start(lines models.Content, interval time.Duration) {
	if interval <= 0 {
		interval = time.Duration(models.DefaultScrollSpeedMs) * time.Millisecond
	}

	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.haltLocked()
	s.seq++
	seq := s.seq
	s.cursor = 0
	s.lines = lines
	s.interval = interval
	s.suspended = false
	if len(lines) == 0 {
		s.state = Idle
		s.mu.Unlock()
		return
	}
	s.state = Running
	s.armLocked()
	s.mu.Unlock()

	s.deliver(seq, 0)
}

// Pause freezes the cursor. It has no effect unless Running.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Running {
		return
	}
	s.haltLocked()
	s.suspended = false
	s.state = Paused
}

// Resume continues from the paused cursor.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Paused || s.closed {
		return
	}
	s.state = Running
	s.armLocked()
}

// Toggle pauses a running scheduler and resumes a paused one.
func (s *Scheduler) Toggle() {
	if s.State() == Running {
		s.Pause()
		return
	}
	s.Resume()
}

// Reset stops pacing and returns to Idle at cursor 0.
func (s *Scheduler) Reset() {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.haltLocked()
	s.seq++
	s.state = Idle
	s.lines = nil
	s.cursor = 0
	s.suspended = false
}

// Interact records manual scrolling. While Running, automatic advancement is
// suspended until grace has elapsed with no further interaction.
func (s *Scheduler) Interact() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interactLocked()
}

// ScrollBy moves the cursor by delta, clamped to the content, and counts as an interaction.
func (s *Scheduler) ScrollBy(delta int) {
	s.mu.Lock()
	if s.state == Idle || len(s.lines) == 0 {
		s.mu.Unlock()
		return
	}
	next := s.cursor + delta
	if next < 0 {
		next = 0
	}
	if last := len(s.lines) - 1; next > last {
		next = last
	}
	moved := next != s.cursor
	s.cursor = next
	if moved {
		s.seq++
	}
	seq := s.seq
	s.interactLocked()
	s.mu.Unlock()

	if moved {
		s.emit(seq, next)
	}
}

// Close halts the scheduler and waits for its timer goroutines to exit.
// The scheduler cannot be restarted.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.haltLocked()
	s.seq++
	s.state = Idle
	s.mu.Unlock()
	s.wg.Wait()
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Cursor returns the current line index.
func (s *Scheduler) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Line returns the line under the cursor.
func (s *Scheduler) Line() (models.LyricLine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.lines) == 0 {
		return nil, false
	}
	return s.lines[s.cursor], true
}

// Ticking reports whether an automatic advance is armed.
func (s *Scheduler) Ticking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickStop != nil
}

// Suspended reports whether automatic advancement is held by manual interaction.
func (s *Scheduler) Suspended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suspended
}

func (s *Scheduler) interactLocked() {
	if s.state != Running || s.closed {
		return
	}
	s.stopTickLocked()
	s.stopGraceLocked()
	s.suspended = true

	stop := make(chan struct{})
	s.graceStop = stop
	s.graceTimer = s.clock.NewTimer(s.grace)
	s.wg.Add(1)
	go s.waitGrace(stop, s.graceTimer)
}

// armLocked starts a tick loop unless the cursor is already on the last line.
func (s *Scheduler) armLocked() {
	s.stopTickLocked()
	if s.cursor >= len(s.lines)-1 {
		return
	}
	stop := make(chan struct{})
	s.tickStop = stop
	s.tickTimer = s.clock.NewTimer(s.interval)
	s.wg.Add(1)
	go s.tick(stop, s.tickTimer)
}

func (s *Scheduler) haltLocked() {
	s.stopTickLocked()
	s.stopGraceLocked()
}

func (s *Scheduler) stopTickLocked() {
	if s.tickStop == nil {
		return
	}
	s.tickTimer.Stop()
	close(s.tickStop)
	s.tickStop, s.tickTimer = nil, nil
}

func (s *Scheduler) stopGraceLocked() {
	if s.graceStop == nil {
		return
	}
	s.graceTimer.Stop()
	close(s.graceStop)
	s.graceStop, s.graceTimer = nil, nil
}

func (s *Scheduler) tick(stop chan struct{}, timer clockwork.Timer) {
	defer s.wg.Done()
	for {
		select {
		case <-stop:
			return
		case <-timer.Chan():
		}

		s.mu.Lock()
		if s.tickStop != stop {
			s.mu.Unlock()
			return
		}
		s.cursor++
		s.seq++
		idx, seq := s.cursor, s.seq
		terminal := s.cursor >= len(s.lines)-1
		if terminal {
			s.tickStop, s.tickTimer = nil, nil
		} else {
			timer = s.clock.NewTimer(s.interval)
			s.tickTimer = timer
		}
		s.mu.Unlock()

		s.emit(seq, idx)
		if terminal {
			return
		}
	}
}

func (s *Scheduler) waitGrace(stop chan struct{}, timer clockwork.Timer) {
	defer s.wg.Done()
	select {
	case <-stop:
		return
	case <-timer.Chan():
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.graceStop != stop {
		return
	}
	s.graceStop, s.graceTimer = nil, nil
	s.suspended = false
	if s.state == Running {
		s.armLocked()
	}
}

func (s *Scheduler) emit(seq uint64, idx int) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.deliver(seq, idx)
}

// deliver calls onAdvance unless a later change has superseded seq.
// The caller holds emitMu.
func (s *Scheduler) deliver(seq uint64, idx int) {
	if s.onAdvance == nil {
		return
	}
	s.mu.Lock()
	current := s.seq == seq
	s.mu.Unlock()
	if current {
		s.onAdvance(idx)
	}
}
