// Package transition holds at most one pending, cancelable, delayed
// navigation so a resolved mood can be shown briefly before the user is
// moved on.
package transition

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/justestif/go-moodify/internal/mood"
)

// DefaultDelay is how long a resolved mood is displayed before navigating.
const DefaultDelay = 5 * time.Second

// Navigator receives a decision when its transition fires.
type Navigator interface {
	OnMoodResolved(d mood.Decision)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(d mood.Decision)

// OnMoodResolved calls f(d).
func (f NavigatorFunc) OnMoodResolved(d mood.Decision) { f(d) }

// State is the scheduler's externally visible state. Fired and Canceled
// are momentary; the scheduler returns to Idle immediately after either.
type State int

const (
	Idle State = iota
	Scheduled
	Fired
	Canceled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scheduled:
		return "scheduled"
	case Fired:
		return "fired"
	case Canceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Pending describes a scheduled transition.
type Pending struct {
	ID       uuid.UUID     `json:"id"`
	Decision mood.Decision `json:"decision"`
	FireAt   time.Time     `json:"fireAt"`
	Delay    time.Duration `json:"delay"`
}

// pending is one scheduled transition. state moves from Scheduled to
// exactly one of Fired or Canceled.
type pending struct {
	info  Pending
	state atomic.Int32
	timer *clock.Timer
}

func (p *pending) finish(to State) bool {
	return p.state.CompareAndSwap(int32(Scheduled), int32(to))
}

// Scheduler owns the single pending-transition slot. All methods are safe
// for concurrent use; Schedule and Cancel are serialized.
//
// Work that produces a decision asynchronously takes an attempt token with
// Begin and schedules through ScheduleAttempt. Cancel, Begin and Schedule
// all invalidate older tokens, so a decision that arrives after the user
// moved on is dropped.
type Scheduler struct {
	nav    Navigator
	clock  clock.Clock
	logger *zap.Logger

	mu      sync.Mutex
	current *pending
	attempt uint64
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the time source.
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) {
		s.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// NewScheduler creates an idle scheduler that delivers to nav.
func NewScheduler(nav Navigator, opts ...Option) *Scheduler {
	s := &Scheduler{
		nav:    nav,
		clock:  clock.New(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Begin cancels any pending transition and returns a token for a new
// attempt. Only the most recently issued token can schedule.
func (s *Scheduler) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.cancelLocked("new attempt")
	}
	s.attempt++
	return s.attempt
}

// ScheduleAttempt schedules d for the attempt identified by token. It
// reports false and schedules nothing if the attempt was superseded by a
// later Begin, Schedule or Cancel. accepted, if not nil, is called with d
// before the timer is armed, so it always runs before the navigation.
func (s *Scheduler) ScheduleAttempt(token uint64, d mood.Decision, delay time.Duration, accepted func(mood.Decision)) (Pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token != s.attempt {
		s.logger.Debug("dropping decision from stale attempt",
			zap.String("decisionID", d.ID().String()),
			zap.Uint64("attempt", token),
			zap.Uint64("current", s.attempt))
		return Pending{}, false
	}
	if accepted != nil {
		accepted(d)
	}
	return s.scheduleLocked(d, delay), true
}

// Schedule replaces any pending transition with one that delivers d after
// delay. Only the most recent request can fire.
func (s *Scheduler) Schedule(d mood.Decision, delay time.Duration) Pending {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempt++
	return s.scheduleLocked(d, delay)
}

func (s *Scheduler) scheduleLocked(d mood.Decision, delay time.Duration) Pending {
	if s.current != nil {
		s.cancelLocked("superseded")
	}

	p := &pending{
		info: Pending{
			ID:       uuid.New(),
			Decision: d,
			FireAt:   s.clock.Now().Add(delay),
			Delay:    delay,
		},
	}
	p.state.Store(int32(Scheduled))
	s.current = p
	p.timer = s.clock.AfterFunc(delay, func() { s.fire(p) })

	s.logger.Debug("transition scheduled",
		zap.String("transitionID", p.info.ID.String()),
		zap.String("decisionID", d.ID().String()),
		zap.String("label", d.Label().String()),
		zap.Duration("delay", delay))
	return p.info
}

// Cancel suppresses the pending transition and any decision still being
// produced by an in-flight attempt. It reports whether a transition was
// pending.
func (s *Scheduler) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempt++
	if s.current == nil {
		return false
	}
	return s.cancelLocked("requested")
}

func (s *Scheduler) cancelLocked(reason string) bool {
	p := s.current
	s.current = nil
	if !p.finish(Canceled) {
		return false
	}
	// The flag is authoritative; stopping the timer only saves a wakeup.
	p.timer.Stop()

	s.logger.Debug("transition canceled",
		zap.String("transitionID", p.info.ID.String()),
		zap.String("reason", reason))
	return true
}

// fire runs on the timer goroutine.
func (s *Scheduler) fire(p *pending) {
	s.mu.Lock()
	if !p.finish(Fired) {
		s.mu.Unlock()
		return
	}
	if s.current == p {
		s.current = nil
	}
	s.mu.Unlock()

	s.logger.Debug("transition fired",
		zap.String("transitionID", p.info.ID.String()),
		zap.String("label", p.info.Decision.Label().String()))
	s.nav.OnMoodResolved(p.info.Decision)
}

// State returns Idle or Scheduled.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Idle
	}
	return Scheduled
}

// Pending returns the scheduled transition, if any.
func (s *Scheduler) Pending() (Pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Pending{}, false
	}
	return s.current.info, true
}
