// Package navigation is the screen state machine driven by resolved moods
// and user actions. Consumers observe it by subscribing to its events.
package navigation

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/justestif/go-moodify/internal/mood"
)

// ErrUnknownScreen is returned by Transition for a screen that does not
// exist.
var ErrUnknownScreen = errors.New("unknown screen")

// Screen identifies a destination.
type Screen string

// Screens.
const (
	Home            Screen = "home"
	Camera          Screen = "camera"
	Voice           Screen = "voice"
	Prompt          Screen = "prompt"
	Liked           Screen = "liked"
	HappyExperience Screen = "experience/happy"
	SadExperience   Screen = "experience/sad"
)

var screens = []Screen{Home, Camera, Voice, Prompt, Liked, HappyExperience, SadExperience}

// ParseScreen validates a screen name.
func ParseScreen(s string) (Screen, error) {
	for _, sc := range screens {
		if string(sc) == strings.ToLower(strings.TrimSpace(s)) {
			return sc, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownScreen, s)
}

// Experience returns the mood this screen presents, if it is an
// experience screen.
func (s Screen) Experience() (mood.Label, bool) {
	switch s {
	case HappyExperience:
		return mood.Happy, true
	case SadExperience:
		return mood.Sad, true
	default:
		return "", false
	}
}

// ExperienceFor routes a mood to its experience screen. Only Happy and Sad
// have their own; every other mood goes to the fallback's experience, and
// to the Happy experience if the fallback has none either.
func ExperienceFor(l, fallback mood.Label) Screen {
	switch l {
	case mood.Happy:
		return HappyExperience
	case mood.Sad:
		return SadExperience
	}
	if fallback == mood.Sad {
		return SadExperience
	}
	return HappyExperience
}

// EventKind distinguishes events.
type EventKind string

// Event kinds.
const (
	EventNavigated EventKind = "navigated"
	EventDecision  EventKind = "decision"
)

// Event is emitted once per completed navigation or prediction.
type Event struct {
	Seq      uint64         `json:"seq"`
	Kind     EventKind      `json:"kind"`
	From     Screen         `json:"from,omitempty"`
	To       Screen         `json:"to,omitempty"`
	Decision *mood.Decision `json:"decision,omitempty"`
	At       time.Time      `json:"at"`
}

// Machine holds the current screen. It implements transition.Navigator.
type Machine struct {
	fallback mood.Label
	logger   *zap.Logger

	mu      sync.Mutex
	current Screen
	seq     uint64
	subs    map[uint64]chan Event
	nextSub uint64
}

// Option configures a Machine.
type Option func(*Machine)

// WithFallback sets the mood whose experience receives unmapped moods.
func WithFallback(l mood.Label) Option {
	return func(m *Machine) {
		m.fallback = l
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Machine) {
		m.logger = l
	}
}

// NewMachine creates a machine on the Home screen.
func NewMachine(opts ...Option) *Machine {
	m := &Machine{
		fallback: mood.Happy,
		logger:   zap.NewNop(),
		current:  Home,
		subs:     make(map[uint64]chan Event),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CurrentScreen returns the screen being shown.
func (m *Machine) CurrentScreen() Screen {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Transition moves to screen to. Moving to the current screen is a no-op
// and emits nothing.
func (m *Machine) Transition(to Screen) error {
	sc, err := ParseScreen(string(to))
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitionLocked(sc, nil)
	return nil
}

// OnMoodResolved routes to the decision's experience screen.
func (m *Machine) OnMoodResolved(d mood.Decision) {
	to := ExperienceFor(d.Label(), m.fallback)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitionLocked(to, &d)
}

// DecisionMade announces a decision without navigating.
func (m *Machine) DecisionMade(d mood.Decision) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emitLocked(Event{Kind: EventDecision, To: m.current, Decision: &d})
}

func (m *Machine) transitionLocked(to Screen, d *mood.Decision) {
	from := m.current
	if from == to {
		return
	}
	m.current = to
	m.logger.Debug("navigated", zap.String("from", string(from)), zap.String("to", string(to)))
	m.emitLocked(Event{Kind: EventNavigated, From: from, To: to, Decision: d})
}

// emitLocked delivers e to every subscriber without blocking. Slow
// subscribers miss events rather than stall navigation.
func (m *Machine) emitLocked(e Event) {
	m.seq++
	e.Seq = m.seq
	e.At = time.Now()
	for id, ch := range m.subs {
		select {
		case ch <- e:
		default:
			m.logger.Warn("dropping navigation event for slow subscriber",
				zap.Uint64("subscriber", id),
				zap.Uint64("seq", e.Seq))
		}
	}
}

// Subscribe returns a channel of future events and a function that
// unsubscribes and closes it.
func (m *Machine) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
			close(ch)
		})
	}
}
