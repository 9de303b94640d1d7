package transition

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/justestif/go-moodify/internal/mood"
)

// recorder collects fired decisions. Mock clock callbacks run on their own
// goroutine, so deliveries are read from a channel.
type recorder struct {
	ch chan mood.Decision
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan mood.Decision, 16)}
}

func (r *recorder) OnMoodResolved(d mood.Decision) {
	r.ch <- d
}

func (r *recorder) expect(t *testing.T) mood.Decision {
	t.Helper()
	select {
	case d := <-r.ch:
		return d
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for transition to fire")
		return mood.Decision{}
	}
}

func (r *recorder) expectNone(t *testing.T) {
	t.Helper()
	select {
	case d := <-r.ch:
		t.Fatalf("unexpected firing with %q", d.Label())
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSchedule_Fires(t *testing.T) {
	mock := clock.NewMock()
	rec := newRecorder()
	s := NewScheduler(rec, WithClock(mock))

	a := mood.NewDecision(mood.Happy, mood.ModalityImage)
	p := s.Schedule(a, 5*time.Second)

	if s.State() != Scheduled {
		t.Fatalf("State() = %v, want scheduled", s.State())
	}
	if !p.FireAt.Equal(mock.Now().Add(5 * time.Second)) {
		t.Errorf("FireAt = %v, want now+5s", p.FireAt)
	}

	mock.Add(4 * time.Second)
	rec.expectNone(t)

	mock.Add(time.Second)
	got := rec.expect(t)
	if got.ID() != a.ID() {
		t.Errorf("fired %v, want %v", got.ID(), a.ID())
	}
	if s.State() != Idle {
		t.Errorf("State() after fire = %v, want idle", s.State())
	}
	if _, ok := s.Pending(); ok {
		t.Error("Pending() should be empty after fire")
	}

	mock.Add(time.Minute)
	rec.expectNone(t)
}

func TestSchedule_NewRequestWins(t *testing.T) {
	mock := clock.NewMock()
	rec := newRecorder()
	s := NewScheduler(rec, WithClock(mock))

	a := mood.NewDecision(mood.Happy, mood.ModalityImage)
	b := mood.NewDecision(mood.Sad, mood.ModalityImage)

	s.Schedule(a, 5*time.Second)
	mock.Add(2 * time.Second)
	pb := s.Schedule(b, 5*time.Second)

	if want := mock.Now().Add(5 * time.Second); !pb.FireAt.Equal(want) {
		t.Errorf("FireAt = %v, want %v", pb.FireAt, want)
	}

	// A's deadline passes without firing.
	mock.Add(3 * time.Second)
	rec.expectNone(t)

	mock.Add(2 * time.Second)
	got := rec.expect(t)
	if got.ID() != b.ID() {
		t.Errorf("fired %q, want B", got.Label())
	}

	mock.Add(time.Minute)
	rec.expectNone(t)
}

func TestCancel(t *testing.T) {
	mock := clock.NewMock()
	rec := newRecorder()
	s := NewScheduler(rec, WithClock(mock))

	if s.Cancel() {
		t.Error("Cancel() on idle scheduler should report false")
	}

	s.Schedule(mood.NewDecision(mood.Sad, mood.ModalityAudio), 5*time.Second)
	mock.Add(time.Second)

	if !s.Cancel() {
		t.Error("Cancel() should report true for a pending transition")
	}
	if s.State() != Idle {
		t.Errorf("State() = %v, want idle", s.State())
	}

	mock.Add(time.Hour)
	rec.expectNone(t)

	if s.Cancel() {
		t.Error("second Cancel() should report false")
	}
}

func TestFire_ObservesCancellation(t *testing.T) {
	rec := newRecorder()
	s := NewScheduler(rec, WithClock(clock.NewMock()))

	s.Schedule(mood.NewDecision(mood.Happy, mood.ModalityImage), time.Second)
	s.mu.Lock()
	p := s.current
	s.mu.Unlock()

	s.Cancel()

	// A timer that already elapsed still calls fire; it must do nothing.
	s.fire(p)
	rec.expectNone(t)
}

func TestFire_OnlyOnce(t *testing.T) {
	rec := newRecorder()
	s := NewScheduler(rec, WithClock(clock.NewMock()))

	s.Schedule(mood.NewDecision(mood.Happy, mood.ModalityImage), time.Second)
	s.mu.Lock()
	p := s.current
	s.mu.Unlock()

	s.fire(p)
	s.fire(p)

	rec.expect(t)
	rec.expectNone(t)
}

func TestSchedule_Concurrent(t *testing.T) {
	mock := clock.NewMock()
	rec := newRecorder()
	s := NewScheduler(rec, WithClock(mock))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Schedule(mood.NewDecision(mood.Happy, mood.ModalityImage), 5*time.Second)
		}()
	}
	wg.Wait()

	last, ok := s.Pending()
	if !ok {
		t.Fatal("expected a pending transition")
	}

	mock.Add(5 * time.Second)
	got := rec.expect(t)
	if got.ID() != last.Decision.ID() {
		t.Errorf("fired %v, want most recent %v", got.ID(), last.Decision.ID())
	}
	rec.expectNone(t)
}

func TestSchedule_ZeroDelay(t *testing.T) {
	rec := newRecorder()
	s := NewScheduler(rec)

	d := mood.NewDecision(mood.Sad, mood.ModalityText)
	s.Schedule(d, 0)

	if got := rec.expect(t); got.ID() != d.ID() {
		t.Errorf("fired %v, want %v", got.ID(), d.ID())
	}
}

func TestNavigatorFunc(t *testing.T) {
	var got mood.Label
	NavigatorFunc(func(d mood.Decision) { got = d.Label() }).OnMoodResolved(mood.NewDecision(mood.Fear, mood.ModalityImage))
	if got != mood.Fear {
		t.Errorf("got %q, want fear", got)
	}
}

func TestState_String(t *testing.T) {
	for state, want := range map[State]string{Idle: "idle", Scheduled: "scheduled", Fired: "fired", Canceled: "canceled", State(9): "unknown"} {
		if state.String() != want {
			t.Errorf("%d.String() = %q, want %q", state, state.String(), want)
		}
	}
}

func TestScheduleAttempt(t *testing.T) {
	tests := []struct {
		name      string
		interrupt func(s *Scheduler)
		wantOK    bool
	}{
		{name: "current attempt schedules", interrupt: func(*Scheduler) {}, wantOK: true},
		{name: "cancel during attempt", interrupt: func(s *Scheduler) { s.Cancel() }},
		{name: "newer attempt begins", interrupt: func(s *Scheduler) { s.Begin() }},
		{name: "direct schedule", interrupt: func(s *Scheduler) {
			s.Schedule(mood.NewDecision(mood.Sad, mood.ModalityText), time.Hour)
			s.Cancel()
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := clock.NewMock()
			rec := newRecorder()
			s := NewScheduler(rec, WithClock(mock))

			token := s.Begin()
			tt.interrupt(s)

			var accepted []mood.Decision
			d := mood.NewDecision(mood.Happy, mood.ModalityImage)
			_, ok := s.ScheduleAttempt(token, d, 5*time.Second, func(d mood.Decision) {
				accepted = append(accepted, d)
			})
			if ok != tt.wantOK {
				t.Fatalf("ScheduleAttempt() ok = %v, want %v", ok, tt.wantOK)
			}

			mock.Add(5 * time.Second)
			if !tt.wantOK {
				if len(accepted) != 0 {
					t.Errorf("accepted called for a stale attempt")
				}
				if s.State() != Idle {
					t.Errorf("State() = %v, want idle", s.State())
				}
				rec.expectNone(t)
				return
			}
			if len(accepted) != 1 || accepted[0].ID() != d.ID() {
				t.Errorf("accepted = %v, want the decision once", accepted)
			}
			if got := rec.expect(t); got.ID() != d.ID() {
				t.Errorf("fired %v, want %v", got.ID(), d.ID())
			}
		})
	}
}

func TestBegin_CancelsPending(t *testing.T) {
	mock := clock.NewMock()
	rec := newRecorder()
	s := NewScheduler(rec, WithClock(mock))

	s.Schedule(mood.NewDecision(mood.Happy, mood.ModalityImage), 5*time.Second)
	first := s.Begin()
	second := s.Begin()
	if first == second {
		t.Fatal("Begin() returned the same token twice")
	}
	if s.State() != Idle {
		t.Errorf("State() = %v, want idle after Begin", s.State())
	}
	mock.Add(5 * time.Second)
	rec.expectNone(t)
}
