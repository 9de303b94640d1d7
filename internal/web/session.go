// Package web provides the HTTP API for mood prediction, navigation and
// mood experiences.
package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/justestif/go-moodify/internal/mood"
	"github.com/justestif/go-moodify/internal/navigation"
	"github.com/justestif/go-moodify/internal/pipeline"
	"github.com/justestif/go-moodify/internal/transition"
)

const (
	sessionCookieName = "session_id"
	sessionHeaderName = "X-Session-ID"
	sessionTTL        = 24 * time.Hour
	sweepInterval     = 10 * time.Minute
)

// Session is one client's navigation state. Each session owns exactly one
// scheduler, so a pending transition never crosses sessions.
type Session struct {
	ID        string
	CreatedAt time.Time

	Machine   *navigation.Machine
	Scheduler *transition.Scheduler
	Runner    *pipeline.Runner
}

// UserID identifies the session's listener for likes.
func (s *Session) UserID() string {
	return s.ID
}

// SessionStore manages sessions in memory.
type SessionStore struct {
	svc      *pipeline.Service
	fallback mood.Label
	clock    clock.Clock
	logger   *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	stop     chan struct{}
	stopOnce sync.Once
}

// SessionOption configures a SessionStore.
type SessionOption func(*SessionStore)

// WithSessionClock sets the clock used for expiry and transition timers.
func WithSessionClock(c clock.Clock) SessionOption {
	return func(s *SessionStore) {
		s.clock = c
	}
}

// WithSessionLogger sets the logger.
func WithSessionLogger(l *zap.Logger) SessionOption {
	return func(s *SessionStore) {
		s.logger = l
	}
}

// NewSessionStore creates a store whose sessions run predictions on svc and
// route unmatched moods to fallback's experience. Expired sessions are
// removed in the background until CloseAll is called.
func NewSessionStore(svc *pipeline.Service, fallback mood.Label, opts ...SessionOption) *SessionStore {
	s := &SessionStore{
		svc:      svc,
		fallback: fallback,
		clock:    clock.New(),
		logger:   zap.NewNop(),
		sessions: make(map[string]*Session),
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	ticker := s.clock.Ticker(sweepInterval)
	go s.sweep(ticker)
	return s
}

func (s *SessionStore) sweep(ticker *clock.Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if n := s.removeExpired(); n > 0 {
				s.logger.Info("expired sessions removed", zap.Int("count", n))
			}
		}
	}
}

// removeExpired deletes every session older than sessionTTL and cancels
// its pending transition.
func (s *SessionStore) removeExpired() int {
	var expired []*Session
	s.mu.Lock()
	for id, session := range s.sessions {
		if s.expired(session) {
			expired = append(expired, session)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, session := range expired {
		session.Scheduler.Cancel()
	}
	return len(expired)
}

func (s *SessionStore) expired(session *Session) bool {
	return s.clock.Since(session.CreatedAt) > sessionTTL
}

// Create starts a new session on the home screen.
func (s *SessionStore) Create(_ context.Context) *Session {
	id := uuid.NewString()
	logger := s.logger.With(zap.String("sessionID", id))

	machine := navigation.NewMachine(
		navigation.WithFallback(s.fallback),
		navigation.WithLogger(logger),
	)
	sched := transition.NewScheduler(machine,
		transition.WithClock(s.clock),
		transition.WithLogger(logger),
	)

	session := &Session{
		ID:        id,
		CreatedAt: s.clock.Now(),
		Machine:   machine,
		Scheduler: sched,
		Runner:    s.svc.NewRunner(sched, machine),
	}

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	logger.Info("session created")
	return session
}

// Get retrieves a live session by ID.
func (s *SessionStore) Get(_ context.Context, id string) *Session {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	if s.expired(session) {
		s.Delete(context.Background(), id)
		return nil
	}
	return session
}

// Delete removes a session and cancels its pending transition.
func (s *SessionStore) Delete(_ context.Context, id string) {
	s.mu.Lock()
	session, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		session.Scheduler.Cancel()
	}
}

// CloseAll stops the expiry sweep, cancels every pending transition and
// forgets all sessions.
func (s *SessionStore) CloseAll() {
	s.stopOnce.Do(func() { close(s.stop) })

	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, session := range sessions {
		session.Scheduler.Cancel()
	}
}

// Len returns the number of sessions held.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// GetFromRequest extracts the session from the request header or cookie.
func (s *SessionStore) GetFromRequest(r *http.Request) *Session {
	if id := r.Header.Get(sessionHeaderName); id != "" {
		return s.Get(r.Context(), id)
	}
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil
	}
	return s.Get(r.Context(), cookie.Value)
}

// setCookie sets the session cookie on the response.
func setCookie(w http.ResponseWriter, session *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionTTL.Seconds()),
	})
}

// clearCookie removes the session cookie from the response.
func clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
