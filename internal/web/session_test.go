package web

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/justestif/go-moodify/internal/mood"
	"github.com/justestif/go-moodify/internal/pipeline"
	"github.com/justestif/go-moodify/internal/transition"
)

func waitForLen(t *testing.T, store *SessionStore, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for store.Len() != want {
		if time.Now().After(deadline) {
			t.Fatalf("Len() = %d, want %d", store.Len(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSessionStore_SweepsExpiredSessions(t *testing.T) {
	mock := clock.NewMock()
	store := NewSessionStore(pipeline.NewService(), mood.Happy, WithSessionClock(mock))
	t.Cleanup(store.CloseAll)

	ctx := context.Background()
	var old []*Session
	for i := 0; i < 1000; i++ {
		old = append(old, store.Create(ctx))
	}
	old[0].Scheduler.Schedule(mood.NewDecision(mood.Sad, mood.ModalityImage), 48*time.Hour)

	mock.Add(12 * time.Hour)
	fresh := store.Create(ctx)

	mock.Add(13 * time.Hour)
	waitForLen(t, store, 1)

	if store.Get(ctx, fresh.ID) == nil {
		t.Error("session younger than the TTL was removed")
	}
	if store.Get(ctx, old[0].ID) != nil {
		t.Error("expired session still retrievable")
	}
	if old[0].Scheduler.State() != transition.Idle {
		t.Errorf("expired session scheduler = %v, want idle", old[0].Scheduler.State())
	}
}

func TestSessionStore_CloseAll(t *testing.T) {
	mock := clock.NewMock()
	store := NewSessionStore(pipeline.NewService(), mood.Happy, WithSessionClock(mock))

	session := store.Create(context.Background())
	session.Scheduler.Schedule(mood.NewDecision(mood.Happy, mood.ModalityImage), time.Minute)

	store.CloseAll()
	store.CloseAll()

	if store.Len() != 0 {
		t.Errorf("Len() = %d after CloseAll, want 0", store.Len())
	}
	if session.Scheduler.State() != transition.Idle {
		t.Errorf("scheduler = %v after CloseAll, want idle", session.Scheduler.State())
	}
	mock.Add(sessionTTL)
}
