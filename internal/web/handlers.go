package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/justestif/go-moodify/internal/db"
	"github.com/justestif/go-moodify/internal/media"
	"github.com/justestif/go-moodify/internal/mood"
	"github.com/justestif/go-moodify/internal/navigation"
	"github.com/justestif/go-moodify/internal/pipeline"
	"github.com/justestif/go-moodify/internal/transition"
)

const (
	maxUploadBytes = 10 << 20
	maxTextBytes   = 64 << 10
)

// Playlists provides the songs for each mood.
type Playlists interface {
	SongsForMood(ctx context.Context, m mood.Label) ([]string, error)
}

// Likes stores each listener's liked songs.
type Likes interface {
	Like(ctx context.Context, userID, song string) error
	Unlike(ctx context.Context, userID, song string) error
	ForUser(ctx context.Context, userID string) ([]db.Like, error)
	LikedAmong(ctx context.Context, userID string, songs []string) (map[string]bool, error)
}

// Users records listeners.
type Users interface {
	Ensure(ctx context.Context, id string) (*db.User, error)
}

// Links resolves songs into playable links.
type Links interface {
	FindAll(ctx context.Context, songs []string) ([]media.Result, error)
}

// Handlers contains HTTP handlers for the API. Playlists, likes, users and
// links are optional; endpoints that need a missing one answer 503.
type Handlers struct {
	sessions  *SessionStore
	playlists Playlists
	likes     Likes
	users     Users
	links     Links
	fallback  mood.Label
	logger    *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(sessions *SessionStore, deps Deps) *Handlers {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		sessions:  sessions,
		playlists: deps.Playlists,
		likes:     deps.Likes,
		users:     deps.Users,
		links:     deps.Links,
		fallback:  sessions.fallback,
		logger:    logger,
	}
}

type sessionKey struct{}

func sessionFrom(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey{}).(*Session)
	return s
}

// requireSession rejects requests without a live session.
func (h *Handlers) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := h.sessions.GetFromRequest(r)
		if session == nil {
			writeError(w, http.StatusUnauthorized, "Please start a session first.")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, session)))
	})
}

type sessionResponse struct {
	SessionID string            `json:"sessionId"`
	Screen    navigation.Screen `json:"screen"`
}

// CreateSession starts a session (POST /sessions).
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.Create(r.Context())

	if h.users != nil {
		if _, err := h.users.Ensure(r.Context(), session.UserID()); err != nil {
			h.logger.Warn("recording user failed", zap.String("sessionID", session.ID), zap.Error(err))
		}
	}

	setCookie(w, session)
	writeJSON(w, http.StatusCreated, sessionResponse{
		SessionID: session.ID,
		Screen:    session.Machine.CurrentScreen(),
	})
}

// DeleteSession ends the current session (DELETE /sessions).
func (h *Handlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	h.sessions.Delete(r.Context(), sessionFrom(r.Context()).ID)
	clearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

type pendingResponse struct {
	ID      string    `json:"id"`
	FireAt  time.Time `json:"fireAt"`
	DelayMs int64     `json:"delayMs"`
}

type predictResponse struct {
	Decision          mood.Decision    `json:"decision"`
	Scores            []float32        `json:"scores,omitempty"`
	ShortInput        bool             `json:"shortInput,omitempty"`
	Superseded        bool             `json:"superseded,omitempty"`
	PendingTransition *pendingResponse `json:"pendingTransition,omitempty"`
}

func toPending(p transition.Pending) *pendingResponse {
	return &pendingResponse{
		ID:      p.ID.String(),
		FireAt:  p.FireAt,
		DelayMs: p.Delay.Milliseconds(),
	}
}

func (h *Handlers) respondPrediction(w http.ResponseWriter, res pipeline.Result, err error) {
	if err != nil {
		writeError(w, statusFor(err), pipeline.UserMessage(err))
		return
	}
	resp := predictResponse{
		Decision:   res.Decision,
		Scores:     res.Scores,
		ShortInput: res.ShortInput,
		Superseded: res.Superseded,
	}
	if !res.Superseded {
		resp.PendingTransition = toPending(res.Pending)
	}
	writeJSON(w, http.StatusOK, resp)
}

// PredictImage classifies a photo (POST /predict/image). The image is
// read from the multipart field "image" or from the raw body.
func (h *Handlers) PredictImage(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	var body io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("image")
		if err != nil {
			writeError(w, http.StatusBadRequest, "Please attach a photo in the \"image\" field.")
			return
		}
		defer file.Close()
		body = file
	}

	res, err := session.Runner.PredictImage(r.Context(), body)
	h.respondPrediction(w, res, err)
}

// PredictAudio classifies a WAV recording (POST /predict/audio).
func (h *Handlers) PredictAudio(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "That recording is too large.")
		return
	}

	res, err := session.Runner.PredictWAV(r.Context(), bytes.NewReader(data))
	h.respondPrediction(w, res, err)
}

// PredictFeatures classifies a feature file (POST /predict/features).
func (h *Handlers) PredictFeatures(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	res, err := session.Runner.PredictFeatures(r.Context(), http.MaxBytesReader(w, r.Body, maxTextBytes))
	h.respondPrediction(w, res, err)
}

type textRequest struct {
	Text string `json:"text"`
}

// PredictText resolves free text (POST /predict/text).
func (h *Handlers) PredictText(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())

	var req textRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTextBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Request body must be JSON with a \"text\" field.")
		return
	}

	res, err := session.Runner.PredictText(r.Context(), req.Text)
	h.respondPrediction(w, res, err)
}

// CancelTransition suppresses the pending transition (POST /transition/cancel).
func (h *Handlers) CancelTransition(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]bool{"canceled": session.Scheduler.Cancel()})
}

type navigateRequest struct {
	Screen string `json:"screen"`
}

type screenResponse struct {
	Screen            navigation.Screen `json:"screen"`
	PendingTransition *pendingResponse  `json:"pendingTransition,omitempty"`
}

// Navigate moves to a screen chosen by the user (POST /navigate). Any
// pending transition is canceled first, so "take another photo" is a
// navigate to camera.
func (h *Handlers) Navigate(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())

	var req navigateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTextBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Request body must be JSON with a \"screen\" field.")
		return
	}
	screen, err := navigation.ParseScreen(req.Screen)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unknown screen.")
		return
	}

	session.Scheduler.Cancel()
	if err := session.Machine.Transition(screen); err != nil {
		writeError(w, http.StatusBadRequest, "Unknown screen.")
		return
	}
	writeJSON(w, http.StatusOK, screenResponse{Screen: session.Machine.CurrentScreen()})
}

// Screen reports the current screen (GET /screen).
func (h *Handlers) Screen(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())

	resp := screenResponse{Screen: session.Machine.CurrentScreen()}
	if p, ok := session.Scheduler.Pending(); ok {
		resp.PendingTransition = toPending(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

type songResponse struct {
	Title string      `json:"title"`
	Liked bool        `json:"liked"`
	Link  *media.Link `json:"link,omitempty"`
}

type experienceResponse struct {
	Mood   mood.Label        `json:"mood"`
	Screen navigation.Screen `json:"screen"`
	Songs  []songResponse    `json:"songs"`
}

// Experience lists the songs for a mood (GET /experiences/{mood}). Moods
// without their own experience get the fallback's songs. With ?links=1
// each song carries a playable link when one is found.
func (h *Handlers) Experience(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())

	label, ok := mood.Parse(chi.URLParam(r, "mood"))
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown mood.")
		return
	}
	if h.playlists == nil {
		writeError(w, http.StatusServiceUnavailable, "Playlists are not available.")
		return
	}

	screen := navigation.ExperienceFor(label, h.fallback)
	shown, _ := screen.Experience()

	songs, err := h.playlists.SongsForMood(r.Context(), shown)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		h.internalError(w, "loading playlist", err)
		return
	}

	liked := map[string]bool{}
	if h.likes != nil && len(songs) > 0 {
		liked, err = h.likes.LikedAmong(r.Context(), session.UserID(), songs)
		if err != nil {
			h.internalError(w, "loading likes", err)
			return
		}
	}

	resp := experienceResponse{Mood: shown, Screen: screen, Songs: make([]songResponse, len(songs))}
	for i, song := range songs {
		resp.Songs[i] = songResponse{Title: song, Liked: liked[song]}
	}

	if r.URL.Query().Get("links") == "1" && h.links != nil && len(songs) > 0 {
		results, err := h.links.FindAll(r.Context(), songs)
		if err != nil {
			h.logger.Warn("resolving links incomplete", zap.Error(err))
		}
		for i, res := range results {
			if res.Err != nil {
				h.logger.Debug("no link for song", zap.String("song", res.Song), zap.Error(res.Err))
				continue
			}
			link := res.Link
			resp.Songs[i].Link = &link
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// LikeSong adds a song to the listener's likes (POST /likes/{song}).
func (h *Handlers) LikeSong(w http.ResponseWriter, r *http.Request) {
	h.changeLike(w, r, true)
}

// UnlikeSong removes a song from the listener's likes (DELETE /likes/{song}).
func (h *Handlers) UnlikeSong(w http.ResponseWriter, r *http.Request) {
	h.changeLike(w, r, false)
}

func (h *Handlers) changeLike(w http.ResponseWriter, r *http.Request, like bool) {
	session := sessionFrom(r.Context())
	if h.likes == nil {
		writeError(w, http.StatusServiceUnavailable, "Likes are not available.")
		return
	}

	song := strings.TrimSpace(chi.URLParam(r, "song"))
	if song == "" {
		writeError(w, http.StatusBadRequest, "Missing song.")
		return
	}

	var err error
	if like {
		err = h.likes.Like(r.Context(), session.UserID(), song)
	} else {
		err = h.likes.Unlike(r.Context(), session.UserID(), song)
	}
	if err != nil {
		h.internalError(w, "updating like", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LikedSongs lists the listener's liked songs (GET /likes).
func (h *Handlers) LikedSongs(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	if h.likes == nil {
		writeError(w, http.StatusServiceUnavailable, "Likes are not available.")
		return
	}

	likes, err := h.likes.ForUser(r.Context(), session.UserID())
	if err != nil {
		h.internalError(w, "loading likes", err)
		return
	}

	songs := make([]string, len(likes))
	for i, l := range likes {
		songs[i] = l.Song
	}
	writeJSON(w, http.StatusOK, map[string][]string{"songs": songs})
}

func (h *Handlers) internalError(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
}

// statusFor maps a prediction error to an HTTP status.
func statusFor(err error) int {
	switch pipeline.Classify(err) {
	case pipeline.KindInput:
		if errors.Is(err, pipeline.ErrEmptyText) {
			return http.StatusBadRequest
		}
		return http.StatusUnprocessableEntity
	case pipeline.KindUnavailable:
		return http.StatusServiceUnavailable
	case pipeline.KindCanceled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
