package web

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// DefaultAddr is the default server address.
const DefaultAddr = "127.0.0.1:8080"

// Deps holds the server's optional collaborators.
type Deps struct {
	Playlists Playlists
	Likes     Likes
	Users     Users
	Links     Links
	Logger    *zap.Logger
}

// Server is the HTTP server for the API.
type Server struct {
	router   chi.Router
	server   *http.Server
	sessions *SessionStore
	handlers *Handlers
	logger   *zap.Logger
}

// NewServer creates a new API server listening on addr.
func NewServer(addr string, sessions *SessionStore, deps Deps) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	handlers := NewHandlers(sessions, deps)

	s := &Server{
		router:   chi.NewRouter(),
		sessions: sessions,
		handlers: handlers,
		logger:   handlers.logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	// No WriteTimeout: the event stream is long-lived.
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware for the router.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
}

// setupRoutes configures routes for the API.
func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	s.router.Post("/sessions", h.CreateSession)

	s.router.Group(func(r chi.Router) {
		r.Use(h.requireSession)

		r.Get("/events", h.Events)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Compress(5))

			r.Delete("/sessions", h.DeleteSession)

			r.Post("/predict/image", h.PredictImage)
			r.Post("/predict/audio", h.PredictAudio)
			r.Post("/predict/features", h.PredictFeatures)
			r.Post("/predict/text", h.PredictText)

			r.Post("/transition/cancel", h.CancelTransition)
			r.Post("/navigate", h.Navigate)
			r.Get("/screen", h.Screen)

			r.Get("/experiences/{mood}", h.Experience)
			r.Get("/likes", h.LikedSongs)
			r.Post("/likes/{song}", h.LikeSong)
			r.Delete("/likes/{song}", h.UnlikeSong)
		})
	})
}

// requestLogger logs one line per request.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("requestID", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)))
		})
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting server", zap.String("addr", "http://"+s.server.Addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server and cancels all pending
// transitions.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.sessions.CloseAll()
	return s.server.Shutdown(ctx)
}

// Run starts the server and handles graceful shutdown on interrupt signals.
func (s *Server) Run() error {
	// Channel to receive shutdown signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt or error
	select {
	case err := <-errCh:
		return err
	case <-stop:
		s.logger.Info("shutting down server")
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}
