package inspect

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vango-dev/bindery/pkg/binding"
)

// Config configures a Server.
type Config struct {
	// Addr is the listen address for ListenAndServe.
	Addr string

	// Gatherer backs /metrics. Default: prometheus.DefaultGatherer
	Gatherer prometheus.Gatherer

	Logger *slog.Logger

	// WriteTimeout bounds each websocket write (default: 5s).
	WriteTimeout time.Duration

	// Buffer is the per-subscriber and inbound queue length (default: 64).
	Buffer int
}

// Server is the inspector.
type Server struct {
	config   Config
	logger   *slog.Logger
	router   chi.Router
	upgrader websocket.Upgrader
	hub      *hub

	frames  chan binding.FrameStats
	latest  atomic.Pointer[binding.FrameStats]
	dropped atomic.Uint64
}

// New creates an inspector server.
func New(config Config) *Server {
	if config.Gatherer == nil {
		config.Gatherer = prometheus.DefaultGatherer
	}
	if config.Logger == nil {
		config.Logger = slog.Default().With("component", "inspect")
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}
	if config.Buffer <= 0 {
		config.Buffer = 64
	}

	s := &Server{
		config: config,
		logger: config.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		hub:    newHub(config.Buffer),
		frames: make(chan binding.FrameStats, config.Buffer),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/frames/latest", s.handleLatest)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(config.Gatherer, promhttp.HandlerOpts{}))
	r.Get("/ws/frames", s.handleStream)
	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Publish queues a frame snapshot. It never blocks; when the queue is full
// the frame is dropped. It is meant to be a binding.OnFrame hook.
func (s *Server) Publish(stats binding.FrameStats) {
	select {
	case s.frames <- stats:
	default:
		s.dropped.Add(1)
	}
}

// Dropped returns how many published frames were discarded.
func (s *Server) Dropped() uint64 {
	return s.dropped.Load()
}

// Latest returns the most recent frame consumed by Run.
func (s *Server) Latest() (binding.FrameStats, bool) {
	if p := s.latest.Load(); p != nil {
		return *p, true
	}
	return binding.FrameStats{}, false
}

// Run consumes published frames until ctx is done, then disconnects all
// stream subscribers.
func (s *Server) Run(ctx context.Context) error {
	defer s.hub.closeAll()
	for {
		select {
		case <-ctx.Done():
			return nil
		case stats := <-s.frames:
			s.latest.Store(&stats)
			s.hub.broadcast(stats)
		}
	}
}

// ListenAndServe serves on Config.Addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("inspector listening", "addr", s.config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var frame uint64
	if stats, ok := s.Latest(); ok {
		frame = stats.Frame
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"frame":       frame,
		"subscribers": s.hub.count(),
		"dropped":     s.Dropped(),
	})
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	stats, ok := s.Latest()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ch := s.hub.subscribe()
	defer s.hub.unsubscribe(ch)

	// The client never sends; reading only detects disconnects.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case stats, ok := <-ch:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := conn.WriteJSON(stats); err != nil {
				s.logger.Debug("frame stream closed", "error", err)
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
