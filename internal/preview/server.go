// Package preview serves a build directory together with a freshly built
// service worker, so the worker can be tried in a browser before deploying.
package preview

import (
	"context"
	"log/slog"
	"net/http"
	"path"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/precache/internal/build"
	"github.com/vango-dev/precache/internal/errors"
	"github.com/vango-dev/precache/pkg/manifest"
)

// ManifestPath is where the current manifest is served.
const ManifestPath = "/precache-manifest.json"

// Source produces the worker and manifest. It is called on every worker or
// manifest request so edits to the build output show up on reload.
type Source func(ctx context.Context) (*build.Result, error)

// Config configures the preview server.
type Config struct {
	// Address is the listen address (default: "localhost:8080").
	Address string

	// Dir is the directory served at "/".
	Dir string

	// WorkerPath is the URL path of the service worker (default: "/sw.js").
	WorkerPath string

	// Gatherer backs /metrics (default: prometheus.DefaultGatherer).
	Gatherer prometheus.Gatherer

	// ShutdownTimeout bounds graceful shutdown (default: 5s).
	ShutdownTimeout time.Duration

	// Watch rebuilds when files change and reloads connected pages.
	Watch bool

	// WatchPaths are the files and directories watched (default: Dir).
	WatchPaths []string

	// WatchIgnore are doublestar patterns of files the watcher skips.
	WatchIgnore []string

	// PollInterval is the watcher polling interval (default: 500ms).
	PollInterval time.Duration
}

// Server is the preview HTTP server.
type Server struct {
	config     Config
	source     Source
	logger     *slog.Logger
	router     chi.Router
	hub        *Hub
	httpServer *http.Server
}

// New creates a preview server. A nil logger uses slog.Default().
func New(config Config, source Source, logger *slog.Logger) *Server {
	if config.Address == "" {
		config.Address = "localhost:8080"
	}
	if config.WorkerPath == "" {
		config.WorkerPath = "/sw.js"
	}
	config.WorkerPath = path.Clean("/" + config.WorkerPath)
	if config.Gatherer == nil {
		config.Gatherer = prometheus.DefaultGatherer
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config: config,
		source: source,
		logger: logger.With("component", "preview"),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Get(config.WorkerPath, s.handleWorker)
	r.Get(ManifestPath, s.handleManifest)
	r.Handle("/metrics", promhttp.HandlerFor(config.Gatherer, promhttp.HandlerOpts{}))
	if config.Watch {
		s.hub = NewHub()
		r.Handle(EventsPath, s.hub)
		r.Get(LiveScriptPath, s.handleLiveScript)
		r.Handle("/*", s.injectLiveScript(http.FileServer(http.Dir(config.Dir))))
	} else {
		r.Handle("/*", http.FileServer(http.Dir(config.Dir)))
	}
	s.router = r

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Address returns the listen address.
func (s *Server) Address() string {
	return s.config.Address
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.config.Address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer func() {
		stopWatch()
		wg.Wait()
	}()
	if s.hub != nil {
		defer s.hub.Close()
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.watch(watchCtx)
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("preview server starting", "address", s.config.Address, "worker", s.config.WorkerPath)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

func (s *Server) handleWorker(w http.ResponseWriter, r *http.Request) {
	result, ok := s.build(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Service-Worker-Allowed", "/")
	w.Write([]byte(result.Script))
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	result, ok := s.build(w, r)
	if !ok {
		return
	}
	data, err := manifest.Marshal(result.Manifest)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}

func (s *Server) build(w http.ResponseWriter, r *http.Request) (*build.Result, bool) {
	result, err := s.source(r.Context())
	if err != nil {
		s.logger.Error("build failed", "path", r.URL.Path, "error", err)
		msg := err.Error()
		if pe, ok := errors.As(err); ok {
			msg = pe.FormatCompact()
		}
		http.Error(w, msg, http.StatusInternalServerError)
		return nil, false
	}
	for _, warning := range result.Warnings {
		s.logger.Warn(warning)
	}
	return result, true
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}
