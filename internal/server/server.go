// Package server exposes rendered schema remarks over HTTP.
//
// The API is read-only JSON under /api. With watching enabled the server
// reloads the catalogue when its file changes and announces each reload on
// the /api/events server-sent event stream.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/leapstack-labs/schemadoc/internal/engine"
	"github.com/leapstack-labs/schemadoc/internal/server/notifier"
	"golang.org/x/sync/errgroup"
)

// reloadDebounce coalesces the bursts of events editors produce on save.
const reloadDebounce = 100 * time.Millisecond

// Server is the HTTP API server.
type Server struct {
	engine      *engine.Engine
	host        string
	port        int
	watch       bool
	lintScalars []string
	logger      *slog.Logger
	notifier    *notifier.Notifier

	// reloadMu keeps reloads, and the events announcing them, in order.
	reloadMu sync.Mutex
}

// Config holds configuration for the API server.
type Config struct {
	Engine *engine.Engine
	Host   string
	Port   int
	// Watch reloads the catalogue when its file changes.
	Watch bool
	// LintScalars are extra scalar names accepted by /api/lint.
	LintScalars []string
	Logger      *slog.Logger
}

// New creates a new API server instance.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		engine:      cfg.Engine,
		host:        cfg.Host,
		port:        cfg.Port,
		watch:       cfg.Watch,
		lintScalars: cfg.LintScalars,
		logger:      logger,
		notifier:    notifier.New(),
	}
}

// Notifier returns the server's reload notifier.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		s.logRequests,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/versions", s.handleVersions)
		r.Get("/elements", s.handleElements)
		r.Get("/elements/{anchor}", s.handleElement)
		r.Get("/changes", s.handleChanges)
		r.Get("/render", s.handleRender)
		r.Get("/guide", s.handleGuide)
		r.Get("/lint", s.handleLint)
		r.Get("/events", s.handleEvents)
	})

	return r
}

// Serve starts the API server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := net.JoinHostPort(s.host, fmt.Sprintf("%d", s.port))
	s.logger.Info("starting API server", "addr", "http://"+addr)

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch {
		eg.Go(func() error {
			return s.watchCatalogue(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down API server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// watchCatalogue reloads the engine whenever the catalogue file changes.
// The directory is watched rather than the file so that editors which save
// by rename keep triggering reloads.
func (s *Server) watchCatalogue(ctx context.Context) error {
	path := s.engine.CataloguePath()
	if path == "" {
		s.logger.Warn("catalogue watching disabled: using the embedded catalogue")
		return nil
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		s.logger.Error("failed to watch catalogue directory", "dir", filepath.Dir(path), "error", err)
		// Don't fail - continue without watching
		return nil
	}
	s.logger.Debug("watching catalogue", "path", path)

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(reloadDebounce, s.reload)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}

// reload reloads the catalogue and notifies event subscribers. Reloads
// fired by overlapping debounce timers run one at a time.
func (s *Server) reload() {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	ev := notifier.Event{Catalogue: s.engine.CataloguePath(), At: time.Now()}
	if err := s.engine.Reload(); err != nil {
		ev.Kind = notifier.KindReloadFailed
		ev.Error = err.Error()
	} else {
		ev.Kind = notifier.KindReloaded
		ev.Versions = s.engine.Catalogue().Order.Len()
	}
	s.notifier.Broadcast(ev)
}

// logRequests logs each request through the server's structured logger.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
