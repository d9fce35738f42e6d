// Package engine loads a schemadoc project: the remark catalogue, the schema
// snapshot history and the renderer built over them.
//
// The CLI and the HTTP server share one Engine. Reload swaps in a freshly
// parsed catalogue without disturbing renders already in flight.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/leapstack-labs/schemadoc/internal/catalogue"
	"github.com/leapstack-labs/schemadoc/internal/render"
	"github.com/leapstack-labs/schemadoc/internal/schema"
)

// ErrNoSchema is returned by operations that need schema snapshots when none
// are configured.
var ErrNoSchema = errors.New("no schema snapshots configured (set schema in schemadoc.yaml or pass --schema)")

// Config holds engine configuration.
type Config struct {
	// CataloguePath is the remark catalogue; empty selects the embedded
	// Bugzilla catalogue.
	CataloguePath string
	// SchemaPath is a snapshot YAML file or a SQLite snapshot store
	// (optional).
	SchemaPath string
	// Scalars are extra document scalars passed to the renderer.
	Scalars map[string]string
	// Workers bounds RenderAll concurrency.
	Workers int
	// Memoize caches rendered fragments.
	Memoize bool
	// Now is the clock behind DATE and TIME (optional).
	Now func() time.Time
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// state is everything derived from one catalogue load.
type state struct {
	cat      *catalogue.Catalogue
	index    *schema.Set
	renderer *render.Renderer
}

// Engine holds a loaded project.
type Engine struct {
	cfg    Config
	logger *slog.Logger

	// snaps survive catalogue reloads; only their indexing depends on the
	// catalogue.
	snaps []*schema.Snapshot

	mu sync.RWMutex
	st state
}

// IsStorePath reports whether path names a SQLite snapshot store rather than
// a snapshot YAML file.
func IsStorePath(path string) bool {
	p := strings.ToLower(path)
	return strings.HasSuffix(p, ".db") || strings.HasSuffix(p, ".sqlite") || strings.HasSuffix(p, ".sqlite3")
}

// New loads the catalogue and, when configured, the schema snapshots.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	e := &Engine{cfg: cfg, logger: logger}

	if cfg.SchemaPath != "" {
		snaps, err := LoadSnapshots(ctx, cfg.SchemaPath, logger)
		if err != nil {
			return nil, err
		}
		e.snaps = snaps
	}

	cat, err := catalogue.Load(cfg.CataloguePath)
	if err != nil {
		return nil, err
	}
	st, err := e.build(cat)
	if err != nil {
		return nil, err
	}
	e.st = st

	logger.Debug("engine ready",
		"catalogue", cat.Source,
		"versions", cat.Order.Len(),
		"snapshots", len(e.snaps))
	return e, nil
}

// build indexes the snapshots against cat and creates a renderer.
func (e *Engine) build(cat *catalogue.Catalogue) (state, error) {
	st := state{cat: cat}
	if e.cfg.SchemaPath == "" {
		return st, nil
	}

	index, err := schema.NewSet(cat.Order, cat.SchemaVersions, e.snaps...)
	if err != nil {
		return state{}, fmt.Errorf("failed to index snapshots: %w", err)
	}
	r, err := render.New(render.Config{
		Catalogue: cat,
		Index:     index,
		Scalars:   e.cfg.Scalars,
		Now:       e.cfg.Now,
		Memoize:   e.cfg.Memoize,
		Workers:   e.cfg.Workers,
		Logger:    e.logger,
	})
	if err != nil {
		return state{}, err
	}
	st.index = index
	st.renderer = r
	return st, nil
}

// Catalogue returns the current catalogue.
func (e *Engine) Catalogue() *catalogue.Catalogue {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.st.cat
}

// Index returns the schema index, or ErrNoSchema.
func (e *Engine) Index() (*schema.Set, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.st.index == nil {
		return nil, ErrNoSchema
	}
	return e.st.index, nil
}

// Renderer returns the current renderer, or ErrNoSchema.
func (e *Engine) Renderer() (*render.Renderer, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.st.renderer == nil {
		return nil, ErrNoSchema
	}
	return e.st.renderer, nil
}

// HasSchema reports whether schema snapshots are loaded.
func (e *Engine) HasSchema() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.st.index != nil
}

// CataloguePath returns the configured catalogue path; empty means the
// embedded catalogue.
func (e *Engine) CataloguePath() string { return e.cfg.CataloguePath }

// Reload rereads the catalogue from disk and rebuilds the index and
// renderer. On error the previous state stays in place.
func (e *Engine) Reload() error {
	cat, err := catalogue.Load(e.cfg.CataloguePath)
	if err != nil {
		e.logger.Warn("catalogue reload failed", "path", e.cfg.CataloguePath, "error", err)
		return err
	}
	st, err := e.build(cat)
	if err != nil {
		e.logger.Warn("catalogue reload failed", "path", e.cfg.CataloguePath, "error", err)
		return err
	}

	e.mu.Lock()
	e.st = st
	e.mu.Unlock()

	e.logger.Info("catalogue reloaded", "path", e.cfg.CataloguePath, "versions", cat.Order.Len())
	return nil
}
