// Package render composes the version order, remark resolution, placeholder
// expansion and change classification into finished per-element HTML.
//
// A Renderer holds only immutable inputs. Rendering one element never depends
// on another, so RenderAll fans elements out across a bounded worker pool.
// The optional memo cache is the only shared mutable state.
package render

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/leapstack-labs/schemadoc/internal/catalogue"
	"github.com/leapstack-labs/schemadoc/internal/classify"
	"github.com/leapstack-labs/schemadoc/internal/placeholder"
	"github.com/leapstack-labs/schemadoc/internal/remark"
	"github.com/leapstack-labs/schemadoc/internal/schema"
	"github.com/leapstack-labs/schemadoc/internal/version"
)

// Part is the expanded text of one remark family.
type Part struct {
	Family catalogue.Family `json:"family"`
	HTML   string           `json:"html"`
}

// Fragment is the rendered remark of one element for one window.
type Fragment struct {
	Element  schema.Element    `json:"element"`
	Window   version.Range     `json:"window"`
	Category classify.Category `json:"category"`
	// HTML joins the parts with single spaces.
	HTML  string `json:"html"`
	Parts []Part `json:"parts"`
	// NeedsRemark is set when any rendered family had no remark yet.
	NeedsRemark bool `json:"needs_remark"`
}

// Config holds renderer configuration.
type Config struct {
	// Catalogue supplies the version order, remarks and renames.
	Catalogue *catalogue.Catalogue
	// Index answers existence and definition questions. Required.
	Index schema.Index
	// Scalars are extra document-level scalars, merged over the ones the
	// renderer derives for each window.
	Scalars map[string]string
	// Now is the clock behind DATE and TIME (optional, time.Now if nil).
	Now func() time.Time
	// Memoize caches fragments by element and window.
	Memoize bool
	// Workers bounds RenderAll concurrency (optional, 4 if zero).
	Workers int
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// DefaultWorkers is the RenderAll concurrency when Config.Workers is unset.
const DefaultWorkers = 4

// Renderer renders remarks for schema elements.
type Renderer struct {
	cat     *catalogue.Catalogue
	order   *version.Order
	renames *placeholder.Registry
	index   schema.Index
	// named follows elements across renames.
	named   schema.Index
	scalars map[string]string
	now     func() time.Time
	workers int
	logger  *slog.Logger

	expandersMu sync.Mutex
	expanders   map[version.Range]*placeholder.Expander

	memoMu sync.Mutex
	memo   map[memoKey]Fragment
}

type memoKey struct {
	el     schema.Element
	window version.Range
}

// New creates a renderer.
func New(cfg Config) (*Renderer, error) {
	if cfg.Catalogue == nil {
		return nil, errors.New("render: catalogue is required")
	}
	if cfg.Index == nil {
		return nil, errors.New("render: schema index is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	renames := cfg.Catalogue.Renames
	if renames == nil {
		renames = placeholder.EmptyRegistry(cfg.Catalogue.Order)
	}

	r := &Renderer{
		cat:       cfg.Catalogue,
		order:     cfg.Catalogue.Order,
		renames:   renames,
		index:     cfg.Index,
		named:     renames.Index(cfg.Index),
		scalars:   cfg.Scalars,
		now:       now,
		workers:   workers,
		logger:    logger,
		expanders: make(map[version.Range]*placeholder.Expander),
	}
	if cfg.Memoize {
		r.memo = make(map[memoKey]Fragment)
	}
	return r, nil
}

// Catalogue returns the catalogue the renderer reads.
func (r *Renderer) Catalogue() *catalogue.Catalogue { return r.cat }

// Render renders el for window. Open window bounds are closed against the
// version order. el may be named by any name from its rename history; the
// fragment carries its most recent name. Fatal failures are returned as
// *Error.
func (r *Renderer) Render(el schema.Element, window version.Range) (Fragment, error) {
	el = r.renames.Canonical(el)
	w := r.order.Close(window)
	if err := r.order.Validate(w); err != nil {
		return Fragment{}, wrap(el, catalogue.Base, window, err)
	}

	key := memoKey{el: el, window: w}
	if r.memo != nil {
		r.memoMu.Lock()
		f, ok := r.memo[key]
		r.memoMu.Unlock()
		if ok {
			return f, nil
		}
	}

	f, err := r.render(el, w)
	if err != nil {
		return Fragment{}, err
	}

	if r.memo != nil {
		r.memoMu.Lock()
		r.memo[key] = f
		r.memoMu.Unlock()
	}
	return f, nil
}

func (r *Renderer) render(el schema.Element, w version.Range) (Fragment, error) {
	exp, err := r.Expander(w)
	if err != nil {
		return Fragment{}, wrap(el, catalogue.Base, w, err)
	}

	base, _ := r.cat.Remark(el, catalogue.Base)
	remarkAt := func(v version.Version) (string, error) {
		return remark.TextAt(r.order, base, v)
	}
	category, err := classify.Classify(r.order, el, w, r.named, remarkAt)
	if err != nil {
		return Fragment{}, wrap(el, catalogue.Base, w, err)
	}

	added, removed := category == classify.Added, category == classify.Removed
	if el.Kind != schema.KindTable {
		a, rm, err := classify.ChangedWithin(r.order, el, w, r.named)
		if err != nil {
			return Fragment{}, wrap(el, catalogue.Base, w, err)
		}
		added, removed = added || a, removed || rm
	}

	families := []catalogue.Family{catalogue.Base}
	if added {
		families = append(families, catalogue.AddedFamily)
	}
	if removed {
		families = append(families, catalogue.RemovedFamily)
	}

	f := Fragment{Element: el, Window: w, Category: category}
	html := make([]string, 0, len(families))
	for _, fam := range families {
		e := base
		if fam != catalogue.Base {
			var ok bool
			if e, ok = r.cat.Remark(el, fam); !ok {
				continue
			}
		}

		res, err := remark.Resolve(r.order, e, w)
		if err != nil {
			return Fragment{}, wrap(el, fam, w, err)
		}
		text, err := exp.ExpandResolution(res, placeholder.Scope{
			Window:   w,
			Category: category,
			Source:   el.Anchor() + ":" + fam.String(),
		})
		if err != nil {
			return Fragment{}, wrap(el, fam, w, err)
		}

		if e.IsMissing() {
			f.NeedsRemark = true
		}
		f.Parts = append(f.Parts, Part{Family: fam, HTML: text})
		if text != "" {
			html = append(html, text)
		}
	}
	f.HTML = strings.Join(html, " ")

	r.logger.Debug("rendered element",
		slog.String("element", el.Anchor()),
		slog.String("window", w.String()),
		slog.String("category", category.String()),
		slog.Int("parts", len(f.Parts)))

	return f, nil
}

// Expander returns the placeholder expander for window, with the document
// scalars of that window installed. Expanders are cached per window.
func (r *Renderer) Expander(window version.Range) (*placeholder.Expander, error) {
	w := r.order.Close(window)

	r.expandersMu.Lock()
	defer r.expandersMu.Unlock()

	if e, ok := r.expanders[w]; ok {
		return e, nil
	}

	doc, err := r.DocumentScalars(w)
	if err != nil {
		return nil, err
	}
	for k, v := range r.scalars {
		doc[k] = v
	}

	e := placeholder.NewExpander(r.order, r.renames, r.index,
		placeholder.WithScalars(doc),
		placeholder.WithClock(r.now),
		placeholder.WithLogger(r.logger))
	r.expanders[w] = e
	return e, nil
}

// Reset drops cached fragments and expanders.
func (r *Renderer) Reset() {
	r.expandersMu.Lock()
	r.expanders = make(map[version.Range]*placeholder.Expander)
	r.expandersMu.Unlock()

	if r.memo != nil {
		r.memoMu.Lock()
		r.memo = make(map[memoKey]Fragment)
		r.memoMu.Unlock()
	}
}
