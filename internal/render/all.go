package render

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/schemadoc/internal/catalogue"
	"github.com/leapstack-labs/schemadoc/internal/schema"
	"github.com/leapstack-labs/schemadoc/internal/version"
	"golang.org/x/sync/errgroup"
)

// ElementLister is implemented by schema indexes that can enumerate their
// elements, such as *schema.Set.
type ElementLister interface {
	ElementsIn(window version.Range) ([]schema.Element, error)
}

// RenderAll renders els for window on at most Config.Workers goroutines.
// Results keep the order of els. The first fatal error stops further
// elements from being started and is returned.
func (r *Renderer) RenderAll(ctx context.Context, els []schema.Element, window version.Range) ([]Fragment, error) {
	out := make([]Fragment, len(els))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, el := range els {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f, err := r.Render(el, window)
			if err != nil {
				return err
			}
			out[i] = f
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		r.logger.Error("render failed", slog.String("window", window.String()), slog.String("error", err.Error()))
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.logger.Info("rendered elements", slog.Int("count", len(out)), slog.String("window", window.String()))
	return out, nil
}

// Elements returns the elements to document for window, each under its
// most recent name. When the index can enumerate its elements those are
// used; otherwise every element with a base remark in the catalogue.
func (r *Renderer) Elements(window version.Range) ([]schema.Element, error) {
	if l, ok := r.index.(ElementLister); ok {
		els, err := l.ElementsIn(window)
		if err != nil {
			return nil, err
		}
		return r.renames.Elements(els), nil
	}

	var els []schema.Element
	for _, k := range []schema.Kind{schema.KindTable, schema.KindColumn, schema.KindIndex} {
		els = append(els, r.cat.Elements(k, catalogue.Base)...)
	}
	return r.renames.Elements(els), nil
}

// RenderWindow renders every element of window.
func (r *Renderer) RenderWindow(ctx context.Context, window version.Range) ([]Fragment, error) {
	els, err := r.Elements(window)
	if err != nil {
		return nil, err
	}
	return r.RenderAll(ctx, els, window)
}
