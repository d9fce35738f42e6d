package engine

import (
	"fmt"

	"github.com/leapstack-labs/schemadoc/internal/catalogue"
	"github.com/leapstack-labs/schemadoc/internal/classify"
	"github.com/leapstack-labs/schemadoc/internal/remark"
	"github.com/leapstack-labs/schemadoc/internal/schema"
	"github.com/leapstack-labs/schemadoc/internal/version"
)

// ChangesOptions filters Changes.
type ChangesOptions struct {
	// Kind, when set, restricts the report to one element kind.
	Kind *schema.Kind
	// All keeps unchanged elements in the report.
	All bool
}

// Change is one classified element.
type Change struct {
	Element  schema.Element    `json:"element"`
	Category classify.Category `json:"category"`
}

// ChangeReport classifies the elements of a window.
type ChangeReport struct {
	Window  version.Range  `json:"window"`
	Changes []Change       `json:"changes"`
	Summary map[string]int `json:"summary"`
}

// Changes classifies every element the schema index knows in window. A
// renamed element is reported once, under its most recent name. An element
// is changed when its definition or its unexpanded base remark differs
// between the two ends of the window.
func (e *Engine) Changes(window version.Range, opts ChangesOptions) (*ChangeReport, error) {
	e.mu.RLock()
	cat, index := e.st.cat, e.st.index
	e.mu.RUnlock()
	if index == nil {
		return nil, ErrNoSchema
	}

	window = cat.Order.Close(window)
	els, err := index.ElementsIn(window)
	if err != nil {
		return nil, err
	}
	els = cat.Renames.Elements(els)
	named := cat.Renames.Index(index)

	out := &ChangeReport{Window: window, Changes: []Change{}, Summary: make(map[string]int)}
	for _, el := range els {
		if opts.Kind != nil && el.Kind != *opts.Kind {
			continue
		}
		entry, _ := cat.Remark(el, catalogue.Base)
		c, err := classify.Classify(cat.Order, el, window, named, func(v version.Version) (string, error) {
			return remark.TextAt(cat.Order, entry, v)
		})
		if err != nil {
			return nil, fmt.Errorf("classify %s: %w", el.Anchor(), err)
		}
		out.Summary[c.String()]++
		if c == classify.Unchanged && !opts.All {
			continue
		}
		out.Changes = append(out.Changes, Change{Element: el, Category: c})
	}

	e.logger.Debug("classified window", "window", window.String(), "elements", len(els), "reported", len(out.Changes))
	return out, nil
}
