package placeholder

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/leapstack-labs/schemadoc/internal/classify"
	"github.com/leapstack-labs/schemadoc/internal/remark"
	"github.com/leapstack-labs/schemadoc/internal/schema"
	"github.com/leapstack-labs/schemadoc/internal/version"
)

// Built-in scalar names.
const (
	ScalarVersionString = "VERSION_STRING"
	ScalarVersionColour = "VERSION_COLOUR"
	ScalarFirstVersion  = "FIRST_VERSION"
	ScalarLastVersion   = "LAST_VERSION"
	ScalarDate          = "DATE"
	ScalarTime          = "TIME"
)

// Layouts for the DATE and TIME scalars.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "2006-01-02 15:04:05 MST"
)

// BuiltinScalars lists the scalar names the expander always knows.
var BuiltinScalars = []string{
	ScalarVersionString, ScalarVersionColour,
	ScalarFirstVersion, ScalarLastVersion,
	ScalarDate, ScalarTime,
}

// Scope is the context of one expansion.
type Scope struct {
	// Window is the requested version span. Open bounds are closed against
	// the version order before use.
	Window version.Range
	// Category is the classification of the element being rendered. It
	// feeds VERSION_COLOUR outside versioned fragments.
	Category classify.Category
	// Source names the text in error positions.
	Source string
}

// Expander rewrites parsed remark text into HTML. It holds no mutable state
// and is safe for concurrent use.
type Expander struct {
	order   *version.Order
	renames *Registry
	index   schema.Index
	scalars map[string]string
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures an Expander.
type Option func(*Expander)

// WithScalars supplies extra document-level scalars such as NOTATION_GUIDE.
// Their values are inserted verbatim.
func WithScalars(scalars map[string]string) Option {
	return func(e *Expander) {
		for k, v := range scalars {
			e.scalars[k] = v
		}
	}
}

// WithClock sets the clock used for DATE and TIME.
func WithClock(now func() time.Time) Option {
	return func(e *Expander) { e.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Expander) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExpander creates an expander. A nil renames registry means no renames;
// a nil index disables the existence check on references.
func NewExpander(order *version.Order, renames *Registry, index schema.Index, opts ...Option) *Expander {
	if renames == nil {
		renames = EmptyRegistry(order)
	}
	e := &Expander{
		order:   order,
		renames: renames,
		index:   index,
		scalars: make(map[string]string),
		now:     time.Now,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand parses text and expands it outside any versioned fragment.
func (e *Expander) Expand(text string, sc Scope) (string, error) {
	t, err := Parse(text, sc.Source)
	if err != nil {
		return "", err
	}
	return e.ExpandTemplate(t, sc, nil)
}

// ExpandResolution expands each fragment of res in turn, giving
// VERSION_STRING and VERSION_COLOUR the fragment's own range. A missing
// remark yields remark.MissingMarker and a TODO remark is returned as is.
func (e *Expander) ExpandResolution(res remark.Resolution, sc Scope) (string, error) {
	if res.Kind != remark.Text {
		return res.Text(), nil
	}

	var sb strings.Builder
	for i := range res.Fragments {
		frag := &res.Fragments[i]
		t, err := Parse(frag.Text, sc.Source)
		if err != nil {
			return "", err
		}
		if !frag.Versioned {
			frag = nil
		}
		out, err := e.ExpandTemplate(t, sc, frag)
		if err != nil {
			return "", err
		}
		sb.WriteString(out)
	}
	return sb.String(), nil
}

// ExpandTemplate expands t in a single pass. frag is the versioned fragment
// t came from, or nil. Substituted values are never rescanned.
func (e *Expander) ExpandTemplate(t *Template, sc Scope, frag *remark.Fragment) (string, error) {
	window := e.order.Close(sc.Window)
	if err := e.order.Validate(window); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, n := range t.Nodes {
		switch n := n.(type) {
		case *TextNode:
			sb.WriteString(n.Text)
		case *ScalarNode:
			v, err := e.scalar(n, window, sc, frag)
			if err != nil {
				return "", err
			}
			sb.WriteString(v)
		case *RefNode:
			v, err := e.reference(n, window)
			if err != nil {
				return "", err
			}
			sb.WriteString(v)
		}
	}
	return sb.String(), nil
}

func (e *Expander) scalar(n *ScalarNode, window version.Range, sc Scope, frag *remark.Fragment) (string, error) {
	switch n.Name {
	case ScalarVersionString:
		if frag == nil {
			return "", nil
		}
		s, err := VersionString(e.order, frag.Range, window)
		if err != nil {
			return "", WrapExpandError(n.Pos(), "VERSION_STRING", err)
		}
		return s, nil
	case ScalarVersionColour:
		if frag == nil {
			return sc.Category.Attr(), nil
		}
		c, err := classify.Range(e.order, frag.Range, window)
		if err != nil {
			return "", WrapExpandError(n.Pos(), "VERSION_COLOUR", err)
		}
		return c.Attr(), nil
	case ScalarFirstVersion:
		return string(window.Lo), nil
	case ScalarLastVersion:
		return string(window.Hi), nil
	case ScalarDate:
		return e.now().Format(DateLayout), nil
	case ScalarTime:
		return e.now().Format(TimeLayout), nil
	}

	if v, ok := e.scalars[n.Name]; ok {
		return v, nil
	}
	return "", NewUnknownPlaceholderError(n.Pos(), n.Name)
}

// VersionString describes r relative to window: "From lo on, ",
// "Through hi, " or "From lo to hi, ". Bounds at or beyond the window edges
// are left out, so a range covering the whole window yields "".
func VersionString(order *version.Order, r, window version.Range) (string, error) {
	startsInside, endsInside, err := classify.Edges(order, r, window)
	if err != nil {
		return "", err
	}

	switch {
	case startsInside && endsInside:
		return fmt.Sprintf("From %s to %s, ", r.Lo, r.Hi), nil
	case startsInside:
		return fmt.Sprintf("From %s on, ", r.Lo), nil
	case endsInside:
		return fmt.Sprintf("Through %s, ", r.Hi), nil
	default:
		return "", nil
	}
}

func refElement(n *RefNode) schema.Element {
	switch n.Kind {
	case RefColumn:
		return schema.ColumnElem(n.Table, n.Name)
	case RefIndex:
		return schema.IndexElem(n.Table, n.Name)
	default:
		return schema.TableElem(n.Table)
	}
}

func (e *Expander) reference(n *RefNode, window version.Range) (string, error) {
	el := refElement(n)

	named, err := e.renames.NameAt(el, window.Hi)
	if err != nil {
		return "", WrapExpandError(n.Pos(), "resolving "+n.Key, err)
	}

	if e.index != nil {
		found, err := e.existsWithin(el, window)
		if err != nil {
			return "", WrapExpandError(n.Pos(), "resolving "+n.Key, err)
		}
		if !found {
			return "", NewUnresolvedReferenceError(n.Pos(), n.Key, window.String())
		}
	}

	if named != el {
		e.logger.Debug("reference renamed",
			slog.String("key", n.Key),
			slog.String("as", named.Anchor()),
			slog.String("at", string(window.Hi)))
	}

	link := Link(named)
	if n.Kind == RefTheTable {
		return "the " + link + " table", nil
	}
	return link, nil
}

// existsWithin reports whether el, under the name it carried at each
// version, exists at some version of window. Versions older than every
// snapshot hold nothing.
func (e *Expander) existsWithin(el schema.Element, window version.Range) (bool, error) {
	span, err := e.order.Span(window)
	if err != nil {
		return false, err
	}
	for i := len(span) - 1; i >= 0; i-- {
		v := span[i]
		named, err := e.renames.NameAt(el, v)
		if err != nil {
			return false, err
		}
		ok, err := e.index.Exists(named, v)
		if err != nil {
			if schema.IsNoSnapshot(err) {
				continue
			}
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Link renders el as an anchor pointing at its section.
func Link(el schema.Element) string {
	return fmt.Sprintf(`<a href="#%s">%s</a>`, el.Anchor(), el.Label())
}
