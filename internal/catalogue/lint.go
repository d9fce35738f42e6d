package catalogue

import (
	"errors"
	"fmt"
	"sort"

	"github.com/leapstack-labs/schemadoc/internal/placeholder"
	"github.com/leapstack-labs/schemadoc/internal/remark"
	"github.com/leapstack-labs/schemadoc/internal/schema"
	"github.com/leapstack-labs/schemadoc/internal/version"
)

// Severity ranks lint findings.
type Severity int

// Severity constants, most severe first.
const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// ParseSeverity maps "error", "warning" or "info" to a Severity.
func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "error":
		return SeverityError, nil
	case "warning", "":
		return SeverityWarning, nil
	case "info":
		return SeverityInfo, nil
	default:
		return SeverityWarning, fmt.Errorf("unknown severity %q", s)
	}
}

// Rule identifiers.
const (
	RuleUnknownVersion = "CV01" // range bound outside the version order
	RuleInvertedRange  = "CV02" // range lower bound after upper bound
	RuleReleases       = "CV03" // release metadata inconsistent with the order
	RuleSyntax         = "PH01" // malformed placeholder
	RuleUnknownScalar  = "PH02" // scalar with no value
	RuleDangling       = "PH03" // reference to an element that never exists
	RuleNeedsRemark    = "RM01" // element with no remark yet
	RuleTodo           = "RM02" // remark still marked TODO
)

// Issue is one lint finding.
type Issue struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Element  string   `json:"element,omitempty"`
	Family   string   `json:"family,omitempty"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	if i.Element == "" {
		return fmt.Sprintf("%s %s: %s", i.Severity, i.Rule, i.Message)
	}
	return fmt.Sprintf("%s %s %s (%s): %s", i.Severity, i.Rule, i.Element, i.Family, i.Message)
}

// LintOptions configures Lint.
type LintOptions struct {
	// Scalars lists caller-supplied scalar names in addition to the
	// built-in ones.
	Scalars []string
	// Index, when set, enables the dangling-reference check over Window.
	Index  schema.Index
	Window version.Range
	// MinSeverity drops findings less severe than this.
	MinSeverity Severity
}

// Lint checks the catalogue for closed-world version integrity, release
// consistency and placeholder validity. Findings are sorted by element.
func (c *Catalogue) Lint(opts LintOptions) []Issue {
	known := make(map[string]bool)
	for _, s := range placeholder.BuiltinScalars {
		known[s] = true
	}
	for _, s := range opts.Scalars {
		known[s] = true
	}

	var expander *placeholder.Expander
	if opts.Index != nil {
		expander = placeholder.NewExpander(c.Order, c.Renames, opts.Index,
			placeholder.WithScalars(stubScalars(opts.Scalars)))
	}

	var issues []Issue
	add := func(i Issue) {
		if i.Severity <= opts.MinSeverity {
			issues = append(issues, i)
		}
	}

	issues = append(issues, c.lintReleases()...)

	for _, k := range []schema.Kind{schema.KindTable, schema.KindColumn, schema.KindIndex} {
		for _, f := range Families {
			for _, el := range c.Elements(k, f) {
				e, _ := c.lookup(el, f)
				for _, i := range c.lintEntry(el, f, e, known, expander, opts.Window) {
					add(i)
				}
			}
		}
	}

	tmpl, err := placeholder.Parse(c.NotationGuide, "notation_guide")
	if err != nil {
		add(Issue{Rule: RuleSyntax, Severity: SeverityError, Message: "notation guide: " + err.Error()})
	} else {
		for _, s := range tmpl.Scalars() {
			if !known[s.Name] {
				add(Issue{Rule: RuleUnknownScalar, Severity: SeverityError,
					Message: fmt.Sprintf("notation guide: unknown placeholder %q", s.Name)})
			}
		}
	}

	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Severity != issues[j].Severity {
			return issues[i].Severity < issues[j].Severity
		}
		return issues[i].Element < issues[j].Element
	})
	return issues
}

func (c *Catalogue) lintReleases() []Issue {
	var issues []Issue
	seen := make(map[version.Version]bool)
	for _, r := range c.Releases {
		if !c.Order.Contains(r.Version) {
			issues = append(issues, Issue{Rule: RuleReleases, Severity: SeverityError,
				Message: fmt.Sprintf("release %q is not in version_order", r.Version)})
		}
		if seen[r.Version] {
			issues = append(issues, Issue{Rule: RuleReleases, Severity: SeverityError,
				Message: fmt.Sprintf("release %q listed twice", r.Version)})
		}
		seen[r.Version] = true
	}

	keys := make([]string, 0, len(c.SchemaVersions))
	for k := range c.SchemaVersions {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := version.Version(k)
		sv := c.SchemaVersions[v]
		for _, x := range []version.Version{v, sv} {
			if !c.Order.Contains(x) {
				issues = append(issues, Issue{Rule: RuleReleases, Severity: SeverityError,
					Message: fmt.Sprintf("schema_versions %s -> %s: %q is not in version_order", v, sv, x)})
				break
			}
		}
	}
	return issues
}

func (c *Catalogue) lintEntry(el schema.Element, f Family, e remark.Entry, known map[string]bool,
	expander *placeholder.Expander, window version.Range) []Issue {
	issue := func(rule string, sev Severity, format string, args ...any) Issue {
		return Issue{Rule: rule, Severity: sev, Element: el.Anchor(), Family: f.String(),
			Message: fmt.Sprintf(format, args...)}
	}

	switch e.Kind() {
	case remark.Missing:
		return []Issue{issue(RuleNeedsRemark, SeverityInfo, "no remark yet")}
	case remark.Todo:
		return []Issue{issue(RuleTodo, SeverityInfo, "remark marked TODO")}
	}

	var issues []Issue
	for _, n := range e.Nodes() {
		if n.Versioned {
			rangeOK := true
			for _, b := range []version.Version{n.Range.Lo, n.Range.Hi} {
				if b != "" && !c.Order.Contains(b) {
					issues = append(issues, issue(RuleUnknownVersion, SeverityError, "range bound %q is not in version_order", b))
					rangeOK = false
				}
			}
			if rangeOK {
				if err := c.Order.Validate(n.Range); err != nil {
					issues = append(issues, issue(RuleInvertedRange, SeverityError, "%v", err))
				}
			}
		}

		tmpl, err := placeholder.Parse(n.Text, el.Anchor())
		if err != nil {
			issues = append(issues, issue(RuleSyntax, SeverityError, "%v", err))
			continue
		}
		for _, s := range tmpl.Scalars() {
			if !known[s.Name] {
				issues = append(issues, issue(RuleUnknownScalar, SeverityError, "unknown placeholder %q", s.Name))
			}
		}

		if expander == nil {
			continue
		}
		for _, ref := range tmpl.Refs() {
			_, err := expander.ExpandTemplate(&placeholder.Template{Nodes: []placeholder.Node{ref}},
				placeholder.Scope{Window: window, Source: el.Anchor()}, nil)
			var unresolved *placeholder.UnresolvedReferenceError
			switch {
			case errors.As(err, &unresolved):
				issues = append(issues, issue(RuleDangling, SeverityWarning, "%s matches no element in %s", ref.Key, unresolved.Window))
			case err != nil:
				issues = append(issues, issue(RuleDangling, SeverityError, "%v", err))
			}
		}
	}
	return issues
}

func stubScalars(names []string) map[string]string {
	m := make(map[string]string, len(names))
	for _, n := range names {
		m[n] = ""
	}
	return m
}
