package render

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/schemadoc/internal/placeholder"
	"github.com/leapstack-labs/schemadoc/internal/version"
)

// Document-level scalar names.
const (
	ScalarBugzillaVersions = "BUGZILLA_VERSIONS"
	ScalarVersionsTable    = "VERSIONS_TABLE"
	ScalarNotationGuide    = "NOTATION_GUIDE"
)

// DocumentScalarNames lists the scalars DocumentScalars provides.
var DocumentScalarNames = []string{ScalarBugzillaVersions, ScalarVersionsTable, ScalarNotationGuide}

// DocumentScalars derives the document-level scalars for window:
// BUGZILLA_VERSIONS names the span, VERSIONS_TABLE lists its releases as
// table rows and NOTATION_GUIDE is the catalogue's guide, expanded.
func (r *Renderer) DocumentScalars(window version.Range) (map[string]string, error) {
	w := r.order.Close(window)
	if err := r.order.Validate(w); err != nil {
		return nil, err
	}

	versions := string(w.Lo)
	if w.Lo != w.Hi {
		versions = fmt.Sprintf("%s to %s", w.Lo, w.Hi)
	}

	table, err := r.versionsTable(w)
	if err != nil {
		return nil, err
	}

	// The guide may use everything except itself.
	scalars := map[string]string{
		ScalarBugzillaVersions: versions,
		ScalarVersionsTable:    table,
	}
	for k, v := range r.scalars {
		scalars[k] = v
	}
	guide, err := placeholder.NewExpander(r.order, r.cat.Renames, r.index,
		placeholder.WithScalars(scalars),
		placeholder.WithClock(r.now),
		placeholder.WithLogger(r.logger),
	).Expand(r.cat.NotationGuide, placeholder.Scope{Window: w, Source: "notation_guide"})
	if err != nil {
		return nil, fmt.Errorf("notation guide: %w", err)
	}
	scalars[ScalarNotationGuide] = guide

	return scalars, nil
}

func (r *Renderer) versionsTable(w version.Range) (string, error) {
	releases, err := r.cat.ReleasesIn(w)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, rel := range releases {
		fmt.Fprintf(&sb, "<tr valign=\"top\">\n  <td>%s</td>\n  <td>%s</td>\n  <td>%s</td>\n</tr>\n",
			rel.Date, rel.Version, rel.Note)
	}
	return sb.String(), nil
}

// NotationGuide returns the expanded notation guide for window.
func (r *Renderer) NotationGuide(window version.Range) (string, error) {
	doc, err := r.DocumentScalars(window)
	if err != nil {
		return "", err
	}
	return doc[ScalarNotationGuide], nil
}
