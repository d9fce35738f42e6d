package catalogue

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/schemadoc/internal/placeholder"
	"github.com/leapstack-labs/schemadoc/internal/remark"
	"github.com/leapstack-labs/schemadoc/internal/schema"
	"github.com/leapstack-labs/schemadoc/internal/testutil"
	"github.com/leapstack-labs/schemadoc/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadEmbedded(t *testing.T) *Catalogue {
	t.Helper()
	c, err := Embedded()
	require.NoError(t, err, "embedded catalogue must load")
	return c
}

func fixtureIndex(t *testing.T, c *Catalogue) *schema.Set {
	t.Helper()
	snaps, err := schema.LoadSnapshotFile(testutil.SnapshotsFixture(t))
	require.NoError(t, err)
	set, err := schema.NewSet(c.Order, c.SchemaVersions, snaps...)
	require.NoError(t, err)
	return set
}

func TestEmbedded_VersionOrder(t *testing.T) {
	c := loadEmbedded(t)

	assert.Equal(t, version.Version("2.0"), c.Order.First())
	assert.Equal(t, version.Between("5.0", "5.2"), c.DefaultWindow)

	for i, v := range c.Order.Versions() {
		got, err := c.Order.IndexOf(v)
		require.NoError(t, err)
		assert.Equal(t, i, got)
	}

	rel, err := c.Order.Compare("5.2", "5.1.1")
	require.NoError(t, err)
	assert.Equal(t, version.Before, rel, "5.2 precedes 5.1.1 in the curated order")

	_, err = c.Order.IndexOf("6.0")
	var uv *version.UnknownVersionError
	assert.ErrorAs(t, err, &uv)
}

func TestEmbedded_Remarks(t *testing.T) {
	c := loadEmbedded(t)

	e, ok := c.Remark(schema.TableElem("bugs"), Base)
	require.True(t, ok)
	assert.Equal(t, remark.Plain("The bugs themselves."), e)

	e, ok = c.Remark(schema.TableElem("bug_type"), Base)
	require.True(t, ok)
	assert.Equal(t, remark.Todo, e.Kind())

	e, ok = c.Remark(schema.TableElem("votes"), AddedFamily)
	require.True(t, ok, "null entries keep their key")
	assert.True(t, e.IsMissing())

	_, ok = c.Remark(schema.TableElem("no_such_table"), Base)
	assert.False(t, ok)

	e, ok = c.Remark(schema.ColumnElem("bugs", "bug_severity"), Base)
	require.True(t, ok)
	require.Len(t, e.Nodes(), 2)
	assert.Equal(t, version.Since("2.19.3"), e.Nodes()[1].Range)
}

func TestEmbedded_RemarkByOldName(t *testing.T) {
	c := loadEmbedded(t)

	byOld, ok := c.Remark(schema.ColumnElem("fielddefs", "fieldid"), Base)
	require.True(t, ok, "old names resolve to the canonical entry")
	byNew, _ := c.Remark(schema.ColumnElem("fielddefs", "id"), Base)
	assert.Equal(t, byNew, byOld)
}

func TestEmbedded_Renames(t *testing.T) {
	c := loadEmbedded(t)

	assert.Equal(t,
		[]placeholder.Rename{{From: "fieldid", To: "id", Since: "2.23.3"}},
		c.Renames.History(schema.ColumnElem("fielddefs", "id")))

	before, err := c.Renames.NameAt(schema.ColumnElem("fielddefs", "id"), "2.23.2")
	require.NoError(t, err)
	assert.Equal(t, "fieldid", before.Name)

	at, err := c.Renames.NameAt(schema.ColumnElem("fielddefs", "fieldid"), "2.23.3")
	require.NoError(t, err)
	assert.Equal(t, "id", at.Name)
}

func TestEmbedded_FielddefsRenameLink(t *testing.T) {
	c := loadEmbedded(t)
	e := placeholder.NewExpander(c.Order, c.Renames, fixtureIndex(t, c))

	tests := []struct {
		name   string
		window version.Range
		want   string
	}{
		{
			"window wholly before the rename",
			version.Between("2.20", "2.22"),
			`<a href="#column-fielddefs-fieldid">fielddefs.fieldid</a>`,
		},
		{
			"window ending at the rename",
			version.Between("2.22", "2.23.3"),
			`<a href="#column-fielddefs-id">fielddefs.id</a>`,
		},
		{
			"window after the rename",
			version.Between("5.0", "5.2"),
			`<a href="#column-fielddefs-id">fielddefs.id</a>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Expand("%(column-fielddefs-fieldid)s", placeholder.Scope{Window: tt.window})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEmbedded_Releases(t *testing.T) {
	c := loadEmbedded(t)

	r, ok := c.Release("2.0")
	require.True(t, ok)
	assert.Equal(t, "1998-09-19", r.Date)

	rels, err := c.ReleasesIn(version.Between("5.0", "5.2"))
	require.NoError(t, err)
	require.NotEmpty(t, rels)
	assert.Equal(t, version.Version("5.0"), rels[0].Version)
	assert.Equal(t, version.Version("5.2"), rels[len(rels)-1].Version)
}

func TestEmbedded_LintClean(t *testing.T) {
	c := loadEmbedded(t)

	issues := c.Lint(LintOptions{})
	assert.Empty(t, issues, "embedded catalogue should have no lint errors: %v", issues)

	all := c.Lint(LintOptions{MinSeverity: SeverityInfo})
	var todo, missing int
	for _, i := range all {
		switch i.Rule {
		case RuleTodo:
			todo++
		case RuleNeedsRemark:
			missing++
		}
	}
	stats := c.Stats()
	assert.Equal(t, stats.Todo, todo)
	assert.Equal(t, stats.Missing, missing)
}

const brokenCatalogue = `
version_order: ['1.0', '1.1', '1.2']
default_first_version: '1.0'
default_last_version: '1.2'
schema_versions:
  '1.1': '7.7'
releases:
- {version: '1.0', date: '2000-01-01', remark: ''}
- {version: '9.9', date: '2000-01-01', remark: ''}
tables:
  remarks:
    a: 'See %(table-b)s and %(MYSTERY)s.'
    b:
    - from: '1.2'
      to: '1.0'
      text: backwards
    - from: '0.5'
      to: null
      text: unknown bound
    c: '50% broken'
    d: null
columns:
  remarks: {}
indexes:
  remarks: {}
notation_guide: '%(FIRST_VERSION)s'
`

func TestLint_Findings(t *testing.T) {
	c, err := Parse([]byte(brokenCatalogue), "broken.yaml")
	require.NoError(t, err)

	issues := c.Lint(LintOptions{MinSeverity: SeverityInfo})

	rules := make(map[string]int)
	for _, i := range issues {
		rules[i.Rule]++
	}
	assert.Equal(t, 2, rules[RuleReleases], "unknown release and unknown schema version")
	assert.Equal(t, 1, rules[RuleUnknownScalar])
	assert.Equal(t, 1, rules[RuleInvertedRange])
	assert.Equal(t, 1, rules[RuleUnknownVersion])
	assert.Equal(t, 1, rules[RuleSyntax])
	assert.Equal(t, 1, rules[RuleNeedsRemark])
	assert.Zero(t, rules[RuleDangling], "no index, no dangling check")

	errorsOnly := c.Lint(LintOptions{})
	for _, i := range errorsOnly {
		assert.Equal(t, SeverityError, i.Severity)
	}
}

func TestLint_DanglingReferences(t *testing.T) {
	c, err := Parse([]byte(`
version_order: ['1.0', '1.1']
default_first_version: '1.0'
default_last_version: '1.1'
tables:
  remarks:
    a: 'See %(table-b)s and %(column-a-x)s.'
notation_guide: ''
`), "dangling.yaml")
	require.NoError(t, err)

	set, err := schema.NewSet(c.Order, nil, &schema.Snapshot{Version: "1.0", Tables: []schema.TableDef{
		{Name: "a", Columns: []schema.Column{{Name: "x", Type: "int"}}},
	}})
	require.NoError(t, err)

	issues := c.Lint(LintOptions{Index: set, MinSeverity: SeverityWarning})
	require.Len(t, issues, 1)
	assert.Equal(t, RuleDangling, issues[0].Rule)
	assert.Contains(t, issues[0].Message, "table-b")
	assert.Equal(t, "table-a", issues[0].Element)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"duplicate versions", "version_order: ['1', '1']\ndefault_first_version: '1'\ndefault_last_version: '1'\n"},
		{"default outside order", "version_order: ['1']\ndefault_first_version: '1'\ndefault_last_version: '2'\n"},
		{"unknown field", "version_order: ['1']\ndefault_first_version: '1'\ndefault_last_version: '1'\nextra: 1\n"},
		{
			"rename at unknown version",
			"version_order: ['1']\ndefault_first_version: '1'\ndefault_last_version: '1'\n" +
				"columns:\n  renamed:\n    t:\n    - {from: a, to: b, since: '7'}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), tt.name)
			assert.Error(t, err)
		})
	}
}

func TestLoad_FromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogue.yaml")
	require.NoError(t, os.WriteFile(path, bugzillaYAML, 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, c.Source)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	embedded, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, EmbeddedSource, embedded.Source)
}

func TestVersions(t *testing.T) {
	c, err := Parse([]byte(`
version_order: ['1.0', '1.1', '1.2', '1.3']
default_first_version: '1.0'
default_last_version: '1.3'
schema_versions:
  '1.0': '1.0'
  '1.1': '1.0'
  '1.2': '1.2'
releases:
- {version: '1.1', date: '2001-05-05', remark: Bug fixes only.}
`), "versions")
	require.NoError(t, err)

	all, err := c.Versions(version.Between("1.1", "1.2"), false)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, VersionInfo{Version: "1.0"}, all[0])
	assert.Equal(t, VersionInfo{
		Version:       "1.1",
		Date:          "2001-05-05",
		Note:          "Bug fixes only.",
		SchemaVersion: "1.0",
		InWindow:      true,
	}, all[1])
	assert.Empty(t, all[2].SchemaVersion, "a release mapped to itself has no separate schema")
	assert.False(t, all[3].InWindow)

	inside, err := c.Versions(version.Between("1.1", "1.2"), true)
	require.NoError(t, err)
	require.Len(t, inside, 2)
	assert.Equal(t, version.Version("1.2"), inside[1].Version)

	_, err = c.Versions(version.Between("0.9", "1.2"), false)
	var unknown *version.UnknownVersionError
	assert.ErrorAs(t, err, &unknown)
}
