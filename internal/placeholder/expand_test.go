package placeholder

import (
	"errors"
	"testing"
	"time"

	"github.com/leapstack-labs/schemadoc/internal/classify"
	"github.com/leapstack-labs/schemadoc/internal/remark"
	"github.com/leapstack-labs/schemadoc/internal/schema"
	"github.com/leapstack-labs/schemadoc/internal/testutil"
	"github.com/leapstack-labs/schemadoc/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	expandOrder = version.MustOrder("2.0", "2.2", "2.4", "2.6", "2.8", "2.10")
	fixedNow    = time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC)
)

func expandIndex(t *testing.T) *schema.Set {
	t.Helper()
	snaps := []*schema.Snapshot{
		{Version: "2.0", Tables: []schema.TableDef{
			{Name: "bugs", Columns: []schema.Column{{Name: "bug_id", Type: "int"}}},
			{Name: "fielddefs", Columns: []schema.Column{{Name: "fieldid", Type: "int"}}},
			{Name: "votes", Columns: []schema.Column{{Name: "who", Type: "int"}}},
		}},
		{Version: "2.4", Tables: []schema.TableDef{
			{Name: "bugs", Columns: []schema.Column{{Name: "bug_id", Type: "int"}},
				Indexes: []schema.IndexDef{{Name: "PRIMARY", Columns: []string{"bug_id"}}}},
			{Name: "fielddefs", Columns: []schema.Column{{Name: "id", Type: "int"}}},
		}},
	}
	set, err := schema.NewSet(expandOrder, nil, snaps...)
	require.NoError(t, err)
	return set
}

func newTestExpander(t *testing.T, opts ...Option) *Expander {
	t.Helper()
	reg, err := NewRegistry(expandOrder, nil,
		map[string][]Rename{"fielddefs": {{From: "fieldid", To: "id", Since: "2.4"}}}, nil)
	require.NoError(t, err)

	opts = append([]Option{WithClock(func() time.Time { return fixedNow }), WithLogger(testutil.NewTestLogger(t))}, opts...)
	return NewExpander(expandOrder, reg, expandIndex(t), opts...)
}

func TestExpand_References(t *testing.T) {
	e := newTestExpander(t)

	tests := []struct {
		name   string
		text   string
		window version.Range
		want   string
	}{
		{"table", "%(table-bugs)s", version.All(), `<a href="#table-bugs">bugs</a>`},
		{"the-table", "see %(the-table-bugs)s.", version.All(), `see the <a href="#table-bugs">bugs</a> table.`},
		{"column", "%(column-bugs-bug_id)s", version.All(), `<a href="#column-bugs-bug_id">bugs.bug_id</a>`},
		{"index", "%(index-bugs-PRIMARY)s", version.All(), `<a href="#index-bugs-PRIMARY">bugs.PRIMARY</a>`},
		{
			"renamed column before rename",
			"%(column-fielddefs-id)s",
			version.Between("2.0", "2.2"),
			`<a href="#column-fielddefs-fieldid">fielddefs.fieldid</a>`,
		},
		{
			"renamed column after rename",
			"%(column-fielddefs-fieldid)s",
			version.Between("2.0", "2.6"),
			`<a href="#column-fielddefs-id">fielddefs.id</a>`,
		},
		{"literal percent", "100%% of %(table-bugs)s", version.All(), `100% of <a href="#table-bugs">bugs</a>`},
		{"removed table still resolves in window", "%(table-votes)s", version.Between("2.0", "2.8"), `<a href="#table-votes">votes</a>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Expand(tt.text, Scope{Window: tt.window})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpand_UnresolvedReference(t *testing.T) {
	e := newTestExpander(t)

	tests := []struct {
		name   string
		text   string
		window version.Range
	}{
		{"absent table", "%(table-nosuch)s", version.All()},
		{"table gone before window", "%(table-votes)s", version.Between("2.4", "2.10")},
		{"index not yet added", "%(index-bugs-PRIMARY)s", version.Between("2.0", "2.2")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Expand(tt.text, Scope{Window: tt.window})
			var ur *UnresolvedReferenceError
			require.ErrorAs(t, err, &ur)
			assert.Equal(t, tt.text[2:len(tt.text)-2], ur.Key)
		})
	}
}

func TestExpand_NilIndexSkipsExistenceCheck(t *testing.T) {
	e := NewExpander(expandOrder, nil, nil)
	got, err := e.Expand("%(table-nosuch)s", Scope{Window: version.All()})
	require.NoError(t, err)
	assert.Equal(t, `<a href="#table-nosuch">nosuch</a>`, got)
}

func TestExpand_Scalars(t *testing.T) {
	e := newTestExpander(t, WithScalars(map[string]string{"NOTATION_GUIDE": "<p>%(DATE)s</p>"}))
	sc := Scope{Window: version.Between("2.2", "2.8"), Category: classify.Removed}

	tests := []struct {
		text string
		want string
	}{
		{"%(FIRST_VERSION)s..%(LAST_VERSION)s", "2.2..2.8"},
		{"%(DATE)s", "2024-03-09"},
		{"%(TIME)s", "2024-03-09 14:30:00 UTC"},
		{"<tr%(VERSION_COLOUR)s>", `<tr bgcolor="#ffcccc">`},
		{"[%(VERSION_STRING)s]", "[]"},
		// Substituted values are never rescanned.
		{"%(NOTATION_GUIDE)s", "<p>%(DATE)s</p>"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := e.Expand(tt.text, sc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpand_OpenWindowUsesOrderEnds(t *testing.T) {
	e := newTestExpander(t)
	got, err := e.Expand("%(FIRST_VERSION)s-%(LAST_VERSION)s", Scope{Window: version.All()})
	require.NoError(t, err)
	assert.Equal(t, "2.0-2.10", got)
}

func TestExpand_Errors(t *testing.T) {
	e := newTestExpander(t)

	_, err := e.Expand("%(BUGZILLA_VERSIONS)s", Scope{Window: version.All()})
	var up *UnknownPlaceholderError
	require.ErrorAs(t, err, &up)
	assert.Equal(t, "BUGZILLA_VERSIONS", up.Name)

	_, err = e.Expand("50% off", Scope{Window: version.All()})
	var se *SyntaxError
	assert.ErrorAs(t, err, &se)

	_, err = e.Expand("x", Scope{Window: version.Between("2.0", "9.9")})
	var uv *version.UnknownVersionError
	assert.ErrorAs(t, err, &uv)
}

func TestExpand_IndexErrorIsWrapped(t *testing.T) {
	boom := errors.New("index offline")
	e := NewExpander(expandOrder, nil, failingIndex{boom})

	_, err := e.Expand("%(table-bugs)s", Scope{Window: version.All()})
	var ee *ExpandError
	require.ErrorAs(t, err, &ee)
	assert.ErrorIs(t, err, boom)
}

type failingIndex struct{ err error }

func (f failingIndex) Exists(schema.Element, version.Version) (bool, error) { return false, f.err }
func (f failingIndex) Definition(schema.Element, version.Version) (string, bool, error) {
	return "", false, f.err
}

func TestExpandResolution_PerFragment(t *testing.T) {
	e := newTestExpander(t)
	window := version.Between("2.2", "2.8")

	entry := remark.TextEntry(
		remark.Literal("Base. "),
		remark.Versioned(version.Since("2.4"), "<i%(VERSION_COLOUR)s>%(VERSION_STRING)snew.</i> "),
		remark.Versioned(version.Through("2.6"), "%(VERSION_STRING)sold. "),
		remark.Versioned(version.Between("2.4", "2.6"), "%(VERSION_STRING)sbrief. "),
		remark.Versioned(version.All(), "[%(VERSION_STRING)s]"),
	)

	res, err := remark.Resolve(expandOrder, entry, window)
	require.NoError(t, err)

	got, err := e.ExpandResolution(res, Scope{Window: window})
	require.NoError(t, err)
	assert.Equal(t,
		`Base. <i bgcolor="#ccffcc">From 2.4 on, new.</i> Through 2.6, old. From 2.4 to 2.6, brief. []`,
		got)
}

func TestVersionString_BoundsAtWindowEdges(t *testing.T) {
	window := version.Between("2.2", "2.8")

	tests := []struct {
		name string
		r    version.Range
		want string
	}{
		{"starts before window", version.Since("2.0"), ""},
		{"starts at window start", version.Since("2.2"), ""},
		{"ends at window end", version.Through("2.8"), ""},
		{"ends after window", version.Through("2.10"), ""},
		{"starts inside", version.Since("2.6"), "From 2.6 on, "},
		{"ends inside", version.Through("2.4"), "Through 2.4, "},
		{"both inside", version.Between("2.4", "2.6"), "From 2.4 to 2.6, "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := VersionString(expandOrder, tt.r, window)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandResolution_Sentinels(t *testing.T) {
	e := newTestExpander(t)

	got, err := e.ExpandResolution(remark.Resolution{Kind: remark.Missing}, Scope{})
	require.NoError(t, err)
	assert.Equal(t, remark.MissingMarker, got)

	got, err = e.ExpandResolution(remark.Resolution{Kind: remark.Todo}, Scope{})
	require.NoError(t, err)
	assert.Equal(t, remark.TodoText, got)
}

func TestExpand_WindowBeforeFirstSnapshot(t *testing.T) {
	set, err := schema.NewSet(expandOrder, nil, &schema.Snapshot{Version: "2.2", Tables: []schema.TableDef{
		{Name: "bugs", Columns: []schema.Column{{Name: "bug_id", Type: "int"}}},
	}})
	require.NoError(t, err)
	e := NewExpander(expandOrder, nil, set)

	got, err := e.Expand("%(table-bugs)s", Scope{Window: version.Between("2.0", "2.4")})
	require.NoError(t, err)
	assert.Equal(t, `<a href="#table-bugs">bugs</a>`, got)

	tests := []struct {
		name   string
		text   string
		window version.Range
	}{
		{"absent everywhere", "%(table-ghost)s", version.Between("2.0", "2.4")},
		{"window entirely before first snapshot", "%(table-bugs)s", version.At("2.0")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Expand(tt.text, Scope{Window: tt.window})
			var ur *UnresolvedReferenceError
			require.ErrorAs(t, err, &ur)
			assert.Equal(t, tt.text[2:len(tt.text)-2], ur.Key)
		})
	}
}
