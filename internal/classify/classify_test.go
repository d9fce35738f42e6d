package classify

import (
	"errors"
	"testing"

	"github.com/leapstack-labs/schemadoc/internal/schema"
	"github.com/leapstack-labs/schemadoc/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var order = version.MustOrder("2.0", "2.2", "2.4", "2.6", "2.8", "2.10")

// history maps an element to its definition at each version; a missing
// version means the element does not exist there.
type history map[schema.Element]map[version.Version]string

func (h history) Exists(el schema.Element, v version.Version) (bool, error) {
	_, ok, err := h.Definition(el, v)
	return ok, err
}

func (h history) Definition(el schema.Element, v version.Version) (string, bool, error) {
	if !order.Contains(v) {
		return "", false, &version.UnknownVersionError{Version: v}
	}
	def, ok := h[el][v]
	return def, ok, nil
}

var (
	col     = schema.ColumnElem("bugs", "votes")
	fixture = history{
		col: {"2.0": "int", "2.2": "int", "2.4": "int", "2.6": "smallint"},
	}
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		window version.Range
		want   Category
	}{
		{"removed", version.Between("2.4", "2.8"), Removed},
		{"unchanged", version.Between("2.0", "2.4"), Unchanged},
		{"changed definition", version.Between("2.4", "2.6"), Changed},
		{"absent at both ends", version.Between("2.8", "2.10"), Unchanged},
		{"open window closes to full history", version.All(), Removed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(order, col, tt.window, fixture, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_AddedAndRemovedAreInverse(t *testing.T) {
	h := history{col: {"2.4": "int", "2.6": "int"}}

	got, err := Classify(order, col, version.Between("2.0", "2.4"), h, nil)
	require.NoError(t, err)
	assert.Equal(t, Added, got)

	got, err = Classify(order, col, version.Between("2.6", "2.8"), h, nil)
	require.NoError(t, err)
	assert.Equal(t, Removed, got)
}

func TestClassify_RemarkDifference(t *testing.T) {
	remarks := func(v version.Version) (string, error) {
		if v == "2.0" {
			return "old text", nil
		}
		return "new text", nil
	}

	got, err := Classify(order, col, version.Between("2.0", "2.4"), fixture, remarks)
	require.NoError(t, err)
	assert.Equal(t, Changed, got)

	same := func(version.Version) (string, error) { return "same", nil }
	got, err = Classify(order, col, version.Between("2.0", "2.4"), fixture, same)
	require.NoError(t, err)
	assert.Equal(t, Unchanged, got)
}

func TestClassify_Errors(t *testing.T) {
	_, err := Classify(order, col, version.Between("2.0", "9.9"), fixture, nil)
	var uv *version.UnknownVersionError
	assert.ErrorAs(t, err, &uv)

	_, err = Classify(order, col, version.Between("2.8", "2.0"), fixture, nil)
	var ir *version.InvalidRangeError
	assert.ErrorAs(t, err, &ir)

	boom := errors.New("boom")
	_, err = Classify(order, col, version.Between("2.0", "2.2"), fixture,
		func(version.Version) (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
}

func TestRange(t *testing.T) {
	window := version.Between("2.2", "2.8")

	tests := []struct {
		name string
		r    version.Range
		want Category
	}{
		{"covers window", version.All(), Unchanged},
		{"starts at window start", version.Since("2.2"), Unchanged},
		{"starts inside", version.Since("2.4"), Added},
		{"ends inside", version.Through("2.6"), Removed},
		{"starts and ends inside", version.Between("2.4", "2.6"), Changed},
		{"ends at window end", version.Between("2.0", "2.8"), Unchanged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Range(order, tt.r, window)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChangedWithin(t *testing.T) {
	h := history{col: {"2.0": "int", "2.4": "int", "2.6": "int"}}

	added, removed, err := ChangedWithin(order, col, version.Between("2.0", "2.6"), h)
	require.NoError(t, err)
	assert.True(t, added)
	assert.True(t, removed)

	added, removed, err = ChangedWithin(order, col, version.Between("2.4", "2.6"), h)
	require.NoError(t, err)
	assert.False(t, added)
	assert.False(t, removed)
}

func TestCategoryColours(t *testing.T) {
	assert.Equal(t, "#ffffff", Unchanged.Colour())
	assert.Equal(t, "#ffcccc", Removed.Colour())
	assert.Equal(t, "#ccffcc", Added.Colour())
	assert.Equal(t, "#ccccff", Changed.Colour())
	assert.Equal(t, ` bgcolor="#ccffcc"`, Added.Attr())

	for _, c := range []Category{Unchanged, Added, Removed, Changed} {
		parsed, err := ParseCategory(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}
	_, err := ParseCategory("renamed")
	assert.Error(t, err)
}

func TestClassify_WindowBeforeFirstSnapshot(t *testing.T) {
	set, err := schema.NewSet(order, nil, &schema.Snapshot{Version: "2.2", Tables: []schema.TableDef{
		{Name: "bugs", Columns: []schema.Column{{Name: "votes", Type: "int"}}},
	}})
	require.NoError(t, err)

	got, err := Classify(order, schema.TableElem("bugs"), version.Between("2.0", "2.4"), set, nil)
	require.NoError(t, err)
	assert.Equal(t, Added, got, "nothing exists before the first snapshot")

	got, err = Classify(order, schema.TableElem("ghost"), version.Between("2.0", "2.4"), set, nil)
	require.NoError(t, err)
	assert.Equal(t, Unchanged, got)

	added, removed, err := ChangedWithin(order, col, version.Between("2.0", "2.4"), set)
	require.NoError(t, err)
	assert.True(t, added)
	assert.False(t, removed)
}
