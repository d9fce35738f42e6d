package version

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testOrder = MustOrder("2.0", "2.2", "2.4", "2.6", "2.8", "5.0", "5.2", "5.1.1")

func TestIndexOf_Bijection(t *testing.T) {
	for i, v := range testOrder.Versions() {
		got, err := testOrder.IndexOf(v)
		require.NoError(t, err)
		assert.Equal(t, i, got, "position of %s", v)
	}
}

func TestIndexOf_Unknown(t *testing.T) {
	_, err := testOrder.IndexOf("9.9")
	require.Error(t, err)

	var uv *UnknownVersionError
	require.True(t, errors.As(err, &uv), "expected UnknownVersionError, got %T", err)
	assert.Equal(t, Version("9.9"), uv.Version)
	assert.Contains(t, err.Error(), `"9.9"`)
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b Version
		want Relation
	}{
		{"earlier", "2.0", "2.4", Before},
		{"same", "2.6", "2.6", Equal},
		{"later", "2.8", "2.2", After},
		// Position wins over numeric reading.
		{"branch rename", "5.2", "5.1.1", Before},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := testOrder.Compare(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompare_UnknownOperand(t *testing.T) {
	_, err := testOrder.Compare("2.0", "nope")
	var uv *UnknownVersionError
	assert.ErrorAs(t, err, &uv)
}

func TestIntersects(t *testing.T) {
	tests := []struct {
		name   string
		r      Range
		window Range
		want   bool
	}{
		{"disjoint before", Between("2.0", "2.2"), Between("2.6", "2.8"), false},
		{"disjoint after", Since("5.0"), Between("2.0", "2.4"), false},
		{"shared lower boundary", Through("2.6"), Between("2.6", "2.8"), true},
		{"shared upper boundary", Since("2.8"), Between("2.6", "2.8"), true},
		{"contained", At("2.4"), Between("2.0", "2.8"), true},
		{"containing", All(), Between("2.2", "2.4"), true},
		{"open window", Between("5.2", "5.1.1"), All(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := testOrder.Intersects(tt.r, tt.window)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIntersects_UnknownBound(t *testing.T) {
	_, err := testOrder.Intersects(Since("3.0"), All())
	var uv *UnknownVersionError
	require.ErrorAs(t, err, &uv)
	assert.Equal(t, Version("3.0"), uv.Version)
}

func TestValidate(t *testing.T) {
	require.NoError(t, testOrder.Validate(Between("2.0", "2.0")))
	require.NoError(t, testOrder.Validate(All()))

	err := testOrder.Validate(Between("2.8", "2.2"))
	var ir *InvalidRangeError
	require.ErrorAs(t, err, &ir)
	assert.Equal(t, Between("2.8", "2.2"), ir.Range)
}

func TestSpanAndClose(t *testing.T) {
	span, err := testOrder.Span(Between("2.6", "5.0"))
	require.NoError(t, err)
	assert.Equal(t, []Version{"2.6", "2.8", "5.0"}, span)

	assert.Equal(t, Between("2.0", "5.1.1"), testOrder.Close(All()))
	assert.Equal(t, Between("2.4", "5.1.1"), testOrder.Close(Since("2.4")))
}

func TestNewOrder_Rejects(t *testing.T) {
	_, err := NewOrder(nil)
	assert.Error(t, err)

	_, err = NewOrder([]Version{"1", ""})
	assert.Error(t, err)

	_, err = NewOrder([]Version{"1", "2", "1"})
	var dup *DuplicateVersionError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, 0, dup.First)
	assert.Equal(t, 2, dup.Second)
}

func TestRangeString(t *testing.T) {
	assert.Equal(t, "[…, 2.2]", Through("2.2").String())
	assert.Equal(t, "[2.0, 2.2]", Between("2.0", "2.2").String())
}
