package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/schemadoc/internal/catalogue"
	"github.com/leapstack-labs/schemadoc/internal/classify"
	"github.com/leapstack-labs/schemadoc/internal/schema"
	"github.com/leapstack-labs/schemadoc/internal/testutil"
	"github.com/leapstack-labs/schemadoc/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const smallCatalogue = `
version_order: ['1.0', '1.1', '1.2']
default_first_version: '1.0'
default_last_version: '1.2'
tables:
  remarks:
    items: %s
`

const smallSnapshots = `
snapshots:
- version: '1.0'
  tables:
  - name: items
    columns:
    - {name: id, type: integer}
- version: '1.2'
  tables:
  - name: items
    columns:
    - {name: id, type: integer}
    - {name: label, type: text}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestNew_EmbeddedCatalogueWithSnapshots(t *testing.T) {
	e, err := New(context.Background(), Config{
		SchemaPath: testutil.SnapshotsFixture(t),
		Logger:     testutil.NewTestLogger(t),
	})
	require.NoError(t, err)

	assert.Equal(t, catalogue.EmbeddedSource, e.Catalogue().Source)
	assert.True(t, e.HasSchema())

	r, err := e.Renderer()
	require.NoError(t, err)
	f, err := r.Render(schema.TableElem("votes"), version.Between("2.23.3", "4.0"))
	require.NoError(t, err)
	assert.Equal(t, classify.Removed, f.Category)
}

func TestNew_WithoutSchema(t *testing.T) {
	e, err := New(context.Background(), Config{})
	require.NoError(t, err)

	assert.False(t, e.HasSchema())
	_, err = e.Renderer()
	assert.ErrorIs(t, err, ErrNoSchema)
	_, err = e.Index()
	assert.ErrorIs(t, err, ErrNoSchema)
	assert.NotNil(t, e.Catalogue(), "catalogue commands work without snapshots")
}

func TestNew_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := New(context.Background(), Config{CataloguePath: filepath.Join(dir, "absent.yaml")})
	assert.Error(t, err)

	_, err = New(context.Background(), Config{SchemaPath: filepath.Join(dir, "absent.yaml")})
	assert.Error(t, err)

	// Snapshot tagged with a version the catalogue does not know.
	snaps := writeFile(t, dir, "snaps.yaml", "snapshots:\n- version: '9.9'\n  tables: []\n")
	_, err = New(context.Background(), Config{SchemaPath: snaps})
	require.Error(t, err)
	var uv *version.UnknownVersionError
	assert.True(t, errors.As(err, &uv))
}

func TestReload(t *testing.T) {
	dir := t.TempDir()
	catPath := writeFile(t, dir, "catalogue.yaml", fmt.Sprintf(smallCatalogue, "'First remark.'"))
	snapPath := writeFile(t, dir, "snapshots.yaml", smallSnapshots)

	e, err := New(context.Background(), Config{
		CataloguePath: catPath,
		SchemaPath:    snapPath,
		Logger:        testutil.NewTestLogger(t),
	})
	require.NoError(t, err)

	r, err := e.Renderer()
	require.NoError(t, err)
	f, err := r.Render(schema.TableElem("items"), version.All())
	require.NoError(t, err)
	assert.Equal(t, "First remark.", f.HTML)
	assert.Equal(t, classify.Changed, f.Category)

	writeFile(t, dir, "catalogue.yaml", fmt.Sprintf(smallCatalogue, "'Second remark.'"))
	require.NoError(t, e.Reload())

	r2, err := e.Renderer()
	require.NoError(t, err)
	assert.NotSame(t, r, r2)
	f, err = r2.Render(schema.TableElem("items"), version.All())
	require.NoError(t, err)
	assert.Equal(t, "Second remark.", f.HTML)

	// A broken catalogue leaves the last good state in place.
	writeFile(t, dir, "catalogue.yaml", "version_order: [")
	require.Error(t, e.Reload())
	r3, err := e.Renderer()
	require.NoError(t, err)
	assert.Same(t, r2, r3)
}

func TestSaveAndLoadSnapshotStore(t *testing.T) {
	ctx := context.Background()
	logger := testutil.NewTestLogger(t)
	storePath := filepath.Join(t.TempDir(), "snapshots.db")

	snaps, err := schema.LoadSnapshotFile(testutil.SnapshotsFixture(t))
	require.NoError(t, err)
	for _, snap := range snaps {
		res, err := SaveSnapshot(ctx, storePath, snap, logger)
		require.NoError(t, err)
		assert.Equal(t, snap.Version, res.Version)
		assert.Len(t, res.ID, 36)
		assert.Equal(t, len(snap.Tables), res.Tables)
	}

	loaded, err := LoadSnapshots(ctx, storePath, logger)
	require.NoError(t, err)
	assert.Len(t, loaded, len(snaps))

	e, err := New(ctx, Config{SchemaPath: storePath, Logger: logger})
	require.NoError(t, err)
	index, err := e.Index()
	require.NoError(t, err)
	ok, err := index.Exists(schema.ColumnElem("fielddefs", "fieldid"), "2.0")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCapture_Validation(t *testing.T) {
	order := version.MustOrder("1.0", "1.1")
	store := filepath.Join(t.TempDir(), "s.db")

	tests := []struct {
		name   string
		opts   CaptureOptions
		errMsg string
	}{
		{"no dsn", CaptureOptions{Version: "1.0", StorePath: store}, "introspect.dsn is required"},
		{"no version", CaptureOptions{DSN: "postgres://x", StorePath: store}, "release version is required"},
		{"yaml target", CaptureOptions{DSN: "postgres://x", Version: "1.0", StorePath: "s.yaml"}, "SQLite store"},
		{"unknown version", CaptureOptions{DSN: "postgres://x", Version: "2.0", StorePath: store, Order: order}, `unknown version "2.0"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Capture(context.Background(), tt.opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestIsStorePath(t *testing.T) {
	assert.True(t, IsStorePath("a/b.db"))
	assert.True(t, IsStorePath("B.SQLITE"))
	assert.True(t, IsStorePath("x.sqlite3"))
	assert.False(t, IsStorePath("snapshots.yaml"))
}

func TestChanges(t *testing.T) {
	dir := t.TempDir()
	e, err := New(context.Background(), Config{
		CataloguePath: writeFile(t, dir, "catalogue.yaml", fmt.Sprintf(smallCatalogue, "'Items.'")),
		SchemaPath:    writeFile(t, dir, "snapshots.yaml", smallSnapshots),
	})
	require.NoError(t, err)

	report, err := e.Changes(version.All(), ChangesOptions{})
	require.NoError(t, err)
	assert.Equal(t, version.Between("1.0", "1.2"), report.Window)
	assert.Equal(t, []Change{
		{Element: schema.TableElem("items"), Category: classify.Changed},
		{Element: schema.ColumnElem("items", "label"), Category: classify.Added},
	}, report.Changes)
	assert.Equal(t, map[string]int{"changed": 1, "added": 1, "unchanged": 1}, report.Summary)

	col := schema.KindColumn
	report, err = e.Changes(version.All(), ChangesOptions{Kind: &col, All: true})
	require.NoError(t, err)
	assert.Len(t, report.Changes, 2)

	noSchema, err := New(context.Background(), Config{})
	require.NoError(t, err)
	_, err = noSchema.Changes(version.All(), ChangesOptions{})
	assert.ErrorIs(t, err, ErrNoSchema)
}

func TestChanges_FollowsRenames(t *testing.T) {
	const cat = `
version_order: ['1.0', '1.1', '1.2']
default_first_version: '1.0'
default_last_version: '1.2'
columns:
  renamed:
    items:
    - {from: ident, to: id, since: '1.1'}
`
	const snaps = `
snapshots:
- version: '1.0'
  tables:
  - name: items
    columns:
    - {name: ident, type: integer}
- version: '1.2'
  tables:
  - name: items
    columns:
    - {name: id, type: integer}
`
	dir := t.TempDir()
	e, err := New(context.Background(), Config{
		CataloguePath: writeFile(t, dir, "catalogue.yaml", cat),
		SchemaPath:    writeFile(t, dir, "snapshots.yaml", snaps),
	})
	require.NoError(t, err)

	report, err := e.Changes(version.All(), ChangesOptions{All: true})
	require.NoError(t, err)
	require.Len(t, report.Changes, 2)
	assert.Equal(t, schema.ColumnElem("items", "id"), report.Changes[1].Element)
	assert.Equal(t, classify.Unchanged, report.Changes[1].Category)
	assert.Equal(t, map[string]int{"changed": 1, "unchanged": 1}, report.Summary, "the table's column list changed")
}
