package testutil

import (
	"path/filepath"
	"runtime"
	"testing"
)

// FixturePath returns the absolute path of a file under testutil/testdata.
func FixturePath(t testing.TB, name string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot locate testutil package")
	}
	return filepath.Join(filepath.Dir(file), "testdata", name)
}

// SnapshotsFixture is the path of the sample schema history.
func SnapshotsFixture(t testing.TB) string {
	t.Helper()
	return FixturePath(t, "snapshots.yaml")
}
