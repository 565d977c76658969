package testutil

import (
	"path/filepath"
	"testing"

	"github.com/mdedb/mde/engine"
	"github.com/mdedb/mde/storage"
)

// OpenEngine opens a fresh Database under a fresh temporary directory,
// registering a cleanup that closes it when the test ends.
func OpenEngine(t *testing.T) *engine.Database {
	t.Helper()
	dir := TempDir(t)
	db, err := engine.Open(engine.Options{Options: storage.DefaultOptions(filepath.Join(dir, "test"))})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
