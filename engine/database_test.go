package engine

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mdedb/mde/common/testutil"
	"github.com/mdedb/mde/storage"
	"github.com/mdedb/mde/table"
	"github.com/mdedb/mde/value"
)

// TestOpenEngineHelperProducesAWorkingDatabase exercises the shared
// testutil.OpenEngine helper other packages' tests reach for.
func TestOpenEngineHelperProducesAWorkingDatabase(t *testing.T) {
	db := testutil.OpenEngine(t)
	users, err := db.DeclareTable(usersSchema(t), 4)
	require.NoError(t, err)

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, users.Insert(tx, table.Row{
		"id": value.NewInt64(1), "name": value.NewString("Alice"), "age": value.NewInt64(30),
	}))
	require.NoError(t, tx.Commit())

	row, ok, err := users.SelectByKey(value.NewInt64(1))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Alice", row["name"].AsString())
}

func usersSchema(t *testing.T) table.Schema {
	t.Helper()
	s, err := table.NewSchema("users", "id",
		table.Column{Name: "id", Variant: value.VariantInt64},
		table.Column{Name: "name", Variant: value.VariantString},
		table.Column{Name: "age", Variant: value.VariantInt64},
	)
	require.NoError(t, err)
	return s
}

func openDB(t *testing.T, path string) *Database {
	t.Helper()
	db, err := Open(Options{Options: storage.DefaultOptions(path)})
	require.NoError(t, err)
	return db
}

func TestBasicInsertAndSelect(t *testing.T) {
	db := openDB(t, filepath.Join(t.TempDir(), "s1"))
	defer db.Close()

	users, err := db.DeclareTable(usersSchema(t), 4)
	require.NoError(t, err)

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, users.Insert(tx, table.Row{
		"id": value.NewInt64(1), "name": value.NewString("Alice"), "age": value.NewInt64(30),
	}))
	require.NoError(t, users.Insert(tx, table.Row{
		"id": value.NewInt64(2), "name": value.NewString("Bob"), "age": value.NewInt64(25),
	}))
	require.NoError(t, tx.Commit())

	row, ok, err := users.SelectByKey(value.NewInt64(1))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Alice", row["name"].AsString())
	require.Equal(t, int64(30), row["age"].AsInt64())

	_, ok, err = users.SelectByKey(value.NewInt64(99))
	require.NoError(t, err)
	require.False(t, ok)
}

// TestSplitOrderPreserved inserts enough rows to force repeated leaf
// splits and checks the scan order survives them.
func TestSplitOrderPreserved(t *testing.T) {
	db := openDB(t, filepath.Join(t.TempDir(), "s2"))
	defer db.Close()

	users, err := db.DeclareTable(usersSchema(t), 4)
	require.NoError(t, err)

	tx, err := db.Begin()
	require.NoError(t, err)
	for i := int64(1); i <= 20; i++ {
		require.NoError(t, users.Insert(tx, table.Row{
			"id": value.NewInt64(i), "name": value.NewString("x"), "age": value.NewInt64(0),
		}))
	}
	require.NoError(t, tx.Commit())

	rows, err := users.Scan()
	require.NoError(t, err)
	require.Len(t, rows, 20)
	for i, row := range rows {
		require.Equal(t, int64(i+1), row["id"].AsInt64())
	}
}

// TestRangeOverSplitTree checks an inclusive range scan still returns
// the right rows once the tree has split.
func TestRangeOverSplitTree(t *testing.T) {
	db := openDB(t, filepath.Join(t.TempDir(), "s3"))
	defer db.Close()

	users, err := db.DeclareTable(usersSchema(t), 4)
	require.NoError(t, err)

	tx, err := db.Begin()
	require.NoError(t, err)
	for i := int64(1); i <= 20; i++ {
		require.NoError(t, users.Insert(tx, table.Row{
			"id": value.NewInt64(i), "name": value.NewString("x"), "age": value.NewInt64(0),
		}))
	}
	require.NoError(t, tx.Commit())

	rows, err := users.RangeScan(value.NewInt64(5), true, value.NewInt64(10), true)
	require.NoError(t, err)
	var keys []int64
	for _, row := range rows {
		keys = append(keys, row["id"].AsInt64())
	}
	require.Equal(t, []int64{5, 6, 7, 8, 9, 10}, keys)
}

func TestRollbackLeavesPriorCommitIntact(t *testing.T) {
	db := openDB(t, filepath.Join(t.TempDir(), "s4"))
	defer db.Close()

	users, err := db.DeclareTable(usersSchema(t), 4)
	require.NoError(t, err)

	committing, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, users.Insert(committing, table.Row{
		"id": value.NewInt64(1), "name": value.NewString("Alice"), "age": value.NewInt64(30),
	}))
	require.NoError(t, committing.Commit())

	aborting, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, users.Insert(aborting, table.Row{
		"id": value.NewInt64(2), "name": value.NewString("Bob"), "age": value.NewInt64(25),
	}))
	require.NoError(t, aborting.Rollback())

	_, ok, err := users.SelectByKey(value.NewInt64(2))
	require.NoError(t, err)
	require.False(t, ok)

	row, ok, err := users.SelectByKey(value.NewInt64(1))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Alice", row["name"].AsString())
}

// TestCrashRecoveryKeepsOnlyCommitted checks that a transaction which
// commits is recovered, while one abandoned mid-flight (process "crashes"
// before commit or rollback) is not.
func TestCrashRecoveryKeepsOnlyCommitted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s5")
	db := openDB(t, path)
	users, err := db.DeclareTable(usersSchema(t), 4)
	require.NoError(t, err)

	committed, err := db.Begin()
	require.NoError(t, err)
	for i := int64(1); i <= 3; i++ {
		require.NoError(t, users.Insert(committed, table.Row{
			"id": value.NewInt64(i), "name": value.NewString("x"), "age": value.NewInt64(0),
		}))
	}
	require.NoError(t, committed.Commit())

	abandoned, err := db.Begin()
	require.NoError(t, err)
	for i := int64(4); i <= 5; i++ {
		require.NoError(t, users.Insert(abandoned, table.Row{
			"id": value.NewInt64(i), "name": value.NewString("x"), "age": value.NewInt64(0),
		}))
	}
	// Simulate a crash: drop the database without committing or rolling
	// back the second transaction, and without a graceful Close.
	require.NoError(t, db.store.Close())
	require.NoError(t, db.log.Close())

	reopened := openDB(t, path)
	defer reopened.Close()
	reopenedUsers, err := reopened.DeclareTable(usersSchema(t), 4)
	require.NoError(t, err)
	require.NoError(t, reopened.Recover())

	for _, id := range []int64{1, 2, 3} {
		_, ok, err := reopenedUsers.SelectByKey(value.NewInt64(id))
		require.NoError(t, err)
		require.True(t, ok, "key %d should have been recovered", id)
	}
	for _, id := range []int64{4, 5} {
		_, ok, err := reopenedUsers.SelectByKey(value.NewInt64(id))
		require.NoError(t, err)
		require.False(t, ok, "key %d should not have survived an uncommitted crash", id)
	}
}

// TestConcurrentInsertsNoDuplicatesNoTorn runs many goroutines inserting
// disjoint keys concurrently and checks the final scan has no duplicates
// or gaps in ordering.
func TestConcurrentInsertsNoDuplicatesNoTorn(t *testing.T) {
	db := openDB(t, filepath.Join(t.TempDir(), "s6"))
	defer db.Close()

	users, err := db.DeclareTable(usersSchema(t), 8)
	require.NoError(t, err)

	const workers = 10
	const perWorker = 100

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			tx, err := db.Begin()
			require.NoError(t, err)
			for i := 0; i < perWorker; i++ {
				id := int64(w*perWorker + i)
				require.NoError(t, users.Insert(tx, table.Row{
					"id": value.NewInt64(id), "name": value.NewString("x"), "age": value.NewInt64(0),
				}))
			}
			require.NoError(t, tx.Commit())
		}(w)
	}
	wg.Wait()

	rows, err := users.Scan()
	require.NoError(t, err)
	require.Len(t, rows, workers*perWorker)

	seen := make(map[int64]bool, len(rows))
	var prev int64 = -1
	for _, row := range rows {
		id := row["id"].AsInt64()
		require.False(t, seen[id], "duplicate key %d", id)
		seen[id] = true
		require.Greater(t, id, prev)
		prev = id
	}
}
