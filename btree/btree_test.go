package btree

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mdedb/mde/mdeerrors"
	"github.com/mdedb/mde/value"
)

func newIntTree(t *testing.T, order int) *Tree {
	t.Helper()
	tr, err := New(order, value.VariantInt64)
	require.NoError(t, err)
	return tr
}

// TestIterAllYieldsIncreasingOrder checks IterAll yields strictly
// increasing keys regardless of insertion order.
func TestIterAllYieldsIncreasingOrder(t *testing.T) {
	tr := newIntTree(t, 4)
	for _, k := range []int64{50, 10, 30, 20, 40, 5, 60, 1, 100} {
		require.NoError(t, tr.Insert(value.NewInt64(k), []byte{byte(k)}))
	}

	pairs, err := tr.IterAll()
	require.NoError(t, err)

	var prev int64
	for i, p := range pairs {
		if i > 0 {
			require.Greater(t, p.Key.AsInt64(), prev)
		}
		prev = p.Key.AsInt64()
	}
	require.Len(t, pairs, 9)
}

// TestInsertThenFind verifies the insert/find round trip: find(k) returns
// the value just inserted.
func TestInsertThenFind(t *testing.T) {
	tr := newIntTree(t, 4)
	require.NoError(t, tr.Insert(value.NewInt64(7), []byte("seven")))

	v, ok, err := tr.Find(value.NewInt64(7))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "seven", string(v))

	_, ok, err = tr.Find(value.NewInt64(8))
	require.NoError(t, err)
	require.False(t, ok)
}

// TestDeleteThenFindMisses verifies a deleted key no longer reports a hit.
func TestDeleteThenFindMisses(t *testing.T) {
	tr := newIntTree(t, 4)
	require.NoError(t, tr.Insert(value.NewInt64(7), []byte("seven")))

	found, err := tr.Delete(value.NewInt64(7))
	require.NoError(t, err)
	require.True(t, found)

	_, ok, err := tr.Find(value.NewInt64(7))
	require.NoError(t, err)
	require.False(t, ok)

	found, err = tr.Delete(value.NewInt64(7))
	require.NoError(t, err)
	require.False(t, found)
}

// TestUpsertOverwritesWithoutGrowingCount checks a second insert at the
// same key overwrites in place rather than growing the tree's count.
func TestUpsertOverwritesWithoutGrowingCount(t *testing.T) {
	tr := newIntTree(t, 4)
	require.NoError(t, tr.Insert(value.NewInt64(1), []byte("v1")))
	require.Equal(t, 1, tr.Len())

	require.NoError(t, tr.Insert(value.NewInt64(1), []byte("v2")))
	require.Equal(t, 1, tr.Len())

	v, ok, err := tr.Find(value.NewInt64(1))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v2", string(v))
}

// TestSplitsPreserveOrderAcrossManyInserts checks that inserting enough
// keys to force several leaf and internal splits still leaves the tree
// fully ordered and complete under a full scan.
func TestSplitsPreserveOrderAcrossManyInserts(t *testing.T) {
	tr := newIntTree(t, 3) // smallest order, forces frequent splits
	const n = 500
	for i := int64(0); i < n; i++ {
		require.NoError(t, tr.Insert(value.NewInt64(i), []byte{byte(i)}))
	}
	require.Equal(t, n, tr.Len())

	pairs, err := tr.IterAll()
	require.NoError(t, err)
	require.Len(t, pairs, n)
	for i, p := range pairs {
		require.Equal(t, int64(i), p.Key.AsInt64())
	}
}

// TestRangeInclusiveBounds checks Range(5,10) over a 1..20 tree
// returns exactly 5..10 in order.
func TestRangeInclusiveBounds(t *testing.T) {
	tr := newIntTree(t, 4)
	for i := int64(1); i <= 20; i++ {
		require.NoError(t, tr.Insert(value.NewInt64(i), []byte{byte(i)}))
	}

	pairs, err := tr.Range(value.NewInt64(5), true, value.NewInt64(10), true)
	require.NoError(t, err)

	var got []int64
	for _, p := range pairs {
		got = append(got, p.Key.AsInt64())
	}
	require.Equal(t, []int64{5, 6, 7, 8, 9, 10}, got)
}

func TestRangeOpenBounds(t *testing.T) {
	tr := newIntTree(t, 4)
	for i := int64(1); i <= 10; i++ {
		require.NoError(t, tr.Insert(value.NewInt64(i), []byte{byte(i)}))
	}

	lowOnly, err := tr.Range(value.NewInt64(8), true, value.Value{}, false)
	require.NoError(t, err)
	require.Len(t, lowOnly, 3) // 8, 9, 10

	highOnly, err := tr.Range(value.Value{}, false, value.NewInt64(3), true)
	require.NoError(t, err)
	require.Len(t, highOnly, 3) // 1, 2, 3
}

func TestKeyVariantMismatchRejected(t *testing.T) {
	tr := newIntTree(t, 4)
	err := tr.Insert(value.NewString("nope"), []byte("x"))
	require.ErrorIs(t, err, mdeerrors.ErrKeyMismatchType)
}

func TestNewRejectsOrderBelowMinimum(t *testing.T) {
	_, err := New(2, value.VariantInt64)
	require.ErrorIs(t, err, mdeerrors.ErrInvalidArgument)
}

func TestConcurrentInsertsSerializeCorrectly(t *testing.T) {
	tr := newIntTree(t, 4)
	const workers = 8
	const perWorker = 100

	done := make(chan struct{})
	for w := 0; w < workers; w++ {
		go func(w int) {
			for i := 0; i < perWorker; i++ {
				k := int64(w*perWorker + i)
				_ = tr.Insert(value.NewInt64(k), []byte{byte(k)})
			}
			done <- struct{}{}
		}(w)
	}
	for w := 0; w < workers; w++ {
		<-done
	}

	require.Equal(t, workers*perWorker, tr.Len())
	pairs, err := tr.IterAll()
	require.NoError(t, err)
	var prev int64 = -1
	for _, p := range pairs {
		require.Greater(t, p.Key.AsInt64(), prev)
		prev = p.Key.AsInt64()
	}
}
