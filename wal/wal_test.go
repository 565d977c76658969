package wal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *WAL {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.wal")
	w, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w
}

func TestDefaultPathReplacesExtension(t *testing.T) {
	require.Equal(t, "/data/store.wal", DefaultPath("/data/store.mde"))
	require.Equal(t, "/data/store.wal", DefaultPath("/data/store"))
}

// TestAppendReadAllRoundTrip checks records survive the
// append/read-back round trip with every field intact.
func TestAppendReadAllRoundTrip(t *testing.T) {
	w := openTemp(t)

	rec := Record{
		TxnID: 1,
		Op:    OpInsert,
		Table: "accounts",
		Key:   []byte("k1"),
		New:   []byte("v1"),
	}
	seq, err := w.Append(rec)
	require.NoError(t, err)
	require.Equal(t, uint64(1), seq)

	all, err := w.ReadAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "accounts", all[0].Table)
	require.Equal(t, []byte("k1"), all[0].Key)
	require.Equal(t, []byte("v1"), all[0].New)
	require.Nil(t, all[0].Old)
	require.Equal(t, uint64(1), all[0].Sequence)
}

func TestSequenceIsMonotonicAcrossAppends(t *testing.T) {
	w := openTemp(t)
	for i := 0; i < 5; i++ {
		seq, err := w.Append(Record{Op: OpInsert, Table: "t", Key: []byte{byte(i)}, New: []byte{byte(i)}})
		require.NoError(t, err)
		require.Equal(t, uint64(i+1), seq)
	}
	require.Equal(t, uint64(5), w.Cursor())
}

func TestReadAfterFiltersBySequence(t *testing.T) {
	w := openTemp(t)
	for i := 0; i < 5; i++ {
		_, err := w.Append(Record{Op: OpInsert, Table: "t", Key: []byte{byte(i)}, New: []byte{byte(i)}})
		require.NoError(t, err)
	}
	recs, err := w.ReadAfter(3)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, uint64(4), recs[0].Sequence)
	require.Equal(t, uint64(5), recs[1].Sequence)
}

func TestOptionalBlobsRoundTripNilVsEmpty(t *testing.T) {
	w := openTemp(t)
	_, err := w.Append(Record{Op: OpDelete, Table: "t", Key: []byte("k"), Old: []byte{}})
	require.NoError(t, err)

	all, err := w.ReadAll()
	require.NoError(t, err)
	require.NotNil(t, all[0].Old)
	require.Empty(t, all[0].Old)
	require.Nil(t, all[0].New)
}

func TestCheckpointRecordedAndIgnoredForStateButTracked(t *testing.T) {
	w := openTemp(t)
	_, err := w.Append(Record{Op: OpInsert, Table: "t", Key: []byte("k"), New: []byte("v")})
	require.NoError(t, err)

	seq, err := w.Checkpoint()
	require.NoError(t, err)

	last, ok := w.LastCheckpoint()
	require.True(t, ok)
	require.Equal(t, seq, last)
}

func TestTruncateAfterCheckpointAlwaysRefuses(t *testing.T) {
	w := openTemp(t)
	_, err := w.Checkpoint()
	require.NoError(t, err)
	require.Error(t, w.TruncateAfterCheckpoint())
}

func TestClearResetsCursorAndFile(t *testing.T) {
	w := openTemp(t)
	_, err := w.Append(Record{Op: OpInsert, Table: "t", Key: []byte("k"), New: []byte("v")})
	require.NoError(t, err)

	require.NoError(t, w.Clear())
	require.Equal(t, uint64(0), w.Cursor())

	all, err := w.ReadAll()
	require.NoError(t, err)
	require.Empty(t, all)

	seq, err := w.Append(Record{Op: OpInsert, Table: "t", Key: []byte("k2"), New: []byte("v2")})
	require.NoError(t, err)
	require.Equal(t, uint64(1), seq)
}

// TestPartialTrailingRecordIsIgnored covers a crash-mid-append
// tolerance: a length header with a short/absent payload terminates the
// scan cleanly rather than erroring.
func TestPartialTrailingRecordIsIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.wal")
	w, err := Open(path)
	require.NoError(t, err)
	_, err = w.Append(Record{Op: OpInsert, Table: "t", Key: []byte("k"), New: []byte("v")})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND, 0644)
	require.NoError(t, err)
	_, err = f.Write([]byte{0x00, 0x00, 0x10, 0x00}) // length header claiming 4096 bytes, no payload
	require.NoError(t, err)
	require.NoError(t, f.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	all, err := reopened.ReadAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestReopenRecoversCursorAndCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.wal")
	w, err := Open(path)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := w.Append(Record{Op: OpInsert, Table: "t", Key: []byte{byte(i)}, New: []byte{byte(i)}})
		require.NoError(t, err)
	}
	ckpt, err := w.Checkpoint()
	require.NoError(t, err)
	require.NoError(t, w.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, ckpt, reopened.Cursor())
	last, ok := reopened.LastCheckpoint()
	require.True(t, ok)
	require.Equal(t, ckpt, last)
}
