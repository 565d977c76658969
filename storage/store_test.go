package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mdedb/mde/mdeerrors"
)

func tempOptions(t *testing.T, cacheCapacity int, extentCache, memoryMapped bool) Options {
	t.Helper()
	return Options{
		Path:          filepath.Join(t.TempDir(), "test.mde"),
		CacheCapacity: cacheCapacity,
		MemoryMapped:  memoryMapped,
		ExtentCache:   extentCache,
	}
}

func TestOpenCreatesFreshHeader(t *testing.T) {
	s, err := Open(tempOptions(t, 4, true, false))
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, uint32(0), s.HeaderTableCount())
}

func TestAllocateWriteReadRoundTrip(t *testing.T) {
	s, err := Open(tempOptions(t, 4, true, false))
	require.NoError(t, err)
	defer s.Close()

	id, err := s.AllocatePage()
	require.NoError(t, err)
	require.Equal(t, uint32(1), id)

	page, err := s.ReadPage(id)
	require.NoError(t, err)
	copy(page.Data(), []byte("hello world"))
	require.NoError(t, s.WritePage(page))

	reread, err := s.ReadPage(id)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(reread.Data()[:11]))
}

// TestReopenPreservesData checks data survives a Close/Open cycle
// against the same backing file.
func TestReopenPreservesData(t *testing.T) {
	opts := tempOptions(t, 4, true, false)

	s, err := Open(opts)
	require.NoError(t, err)
	id, err := s.AllocatePage()
	require.NoError(t, err)
	page, err := s.ReadPage(id)
	require.NoError(t, err)
	copy(page.Data(), []byte("durable"))
	require.NoError(t, s.WritePage(page))
	require.NoError(t, s.Close())

	reopened, err := Open(opts)
	require.NoError(t, err)
	defer reopened.Close()

	reread, err := reopened.ReadPage(id)
	require.NoError(t, err)
	require.Equal(t, "durable", string(reread.Data()[:7]))
	require.Equal(t, uint32(2), reopened.header.NextPageID)
}

// TestCacheHitServesIdenticalPage checks a page fetched twice without
// an intervening write returns the same cached value both times.
func TestCacheHitServesIdenticalPage(t *testing.T) {
	s, err := Open(tempOptions(t, 4, false, false))
	require.NoError(t, err)
	defer s.Close()

	id, err := s.AllocatePage()
	require.NoError(t, err)

	first, err := s.ReadPage(id)
	require.NoError(t, err)
	second, err := s.ReadPage(id)
	require.NoError(t, err)
	require.Same(t, first, second)

	stats := s.Stats()
	require.Equal(t, int64(1), stats.CacheMisses)
	require.Equal(t, int64(1), stats.CacheHits)
}

// TestCacheEvictionKeepsWrittenPagesReadable checks that once the cache
// overflows its capacity, pages written with WritePage (which writes
// through and leaves them clean) and then evicted are read back from disk
// with their content intact.
func TestCacheEvictionKeepsWrittenPagesReadable(t *testing.T) {
	s, err := Open(tempOptions(t, 2, false, false))
	require.NoError(t, err)
	defer s.Close()

	var ids []uint32
	for i := 0; i < 4; i++ {
		id, err := s.AllocatePage()
		require.NoError(t, err)
		page, err := s.ReadPage(id)
		require.NoError(t, err)
		copy(page.Data(), []byte{byte(i + 1)})
		require.NoError(t, s.WritePage(page))
		ids = append(ids, id)
	}

	require.LessOrEqual(t, s.pageCache.Len(), 2)

	for i, id := range ids {
		page, err := s.ReadPage(id)
		require.NoError(t, err)
		require.Equal(t, byte(i+1), page.Data()[0])
	}
}

func TestReadPastAllocatedEndIsZeroFilled(t *testing.T) {
	s, err := Open(tempOptions(t, 4, true, false))
	require.NoError(t, err)
	defer s.Close()

	page, err := s.ReadPage(7)
	require.NoError(t, err)
	for _, b := range page.Data() {
		require.Zero(t, b)
	}
}

func TestMemoryMappedRoundTrip(t *testing.T) {
	opts := tempOptions(t, 4, false, true)
	s, err := Open(opts)
	require.NoError(t, err)
	defer s.Close()

	var ids []uint32
	for i := 0; i < 300; i++ {
		id, err := s.AllocatePage()
		require.NoError(t, err)
		ids = append(ids, id)
	}

	page, err := s.ReadPage(ids[len(ids)-1])
	require.NoError(t, err)
	copy(page.Data(), []byte("mapped"))
	require.NoError(t, s.WritePage(page))
	require.NoError(t, s.Flush())

	reread, err := s.ReadPage(ids[len(ids)-1])
	require.NoError(t, err)
	require.Equal(t, "mapped", string(reread.Data()[:6]))
}

func TestOperationsAfterCloseFail(t *testing.T) {
	s, err := Open(tempOptions(t, 4, true, false))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.ReadPage(0)
	require.ErrorIs(t, err, mdeerrors.ErrClosed)
}
