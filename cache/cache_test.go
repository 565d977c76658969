package cache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeEntry struct {
	id    uint32
	dirty bool
}

func (f *fakeEntry) IsDirty() bool { return f.dirty }

func TestLRUEvictsOldestOnOverflow(t *testing.T) {
	c, err := New[uint32, *fakeEntry](2, nil)
	require.NoError(t, err)

	c.Put(1, &fakeEntry{id: 1})
	c.Put(2, &fakeEntry{id: 2})
	c.Put(3, &fakeEntry{id: 3}) // evicts 1, the least recently touched

	_, ok := c.Peek(1)
	require.False(t, ok, "earliest-touched entry should have been evicted")

	_, ok = c.Peek(2)
	require.True(t, ok)
	_, ok = c.Peek(3)
	require.True(t, ok)
}

func TestGetPromotesToHead(t *testing.T) {
	c, err := New[uint32, *fakeEntry](2, nil)
	require.NoError(t, err)

	c.Put(1, &fakeEntry{id: 1})
	c.Put(2, &fakeEntry{id: 2})
	c.Get(1) // touch 1, making 2 the LRU victim
	c.Put(3, &fakeEntry{id: 3})

	_, ok := c.Peek(2)
	require.False(t, ok)
	_, ok = c.Peek(1)
	require.True(t, ok)
}

func TestDirtyEvictionInvokesWriteback(t *testing.T) {
	var writtenBack []uint32
	wb := func(key uint32, value *fakeEntry) error {
		writtenBack = append(writtenBack, key)
		return nil
	}

	c, err := New[uint32, *fakeEntry](1, wb)
	require.NoError(t, err)

	c.Put(1, &fakeEntry{id: 1, dirty: true})
	c.Put(2, &fakeEntry{id: 2}) // evicts 1, which is dirty

	require.Equal(t, []uint32{1}, writtenBack)
}

func TestCleanEvictionSkipsWriteback(t *testing.T) {
	var calls int
	wb := func(key uint32, value *fakeEntry) error {
		calls++
		return nil
	}

	c, err := New[uint32, *fakeEntry](1, wb)
	require.NoError(t, err)

	c.Put(1, &fakeEntry{id: 1, dirty: false})
	c.Put(2, &fakeEntry{id: 2})

	require.Zero(t, calls)
}

func TestClearSkipsWriteback(t *testing.T) {
	var calls int
	wb := func(key uint32, value *fakeEntry) error {
		calls++
		return nil
	}

	c, err := New[uint32, *fakeEntry](4, wb)
	require.NoError(t, err)

	c.Put(1, &fakeEntry{id: 1, dirty: true})
	c.Put(2, &fakeEntry{id: 2, dirty: true})
	c.Clear()

	require.Zero(t, calls)
	require.Equal(t, 0, c.Len())
}

func TestDirtyIterReportsOnlyDirtyEntries(t *testing.T) {
	c, err := New[uint32, *fakeEntry](4, nil)
	require.NoError(t, err)

	c.Put(1, &fakeEntry{id: 1, dirty: true})
	c.Put(2, &fakeEntry{id: 2, dirty: false})
	c.Put(3, &fakeEntry{id: 3, dirty: true})

	dirty := c.DirtyIter()
	require.ElementsMatch(t, []uint32{1, 3}, dirty)
}
