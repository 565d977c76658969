package storage

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/mdedb/mde/mdeerrors"
)

// mmapView backs a Store's optional memory-mapped access mode. It
// replaces positional ReadAt/WriteAt with a single shared mapping,
// growing and remapping the file as pages are allocated past its
// current extent.
type mmapView struct {
	mu   sync.RWMutex
	file *os.File
	data []byte
}

// mmapGrowth rounds newly-mapped regions up to this many bytes so that
// AllocatePage doesn't force a remap on every single page.
const mmapGrowth = 256 * PageSize

func openMmap(file *os.File) (*mmapView, error) {
	fi, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("mde: stat for mmap: %w", mdeerrors.ErrIOFailure)
	}

	size := fi.Size()
	if size == 0 {
		size = PageSize
		if err := file.Truncate(size); err != nil {
			return nil, fmt.Errorf("mde: truncating for mmap: %w", mdeerrors.ErrIOFailure)
		}
	}

	v := &mmapView{file: file}
	if err := v.mapLocked(size); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *mmapView) mapLocked(size int64) error {
	data, err := unix.Mmap(int(v.file.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("mde: mmap: %w", mdeerrors.ErrIOFailure)
	}
	v.data = data
	return nil
}

func (v *mmapView) readAt(buf []byte, offset int64) error {
	v.mu.RLock()
	defer v.mu.RUnlock()

	end := offset + int64(len(buf))
	if end > int64(len(v.data)) {
		// Past the mapped region: the page hasn't been allocated yet.
		// Zero-fill, matching the positional-I/O short-read contract.
		clear(buf)
		return nil
	}
	copy(buf, v.data[offset:end])
	return nil
}

func (v *mmapView) writeAt(buf []byte, offset int64) error {
	v.mu.RLock()
	defer v.mu.RUnlock()

	end := offset + int64(len(buf))
	if end > int64(len(v.data)) {
		return fmt.Errorf("mde: write past mapped extent: %w", mdeerrors.ErrIOFailure)
	}
	copy(v.data[offset:end], buf)
	return nil
}

// ensureSize grows the backing file and remaps it if newEnd exceeds the
// current mapping, called from AllocatePage under the store's write lock.
func (v *mmapView) ensureSize(newEnd int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if newEnd <= int64(len(v.data)) {
		return nil
	}

	grown := ((newEnd + mmapGrowth - 1) / mmapGrowth) * mmapGrowth
	if err := v.file.Truncate(grown); err != nil {
		return fmt.Errorf("mde: extending mmap file: %w", mdeerrors.ErrIOFailure)
	}
	if err := unix.Munmap(v.data); err != nil {
		return fmt.Errorf("mde: unmapping for remap: %w", mdeerrors.ErrIOFailure)
	}
	return v.mapLocked(grown)
}

// sync flushes the mapping's dirty pages back to the file.
func (v *mmapView) sync() error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if err := unix.Msync(v.data, unix.MS_SYNC); err != nil {
		return fmt.Errorf("mde: msync: %w", mdeerrors.ErrIOFailure)
	}
	return nil
}

func (v *mmapView) close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.data == nil {
		return nil
	}
	err := unix.Munmap(v.data)
	v.data = nil
	if err != nil {
		return fmt.Errorf("mde: munmap: %w", mdeerrors.ErrIOFailure)
	}
	return nil
}
