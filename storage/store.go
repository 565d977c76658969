package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/mdedb/mde/cache"
	"github.com/mdedb/mde/mdeerrors"
	"github.com/mdedb/mde/metrics"
)

// Options controls how a Store opens its backing file.
type Options struct {
	Path string

	// CacheCapacity bounds the number of pages (or extents, if
	// ExtentCache is true) held in memory at once.
	CacheCapacity int

	// MemoryMapped switches read/write access to a memory-mapped view
	// of the file instead of positional I/O.
	MemoryMapped bool

	// ExtentCache groups pages into 8-page extents for caching
	// purposes, rather than caching individual pages.
	ExtentCache bool
}

// DefaultOptions returns the documented defaults: 100-page cache,
// no memory mapping, extent caching enabled.
func DefaultOptions(path string) Options {
	return Options{
		Path:          normalizePath(path),
		CacheCapacity: 100,
		MemoryMapped:  false,
		ExtentCache:   true,
	}
}

func normalizePath(path string) string {
	if filepath.Ext(path) == "" {
		return path + ".mde"
	}
	return path
}

// Stats reports cumulative counters for observability (cmd/mdectl reads
// these; package metrics keeps its own counters, incremented alongside).
type Stats struct {
	PageReads    int64
	PageWrites   int64
	BytesWritten int64
	CacheHits    int64
	CacheMisses  int64
}

// Store is the paged file store: backing file, header page, and an LRU
// page or extent cache standing in front of it.
type Store struct {
	mu   sync.RWMutex
	path string
	file *os.File

	header *Header

	useExtentCache bool
	pageCache      *cache.Cache[uint32, *Page]
	extentCache    *cache.Cache[uint32, *Extent]

	mm *mmapView // non-nil iff opened with MemoryMapped

	pageReads    atomic.Int64
	pageWrites   atomic.Int64
	bytesWritten atomic.Int64
	cacheHits    atomic.Int64
	cacheMisses  atomic.Int64

	closed atomic.Bool
}

// Open creates or opens the paged store named by opts.Path.
func Open(opts Options) (*Store, error) {
	path := normalizePath(opts.Path)
	capacity := opts.CacheCapacity
	if capacity <= 0 {
		capacity = 100
	}

	s := &Store{
		path:           path,
		useExtentCache: opts.ExtentCache,
	}

	file, err := os.OpenFile(path, os.O_RDWR, 0644)
	switch {
	case err == nil:
		if openErr := s.loadExisting(file); openErr != nil {
			file.Close()
			return nil, openErr
		}
	case os.IsNotExist(err):
		created, createErr := s.createFresh(path)
		if createErr != nil {
			return nil, createErr
		}
		file = created
	case os.IsPermission(err):
		return nil, fmt.Errorf("mde: opening %s: %w", path, mdeerrors.ErrPermissionDenied)
	default:
		return nil, fmt.Errorf("mde: opening %s: %w", path, mdeerrors.ErrIOFailure)
	}
	s.file = file

	pageWriteback := func(id uint32, p *Page) error { return s.writeThroughPage(p) }
	pageCache, err := cache.New[uint32, *Page](capacity, pageWriteback)
	if err != nil {
		file.Close()
		return nil, err
	}
	s.pageCache = pageCache

	if opts.ExtentCache {
		extentWriteback := func(id uint32, e *Extent) error { return s.writeThroughExtent(e) }
		extentCache, err := cache.New[uint32, *Extent](capacity, extentWriteback)
		if err != nil {
			file.Close()
			return nil, err
		}
		s.extentCache = extentCache
	}

	if opts.MemoryMapped {
		mm, err := openMmap(file)
		if err != nil {
			file.Close()
			return nil, err
		}
		s.mm = mm
	}

	return s, nil
}

func (s *Store) createFresh(path string) (*os.File, error) {
	file, err := os.Create(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("mde: creating %s: %w", path, mdeerrors.ErrNotFound)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("mde: creating %s: %w", path, mdeerrors.ErrPermissionDenied)
		}
		return nil, fmt.Errorf("mde: creating %s: %w", path, mdeerrors.ErrIOFailure)
	}

	s.header = NewHeader()
	headerPage := s.header.Encode()
	if _, err := file.WriteAt(headerPage.Data(), 0); err != nil {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("mde: writing header: %w", mdeerrors.ErrIOFailure)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("mde: syncing header: %w", mdeerrors.ErrIOFailure)
	}
	return file, nil
}

func (s *Store) loadExisting(file *os.File) error {
	buf := make([]byte, PageSize)
	if _, err := file.ReadAt(buf, 0); err != nil {
		return fmt.Errorf("mde: reading header: %w", mdeerrors.ErrCorruptedHeader)
	}
	header, err := DecodeHeader(buf)
	if err != nil {
		return err
	}
	s.header = header
	return nil
}

// ReadPage returns the page at id, serving from cache on hit.
func (s *Store) ReadPage(id uint32) (*Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readPageLocked(id)
}

func (s *Store) readPageLocked(id uint32) (*Page, error) {
	if s.closed.Load() {
		return nil, mdeerrors.ErrClosed
	}

	if s.useExtentCache {
		eid := ExtentOf(id)
		if ext, ok := s.extentCache.Get(eid); ok {
			s.cacheHits.Add(1)
			metrics.CacheHitsTotal.Inc()
			return ext.Page(int(OffsetInExtent(id))), nil
		}
		s.cacheMisses.Add(1)
		metrics.CacheMissesTotal.Inc()
		ext, err := s.loadExtentFromDisk(eid)
		if err != nil {
			return nil, err
		}
		s.extentCache.Put(eid, ext)
		return ext.Page(int(OffsetInExtent(id))), nil
	}

	if page, ok := s.pageCache.Get(id); ok {
		s.cacheHits.Add(1)
		metrics.CacheHitsTotal.Inc()
		return page, nil
	}
	s.cacheMisses.Add(1)
	metrics.CacheMissesTotal.Inc()

	page, err := s.loadPageFromDisk(id)
	if err != nil {
		return nil, err
	}
	s.pageCache.Put(id, page)
	return page, nil
}

func (s *Store) loadPageFromDisk(id uint32) (*Page, error) {
	buf := make([]byte, PageSize)
	if err := s.readAt(buf, int64(id)*PageSize); err != nil {
		return nil, err
	}
	s.pageReads.Add(1)
	return LoadPage(id, buf), nil
}

func (s *Store) loadExtentFromDisk(eid uint32) (*Extent, error) {
	var pages [ExtentSize]*Page
	for i := 0; i < ExtentSize; i++ {
		pid := FirstPageOf(eid) + uint32(i)
		p, err := s.loadPageFromDisk(pid)
		if err != nil {
			return nil, err
		}
		pages[i] = p
	}
	return NewExtent(eid, pages), nil
}

// readAt performs a positional read, zero-padding a short read past EOF.
func (s *Store) readAt(buf []byte, offset int64) error {
	if s.mm != nil {
		return s.mm.readAt(buf, offset)
	}
	_, err := s.file.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("mde: reading page: %w", mdeerrors.ErrIOFailure)
	}
	// A full or partial short read past EOF leaves the remainder of buf
	// at its zero value, which is the documented zero-fill contract.
	return nil
}

// WritePage marks page dirty, installs it in cache, and writes it through
// to the backing store immediately.
func (s *Store) WritePage(page *Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return mdeerrors.ErrClosed
	}

	page.SetDirty(true)

	if s.useExtentCache {
		eid := ExtentOf(page.ID())
		ext, ok := s.extentCache.Peek(eid)
		if !ok {
			loaded, err := s.loadExtentFromDisk(eid)
			if err != nil {
				return err
			}
			ext = loaded
		}
		ext.pages[OffsetInExtent(page.ID())] = page
		s.extentCache.Put(eid, ext)
	} else {
		s.pageCache.Put(page.ID(), page)
	}

	if err := s.writeThroughPage(page); err != nil {
		return err
	}
	page.SetDirty(false)
	return nil
}

func (s *Store) writeThroughPage(page *Page) error {
	offset := int64(page.ID()) * PageSize
	if err := s.writeAt(page.Data(), offset); err != nil {
		return err
	}
	s.pageWrites.Add(1)
	s.bytesWritten.Add(PageSize)
	metrics.PageWritebacksTotal.Inc()
	return nil
}

func (s *Store) writeThroughExtent(e *Extent) error {
	for _, p := range e.pages {
		if p == nil || !p.IsDirty() {
			continue
		}
		if err := s.writeThroughPage(p); err != nil {
			return err
		}
		p.SetDirty(false)
	}
	return nil
}

func (s *Store) writeAt(buf []byte, offset int64) error {
	if s.mm != nil {
		return s.mm.writeAt(buf, offset)
	}
	if _, err := s.file.WriteAt(buf, offset); err != nil {
		return fmt.Errorf("mde: writing page: %w", mdeerrors.ErrIOFailure)
	}
	return nil
}

// ReadExtent reads all 8 pages of the extent; pages past EOF come back
// zero-filled and clean.
func (s *Store) ReadExtent(eid uint32) (*Extent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.useExtentCache {
		if ext, ok := s.extentCache.Get(eid); ok {
			s.cacheHits.Add(1)
			metrics.CacheHitsTotal.Inc()
			return ext, nil
		}
	}
	s.cacheMisses.Add(1)
	metrics.CacheMissesTotal.Inc()
	ext, err := s.loadExtentFromDisk(eid)
	if err != nil {
		return nil, err
	}
	if s.useExtentCache {
		s.extentCache.Put(eid, ext)
	}
	return ext, nil
}

// WriteExtent writes each dirty page of e individually at its natural
// offset, clearing dirty on success.
func (s *Store) WriteExtent(e *Extent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeThroughExtent(e); err != nil {
		return err
	}
	if s.useExtentCache {
		s.extentCache.Put(e.ID(), e)
	}
	return nil
}

// AllocatePage consumes the header's next_page_id cursor under the
// store's exclusive lock, persists the new cursor, extends the file to
// cover the new page, and returns the id just consumed.
func (s *Store) AllocatePage() (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return 0, mdeerrors.ErrClosed
	}

	id := s.header.NextPageID
	s.header.NextPageID++
	metrics.PagesAllocatedTotal.Inc()

	if err := s.writeThroughPage(s.header.Encode()); err != nil {
		s.header.NextPageID--
		return 0, err
	}

	newEnd := int64(id+1) * PageSize
	if s.mm == nil {
		if fi, err := s.file.Stat(); err == nil && fi.Size() < newEnd {
			if err := s.file.Truncate(newEnd); err != nil {
				return 0, fmt.Errorf("mde: extending file: %w", mdeerrors.ErrIOFailure)
			}
		}
	} else if err := s.mm.ensureSize(newEnd); err != nil {
		return 0, err
	}

	return id, nil
}

// Flush writes every dirty cache entry through to disk and durably syncs
// the file.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	if s.closed.Load() {
		return mdeerrors.ErrClosed
	}
	return s.flushDirtyLocked()
}

// flushDirtyLocked performs the actual writeback and sync without
// checking s.closed, so Close can reuse it during its own shutdown.
func (s *Store) flushDirtyLocked() error {
	if s.useExtentCache {
		for _, eid := range s.extentCache.DirtyIter() {
			if ext, ok := s.extentCache.Peek(eid); ok {
				if err := s.writeThroughExtent(ext); err != nil {
					return err
				}
			}
		}
	} else {
		for _, id := range s.pageCache.DirtyIter() {
			if page, ok := s.pageCache.Peek(id); ok {
				if err := s.writeThroughPage(page); err != nil {
					return err
				}
				page.SetDirty(false)
			}
		}
	}

	if s.mm != nil {
		if err := s.mm.sync(); err != nil {
			return err
		}
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("mde: syncing store: %w", mdeerrors.ErrIOFailure)
	}
	return nil
}

// Close flushes and releases the store's file and mapping resources.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.flushDirtyLocked(); err != nil {
		return err
	}

	if s.pageCache != nil {
		s.pageCache.Clear()
	}
	if s.extentCache != nil {
		s.extentCache.Clear()
	}
	if s.mm != nil {
		if err := s.mm.close(); err != nil {
			return err
		}
	}
	return s.file.Close()
}

// HeaderTableCount and SetHeaderTableCount expose the header's reserved
// table_count field so the table façade can persist how many tables it
// has declared without the store needing to know anything about
// schemas.
func (s *Store) HeaderTableCount() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.header.TableCount
}

func (s *Store) SetHeaderTableCount(n uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.header.TableCount = n
	return s.writeThroughPage(s.header.Encode())
}

// Stats returns a snapshot of cumulative store counters.
func (s *Store) Stats() Stats {
	return Stats{
		PageReads:    s.pageReads.Load(),
		PageWrites:   s.pageWrites.Load(),
		BytesWritten: s.bytesWritten.Load(),
		CacheHits:    s.cacheHits.Load(),
		CacheMisses:  s.cacheMisses.Load(),
	}
}

// Path returns the normalized backing file path.
func (s *Store) Path() string { return s.path }
