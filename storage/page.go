/*
Package storage implements the engine's paged file store: a single
backing file addressed in fixed 4 KiB pages, grouped eight-at-a-time into
extents, with a bounded LRU cache (package cache) standing between
callers and the file.

The B+ tree (package btree) is held entirely in memory and does not
store its nodes in these pages — the store is a complete, independently
useful subsystem in its own right (exercised directly by its own tests;
package engine opens it and exposes its Stats and Flush, and the table
façade does not use it), not a dependency of the tree.
*/
package storage

// PageSize is the fixed page size in bytes, matching the common OS page
// size.
const PageSize = 4096

// Page is a single fixed-size slab of the backing file.
type Page struct {
	id    uint32
	data  [PageSize]byte
	dirty bool
}

// NewPage allocates a fresh, zero-filled, dirty page with the given id.
func NewPage(id uint32) *Page {
	return &Page{id: id, dirty: true}
}

// LoadPage wraps raw bytes read from disk as a clean page.
func LoadPage(id uint32, data []byte) *Page {
	p := &Page{id: id}
	copy(p.data[:], data)
	return p
}

// ID returns the page's id.
func (p *Page) ID() uint32 { return p.id }

// Data returns the page's raw bytes. Callers that mutate the returned
// slice must call SetDirty(true) so the store knows to write it back.
func (p *Page) Data() []byte { return p.data[:] }

// IsDirty reports whether the page carries unflushed modifications.
// Implements cache.Entry.
func (p *Page) IsDirty() bool { return p.dirty }

// SetDirty marks or clears the page's dirty flag.
func (p *Page) SetDirty(dirty bool) { p.dirty = dirty }

// Clone returns a deep copy of the page, used by callers that want a
// private snapshot of a cached page's bytes.
func (p *Page) Clone() *Page {
	clone := &Page{id: p.id, dirty: p.dirty}
	copy(clone.data[:], p.data[:])
	return clone
}
