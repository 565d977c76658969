package storage

// ExtentSize is the number of consecutive pages grouped into one extent.
const ExtentSize = 8

// Extent addresses eight consecutive pages as a single cache unit.
type Extent struct {
	id    uint32
	pages [ExtentSize]*Page
}

// NewExtent builds an extent from exactly ExtentSize pages, which must
// already carry the correct ids (extentID*ExtentSize + i).
func NewExtent(id uint32, pages [ExtentSize]*Page) *Extent {
	return &Extent{id: id, pages: pages}
}

// ID returns the extent's id.
func (e *Extent) ID() uint32 { return e.id }

// Page returns the i'th page of the extent (0 <= i < ExtentSize).
func (e *Extent) Page(i int) *Page { return e.pages[i] }

// Pages returns the extent's constituent pages in order.
func (e *Extent) Pages() [ExtentSize]*Page { return e.pages }

// IsDirty reports true iff any constituent page is dirty. Implements
// cache.Entry.
func (e *Extent) IsDirty() bool {
	for _, p := range e.pages {
		if p != nil && p.IsDirty() {
			return true
		}
	}
	return false
}

// ExtentOf returns the id of the extent containing page pageID.
func ExtentOf(pageID uint32) uint32 { return pageID / ExtentSize }

// OffsetInExtent returns pageID's position within its extent.
func OffsetInExtent(pageID uint32) uint32 { return pageID % ExtentSize }

// FirstPageOf returns the id of the first page belonging to extentID.
func FirstPageOf(extentID uint32) uint32 { return extentID * ExtentSize }
