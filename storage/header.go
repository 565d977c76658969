package storage

import (
	"encoding/binary"

	"github.com/mdedb/mde/mdeerrors"
)

// Header page (page 0) layout: [Magic(4)][Version(4)][NextPageID(4)][TableCount(4)]
const (
	HeaderPageID = 0

	// Magic is "MDE" packed into the low three bytes of a 32-bit word.
	Magic = 0x004D4445

	// CurrentVersion is the only header version this build understands.
	CurrentVersion = 1

	headerOffsetMagic      = 0
	headerOffsetVersion    = 4
	headerOffsetNextPageID = 8
	headerOffsetTableCount = 12
)

// Header is the decoded form of page 0.
type Header struct {
	Magic      uint32
	Version    uint32
	NextPageID uint32
	TableCount uint32
}

// NewHeader returns the header for a freshly created store: page ids are
// dense starting at 1, so the first user page allocated is 1.
func NewHeader() *Header {
	return &Header{
		Magic:      Magic,
		Version:    CurrentVersion,
		NextPageID: 1,
		TableCount: 0,
	}
}

// Encode writes the header into a fresh page-sized buffer.
func (h *Header) Encode() *Page {
	p := NewPage(HeaderPageID)
	binary.BigEndian.PutUint32(p.data[headerOffsetMagic:], h.Magic)
	binary.BigEndian.PutUint32(p.data[headerOffsetVersion:], h.Version)
	binary.BigEndian.PutUint32(p.data[headerOffsetNextPageID:], h.NextPageID)
	binary.BigEndian.PutUint32(p.data[headerOffsetTableCount:], h.TableCount)
	return p
}

// DecodeHeader validates and parses a header page's bytes.
func DecodeHeader(data []byte) (*Header, error) {
	if len(data) < PageSize {
		return nil, mdeerrors.ErrCorruptedHeader
	}
	h := &Header{
		Magic:      binary.BigEndian.Uint32(data[headerOffsetMagic:]),
		Version:    binary.BigEndian.Uint32(data[headerOffsetVersion:]),
		NextPageID: binary.BigEndian.Uint32(data[headerOffsetNextPageID:]),
		TableCount: binary.BigEndian.Uint32(data[headerOffsetTableCount:]),
	}
	if h.Magic != Magic {
		return nil, mdeerrors.ErrInvalidMagic
	}
	if h.Version != CurrentVersion {
		return nil, mdeerrors.ErrUnsupportedVersion
	}
	return h, nil
}
