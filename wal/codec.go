package wal

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/mdedb/mde/mdeerrors"
)

// absentLength marks a nil Old/New field in the wire encoding, so an
// empty-but-present blob (len 0) is distinguishable from an absent one.
const absentLength = 0xFFFFFFFF

// encodeBody serializes a Record's fields (everything after the outer
// u32 length prefix), ending in a CRC32 checksum of the preceding bytes.
func encodeBody(r Record) []byte {
	size := 8 /*seq*/ + 8 /*txn*/ + 1 /*op*/ +
		2 + len(r.Table) +
		4 + len(r.Key) +
		4 + blobLen(r.Old) +
		4 + blobLen(r.New) +
		8 /*timestamp*/ + 4 /*crc*/

	buf := make([]byte, size)
	off := 0

	binary.BigEndian.PutUint64(buf[off:], r.Sequence)
	off += 8
	binary.BigEndian.PutUint64(buf[off:], uint64(r.TxnID))
	off += 8
	buf[off] = byte(r.Op)
	off++

	binary.BigEndian.PutUint16(buf[off:], uint16(len(r.Table)))
	off += 2
	off += copy(buf[off:], r.Table)

	binary.BigEndian.PutUint32(buf[off:], uint32(len(r.Key)))
	off += 4
	off += copy(buf[off:], r.Key)

	off += putBlob(buf[off:], r.Old)
	off += putBlob(buf[off:], r.New)

	binary.BigEndian.PutUint64(buf[off:], uint64(r.TimestampMillis))
	off += 8

	crc := crc32.ChecksumIEEE(buf[:off])
	binary.BigEndian.PutUint32(buf[off:], crc)

	return buf
}

func blobLen(b []byte) int {
	if b == nil {
		return 0
	}
	return len(b)
}

func putBlob(dst []byte, b []byte) int {
	if b == nil {
		binary.BigEndian.PutUint32(dst, absentLength)
		return 4
	}
	binary.BigEndian.PutUint32(dst, uint32(len(b)))
	return 4 + copy(dst[4:], b)
}

// decodeBody parses and checksum-validates a record body, the inverse of
// encodeBody.
func decodeBody(buf []byte) (Record, error) {
	var r Record
	off := 0

	if len(buf) < 8+8+1+2 {
		return r, mdeerrors.ErrFramingCorruption
	}
	r.Sequence = binary.BigEndian.Uint64(buf[off:])
	off += 8
	r.TxnID = int64(binary.BigEndian.Uint64(buf[off:]))
	off += 8
	r.Op = Op(buf[off])
	off++

	tableLen := int(binary.BigEndian.Uint16(buf[off:]))
	off += 2
	if off+tableLen > len(buf) {
		return r, mdeerrors.ErrFramingCorruption
	}
	r.Table = string(buf[off : off+tableLen])
	off += tableLen

	key, n, err := getBlobRequired(buf[off:])
	if err != nil {
		return r, err
	}
	r.Key = key
	off += n

	old, n, err := getBlobOptional(buf[off:])
	if err != nil {
		return r, err
	}
	r.Old = old
	off += n

	newVal, n, err := getBlobOptional(buf[off:])
	if err != nil {
		return r, err
	}
	r.New = newVal
	off += n

	if off+8+4 > len(buf) {
		return r, mdeerrors.ErrFramingCorruption
	}
	r.TimestampMillis = int64(binary.BigEndian.Uint64(buf[off:]))
	off += 8

	crc := binary.BigEndian.Uint32(buf[off:])
	if crc32.ChecksumIEEE(buf[:off]) != crc {
		return r, mdeerrors.ErrFramingCorruption
	}
	return r, nil
}

func getBlobRequired(buf []byte) ([]byte, int, error) {
	if len(buf) < 4 {
		return nil, 0, mdeerrors.ErrFramingCorruption
	}
	l := int(binary.BigEndian.Uint32(buf))
	if l == absentLength || 4+l > len(buf) {
		return nil, 0, mdeerrors.ErrFramingCorruption
	}
	return append([]byte{}, buf[4:4+l]...), 4 + l, nil
}

func getBlobOptional(buf []byte) ([]byte, int, error) {
	if len(buf) < 4 {
		return nil, 0, mdeerrors.ErrFramingCorruption
	}
	raw := binary.BigEndian.Uint32(buf)
	if raw == absentLength {
		return nil, 4, nil
	}
	l := int(raw)
	if 4+l > len(buf) {
		return nil, 0, mdeerrors.ErrFramingCorruption
	}
	return append([]byte{}, buf[4:4+l]...), 4 + l, nil
}
