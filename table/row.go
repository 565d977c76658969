package table

import (
	"encoding/binary"
	"fmt"

	"github.com/mdedb/mde/mdeerrors"
	"github.com/mdedb/mde/value"
)

// Row is a single record, keyed by column name. The primary key column
// is carried in Row like any other, and also used separately to derive
// the tree key.
type Row map[string]value.Value

// primaryKey extracts and validates the row's primary key value against
// the schema.
func (s Schema) primaryKey(row Row) (value.Value, error) {
	v, ok := row[s.PrimaryKey]
	if !ok {
		return value.Value{}, fmt.Errorf("mde: row missing primary key column %q: %w", s.PrimaryKey, mdeerrors.ErrPrimaryKeyMissing)
	}
	return v, nil
}

// EncodeRow serializes row into a single opaque blob, in schema column
// order, each field length-prefixed so DecodeRow can walk it back out
// without needing to know each variant's fixed width up front. Unknown
// columns in row are rejected; missing optional columns are encoded null.
func (s Schema) EncodeRow(row Row) ([]byte, error) {
	for name := range row {
		if _, ok := s.column(name); !ok {
			return nil, fmt.Errorf("mde: column %q not declared on table %s: %w", name, s.Name, mdeerrors.ErrUnknownColumn)
		}
	}

	var out []byte
	for _, col := range s.Columns {
		v, ok := row[col.Name]
		if !ok {
			v = value.NewNull(col.Variant)
		}
		body := value.Encode(v)
		lenBuf := make([]byte, 4)
		binary.BigEndian.PutUint32(lenBuf, uint32(len(body)))
		out = append(out, lenBuf...)
		out = append(out, body...)
	}
	return out, nil
}

// DecodeRow is the inverse of EncodeRow.
func (s Schema) DecodeRow(blob []byte) (Row, error) {
	row := make(Row, len(s.Columns))
	off := 0
	for _, col := range s.Columns {
		if off+4 > len(blob) {
			return nil, mdeerrors.ErrDecodeTruncated
		}
		fieldLen := int(binary.BigEndian.Uint32(blob[off:]))
		off += 4
		if off+fieldLen > len(blob) {
			return nil, mdeerrors.ErrDecodeTruncated
		}
		v, err := value.Decode(blob[off:off+fieldLen], col.Variant)
		if err != nil {
			return nil, err
		}
		row[col.Name] = v
		off += fieldLen
	}
	return row, nil
}
