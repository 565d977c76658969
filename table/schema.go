/*
Package table implements the thin row/schema façade deliberately kept
out of the storage core: schema declaration, row encode/decode over the
value codec, and the Insert/Update/Delete/SelectByKey/Scan operations
that drive the B+ tree, transaction manager, and WAL underneath. The
core itself sees only keys and opaque byte-string values; this package
is what turns those into named, typed rows.
*/
package table

import (
	"fmt"

	"github.com/mdedb/mde/mdeerrors"
	"github.com/mdedb/mde/value"
)

// Column declares one row field: its name and scalar variant.
type Column struct {
	Name    string
	Variant value.Variant
}

// Schema declares a table's shape: an ordered column list and which
// column is the primary key.
type Schema struct {
	Name          string
	Columns       []Column
	PrimaryKey    string
	primaryColumn Column
}

// NewSchema validates and builds a Schema. The primary key column must
// be present in columns.
func NewSchema(name string, primaryKey string, columns ...Column) (Schema, error) {
	var pk Column
	found := false
	for _, c := range columns {
		if c.Name == primaryKey {
			pk = c
			found = true
			break
		}
	}
	if !found {
		return Schema{}, fmt.Errorf("mde: primary key column %q not declared: %w", primaryKey, mdeerrors.ErrPrimaryKeyMissing)
	}
	return Schema{Name: name, Columns: columns, PrimaryKey: primaryKey, primaryColumn: pk}, nil
}

// column returns the declared column named name, or false.
func (s Schema) column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// PrimaryKeyVariant returns the scalar variant backing the tree for this
// schema (the tree is constructed with this as its key type).
func (s Schema) PrimaryKeyVariant() value.Variant { return s.primaryColumn.Variant }
