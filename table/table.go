package table

import (
	"github.com/mdedb/mde/btree"
	"github.com/mdedb/mde/mdeerrors"
	"github.com/mdedb/mde/txn"
	"github.com/mdedb/mde/value"
)

// Table wires a declared Schema to the B+ tree that actually holds its
// rows, and drives the transaction manager's logging on every mutation.
type Table struct {
	schema Schema
	tree   *btree.Tree
}

// New constructs a table over a fresh tree keyed by the schema's primary
// key variant and order M.
func New(schema Schema, order int) (*Table, error) {
	tree, err := btree.New(order, schema.PrimaryKeyVariant())
	if err != nil {
		return nil, err
	}
	return &Table{schema: schema, tree: tree}, nil
}

// Schema returns the table's declared schema.
func (t *Table) Schema() Schema { return t.schema }

// Apply installs or removes a row directly in the tree per a WAL record,
// without going through transaction logging. This is the façade's redo
// callback used during rollback's undo dispatch and
// recovery's replay; engine.Database routes records to the right table's
// Apply by table name.
func (t *Table) Apply(key value.Value, op ApplyOp, blob []byte) error {
	switch op {
	case ApplyUpsert:
		return t.tree.Insert(key, blob)
	case ApplyDelete:
		_, err := t.tree.Delete(key)
		return err
	default:
		return nil
	}
}

// ApplyOp distinguishes the two effects Apply can have.
type ApplyOp int

const (
	ApplyUpsert ApplyOp = iota
	ApplyDelete
)

// Insert upserts row under its primary key: if the key is new this logs
// an Insert record, if it already exists this logs an Update record
// (the tree's insert is an upsert either way).
func (t *Table) Insert(tx *txn.Transaction, row Row) error {
	key, err := t.schema.primaryKey(row)
	if err != nil {
		return err
	}
	blob, err := t.schema.EncodeRow(row)
	if err != nil {
		return err
	}
	keyBytes, err := value.EncodeKey(key)
	if err != nil {
		return err
	}

	old, existed, err := t.tree.Find(key)
	if err != nil {
		return err
	}

	if err := t.tree.Insert(key, blob); err != nil {
		return err
	}

	if existed {
		return tx.LogUpdate(t.schema.Name, keyBytes, old, blob)
	}
	return tx.LogInsert(t.schema.Name, keyBytes, blob)
}

// Update is Insert's synonym for callers that want to assert the row
// already exists; it returns mdeerrors.ErrKeyNotFound otherwise.
func (t *Table) Update(tx *txn.Transaction, row Row) error {
	key, err := t.schema.primaryKey(row)
	if err != nil {
		return err
	}
	_, existed, err := t.tree.Find(key)
	if err != nil {
		return err
	}
	if !existed {
		return mdeerrors.ErrKeyNotFound
	}
	return t.Insert(tx, row)
}

// Delete removes the row at key, logging a Delete record carrying the
// prior row bytes for undo. Reports whether a row was present.
func (t *Table) Delete(tx *txn.Transaction, key value.Value) (bool, error) {
	old, existed, err := t.tree.Find(key)
	if err != nil {
		return false, err
	}
	if !existed {
		return false, nil
	}
	if _, err := t.tree.Delete(key); err != nil {
		return false, err
	}
	keyBytes, err := value.EncodeKey(key)
	if err != nil {
		return false, err
	}
	if err := tx.LogDelete(t.schema.Name, keyBytes, old); err != nil {
		return false, err
	}
	return true, nil
}

// SelectByKey returns the decoded row at key, or (nil, false) on a miss.
// This is a direct tree read: it requires no transaction.
func (t *Table) SelectByKey(key value.Value) (Row, bool, error) {
	blob, ok, err := t.tree.Find(key)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	row, err := t.schema.DecodeRow(blob)
	if err != nil {
		return nil, false, err
	}
	return row, true, nil
}

// Scan returns every row in ascending primary-key order.
func (t *Table) Scan() ([]Row, error) {
	pairs, err := t.tree.IterAll()
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(pairs))
	for _, p := range pairs {
		row, err := t.schema.DecodeRow(p.Value)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// RangeScan returns every row whose primary key falls in [lo, hi]
// inclusive. Pass hasLo/hasHi false to leave that bound open.
func (t *Table) RangeScan(lo value.Value, hasLo bool, hi value.Value, hasHi bool) ([]Row, error) {
	pairs, err := t.tree.Range(lo, hasLo, hi, hasHi)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(pairs))
	for _, p := range pairs {
		row, err := t.schema.DecodeRow(p.Value)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Len returns the number of rows currently in the table.
func (t *Table) Len() int { return t.tree.Len() }
