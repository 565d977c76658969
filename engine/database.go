/*
Package engine wires the specified subsystems into a usable database:
paged store (package storage), B+ tree per declared table (package
btree), write-ahead log (package wal), transaction manager (package txn)
and table façade (package table). It enforces a fixed lock ordering
(Table -> Tree -> Transaction -> WAL -> Store) by construction: every
public Database method that spans subsystems acquires them in that
order, and never holds a tree lock across a WAL call in the reverse
direction (see package txn's Commit/Rollback for the inverted case this
avoids).

Open does not replay the WAL by itself: callers redeclare their tables
with DeclareTable and then call Recover, which reattaches the logged
records to those tables.
*/
package engine

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mdedb/mde/mdeerrors"
	"github.com/mdedb/mde/mdelog"
	"github.com/mdedb/mde/storage"
	"github.com/mdedb/mde/table"
	"github.com/mdedb/mde/txn"
	"github.com/mdedb/mde/value"
	"github.com/mdedb/mde/wal"
)

// DefaultTreeOrder is used by DeclareTable when the caller doesn't need
// a specific branching factor.
const DefaultTreeOrder = 64

// Options controls how a Database opens its backing files.
type Options struct {
	storage.Options

	// WALPath overrides the default <data>.wal path.
	WALPath string
}

// Database ties the paged store, WAL, transaction manager, and a set of
// declared tables together.
type Database struct {
	mu sync.RWMutex

	store  *storage.Store
	log    *wal.WAL
	txnMgr *txn.Manager

	tables map[string]*table.Table

	logger zerolog.Logger
}

// Open creates or opens a database at opts.Path and its WAL. It does not
// replay the WAL: tables must be redeclared with DeclareTable and Recover
// called afterward before their logged records are reattached (no schema
// catalog is persisted).
func Open(opts Options) (*Database, error) {
	store, err := storage.Open(opts.Options)
	if err != nil {
		return nil, err
	}

	walPath := opts.WALPath
	if walPath == "" {
		walPath = wal.DefaultPath(store.Path())
	}
	log, err := wal.Open(walPath)
	if err != nil {
		store.Close()
		return nil, err
	}

	db := &Database{
		store:  store,
		log:    log,
		tables: make(map[string]*table.Table),
		logger: mdelog.With("engine"),
	}
	db.txnMgr = txn.NewManager(log, db.applyToTable)
	return db, nil
}

// applyToTable is the undo/redo callback handed to the transaction
// manager: it decodes the record's tagged key and routes to the named
// table's Apply. A record naming a table that hasn't been (re)declared
// yet is logged and skipped — this is the expected shape of the schema
// catalog gap, not a fatal error.
func (d *Database) applyToTable(rec wal.Record) error {
	d.mu.RLock()
	tbl, ok := d.tables[rec.Table]
	d.mu.RUnlock()
	if !ok {
		d.logger.Warn().Str("table", rec.Table).Msg("WAL record for undeclared table, skipping")
		return nil
	}

	key, err := value.DecodeKey(rec.Key)
	if err != nil {
		return err
	}

	switch rec.Op {
	case wal.OpInsert, wal.OpUpdate:
		return tbl.Apply(key, table.ApplyUpsert, rec.New)
	case wal.OpDelete:
		return tbl.Apply(key, table.ApplyDelete, nil)
	default:
		return nil
	}
}

// DeclareTable registers schema, creating a fresh empty table. Declaring
// the same name twice is an error.
func (d *Database) DeclareTable(schema table.Schema, order int) (*table.Table, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.tables[schema.Name]; exists {
		return nil, fmt.Errorf("mde: table %q: %w", schema.Name, mdeerrors.ErrDuplicateTable)
	}
	if order <= 0 {
		order = DefaultTreeOrder
	}
	tbl, err := table.New(schema, order)
	if err != nil {
		return nil, err
	}
	d.tables[schema.Name] = tbl
	return tbl, nil
}

// Table returns the declared table named name.
func (d *Database) Table(name string) (*table.Table, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	tbl, ok := d.tables[name]
	if !ok {
		return nil, fmt.Errorf("mde: table %q: %w", name, mdeerrors.ErrUnknownTable)
	}
	return tbl, nil
}

// Recover replays the WAL against whatever tables are currently
// declared. Open does not call it; the caller invokes it explicitly
// after DeclareTable, since recovery can only reattach records to tables
// that already exist in memory.
func (d *Database) Recover() error {
	return d.txnMgr.RecoverFromWAL(d.applyToTable)
}

// Begin starts a new transaction.
func (d *Database) Begin() (*txn.Transaction, error) {
	return d.txnMgr.Begin()
}

// Store exposes the underlying paged store, mainly for Stats/metrics.
func (d *Database) Store() *storage.Store { return d.store }

// Close flushes and closes the WAL and the paged store.
func (d *Database) Close() error {
	if err := d.log.Close(); err != nil {
		return err
	}
	return d.store.Close()
}
