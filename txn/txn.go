/*
Package txn implements the engine's transaction manager: transaction
lifecycle (begin/commit/rollback), WAL-backed undo on rollback, and
crash recovery by replaying or undoing transactions found in the
write-ahead log.

The manager owns no row storage itself — every mutation it logs is
dispatched to an apply callback supplied by the table façade, which is
the only thing that knows how to install or remove rows in the B+ tree
(package btree). This keeps the WAL and the tree cleanly separated: the
log records intent, and the façade sitting in front of the tree is what
recovery drives.
*/
package txn

import (
	"fmt"
	"sync"
	"time"

	"github.com/mdedb/mde/mdeerrors"
	"github.com/mdedb/mde/metrics"
	"github.com/mdedb/mde/wal"
)

// State is a transaction's lifecycle state.
type State int

const (
	StateActive State = iota
	StateCommitted
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Apply is invoked once per mutation record during rollback's undo and
// recovery's replay and undo; Commit does not invoke it. It is the
// façade's hook into the in-memory tree.
type Apply func(rec wal.Record) error

// clock is the manager's time source, returning Unix milliseconds; the
// Manager's clock field can be replaced from inside the package so tests
// need not depend on wall-clock time.
type clock func() int64

func defaultClock() int64 { return time.Now().UnixMilli() }

// Manager is the transaction manager.
type Manager struct {
	mu     sync.RWMutex
	log    *wal.WAL
	undo   Apply
	active map[int64]*Transaction
	nextID int64
	clock  clock
}

// NewManager constructs a manager over an already-open WAL. undo is
// invoked with the synthesized undo record during rollback.
// RecoverFromWAL does not use it; it dispatches through the apply
// callback passed to it.
func NewManager(log *wal.WAL, undo Apply) *Manager {
	return &Manager{
		log:    log,
		undo:   undo,
		active: make(map[int64]*Transaction),
		nextID: 1,
		clock:  defaultClock,
	}
}

// Begin allocates a new transaction id, registers it active, and appends
// a Begin record to the log.
func (m *Manager) Begin() (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++

	if _, err := m.log.Append(wal.Record{TxnID: id, Op: wal.OpBegin, TimestampMillis: m.clock()}); err != nil {
		m.nextID--
		return nil, err
	}

	tx := &Transaction{id: id, state: StateActive, manager: m}
	m.active[id] = tx
	metrics.TxnBeginTotal.Inc()
	metrics.TxnActive.Inc()
	return tx, nil
}

func (m *Manager) deregister(id int64) {
	m.mu.Lock()
	delete(m.active, id)
	m.mu.Unlock()
}

// ActiveCount reports the number of currently active transactions.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active)
}

// Transaction is a single logged unit of work.
type Transaction struct {
	mu      sync.Mutex
	id      int64
	state   State
	pending []wal.Record
	manager *Manager
}

// ID returns the transaction's identifier.
func (t *Transaction) ID() int64 { return t.id }

// State returns the transaction's current lifecycle state.
func (t *Transaction) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Transaction) requireActive() error {
	if t.state != StateActive {
		return fmt.Errorf("mde: transaction %d is %s, not active: %w", t.id, t.state, mdeerrors.ErrInvalidState)
	}
	return nil
}

func (t *Transaction) log(op wal.Op, table string, key, old, newVal []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.requireActive(); err != nil {
		return err
	}

	rec := wal.Record{
		TxnID:           t.id,
		Op:              op,
		Table:           table,
		Key:             key,
		Old:             old,
		New:             newVal,
		TimestampMillis: t.manager.clock(),
	}
	seq, err := t.manager.log.Append(rec)
	if err != nil {
		return err
	}
	rec.Sequence = seq
	t.pending = append(t.pending, rec)
	return nil
}

// LogInsert records a row insertion. Forbidden outside the Active state.
func (t *Transaction) LogInsert(table string, key, newVal []byte) error {
	return t.log(wal.OpInsert, table, key, nil, newVal)
}

// LogUpdate records a row update. Forbidden outside the Active state.
func (t *Transaction) LogUpdate(table string, key, old, newVal []byte) error {
	return t.log(wal.OpUpdate, table, key, old, newVal)
}

// LogDelete records a row deletion. Forbidden outside the Active state.
func (t *Transaction) LogDelete(table string, key, old []byte) error {
	return t.log(wal.OpDelete, table, key, old, nil)
}

// Commit appends a Commit record, fsyncs the WAL (the durability
// barrier), marks the transaction Committed, and deregisters it.
func (t *Transaction) Commit() error {
	t.mu.Lock()
	if err := t.requireActive(); err != nil {
		t.mu.Unlock()
		return err
	}
	t.mu.Unlock()

	// The WAL append/flush below take the WAL's own lock and run with
	// tx.mu released; tx.mu only protects this transaction's own fields,
	// not the log.
	_, err := t.manager.log.Append(wal.Record{TxnID: t.id, Op: wal.OpCommit, TimestampMillis: t.manager.clock()})
	if err != nil {
		return err
	}
	if err := t.manager.log.Flush(); err != nil {
		return err
	}

	t.mu.Lock()
	t.state = StateCommitted
	t.mu.Unlock()

	t.manager.deregister(t.id)
	metrics.TxnCommitTotal.Inc()
	metrics.TxnActive.Dec()
	return nil
}

// Rollback undoes every pending mutation in reverse order via the
// manager's apply callback, appends a Rollback record, fsyncs, marks the
// transaction RolledBack, and deregisters it.
func (t *Transaction) Rollback() error {
	t.mu.Lock()
	if err := t.requireActive(); err != nil {
		t.mu.Unlock()
		return err
	}
	pending := append([]wal.Record{}, t.pending...)
	t.mu.Unlock()

	// Undo dispatch touches the in-memory tree through the façade's
	// apply callback, which must be invoked without tx.mu held (the
	// documented lock ordering puts Tree before Transaction).
	for i := len(pending) - 1; i >= 0; i-- {
		rec := pending[i]
		if !rec.IsMutation() {
			continue
		}
		if t.manager.undo != nil {
			if err := t.manager.undo(rec.Undo()); err != nil {
				return err
			}
		}
	}

	_, err := t.manager.log.Append(wal.Record{TxnID: t.id, Op: wal.OpRollback, TimestampMillis: t.manager.clock()})
	if err != nil {
		return err
	}
	if err := t.manager.log.Flush(); err != nil {
		return err
	}

	t.mu.Lock()
	t.state = StateRolledBack
	t.mu.Unlock()

	t.manager.deregister(t.id)
	metrics.TxnRollbackTotal.Inc()
	metrics.TxnActive.Dec()
	return nil
}

// Drop releases the transaction, best-effort rolling it back if it is
// still Active; errors are swallowed.
func (t *Transaction) Drop() {
	if t.State() != StateActive {
		return
	}
	_ = t.Rollback()
}
