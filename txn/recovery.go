package txn

import (
	"github.com/mdedb/mde/metrics"
	"github.com/mdedb/mde/wal"
)

// RecoverFromWAL rebuilds the in-memory tree state by replaying the
// log. For each transaction id observed:
// committed transactions replay their mutations in log order; anything
// else (crashed mid-transaction, never committed or rolled back) has its
// mutations undone in reverse order. Checkpoint records are ignored for
// state reconstruction. The manager's next-transaction cursor is set to
// one past the highest transaction id observed in the log.
func (m *Manager) RecoverFromWAL(apply Apply) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	records, err := m.log.ReadAll()
	if err != nil {
		return err
	}

	committed := make(map[int64]bool)
	rolledBack := make(map[int64]bool)
	var maxTxnID int64
	for _, rec := range records {
		if rec.TxnID > maxTxnID {
			maxTxnID = rec.TxnID
		}
		switch rec.Op {
		case wal.OpCommit:
			committed[rec.TxnID] = true
		case wal.OpRollback:
			rolledBack[rec.TxnID] = true
		}
	}

	// First pass, in log order: replay every mutation belonging to a
	// committed transaction. Preserving the original record order here
	// matters when two different committed transactions touched the
	// same key — the later commit in the log must win.
	byTxn := make(map[int64][]wal.Record)
	for _, rec := range records {
		if !rec.IsMutation() {
			continue
		}
		byTxn[rec.TxnID] = append(byTxn[rec.TxnID], rec)
		if committed[rec.TxnID] {
			if err := apply(rec); err != nil {
				return err
			}
			metrics.RecoveryReplayedTotal.Inc()
		}
	}

	// Second pass: undo every transaction that neither committed nor
	// rolled back (crashed mid-flight), each in reverse record order.
	for txnID, muts := range byTxn {
		if committed[txnID] || rolledBack[txnID] {
			continue
		}
		for i := len(muts) - 1; i >= 0; i-- {
			if err := apply(muts[i].Undo()); err != nil {
				return err
			}
			metrics.RecoveryUndoneTotal.Inc()
		}
	}

	m.nextID = maxTxnID + 1
	return nil
}
