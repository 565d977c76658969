package wal

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mdedb/mde/mdeerrors"
	"github.com/mdedb/mde/metrics"
)

// DefaultPath returns the WAL path for a data file path, replacing its
// extension with .wal.
func DefaultPath(dataPath string) string {
	ext := filepath.Ext(dataPath)
	if ext == "" {
		return dataPath + ".wal"
	}
	return strings.TrimSuffix(dataPath, ext) + ".wal"
}

// WAL is the append-only, checksummed, logical write-ahead log.
type WAL struct {
	mu   sync.RWMutex
	path string
	file *os.File

	cursor        uint64
	checkpointSeq uint64
	hasCheckpoint bool
}

// Open creates or opens the WAL at path, scanning it to recover the
// sequence cursor and last checkpoint. A partial trailing
// record is tolerated and silently ignored; the next Append overwrites it.
func Open(path string) (*WAL, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("mde: opening wal %s: %w", path, mdeerrors.ErrIOFailure)
	}

	w := &WAL{path: path, file: file}
	if err := w.scan(); err != nil {
		file.Close()
		return nil, err
	}
	return w, nil
}

// scan walks the file once at open time to initialize the sequence
// cursor and locate the last checkpoint, truncating at the first
// malformed or partial trailing record.
func (w *WAL) scan() error {
	validEnd, err := w.forEachRecord(func(r Record) {
		if r.Sequence > w.cursor {
			w.cursor = r.Sequence
		}
		if r.Op == OpCheckpoint {
			w.checkpointSeq = r.Sequence
			w.hasCheckpoint = true
		}
	})
	if err != nil {
		return err
	}
	// Discard any trailing garbage past the last well-formed record so
	// the next Append starts writing at a clean offset.
	return w.file.Truncate(validEnd)
}

// forEachRecord performs a linear scan from the start of the file,
// invoking fn for every well-formed record, and returns the byte offset
// immediately following the last well-formed record.
func (w *WAL) forEachRecord(fn func(Record)) (int64, error) {
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("mde: seeking wal: %w", mdeerrors.ErrIOFailure)
	}

	var offset int64
	lenBuf := make([]byte, 4)
	for {
		n, err := io.ReadFull(w.file, lenBuf)
		if err != nil || n < 4 {
			break // no length header, or a short one: clean stop
		}
		bodyLen := binary.BigEndian.Uint32(lenBuf)
		body := make([]byte, bodyLen)
		n, err = io.ReadFull(w.file, body)
		if err != nil || uint32(n) < bodyLen {
			break // length header present but payload short: clean stop
		}

		rec, err := decodeBody(body)
		if err != nil {
			break // checksum or structural corruption: clean stop
		}

		offset += 4 + int64(bodyLen)
		fn(rec)
	}
	return offset, nil
}

// Append assigns the next sequence number to r, writes its framed bytes
// at EOF, and flushes the userspace write buffer (an explicit Flush is
// still required for fsync durability).
func (w *WAL) Append(r Record) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.cursor++
	r.Sequence = w.cursor

	body := encodeBody(r)
	frame := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(frame, uint32(len(body)))
	copy(frame[4:], body)

	if _, err := w.file.Seek(0, io.SeekEnd); err != nil {
		w.cursor--
		return 0, fmt.Errorf("mde: seeking wal: %w", mdeerrors.ErrIOFailure)
	}
	if _, err := w.file.Write(frame); err != nil {
		w.cursor--
		return 0, fmt.Errorf("mde: appending wal record: %w", mdeerrors.ErrIOFailure)
	}
	metrics.WALAppendsTotal.Inc()
	metrics.WALBytesWrittenTotal.Add(float64(len(frame)))
	return r.Sequence, nil
}

// ReadAll returns every well-formed record in the log in append order.
func (w *WAL) ReadAll() ([]Record, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var out []Record
	_, err := w.forEachRecord(func(r Record) { out = append(out, r) })
	return out, err
}

// ReadAfter returns every well-formed record with sequence > seq, in
// append order.
func (w *WAL) ReadAfter(seq uint64) ([]Record, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var out []Record
	_, err := w.forEachRecord(func(r Record) {
		if r.Sequence > seq {
			out = append(out, r)
		}
	})
	return out, err
}

// Checkpoint appends a Checkpoint marker at the current cursor and
// remembers its sequence, reported by LastCheckpoint.
func (w *WAL) Checkpoint() (uint64, error) {
	seq, err := w.Append(Record{Op: OpCheckpoint})
	if err != nil {
		return 0, err
	}
	w.mu.Lock()
	w.checkpointSeq = seq
	w.hasCheckpoint = true
	w.mu.Unlock()
	return seq, nil
}

// TruncateAfterCheckpoint always refuses:
// because the B+ tree is never persisted to pages, there is no redo
// image to write before discarding pre-checkpoint records, so truncating
// would make recovery unable to reconstruct table state. Implementers
// wanting truncation would first need to adopt a disk-resident tree
// and persist it through the cache.
func (w *WAL) TruncateAfterCheckpoint() error {
	return fmt.Errorf("mde: refusing to truncate WAL, tree state is not durable: %w", mdeerrors.ErrInvalidArgument)
}

// Clear truncates the log to zero length and resets the sequence cursor,
// used by tests and by a caller that has independently persisted all
// table state some other way.
func (w *WAL) Clear() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.file.Truncate(0); err != nil {
		return fmt.Errorf("mde: clearing wal: %w", mdeerrors.ErrIOFailure)
	}
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("mde: seeking wal: %w", mdeerrors.ErrIOFailure)
	}
	w.cursor = 0
	w.checkpointSeq = 0
	w.hasCheckpoint = false
	return nil
}

// Flush issues an fsync, the durability barrier required before a
// transaction may be reported committed.
func (w *WAL) Flush() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("mde: fsyncing wal: %w", mdeerrors.ErrIOFailure)
	}
	metrics.WALFsyncsTotal.Inc()
	return nil
}

// Close flushes and releases the log's file handle.
func (w *WAL) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}
	return w.file.Close()
}

// LastCheckpoint returns the sequence of the most recent Checkpoint
// record observed, if any.
func (w *WAL) LastCheckpoint() (uint64, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.checkpointSeq, w.hasCheckpoint
}

// Cursor returns the highest sequence number assigned so far.
func (w *WAL) Cursor() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cursor
}

// Path returns the WAL's backing file path.
func (w *WAL) Path() string { return w.path }
