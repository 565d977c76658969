// Package mdeerrors collects the sentinel and wrapped error values surfaced
// across the storage engine. Subsystems return these directly or wrap them
// with fmt.Errorf("...: %w", ...) so callers can still errors.Is/As through
// to the sentinel.
package mdeerrors

import "errors"

// Open errors (store).
var (
	ErrNotFound          = errors.New("mde: data file not found")
	ErrPermissionDenied  = errors.New("mde: permission denied opening data file")
	ErrInvalidMagic      = errors.New("mde: invalid header magic")
	ErrUnsupportedVersion = errors.New("mde: unsupported header version")
	ErrCorruptedHeader   = errors.New("mde: corrupted header page")
)

// Storage errors.
var (
	ErrIOFailure = errors.New("mde: storage I/O failure")
	ErrClosed    = errors.New("mde: store closed")
)

// WAL errors.
var (
	ErrFramingCorruption = errors.New("mde: WAL framing corruption")
	ErrWALClosed         = errors.New("mde: WAL closed")
)

// Tree errors.
var (
	ErrKeyMismatchType = errors.New("mde: key variant mismatch with tree key type")
	ErrKeyNotFound     = errors.New("mde: key not found")
	ErrKeyEmpty        = errors.New("mde: key cannot be empty")
	ErrInvalidArgument = errors.New("mde: invalid argument")
)

// Transaction errors.
var (
	ErrInvalidState = errors.New("mde: transaction is not in the required state")
)

// Schema / façade errors.
var (
	ErrDuplicateTable    = errors.New("mde: table already declared")
	ErrUnknownTable      = errors.New("mde: unknown table")
	ErrUnknownColumn     = errors.New("mde: unknown column")
	ErrPrimaryKeyMissing = errors.New("mde: row is missing its primary key column")
)

// Value codec errors.
var (
	ErrDecodeTruncated = errors.New("mde: value encoding truncated")
	ErrVariantMismatch = errors.New("mde: comparison across mismatched value variants")
)
