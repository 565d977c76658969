/*
Package value implements the engine's scalar value codec: a small closed
set of typed, nullable scalars with a byte encoding and a total order per
variant. The B+ tree (package btree) keys on Values, ordered by Compare,
and stores row blobs built from Encode; WAL records (package wal) carry
keys produced by EncodeKey alongside those blobs.
*/
package value

import (
	"math"

	"github.com/shopspring/decimal"
)

// Variant is the tag identifying which scalar kind a Value holds.
type Variant uint8

// The closed set of supported scalar variants. Values are stable across
// versions: they double as the WAL key type tag (see codec.go) and must
// never be renumbered once shipped.
const (
	VariantUint8 Variant = iota + 1
	VariantUint16
	VariantUint32
	VariantUint64
	VariantInt8
	VariantInt16
	VariantInt32
	VariantInt64
	VariantBool
	VariantRune
	VariantString
	VariantFloat32
	VariantFloat64
	VariantDecimal
	VariantTimestamp
)

func (v Variant) String() string {
	switch v {
	case VariantUint8:
		return "uint8"
	case VariantUint16:
		return "uint16"
	case VariantUint32:
		return "uint32"
	case VariantUint64:
		return "uint64"
	case VariantInt8:
		return "int8"
	case VariantInt16:
		return "int16"
	case VariantInt32:
		return "int32"
	case VariantInt64:
		return "int64"
	case VariantBool:
		return "bool"
	case VariantRune:
		return "rune"
	case VariantString:
		return "string"
	case VariantFloat32:
		return "float32"
	case VariantFloat64:
		return "float64"
	case VariantDecimal:
		return "decimal"
	case VariantTimestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

// Value is a tagged, nullable scalar. Exactly one of the payload fields is
// meaningful, selected by Variant; callers use the typed constructors and
// accessors below rather than touching fields directly.
type Value struct {
	Variant Variant
	Null    bool

	u64 uint64          // unsigned ints, bool, rune, bit patterns of float32/64
	i64 int64           // signed ints, timestamp millis
	str string          // string
	dec decimal.Decimal // decimal
}

// NewNull returns the null value of the given variant.
func NewNull(variant Variant) Value {
	return Value{Variant: variant, Null: true}
}

func NewUint8(v uint8) Value   { return Value{Variant: VariantUint8, u64: uint64(v)} }
func NewUint16(v uint16) Value { return Value{Variant: VariantUint16, u64: uint64(v)} }
func NewUint32(v uint32) Value { return Value{Variant: VariantUint32, u64: uint64(v)} }
func NewUint64(v uint64) Value { return Value{Variant: VariantUint64, u64: v} }
func NewInt8(v int8) Value     { return Value{Variant: VariantInt8, i64: int64(v)} }
func NewInt16(v int16) Value   { return Value{Variant: VariantInt16, i64: int64(v)} }
func NewInt32(v int32) Value   { return Value{Variant: VariantInt32, i64: int64(v)} }
func NewInt64(v int64) Value   { return Value{Variant: VariantInt64, i64: v} }

func NewBool(v bool) Value {
	var u uint64
	if v {
		u = 1
	}
	return Value{Variant: VariantBool, u64: u}
}

func NewRune(v rune) Value     { return Value{Variant: VariantRune, u64: uint64(uint32(v))} }
func NewString(v string) Value { return Value{Variant: VariantString, str: v} }

func NewFloat32(v float32) Value {
	return Value{Variant: VariantFloat32, u64: uint64(math.Float32bits(v))}
}

func NewFloat64(v float64) Value {
	return Value{Variant: VariantFloat64, u64: math.Float64bits(v)}
}

func NewDecimal(v decimal.Decimal) Value {
	return Value{Variant: VariantDecimal, dec: v}
}

// NewTimestampMillis builds a timestamp Value from milliseconds since the
// Unix epoch.
func NewTimestampMillis(ms int64) Value {
	return Value{Variant: VariantTimestamp, i64: ms}
}

func (v Value) AsUint64() uint64           { return v.u64 }
func (v Value) AsInt64() int64             { return v.i64 }
func (v Value) AsString() string           { return v.str }
func (v Value) AsBool() bool               { return v.u64 != 0 }
func (v Value) AsRune() rune               { return rune(uint32(v.u64)) }
func (v Value) AsFloat32() float32         { return math.Float32frombits(uint32(v.u64)) }
func (v Value) AsFloat64() float64         { return math.Float64frombits(v.u64) }
func (v Value) AsDecimal() decimal.Decimal { return v.dec }
func (v Value) AsTimestampMillis() int64   { return v.i64 }
