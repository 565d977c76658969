package value

import (
	"github.com/mdedb/mde/mdeerrors"
)

// Compare implements the codec's total order: null < any
// non-null value of the same variant, two nulls compare equal, and
// comparing values of different variants is a programmer error reported
// as mdeerrors.ErrVariantMismatch rather than silently misbehaving.
func Compare(a, b Value) (int, error) {
	if a.Variant != b.Variant {
		return 0, mdeerrors.ErrVariantMismatch
	}
	if a.Null || b.Null {
		switch {
		case a.Null && b.Null:
			return 0, nil
		case a.Null:
			return -1, nil
		default:
			return 1, nil
		}
	}

	switch a.Variant {
	case VariantUint8, VariantUint16, VariantUint32, VariantUint64, VariantRune:
		return compareUint64(a.u64, b.u64), nil
	case VariantBool:
		return compareUint64(a.u64, b.u64), nil
	case VariantInt8, VariantInt16, VariantInt32, VariantInt64, VariantTimestamp:
		return compareInt64(a.i64, b.i64), nil
	case VariantFloat32:
		return compareFloat64(float64(a.AsFloat32()), float64(b.AsFloat32())), nil
	case VariantFloat64:
		return compareFloat64(a.AsFloat64(), b.AsFloat64()), nil
	case VariantString:
		return compareString(a.str, b.str), nil
	case VariantDecimal:
		return a.dec.Cmp(b.dec), nil
	default:
		return 0, mdeerrors.ErrVariantMismatch
	}
}

func compareUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
