package value

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/mdedb/mde/mdeerrors"
)

// fixedWidth returns the body width in bytes for fixed-size variants, or 0
// for variable-length ones (string).
func fixedWidth(variant Variant) int {
	switch variant {
	case VariantUint8, VariantInt8, VariantBool:
		return 1
	case VariantUint16, VariantInt16:
		return 2
	case VariantUint32, VariantInt32, VariantRune, VariantFloat32:
		return 4
	case VariantUint64, VariantInt64, VariantFloat64, VariantTimestamp:
		return 8
	case VariantDecimal:
		return decimalCoefficientWidth + 4 // coefficient + int32 exponent
	default:
		return 0
	}
}

const decimalCoefficientWidth = 16 // 128-bit signed two's complement coefficient

// Encode serializes v with a leading non-null flag byte: byte 0 = null
// (no payload follows), byte 1 = non-null followed by the
// variant-specific body.
func Encode(v Value) []byte {
	if v.Null {
		return []byte{0}
	}
	body := encodeBody(v)
	out := make([]byte, 1+len(body))
	out[0] = 1
	copy(out[1:], body)
	return out
}

func encodeBody(v Value) []byte {
	switch v.Variant {
	case VariantUint8:
		return []byte{byte(v.u64)}
	case VariantInt8:
		return []byte{byte(int8(v.i64))}
	case VariantBool:
		if v.AsBool() {
			return []byte{1}
		}
		return []byte{0}
	case VariantUint16:
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, uint16(v.u64))
		return buf
	case VariantInt16:
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, uint16(int16(v.i64)))
		return buf
	case VariantUint32, VariantRune:
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(v.u64))
		return buf
	case VariantInt32:
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(int32(v.i64)))
		return buf
	case VariantFloat32:
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(v.u64))
		return buf
	case VariantUint64:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, v.u64)
		return buf
	case VariantInt64, VariantTimestamp:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, uint64(v.i64))
		return buf
	case VariantFloat64:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, v.u64)
		return buf
	case VariantString:
		lenBuf := make([]byte, 10)
		n := putUvarint(lenBuf, uint64(len(v.str)))
		buf := make([]byte, n+len(v.str))
		copy(buf, lenBuf[:n])
		copy(buf[n:], v.str)
		return buf
	case VariantDecimal:
		return encodeDecimal(v.dec)
	default:
		panic(fmt.Sprintf("value: unknown variant %d", v.Variant))
	}
}

// Decode deserializes bytes previously produced by Encode for the given
// variant. Returns the null value if the leading flag byte is 0.
func Decode(buf []byte, variant Variant) (Value, error) {
	if len(buf) == 0 {
		return Value{}, mdeerrors.ErrDecodeTruncated
	}
	if buf[0] == 0 {
		return NewNull(variant), nil
	}
	return decodeBody(buf[1:], variant)
}

func decodeBody(body []byte, variant Variant) (Value, error) {
	need := fixedWidth(variant)
	if variant != VariantString && len(body) < need {
		return Value{}, mdeerrors.ErrDecodeTruncated
	}

	switch variant {
	case VariantUint8:
		return NewUint8(body[0]), nil
	case VariantInt8:
		return NewInt8(int8(body[0])), nil
	case VariantBool:
		return NewBool(body[0] != 0), nil
	case VariantUint16:
		return NewUint16(binary.LittleEndian.Uint16(body)), nil
	case VariantInt16:
		return NewInt16(int16(binary.LittleEndian.Uint16(body))), nil
	case VariantUint32:
		return NewUint32(binary.LittleEndian.Uint32(body)), nil
	case VariantRune:
		return NewRune(rune(binary.LittleEndian.Uint32(body))), nil
	case VariantInt32:
		return NewInt32(int32(binary.LittleEndian.Uint32(body))), nil
	case VariantFloat32:
		return Value{Variant: VariantFloat32, u64: uint64(binary.LittleEndian.Uint32(body))}, nil
	case VariantUint64:
		return NewUint64(binary.LittleEndian.Uint64(body)), nil
	case VariantInt64:
		return NewInt64(int64(binary.LittleEndian.Uint64(body))), nil
	case VariantTimestamp:
		return NewTimestampMillis(int64(binary.LittleEndian.Uint64(body))), nil
	case VariantFloat64:
		return Value{Variant: VariantFloat64, u64: binary.LittleEndian.Uint64(body)}, nil
	case VariantString:
		strLen, n := uvarint(body)
		if n <= 0 || len(body) < n+int(strLen) {
			return Value{}, mdeerrors.ErrDecodeTruncated
		}
		return NewString(string(body[n : n+int(strLen)])), nil
	case VariantDecimal:
		return decodeDecimal(body)
	default:
		return Value{}, fmt.Errorf("value: unknown variant %d", variant)
	}
}

func encodeDecimal(d decimal.Decimal) []byte {
	coeff := d.Coefficient()
	exp := d.Exponent()

	buf := make([]byte, decimalCoefficientWidth+4)
	putBigInt128(buf[:decimalCoefficientWidth], coeff)
	binary.LittleEndian.PutUint32(buf[decimalCoefficientWidth:], uint32(exp))
	return buf
}

func decodeDecimal(body []byte) (Value, error) {
	if len(body) < decimalCoefficientWidth+4 {
		return Value{}, mdeerrors.ErrDecodeTruncated
	}
	coeff := getBigInt128(body[:decimalCoefficientWidth])
	exp := int32(binary.LittleEndian.Uint32(body[decimalCoefficientWidth:]))
	return NewDecimal(decimal.NewFromBigInt(coeff, exp)), nil
}

// putBigInt128 writes x as a 128-bit little-endian two's complement
// integer. Callers are responsible for ensuring x fits; values produced by
// normal decimal arithmetic at reasonable scales do.
func putBigInt128(buf []byte, x *big.Int) {
	neg := x.Sign() < 0
	mag := new(big.Int).Abs(x)
	magBytes := mag.Bytes() // big-endian
	for i := 0; i < len(magBytes) && i < len(buf); i++ {
		buf[i] = magBytes[len(magBytes)-1-i]
	}
	if neg {
		// two's complement: invert and add one
		carry := byte(1)
		for i := range buf {
			buf[i] = ^buf[i]
			sum := uint16(buf[i]) + uint16(carry)
			buf[i] = byte(sum)
			carry = byte(sum >> 8)
		}
	}
}

func getBigInt128(buf []byte) *big.Int {
	neg := buf[len(buf)-1]&0x80 != 0
	work := make([]byte, len(buf))
	copy(work, buf)
	if neg {
		carry := byte(1)
		for i := range work {
			work[i] = ^work[i]
			sum := uint16(work[i]) + uint16(carry)
			work[i] = byte(sum)
			carry = byte(sum >> 8)
		}
	}
	// reverse to big-endian for big.Int.SetBytes
	be := make([]byte, len(work))
	for i, b := range work {
		be[len(work)-1-i] = b
	}
	mag := new(big.Int).SetBytes(be)
	if neg {
		mag.Neg(mag)
	}
	return mag
}

// keyTags maps each Variant to the stable 1-byte type tag used to prefix
// WAL record keys. Keys are never null, so unlike Encode/Decode there is
// no null flag.
var keyTags = map[Variant]byte{
	VariantUint8:     1,
	VariantUint16:    2,
	VariantUint32:    3,
	VariantUint64:    4,
	VariantInt8:      5,
	VariantInt16:     6,
	VariantInt32:     7,
	VariantInt64:     8,
	VariantBool:      9,
	VariantRune:      10,
	VariantString:    11,
	VariantFloat32:   12,
	VariantFloat64:   13,
	VariantDecimal:   14,
	VariantTimestamp: 15,
}

var tagToVariant = func() map[byte]Variant {
	m := make(map[byte]Variant, len(keyTags))
	for v, t := range keyTags {
		m[t] = v
	}
	return m
}()

// EncodeKey encodes a non-null key value preceded by its 1-byte type tag.
func EncodeKey(v Value) ([]byte, error) {
	if v.Null {
		return nil, mdeerrors.ErrKeyEmpty
	}
	tag, ok := keyTags[v.Variant]
	if !ok {
		return nil, fmt.Errorf("value: no key tag registered for variant %d", v.Variant)
	}
	body := encodeBody(v)
	out := make([]byte, 1+len(body))
	out[0] = tag
	copy(out[1:], body)
	return out, nil
}

// DecodeKey decodes a key previously produced by EncodeKey.
func DecodeKey(buf []byte) (Value, error) {
	if len(buf) == 0 {
		return Value{}, mdeerrors.ErrDecodeTruncated
	}
	variant, ok := tagToVariant[buf[0]]
	if !ok {
		return Value{}, fmt.Errorf("value: unknown key type tag %d", buf[0])
	}
	return decodeBody(buf[1:], variant)
}
