package fields

import (
	"fmt"
	"math"
	"strings"
)

// Kind is the element type of a declared field.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
)

var kindNames = map[Kind]string{
	KindInt8:    "int8",
	KindInt16:   "int16",
	KindInt32:   "int32",
	KindInt64:   "int64",
	KindUint8:   "uint8",
	KindUint16:  "uint16",
	KindUint32:  "uint32",
	KindUint64:  "uint64",
	KindFloat32: "float32",
	KindFloat64: "float64",
}

// leaf type codes follow the branch descriptor convention of the output tree.
var leafCodes = map[Kind]string{
	KindInt8:    "B",
	KindInt16:   "S",
	KindInt32:   "I",
	KindInt64:   "L",
	KindUint8:   "b",
	KindUint16:  "s",
	KindUint32:  "i",
	KindUint64:  "l",
	KindFloat32: "F",
	KindFloat64: "D",
}

// ParseKind accepts the schema spellings of an element type.
func ParseKind(raw string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "int8", "i1":
		return KindInt8, nil
	case "int16", "i2":
		return KindInt16, nil
	case "int32", "int", "i4":
		return KindInt32, nil
	case "int64", "i8", "long":
		return KindInt64, nil
	case "uint8", "u1", "byte":
		return KindUint8, nil
	case "uint16", "u2":
		return KindUint16, nil
	case "uint32", "uint", "u4":
		return KindUint32, nil
	case "uint64", "u8":
		return KindUint64, nil
	case "float32", "float", "f4":
		return KindFloat32, nil
	case "float64", "double", "f8":
		return KindFloat64, nil
	default:
		return KindInvalid, fmt.Errorf("fields: unknown element type %q", raw)
	}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

func (k Kind) IsFloat() bool {
	return k == KindFloat32 || k == KindFloat64
}

func (k Kind) IsSigned() bool {
	return k >= KindInt8 && k <= KindInt64
}

func (k Kind) bits() uint {
	switch k {
	case KindInt8, KindUint8:
		return 8
	case KindInt16, KindUint16:
		return 16
	case KindInt32, KindUint32, KindFloat32:
		return 32
	default:
		return 64
	}
}

// cell storage: every element is kept as 64 raw bits. Signed kinds hold the
// sign-extended two's complement value, unsigned kinds the zero-extended value,
// float kinds the IEEE-754 bits of the (rounded to kind) float64.

func (k Kind) fromInt(v int64) uint64 {
	switch {
	case k.IsFloat():
		return k.fromFloat(float64(v))
	case k.IsSigned():
		shift := 64 - k.bits()
		return uint64((v << shift) >> shift)
	default:
		return truncate(uint64(v), k.bits())
	}
}

func (k Kind) fromUint(v uint64) uint64 {
	switch {
	case k.IsFloat():
		return k.fromFloat(float64(v))
	case k.IsSigned():
		return k.fromInt(int64(v))
	default:
		return truncate(v, k.bits())
	}
}

func (k Kind) fromFloat(v float64) uint64 {
	switch {
	case k == KindFloat32:
		return math.Float64bits(float64(float32(v)))
	case k == KindFloat64:
		return math.Float64bits(v)
	case k.IsSigned():
		return k.fromInt(int64(v))
	default:
		return k.fromUint(uint64(v))
	}
}

func (k Kind) toInt(raw uint64) int64 {
	if k.IsFloat() {
		return int64(math.Float64frombits(raw))
	}
	return int64(raw)
}

func (k Kind) toUint(raw uint64) uint64 {
	if k.IsFloat() {
		return uint64(math.Float64frombits(raw))
	}
	return raw
}

func (k Kind) toFloat(raw uint64) float64 {
	switch {
	case k.IsFloat():
		return math.Float64frombits(raw)
	case k.IsSigned():
		return float64(int64(raw))
	default:
		return float64(raw)
	}
}

func truncate(v uint64, bits uint) uint64 {
	if bits >= 64 {
		return v
	}
	return v & (1<<bits - 1)
}
