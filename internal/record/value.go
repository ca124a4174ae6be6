package record

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"
)

// ValueKind tags the variants of a Value.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindInt
	KindBool
	KindVarchar
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "NULL"
	case KindInt:
		return "INT"
	case KindBool:
		return "BOOLEAN"
	case KindVarchar:
		return "VARCHAR"
	default:
		return fmt.Sprintf("ValueKind(%d)", uint8(k))
	}
}

// Value is the tagged union over everything a cell can hold.
// The zero Value is Null.
type Value struct {
	Kind ValueKind
	Int  int64
	Bool bool
	Str  string
}

func Null() Value               { return Value{} }
func NewInt(v int64) Value      { return Value{Kind: KindInt, Int: v} }
func NewBool(v bool) Value      { return Value{Kind: KindBool, Bool: v} }
func NewVarchar(s string) Value { return Value{Kind: KindVarchar, Str: s} }

func (v Value) IsNull() bool { return v.Kind == KindNull }

// Equal is strict equality between two non-null values of the same kind.
// Comparisons involving Null are the evaluator's business, not Equal's.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind || v.Kind == KindNull {
		return false
	}
	switch v.Kind {
	case KindInt:
		return v.Int == o.Int
	case KindBool:
		return v.Bool == o.Bool
	case KindVarchar:
		return v.Str == o.Str
	}
	return false
}

func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "NULL"
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindVarchar:
		return fmt.Sprintf("'%s'", strings.ReplaceAll(v.Str, "'", "\\'"))
	default:
		return fmt.Sprintf("Value(kind=%d)", uint8(v.Kind))
	}
}

// IndexBytes renders the value as hashable bytes for the hash index.
// A kind tag prefixes the payload so values of different kinds can never
// produce identical byte strings.
func (v Value) IndexBytes() []byte {
	switch v.Kind {
	case KindInt:
		var b [9]byte
		b[0] = byte(KindInt)
		binary.LittleEndian.PutUint64(b[1:], uint64(v.Int))
		return b[:]
	case KindBool:
		if v.Bool {
			return []byte{byte(KindBool), 1}
		}
		return []byte{byte(KindBool), 0}
	case KindVarchar:
		out := make([]byte, 1+len(v.Str))
		out[0] = byte(KindVarchar)
		copy(out[1:], v.Str)
		return out
	default:
		return []byte{byte(KindNull)}
	}
}

// MarshalJSON follows the wire mapping: Int as number, Bool as boolean,
// Varchar as string, Null as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return []byte("null"), nil
	case KindInt:
		return json.Marshal(v.Int)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindVarchar:
		return json.Marshal(v.Str)
	default:
		return nil, fmt.Errorf("record: unmarshalable value kind %d", v.Kind)
	}
}

// Row is one table row in schema column order.
type Row []Value

// Clone copies the row so callers can hold it across mutations.
func (r Row) Clone() Row {
	cp := make(Row, len(r))
	copy(cp, r)
	return cp
}
