package record

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tuannm99/bongodb/internal/bongoerr"
)

// TypeKind enumerates the declared column types.
type TypeKind uint8

const (
	TypeInt TypeKind = iota
	TypeBool
	TypeVarchar
)

// ColumnType is a declared type; Size is the maximum UTF-8 byte length of a
// varchar and zero otherwise.
type ColumnType struct {
	Kind TypeKind
	Size uint32
}

func IntType() ColumnType             { return ColumnType{Kind: TypeInt} }
func BoolType() ColumnType            { return ColumnType{Kind: TypeBool} }
func VarcharType(n uint32) ColumnType { return ColumnType{Kind: TypeVarchar, Size: n} }

func (t ColumnType) String() string {
	switch t.Kind {
	case TypeInt:
		return "INT"
	case TypeBool:
		return "BOOLEAN"
	case TypeVarchar:
		return fmt.Sprintf("VARCHAR(%d)", t.Size)
	default:
		return fmt.Sprintf("TypeKind(%d)", uint8(t.Kind))
	}
}

// ParseColumnType parses "INT", "BOOLEAN" or "VARCHAR(n)".
func ParseColumnType(s string) (ColumnType, error) {
	up := strings.ToUpper(strings.TrimSpace(s))
	switch {
	case up == "INT":
		return IntType(), nil
	case up == "BOOLEAN":
		return BoolType(), nil
	case strings.HasPrefix(up, "VARCHAR(") && strings.HasSuffix(up, ")"):
		inner := up[len("VARCHAR(") : len(up)-1]
		n, err := strconv.ParseUint(strings.TrimSpace(inner), 10, 32)
		if err != nil || n == 0 {
			return ColumnType{}, bongoerr.Parsef("invalid varchar size %q", inner)
		}
		return VarcharType(uint32(n)), nil
	default:
		return ColumnType{}, bongoerr.Parsef("unsupported column type %q", s)
	}
}

func (t ColumnType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *ColumnType) UnmarshalText(b []byte) error {
	ct, err := ParseColumnType(string(b))
	if err != nil {
		return err
	}
	*t = ct
	return nil
}

// ColumnDef declares one column. Names are case-sensitive.
type ColumnDef struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Schema is the ordered column list of a table. Column order is
// authoritative; the first column is the index column.
type Schema struct {
	Cols []ColumnDef
}

func (s Schema) NumCols() int { return len(s.Cols) }

// ColIndex returns the position of name, or -1.
func (s Schema) ColIndex(name string) int {
	for i, c := range s.Cols {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// ColNames returns the column names in schema order.
func (s Schema) ColNames() []string {
	out := make([]string, len(s.Cols))
	for i, c := range s.Cols {
		out[i] = c.Name
	}
	return out
}

// CheckValue validates v against the declared type of col.
// Null is a legal value of every declared type.
func CheckValue(col ColumnDef, v Value) error {
	if v.IsNull() {
		return nil
	}
	switch col.Type.Kind {
	case TypeInt:
		if v.Kind != KindInt {
			return bongoerr.Typef("column %q expects INT, got %s", col.Name, v.Kind)
		}
	case TypeBool:
		if v.Kind != KindBool {
			return bongoerr.Typef("column %q expects BOOLEAN, got %s", col.Name, v.Kind)
		}
	case TypeVarchar:
		if v.Kind != KindVarchar {
			return bongoerr.Typef("column %q expects VARCHAR, got %s", col.Name, v.Kind)
		}
		if uint32(len(v.Str)) > col.Type.Size {
			return bongoerr.Typef("value %s too long for column %q (%s)",
				v, col.Name, col.Type)
		}
	default:
		return bongoerr.Internalf("column %q has unknown type kind %d",
			col.Name, col.Type.Kind)
	}
	return nil
}

// CheckRow validates arity and per-column types of row against s.
func (s Schema) CheckRow(row Row) error {
	if len(row) != len(s.Cols) {
		return bongoerr.Typef("row has %d values, schema has %d columns",
			len(row), len(s.Cols))
	}
	for i, col := range s.Cols {
		if err := CheckValue(col, row[i]); err != nil {
			return err
		}
	}
	return nil
}
