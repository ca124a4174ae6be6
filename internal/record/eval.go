package record

import (
	"github.com/tuannm99/bongodb/internal/bongoerr"
)

// Eval evaluates expr against row under schema s.
//
// Null propagates through comparisons (three-valued logic) with two
// short-circuits: Null AND false = false, Null OR true = true.
func Eval(s Schema, row Row, expr Expr) (Value, error) {
	switch e := expr.(type) {
	case *Literal:
		return e.Val, nil
	case *Ident:
		pos := s.ColIndex(e.Name)
		if pos < 0 {
			return Value{}, bongoerr.Schemaf("unknown column %q", e.Name)
		}
		if pos >= len(row) {
			return Value{}, bongoerr.Internalf("row shorter than schema at column %q", e.Name)
		}
		return row[pos], nil
	case *Binary:
		left, err := Eval(s, row, e.Left)
		if err != nil {
			return Value{}, err
		}
		right, err := Eval(s, row, e.Right)
		if err != nil {
			return Value{}, err
		}
		if e.Op.IsComparison() {
			return evalComparison(e.Op, left, right)
		}
		return evalLogical(e.Op, left, right)
	default:
		return Value{}, bongoerr.Internalf("unknown expression node %T", expr)
	}
}

// Matches reports whether expr selects row: only Bool(true) selects,
// Bool(false) and Null exclude.
func Matches(s Schema, row Row, expr Expr) (bool, error) {
	if expr == nil {
		return true, nil
	}
	v, err := Eval(s, row, expr)
	if err != nil {
		return false, err
	}
	if v.IsNull() {
		return false, nil
	}
	if v.Kind != KindBool {
		return false, bongoerr.Typef("predicate yields %s, want BOOLEAN", v.Kind)
	}
	return v.Bool, nil
}

func evalComparison(op BinaryOp, left, right Value) (Value, error) {
	if left.IsNull() || right.IsNull() {
		return Null(), nil
	}
	if left.Kind != right.Kind {
		return Value{}, bongoerr.Typef("cannot compare %s with %s", left.Kind, right.Kind)
	}

	switch left.Kind {
	case KindBool:
		switch op {
		case OpEq:
			return NewBool(left.Bool == right.Bool), nil
		case OpNotEq:
			return NewBool(left.Bool != right.Bool), nil
		default:
			return Value{}, bongoerr.Typef("operator %s is not defined for BOOLEAN", op)
		}
	case KindInt:
		return applyOrdering(op, compareInt(left.Int, right.Int)), nil
	case KindVarchar:
		return applyOrdering(op, compareStr(left.Str, right.Str)), nil
	default:
		return Value{}, bongoerr.Internalf("comparison on value kind %d", left.Kind)
	}
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareStr(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func applyOrdering(op BinaryOp, cmp int) Value {
	switch op {
	case OpGt:
		return NewBool(cmp > 0)
	case OpLt:
		return NewBool(cmp < 0)
	case OpGtEq:
		return NewBool(cmp >= 0)
	case OpLtEq:
		return NewBool(cmp <= 0)
	case OpEq:
		return NewBool(cmp == 0)
	default: // OpNotEq
		return NewBool(cmp != 0)
	}
}

func evalLogical(op BinaryOp, left, right Value) (Value, error) {
	if err := checkLogicalOperand(op, left); err != nil {
		return Value{}, err
	}
	if err := checkLogicalOperand(op, right); err != nil {
		return Value{}, err
	}

	switch op {
	case OpAnd:
		// false dominates Null.
		if (left.Kind == KindBool && !left.Bool) || (right.Kind == KindBool && !right.Bool) {
			return NewBool(false), nil
		}
		if left.IsNull() || right.IsNull() {
			return Null(), nil
		}
		return NewBool(true), nil
	case OpOr:
		// true dominates Null.
		if (left.Kind == KindBool && left.Bool) || (right.Kind == KindBool && right.Bool) {
			return NewBool(true), nil
		}
		if left.IsNull() || right.IsNull() {
			return Null(), nil
		}
		return NewBool(false), nil
	default:
		return Value{}, bongoerr.Internalf("unknown logical operator %d", op)
	}
}

func checkLogicalOperand(op BinaryOp, v Value) error {
	if v.Kind != KindBool && v.Kind != KindNull {
		return bongoerr.Typef("operator %s expects BOOLEAN operands, got %s", op, v.Kind)
	}
	return nil
}

// Compare orders two non-null values of the same kind for ORDER BY.
// Bools order false < true. Null handling is the caller's concern.
func Compare(a, b Value) int {
	switch a.Kind {
	case KindInt:
		return compareInt(a.Int, b.Int)
	case KindVarchar:
		return compareStr(a.Str, b.Str)
	case KindBool:
		switch {
		case a.Bool == b.Bool:
			return 0
		case b.Bool:
			return -1
		default:
			return 1
		}
	default:
		return 0
	}
}
