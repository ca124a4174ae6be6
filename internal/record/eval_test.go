package record

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/bongodb/internal/bongoerr"
)

func lit(v Value) Expr     { return &Literal{Val: v} }
func col(name string) Expr { return &Ident{Name: name} }
func bin(op BinaryOp, l, r Expr) Expr {
	return &Binary{Op: op, Left: l, Right: r}
}

func evalSchema() Schema {
	return Schema{Cols: []ColumnDef{
		{Name: "id", Type: IntType()},
		{Name: "name", Type: VarcharType(32)},
		{Name: "married", Type: BoolType()},
	}}
}

func evalRow() Row {
	return Row{NewInt(7), NewVarchar("Karl"), NewBool(true)}
}

func TestEvalComparisons(t *testing.T) {
	s, row := evalSchema(), evalRow()

	for _, tc := range []struct {
		name string
		expr Expr
		want Value
	}{
		{"int gt", bin(OpGt, col("id"), lit(NewInt(1))), NewBool(true)},
		{"int lt", bin(OpLt, col("id"), lit(NewInt(1))), NewBool(false)},
		{"int gteq equal", bin(OpGtEq, col("id"), lit(NewInt(7))), NewBool(true)},
		{"int lteq", bin(OpLtEq, col("id"), lit(NewInt(6))), NewBool(false)},
		{"int eq", bin(OpEq, col("id"), lit(NewInt(7))), NewBool(true)},
		{"int noteq", bin(OpNotEq, col("id"), lit(NewInt(7))), NewBool(false)},
		{"varchar natural order", bin(OpLt, col("name"), lit(NewVarchar("Z"))), NewBool(true)},
		{"varchar eq", bin(OpEq, col("name"), lit(NewVarchar("Karl"))), NewBool(true)},
		{"bool eq", bin(OpEq, col("married"), lit(NewBool(true))), NewBool(true)},
		{"bool noteq", bin(OpNotEq, col("married"), lit(NewBool(false))), NewBool(true)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Eval(s, row, tc.expr)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEvalNullPropagation(t *testing.T) {
	s, row := evalSchema(), evalRow()

	for _, op := range []BinaryOp{OpGt, OpLt, OpGtEq, OpLtEq, OpEq, OpNotEq} {
		got, err := Eval(s, row, bin(op, col("id"), lit(Null())))
		require.NoError(t, err, op.String())
		assert.True(t, got.IsNull(), "op %s with null operand", op)
	}

	// NULL = NULL is still Null, not true.
	got, err := Eval(s, row, bin(OpEq, lit(Null()), lit(Null())))
	require.NoError(t, err)
	assert.True(t, got.IsNull())
}

func TestEvalThreeValuedLogic(t *testing.T) {
	s, row := evalSchema(), evalRow()

	null := lit(Null())
	tru := lit(NewBool(true))
	fls := lit(NewBool(false))

	for _, tc := range []struct {
		name string
		expr Expr
		want Value
	}{
		{"null and false", bin(OpAnd, null, fls), NewBool(false)},
		{"false and null", bin(OpAnd, fls, null), NewBool(false)},
		{"null and true", bin(OpAnd, null, tru), Null()},
		{"null and null", bin(OpAnd, null, null), Null()},
		{"null or true", bin(OpOr, null, tru), NewBool(true)},
		{"true or null", bin(OpOr, tru, null), NewBool(true)},
		{"null or false", bin(OpOr, null, fls), Null()},
		{"null or null", bin(OpOr, null, null), Null()},
		{"true and true", bin(OpAnd, tru, tru), NewBool(true)},
		{"false or false", bin(OpOr, fls, fls), NewBool(false)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Eval(s, row, tc.expr)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEvalTypeErrors(t *testing.T) {
	s, row := evalSchema(), evalRow()

	for _, tc := range []struct {
		name string
		expr Expr
	}{
		{"int vs varchar", bin(OpEq, col("id"), lit(NewVarchar("7")))},
		{"bool gt", bin(OpGt, col("married"), lit(NewBool(false)))},
		{"and over ints", bin(OpAnd, col("id"), lit(NewInt(1)))},
		{"or over varchar", bin(OpOr, lit(NewVarchar("x")), lit(NewBool(true)))},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Eval(s, row, tc.expr)
			require.Error(t, err)
			assert.Equal(t, bongoerr.Type, bongoerr.KindOf(err))
		})
	}
}

func TestEvalUnknownColumn(t *testing.T) {
	s, row := evalSchema(), evalRow()
	_, err := Eval(s, row, col("nope"))
	require.Error(t, err)
	assert.Equal(t, bongoerr.Schema, bongoerr.KindOf(err))

	var be *bongoerr.Error
	require.True(t, errors.As(err, &be))
}

func TestMatches(t *testing.T) {
	s, row := evalSchema(), evalRow()

	ok, err := Matches(s, row, nil)
	require.NoError(t, err)
	assert.True(t, ok, "nil predicate selects everything")

	// grade-style null comparison excludes the row
	ok, err = Matches(s, row, bin(OpEq, col("id"), lit(Null())))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = Matches(s, row, bin(OpGt, col("id"), lit(NewInt(1))))
	require.NoError(t, err)
	assert.True(t, ok)

	// non-boolean predicate result is a type error
	_, err = Matches(s, row, col("id"))
	require.Error(t, err)
	assert.Equal(t, bongoerr.Type, bongoerr.KindOf(err))
}

func TestCompareOrdering(t *testing.T) {
	assert.Equal(t, -1, Compare(NewInt(1), NewInt(2)))
	assert.Equal(t, 1, Compare(NewVarchar("b"), NewVarchar("a")))
	assert.Equal(t, 0, Compare(NewBool(true), NewBool(true)))
	assert.Equal(t, -1, Compare(NewBool(false), NewBool(true)))
}
