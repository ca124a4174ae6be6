package executor

import "github.com/tuannm99/bongodb/internal/record"

// Result is the generic statement result returned to the caller.
// Columns is non-nil exactly for SELECT; Rows is then non-nil too, even
// when zero rows matched.
type Result struct {
	Columns []string
	Rows    [][]record.Value

	// For DML/DDL:
	AffectedRows int64
}

// IsQuery reports whether the result carries a row set.
func (r *Result) IsQuery() bool { return r.Columns != nil }
