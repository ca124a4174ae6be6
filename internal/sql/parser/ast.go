package parser

import "github.com/tuannm99/bongodb/internal/record"

// Statement is the root interface for all SQL statements.
type Statement interface {
	stmtNode()
}

// ----- SELECT -----

type OrderBy struct {
	Column string
	Desc   bool
}

type SelectStmt struct {
	Table string
	// Wildcard means `*`; otherwise Items lists the projected columns.
	Wildcard bool
	Items    []string
	Where    record.Expr
	OrderBy  *OrderBy
}

func (*SelectStmt) stmtNode() {}

// ----- INSERT -----

type InsertStmt struct {
	Table string
	// Columns must match the schema's column names in order.
	Columns []string
	Rows    [][]record.Value
}

func (*InsertStmt) stmtNode() {}

// ----- UPDATE -----

type Assignment struct {
	Column string
	Value  record.Value
}

type UpdateStmt struct {
	Table       string
	Assignments []Assignment
	Where       record.Expr
}

func (*UpdateStmt) stmtNode() {}

// ----- DELETE -----

type DeleteStmt struct {
	Table string
	Where record.Expr
}

func (*DeleteStmt) stmtNode() {}

// ----- CREATE TABLE -----

type CreateTableStmt struct {
	Table   string
	Columns []record.ColumnDef
}

func (*CreateTableStmt) stmtNode() {}

// ----- DROP TABLE -----

type DropTableStmt struct {
	Tables []string
}

func (*DropTableStmt) stmtNode() {}

// ----- FLUSH -----

type FlushStmt struct{}

func (*FlushStmt) stmtNode() {}
