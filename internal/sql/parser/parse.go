// Package parser turns one line-oriented SQL statement into the typed AST
// the executor consumes.
package parser

import (
	"strconv"
	"strings"

	"github.com/tuannm99/bongodb/internal/bongoerr"
	"github.com/tuannm99/bongodb/internal/record"
)

// Parse parses a single SQL statement into an AST.
// Policy: statement MUST end with ';'.
func Parse(sql string) (Statement, error) {
	s := strings.TrimSpace(sql)
	if s == "" {
		return nil, bongoerr.Parsef("empty statement")
	}
	if !strings.HasSuffix(s, ";") {
		return nil, bongoerr.Parsef("missing ';' terminator")
	}
	s = strings.TrimSpace(strings.TrimSuffix(s, ";"))
	if s == "" {
		return nil, bongoerr.Parsef("empty statement")
	}

	toks, err := lex(s)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}

	head := p.peek()
	if head.kind != tkIdent {
		return nil, bongoerr.Parsef("unsupported statement: %q", sql)
	}

	var stmt Statement
	switch strings.ToUpper(head.text) {
	case "SELECT":
		stmt, err = p.parseSelect()
	case "INSERT":
		stmt, err = p.parseInsert()
	case "UPDATE":
		stmt, err = p.parseUpdate()
	case "DELETE":
		stmt, err = p.parseDelete()
	case "CREATE":
		stmt, err = p.parseCreateTable()
	case "DROP":
		stmt, err = p.parseDropTable()
	case "FLUSH":
		p.next()
		stmt = &FlushStmt{}
	default:
		return nil, bongoerr.Parsef("unsupported statement: %q", sql)
	}
	if err != nil {
		return nil, err
	}

	if tail := p.peek(); tail.kind != tkEOF {
		return nil, bongoerr.Parsef("unexpected trailing input near %q", tail.text)
	}
	return stmt, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tkEOF {
		p.pos++
	}
	return t
}

func (p *parser) acceptKeyword(kw string) bool {
	if p.peek().isKeyword(kw) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expectKeyword(kw string) error {
	if !p.acceptKeyword(kw) {
		return bongoerr.Parsef("expected %s near %q", kw, p.peek().text)
	}
	return nil
}

func (p *parser) acceptSymbol(sym string) bool {
	t := p.peek()
	if t.kind == tkSymbol && t.text == sym {
		p.next()
		return true
	}
	return false
}

func (p *parser) expectSymbol(sym string) error {
	if !p.acceptSymbol(sym) {
		return bongoerr.Parsef("expected %q near %q", sym, p.peek().text)
	}
	return nil
}

func (p *parser) expectIdent() (string, error) {
	t := p.peek()
	if t.kind != tkIdent {
		return "", bongoerr.Parsef("expected identifier near %q", t.text)
	}
	p.next()
	return t.text, nil
}

// ----- statements -----

func (p *parser) parseSelect() (Statement, error) {
	_ = p.expectKeyword("SELECT")
	stmt := &SelectStmt{}

	if p.acceptSymbol("*") {
		stmt.Wildcard = true
	} else {
		cols, err := p.parseIdentList()
		if err != nil {
			return nil, err
		}
		stmt.Items = cols
	}

	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	stmt.Table = table

	if p.acceptKeyword("WHERE") {
		where, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}

	if p.acceptKeyword("ORDER") {
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		col, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		ob := &OrderBy{Column: col}
		switch {
		case p.acceptKeyword("DESC"):
			ob.Desc = true
		case p.acceptKeyword("ASC"):
			// default direction
		}
		stmt.OrderBy = ob
	}

	return stmt, nil
}

func (p *parser) parseInsert() (Statement, error) {
	_ = p.expectKeyword("INSERT")
	if err := p.expectKeyword("INTO"); err != nil {
		return nil, err
	}
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}

	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	cols, err := p.parseIdentList()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}

	if err := p.expectKeyword("VALUES"); err != nil {
		return nil, err
	}

	var rows [][]record.Value
	for {
		row, err := p.parseValueTuple()
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
		if !p.acceptSymbol(",") {
			break
		}
	}

	return &InsertStmt{Table: table, Columns: cols, Rows: rows}, nil
}

func (p *parser) parseUpdate() (Statement, error) {
	_ = p.expectKeyword("UPDATE")
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("SET"); err != nil {
		return nil, err
	}

	var assigns []Assignment
	for {
		col, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol("="); err != nil {
			return nil, err
		}
		val, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		assigns = append(assigns, Assignment{Column: col, Value: val})
		if !p.acceptSymbol(",") {
			break
		}
	}

	stmt := &UpdateStmt{Table: table, Assignments: assigns}
	if p.acceptKeyword("WHERE") {
		where, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}
	return stmt, nil
}

func (p *parser) parseDelete() (Statement, error) {
	_ = p.expectKeyword("DELETE")
	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}

	stmt := &DeleteStmt{Table: table}
	if p.acceptKeyword("WHERE") {
		where, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}
	return stmt, nil
}

func (p *parser) parseCreateTable() (Statement, error) {
	_ = p.expectKeyword("CREATE")
	if err := p.expectKeyword("TABLE"); err != nil {
		return nil, err
	}
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}

	var cols []record.ColumnDef
	for {
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		typ, err := p.parseColumnType()
		if err != nil {
			return nil, err
		}
		cols = append(cols, record.ColumnDef{Name: name, Type: typ})
		if !p.acceptSymbol(",") {
			break
		}
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}

	return &CreateTableStmt{Table: table, Columns: cols}, nil
}

func (p *parser) parseColumnType() (record.ColumnType, error) {
	name, err := p.expectIdent()
	if err != nil {
		return record.ColumnType{}, err
	}
	switch strings.ToUpper(name) {
	case "INT":
		return record.IntType(), nil
	case "BOOLEAN":
		return record.BoolType(), nil
	case "VARCHAR":
		if err := p.expectSymbol("("); err != nil {
			return record.ColumnType{}, err
		}
		t := p.peek()
		if t.kind != tkNumber {
			return record.ColumnType{}, bongoerr.Parsef("expected varchar size near %q", t.text)
		}
		p.next()
		n, err := strconv.ParseUint(t.text, 10, 32)
		if err != nil || n == 0 {
			return record.ColumnType{}, bongoerr.Parsef("invalid varchar size %q", t.text)
		}
		if err := p.expectSymbol(")"); err != nil {
			return record.ColumnType{}, err
		}
		return record.VarcharType(uint32(n)), nil
	default:
		return record.ColumnType{}, bongoerr.Parsef("unsupported column type %q", name)
	}
}

func (p *parser) parseDropTable() (Statement, error) {
	_ = p.expectKeyword("DROP")
	if err := p.expectKeyword("TABLE"); err != nil {
		return nil, err
	}
	names, err := p.parseIdentList()
	if err != nil {
		return nil, err
	}
	return &DropTableStmt{Tables: names}, nil
}

// ----- shared pieces -----

func (p *parser) parseIdentList() ([]string, error) {
	var out []string
	for {
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		out = append(out, name)
		if !p.acceptSymbol(",") {
			return out, nil
		}
	}
}

func (p *parser) parseValueTuple() ([]record.Value, error) {
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	var row []record.Value
	for {
		v, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		row = append(row, v)
		if !p.acceptSymbol(",") {
			break
		}
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	return row, nil
}

func (p *parser) parseLiteral() (record.Value, error) {
	t := p.peek()
	switch {
	case t.kind == tkNumber:
		p.next()
		n, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return record.Value{}, bongoerr.Parsef("invalid integer literal %q", t.text)
		}
		return record.NewInt(n), nil
	case t.kind == tkString:
		p.next()
		return record.NewVarchar(t.text), nil
	case t.isKeyword("TRUE"):
		p.next()
		return record.NewBool(true), nil
	case t.isKeyword("FALSE"):
		p.next()
		return record.NewBool(false), nil
	case t.isKeyword("NULL"):
		p.next()
		return record.Null(), nil
	default:
		return record.Value{}, bongoerr.Parsef("expected literal near %q", t.text)
	}
}

// ----- expressions -----
//
// Precedence (loosest first): OR, AND, comparison. Parentheses group.

func (p *parser) parseExpr() (record.Expr, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (record.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.acceptKeyword("OR") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &record.Binary{Op: record.OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (record.Expr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.acceptKeyword("AND") {
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &record.Binary{Op: record.OpAnd, Left: left, Right: right}
	}
	return left, nil
}

var comparisonOps = map[string]record.BinaryOp{
	">":  record.OpGt,
	"<":  record.OpLt,
	">=": record.OpGtEq,
	"<=": record.OpLtEq,
	"=":  record.OpEq,
	"!=": record.OpNotEq,
}

func (p *parser) parseComparison() (record.Expr, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	t := p.peek()
	if t.kind != tkSymbol {
		return left, nil
	}
	op, ok := comparisonOps[t.text]
	if !ok {
		return left, nil
	}
	p.next()

	right, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return &record.Binary{Op: op, Left: left, Right: right}, nil
}

func (p *parser) parsePrimary() (record.Expr, error) {
	if p.acceptSymbol("(") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		return e, nil
	}

	t := p.peek()
	if t.kind == tkIdent && !t.isKeyword("TRUE") && !t.isKeyword("FALSE") && !t.isKeyword("NULL") {
		p.next()
		return &record.Ident{Name: t.text}, nil
	}

	v, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	return &record.Literal{Val: v}, nil
}
