package record

// Expr is the predicate/expression tree evaluated against rows.
type Expr interface {
	exprNode()
}

type Literal struct {
	Val Value
}

type Ident struct {
	Name string
}

type BinaryOp uint8

const (
	OpGt BinaryOp = iota
	OpLt
	OpGtEq
	OpLtEq
	OpEq
	OpNotEq
	OpAnd
	OpOr
)

func (op BinaryOp) String() string {
	switch op {
	case OpGt:
		return ">"
	case OpLt:
		return "<"
	case OpGtEq:
		return ">="
	case OpLtEq:
		return "<="
	case OpEq:
		return "="
	case OpNotEq:
		return "!="
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	default:
		return "?"
	}
}

// IsComparison reports whether op is one of the six comparison operators.
func (op BinaryOp) IsComparison() bool { return op <= OpNotEq }

type Binary struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (*Literal) exprNode() {}
func (*Ident) exprNode()   {}
func (*Binary) exprNode()  {}
