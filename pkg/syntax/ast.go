package syntax

// Expr is the interface for all expression AST nodes.
type Expr interface {
	exprNode()
}

// Stmt is the interface for all statement AST nodes.
type Stmt interface {
	stmtNode()
}

// BinaryOp is a binary operator.
type BinaryOp string

const (
	OpEq  BinaryOp = "=="
	OpNeq BinaryOp = "!="
	OpLt  BinaryOp = "<"
	OpGt  BinaryOp = ">"
	OpLte BinaryOp = "<="
	OpGte BinaryOp = ">="
	OpAdd BinaryOp = "+"
	OpSub BinaryOp = "-"
	OpMul BinaryOp = "*"
	OpDiv BinaryOp = "/"
)

// UnaryOp is a prefix operator.
type UnaryOp string

const (
	OpNot UnaryOp = "!"
	OpNeg UnaryOp = "-"
)

// VarExpr is a variable reference.
type VarExpr struct {
	Name string
}

// IntExpr is an integer literal; true and false parse to 1 and 0.
type IntExpr struct {
	Value int64
}

// StringExpr is a string literal.
type StringExpr struct {
	Value string
}

// CallExpr calls the function bound to Name.
type CallExpr struct {
	Name string
	Args []Expr
}

// BracketExpr is a parenthesized expression.
type BracketExpr struct {
	Inner Expr
}

// BinaryExpr is a binary operation.
type BinaryExpr struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// UnaryExpr is a prefix operation.
type UnaryExpr struct {
	Op      UnaryOp
	Operand Expr
}

// SetExpr assigns to Name and yields the assigned value.
type SetExpr struct {
	Name  string
	Value Expr
}

func (*VarExpr) exprNode()     {}
func (*IntExpr) exprNode()     {}
func (*StringExpr) exprNode()  {}
func (*CallExpr) exprNode()    {}
func (*BracketExpr) exprNode() {}
func (*BinaryExpr) exprNode()  {}
func (*UnaryExpr) exprNode()   {}
func (*SetExpr) exprNode()     {}

// Block is a statement list. Jump locations point at a Block, so it is
// always shared by pointer and statements are only ever appended.
type Block struct {
	Statements []Stmt
}

// ScopeStmt is a { ... } block.
type ScopeStmt struct {
	Body *Block
}

// IfStmt runs Run unless the condition holds; see Unless.
type IfStmt struct {
	Run    Stmt // *ScopeStmt or *ExprStmt
	Unless *Unless
}

// Unless is the condition of an IfStmt and its optional continuation.
type Unless struct {
	Cond Expr
	Then *Then
}

// Then continues an unless chain: its Run executes when the previous
// condition held and its own Unless (if any) does not.
type Then struct {
	Run    Stmt // *ScopeStmt or *ExprStmt
	Unless *Unless
}

// ExprStmt evaluates an expression for its effects.
type ExprStmt struct {
	Expr Expr
}

// NoopStmt is a bare ';'.
type NoopStmt struct{}

// GotoStmt jumps to a location registered with "come from Label".
type GotoStmt struct {
	Label string
}

func (*ScopeStmt) stmtNode() {}
func (*IfStmt) stmtNode()    {}
func (*ExprStmt) stmtNode()  {}
func (*NoopStmt) stmtNode()  {}
func (*GotoStmt) stmtNode()  {}

// JumpLocation is a resume point: the statements of Block from index Skip on.
type JumpLocation struct {
	Block *Block
	Skip  int
}

// Program is a parsed source file together with its jump table. The jump
// table is filled while parsing and is read-only afterwards.
type Program struct {
	Body      *Block
	JumpTable map[string][]JumpLocation
}
