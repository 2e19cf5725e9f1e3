package syntax

// Parser is a recursive descent parser for testlang programs.
type Parser struct {
	tokens  []Token
	pos     int
	program *Program
}

// NewParser creates a parser over a token sequence produced by Lex.
// Comments that are not jump targets are dropped here so that they may
// appear anywhere, including inside expressions.
func NewParser(tokens []Token) *Parser {
	filtered := make([]Token, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Type == TokenComment && !tok.HasKey {
			continue
		}
		filtered = append(filtered, tok)
	}
	if len(filtered) == 0 || filtered[len(filtered)-1].Type != TokenEOF {
		filtered = append(filtered, Token{Type: TokenEOF})
	}
	return &Parser{
		tokens: filtered,
		program: &Program{
			Body:      &Block{},
			JumpTable: make(map[string][]JumpLocation),
		},
	}
}

// Parse parses a complete token sequence into a Program.
func Parse(tokens []Token) (*Program, error) {
	p := NewParser(tokens)
	if err := p.parseStatements(p.program.Body, false); err != nil {
		return nil, err
	}
	return p.program, nil
}

// ParseSource lexes and parses source text.
func ParseSource(source string) (*Program, error) {
	tokens, err := Lex(source)
	if err != nil {
		return nil, err
	}
	return Parse(tokens)
}

// current returns the current token.
func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos]
}

// advance consumes the current token and returns it. The trailing EOF is
// never consumed.
func (p *Parser) advance() Token {
	tok := p.current()
	if tok.Type != TokenEOF {
		p.pos++
	}
	return tok
}

// match consumes the current token if it has the given type.
func (p *Parser) match(tt TokenType) bool {
	if p.current().Type != tt {
		return false
	}
	p.advance()
	return true
}

// consume consumes a token of the expected type or returns a SyntaxError.
func (p *Parser) consume(tt TokenType, expected string) (Token, error) {
	tok := p.current()
	if tok.Type != tt {
		return tok, &SyntaxError{Found: tok, Expected: expected}
	}
	p.advance()
	return tok, nil
}

// parseStatements appends statements to block until EOF, or until a
// closing '}' when inScope is set. The '}' itself is left for the caller.
func (p *Parser) parseStatements(block *Block, inScope bool) error {
	for {
		tok := p.current()
		switch tok.Type {
		case TokenEOF:
			if inScope {
				return &SyntaxError{Found: tok, Expected: "'}'"}
			}
			return nil
		case TokenCurlyRBracket:
			if !inScope {
				return &SyntaxError{Found: tok, Expected: "statement"}
			}
			return nil
		case TokenSemicolon:
			p.advance()
			block.Statements = append(block.Statements, &NoopStmt{})
		case TokenComment:
			p.advance()
			block.Statements = append(block.Statements, &GotoStmt{Label: tok.Value})
		case TokenCome:
			if err := p.parseComeFrom(block); err != nil {
				return err
			}
		case TokenUnless:
			stmt, err := p.parseLeadingUnless()
			if err != nil {
				return err
			}
			block.Statements = append(block.Statements, stmt)
		default:
			stmt, err := p.parseStatement()
			if err != nil {
				return err
			}
			block.Statements = append(block.Statements, stmt)
		}
	}
}

// parseComeFrom parses "come from label;" and registers the current end of
// block as a resume point for label.
func (p *Parser) parseComeFrom(block *Block) error {
	p.advance() // consume 'come'
	if _, err := p.consume(TokenFrom, "'from'"); err != nil {
		return err
	}
	label, err := p.consume(TokenIdent, "label identifier")
	if err != nil {
		return err
	}
	if _, err := p.consume(TokenSemicolon, "';'"); err != nil {
		return err
	}

	p.program.JumpTable[label.Value] = append(p.program.JumpTable[label.Value], JumpLocation{
		Block: block,
		Skip:  len(block.Statements),
	})
	return nil
}

// parseStatement parses a body followed by an optional unless chain.
func (p *Parser) parseStatement() (Stmt, error) {
	run, err := p.parseBody()
	if err != nil {
		return nil, err
	}

	if p.current().Type == TokenUnless {
		unless, err := p.parseUnless()
		if err != nil {
			return nil, err
		}
		return &IfStmt{Run: run, Unless: unless}, nil
	}

	if _, ok := run.(*ExprStmt); ok {
		if _, err := p.consume(TokenSemicolon, "';'"); err != nil {
			return nil, err
		}
	}
	return run, nil
}

// parseBody parses either a { ... } scope or a single expression.
func (p *Parser) parseBody() (Stmt, error) {
	if p.match(TokenCurlyLBracket) {
		block := &Block{}
		if err := p.parseStatements(block, true); err != nil {
			return nil, err
		}
		if _, err := p.consume(TokenCurlyRBracket, "'}'"); err != nil {
			return nil, err
		}
		return &ScopeStmt{Body: block}, nil
	}

	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ExprStmt{Expr: expr}, nil
}

// parseUnless parses "unless cond [then body [unless ...]]".
func (p *Parser) parseUnless() (*Unless, error) {
	if _, err := p.consume(TokenUnless, "'unless'"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	unless := &Unless{Cond: cond}
	if !p.match(TokenThen) {
		return unless, nil
	}

	run, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	unless.Then = &Then{Run: run}
	if p.current().Type == TokenUnless {
		if unless.Then.Unless, err = p.parseUnless(); err != nil {
			return nil, err
		}
	}
	return unless, nil
}

// parseLeadingUnless parses the ladder form
//
//	unless c1 then b1 unless c2 then b2 ...
//
// where each body runs when its own condition is false and all earlier
// conditions were true. It builds the same tree as "b1 unless c1 then b2
// unless c2 ...".
func (p *Parser) parseLeadingUnless() (Stmt, error) {
	var stmt *IfStmt
	var tail *Unless

	for p.current().Type == TokenUnless {
		p.advance()
		cond, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(TokenThen, "'then'"); err != nil {
			return nil, err
		}
		run, err := p.parseBody()
		if err != nil {
			return nil, err
		}

		unless := &Unless{Cond: cond}
		if stmt == nil {
			stmt = &IfStmt{Run: run, Unless: unless}
		} else {
			tail.Then = &Then{Run: run, Unless: unless}
		}
		tail = unless
	}
	return stmt, nil
}

// parseExpression is the entry point: handles the lowest precedence operators.
// Precedence (low to high):
//
//	==, !=
//	<, >, <=, >=
//	+, -
//	*, /
//	unary !, unary -
//	primary
func (p *Parser) parseExpression() (Expr, error) {
	return p.parseEquality()
}

func (p *Parser) parseEquality() (Expr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenEquality {
		op := OpEq
		if p.advance().Reverse {
			op = OpNeq
		}
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseComparison() (Expr, error) {
	left, err := p.parseAddition()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenComparison {
		op := BinaryOp(p.advance().Op)
		right, err := p.parseAddition()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAddition() (Expr, error) {
	left, err := p.parseMultiplication()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenAdd || p.current().Type == TokenSubtract {
		op := OpAdd
		if p.advance().Type == TokenSubtract {
			op = OpSub
		}
		right, err := p.parseMultiplication()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplication() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenMultiply || p.current().Type == TokenDivide {
		op := OpMul
		if p.advance().Type == TokenDivide {
			op = OpDiv
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (Expr, error) {
	var op UnaryOp
	switch p.current().Type {
	case TokenBang:
		op = OpNot
	case TokenSubtract:
		op = OpNeg
	default:
		return p.parsePrimary()
	}

	p.advance()
	operand, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &UnaryExpr{Op: op, Operand: operand}, nil
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.current()

	switch tok.Type {
	case TokenIdent:
		p.advance()
		switch p.current().Type {
		case TokenLBracket:
			args, err := p.parseArgList()
			if err != nil {
				return nil, err
			}
			return &CallExpr{Name: tok.Value, Args: args}, nil
		case TokenAssign:
			p.advance()
			value, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			return &SetExpr{Name: tok.Value, Value: value}, nil
		}
		return &VarExpr{Name: tok.Value}, nil
	case TokenInt:
		p.advance()
		return &IntExpr{Value: tok.IntVal}, nil
	case TokenString:
		p.advance()
		return &StringExpr{Value: tok.Value}, nil
	case TokenTrue:
		p.advance()
		return &IntExpr{Value: 1}, nil
	case TokenFalse:
		p.advance()
		return &IntExpr{Value: 0}, nil
	case TokenLBracket:
		p.advance()
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(TokenRBracket, "')'"); err != nil {
			return nil, err
		}
		return &BracketExpr{Inner: inner}, nil
	default:
		return nil, &SyntaxError{Found: tok, Expected: "expression"}
	}
}

// parseArgList parses (expr, expr, ...).
func (p *Parser) parseArgList() ([]Expr, error) {
	if _, err := p.consume(TokenLBracket, "'('"); err != nil {
		return nil, err
	}

	var args []Expr
	if p.match(TokenRBracket) {
		return args, nil
	}
	for {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		if p.match(TokenComma) {
			continue
		}
		if _, err := p.consume(TokenRBracket, "',' or ')'"); err != nil {
			return nil, err
		}
		return args, nil
	}
}
