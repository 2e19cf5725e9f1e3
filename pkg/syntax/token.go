// Package syntax implements the testlang lexer, parser and AST printer.
package syntax

import (
	"fmt"
	"strings"
)

// TokenType represents the kind of a lexical token.
type TokenType int

const (
	TokenComparison TokenType = iota // <, >, <=, >=
	TokenEquality                    // ==, !=
	TokenIdent                       // identifier
	TokenString                      // string literal
	TokenInt                         // integer literal
	TokenComment                     // // ... (optionally carrying a jump key)

	TokenSemicolon     // ;
	TokenComma         // ,
	TokenLBracket      // (
	TokenRBracket      // )
	TokenCurlyLBracket // {
	TokenCurlyRBracket // }
	TokenAssign        // =

	TokenTrue  // true
	TokenFalse // false
	TokenEOF   // end of program

	TokenAdd      // +
	TokenSubtract // -
	TokenMultiply // *
	TokenDivide   // /
	TokenBang     // !

	TokenUnless // unless
	TokenThen   // then
	TokenCome   // come
	TokenFrom   // from
)

// Location is a 1-based position in the source.
type Location struct {
	Line   int
	Column int
}

func (l Location) String() string {
	return fmt.Sprintf("line %d, column %d", l.Line, l.Column)
}

// Token is a single lexical token and the place it starts.
type Token struct {
	Type    TokenType
	Op      string // comparison operator for TokenComparison
	Reverse bool   // true for != on TokenEquality
	Value   string // identifier name, string contents or comment key
	HasKey  bool   // comment is a bare identifier usable as a jump target
	IntVal  int64
	Loc     Location
}

// String returns the token kind name.
func (t TokenType) String() string {
	switch t {
	case TokenComparison:
		return "comparison"
	case TokenEquality:
		return "equality"
	case TokenIdent:
		return "identifier"
	case TokenString:
		return "string"
	case TokenInt:
		return "int"
	case TokenComment:
		return "comment"
	case TokenSemicolon:
		return "semicolon"
	case TokenComma:
		return "comma"
	case TokenLBracket:
		return "lbracket"
	case TokenRBracket:
		return "rbracket"
	case TokenCurlyLBracket:
		return "curlylbracket"
	case TokenCurlyRBracket:
		return "curlyrbracket"
	case TokenAssign:
		return "assign"
	case TokenTrue:
		return "true"
	case TokenFalse:
		return "false"
	case TokenEOF:
		return "eof"
	case TokenAdd:
		return "add"
	case TokenSubtract:
		return "subtract"
	case TokenMultiply:
		return "multiply"
	case TokenDivide:
		return "divide"
	case TokenBang:
		return "bang"
	case TokenUnless:
		return "unless"
	case TokenThen:
		return "then"
	case TokenCome:
		return "come"
	case TokenFrom:
		return "from"
	default:
		return "unknown"
	}
}

// String renders the token kind with its payload, e.g. identifier(print).
func (t Token) String() string {
	var extra string
	switch t.Type {
	case TokenIdent:
		extra = t.Value
	case TokenString:
		extra = quote(t.Value)
	case TokenInt:
		extra = fmt.Sprintf("%d", t.IntVal)
	case TokenComparison:
		extra = t.Op
	case TokenEquality:
		extra = "=="
		if t.Reverse {
			extra = "!="
		}
	case TokenComment:
		if t.HasKey {
			extra = t.Value
		}
	}
	if extra == "" {
		return t.Type.String()
	}
	return t.Type.String() + "(" + extra + ")"
}

// StringifyTokens renders a token sequence for debugging output.
func StringifyTokens(tokens []Token) string {
	parts := make([]string, len(tokens))
	for i, tok := range tokens {
		parts[i] = tok.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

var keywords = map[string]TokenType{
	"true":   TokenTrue,
	"false":  TokenFalse,
	"unless": TokenUnless,
	"then":   TokenThen,
	"come":   TokenCome,
	"from":   TokenFrom,
}
