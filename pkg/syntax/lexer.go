package syntax

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// symbols are tried in order, so every multi-character operator precedes
// the single-character operators it starts with.
var symbols = []struct {
	text string
	tok  *Token // nil for whitespace
}{
	{"==", &Token{Type: TokenEquality}},
	{"!=", &Token{Type: TokenEquality, Reverse: true}},
	{"<=", &Token{Type: TokenComparison, Op: "<="}},
	{">=", &Token{Type: TokenComparison, Op: ">="}},
	{"<", &Token{Type: TokenComparison, Op: "<"}},
	{">", &Token{Type: TokenComparison, Op: ">"}},
	{" ", nil},
	{"\n", nil},
	{"\t", nil},
	{"\r", nil},
	{";", &Token{Type: TokenSemicolon}},
	{",", &Token{Type: TokenComma}},
	{"(", &Token{Type: TokenLBracket}},
	{")", &Token{Type: TokenRBracket}},
	{"{", &Token{Type: TokenCurlyLBracket}},
	{"}", &Token{Type: TokenCurlyRBracket}},
	{"=", &Token{Type: TokenAssign}},
	{"+", &Token{Type: TokenAdd}},
	{"-", &Token{Type: TokenSubtract}},
	{"*", &Token{Type: TokenMultiply}},
	{"/", &Token{Type: TokenDivide}},
	{"!", &Token{Type: TokenBang}},
}

// Lexer tokenizes testlang source text.
type Lexer struct {
	input  string
	pos    int
	loc    Location
	tokens []Token
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input, loc: Location{Line: 1, Column: 1}}
}

// Lex tokenizes source. The result always ends with a TokenEOF.
func Lex(source string) ([]Token, error) {
	return NewLexer(source).Tokenize()
}

// Tokenize scans the entire input and returns all tokens.
func (l *Lexer) Tokenize() ([]Token, error) {
	for l.pos < len(l.input) {
		if err := l.next(); err != nil {
			return nil, err
		}
	}
	l.tokens = append(l.tokens, Token{Type: TokenEOF, Loc: l.loc})
	return l.tokens, nil
}

func (l *Lexer) next() error {
	rest := l.input[l.pos:]

	if strings.HasPrefix(rest, "//") {
		l.readComment()
		return nil
	}

	for _, sym := range symbols {
		if strings.HasPrefix(rest, sym.text) {
			loc := l.consume(len(sym.text))
			if sym.tok != nil {
				tok := *sym.tok
				tok.Loc = loc
				l.tokens = append(l.tokens, tok)
			}
			return nil
		}
	}

	ch := l.input[l.pos]
	if ch == '"' || ch == '\'' {
		return l.readString(ch)
	}
	if isDigit(ch) {
		l.readNumber()
		return nil
	}
	if r, _ := utf8.DecodeRuneInString(rest); isIdentChar(r) {
		l.readIdentifier()
		return nil
	}

	r, _ := utf8.DecodeRuneInString(rest)
	return &LexError{Char: r, Offset: l.pos}
}

// consume advances past n bytes and returns the location where they began.
func (l *Lexer) consume(n int) Location {
	start := l.loc
	text := l.input[l.pos : l.pos+n]
	l.pos += n

	if newlines := strings.Count(text, "\n"); newlines > 0 {
		l.loc.Line += newlines
		l.loc.Column = utf8.RuneCountInString(text[strings.LastIndexByte(text, '\n')+1:]) + 1
	} else {
		l.loc.Column += utf8.RuneCountInString(text)
	}
	return start
}

// readComment reads a // comment up to (not including) the end of the line.
// A comment whose whole body is one identifier names a jump target.
func (l *Lexer) readComment() {
	end := strings.IndexByte(l.input[l.pos:], '\n')
	if end == -1 {
		end = len(l.input) - l.pos
	}
	body := strings.TrimSpace(l.input[l.pos+2 : l.pos+end])
	loc := l.consume(end)

	tok := Token{Type: TokenComment, Loc: loc}
	if isIdentifier(body) {
		tok.Value = body
		tok.HasKey = true
	}
	l.tokens = append(l.tokens, tok)
}

// readString reads a quoted string literal up to the first unescaped
// matching quote.
func (l *Lexer) readString(quote byte) error {
	start := l.pos
	i := l.pos + 1

	var sb strings.Builder
	for i < len(l.input) {
		ch := l.input[i]
		if ch == '\\' && i+1 < len(l.input) {
			i++
			switch escaped := l.input[i]; escaped {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			default:
				sb.WriteByte(escaped)
			}
			i++
			continue
		}
		if ch == quote {
			loc := l.consume(i + 1 - start)
			l.tokens = append(l.tokens, Token{Type: TokenString, Value: sb.String(), Loc: loc})
			return nil
		}
		sb.WriteByte(ch)
		i++
	}

	return &LexError{Char: rune(quote), Offset: start, Message: "unterminated string"}
}

// readNumber accumulates decimal digits; overflow wraps.
func (l *Lexer) readNumber() {
	var n int64
	i := l.pos
	for i < len(l.input) && isDigit(l.input[i]) {
		n = n*10 + int64(l.input[i]-'0')
		i++
	}
	loc := l.consume(i - l.pos)
	l.tokens = append(l.tokens, Token{Type: TokenInt, IntVal: n, Loc: loc})
}

// readIdentifier reads an identifier or keyword.
func (l *Lexer) readIdentifier() {
	i := l.pos
	for i < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[i:])
		if !isIdentChar(r) && !(r < utf8.RuneSelf && isDigit(byte(r))) {
			break
		}
		i += size
	}

	word := l.input[l.pos:i]
	loc := l.consume(i - l.pos)
	if tt, ok := keywords[word]; ok {
		l.tokens = append(l.tokens, Token{Type: tt, Loc: loc})
		return
	}
	l.tokens = append(l.tokens, Token{Type: TokenIdent, Value: word, Loc: loc})
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || unicode.IsLetter(r)
}

// isIdentifier reports whether s lexes as exactly one identifier.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if isIdentChar(r) {
			continue
		}
		if i > 0 && r < utf8.RuneSelf && isDigit(byte(r)) {
			continue
		}
		return false
	}
	_, reserved := keywords[s]
	return !reserved
}
