package syntax

import (
	"errors"
	"fmt"
)

// LexError reports a character that starts no token.
type LexError struct {
	Char    rune
	Offset  int // byte offset in the source
	Message string
}

// Error implements the error interface.
func (e *LexError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("LexError: %s at position %d", e.Message, e.Offset)
	}
	return fmt.Sprintf("LexError: unknown character %q at position %d", string(e.Char), e.Offset)
}

// SyntaxError reports a token the parser did not expect.
type SyntaxError struct {
	Found    Token
	Expected string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("SyntaxError: expected %s but found %s at %s", e.Expected, e.Found, e.Found.Loc)
}

// IsIncomplete reports whether err is a syntax error caused by the source
// ending early, i.e. more input could make it parse.
func IsIncomplete(err error) bool {
	var se *SyntaxError
	return errors.As(err, &se) && se.Found.Type == TokenEOF
}
