package interpreter

import (
	"errors"

	"github.com/lemonberrylabs/testlang/pkg/syntax"
	"github.com/lemonberrylabs/testlang/pkg/types"
)

// ErrorTag classifies an execution error: LexError, SyntaxError, the tag of
// a runtime error, or plain Error for anything else.
func ErrorTag(err error) string {
	var le *syntax.LexError
	var se *syntax.SyntaxError
	var te *types.Error
	switch {
	case errors.As(err, &le):
		return "LexError"
	case errors.As(err, &se):
		return "SyntaxError"
	case errors.As(err, &te):
		return te.Tag
	default:
		return "Error"
	}
}
