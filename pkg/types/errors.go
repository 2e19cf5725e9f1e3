package types

import "fmt"

// Error tag constants for testlang runtime errors.
const (
	TagNameError          = "NameError"
	TagTypeError          = "TypeError"
	TagArityError         = "ArityError"
	TagResourceLimitError = "ResourceLimitError"
	TagCancelledError     = "CancelledError"
)

// Error is a fatal testlang runtime error.
type Error struct {
	Tag     string
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Tag, e.Message)
}

// Is matches another *Error with the same tag, so callers can write
// errors.Is(err, &types.Error{Tag: types.TagNameError}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Tag == e.Tag && (t.Message == "" || t.Message == e.Message)
}

// NewNameError reports an undefined variable or function. kind is
// "Variable" or "Function".
func NewNameError(kind, name string) *Error {
	return &Error{
		Tag:     TagNameError,
		Message: fmt.Sprintf("%s %s could not be found in the current scope, are you sure it is spelled correctly?", kind, name),
	}
}

// NewTypeError reports an operand or callee of the wrong type.
func NewTypeError(msg string) *Error {
	return &Error{Tag: TagTypeError, Message: msg}
}

// NewArityError reports a call with the wrong number of arguments.
func NewArityError(name string, got, want int) *Error {
	return &Error{
		Tag:     TagArityError,
		Message: fmt.Sprintf("tried calling function %s with %d arguments while the function expects %d arguments", name, got, want),
	}
}

// NewResourceLimitError reports an execution that ran past its step budget.
func NewResourceLimitError(msg string) *Error {
	return &Error{Tag: TagResourceLimitError, Message: msg}
}

// NewCancelledError reports an execution stopped through its context.
func NewCancelledError(cause error) *Error {
	return &Error{Tag: TagCancelledError, Message: fmt.Sprintf("execution cancelled: %v", cause)}
}
