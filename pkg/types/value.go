// Package types defines the testlang runtime values, the environment chain
// they live in, and the runtime error kinds.
package types

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lemonberrylabs/testlang/pkg/syntax"
)

// ValueType represents the type tag of a testlang value.
type ValueType int

const (
	TypeNone    ValueType = iota
	TypeInt               // int64
	TypeString            // string
	TypeFunc              // user function with a closure
	TypeBuiltin           // function implemented in Go
)

// String returns the type name used in error messages.
func (t ValueType) String() string {
	switch t {
	case TypeNone:
		return "none"
	case TypeInt:
		return "int"
	case TypeString:
		return "string"
	case TypeFunc:
		return "func"
	case TypeBuiltin:
		return "internal_func"
	default:
		return "unknown"
	}
}

// BuiltinFunc is the Go implementation of a builtin function.
type BuiltinFunc func(args []Value) (Value, error)

// Function is the payload of TypeFunc and TypeBuiltin values.
type Function struct {
	Name   string
	Params []string

	// Body and Closure are set for user functions.
	Body    *syntax.Block
	Closure *Environment

	// Native is set for builtins.
	Native BuiltinFunc
}

// Value is an immutable testlang runtime value, a tagged union.
type Value struct {
	typ       ValueType
	intVal    int64
	stringVal string
	fn        *Function
}

// None is the singleton none value.
var None = Value{typ: TypeNone}

// NewInt creates an integer value.
func NewInt(v int64) Value {
	return Value{typ: TypeInt, intVal: v}
}

// NewBool creates the integer 1 or 0.
func NewBool(v bool) Value {
	if v {
		return NewInt(1)
	}
	return NewInt(0)
}

// NewString creates a string value.
func NewString(v string) Value {
	return Value{typ: TypeString, stringVal: v}
}

// NewFunc creates a user function closing over env.
func NewFunc(name string, params []string, body *syntax.Block, env *Environment) Value {
	return Value{typ: TypeFunc, fn: &Function{Name: name, Params: params, Body: body, Closure: env}}
}

// NewBuiltin creates a builtin function value.
func NewBuiltin(name string, fn BuiltinFunc) Value {
	return Value{typ: TypeBuiltin, fn: &Function{Name: name, Native: fn}}
}

// Type returns the value's type.
func (v Value) Type() ValueType {
	return v.typ
}

// IsNone returns true if the value is none.
func (v Value) IsNone() bool {
	return v.typ == TypeNone
}

// AsInt returns the integer value. Panics if not an int.
func (v Value) AsInt() int64 {
	if v.typ != TypeInt {
		panic(fmt.Sprintf("AsInt called on %s value", v.typ))
	}
	return v.intVal
}

// AsString returns the string value. Panics if not a string.
func (v Value) AsString() string {
	if v.typ != TypeString {
		panic(fmt.Sprintf("AsString called on %s value", v.typ))
	}
	return v.stringVal
}

// AsFunction returns the function payload. Panics if not callable.
func (v Value) AsFunction() *Function {
	if v.typ != TypeFunc && v.typ != TypeBuiltin {
		panic(fmt.Sprintf("AsFunction called on %s value", v.typ))
	}
	return v.fn
}

// String renders the value the way print shows it.
func (v Value) String() string {
	switch v.typ {
	case TypeNone:
		return "none"
	case TypeInt:
		return strconv.FormatInt(v.intVal, 10)
	case TypeString:
		return v.stringVal
	case TypeFunc, TypeBuiltin:
		return v.fn.Name + "(" + strings.Join(v.fn.Params, ", ") + ")"
	default:
		return "<unknown>"
	}
}

// ToBoolean converts a value for an unless condition. Only none and int
// have a truth value.
func (v Value) ToBoolean() (bool, error) {
	switch v.typ {
	case TypeNone:
		return false, nil
	case TypeInt:
		return v.intVal != 0, nil
	default:
		return false, NewTypeError(fmt.Sprintf("type %s cannot be converted to true or false", v.typ))
	}
}

// IsComparable reports whether two values carry the same comparable tag.
// Functions are never comparable.
func IsComparable(a, b Value) bool {
	switch a.typ {
	case TypeNone, TypeInt, TypeString:
		return a.typ == b.typ
	default:
		return false
	}
}

// IsEqual tests equality. Values of different types are never equal and
// functions are not equal even to themselves.
func IsEqual(a, b Value) bool {
	if !IsComparable(a, b) {
		return false
	}
	switch a.typ {
	case TypeNone:
		return true
	case TypeInt:
		return a.intVal == b.intVal
	case TypeString:
		return a.stringVal == b.stringVal
	default:
		return false
	}
}

// IsLess orders two ints. Every other pair, strings included, is unordered.
func IsLess(a, b Value) bool {
	return a.typ == TypeInt && b.typ == TypeInt && a.intVal < b.intVal
}
