package runtime

import (
	"fmt"
	"strings"

	"github.com/lemonberrylabs/testlang/pkg/syntax"
	"github.com/lemonberrylabs/testlang/pkg/types"
)

// maxStringLen caps the result of string repetition.
const maxStringLen = 64 << 20

// evalBinary applies a binary operator to two evaluated operands.
func evalBinary(op syntax.BinaryOp, left, right types.Value) (types.Value, error) {
	switch op {
	case syntax.OpAdd, syntax.OpSub, syntax.OpMul, syntax.OpDiv:
		return evalArith(op, left, right)
	default:
		return evalCompare(op, left, right)
	}
}

func evalArith(op syntax.BinaryOp, left, right types.Value) (types.Value, error) {
	lt, rt := left.Type(), right.Type()

	switch {
	case lt == types.TypeInt && rt == types.TypeInt:
		a, b := left.AsInt(), right.AsInt()
		switch op {
		case syntax.OpAdd:
			return types.NewInt(a + b), nil
		case syntax.OpSub:
			return types.NewInt(a - b), nil
		case syntax.OpMul:
			return types.NewInt(a * b), nil
		default:
			if b == 0 {
				return types.None, types.NewTypeError("division by zero")
			}
			return types.NewInt(a / b), nil
		}

	case op == syntax.OpAdd && lt == types.TypeString && rt == types.TypeString:
		return types.NewString(left.AsString() + right.AsString()), nil

	case op == syntax.OpMul && lt == types.TypeString && rt == types.TypeInt:
		return repeat(left.AsString(), right.AsInt())
	}

	return types.None, types.NewTypeError(
		fmt.Sprintf("cannot use operation %s between %s and %s", op, lt, rt))
}

func repeat(s string, n int64) (types.Value, error) {
	if n < 0 {
		return types.None, types.NewTypeError(fmt.Sprintf("cannot repeat a string %d times", n))
	}
	if n > 0 && int64(len(s)) > maxStringLen/n {
		return types.None, types.NewResourceLimitError(
			fmt.Sprintf("string repetition exceeds %d bytes", maxStringLen))
	}
	return types.NewString(strings.Repeat(s, int(n))), nil
}

// evalCompare never fails: incomparable operands yield 0. Only ints have a
// less-than relation; >, >= and <= are derived from less and equal, so for
// two equal strings <= and >= hold.
func evalCompare(op syntax.BinaryOp, left, right types.Value) (types.Value, error) {
	if !types.IsComparable(left, right) {
		return types.NewInt(0), nil
	}

	switch op {
	case syntax.OpEq:
		return types.NewBool(types.IsEqual(left, right)), nil
	case syntax.OpNeq:
		return types.NewBool(!types.IsEqual(left, right)), nil
	}

	less, equal := types.IsLess(left, right), types.IsEqual(left, right)
	switch op {
	case syntax.OpLt:
		return types.NewBool(less), nil
	case syntax.OpGte:
		return types.NewBool(!less), nil
	case syntax.OpGt:
		return types.NewBool(!less && !equal), nil
	case syntax.OpLte:
		return types.NewBool(less || equal), nil
	default:
		return types.None, fmt.Errorf("runtime: unknown operator %s", op)
	}
}

// evalUnary applies ! or - to an int.
func evalUnary(op syntax.UnaryOp, v types.Value) (types.Value, error) {
	if v.Type() != types.TypeInt {
		return types.None, types.NewTypeError(
			fmt.Sprintf("cannot use unary operator %s on %s", op, v.Type()))
	}
	switch op {
	case syntax.OpNeg:
		return types.NewInt(-v.AsInt()), nil
	case syntax.OpNot:
		return types.NewBool(v.AsInt() == 0), nil
	default:
		return types.None, fmt.Errorf("runtime: unknown operator %s", op)
	}
}
