package stdlib

import (
	"strings"

	"github.com/lemonberrylabs/testlang/pkg/types"
)

// registerBuiltins registers print and mod.
func (r *Registry) registerBuiltins() {
	r.Register("print", r.print)
	r.Register("mod", stdMod)
}

// print logs its arguments space-joined as one line.
func (r *Registry) print(args []types.Value) (types.Value, error) {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = arg.String()
	}
	r.log(strings.Join(parts, " "))
	return types.None, nil
}

func stdMod(args []types.Value) (types.Value, error) {
	if err := requireArgs("mod", args, 2); err != nil {
		return types.None, err
	}
	for i := range args {
		if err := requireInt("mod", args, i); err != nil {
			return types.None, err
		}
	}
	b := args[1].AsInt()
	if b == 0 {
		return types.None, types.NewTypeError("mod() by zero")
	}
	return types.NewInt(args[0].AsInt() % b), nil
}
