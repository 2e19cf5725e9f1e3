// Package stdlib implements the testlang builtin functions.
package stdlib

import (
	"fmt"
	"sort"

	"github.com/lemonberrylabs/testlang/pkg/types"
)

// LogFunc receives one line of program output per print call.
type LogFunc func(line string)

// Registry holds the builtin functions of one execution.
type Registry struct {
	funcs map[string]types.BuiltinFunc
	log   LogFunc
}

// NewRegistry creates a registry with print and mod registered. print
// writes to log; a nil log discards output.
func NewRegistry(log LogFunc) *Registry {
	if log == nil {
		log = func(string) {}
	}
	r := &Registry{
		funcs: make(map[string]types.BuiltinFunc),
		log:   log,
	}
	r.registerBuiltins()
	return r
}

// Register adds a function to the registry.
func (r *Registry) Register(name string, fn types.BuiltinFunc) {
	r.funcs[name] = fn
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CallFunction calls a builtin by name.
func (r *Registry) CallFunction(name string, args []types.Value) (types.Value, error) {
	fn, ok := r.funcs[name]
	if !ok {
		return types.None, types.NewNameError("Function", name)
	}
	return fn(args)
}

// Environment returns a fresh root environment with every builtin bound.
func (r *Registry) Environment() *types.Environment {
	names := r.Names()
	bindings := make([]types.Binding, len(names))
	for i, name := range names {
		bindings[i] = types.Binding{Name: name, Value: types.NewBuiltin(name, r.funcs[name])}
	}
	return types.NewEnvironment(bindings, nil)
}

// requireArgs checks that the number of args is exactly n.
func requireArgs(name string, args []types.Value, n int) error {
	if len(args) != n {
		return types.NewArityError(name, len(args), n)
	}
	return nil
}

// requireInt checks that args[i] is an int.
func requireInt(name string, args []types.Value, i int) error {
	if args[i].Type() != types.TypeInt {
		return types.NewTypeError(fmt.Sprintf("%s() expects int arguments, got %s", name, args[i].Type()))
	}
	return nil
}
