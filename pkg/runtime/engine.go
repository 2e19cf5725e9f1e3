// Package runtime implements the testlang tree-walking evaluator.
package runtime

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/lemonberrylabs/testlang/pkg/syntax"
	"github.com/lemonberrylabs/testlang/pkg/types"
)

// Rand picks among several jump locations registered under one label.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Jump is the control outcome of a goto: resume at Location with Env.
// It travels up the call chain as a return value, never as an error.
type Jump struct {
	Location syntax.JumpLocation
	Env      *types.Environment
}

// result is the outcome of evaluating an expression. When jump is set the
// rest of the enclosing statement list is abandoned and val is meaningless.
type result struct {
	env  *types.Environment
	val  types.Value
	jump *Jump
}

// Engine executes one parsed testlang program.
type Engine struct {
	program  *syntax.Program
	rand     Rand
	maxSteps int

	mu        sync.Mutex
	stepCount int
	cancelled bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand sets the source used to choose among same-named jump locations.
func WithRand(r Rand) Option {
	return func(e *Engine) {
		if r != nil {
			e.rand = r
		}
	}
}

// WithMaxSteps bounds the number of statements one Run may execute.
// Zero means no limit.
func WithMaxSteps(n int) Option {
	return func(e *Engine) { e.maxSteps = n }
}

// NewEngine creates an evaluator for program.
func NewEngine(program *syntax.Program, opts ...Option) *Engine {
	e := &Engine{
		program: program,
		rand:    globalRand{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run evaluates the program body in env. Whenever a goto escapes a
// statement list, evaluation resumes at the jump location with the
// environment current at the goto, until a pass finishes without a jump.
// The returned environment is the one in effect after the last statement
// of the final pass.
func (e *Engine) Run(ctx context.Context, env *types.Environment) (*types.Environment, error) {
	stmts := e.program.Body.Statements
	for {
		next, jump, err := e.executeStatements(ctx, stmts, env)
		if err != nil {
			return env, err
		}
		if jump == nil {
			return next, nil
		}
		stmts = jump.Location.Block.Statements[jump.Location.Skip:]
		env = jump.Env
	}
}

// Cancel stops the current execution before its next statement.
func (e *Engine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelled = true
}

// step runs the per-statement checks: cancellation and the step budget.
func (e *Engine) step(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return types.NewCancelledError(ctx.Err())
	default:
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancelled {
		return types.NewCancelledError(context.Canceled)
	}
	e.stepCount++
	if e.maxSteps > 0 && e.stepCount > e.maxSteps {
		return types.NewResourceLimitError(
			fmt.Sprintf("execution exceeded maximum step limit of %d", e.maxSteps))
	}
	return nil
}

// executeStatements runs a statement list in order, threading env.
func (e *Engine) executeStatements(ctx context.Context, stmts []syntax.Stmt, env *types.Environment) (*types.Environment, *Jump, error) {
	for _, stmt := range stmts {
		if err := e.step(ctx); err != nil {
			return env, nil, err
		}

		switch s := stmt.(type) {
		case *syntax.NoopStmt:
		case *syntax.ExprStmt:
			res, err := e.evalExpr(ctx, env, s.Expr)
			if err != nil || res.jump != nil {
				return env, res.jump, err
			}
			env = res.env
		case *syntax.ScopeStmt:
			// Frames created inside the block stay inside it.
			_, jump, err := e.executeStatements(ctx, s.Body.Statements, env)
			if err != nil || jump != nil {
				return env, jump, err
			}
		case *syntax.IfStmt:
			next, jump, err := e.executeIf(ctx, s, env)
			if err != nil || jump != nil {
				return env, jump, err
			}
			env = next
		case *syntax.GotoStmt:
			locations := e.program.JumpTable[s.Label]
			// A comment that was never the target of a come from is not a jump.
			if len(locations) == 0 {
				continue
			}
			loc := locations[e.rand.IntN(len(locations))]
			return env, &Jump{Location: loc, Env: env}, nil
		default:
			return env, nil, fmt.Errorf("runtime: unknown statement %T", stmt)
		}
	}
	return env, nil, nil
}

// executeIf walks the unless/then ladder. Conditions thread the
// environment; bodies run in it but their new frames are dropped.
func (e *Engine) executeIf(ctx context.Context, s *syntax.IfStmt, env *types.Environment) (*types.Environment, *Jump, error) {
	run, unless := s.Run, s.Unless
	for {
		if unless == nil {
			jump, err := e.executeBody(ctx, run, env)
			return env, jump, err
		}

		cond, err := e.evalExpr(ctx, env, unless.Cond)
		if err != nil || cond.jump != nil {
			return env, cond.jump, err
		}
		env = cond.env

		truth, err := cond.val.ToBoolean()
		if err != nil {
			return env, nil, err
		}
		if !truth {
			jump, err := e.executeBody(ctx, run, env)
			return env, jump, err
		}
		if unless.Then == nil {
			return env, nil, nil
		}
		run, unless = unless.Then.Run, unless.Then.Unless
	}
}

// executeBody runs the body of an unless or then clause.
func (e *Engine) executeBody(ctx context.Context, body syntax.Stmt, env *types.Environment) (*Jump, error) {
	switch b := body.(type) {
	case *syntax.ScopeStmt:
		_, jump, err := e.executeStatements(ctx, b.Body.Statements, env)
		return jump, err
	case *syntax.ExprStmt:
		res, err := e.evalExpr(ctx, env, b.Expr)
		return res.jump, err
	default:
		return nil, fmt.Errorf("runtime: unexpected body %T", body)
	}
}

// evalExpr evaluates an expression and returns the possibly extended
// environment together with its value.
func (e *Engine) evalExpr(ctx context.Context, env *types.Environment, expr syntax.Expr) (result, error) {
	switch ex := expr.(type) {
	case *syntax.VarExpr:
		v, ok := env.Get(ex.Name)
		if !ok {
			return result{env: env}, types.NewNameError("Variable", ex.Name)
		}
		return result{env: env, val: v}, nil

	case *syntax.IntExpr:
		return result{env: env, val: types.NewInt(ex.Value)}, nil

	case *syntax.StringExpr:
		return result{env: env, val: types.NewString(ex.Value)}, nil

	case *syntax.BracketExpr:
		return e.evalExpr(ctx, env, ex.Inner)

	case *syntax.SetExpr:
		res, err := e.evalExpr(ctx, env, ex.Value)
		if err != nil || res.jump != nil {
			return res, err
		}
		res.env = res.env.Set(ex.Name, res.val)
		return res, nil

	case *syntax.CallExpr:
		return e.evalCall(ctx, env, ex)

	case *syntax.BinaryExpr:
		left, err := e.evalExpr(ctx, env, ex.Left)
		if err != nil || left.jump != nil {
			return left, err
		}
		right, err := e.evalExpr(ctx, left.env, ex.Right)
		if err != nil || right.jump != nil {
			return right, err
		}
		v, err := evalBinary(ex.Op, left.val, right.val)
		if err != nil {
			return result{env: right.env}, err
		}
		return result{env: right.env, val: v}, nil

	case *syntax.UnaryExpr:
		operand, err := e.evalExpr(ctx, env, ex.Operand)
		if err != nil || operand.jump != nil {
			return operand, err
		}
		v, err := evalUnary(ex.Op, operand.val)
		if err != nil {
			return result{env: operand.env}, err
		}
		return result{env: operand.env, val: v}, nil

	default:
		return result{env: env}, fmt.Errorf("runtime: unknown expression %T", expr)
	}
}

// evalArgs evaluates call arguments left to right, threading env.
func (e *Engine) evalArgs(ctx context.Context, env *types.Environment, exprs []syntax.Expr) ([]types.Value, result, error) {
	values := make([]types.Value, 0, len(exprs))
	res := result{env: env}
	for _, arg := range exprs {
		r, err := e.evalExpr(ctx, res.env, arg)
		if err != nil || r.jump != nil {
			return nil, r, err
		}
		res.env = r.env
		values = append(values, r.val)
	}
	return values, res, nil
}

// evalCall calls a user function or a builtin.
func (e *Engine) evalCall(ctx context.Context, env *types.Environment, call *syntax.CallExpr) (result, error) {
	callee, ok := env.Get(call.Name)
	if !ok {
		return result{env: env}, types.NewNameError("Function", call.Name)
	}

	switch callee.Type() {
	case types.TypeFunc:
		fn := callee.AsFunction()
		if len(call.Args) != len(fn.Params) {
			return result{env: env}, types.NewArityError(fn.Name, len(call.Args), len(fn.Params))
		}
		args, res, err := e.evalArgs(ctx, env, call.Args)
		if err != nil || res.jump != nil {
			return res, err
		}

		bindings := make([]types.Binding, len(args))
		for i, v := range args {
			bindings[i] = types.Binding{Name: fn.Params[i], Value: v}
		}
		frame := types.NewEnvironment(bindings, fn.Closure)
		if _, jump, err := e.executeStatements(ctx, fn.Body.Statements, frame); err != nil || jump != nil {
			return result{env: res.env, jump: jump}, err
		}
		return result{env: res.env, val: types.None}, nil

	case types.TypeBuiltin:
		args, res, err := e.evalArgs(ctx, env, call.Args)
		if err != nil || res.jump != nil {
			return res, err
		}
		v, err := callee.AsFunction().Native(args)
		if err != nil {
			return result{env: res.env}, err
		}
		return result{env: res.env, val: v}, nil

	default:
		return result{env: env}, types.NewTypeError(
			fmt.Sprintf("cannot call value of type %s as a function", callee.Type()))
	}
}
