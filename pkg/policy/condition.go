package policy

import (
	"fmt"
	"math"

	"github.com/google/cel-go/cel"

	"github.com/Mindburn-Labs/charter/pkg/identity"
	"github.com/Mindburn-Labs/charter/pkg/money"
)

// TransferInput is what a transfer condition can see.
type TransferInput struct {
	Balance    money.Amount
	Amount     money.Amount
	Recipient  identity.Identity
	Registered bool
	Owner      identity.Identity
}

// Condition is a compiled transfer condition. It is safe for concurrent use.
type Condition struct {
	expr string
	prg  cel.Program
}

// CompileCondition type-checks expr against the transfer environment.
//
// balance and amount are CEL uints. Values above 2^64-1 saturate, which keeps
// ordering against any uint literal. The treasury's exact funds check always
// runs first.
func CompileCondition(expr string) (*Condition, error) {
	// 1. Environment
	env, err := cel.NewEnv(
		cel.Variable("balance", cel.UintType),
		cel.Variable("amount", cel.UintType),
		cel.Variable("recipient", cel.StringType),
		cel.Variable("registered", cel.BoolType),
		cel.Variable("owner", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("policy: create CEL environment: %w", err)
	}

	// 2. Compile and check the result type
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("policy: compile %q: %w", expr, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("policy: condition %q yields %s, want bool", expr, ast.OutputType())
	}

	// 3. Program with a hard cost ceiling
	prg, err := env.Program(ast,
		cel.InterruptCheckFrequency(100),
		cel.CostLimit(10000),
	)
	if err != nil {
		return nil, fmt.Errorf("policy: program %q: %w", expr, err)
	}
	return &Condition{expr: expr, prg: prg}, nil
}

// MustCompileCondition is CompileCondition for defaults and tests.
func MustCompileCondition(expr string) *Condition {
	c, err := CompileCondition(expr)
	if err != nil {
		panic(err)
	}
	return c
}

// Expr returns the source expression.
func (c *Condition) Expr() string { return c.expr }

// Eval runs the condition.
func (c *Condition) Eval(in TransferInput) (bool, error) {
	out, _, err := c.prg.Eval(map[string]any{
		"balance":    saturate(in.Balance),
		"amount":     saturate(in.Amount),
		"recipient":  in.Recipient.String(),
		"registered": in.Registered,
		"owner":      in.Owner.String(),
	})
	if err != nil {
		return false, fmt.Errorf("policy: eval %q: %w", c.expr, err)
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return false, fmt.Errorf("policy: condition %q returned %T", c.expr, out.Value())
	}
	return ok, nil
}

func saturate(a money.Amount) uint64 {
	n, ok := a.Uint64()
	if !ok {
		return math.MaxUint64
	}
	return n
}
