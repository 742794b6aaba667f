// Package cel evaluates recipe-provided variant policies written in CEL.
package cel

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/ochairo/piko/internal/domain/entities"
)

// VariantPolicy matches variants against a compiled CEL expression.
// The expression sees a single `variant` map with the keys
// name, isBundle, architecture, minAndroid and dpi.
type VariantPolicy struct {
	expr string
	prg  cel.Program
}

// NewVariantPolicy compiles expr into a policy
func NewVariantPolicy(expr string) (*VariantPolicy, error) {
	env, err := cel.NewEnv(
		cel.Variable("variant", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compilation error: %w", issues.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return &VariantPolicy{expr: expr, prg: prg}, nil
}

// Name returns the source expression
func (p *VariantPolicy) Name() string {
	return p.expr
}

// Match evaluates the expression for v
func (p *VariantPolicy) Match(v entities.Variant) (bool, error) {
	out, _, err := p.prg.Eval(map[string]interface{}{
		"variant": map[string]interface{}{
			"name":         v.Name,
			"isBundle":     v.IsBundle,
			"architecture": v.Architecture,
			"minAndroid":   v.MinAndroid,
			"dpi":          v.DPI,
		},
	})
	if err != nil {
		return false, fmt.Errorf("CEL evaluation error: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return boolean, got %T", out.Value())
	}

	return result, nil
}
