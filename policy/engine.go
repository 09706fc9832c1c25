// Package policy evaluates who may perform administrative operations on the
// session store (listing and deleting conversations).
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"
)

// Decision values produced by the admin policy.
const (
	DecisionAllow = "allow"
	DecisionBlock = "block"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.admin_policy.decision"),
		rego.Module("admin_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate checks the admin policy. Input is a map with keys: action, role.
// Returns the decision string (allow or block).
func (e *Engine) Evaluate(ctx context.Context, input interface{}) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		// The default rule in the policy should always produce a value;
		// treat its absence as a block.
		return DecisionBlock, nil
	}

	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return DecisionBlock, nil
}

// DefaultPolicy is the default admin policy content: administrative actions
// require the admin role.
const DefaultPolicy = `
package admin_policy

default decision := "block"

decision := "allow" if {
	input.action == "session.list"
	input.role == "admin"
}

decision := "allow" if {
	input.action == "session.delete"
	input.role == "admin"
}
`
