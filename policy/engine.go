// Package policy provides the repository URL policy gate. URL format
// validation is a presentation-side concern; the conversation core only
// checks for non-empty input.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Decision values returned by Evaluate.
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
		rego.Query("data.repo_policy.decision"),
		rego.Module("repo_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate checks the repository policy for the given URL.
// Returns "allow" or "block".
func (e *Engine) Evaluate(ctx context.Context, repoURL string) (string, error) {
	input := map[string]interface{}{
		"repo_url": repoURL,
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		// The policy is expected to define a default.
		return DecisionAllow, nil
	}

	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}

	return DecisionAllow, nil
}

// DefaultPolicy is the built-in repository policy: plain https remotes
// only, no loopback targets.
const DefaultPolicy = `
package repo_policy

import rego.v1

default decision := "allow"

decision := "block" if {
	not startswith(input.repo_url, "https://")
}

decision := "block" if {
	some host in ["localhost", "127.0.0.1", "0.0.0.0", "[::1]"]
	contains(input.repo_url, host)
}
`
