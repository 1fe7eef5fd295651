package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, DefaultPolicy)
	require.NoError(t, err)

	cases := []struct {
		name    string
		repoURL string
		want    string
	}{
		{"public github repo", "https://github.com/octocat/hello-world", DecisionAllow},
		{"gitlab repo", "https://gitlab.com/group/project", DecisionAllow},
		{"plain http", "http://github.com/octocat/hello-world", DecisionBlock},
		{"ssh remote", "git@github.com:octocat/hello-world.git", DecisionBlock},
		{"localhost target", "https://localhost:8080/repo.git", DecisionBlock},
		{"loopback ip", "https://127.0.0.1/repo.git", DecisionBlock},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision, err := engine.Evaluate(ctx, tc.repoURL)
			require.NoError(t, err)
			assert.Equal(t, tc.want, decision)
		})
	}
}

func TestCustomPolicy(t *testing.T) {
	ctx := context.Background()

	// An org allowlist on top of the default shape.
	policyContent := `
package repo_policy

import rego.v1

default decision := "block"

decision := "allow" if {
	startswith(input.repo_url, "https://github.com/trusted-org/")
}
`
	engine, err := NewEngine(ctx, policyContent)
	require.NoError(t, err)

	decision, err := engine.Evaluate(ctx, "https://github.com/trusted-org/service")
	require.NoError(t, err)
	assert.Equal(t, DecisionAllow, decision)

	decision, err = engine.Evaluate(ctx, "https://github.com/other-org/service")
	require.NoError(t, err)
	assert.Equal(t, DecisionBlock, decision)
}

func TestInvalidPolicy(t *testing.T) {
	_, err := NewEngine(context.Background(), "this is not rego")
	assert.Error(t, err)
}
