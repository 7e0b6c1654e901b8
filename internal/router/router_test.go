// ABOUTME: Tests for keyword routing: scoring, boosts, ties, and default fallback.
// ABOUTME: Covers deterministic selection and startup validation of configuration.

package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/parley-gateway/internal/registry"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New(
		registry.Descriptor{
			ID:       "github",
			Keywords: []string{"github", "repository", "repo", "file", "commit", "branch", "pull request", "issue", "code"},
		},
		registry.Descriptor{
			ID:       "math",
			Keywords: []string{"calculate", "math", "compute", "solve", "equation", "arithmetic", "what is"},
		},
	)
	require.NoError(t, err)
	return reg
}

func mustCompileBoosts(t *testing.T) []BoostRule {
	t.Helper()
	boosts, err := CompileBoosts([]BoostSpec{
		{AgentID: "math", Pattern: `\d+\s*[\+\-\*\/\^%]\s*\d+`, Weight: 5},
		{AgentID: "math", Pattern: `what\s+is\s+\d+`, Weight: 3},
	})
	require.NoError(t, err)
	return boosts
}

func TestNew_ValidatesConfiguration(t *testing.T) {
	reg := testRegistry(t)

	_, err := New(Config{Registry: reg, DefaultAgent: "ghost"})
	assert.ErrorIs(t, err, registry.ErrAgentNotFound)

	boosts, err := CompileBoosts([]BoostSpec{{AgentID: "ghost", Pattern: `x`, Weight: 1}})
	require.NoError(t, err)
	_, err = New(Config{Registry: reg, Boosts: boosts})
	assert.ErrorIs(t, err, registry.ErrAgentNotFound)

	_, err = New(Config{})
	assert.Error(t, err)
}

func TestCompileBoosts_InvalidPattern(t *testing.T) {
	_, err := CompileBoosts([]BoostSpec{{AgentID: "math", Pattern: `([`, Weight: 1}})
	assert.Error(t, err)
}

func TestRoute_KeywordMatch(t *testing.T) {
	rtr, err := New(Config{Registry: testRegistry(t)})
	require.NoError(t, err)

	d := rtr.Route("Show me the GitHub repository")
	assert.Equal(t, "github", d.AgentID)
	assert.False(t, d.DefaultFallback)
	assert.ElementsMatch(t, []string{"github", "repository", "repo"}, d.Matched)
}

func TestRoute_MoreMatchesWins(t *testing.T) {
	rtr, err := New(Config{Registry: testRegistry(t)})
	require.NoError(t, err)

	// "calculate" and "math" beat the single "code" match.
	d := rtr.Route("calculate the math behind this code")
	assert.Equal(t, "math", d.AgentID)
}

func TestRoute_TieKeepsRegistrationOrder(t *testing.T) {
	reg, err := registry.New(
		registry.Descriptor{ID: "first", Keywords: []string{"shared"}},
		registry.Descriptor{ID: "second", Keywords: []string{"shared"}},
	)
	require.NoError(t, err)

	rtr, err := New(Config{Registry: reg})
	require.NoError(t, err)

	d := rtr.Route("a shared keyword")
	assert.Equal(t, "first", d.AgentID)
}

func TestRoute_BoostSelectsMath(t *testing.T) {
	rtr, err := New(Config{
		Registry:     testRegistry(t),
		DefaultAgent: "math",
		Boosts:       mustCompileBoosts(t),
	})
	require.NoError(t, err)

	// No keyword matches for "Calculate 25 * 4"? "calculate" matches math,
	// plus the expression boost. Either way math wins decisively.
	d := rtr.Route("Calculate 25 * 4")
	assert.Equal(t, "math", d.AgentID)
	assert.False(t, d.DefaultFallback)

	// A bare expression matches only via boost.
	d = rtr.Route("25 * 4")
	assert.Equal(t, "math", d.AgentID)
	assert.False(t, d.DefaultFallback)
	assert.Empty(t, d.Matched)
}

func TestRoute_BoostOutweighsKeywords(t *testing.T) {
	rtr, err := New(Config{
		Registry: testRegistry(t),
		Boosts:   mustCompileBoosts(t),
	})
	require.NoError(t, err)

	// Two github keywords versus one math keyword plus weight-5 boost.
	d := rtr.Route("calculate 12 + 7 for the repo file")
	assert.Equal(t, "math", d.AgentID)
}

func TestRoute_DefaultFallback(t *testing.T) {
	rtr, err := New(Config{Registry: testRegistry(t), DefaultAgent: "github"})
	require.NoError(t, err)

	d := rtr.Route("hello there, how are you?")
	assert.Equal(t, "github", d.AgentID)
	assert.True(t, d.DefaultFallback)
	assert.Empty(t, d.Matched)
}

func TestRoute_NoMatchNoDefault(t *testing.T) {
	rtr, err := New(Config{Registry: testRegistry(t)})
	require.NoError(t, err)

	d := rtr.Route("hello there")
	assert.Empty(t, d.AgentID)
	assert.True(t, d.DefaultFallback)
}

func TestRoute_EmptyInput(t *testing.T) {
	rtr, err := New(Config{Registry: testRegistry(t), DefaultAgent: "math"})
	require.NoError(t, err)

	d := rtr.Route("   ")
	assert.Equal(t, "math", d.AgentID)
	assert.True(t, d.DefaultFallback)
}

func TestRoute_CaseInsensitive(t *testing.T) {
	rtr, err := New(Config{Registry: testRegistry(t)})
	require.NoError(t, err)

	d := rtr.Route("SHOW ME THE GITHUB ISSUE")
	assert.Equal(t, "github", d.AgentID)
}
