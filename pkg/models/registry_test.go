package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T, allowed string) *Registry {
	t.Helper()
	r, err := NewRegistry(allowed)
	require.NoError(t, err)
	return r
}

func TestResolveAlias(t *testing.T) {
	r := newRegistry(t, "")

	assert.Equal(t, "openai/gpt-5", r.Resolve("gpt-5"))
	assert.Equal(t, "anthropic/claude-sonnet-4", r.Resolve("sonnet"))
	assert.Equal(t, "openai/gpt-5", r.Resolve("GPT-5"))
}

func TestResolveFullPathPassesThrough(t *testing.T) {
	r := newRegistry(t, "")

	assert.Equal(t, "mistral/mistral-large", r.Resolve("mistral/mistral-large"))
	assert.Equal(t, "openai/gpt-5", r.Resolve("openai/gpt-5"))
}

func TestResolveBySuffix(t *testing.T) {
	r := newRegistry(t, "")

	// "deepseek-r1" is both an alias and a path suffix; "claude-3.5-haiku"
	// only matches by suffix.
	assert.Equal(t, "deepseek/deepseek-r1", r.Resolve("deepseek-r1"))
	assert.Equal(t, "anthropic/claude-3.5-haiku", r.Resolve("claude-3.5-haiku"))
}

func TestResolveMissReturnsEmpty(t *testing.T) {
	r := newRegistry(t, "")

	assert.Empty(t, r.Resolve("no-such-model"))
	assert.Empty(t, r.Resolve(""))
}

func TestShortName(t *testing.T) {
	r := newRegistry(t, "")

	assert.Equal(t, "gpt-5", r.ShortName("openai/gpt-5"))
	assert.Equal(t, "sonnet", r.ShortName("anthropic/claude-sonnet-4"))
	assert.Empty(t, r.ShortName("mistral/mistral-large"))
	assert.Empty(t, r.ShortName(""))
}

func TestAllowedFilterByAlias(t *testing.T) {
	r := newRegistry(t, "gpt-5, sonnet")

	assert.Equal(t, []string{"gpt-5", "sonnet"}, r.Aliases())
	assert.Equal(t, "openai/gpt-5", r.Resolve("gpt-5"))
	assert.Empty(t, r.Resolve("opus"))
}

func TestAllowedFilterByPathSuffix(t *testing.T) {
	r := newRegistry(t, "claude-sonnet-4")

	assert.Equal(t, []string{"sonnet"}, r.Aliases())
}

func TestAliasesAreSorted(t *testing.T) {
	r := newRegistry(t, "")

	aliases := r.Aliases()
	require.NotEmpty(t, aliases)
	for i := 1; i < len(aliases); i++ {
		assert.Less(t, aliases[i-1], aliases[i])
	}
}
