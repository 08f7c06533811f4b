package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamespacePath(t *testing.T) {
	p := NamespacePath{"research_agent"}

	full := p.Prepend("supervisor")
	assert.Equal(t, NamespacePath{"supervisor", "research_agent"}, full)
	assert.Equal(t, NamespacePath{"research_agent"}, p, "prepend must not mutate")

	assert.True(t, full.HasPrefix(NamespacePath{"supervisor"}))
	assert.False(t, full.HasPrefix(NamespacePath{"research_agent"}))
	assert.Equal(t, "supervisor/research_agent", full.String())
	assert.True(t, ParseNamespacePath(full.String()).Equal(full))
	assert.Nil(t, ParseNamespacePath(""))

	assert.Equal(t, NamespacePath{"remote", "child"}, NamespacePath{"local", "child"}.Rebase("remote"))
	assert.Equal(t, NamespacePath{"root"}, NamespacePath(nil).Rebase("root"))
}

func TestStreamItem_WithPrefix(t *testing.T) {
	it := EventItem(NamespacePath{"a"}, NewEvent("x", nil))
	out := it.WithPrefix(NamespacePath{"root", "mid"})
	assert.Equal(t, NamespacePath{"root", "mid", "a"}, out.Path)
	assert.Equal(t, NamespacePath{"a"}, it.Path)
	assert.False(t, out.IsTerminal())
	assert.True(t, CompletionItem(nil, Completion{}).IsTerminal())
}
