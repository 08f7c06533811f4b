package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type named struct{ name string }

func (n named) String() string { return "named " + n.name }

func TestRenderResult(t *testing.T) {
	tests := []struct {
		name   string
		result any
		want   string
	}{
		{"nil", nil, ""},
		{"string", "Found 10 Google results", "Found 10 Google results"},
		{"bytes", []byte("raw"), "raw"},
		{"stringer", named{"x"}, "named x"},
		{"json", map[string]any{"n": 1}, `{"n":1}`},
		{"handoff without result", &Handoff{From: "a", To: "s"}, "handoff a -> s"},
		{"handoff with result", &Handoff{From: "a", To: "s", Reason: "completed", Result: "first answer"}, "handoff a -> s: completed\n\nfirst answer"},
		{"handoff value", Handoff{From: "a", To: "s", Result: "done"}, "handoff a -> s\n\ndone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenderResult(tt.result))
		})
	}
}

func TestNewToolResultMessage_HandoffKeepsResult(t *testing.T) {
	m := NewToolResultMessage("c1", "delegate_to_first", &Handoff{From: "first", To: "supervisor", Reason: "completed", Result: "first answer"}, nil)

	assert.True(t, m.IsToolResult())
	assert.Contains(t, m.Content, "first answer")
	assert.Contains(t, m.Content, "handoff first -> supervisor")
}
