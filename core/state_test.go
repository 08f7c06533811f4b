package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationState_AppendReturnsDelta(t *testing.T) {
	s := NewConversationState(NewUserMessage("research AI trends"))

	d := s.Append(NewAssistantMessage("supervisor", "working"), NewToolResultMessage("c1", "op", "ok", nil))
	assert.Equal(t, 1, d.Offset)
	assert.Len(t, d.Messages, 2)
	assert.Equal(t, 3, s.Len())

	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, RoleTool, last.Role)
	assert.Len(t, s.ToolResults(), 1)
}

func TestConversationState_MessagesIsCopy(t *testing.T) {
	s := NewConversationState(NewUserMessage("hello"))
	msgs := s.Messages()
	msgs[0].Content = "mutated"
	assert.Equal(t, "hello", s.Messages()[0].Content)
}

func TestConversationState_Apply(t *testing.T) {
	src := NewConversationState()
	dst := NewConversationState()

	d1 := src.Append(NewUserMessage("a"))
	d2 := src.Append(NewUserMessage("b"))

	assert.True(t, dst.Apply(d1))
	assert.True(t, dst.Apply(d2))
	assert.False(t, dst.Apply(d1))
}

func TestNewToolResultMessage(t *testing.T) {
	ok := NewToolResultMessage("c1", "sum", map[string]any{"b": 2, "a": 1}, nil)
	assert.Equal(t, `{"a":1,"b":2}`, ok.Content)
	assert.False(t, ok.IsError)

	failed := NewToolResultMessage("c2", "sum", nil, errors.New("boom"))
	assert.True(t, failed.IsError)
	assert.Equal(t, "boom", failed.Content)
	assert.Equal(t, "c2", failed.ToolCallID)
}

func TestMarkers(t *testing.T) {
	s := NewConversationState()
	s.Append(NewMarkerMessage(MarkerHandoff, "supervisor", "handoff"))
	s.Append(NewUserMessage("x"))
	s.Append(NewMarkerMessage(MarkerTruncation, "worker", "stop"))

	assert.Len(t, s.Markers(MarkerHandoff), 1)
	assert.Len(t, s.Markers(MarkerTruncation), 1)
	assert.True(t, s.Markers(MarkerHandoff)[0].IsMarker())
}
