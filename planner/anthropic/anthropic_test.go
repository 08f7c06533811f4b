package anthropic

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/meshstream/core"
	"github.com/hupe1980/meshstream/planner"
	"github.com/hupe1980/meshstream/tool"
)

func TestBuildMessages_GroupsToolResults(t *testing.T) {
	calls := []core.ToolCall{
		{ID: "c1", Name: "google_search", Arguments: json.RawMessage(`{"query":"x"}`)},
		{ID: "c2", Name: "academic_search", Arguments: json.RawMessage(`{"topic":"x"}`)},
	}
	msgs := buildMessages([]core.Message{
		core.NewMarkerMessage(core.MarkerHandoff, "supervisor", "ignored here"),
		core.NewUserMessage("q"),
		core.NewAssistantMessage("research_agent", "", calls...),
		core.NewToolResultMessage("c1", "google_search", "ok", nil),
		core.NewToolResultMessage("c2", "academic_search", nil, errors.New("down")),
		core.NewAssistantMessage("research_agent", "final"),
	})

	// user, assistant(tool_use x2), user(tool_result x2), assistant(text)
	require.Len(t, msgs, 4)
	assert.Len(t, msgs[1].Content, 2)
	assert.Len(t, msgs[2].Content, 2)
}

func TestSystemBlocks(t *testing.T) {
	blocks := systemBlocks(planner.Request{
		Instructions: "be brief",
		Messages:     []core.Message{core.NewMarkerMessage(core.MarkerHandoff, "s", "handoff a -> s")},
	})
	require.Len(t, blocks, 2)
	assert.Equal(t, "be brief", blocks[0].Text)
}

func TestBuildTools(t *testing.T) {
	tools := buildTools([]tool.Definition{{
		Name:        "delegate_to_research_agent",
		Description: "Delegate",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"task": map[string]any{"type": "string"}},
			"required":   []any{"task"},
		},
	}})
	require.Len(t, tools, 1)
	require.NotNil(t, tools[0].OfTool)
	assert.Equal(t, "delegate_to_research_agent", tools[0].OfTool.Name)
	assert.Equal(t, []string{"task"}, tools[0].OfTool.InputSchema.Required)
	assert.Equal(t, "anthropic", New().Info().Provider)
}
