package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/meshstream/core"
	"github.com/hupe1980/meshstream/planner"
	"github.com/hupe1980/meshstream/tool"
)

func TestDecide_ParsesToolCalls(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o-mini",
			"choices": [{
				"index": 0,
				"finish_reason": "tool_calls",
				"message": {
					"role": "assistant",
					"content": "",
					"tool_calls": [{
						"id": "call_1",
						"type": "function",
						"function": {"name": "delegate_to_research_agent", "arguments": "{\"task\":\"research AI trends\"}"}
					}]
				}
			}]
		}`)
	}))
	defer srv.Close()

	client := openai.NewClient(option.WithBaseURL(srv.URL), option.WithAPIKey("test"))
	p := NewFromClient(&client)

	action, err := p.Decide(context.Background(), planner.Request{
		Instructions: "You are a supervisor.",
		Messages:     []core.Message{core.NewUserMessage("research AI trends")},
		Operations: []tool.Definition{{
			Name:        "delegate_to_research_agent",
			Description: "Delegate to research_agent",
			Parameters:  map[string]any{"type": "object", "properties": map[string]any{"task": map[string]any{"type": "string"}}},
		}},
	})
	require.NoError(t, err)
	require.Len(t, action.Calls, 1)
	assert.Equal(t, "call_1", action.Calls[0].ID)
	assert.Equal(t, "delegate_to_research_agent", action.Calls[0].Name)
	assert.JSONEq(t, `{"task":"research AI trends"}`, string(action.Calls[0].Arguments))

	msgs, ok := captured["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 2)
	tools, ok := captured["tools"].([]any)
	require.True(t, ok)
	assert.Len(t, tools, 1)
	assert.Equal(t, "openai", p.Info().Provider)
}

func TestBuildMessages_ToolRoundTrip(t *testing.T) {
	call := core.ToolCall{ID: "c1", Name: "google_search", Arguments: json.RawMessage(`{"query":"x"}`)}
	msgs := buildMessages(planner.Request{Messages: []core.Message{
		core.NewUserMessage("q"),
		core.NewAssistantMessage("a", "", call),
		core.NewToolResultMessage("c1", "google_search", "found", nil),
		core.NewMarkerMessage(core.MarkerHandoff, "supervisor", "handoff"),
	}})
	require.Len(t, msgs, 4)
	require.NotNil(t, msgs[1].OfAssistant)
	assert.Len(t, msgs[1].OfAssistant.ToolCalls, 1)
	require.NotNil(t, msgs[2].OfTool)
	assert.Equal(t, "c1", msgs[2].OfTool.ToolCallID)
	assert.NotNil(t, msgs[3].OfSystem)
}
