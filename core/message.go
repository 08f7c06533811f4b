package core

import (
	"encoding/json"
	"fmt"
)

// Role identifies the author class of a Message.
type Role string

const (
	// RoleUser marks caller supplied input.
	RoleUser Role = "user"
	// RoleAssistant marks planner output (text and/or tool calls).
	RoleAssistant Role = "assistant"
	// RoleTool marks the result of an operation call.
	RoleTool Role = "tool"
	// RoleSystem marks runtime annotations (markers, instructions).
	RoleSystem Role = "system"
)

// Marker distinguishes runtime annotations from ordinary conversation turns.
type Marker string

const (
	// MarkerNone is the zero value for ordinary messages.
	MarkerNone Marker = ""
	// MarkerHandoff annotates an explicit transfer of control between workers.
	MarkerHandoff Marker = "handoff"
	// MarkerTruncation annotates a runtime that stopped at its step limit.
	MarkerTruncation Marker = "truncation"
	// MarkerFailure annotates a runtime that stopped because its planner failed.
	MarkerFailure Marker = "failure"
	// MarkerRejected annotates calls of a step that were not run.
	MarkerRejected Marker = "rejected"
)

// ToolCall is a request, produced by a planner, to invoke a named operation.
// Arguments holds the raw JSON object passed to the operation.
type ToolCall struct {
	ID        string          `json:"id" msgpack:"id"`
	Name      string          `json:"name" msgpack:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty" msgpack:"arguments,omitempty"`
}

// Message is one immutable entry of a ConversationState.
type Message struct {
	ID         string     `json:"id" msgpack:"id"`
	Role       Role       `json:"role" msgpack:"role"`
	Name       string     `json:"name,omitempty" msgpack:"name,omitempty"`
	Content    string     `json:"content,omitempty" msgpack:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty" msgpack:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty" msgpack:"tool_call_id,omitempty"`
	IsError    bool       `json:"is_error,omitempty" msgpack:"is_error,omitempty"`
	Marker     Marker     `json:"marker,omitempty" msgpack:"marker,omitempty"`
}

// NewUserMessage creates a user-authored text message.
func NewUserMessage(content string) Message {
	return Message{ID: NewID(), Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message authored by name. Calls may be empty.
func NewAssistantMessage(name, content string, calls ...ToolCall) Message {
	return Message{ID: NewID(), Role: RoleAssistant, Name: name, Content: content, ToolCalls: calls}
}

// NewToolResultMessage records the outcome of the call identified by callID.
// A non-nil err replaces the result with its error text and flags the message.
func NewToolResultMessage(callID, operation string, result any, err error) Message {
	m := Message{ID: NewID(), Role: RoleTool, Name: operation, ToolCallID: callID}
	if err != nil {
		m.Content = err.Error()
		m.IsError = true
		return m
	}
	m.Content = RenderResult(result)
	return m
}

// NewMarkerMessage creates a system annotation of the given kind.
func NewMarkerMessage(marker Marker, author, content string) Message {
	return Message{ID: NewID(), Role: RoleSystem, Name: author, Content: content, Marker: marker}
}

// IsToolResult reports whether the message carries an operation result.
func (m Message) IsToolResult() bool { return m.Role == RoleTool }

// IsMarker reports whether the message is a runtime annotation.
func (m Message) IsMarker() bool { return m.Marker != MarkerNone }

// RenderResult converts an operation result into message content. Strings are
// used verbatim; everything else is encoded as JSON so equal inputs render to
// identical bytes.
func RenderResult(result any) string {
	switch v := result.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case *Handoff:
		return v.Render()
	case Handoff:
		return v.Render()
	case fmt.Stringer:
		return v.String()
	}
	b, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf("%v", result)
	}
	return string(b)
}
