// Package planner defines the decision-making capability consumed by runtimes:
// given the conversation so far and the available operations, choose the next
// operation call(s) or finish with a final answer.
//
// Vendor adapters live in sub-packages (openai, anthropic); ScriptedPlanner is
// a deterministic implementation for tests, demos and replay.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hupe1980/meshstream/core"
	"github.com/hupe1980/meshstream/tool"
)

// Request captures everything a planner may look at when deciding.
type Request struct {
	Agent        string            `json:"agent"`
	Instructions string            `json:"instructions"`
	Messages     []core.Message    `json:"messages"`
	Operations   []tool.Definition `json:"operations,omitempty"`
}

// Action is a planner decision. With no Calls it is a final answer carried in
// Content; otherwise the runtime enters the Acting state for Calls.
type Action struct {
	Content string          `json:"content,omitempty"`
	Calls   []core.ToolCall `json:"calls,omitempty"`
}

// IsFinal reports whether the action ends the reasoning loop.
func (a Action) IsFinal() bool { return len(a.Calls) == 0 }

// Info contains metadata about a planner implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "scripted", etc.
}

// Planner is the opaque reasoning capability. Implementations must honour ctx
// cancellation and must not mutate req.
type Planner interface {
	Decide(ctx context.Context, req Request) (Action, error)

	// Info returns information about the planner implementation.
	Info() Info
}

// Func adapts a function to the Planner interface.
type Func func(ctx context.Context, req Request) (Action, error)

// Decide implements Planner.
func (f Func) Decide(ctx context.Context, req Request) (Action, error) { return f(ctx, req) }

// Info implements Planner.
func (f Func) Info() Info { return Info{Name: "func", Provider: "local"} }

// Call builds a ToolCall with a fresh ID and JSON-encoded arguments.
func Call(name string, args map[string]any) core.ToolCall {
	raw, err := json.Marshal(args)
	if err != nil || args == nil {
		raw = json.RawMessage(`{}`)
	}
	return core.ToolCall{ID: core.NewID(), Name: name, Arguments: raw}
}

// Final returns a final-answer action.
func Final(content string) Action { return Action{Content: content} }

// Invoke returns an action requesting the given calls.
func Invoke(calls ...core.ToolCall) Action { return Action{Calls: calls} }

// ScriptedPlanner replays a fixed list of actions, one per Decide call. Once
// the script is exhausted it returns Final(Done). It is safe for concurrent
// use, but a single script is normally bound to one runtime.
type ScriptedPlanner struct {
	name  string
	steps []Action
	Done  string

	mu  sync.Mutex
	pos int
}

// NewScripted creates a scripted planner.
func NewScripted(name string, steps ...Action) *ScriptedPlanner {
	return &ScriptedPlanner{name: name, steps: steps, Done: "done"}
}

// Decide implements Planner. Every returned call receives a fresh ID so the
// same script can be replayed.
func (s *ScriptedPlanner) Decide(ctx context.Context, _ Request) (Action, error) {
	if err := ctx.Err(); err != nil {
		return Action{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pos >= len(s.steps) {
		return Final(s.Done), nil
	}
	a := s.steps[s.pos]
	s.pos++

	calls := make([]core.ToolCall, len(a.Calls))
	for i, c := range a.Calls {
		c.ID = core.NewID()
		calls[i] = c
	}
	a.Calls = calls
	return a, nil
}

// Reset rewinds the script.
func (s *ScriptedPlanner) Reset() {
	s.mu.Lock()
	s.pos = 0
	s.mu.Unlock()
}

// Info implements Planner.
func (s *ScriptedPlanner) Info() Info { return Info{Name: s.name, Provider: "scripted"} }

// Repeat returns a planner that requests the same call forever. Useful to
// exercise step limits.
func Repeat(name string, args map[string]any) Planner {
	return Func(func(ctx context.Context, _ Request) (Action, error) {
		if err := ctx.Err(); err != nil {
			return Action{}, err
		}
		return Invoke(Call(name, args)), nil
	})
}

// ToolResultsSince returns the tool results appended after the last assistant
// message that requested calls; planners use it to read the outcome of their
// previous decision.
func ToolResultsSince(msgs []core.Message) []core.Message {
	var out []core.Message
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m.Role == core.RoleAssistant && len(m.ToolCalls) > 0 {
			break
		}
		if m.IsToolResult() {
			out = append([]core.Message{m}, out...)
		}
	}
	return out
}

// LastUserMessage returns the content of the most recent user message.
func LastUserMessage(msgs []core.Message) (string, error) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == core.RoleUser {
			return msgs[i].Content, nil
		}
	}
	return "", fmt.Errorf("no user message in conversation")
}
