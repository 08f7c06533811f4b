package testutil

import (
	"fmt"
	"time"

	"github.com/hupe1980/meshstream/core"
	"github.com/hupe1980/meshstream/tool"
)

// EchoOp returns an operation that echoes its "text" argument.
func EchoOp(name string) tool.Operation {
	return tool.NewFunctionTool(name, "Echo the given text", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{"type": "string"},
		},
	}, func(tc *core.ToolContext, args map[string]any) (any, error) {
		return fmt.Sprintf("%s: %v", name, args["text"]), nil
	})
}

// EventOp returns an operation that emits one event per kind, then returns result.
func EventOp(name, result string, kinds ...string) tool.Operation {
	return tool.NewFunctionTool(name, "Emit events then return", nil,
		func(tc *core.ToolContext, _ map[string]any) (any, error) {
			for i, k := range kinds {
				tc.Emit(k, map[string]any{"seq": i})
			}
			return result, nil
		})
}

// SlowOp returns an operation that sleeps for d or until its context is done.
func SlowOp(name string, d time.Duration, result string) tool.Operation {
	return tool.NewFunctionTool(name, "Sleep then return", nil,
		func(tc *core.ToolContext, _ map[string]any) (any, error) {
			select {
			case <-time.After(d):
				return result, nil
			case <-tc.Done():
				return nil, tc.Err()
			}
		})
}
