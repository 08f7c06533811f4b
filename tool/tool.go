// Package tool implements the operation subsystem: named units of work that a
// runtime's planner can invoke with schema validated arguments, consistent
// error handling and descriptions for planner guidance.
package tool

import (
	"github.com/hupe1980/meshstream/core"
)

// Operation is a unit of work invocable by the reasoning loop.
//
// Operations emit telemetry through the sink bound to the ToolContext
// (core.Emit / tc.Emit) rather than through an explicit parameter, so plain
// functions deep in an operation's call stack can emit as well.
//
// Implementations should:
//   - Provide clear, descriptive names (snake_case recommended)
//   - Define a JSON schema for their input
//   - Return *core.OperationError for business failures
//   - Be safe to invoke repeatedly with the same input
//   - Be thread-safe if used concurrently
type Operation interface {
	// Name returns the unique identifier for this operation.
	Name() string

	// Description returns a human-readable description consumed by the planner.
	Description() string

	// Parameters returns a JSON schema describing the expected input.
	Parameters() map[string]any

	// Call executes the operation with already-validated arguments.
	Call(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// Definition is the planner-facing description of a registered operation.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// DefinitionOf returns the planner-facing description of op.
func DefinitionOf(op Operation) Definition {
	return Definition{Name: op.Name(), Description: op.Description(), Parameters: op.Parameters()}
}
