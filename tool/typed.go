package tool

import (
	"encoding/json"
	"fmt"

	gjsonschema "github.com/google/jsonschema-go/jsonschema"

	"github.com/hupe1980/meshstream/core"
)

// NewTyped builds an operation whose input schema is inferred from In. The
// validated argument object is decoded into a fresh In before fn runs.
//
//	type SearchArgs struct {
//	  Query string `json:"query" jsonschema:"the search query"`
//	}
//
//	op, err := tool.NewTyped("google_search", "Search the web",
//	  func(tc *core.ToolContext, in SearchArgs) (any, error) { ... })
func NewTyped[In any](
	name, description string,
	fn func(toolCtx *core.ToolContext, in In) (any, error),
) (*FunctionTool, error) {
	schema, err := gjsonschema.For[In](&gjsonschema.ForOptions{})
	if err != nil {
		return nil, &core.ConfigurationError{Component: "tool", Name: name, Reason: "cannot infer input schema", Err: err}
	}

	params, err := schemaToMap(schema)
	if err != nil {
		return nil, &core.ConfigurationError{Component: "tool", Name: name, Reason: "cannot encode input schema", Err: err}
	}

	return NewFunctionTool(name, description, params, func(tc *core.ToolContext, args map[string]any) (any, error) {
		var in In
		if err := decodeArgs(args, &in); err != nil {
			return nil, core.NewOperationError(name, err.Error(), core.CodeValidation)
		}
		return fn(tc, in)
	}), nil
}

// MustTyped is like NewTyped but panics on error. Intended for package-level
// operation tables whose types are fixed at compile time.
func MustTyped[In any](
	name, description string,
	fn func(toolCtx *core.ToolContext, in In) (any, error),
) *FunctionTool {
	op, err := NewTyped(name, description, fn)
	if err != nil {
		panic(err)
	}
	return op
}

func schemaToMap(s *gjsonschema.Schema) (map[string]any, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeArgs(args map[string]any, out any) error {
	b, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return nil
}
