package tool

import (
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/hupe1980/meshstream/core"
)

type entry struct {
	op     Operation
	schema *jsonschema.Schema
}

// Registry holds the operations available to one runtime. Registration
// failures are configuration errors; execution failures are operation errors
// so the planner can observe and react to them.
//
// A Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
	order   []string
}

// NewRegistry creates a registry pre-populated with ops. It fails with a
// *core.ConfigurationError on duplicate names or malformed schemas.
func NewRegistry(ops ...Operation) (*Registry, error) {
	r := &Registry{entries: map[string]entry{}}
	if err := r.Register(ops...); err != nil {
		return nil, err
	}
	return r, nil
}

// MustRegistry is like NewRegistry but panics on error.
func MustRegistry(ops ...Operation) *Registry {
	r, err := NewRegistry(ops...)
	if err != nil {
		panic(err)
	}
	return r
}

// Register adds operations in order. Either all of ops are registered or none.
func (r *Registry) Register(ops ...Operation) error {
	compiled := make([]entry, 0, len(ops))
	seen := map[string]bool{}

	for _, op := range ops {
		if op == nil || op.Name() == "" {
			return &core.ConfigurationError{Component: "tool", Reason: "operation must have a name"}
		}
		name := op.Name()
		if seen[name] {
			return &core.ConfigurationError{Component: "tool", Name: name, Reason: "operation registered twice", Err: core.ErrDuplicateName}
		}
		seen[name] = true

		schema, err := compileSchema(name, op.Parameters())
		if err != nil {
			return &core.ConfigurationError{Component: "tool", Name: name, Reason: "malformed input schema", Err: err}
		}
		compiled = append(compiled, entry{op: Traced(op), schema: schema})
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range compiled {
		if _, exists := r.entries[e.op.Name()]; exists {
			return &core.ConfigurationError{Component: "tool", Name: e.op.Name(), Reason: "operation already registered", Err: core.ErrDuplicateName}
		}
	}
	for _, e := range compiled {
		r.entries[e.op.Name()] = e
		r.order = append(r.order, e.op.Name())
	}

	return nil
}

// Lookup returns the operation registered under name.
func (r *Registry) Lookup(name string) (Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	return e.op, ok
}

// Names returns operation names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...)
}

// Len returns the number of registered operations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.order)
}

// Definitions returns planner-facing descriptions in registration order.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, DefinitionOf(r.entries[name].op))
	}
	return defs
}

// Execute validates raw arguments against the operation's schema and invokes it.
//
// Error Semantics:
//
//	unknown name                -> *core.OperationError{Code: UNKNOWN_OPERATION}
//	malformed / invalid args    -> *core.OperationError{Code: VALIDATION_ERROR}
//	*core.OperationError        -> forwarded unchanged
//	panic                       -> *core.OperationError{Code: PANIC}
//	other error                 -> *core.OperationError{Code: EXECUTION_ERROR}
//
// Logging Fields:
//
//	operation: operation name
//	call_id: tool call identifier
//	duration_ms: execution time in milliseconds
func (r *Registry) Execute(toolCtx *core.ToolContext, name string, raw json.RawMessage) (result any, err error) {
	logger := toolCtx.Logger()

	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		logger.Warn("tool.call.unknown", "operation", name, "call_id", toolCtx.CallID())
		return nil, core.NewOperationError(name, fmt.Sprintf("operation %s not found", name), core.CodeUnknown)
	}

	doc, args, err := decodeRaw(raw)
	if err != nil {
		return nil, &core.OperationError{Operation: name, Message: err.Error(), Code: core.CodeValidation}
	}

	if err := e.schema.Validate(doc); err != nil {
		logger.Warn("tool.call.validation_failed", "operation", name, "error", err.Error())

		return nil, &core.OperationError{
			Operation: name,
			Message:   fmt.Sprintf("parameter validation failed: %v", err),
			Code:      core.CodeValidation,
		}
	}

	start := time.Now()
	logger.Debug("tool.call.start", "operation", name, "call_id", toolCtx.CallID())

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("tool.call.panic", "operation", name, "recover", fmt.Sprint(rec), "stack", string(debug.Stack()))
			result = nil
			err = &core.OperationError{Operation: name, Message: fmt.Sprintf("panic: %v", rec), Code: core.CodePanic}
		}
	}()

	result, err = e.op.Call(toolCtx, args)
	if err != nil {
		var opErr *core.OperationError
		if errors.As(err, &opErr) {
			logger.Error("tool.call.error", "operation", name, "error", opErr.Message)
			return nil, opErr
		}

		logger.Error("tool.call.error", "operation", name, "error", err.Error())

		return nil, &core.OperationError{Operation: name, Message: err.Error(), Code: core.CodeExecution}
	}

	logger.Debug("tool.call.success", "operation", name, "duration_ms", time.Since(start).Milliseconds())

	return result, nil
}
