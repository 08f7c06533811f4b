package tool

import (
	"go.opentelemetry.io/otel/attribute"

	"github.com/hupe1980/meshstream/core"
	"github.com/hupe1980/meshstream/trace"
)

type tracedOperation struct {
	Operation
}

// Traced wraps op so that every call runs inside an OpenTelemetry span. The
// span context is propagated to the operation through its ToolContext.
// Registries apply it to every registered operation.
func Traced(op Operation) Operation {
	if _, ok := op.(*tracedOperation); ok {
		return op
	}
	return &tracedOperation{Operation: op}
}

func (t *tracedOperation) Call(toolCtx *core.ToolContext, args map[string]any) (result any, err error) {
	ctx, span := trace.Start(toolCtx, "operation "+t.Name(),
		attribute.String("meshstream.operation", t.Name()),
		attribute.String("meshstream.call_id", toolCtx.CallID()),
		attribute.String("meshstream.caller", toolCtx.Caller()),
	)
	defer func() { trace.End(span, err) }()

	return t.Operation.Call(toolCtx.WithContext(ctx), args)
}
