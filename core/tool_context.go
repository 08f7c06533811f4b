package core

import (
	"context"

	"github.com/hupe1980/meshstream/logging"
)

// ToolContext is the execution surface handed to an operation. It embeds the
// call's context.Context (which carries the call-scoped Sink) and exposes the
// call identity plus a read-only snapshot of the caller's conversation.
type ToolContext struct {
	context.Context

	callID  string
	caller  string
	history []Message
	logger  logging.Logger
}

// NewToolContext binds a tool call to ctx.
func NewToolContext(ctx context.Context, callID, caller string, history []Message, logger logging.Logger) *ToolContext {
	return &ToolContext{
		Context: ctx,
		callID:  callID,
		caller:  caller,
		history: history,
		logger:  logging.OrNoOp(logger),
	}
}

// CallID returns the tool call identifier correlating request and result.
func (tc *ToolContext) CallID() string { return tc.callID }

// Caller returns the name of the runtime executing the operation.
func (tc *ToolContext) Caller() string { return tc.caller }

// History returns a copy of the caller's conversation at dispatch time.
func (tc *ToolContext) History() []Message { return append([]Message(nil), tc.history...) }

// Logger returns the logger associated with the tool invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.logger }

// Emit sends a custom event through the call-scoped sink.
func (tc *ToolContext) Emit(kind string, data map[string]any) { EmitEvent(tc, kind, data) }

// WithContext returns a copy bound to ctx, keeping call identity.
func (tc *ToolContext) WithContext(ctx context.Context) *ToolContext {
	cp := *tc
	cp.Context = ctx
	return &cp
}
