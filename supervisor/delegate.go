package supervisor

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/hupe1980/meshstream/core"
	"github.com/hupe1980/meshstream/logging"
	"github.com/hupe1980/meshstream/tool"
	"github.com/hupe1980/meshstream/trace"
	"github.com/hupe1980/meshstream/worker"
)

type delegateArgs struct {
	Task string `json:"task" jsonschema:"the task for the worker, stated self-contained"`
}

// delegation builds the synthetic operation that hands a task to a.
func (s *Supervisor) delegation(a worker.Adapter) tool.Operation {
	name := a.Name()
	description := fmt.Sprintf("Delegate a task to the %s worker and return its answer.", name)

	return tool.MustTyped(DelegateName(name), description, func(tc *core.ToolContext, in delegateArgs) (any, error) {
		return s.delegate(tc, a, in.Task)
	})
}

func (s *Supervisor) delegate(tc *core.ToolContext, a worker.Adapter, task string) (result any, err error) {
	name := a.Name()

	ctx, span := trace.Start(tc, "supervisor.delegate "+name, attributes(s.name, a)...)
	defer func() { trace.End(span, err) }()
	tc = tc.WithContext(ctx)

	var msgs []core.Message
	if s.opts.ForwardHistory {
		msgs = tc.History()
	}
	msgs = append(msgs, core.NewUserMessage(task))

	req := core.Request{ThreadID: core.NewID(), Messages: msgs}
	sink := core.SinkFromContext(tc)
	if sink == nil {
		sink = core.DiscardSink
	}

	tc.Logger().Info("supervisor.delegate.start",
		"supervisor", s.name,
		"worker", name,
		"kind", a.Kind(),
		"call_id", tc.CallID(),
		"thread_id", req.ThreadID,
	)
	start := time.Now()

	var (
		completion *core.Completion
		transport  *core.TransportError
		relayed    int
	)

	for it := range a.Invoke(tc, req) {
		// Worker items are rooted at the worker's name; the call-scoped sink
		// places them under the supervisor.
		if err := sink.Send(tc, it); err == nil {
			relayed++
		}

		if len(it.Path) > 1 {
			continue
		}
		switch it.Kind {
		case core.KindCompletion:
			completion = it.Completion
		case core.KindError:
			transport = it.Error
		}
	}

	var failure error
	if transport != nil {
		failure = transport
	}
	logging.Delegation(tc.Logger(), name, relayed, time.Since(start), failure, "supervisor", s.name, "call_id", tc.CallID())

	switch {
	case tc.Err() != nil:
		return nil, tc.Err()
	case transport != nil:
		return nil, &core.OperationError{
			Operation: DelegateName(name),
			Code:      core.CodeExecution,
			Message:   transport.Error(),
			Details:   transport,
		}
	case completion == nil:
		return nil, core.NewOperationError(DelegateName(name), "worker stream ended without completion", core.CodeExecution)
	}

	return s.outcome(name, completion)
}

// outcome turns a worker completion into the delegation's result.
func (s *Supervisor) outcome(name string, c *core.Completion) (any, error) {
	if c.Failed {
		return nil, core.NewOperationError(DelegateName(name), "worker failed: "+c.Result, core.CodeExecution)
	}

	if h := c.Handoff; h != nil {
		if h.From == "" {
			h.From = name
		}
		if h.Result == "" {
			h.Result = c.Result
		}
		return h, nil
	}

	result := c.Result
	if c.Truncated {
		result = fmt.Sprintf("%s stopped at its step limit before finishing. %s", name, result)
	}

	if s.opts.HandoffBackMessages {
		return &core.Handoff{From: name, To: s.name, Reason: "completed", Result: result}, nil
	}

	return result, nil
}

// attributes describes a delegation for tracing.
func attributes(supervisor string, a worker.Adapter) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("meshstream.supervisor", supervisor),
		attribute.String("meshstream.worker", a.Name()),
		attribute.String("meshstream.worker.kind", string(a.Kind())),
	}
}
