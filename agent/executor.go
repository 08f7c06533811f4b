package agent

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/meshstream/core"
	"github.com/hupe1980/meshstream/logging"
	"github.com/hupe1980/meshstream/tool"
)

// ExecutorConfig configures how one Acting transition runs its calls.
type ExecutorConfig struct {
	FanOut         bool // run every requested call concurrently; otherwise only the first
	MaxParallel    int  // 0 or <1 => no explicit limit (len(calls))
	LogStartEvents bool // log a start line per call
}

type callResult struct {
	call   core.ToolCall
	result any
	err    error
}

// executor runs the calls of one Acting transition. It never panics (the
// registry recovers operation panics) and returns exactly one result per call,
// in call order.
type executor struct {
	cfg      ExecutorConfig
	registry *tool.Registry
	caller   string
	logger   logging.Logger
}

// admit splits the calls of one step into those that run and those that are
// rejected. Without fan-out only the first call runs.
func (e *executor) admit(calls []core.ToolCall) (admitted, rejected []core.ToolCall) {
	if e.cfg.FanOut || len(calls) <= 1 {
		return calls, nil
	}
	return calls[:1], calls[1:]
}

func (e *executor) execute(ctx context.Context, history []core.Message, sink core.Sink, calls []core.ToolCall) []callResult {
	results := make([]callResult, len(calls))
	for i, c := range calls {
		results[i] = callResult{call: c}
	}

	if len(calls) == 0 {
		return results
	}

	if len(calls) == 1 {
		results[0] = e.executeSingle(ctx, history, sink, calls[0])
		return results
	}

	maxPar := e.cfg.MaxParallel
	if maxPar <= 0 || maxPar > len(calls) {
		maxPar = len(calls)
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxPar)

	batchStart := time.Now()
	for i := range calls {
		if ctx.Err() != nil { // pre-check cancellation
			results[i].err = ctx.Err()
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			if ctx.Err() != nil {
				results[idx].err = ctx.Err()
				return
			}
			results[idx] = e.executeSingle(ctx, history, sink, calls[idx])
		}(i)
	}

	wg.Wait()

	e.logger.Debug(
		"agent.operations.batch.complete",
		"agent", e.caller,
		"count", len(calls),
		"parallelism", maxPar,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)

	return results
}

// executeSingle binds a call-scoped sink slot and runs one operation.
func (e *executor) executeSingle(ctx context.Context, history []core.Message, sink core.Sink, call core.ToolCall) callResult {
	callCtx := core.ContextWithSink(ctx, sink)
	toolCtx := core.NewToolContext(callCtx, call.ID, e.caller, history, e.logger)

	if e.cfg.LogStartEvents {
		e.logger.Info("agent.operation.start", "agent", e.caller, "operation", call.Name, "call_id", call.ID)
	}

	start := time.Now()
	result, err := e.registry.Execute(toolCtx, call.Name, call.Arguments)

	logging.OperationCall(e.logger, call.Name, time.Since(start), err, "agent", e.caller, "call_id", call.ID)

	return callResult{call: call, result: result, err: err}
}
