package agent

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/meshstream/core"
	"github.com/hupe1980/meshstream/internal/testutil"
	"github.com/hupe1980/meshstream/planner"
	"github.com/hupe1980/meshstream/tool"
)

func TestRuntime_FinalAnswer(t *testing.T) {
	rt := New("assistant", planner.NewScripted("p", planner.Final("hello")), nil)
	sink := testutil.NewCollector()

	res, err := rt.Run(context.Background(), []core.Message{core.NewUserMessage("hi")}, sink)
	require.NoError(t, err)

	assert.Equal(t, "hello", res.Completion.Result)
	assert.False(t, res.Completion.Truncated)
	assert.Equal(t, 2, res.State.Len())

	deltas := sink.Kind(core.KindDelta)
	require.Len(t, deltas, 2)
	for _, d := range deltas {
		assert.Equal(t, core.NamespacePath{"assistant"}, d.Path)
	}
	assert.Equal(t, 0, deltas[0].Delta.Offset)
	assert.Equal(t, 1, deltas[1].Delta.Offset)
}

func TestRuntime_EventsPrecedeToolResult(t *testing.T) {
	reg := tool.MustRegistry(testutil.EventOp("google_search", "3 results", "search_started", "search_progress", "search_completed"))
	p := planner.NewScripted("p", planner.Invoke(planner.Call("google_search", nil)))
	rt := New("research_agent", p, reg)
	sink := testutil.NewCollector()

	_, err := rt.Run(context.Background(), []core.Message{core.NewUserMessage("q")}, sink)
	require.NoError(t, err)

	items := sink.Items()
	// input, assistant call, 3 events, tool result, final answer
	require.Len(t, items, 7)
	assert.Equal(t, []string{"search_started", "search_progress", "search_completed"}, testutil.EventTypes(items))

	for i := 2; i < 5; i++ {
		assert.Equal(t, core.KindEvent, items[i].Kind)
		assert.Equal(t, core.NamespacePath{"research_agent"}, items[i].Path)
	}
	require.Equal(t, core.KindDelta, items[5].Kind)
	require.Len(t, items[5].Delta.Messages, 1)
	assert.True(t, items[5].Delta.Messages[0].IsToolResult())
	assert.Equal(t, "3 results", items[5].Delta.Messages[0].Content)
}

func TestRuntime_StepLimit(t *testing.T) {
	for _, n := range []int{1, 3, 5} {
		reg := tool.MustRegistry(testutil.EchoOp("echo"))
		rt := New("looper", planner.Repeat("echo", map[string]any{"text": "again"}), reg, func(o *Options) {
			o.MaxSteps = n
		})

		res, err := rt.Run(context.Background(), []core.Message{core.NewUserMessage("go")}, nil)

		var limitErr *core.StepLimitExceeded
		require.True(t, errors.As(err, &limitErr))
		assert.Equal(t, n, limitErr.Limit)
		assert.Equal(t, "looper", limitErr.Runtime)

		require.NotNil(t, res)
		assert.True(t, res.Completion.Truncated)
		assert.Len(t, res.State.ToolResults(), n)
		assert.Len(t, res.State.Markers(core.MarkerTruncation), 1)

		last, ok := res.State.Last()
		require.True(t, ok)
		assert.Equal(t, core.MarkerTruncation, last.Marker)
	}
}

func TestRuntime_PlannerFailure(t *testing.T) {
	boom := errors.New("model unavailable")
	p := planner.Func(func(context.Context, planner.Request) (planner.Action, error) { return planner.Action{}, boom })
	rt := New("assistant", p, nil)

	res, err := rt.Run(context.Background(), []core.Message{core.NewUserMessage("hi")}, nil)
	require.ErrorIs(t, err, boom)
	assert.True(t, res.Completion.Failed)
	assert.Len(t, res.State.Markers(core.MarkerFailure), 1)
}

func TestRuntime_OperationErrorBecomesToolResult(t *testing.T) {
	p := planner.NewScripted("p", planner.Invoke(planner.Call("missing", nil)))
	rt := New("assistant", p, nil)

	res, err := rt.Run(context.Background(), nil, nil)
	require.NoError(t, err)

	results := res.State.ToolResults()
	require.Len(t, results, 1)
	assert.True(t, results[0].IsError)
	assert.Contains(t, results[0].Content, core.CodeUnknown)
}

func TestRuntime_SingleCallRejectsExtras(t *testing.T) {
	reg := tool.MustRegistry(testutil.EchoOp("a"), testutil.EchoOp("b"))
	p := planner.NewScripted("p", planner.Invoke(planner.Call("a", nil), planner.Call("b", nil)))
	rt := New("assistant", p, reg)

	res, err := rt.Run(context.Background(), nil, nil)
	require.NoError(t, err)

	results := res.State.ToolResults()
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Name)
	assert.False(t, results[0].IsError)

	rejected := res.State.Markers(core.MarkerRejected)
	require.Len(t, rejected, 1)
	assert.Contains(t, rejected[0].Content, core.CodeRejected)
	assert.Contains(t, rejected[0].Content, "b")

	// the assistant turn only carries the call that ran
	for _, m := range res.State.Messages() {
		if m.Role == core.RoleAssistant && len(m.ToolCalls) > 0 {
			assert.Len(t, m.ToolCalls, 1)
		}
	}
}

func TestRuntime_StepLimitWithMultiCallSteps(t *testing.T) {
	reg := tool.MustRegistry(testutil.EchoOp("echo"))
	p := planner.Func(func(context.Context, planner.Request) (planner.Action, error) {
		return planner.Invoke(planner.Call("echo", nil), planner.Call("echo", nil), planner.Call("echo", nil)), nil
	})

	for _, n := range []int{1, 2, 4} {
		rt := New("looper", p, reg, func(o *Options) { o.MaxSteps = n })

		res, err := rt.Run(context.Background(), []core.Message{core.NewUserMessage("go")}, nil)

		var limitErr *core.StepLimitExceeded
		require.True(t, errors.As(err, &limitErr))
		assert.Len(t, res.State.ToolResults(), n)
		assert.Len(t, res.State.Markers(core.MarkerRejected), n)
		assert.Len(t, res.State.Markers(core.MarkerTruncation), 1)
	}
}

func TestRuntime_FanOutOrder(t *testing.T) {
	reg := tool.MustRegistry(
		testutil.SlowOp("slow", 50*time.Millisecond, "slow done"),
		testutil.SlowOp("fast", time.Millisecond, "fast done"),
	)
	p := planner.NewScripted("p", planner.Invoke(planner.Call("fast", nil), planner.Call("slow", nil)))
	rank := map[string]int{"slow": 0, "fast": 1}
	rt := New("assistant", p, reg, func(o *Options) {
		o.FanOut = true
		o.Order = func(c core.ToolCall) int { return rank[c.Name] }
	})
	sink := testutil.NewCollector()

	res, err := rt.Run(context.Background(), nil, sink)
	require.NoError(t, err)

	results := res.State.ToolResults()
	require.Len(t, results, 2)
	assert.Equal(t, "slow", results[0].Name)
	assert.Equal(t, "fast", results[1].Name)

	// both results travel in one delta
	var batch *core.Delta
	for _, it := range sink.Kind(core.KindDelta) {
		if len(it.Delta.Messages) == 2 && it.Delta.Messages[0].IsToolResult() {
			batch = it.Delta
		}
	}
	require.NotNil(t, batch)
}

func TestRuntime_HandoffTerminates(t *testing.T) {
	reg := tool.MustRegistry(tool.NewTransfer("supervisor"))
	p := planner.NewScripted("p", planner.Action{
		Content: "found it",
		Calls:   []core.ToolCall{planner.Call(tool.TransferName("supervisor"), nil)},
	})
	rt := New("research_agent", p, reg)

	res, err := rt.Run(context.Background(), nil, nil)
	require.NoError(t, err)

	require.NotNil(t, res.Completion.Handoff)
	assert.Equal(t, "research_agent", res.Completion.Handoff.From)
	assert.Equal(t, "supervisor", res.Completion.Handoff.To)
	assert.Equal(t, "found it", res.Completion.Result)
	assert.Len(t, res.State.Markers(core.MarkerHandoff), 1)
}

func TestRuntime_CancellationDiscardsLateResults(t *testing.T) {
	var finished atomic.Bool
	slow := tool.NewFunctionTool("slow", "ignores cancellation", nil, func(tc *core.ToolContext, _ map[string]any) (any, error) {
		time.Sleep(100 * time.Millisecond)
		finished.Store(true)
		return "late", nil
	})
	p := planner.NewScripted("p", planner.Invoke(planner.Call("slow", nil)))
	rt := New("assistant", p, tool.MustRegistry(slow))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	res, err := rt.Run(ctx, []core.Message{core.NewUserMessage("hi")}, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, finished.Load())
	assert.Empty(t, res.State.ToolResults())
}

func TestRuntime_DynamicInstruction(t *testing.T) {
	var seen string
	p := planner.Func(func(_ context.Context, req planner.Request) (planner.Action, error) {
		seen = req.Instructions
		return planner.Final("ok"), nil
	})
	rt := New("assistant", p, nil, func(o *Options) {
		o.Instruction = NewInstructionFromFunc(func(h []core.Message) (string, error) {
			return "messages so far: " + string(rune('0'+len(h))), nil
		})
	})

	_, err := rt.Run(context.Background(), []core.Message{core.NewUserMessage("a")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "messages so far: 1", seen)
}
