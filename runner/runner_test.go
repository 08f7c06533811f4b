package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/meshstream/agent"
	"github.com/hupe1980/meshstream/core"
	"github.com/hupe1980/meshstream/internal/testutil"
	"github.com/hupe1980/meshstream/planner"
	"github.com/hupe1980/meshstream/stream"
	"github.com/hupe1980/meshstream/supervisor"
	"github.com/hupe1980/meshstream/tool"
	"github.com/hupe1980/meshstream/worker"
)

func newResearchSupervisor(t *testing.T) *supervisor.Supervisor {
	t.Helper()

	reg := tool.MustRegistry(testutil.EventOp("google_search", "Found 10 Google results", "search_started", "search_progress", "search_completed"))
	research := agent.New("research_agent", planner.NewScripted("research", planner.Invoke(planner.Call("google_search", nil))), reg)

	s, err := supervisor.New("supervisor", planner.NewScripted("sup",
		planner.Invoke(planner.Call(supervisor.DelegateName("research_agent"), map[string]any{"task": "news"})),
		planner.Final("summary"),
	))
	require.NoError(t, err)
	require.NoError(t, s.Register(worker.NewLocal(research)))
	return s
}

func drainErrors(t *testing.T, errs <-chan error) []error {
	t.Helper()
	var out []error
	timeout := time.After(2 * time.Second)
	for {
		select {
		case err, ok := <-errs:
			if !ok {
				return out
			}
			out = append(out, err)
		case <-timeout:
			t.Fatal("error channel not closed")
			return out
		}
	}
}

func TestRunner_ModeFiltering(t *testing.T) {
	tests := []struct {
		mode       stream.Mode
		wantEvents int
		wantDeltas bool
	}{
		{stream.ModeEvents, 3, false},
		{stream.ModeDeltas, 0, true},
		{stream.ModeBoth, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			r := New(newResearchSupervisor(t))

			runID, items, errs, err := r.Run(context.Background(), []core.Message{core.NewUserMessage("research")}, tt.mode)
			require.NoError(t, err)
			assert.NotEmpty(t, runID)

			got := testutil.Drain(t, items, 5*time.Second)
			assert.Empty(t, drainErrors(t, errs))

			events := testutil.OfKind(got, core.KindEvent)
			assert.Len(t, events, tt.wantEvents)
			for _, ev := range events {
				assert.Equal(t, core.NamespacePath{"supervisor", "research_agent"}, ev.Path)
			}
			assert.Equal(t, tt.wantDeltas, len(testutil.OfKind(got, core.KindDelta)) > 0)
			assert.Empty(t, testutil.OfKind(got, core.KindCompletion))
		})
	}
}

func TestRunner_SlowConsumerReceivesEveryItem(t *testing.T) {
	sink := testutil.NewCollector()
	_, err := newResearchSupervisor(t).Run(context.Background(), []core.Message{core.NewUserMessage("research")}, sink)
	require.NoError(t, err)

	var want []core.StreamItem
	for _, it := range sink.Items() {
		if stream.ModeBoth.Allows(it) {
			want = append(want, it)
		}
	}
	require.NotEmpty(t, want)

	for _, delay := range []time.Duration{0, time.Millisecond, 20 * time.Millisecond} {
		r := New(newResearchSupervisor(t), func(o *Options) { o.BufferSize = 1 })

		_, items, errs, err := r.Run(context.Background(), []core.Message{core.NewUserMessage("research")}, stream.ModeBoth)
		require.NoError(t, err)

		var got []core.StreamItem
		for it := range items {
			time.Sleep(delay)
			got = append(got, it)
		}
		assert.Empty(t, drainErrors(t, errs))

		require.Len(t, got, len(want), "delay %s", delay)
		for i := range want {
			assert.Equal(t, want[i].Kind, got[i].Kind)
			assert.Equal(t, want[i].Path, got[i].Path)
		}
		assert.Equal(t, 0, r.Active())
	}
}

func TestRunner_StepLimitReported(t *testing.T) {
	rt := agent.New("looper", planner.Repeat("echo", nil), tool.MustRegistry(testutil.EchoOp("echo")), func(o *agent.Options) {
		o.MaxSteps = 3
	})
	r := New(rt)

	_, items, errs, err := r.Run(context.Background(), nil, stream.ModeDeltas)
	require.NoError(t, err)

	testutil.Drain(t, items, 2*time.Second)
	got := drainErrors(t, errs)
	require.Len(t, got, 1)

	var limit *core.StepLimitExceeded
	assert.True(t, errors.As(got[0], &limit))
}

func TestRunner_Cancel(t *testing.T) {
	reg := tool.MustRegistry(testutil.SlowOp("slow", 5*time.Second, "late"))
	rt := agent.New("slowpoke", planner.NewScripted("p", planner.Invoke(planner.Call("slow", nil))), reg)
	r := New(rt)

	runID, items, errs, err := r.Run(context.Background(), []core.Message{core.NewUserMessage("hi")}, stream.ModeBoth)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, r.Cancel(runID))

	for _, it := range testutil.Drain(t, items, 2*time.Second) {
		for _, m := range it.Delta.Messages {
			assert.False(t, m.IsToolResult(), "late result delivered after cancel")
		}
	}
	assert.Empty(t, drainErrors(t, errs))

	assert.Eventually(t, func() bool { return r.Active() == 0 }, time.Second, 10*time.Millisecond)
	assert.Error(t, r.Cancel(runID))
}

func TestRunner_RunSync(t *testing.T) {
	r := New(newResearchSupervisor(t))

	out, err := r.RunSync(context.Background(), []core.Message{core.NewUserMessage("research")})
	require.NoError(t, err)

	assert.Equal(t, "summary", out.Completion.Result)
	assert.Len(t, out.Events, 3)
	assert.Empty(t, out.Errors)
	assert.Len(t, out.State.ToolResults(), 1)
}

func TestRunner_MaxConcurrentRuns(t *testing.T) {
	reg := tool.MustRegistry(testutil.SlowOp("slow", 5*time.Second, "late"))
	rt := agent.New("slowpoke", planner.NewScripted("p", planner.Invoke(planner.Call("slow", nil))), reg)
	r := New(rt, func(o *Options) { o.MaxConcurrentRuns = 1 })

	runID, items, _, err := r.Run(context.Background(), nil, stream.ModeBoth)
	require.NoError(t, err)

	_, _, _, err = r.Run(context.Background(), nil, stream.ModeBoth)
	assert.ErrorIs(t, err, ErrTooManyRuns)

	require.NoError(t, r.Cancel(runID))
	testutil.Drain(t, items, 2*time.Second)
}
