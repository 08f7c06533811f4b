package meshstream

import (
	"context"
	"errors"
	"net/http/httptest"
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
	"github.com/hupe1980/meshstream/transport/ws"
	"github.com/hupe1980/meshstream/worker"
)

func researchRuntime() *agent.Runtime {
	reg := tool.MustRegistry(testutil.EventOp("google_search", "Found 10 Google results", "search_started", "search_progress", "search_completed"))
	p := planner.Func(func(_ context.Context, req planner.Request) (planner.Action, error) {
		if len(planner.ToolResultsSince(req.Messages)) > 0 {
			return planner.Final("research done"), nil
		}
		return planner.Invoke(planner.Call("google_search", nil)), nil
	})
	return agent.New("research_agent", p, reg)
}

func delegatingPlanner() planner.Planner {
	return planner.Func(func(_ context.Context, req planner.Request) (planner.Action, error) {
		if results := planner.ToolResultsSince(req.Messages); len(results) > 0 {
			return planner.Final(results[0].Content), nil
		}
		return planner.Invoke(planner.Call(supervisor.DelegateName("research_agent"), map[string]any{"task": "latest AI news"})), nil
	})
}

func TestMesh_LocalEventsOnly(t *testing.T) {
	m, err := New("supervisor", delegatingPlanner())
	require.NoError(t, err)
	require.NoError(t, m.RegisterRuntime(researchRuntime()))

	_, items, errs, err := m.Invoke(context.Background(), "research", stream.ModeEvents)
	require.NoError(t, err)

	got := testutil.Drain(t, items, 2*time.Second)
	require.Len(t, got, 3)
	for _, it := range got {
		assert.Equal(t, core.NamespacePath{"supervisor", "research_agent"}, it.Path)
	}
	require.NoError(t, <-errs)
}

func TestMesh_RemoteMatchesLocal(t *testing.T) {
	srv := httptest.NewServer(ws.NewServer(worker.NewLocal(researchRuntime())).Handler())
	t.Cleanup(srv.Close)

	m, err := New("supervisor", delegatingPlanner())
	require.NoError(t, err)
	require.NoError(t, m.RegisterRemote("research_agent", "ws"+srv.URL[len("http"):]))

	out, err := m.InvokeSync(context.Background(), "research")
	require.NoError(t, err)

	require.Len(t, out.Events, 3)
	assert.Equal(t, []string{"search_started", "search_progress", "search_completed"}, testutil.EventTypes(out.Events))
	for _, it := range out.Events {
		assert.Equal(t, core.NamespacePath{"supervisor", "research_agent"}, it.Path)
	}
	assert.Equal(t, "research done", out.Completion.Result)
}

func TestMesh_DuplicateWorker(t *testing.T) {
	m, err := New("supervisor", delegatingPlanner())
	require.NoError(t, err)
	require.NoError(t, m.RegisterRuntime(researchRuntime()))

	err = m.RegisterRuntime(researchRuntime())
	var cfgErr *core.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.ErrorIs(t, err, core.ErrDuplicateName)
}

func TestMesh_RegisterRemoteBadAddress(t *testing.T) {
	m, err := New("supervisor", delegatingPlanner())
	require.NoError(t, err)
	require.Error(t, m.RegisterRemote("research_agent", "ftp://nowhere"))
}

func TestMesh_SupervisorOptions(t *testing.T) {
	m, err := New("supervisor", delegatingPlanner(), func(o *Options) {
		o.Supervisor = func(so *supervisor.Options) { so.HandoffBackMessages = true }
	})
	require.NoError(t, err)
	require.NoError(t, m.RegisterRuntime(researchRuntime()))

	out, err := m.InvokeSync(context.Background(), "research")
	require.NoError(t, err)
	assert.Len(t, out.State.Markers(core.MarkerHandoff), 1)
}
