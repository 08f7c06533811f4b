package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/meshstream/agent"
	"github.com/hupe1980/meshstream/core"
	"github.com/hupe1980/meshstream/history"
	"github.com/hupe1980/meshstream/internal/testutil"
	"github.com/hupe1980/meshstream/planner"
	"github.com/hupe1980/meshstream/runner"
	"github.com/hupe1980/meshstream/tool"
)

type sseEvent struct {
	name string
	data string
}

func parseSSE(t *testing.T, body io.Reader) []sseEvent {
	t.Helper()
	raw, err := io.ReadAll(body)
	require.NoError(t, err)

	var out []sseEvent
	for _, block := range strings.Split(strings.TrimSpace(string(raw)), "\n\n") {
		var ev sseEvent
		for _, line := range strings.Split(block, "\n") {
			switch {
			case strings.HasPrefix(line, "event: "):
				ev.name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				ev.data = strings.TrimPrefix(line, "data: ")
			}
		}
		out = append(out, ev)
	}
	return out
}

func newGateway(t *testing.T, optFns ...func(o *Options)) *httptest.Server {
	t.Helper()
	reg := tool.MustRegistry(testutil.EventOp("google_search", "found", "search_started", "search_progress", "search_completed"))
	p := planner.Func(func(_ context.Context, req planner.Request) (planner.Action, error) {
		if len(planner.ToolResultsSince(req.Messages)) > 0 {
			return planner.Final("done"), nil
		}
		return planner.Invoke(planner.Call("google_search", nil)), nil
	})
	rt := agent.New("research_agent", p, reg)

	srv := httptest.NewServer(New(runner.New(rt), optFns...).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestRun_EventsOnly(t *testing.T) {
	srv := newGateway(t)

	resp, err := http.Post(srv.URL+"/v1/runs?mode=events-only", "application/json", strings.NewReader(`{"message":"latest AI news"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := parseSSE(t, resp.Body)
	require.Len(t, events, 5)
	assert.Equal(t, "run", events[0].name)
	assert.Equal(t, "done", events[4].name)

	var types []string
	for _, ev := range events[1:4] {
		assert.Equal(t, "event", ev.name)
		var item core.StreamItem
		require.NoError(t, json.Unmarshal([]byte(ev.data), &item))
		assert.Equal(t, core.NamespacePath{"research_agent"}, item.Path)
		types = append(types, item.Event.Type)
	}
	assert.Equal(t, []string{"search_started", "search_progress", "search_completed"}, types)
}

func TestRun_DeltasOnly(t *testing.T) {
	srv := newGateway(t)

	resp, err := http.Post(srv.URL+"/v1/runs?mode=deltas-only", "application/json", strings.NewReader(`{"message":"hi"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	for _, ev := range parseSSE(t, resp.Body) {
		assert.NotEqual(t, "event", ev.name)
	}
}

func TestRun_BadRequests(t *testing.T) {
	srv := newGateway(t)

	tests := []struct {
		name string
		url  string
		body string
	}{
		{name: "unknown mode", url: "/v1/runs?mode=everything", body: `{"message":"hi"}`},
		{name: "invalid json", url: "/v1/runs", body: `{`},
		{name: "empty input", url: "/v1/runs", body: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+tt.url, "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestCancelUnknownRun(t *testing.T) {
	srv := newGateway(t)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/v1/runs/missing", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestThreads(t *testing.T) {
	store := history.NewInMemoryStore()
	require.NoError(t, store.Append(context.Background(), "t1", "research_agent", core.NewUserMessage("hi")))

	srv := newGateway(t, func(o *Options) { o.History = store })

	resp, err := http.Get(srv.URL + "/v1/threads")
	require.NoError(t, err)
	defer resp.Body.Close()
	var summaries []history.Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "t1", summaries[0].ID)

	resp2, err := http.Get(srv.URL + "/v1/threads/t1")
	require.NoError(t, err)
	defer resp2.Body.Close()
	var thread history.Thread
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&thread))
	require.Len(t, thread.Messages, 1)

	resp3, err := http.Get(srv.URL + "/v1/threads/nope")
	require.NoError(t, err)
	defer resp3.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp3.StatusCode)
}

func TestThreads_Disabled(t *testing.T) {
	srv := newGateway(t)

	resp, err := http.Get(srv.URL + "/v1/threads")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	srv := newGateway(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
