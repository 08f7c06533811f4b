package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/meshstream/agent"
	"github.com/hupe1980/meshstream/core"
	"github.com/hupe1980/meshstream/internal/testutil"
	"github.com/hupe1980/meshstream/planner"
	"github.com/hupe1980/meshstream/worker"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Store{
		"memory": NewInMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestStore_AppendAndLoad(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Append(ctx, "t-1", "research_agent", core.NewUserMessage("hi")))
			require.NoError(t, s.Append(ctx, "t-1", "research_agent",
				core.NewAssistantMessage("research_agent", "hello"),
				core.NewMarkerMessage(core.MarkerTruncation, "research_agent", "stopped"),
			))

			th, err := s.Thread(ctx, "t-1")
			require.NoError(t, err)
			assert.Equal(t, "research_agent", th.Worker)
			require.Len(t, th.Messages, 3)
			assert.Equal(t, "hi", th.Messages[0].Content)
			assert.Equal(t, core.MarkerTruncation, th.Messages[2].Marker)

			list, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, 3, list[0].Messages)

			_, err = s.Thread(ctx, "missing")
			assert.ErrorIs(t, err, ErrThreadNotFound)
		})
	}
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Append(context.Background(), "t", "w", core.NewUserMessage("x")))
	th, err := s.Thread(context.Background(), "t")
	require.NoError(t, err)
	assert.Len(t, th.Messages, 1)
}

func TestRecord(t *testing.T) {
	store := NewInMemoryStore()
	rt := agent.New("assistant", planner.NewScripted("p", planner.Final("answer")), nil)
	a := Record(worker.NewLocal(rt), store, nil)

	req := core.NewRequest(core.NewUserMessage("question"))
	items := testutil.Drain(t, a.Invoke(context.Background(), req), 2*time.Second)
	require.NotEmpty(t, items)
	assert.Equal(t, core.KindCompletion, items[len(items)-1].Kind)

	th, err := store.Thread(context.Background(), req.ThreadID)
	require.NoError(t, err)
	require.Len(t, th.Messages, 2)
	assert.Equal(t, "question", th.Messages[0].Content)
	assert.Equal(t, "answer", th.Messages[1].Content)
}
