package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/meshstream/core"
)

func TestJQFilter(t *testing.T) {
	f, err := newJQFilter(`select(.kind == "event") | .event.custom_event`)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.write(&buf, core.EventItem(core.NamespacePath{"supervisor", "research_agent"}, core.NewEvent("search_started", nil))))
	require.NoError(t, f.write(&buf, core.DeltaItem(core.NamespacePath{"supervisor"}, core.Delta{})))

	assert.Equal(t, "\"search_started\"\n", buf.String())
}

func TestJQFilter_Path(t *testing.T) {
	f, err := newJQFilter(`.path | join("/")`)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.write(&buf, core.EventItem(core.NamespacePath{"supervisor", "research_agent"}, core.NewEvent("x", nil))))
	assert.Equal(t, "\"supervisor/research_agent\"\n", buf.String())
}

func TestJQFilter_InvalidExpression(t *testing.T) {
	_, err := newJQFilter(`.[`)
	require.Error(t, err)
}
