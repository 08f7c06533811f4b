package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/meshstream/core"
)

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestParse(t *testing.T) {
	cfg, err := Parse(`
[supervisor]
name = "boss"
planner = "gpt"
fan_out = true
handoff_back_messages = true

[planner.gpt]
provider = "openai"
model = "gpt-4o"
requests_per_minute = 60

[[worker]]
name = "remote_research"
url = "http://localhost:2024"
timeout = "5s"
codec = "msgpack"
`)
	require.NoError(t, err)

	assert.Equal(t, "boss", cfg.Supervisor.Name)
	assert.True(t, cfg.Supervisor.FanOut)
	assert.Equal(t, 25, cfg.Supervisor.MaxSteps)

	// [[worker]] tables replace the default list
	require.Len(t, cfg.Workers, 1)
	w := cfg.Workers[0]
	assert.True(t, w.IsRemote())
	assert.Equal(t, 5*time.Second, w.Timeout.Duration)
	assert.Equal(t, "gpt-4o", cfg.Planners["gpt"].Model)
}

func TestValidate_DuplicateWorker(t *testing.T) {
	_, err := Parse(`
[[worker]]
name = "a"
local = "research"
planner = "scripted"

[[worker]]
name = "a"
local = "analysis"
planner = "scripted"
`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrDuplicateName))

	var cfgErr *core.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestValidate_Errors(t *testing.T) {
	tests := map[string]string{
		"unknown planner":   "[supervisor]\nplanner = \"nope\"",
		"bad provider":      "[planner.x]\nprovider = \"llama\"",
		"url and local":     "[[worker]]\nname = \"w\"\nurl = \"ws://x\"\nlocal = \"research\"",
		"neither":           "[[worker]]\nname = \"w\"",
		"unknown transport": "[server]\ntransport = \"udp\"",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(doc)
			var cfgErr *core.ConfigurationError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[gateway]\naddr = \":9999\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Gateway.Addr)

	require.NoError(t, os.WriteFile(path, []byte("[gateway]\nport = 1\n"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
