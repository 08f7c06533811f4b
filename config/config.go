// Package config loads the TOML configuration shared by the meshstream
// commands: the supervisor, its workers, planners, the worker endpoint, the
// gateway, logging and tracing.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/hupe1980/meshstream/core"
)

// Config is the root configuration document.
type Config struct {
	Supervisor SupervisorConfig          `toml:"supervisor"`
	Workers    []WorkerConfig            `toml:"worker"`
	Planners   map[string]*PlannerConfig `toml:"planner"`
	Server     ServerConfig              `toml:"server"`
	Gateway    GatewayConfig             `toml:"gateway"`
	Log        LogConfig                 `toml:"log"`
	Trace      TraceConfig               `toml:"trace"`
}

type SupervisorConfig struct {
	Name                string `toml:"name"`
	Planner             string `toml:"planner"`
	Instructions        string `toml:"instructions"`
	MaxSteps            int    `toml:"max_steps"`
	FanOut              bool   `toml:"fan_out"`
	MaxParallel         int    `toml:"max_parallel"`
	HandoffBackMessages bool   `toml:"handoff_back_messages"`
	ForwardHistory      bool   `toml:"forward_history"`
}

// WorkerConfig declares one worker. Exactly one of URL (remote) and Local
// (a built-in worker such as "research" or "analysis") is set.
type WorkerConfig struct {
	Name    string   `toml:"name"`
	URL     string   `toml:"url"`
	Local   string   `toml:"local"`
	Planner string   `toml:"planner"`
	Timeout Duration `toml:"timeout"`
	Codec   string   `toml:"codec"`
}

// IsRemote reports whether the worker is reached over the network.
func (w WorkerConfig) IsRemote() bool { return w.URL != "" }

type PlannerConfig struct {
	Provider          string  `toml:"provider"` // openai | anthropic | scripted
	Model             string  `toml:"model"`
	APIKey            string  `toml:"api_key"`
	BaseURL           string  `toml:"base_url"`
	Temperature       float64 `toml:"temperature"`
	RequestsPerMinute float64 `toml:"requests_per_minute"`
}

// ServerConfig configures `meshstream serve`, which exposes one local worker.
type ServerConfig struct {
	Addr      string `toml:"addr"`
	Transport string `toml:"transport"` // ws | grpc
	Worker    string `toml:"worker"`
	HistoryDB string `toml:"history_db"`
}

type GatewayConfig struct {
	Addr string `toml:"addr"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type TraceConfig struct {
	Endpoint    string `toml:"endpoint"`
	URLPath     string `toml:"url_path"`
	APIKey      string `toml:"api_key"`
	Insecure    bool   `toml:"insecure"`
	ServiceName string `toml:"service_name"`
}

// Enabled reports whether an exporter endpoint is configured.
func (t TraceConfig) Enabled() bool { return t.Endpoint != "" }

// Duration is a time.Duration decoded from strings such as "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// Default returns the configuration used when no file exists: a supervisor
// over the built-in research and analysis workers driven by scripted planners.
func Default() *Config {
	return &Config{
		Supervisor: SupervisorConfig{
			Name:     "supervisor",
			Planner:  "scripted",
			MaxSteps: 25,
			FanOut:   true,
		},
		Workers: defaultWorkers(),
		Planners: map[string]*PlannerConfig{
			"scripted": {Provider: "scripted"},
		},
		Server: ServerConfig{
			Addr:      ":2024",
			Transport: "ws",
			Worker:    "research_agent",
		},
		Gateway: GatewayConfig{
			Addr: ":8484",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Trace: TraceConfig{
			URLPath:     "/v1/traces",
			ServiceName: "meshstream",
		},
	}
}

func defaultWorkers() []WorkerConfig {
	return []WorkerConfig{
		{Name: "research_agent", Local: "research", Planner: "scripted"},
		{Name: "analysis_agent", Local: "analysis", Planner: "scripted"},
	}
}

// decode applies a TOML document over the defaults. A document declaring
// [[worker]] tables replaces the default workers instead of merging into them.
func decode(data string) (*Config, toml.MetaData, error) {
	cfg := Default()
	cfg.Workers = nil
	md, err := toml.Decode(data, cfg)
	if err != nil {
		return nil, md, err
	}
	if !md.IsDefined("worker") {
		cfg.Workers = defaultWorkers()
	}
	return cfg, md, nil
}

// Load reads path over the defaults. An empty path selects the user config
// file, which may be absent.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	if data, err := os.ReadFile(path); err == nil {
		var md toml.MetaData
		cfg, md, err = decode(string(data))
		if err != nil {
			return nil, &core.ConfigurationError{Component: "config", Name: path, Reason: "cannot decode", Err: err}
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, &core.ConfigurationError{Component: "config", Name: path, Reason: "unknown keys: " + strings.Join(keys, ", ")}
		}
	} else if explicit {
		return nil, &core.ConfigurationError{Component: "config", Name: path, Reason: "cannot read", Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes a TOML document over the defaults.
func Parse(data string) (*Config, error) {
	cfg, _, err := decode(data)
	if err != nil {
		return nil, &core.ConfigurationError{Component: "config", Reason: "cannot decode", Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross references and value ranges.
func (c *Config) Validate() error {
	var errs []error

	fail := func(name, format string, args ...any) {
		errs = append(errs, &core.ConfigurationError{Component: "config", Name: name, Reason: fmt.Sprintf(format, args...)})
	}

	if c.Supervisor.Name == "" {
		fail("supervisor", "name is required")
	}
	if c.Supervisor.MaxSteps < 0 {
		fail("supervisor", "max_steps must not be negative")
	}
	if _, ok := c.Planners[c.Supervisor.Planner]; !ok {
		fail("supervisor", "unknown planner %q", c.Supervisor.Planner)
	}

	seen := map[string]bool{c.Supervisor.Name: true}
	for i, w := range c.Workers {
		name := w.Name
		if name == "" {
			name = fmt.Sprintf("worker[%d]", i)
			fail(name, "name is required")
		}
		if seen[w.Name] {
			errs = append(errs, &core.ConfigurationError{Component: "config", Name: name, Reason: "worker already declared", Err: core.ErrDuplicateName})
		}
		seen[w.Name] = true

		switch {
		case w.URL != "" && w.Local != "":
			fail(name, "url and local are mutually exclusive")
		case w.URL == "" && w.Local == "":
			fail(name, "either url or local is required")
		case w.URL != "":
			if _, err := url.Parse(w.URL); err != nil {
				fail(name, "invalid url: %v", err)
			}
		default:
			if _, ok := c.Planners[w.Planner]; !ok {
				fail(name, "unknown planner %q", w.Planner)
			}
		}
		if w.Timeout.Duration < 0 {
			fail(name, "timeout must not be negative")
		}
	}

	for name, p := range c.Planners {
		switch p.Provider {
		case "openai", "anthropic", "scripted":
		default:
			fail("planner."+name, "unknown provider %q", p.Provider)
		}
		if p.RequestsPerMinute < 0 {
			fail("planner."+name, "requests_per_minute must not be negative")
		}
	}

	switch c.Server.Transport {
	case "", "ws", "grpc":
	default:
		fail("server", "unknown transport %q", c.Server.Transport)
	}

	return errors.Join(errs...)
}

// Worker returns the named worker declaration.
func (c *Config) Worker(name string) (WorkerConfig, bool) {
	for _, w := range c.Workers {
		if w.Name == name {
			return w, true
		}
	}
	return WorkerConfig{}, false
}

// DefaultPath returns the user config file location.
func DefaultPath() string {
	dir, _ := os.UserConfigDir()
	return filepath.Join(dir, "meshstream", "config.toml")
}
