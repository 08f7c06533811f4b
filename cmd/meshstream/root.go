package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/meshstream/config"
	"github.com/hupe1980/meshstream/logging"
	"github.com/hupe1980/meshstream/trace"
)

var (
	// Global flags
	configPath string
	logLevel   string

	globalConfig  *config.Config
	globalLogger  *logging.MeshLogger
	traceShutdown func(context.Context) error
)

var rootCmd = &cobra.Command{
	Use:   "meshstream",
	Short: "Multi-agent supervisor with a single namespaced event stream",
	Long: `meshstream runs a supervisor that delegates to local and remote workers
and streams their conversation deltas and custom events as one ordered,
namespaced stream.

Configuration is read from --config or the OS config directory:
  Linux:   ~/.config/meshstream/config.toml
  macOS:   ~/Library/Application Support/meshstream/config.toml

Without a configuration file the built-in research_agent and analysis_agent
workers run in process.

Examples:
  # Stream only custom events of one request
  meshstream invoke --mode events-only "latest AI news"

  # Expose research_agent on ws://localhost:2024/invoke
  meshstream serve --worker research_agent

  # Serve the supervisor over HTTP/SSE
  meshstream gateway --addr :8484`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return setup(cmd.Context())
	},
	PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
		if traceShutdown == nil {
			return nil
		}
		return traceShutdown(context.WithoutCancel(cmd.Context()))
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "configuration file (TOML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(invokeCmd)
	rootCmd.AddCommand(gatewayCmd)
}

func setup(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	level, ok := logging.ParseLevel(cfg.Log.Level)
	if !ok {
		return fmt.Errorf("unknown log level %q", cfg.Log.Level)
	}

	globalConfig = cfg
	globalLogger = logging.NewSlogLogger(level, cfg.Log.Format, false)

	if cfg.Trace.Enabled() {
		traceShutdown, err = trace.Init(ctx, trace.Config{
			Endpoint:    cfg.Trace.Endpoint,
			URLPath:     cfg.Trace.URLPath,
			APIKey:      cfg.Trace.APIKey,
			Insecure:    cfg.Trace.Insecure,
			ServiceName: cfg.Trace.ServiceName,
			Logger:      globalLogger.WithComponent("trace"),
		})
		if err != nil {
			return fmt.Errorf("initializing tracing: %w", err)
		}
	}

	return nil
}
