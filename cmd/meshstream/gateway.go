package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hupe1980/meshstream/gateway"
	"github.com/hupe1980/meshstream/history"
	"github.com/hupe1980/meshstream/runner"
)

var (
	gatewayAddr    string
	gatewayMaxRuns int
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Serve the supervisor over HTTP with server-sent events",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		addr := globalConfig.Gateway.Addr
		if gatewayAddr != "" {
			addr = gatewayAddr
		}

		logger := globalLogger.WithComponent("gateway")

		s, err := newBuilder().supervisor()
		if err != nil {
			return err
		}

		r := runner.New(s, func(o *runner.Options) {
			if gatewayMaxRuns > 0 {
				o.MaxConcurrentRuns = gatewayMaxRuns
			}
			o.Logger = logger
		})

		var store history.Store
		if db := globalConfig.Server.HistoryDB; db != "" {
			sqlite, err := history.Open(db)
			if err != nil {
				return fmt.Errorf("opening history: %w", err)
			}
			defer sqlite.Close()
			store = sqlite
		}

		srv := gateway.New(r, func(o *gateway.Options) {
			o.History = store
			o.Logger = logger
		})
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	gatewayCmd.Flags().StringVar(&gatewayAddr, "addr", "", "listen address (default from config, :8484)")
	gatewayCmd.Flags().IntVar(&gatewayMaxRuns, "max-runs", 0, "maximum concurrent runs")
}
