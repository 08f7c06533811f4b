package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/hupe1980/meshstream/history"
	"github.com/hupe1980/meshstream/logging"
	"github.com/hupe1980/meshstream/transport"
	grpctransport "github.com/hupe1980/meshstream/transport/grpc"
	"github.com/hupe1980/meshstream/transport/ws"
	"github.com/hupe1980/meshstream/worker"
)

var (
	serveAddr       string
	serveTransport  string
	serveWorker     string
	serveSupervisor bool
	serveHistoryDB  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose a worker over websocket or gRPC",
	Long: `Expose one local worker, or with --supervisor the whole supervisor, as a
remote worker endpoint. Websocket endpoints listen on <addr>/invoke.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		sc := globalConfig.Server
		if serveAddr != "" {
			sc.Addr = serveAddr
		}
		if serveTransport != "" {
			sc.Transport = serveTransport
		}
		if serveWorker != "" {
			sc.Worker = serveWorker
		}
		if serveHistoryDB != "" {
			sc.HistoryDB = serveHistoryDB
		}

		logger := globalLogger.WithComponent("serve")
		b := newBuilder()

		adapter, err := serveAdapter(b, sc.Worker)
		if err != nil {
			return err
		}

		if sc.HistoryDB != "" {
			store, err := history.Open(sc.HistoryDB)
			if err != nil {
				return fmt.Errorf("opening history: %w", err)
			}
			defer store.Close()
			adapter = history.Record(adapter, store, logger)
		}

		logger.Info("serve.start", "worker", adapter.Name(), "addr", sc.Addr, "transport", sc.Transport)

		switch sc.Transport {
		case "grpc":
			return serveGRPC(ctx, sc.Addr, adapter, logger)
		default:
			return serveWS(ctx, sc.Addr, adapter, logger)
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :2024)")
	serveCmd.Flags().StringVar(&serveTransport, "transport", "", "ws or grpc")
	serveCmd.Flags().StringVar(&serveWorker, "worker", "", "local worker to expose")
	serveCmd.Flags().BoolVar(&serveSupervisor, "supervisor", false, "expose the supervisor instead of a single worker")
	serveCmd.Flags().StringVar(&serveHistoryDB, "history-db", "", "record transcripts in this sqlite database")
}

func serveAdapter(b *builder, name string) (worker.Adapter, error) {
	if serveSupervisor {
		s, err := b.supervisor()
		if err != nil {
			return nil, err
		}
		return s.AsWorker(), nil
	}

	wc, ok := b.cfg.Worker(name)
	if !ok {
		return nil, fmt.Errorf("worker %q is not configured", name)
	}
	rt, err := b.localRuntime(wc)
	if err != nil {
		return nil, err
	}
	return worker.NewLocal(rt, func(o *worker.LocalOptions) { o.Logger = b.logger }), nil
}

func serveWS(ctx context.Context, addr string, inv transport.Invoker, logger logging.Logger) error {
	mux := http.NewServeMux()
	mux.Handle(worker.InvokePath, ws.NewServer(inv, func(o *ws.ServerOptions) { o.Logger = logger }).Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func serveGRPC(ctx context.Context, addr string, inv transport.Invoker, logger logging.Logger) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	srv := grpc.NewServer()
	grpctransport.Register(srv, inv, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(lis) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		srv.GracefulStop()
		return nil
	}
}
