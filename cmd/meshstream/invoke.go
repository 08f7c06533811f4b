package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hupe1980/meshstream/core"
	"github.com/hupe1980/meshstream/runner"
	"github.com/hupe1980/meshstream/stream"
)

var (
	invokeMode   string
	invokeJQ     string
	invokeJSON   bool
	invokeWorker string
	invokeThread string
)

var invokeCmd = &cobra.Command{
	Use:   "invoke [flags] <message>",
	Short: "Run the supervisor once and print its stream",
	Long: `Run the supervisor (or with --worker a single configured worker) on one
user message and print every stream item. --jq applies a jq program to the
JSON form of each item.

Examples:
  meshstream invoke --mode events-only "research the latest AI news"
  meshstream invoke --jq 'select(.kind == "event") | .event.custom_event' "analyze the market"
  meshstream invoke --worker research_agent "academic papers on transformers"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		mode, err := stream.ParseMode(invokeMode)
		if err != nil {
			return err
		}

		printItem, err := itemPrinter(cmd.OutOrStdout())
		if err != nil {
			return err
		}

		req := core.NewRequest(core.NewUserMessage(strings.Join(args, " ")))
		if invokeThread != "" {
			req.ThreadID = invokeThread
		}

		if invokeWorker != "" {
			return invokeOne(ctx, invokeWorker, req, mode, printItem)
		}
		return invokeSupervisor(ctx, req, mode, printItem)
	},
}

func init() {
	invokeCmd.Flags().StringVarP(&invokeMode, "mode", "m", "both", "stream mode: deltas-only, events-only or both")
	invokeCmd.Flags().StringVar(&invokeJQ, "jq", "", "jq program applied to each item")
	invokeCmd.Flags().BoolVar(&invokeJSON, "json", false, "print items as JSON lines")
	invokeCmd.Flags().StringVarP(&invokeWorker, "worker", "w", "", "invoke a single configured worker")
	invokeCmd.Flags().StringVar(&invokeThread, "thread", "", "thread ID sent with the request")
}

type printFunc func(core.StreamItem) error

func itemPrinter(w io.Writer) (printFunc, error) {
	switch {
	case invokeJQ != "":
		f, err := newJQFilter(invokeJQ)
		if err != nil {
			return nil, err
		}
		return func(it core.StreamItem) error { return f.write(w, it) }, nil
	case invokeJSON:
		enc := json.NewEncoder(w)
		return func(it core.StreamItem) error { return enc.Encode(it) }, nil
	default:
		return func(it core.StreamItem) error {
			_, err := fmt.Fprintln(w, it.String())
			return err
		}, nil
	}
}

func invokeSupervisor(ctx context.Context, req core.Request, mode stream.Mode, printItem printFunc) error {
	s, err := newBuilder().supervisor()
	if err != nil {
		return err
	}

	r := runner.New(s, func(o *runner.Options) { o.Logger = globalLogger })
	_, items, errs, err := r.Run(ctx, req.Messages, mode)
	if err != nil {
		return err
	}

	var printErr error
	for it := range items {
		if printErr == nil {
			printErr = printItem(it)
		}
	}
	if err := <-errs; err != nil {
		return err
	}
	return printErr
}

func invokeOne(ctx context.Context, name string, req core.Request, mode stream.Mode, printItem printFunc) error {
	b := newBuilder()
	wc, ok := b.cfg.Worker(name)
	if !ok {
		return fmt.Errorf("worker %q is not configured", name)
	}
	a, err := b.adapter(wc)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var failure error
	for it := range stream.Filter(ctx, a.Invoke(ctx, req), mode) {
		if it.Kind == core.KindError {
			failure = it.Error
		}
		if err := printItem(it); err != nil {
			cancel()
			return err
		}
	}
	return failure
}
