package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/hupe1980/meshstream/core"
	"github.com/hupe1980/meshstream/logging"
	"github.com/hupe1980/meshstream/transport"
	grpctransport "github.com/hupe1980/meshstream/transport/grpc"
	"github.com/hupe1980/meshstream/transport/ws"
)

// DefaultTimeout bounds a remote invocation when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// InvokePath is the HTTP path of the websocket endpoint served by
// `meshstream serve`.
const InvokePath = "/invoke"

// RemoteOptions configure a Remote adapter.
type RemoteOptions struct {
	// Timeout bounds the whole invocation, from dial to the terminal frame.
	Timeout time.Duration
	// Codec selects the frame encoding.
	Codec transport.Codec
	// Client overrides the transport chosen from the address scheme.
	Client transport.Client
	// Buffer is the capacity of the returned item channel.
	Buffer int
	Logger logging.Logger
}

// Remote invokes a worker served by another process.
type Remote struct {
	name    string
	address string
	client  transport.Client
	opts    RemoteOptions
	logger  logging.Logger
}

// NewRemote creates a remote adapter. The address scheme selects the
// transport: ws/wss for websocket, http/https for the websocket endpoint at
// InvokePath, grpc for gRPC.
func NewRemote(name, address string, optFns ...func(o *RemoteOptions)) (*Remote, error) {
	opts := RemoteOptions{
		Timeout: DefaultTimeout,
		Codec:   transport.JSON,
		Buffer:  16,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Client == nil {
		c, err := clientFor(address, opts.Codec)
		if err != nil {
			return nil, &core.ConfigurationError{Component: "worker", Name: name, Reason: "invalid remote address", Err: err}
		}
		opts.Client = c
	}

	return &Remote{
		name:    name,
		address: address,
		client:  opts.Client,
		opts:    opts,
		logger:  logging.OrNoOp(opts.Logger),
	}, nil
}

func clientFor(address string, codec transport.Codec) (transport.Client, error) {
	u, err := url.Parse(address)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(u.Scheme) {
	case "ws", "wss":
		return ws.NewClient(address, func(o *ws.ClientOptions) { o.Codec = codec }), nil
	case "http", "https":
		u.Scheme = strings.Replace(strings.ToLower(u.Scheme), "http", "ws", 1)
		if u.Path == "" || u.Path == "/" {
			u.Path = InvokePath
		}
		return ws.NewClient(u.String(), func(o *ws.ClientOptions) { o.Codec = codec }), nil
	case "grpc":
		if u.Host == "" {
			return nil, fmt.Errorf("grpc address %q has no host", address)
		}
		return grpctransport.NewClient(u.Host, func(o *grpctransport.ClientOptions) { o.Codec = codec }), nil
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
}

// Name implements Adapter.
func (r *Remote) Name() string { return r.name }

// Kind implements Adapter.
func (r *Remote) Kind() Kind { return KindRemote }

// Address returns the configured endpoint address.
func (r *Remote) Address() string { return r.address }

// Invoke implements Adapter. Refused connections, timeouts and disconnects
// surface as a single terminal TransportError item. Item paths received from
// the endpoint are rebased onto this adapter's name.
func (r *Remote) Invoke(ctx context.Context, req core.Request) <-chan core.StreamItem {
	out := make(chan core.StreamItem, r.opts.Buffer)

	go func() {
		defer close(out)

		callCtx := ctx
		if r.opts.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
			defer cancel()
		}

		start := time.Now()
		fail := func(op string, err error) {
			if ctx.Err() != nil {
				return
			}
			// Transport errors caused by our own deadline are reported as timeouts.
			if dl := callCtx.Err(); dl != nil && !errors.Is(err, dl) {
				err = fmt.Errorf("%w: %v", dl, err)
			}
			te := core.NewTransportError(r.name, r.client.Address(), op, err)
			r.logger.Warn("worker.remote.transport_error",
				"worker", r.name,
				"address", te.Address,
				"op", op,
				"timeout", te.Timeout,
				"duration_ms", time.Since(start).Milliseconds(),
				"error", err,
			)
			send(ctx, out, core.ErrorItem(core.NamespacePath{r.name}, te))
		}

		stream, err := r.client.Open(callCtx, req)
		if err != nil {
			fail("dial", err)
			return
		}
		defer stream.Close()

		for {
			f, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) {
					err = transport.ErrIncompleteStream
				}
				fail("recv", err)
				return
			}

			it, err := f.Item()
			if err != nil {
				fail("decode", err)
				return
			}
			it.Path = it.Path.Rebase(r.name)

			if ctx.Err() != nil {
				return
			}
			if !send(ctx, out, it) {
				return
			}
			if it.EndsStream() {
				r.logger.Debug("worker.remote.complete", "worker", r.name, "duration_ms", time.Since(start).Milliseconds())
				return
			}
		}
	}()

	return out
}
