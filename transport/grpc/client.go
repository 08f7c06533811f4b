package grpc

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/hupe1980/meshstream/core"
	"github.com/hupe1980/meshstream/transport"
)

// ClientOptions configure a Client.
type ClientOptions struct {
	Codec       transport.Codec
	DialOptions []grpc.DialOption
}

// Client opens invocation streams against a gRPC worker endpoint.
type Client struct {
	target string
	opts   ClientOptions

	mu   sync.Mutex
	conn *grpc.ClientConn
}

// NewClient creates a client for target (host:port). The connection is
// established lazily on the first Open.
func NewClient(target string, optFns ...func(o *ClientOptions)) *Client {
	opts := ClientOptions{
		Codec: transport.JSON,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{target: target, opts: opts}
}

// Address returns the dial target.
func (c *Client) Address() string { return c.target }

func (c *Client) clientConn() (*grpc.ClientConn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return c.conn, nil
	}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, c.opts.DialOptions...)

	conn, err := grpc.NewClient(c.target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("grpc: client %s: %w", c.target, err)
	}
	c.conn = conn
	return conn, nil
}

// Open starts an invocation stream and sends req.
func (c *Client) Open(ctx context.Context, req core.Request) (transport.Stream, error) {
	conn, err := c.clientConn()
	if err != nil {
		return nil, err
	}

	cs, err := conn.NewStream(ctx, &invokeStreamDesc, InvokeMethod, grpc.CallContentSubtype(contentSubtype(c.opts.Codec)))
	if err != nil {
		return nil, fmt.Errorf("grpc: open %s: %w", c.target, err)
	}

	f := transport.RequestFrame(req)
	if err := cs.SendMsg(&f); err != nil {
		return nil, fmt.Errorf("grpc: send request: %w", err)
	}
	if err := cs.CloseSend(); err != nil {
		return nil, fmt.Errorf("grpc: close send: %w", err)
	}

	return &stream{cs: cs}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

type stream struct {
	cs grpc.ClientStream
}

// Recv returns io.EOF once the server finished the call cleanly.
func (s *stream) Recv() (transport.Frame, error) {
	var f transport.Frame
	if err := s.cs.RecvMsg(&f); err != nil {
		return transport.Frame{}, err
	}
	return f, nil
}

// Close is a no-op; the stream ends with its context.
func (s *stream) Close() error { return nil }
