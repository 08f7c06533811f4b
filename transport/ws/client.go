package ws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hupe1980/meshstream/core"
	"github.com/hupe1980/meshstream/transport"
)

// ClientOptions configure a Client.
type ClientOptions struct {
	Codec            transport.Codec
	HandshakeTimeout time.Duration
	Header           http.Header
}

// Client opens invocation streams against a websocket endpoint.
type Client struct {
	url    string
	opts   ClientOptions
	dialer *websocket.Dialer
}

// NewClient creates a client for url (ws:// or wss://).
func NewClient(url string, optFns ...func(o *ClientOptions)) *Client {
	opts := ClientOptions{
		Codec:            transport.JSON,
		HandshakeTimeout: 10 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Client{
		url:  url,
		opts: opts,
		dialer: &websocket.Dialer{
			HandshakeTimeout: opts.HandshakeTimeout,
			Subprotocols:     []string{Subprotocol(opts.Codec)},
			Proxy:            http.ProxyFromEnvironment,
		},
	}
}

// Address returns the endpoint URL.
func (c *Client) Address() string { return c.url }

// Open dials the endpoint and sends req. The stream is closed when ctx is done.
func (c *Client) Open(ctx context.Context, req core.Request) (transport.Stream, error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.url, c.opts.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("ws: dial %s: %w (status %d)", c.url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("ws: dial %s: %w", c.url, err)
	}

	codec := codecForSubprotocol(conn.Subprotocol())

	data, err := codec.Marshal(transport.RequestFrame(req))
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.WriteMessage(messageType(codec), data); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ws: send request: %w", err)
	}

	s := &stream{conn: conn, codec: codec, closeCh: make(chan struct{})}
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.closeCh:
		}
	}()

	return s, nil
}

type stream struct {
	conn      *websocket.Conn
	codec     transport.Codec
	closeOnce sync.Once
	closeCh   chan struct{}
}

func (s *stream) Recv() (transport.Frame, error) {
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			return transport.Frame{}, io.EOF
		}
		var ce *websocket.CloseError
		if errors.As(err, &ce) {
			return transport.Frame{}, fmt.Errorf("ws: closed by peer: %w", err)
		}
		return transport.Frame{}, err
	}

	var f transport.Frame
	if err := s.codec.Unmarshal(data, &f); err != nil {
		return transport.Frame{}, fmt.Errorf("ws: decode frame: %w", err)
	}
	return f, nil
}

func (s *stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closeCh)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = s.conn.Close()
	})
	return err
}
