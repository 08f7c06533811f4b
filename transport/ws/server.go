package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/hupe1980/meshstream/logging"
	"github.com/hupe1980/meshstream/transport"
)

// ServerOptions configure a Server.
type ServerOptions struct {
	// WriteTimeout bounds a single frame write.
	WriteTimeout time.Duration
	// ReadTimeout bounds waiting for the request frame.
	ReadTimeout time.Duration
	Logger      logging.Logger
}

// Server exposes an Invoker as a websocket endpoint.
type Server struct {
	invoker  transport.Invoker
	upgrader websocket.Upgrader
	opts     ServerOptions
	logger   logging.Logger
}

// NewServer creates a Server for inv.
func NewServer(inv transport.Invoker, optFns ...func(o *ServerOptions)) *Server {
	opts := ServerOptions{
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  30 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Server{
		invoker: inv,
		upgrader: websocket.Upgrader{
			Subprotocols: subprotocols(),
			CheckOrigin:  func(r *http.Request) bool { return true },
		},
		opts:   opts,
		logger: logging.OrNoOp(opts.Logger),
	}
}

// Handler returns the server wrapped in OpenTelemetry HTTP instrumentation.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s, "meshstream.ws.invoke")
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws.upgrade.failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	codec := codecForSubprotocol(conn.Subprotocol())
	logger := logging.With(s.logger, "worker", s.invoker.Name(), "remote", r.RemoteAddr, "codec", codec.Name())

	_ = conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		logger.Warn("ws.request.read_failed", "error", err)
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	var req transport.Frame
	if err := codec.Unmarshal(data, &req); err != nil || req.Channel != transport.ChannelRequest || req.Request == nil {
		logger.Warn("ws.request.invalid", "error", err, "channel", req.Channel)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseUnsupportedData, "expected request frame"),
			time.Now().Add(s.opts.WriteTimeout))
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Any further read (including the peer's close) ends the invocation.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	start := time.Now()
	logger.Info("ws.invoke.start", "thread_id", req.Request.ThreadID, "messages", len(req.Request.Messages))

	frames := 0
	err = transport.Pump(ctx, s.invoker, *req.Request, func(f transport.Frame) error {
		data, err := codec.Marshal(f)
		if err != nil {
			return err
		}
		_ = conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
		frames++
		return conn.WriteMessage(messageType(codec), data)
	})

	logger.Info("ws.invoke.complete",
		"thread_id", req.Request.ThreadID,
		"frames", frames,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err != nil,
	)

	if err == nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(s.opts.WriteTimeout))
	}
}
