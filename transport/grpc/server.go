package grpc

import (
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hupe1980/meshstream/logging"
	"github.com/hupe1980/meshstream/transport"
)

const (
	serviceName = "meshstream.Worker"
	invokeName  = "Invoke"
	// InvokeMethod is the full method name of the invocation stream.
	InvokeMethod = "/" + serviceName + "/" + invokeName
)

var invokeStreamDesc = grpc.StreamDesc{
	StreamName:    invokeName,
	ServerStreams: true,
	ClientStreams: true,
}

// workerServer is the handler type of the service descriptor.
type workerServer interface {
	invoke(stream grpc.ServerStream) error
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*workerServer)(nil),
	Streams: []grpc.StreamDesc{{
		StreamName:    invokeStreamDesc.StreamName,
		ServerStreams: invokeStreamDesc.ServerStreams,
		ClientStreams: invokeStreamDesc.ClientStreams,
		Handler: func(srv any, stream grpc.ServerStream) error {
			return srv.(workerServer).invoke(stream)
		},
	}},
	Metadata: "meshstream/worker",
}

type server struct {
	invoker transport.Invoker
	logger  logging.Logger
}

// Register exposes inv on s under /meshstream.Worker/Invoke.
func Register(s *grpc.Server, inv transport.Invoker, logger logging.Logger) {
	s.RegisterService(&serviceDesc, &server{invoker: inv, logger: logging.OrNoOp(logger)})
}

func (s *server) invoke(stream grpc.ServerStream) error {
	var req transport.Frame
	if err := stream.RecvMsg(&req); err != nil {
		return err
	}
	if req.Channel != transport.ChannelRequest || req.Request == nil {
		return status.Errorf(codes.InvalidArgument, "expected request frame, got %q", req.Channel)
	}

	start := time.Now()
	s.logger.Info("grpc.invoke.start", "worker", s.invoker.Name(), "thread_id", req.Request.ThreadID)

	frames := 0
	err := transport.Pump(stream.Context(), s.invoker, *req.Request, func(f transport.Frame) error {
		frames++
		return stream.SendMsg(&f)
	})

	s.logger.Info("grpc.invoke.complete",
		"worker", s.invoker.Name(),
		"thread_id", req.Request.ThreadID,
		"frames", frames,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err != nil,
	)

	if err != nil {
		return status.FromContextError(err).Err()
	}
	return nil
}
