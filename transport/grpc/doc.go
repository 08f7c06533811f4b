// Package grpc carries worker invocations over a gRPC server-streaming call,
// /meshstream.Worker/Invoke. Frames travel through a registered codec instead
// of generated protobuf messages, so the same Frame type serves every
// transport.
package grpc
