// Package core provides the foundational domain types shared by every layer of
// meshstream. It defines:
//
//   - Messages and the append-only ConversationState they accumulate into
//   - Events (application telemetry emitted from inside operations)
//   - NamespacePath and StreamItem, the unit flowing through the multiplexer
//   - Sink and the ambient context binding that lets operations emit events
//   - ToolContext, the scoped execution surface handed to operations
//   - The error taxonomy (OperationError, TransportError, StepLimitExceeded,
//     ConfigurationError)
//
// The package keeps orchestration concerns (runtimes, transports, supervisors)
// out of scope and exposes small value types and interfaces only.
package core
