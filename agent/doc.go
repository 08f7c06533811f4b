// Package agent contains the reasoning/acting runtime that drives a planner
// over a registry of operations.
//
// A Runtime is a two-state machine:
//
//	Reasoning --planner requests operation(s)--> Acting
//	Acting    --operations return-->             Reasoning (results appended)
//	Reasoning --planner answers-->               Terminal
//
// Execution Model:
//   - Run seeds a fresh ConversationState with the caller's input
//   - Every append is published as a delta StreamItem tagged with the
//     runtime's name as its NamespacePath segment
//   - Each operation call runs with its own ambient Sink bound to its
//     context, so events emitted at any call depth reach the stream in order
//     and before the call's tool-result delta
//   - A bounded step count forces termination with a truncation marker
//   - Cancellation abandons further planner steps; results of calls that
//     finish after cancellation are discarded
package agent
