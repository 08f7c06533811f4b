// Package runner is the consumer-facing entry point: it starts a root
// runtime (usually a supervisor), merges everything the hierarchy produces
// into one stream filtered by a stream mode, and manages the lifecycle of
// concurrent runs.
//
// # Responsibilities
//   - asynchronous runs with a merged, mode-filtered item stream
//   - a synchronous helper that folds a run into an Outcome
//   - cancellation by run ID, propagated to every worker
//
// Items produced after a run was cancelled are never delivered.
package runner
