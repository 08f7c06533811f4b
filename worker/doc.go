// Package worker puts local runtimes and remote endpoints behind one
// streaming interface, so a supervisor can delegate without knowing where a
// worker runs.
//
// Every Invoke stream ends with exactly one terminal item (a completion or a
// TransportError) unless the caller cancelled, in which case the stream
// simply closes.
package worker
