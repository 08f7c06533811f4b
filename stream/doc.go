// Package stream merges the StreamItem sequences of many concurrently running
// producers into one consumer-facing sequence.
//
// Ordering guarantees:
//   - items of one producer (one namespace path) leave the multiplexer in the
//     order that producer sent them
//   - producers are served fairly: every blocked sender is queued by the
//     output channel in arrival order, so no producer can starve another
//   - nothing is guaranteed about the relative order of items from different
//     producers beyond fairness
package stream
