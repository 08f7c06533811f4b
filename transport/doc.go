// Package transport defines the wire representation shared by every remote
// worker transport: a Frame per stream item, the codecs that encode frames,
// and the server-side pump that turns an invocation into frames.
//
// A stream on the wire is:
//
//	client -> server  one "request" frame
//	server -> client  any number of "delta" and "event" frames, in the order
//	                  the remote runtime produced them
//	server -> client  exactly one "completion" or "transport_error" frame
//
// The delta/event split is kept as separate channels so the client can
// rebuild StreamItems without inspecting payloads.
package transport
