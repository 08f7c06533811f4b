// Package ws carries worker invocations over a websocket connection, one
// connection per invocation. The negotiated subprotocol selects the frame
// codec: "meshstream.v1.json" (default) or "meshstream.v1.msgpack".
package ws
