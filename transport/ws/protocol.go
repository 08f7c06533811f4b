package ws

import (
	"github.com/gorilla/websocket"

	"github.com/hupe1980/meshstream/transport"
)

const subprotocolPrefix = "meshstream.v1."

// Subprotocol returns the websocket subprotocol announcing codec.
func Subprotocol(codec transport.Codec) string { return subprotocolPrefix + codec.Name() }

func subprotocols() []string {
	out := make([]string, 0, len(transport.Codecs()))
	for _, c := range transport.Codecs() {
		out = append(out, Subprotocol(c))
	}
	return out
}

func codecForSubprotocol(p string) transport.Codec {
	for _, c := range transport.Codecs() {
		if Subprotocol(c) == p {
			return c
		}
	}
	return transport.JSON
}

func messageType(codec transport.Codec) int {
	if codec.Binary() {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}
