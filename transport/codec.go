package transport

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec encodes frames for a transport.
type Codec interface {
	Name() string
	Marshal(f Frame) ([]byte, error)
	Unmarshal(data []byte, f *Frame) error
	// Binary reports whether encoded frames must travel as binary messages.
	Binary() bool
}

var (
	// JSON is the default, human readable codec.
	JSON Codec = jsonCodec{}
	// Msgpack is the compact binary codec.
	Msgpack Codec = msgpackCodec{}
)

// Codecs lists the available codecs, default first.
func Codecs() []Codec { return []Codec{JSON, Msgpack} }

// CodecByName resolves a codec name ("json", "msgpack"). Empty selects JSON.
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return JSON, nil
	case "msgpack":
		return Msgpack, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

type jsonCodec struct{}

func (jsonCodec) Name() string                          { return "json" }
func (jsonCodec) Binary() bool                          { return false }
func (jsonCodec) Marshal(f Frame) ([]byte, error)       { return json.Marshal(f) }
func (jsonCodec) Unmarshal(data []byte, f *Frame) error { return json.Unmarshal(data, f) }

type msgpackCodec struct{}

func (msgpackCodec) Name() string                          { return "msgpack" }
func (msgpackCodec) Binary() bool                          { return true }
func (msgpackCodec) Marshal(f Frame) ([]byte, error)       { return msgpack.Marshal(f) }
func (msgpackCodec) Unmarshal(data []byte, f *Frame) error { return msgpack.Unmarshal(data, f) }
