package grpc

import (
	"fmt"

	"google.golang.org/grpc/encoding"

	"github.com/hupe1980/meshstream/transport"
)

// frameCodec adapts a transport.Codec to grpc's encoding.Codec.
type frameCodec struct {
	inner transport.Codec
}

func init() {
	for _, c := range transport.Codecs() {
		encoding.RegisterCodec(frameCodec{inner: c})
	}
}

// contentSubtype returns the grpc content-subtype registered for codec.
func contentSubtype(codec transport.Codec) string { return "meshstream-" + codec.Name() }

func (c frameCodec) Name() string { return contentSubtype(c.inner) }

func (c frameCodec) Marshal(v any) ([]byte, error) {
	f, ok := v.(*transport.Frame)
	if !ok {
		return nil, fmt.Errorf("grpc: cannot marshal %T", v)
	}
	return c.inner.Marshal(*f)
}

func (c frameCodec) Unmarshal(data []byte, v any) error {
	f, ok := v.(*transport.Frame)
	if !ok {
		return fmt.Errorf("grpc: cannot unmarshal into %T", v)
	}
	return c.inner.Unmarshal(data, f)
}
