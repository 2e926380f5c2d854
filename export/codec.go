package export

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrUnknownCodec is returned by CodecByName for unregistered codec names.
var ErrUnknownCodec = errors.New("unknown codec")

// Codec encodes a snapshot for a sink.
type Codec interface {
	// Name is the registry key ("json", "msgpack").
	Name() string
	// ContentType is the MIME type of the encoded payload.
	ContentType() string
	// Marshal encodes v.
	Marshal(v any) ([]byte, error)
}

// JSONCodec encodes snapshots as JSON, the interchange default.
type JSONCodec struct {
	// Indent pretty-prints the output when set.
	Indent string
}

// Name implements Codec.
func (JSONCodec) Name() string { return "json" }

// ContentType implements Codec.
func (JSONCodec) ContentType() string { return "application/json" }

// Marshal implements Codec.
func (c JSONCodec) Marshal(v any) ([]byte, error) {
	if c.Indent != "" {
		return json.MarshalIndent(v, "", c.Indent)
	}
	return json.Marshal(v)
}

// MsgpackCodec encodes snapshots as msgpack, for sinks where payload size
// matters more than readability.
type MsgpackCodec struct{}

// Name implements Codec.
func (MsgpackCodec) Name() string { return "msgpack" }

// ContentType implements Codec.
func (MsgpackCodec) ContentType() string { return "application/msgpack" }

// Marshal implements Codec.
func (MsgpackCodec) Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

// CodecByName resolves a codec by its registry key.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "json", "":
		return JSONCodec{}, nil
	case "msgpack":
		return MsgpackCodec{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
}
