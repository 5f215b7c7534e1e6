package connect

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// jsonCodec marshals plain Go messages. It replaces connect's protobuf JSON
// codec, which only handles generated messages.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}

// WithJSON makes handlers and clients speak JSON messages.
func WithJSON() connect.Option {
	return connect.WithCodec(jsonCodec{})
}
