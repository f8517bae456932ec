// Package grpcsrv frames the Vault & Token Service's RPC surface over
// google.golang.org/grpc. No .proto sources or generated stubs exist
// anywhere in the retrieval pack to ground codegen against (see DESIGN.md),
// so methods are registered by hand on a grpc.ServiceDesc and messages are
// plain Go structs carried by a JSON codec registered with
// google.golang.org/grpc/encoding, instead of protobuf wire encoding.
package grpcsrv

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// codecName is negotiated over the wire exactly like protobuf's "proto";
// a client and server must both register it to talk to each other, which
// this package's init does for any binary that imports it.
const codecName = "json"

// jsonCodec implements google.golang.org/grpc/encoding.Codec for the plain
// Go request/response structs in messages.go.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
