// Package rpccodec registers a JSON-backed gRPC codec under the "proto"
// name, the slot grpc-go normally fills with protoc-generated marshaling.
// We cannot invoke protoc in this environment, so request/response structs
// are plain Go types encoded with encoding/json instead of wire-format
// protobuf — grounded on grafana-tempo's own non-stdlib grpc codec
// (pkg/gogocodec, registered the same way in cmd/tempo/main.go) which
// swaps in a gogo-proto marshaler under the same "proto" name for the same
// reason: the default codec expects a specific message implementation the
// project doesn't want to depend on at every call site.
package rpccodec

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// Name is the codec name every ServiceDesc and DialOption in this module
// registers against, matching grpc-go's built-in "proto" slot so no
// special CallContentSubtype is needed at call sites.
const Name = "proto"

// Codec marshals gRPC messages with encoding/json.
type Codec struct{}

// NewCodec builds the JSON codec and is the constructor name
// encoding.RegisterCodec callers expect, mirroring gogocodec.NewCodec.
func NewCodec() encoding.Codec {
	return Codec{}
}

func (Codec) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("rpccodec: marshal: %w", err)
	}
	return data, nil
}

func (Codec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("rpccodec: unmarshal: %w", err)
	}
	return nil
}

func (Codec) Name() string {
	return Name
}

func init() {
	encoding.RegisterCodec(NewCodec())
}
