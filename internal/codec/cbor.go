// Package codec holds the CBOR encoding shared by the manage gRPC
// service and the channel bus envelopes.
//
// Encoding uses Core Deterministic Encoding so equal values always
// produce identical bytes. The package registers itself as the "cbor"
// gRPC codec on import; clients select it with
// grpc.CallContentSubtype(codec.Name).
package codec

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"google.golang.org/grpc/encoding"
)

// Name is the gRPC content-subtype of the codec.
const Name = "cbor"

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	opts := cbor.CoreDetEncOptions()
	// Keep sub-second precision and the zone offset of timestamps.
	opts.Time = cbor.TimeRFC3339Nano
	var err error
	encMode, err = opts.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Decoding into any must produce string-keyed maps.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}

	encoding.RegisterCodec(grpcCodec{})
}

// Marshal encodes v to CBOR.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v. Unknown fields are ignored.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

type grpcCodec struct{}

func (grpcCodec) Marshal(v any) ([]byte, error) {
	data, err := Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cbor marshal %T: %w", v, err)
	}
	return data, nil
}

func (grpcCodec) Unmarshal(data []byte, v any) error {
	if err := Unmarshal(data, v); err != nil {
		return fmt.Errorf("cbor unmarshal %T: %w", v, err)
	}
	return nil
}

func (grpcCodec) Name() string { return Name }
