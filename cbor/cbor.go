// Package cbor provides a CBOR codec using Core Deterministic Encoding.
package cbor

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/zoobzio/parcel"
)

// Encoding is the payload tag written by this codec.
const Encoding = "binary/cbor"

// encMode sorts map keys and uses the smallest integer encoding, so equal
// values always encode to identical bytes.
var encMode cbor.EncMode

// decMode decodes untyped maps as map[string]any.
var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("cbor: encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("cbor: decoder initialization failed: " + err.Error())
	}
}

// cborSerializer implements parcel.Serializer for CBOR.
type cborSerializer struct{}

// New returns a CBOR codec. It accepts every value.
func New() parcel.Codec {
	return parcel.FromSerializer(cborSerializer{})
}

// Encoding returns the CBOR payload tag.
func (cborSerializer) Encoding() string {
	return Encoding
}

// Marshal encodes v as deterministic CBOR.
func (cborSerializer) Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func (cborSerializer) Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}
