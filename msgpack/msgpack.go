// Package msgpack provides a MessagePack codec.
package msgpack

import (
	"github.com/vmihailenco/msgpack/v5"
	"github.com/zoobzio/parcel"
)

// Encoding is the payload tag written by this codec.
const Encoding = "binary/msgpack"

// msgpackSerializer implements parcel.Serializer for MessagePack.
type msgpackSerializer struct{}

// New returns a MessagePack codec. It accepts every value.
func New() parcel.Codec {
	return parcel.FromSerializer(msgpackSerializer{})
}

// Encoding returns the MessagePack payload tag.
func (msgpackSerializer) Encoding() string {
	return Encoding
}

// Marshal encodes v as MessagePack.
func (msgpackSerializer) Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

// Unmarshal decodes MessagePack data into v.
func (msgpackSerializer) Unmarshal(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}
