package parcel

import (
	"bytes"
	"fmt"
)

// bytesCodec passes raw bytes through unchanged.
type bytesCodec struct{}

// Bytes returns the binary/plain codec for []byte values.
func Bytes() Codec {
	return bytesCodec{}
}

func (bytesCodec) Encoding() string { return EncodingBytes }

func (bytesCodec) Encode(value any) (*Payload, error) {
	b, ok := value.([]byte)
	if !ok {
		return nil, nil
	}
	return NewPayload(EncodingBytes, b, nil), nil
}

func (bytesCodec) Decode(p *Payload, valuePtr any) error {
	switch v := valuePtr.(type) {
	case *[]byte:
		if v == nil {
			break
		}
		*v = bytes.Clone(p.data)
		if *v == nil {
			*v = []byte{}
		}
		return nil
	case *any:
		if v == nil {
			break
		}
		*v = p.Data()
		return nil
	}
	return newDeserializationError(EncodingBytes, p, valuePtr, fmt.Errorf("cannot decode bytes into %T", valuePtr))
}
