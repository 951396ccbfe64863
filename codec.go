package parcel

import (
	"encoding/json"
	"errors"
	"reflect"
)

var errInvalidTarget = errors.New("target must be a non-nil pointer")

// targetValue returns the settable element behind valuePtr.
func targetValue(valuePtr any) (reflect.Value, error) {
	rv := reflect.ValueOf(valuePtr)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return reflect.Value{}, errInvalidTarget
	}
	return rv.Elem(), nil
}

// setZero resets the value behind valuePtr to its type's zero value.
func setZero(valuePtr any) error {
	elem, err := targetValue(valuePtr)
	if err != nil {
		return err
	}
	elem.SetZero()
	return nil
}

// serializerCodec accepts every value and delegates to a Serializer.
type serializerCodec struct {
	s Serializer
}

// FromSerializer returns a permissive Codec backed by s.
// Empty payload data decodes to the target's zero value.
func FromSerializer(s Serializer) Codec {
	return &serializerCodec{s: s}
}

func (c *serializerCodec) Encoding() string {
	return c.s.Encoding()
}

func (c *serializerCodec) Encode(value any) (*Payload, error) {
	data, err := c.s.Marshal(value)
	if err != nil {
		return nil, newSerializationError(c.s.Encoding(), value, err)
	}
	return NewPayload(c.s.Encoding(), data, nil), nil
}

func (c *serializerCodec) Decode(p *Payload, valuePtr any) error {
	if p.IsEmpty() {
		if err := setZero(valuePtr); err != nil {
			return newDeserializationError(c.s.Encoding(), p, valuePtr, err)
		}
		return nil
	}
	if _, err := targetValue(valuePtr); err != nil {
		return newDeserializationError(c.s.Encoding(), p, valuePtr, err)
	}
	if err := c.s.Unmarshal(p.data, valuePtr); err != nil {
		return newDeserializationError(c.s.Encoding(), p, valuePtr, err)
	}
	return nil
}

// jsonSerializer implements Serializer with encoding/json.
type jsonSerializer struct{}

func (jsonSerializer) Encoding() string { return EncodingJSON }

func (jsonSerializer) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonSerializer) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// JSON returns the non-encrypting json/plain codec.
func JSON() Codec {
	return FromSerializer(jsonSerializer{})
}
