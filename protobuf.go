package parcel

import (
	"fmt"
	"reflect"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

var protoMessageType = reflect.TypeFor[proto.Message]()

// protoCodec encodes proto.Message values, as protojson or wire bytes.
type protoCodec struct {
	encoding  string
	marshal   func(proto.Message) ([]byte, error)
	unmarshal func([]byte, proto.Message) error
}

// ProtoJSON returns the json/protobuf codec.
func ProtoJSON() Codec {
	return &protoCodec{
		encoding:  EncodingProtoJSON,
		marshal:   protojson.Marshal,
		unmarshal: protojson.UnmarshalOptions{DiscardUnknown: true}.Unmarshal,
	}
}

// Proto returns the binary/protobuf codec.
func Proto() Codec {
	return &protoCodec{
		encoding:  EncodingProto,
		marshal:   proto.Marshal,
		unmarshal: proto.Unmarshal,
	}
}

func (c *protoCodec) Encoding() string { return c.encoding }

func (c *protoCodec) Encode(value any) (*Payload, error) {
	msg, ok := value.(proto.Message)
	if !ok {
		return nil, nil
	}
	data, err := c.marshal(msg)
	if err != nil {
		return nil, newSerializationError(c.encoding, value, err)
	}
	name := string(msg.ProtoReflect().Descriptor().FullName())
	return NewPayload(c.encoding, data, map[string][]byte{
		MetadataMessageType: []byte(name),
	}), nil
}

func (c *protoCodec) Decode(p *Payload, valuePtr any) error {
	msg, assign, err := protoTarget(valuePtr)
	if err != nil {
		return newDeserializationError(c.encoding, p, valuePtr, err)
	}

	if p.IsEmpty() {
		if assign != nil {
			return setZero(valuePtr)
		}
		proto.Reset(msg)
		return nil
	}

	if want, ok := p.Metadata(MetadataMessageType); ok {
		got := string(msg.ProtoReflect().Descriptor().FullName())
		if string(want) != got {
			return newDeserializationError(c.encoding, p, valuePtr,
				fmt.Errorf("payload holds %s, target is %s", want, got))
		}
	}

	if err := c.unmarshal(p.data, msg); err != nil {
		return newDeserializationError(c.encoding, p, valuePtr, err)
	}
	if assign != nil {
		assign()
	}
	return nil
}

// protoTarget resolves valuePtr to a message to unmarshal into. When
// valuePtr points at a message pointer, a new message is allocated and
// assign stores it once decoding succeeds.
func protoTarget(valuePtr any) (proto.Message, func(), error) {
	if msg, ok := valuePtr.(proto.Message); ok {
		if reflect.ValueOf(msg).IsNil() {
			return nil, nil, errInvalidTarget
		}
		return msg, nil, nil
	}

	elem, err := targetValue(valuePtr)
	if err != nil {
		return nil, nil, err
	}
	if elem.Kind() != reflect.Pointer || !elem.Type().Implements(protoMessageType) {
		return nil, nil, fmt.Errorf("%T is not a protobuf message target", valuePtr)
	}

	fresh := reflect.New(elem.Type().Elem())
	msg := fresh.Interface().(proto.Message)
	return msg, func() { elem.Set(fresh) }, nil
}
