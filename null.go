package parcel

import "reflect"

// nullCodec represents absent values as empty payloads.
type nullCodec struct{}

// Null returns the binary/null codec. It accepts untyped nil and nil
// pointers, maps, slices, interfaces, funcs and channels.
func Null() Codec {
	return nullCodec{}
}

func (nullCodec) Encoding() string { return EncodingNull }

func (nullCodec) Encode(value any) (*Payload, error) {
	if !isNil(value) {
		return nil, nil
	}
	return NewPayload(EncodingNull, nil, nil), nil
}

func (nullCodec) Decode(p *Payload, valuePtr any) error {
	if err := setZero(valuePtr); err != nil {
		return newDeserializationError(EncodingNull, p, valuePtr, err)
	}
	return nil
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
