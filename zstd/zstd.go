// Package zstd compresses the payloads of another codec or chain.
//
// The wrapped payload, metadata included, is marshaled as a Temporal
// Payload message and compressed into a binary/zstd payload. Decoding
// reverses this and hands the original payload to the inner codec, so the
// inner tag never has to be registered in the outer chain.
package zstd

import (
	"fmt"
	"reflect"

	"github.com/klauspost/compress/zstd"
	"github.com/zoobzio/parcel"
	commonpb "go.temporal.io/api/common/v1"
	"google.golang.org/protobuf/proto"
)

// Encoding is the payload tag written by this codec.
const Encoding = "binary/zstd"

// maxDecodedSize bounds decompression of a single payload.
const maxDecodedSize = 64 << 20

// Inner is the codec or chain being compressed. Both parcel.Codec and
// *parcel.Chain satisfy it.
type Inner interface {
	Encode(value any) (*parcel.Payload, error)
	Decode(p *parcel.Payload, valuePtr any) error
}

// encoder and decoder are shared; both are safe for concurrent use.
var (
	encoder *zstd.Encoder
	decoder *zstd.Decoder
)

func init() {
	var err error
	encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("zstd: encoder initialization failed: " + err.Error())
	}
	decoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecodedSize))
	if err != nil {
		panic("zstd: decoder initialization failed: " + err.Error())
	}
}

// Option configures a compressing codec.
type Option func(*codec)

// WithMinSize declines values whose inner payload is smaller than n bytes,
// leaving them to the next codec in the chain.
func WithMinSize(n int) Option {
	return func(c *codec) { c.minSize = n }
}

type codec struct {
	inner   Inner
	minSize int
}

// Wrap returns a binary/zstd codec over inner. It declines whatever inner
// declines.
func Wrap(inner Inner, opts ...Option) parcel.Codec {
	c := &codec{inner: inner}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *codec) Encoding() string { return Encoding }

func (c *codec) Encode(value any) (*parcel.Payload, error) {
	p, err := c.inner.Encode(value)
	if err != nil || p == nil {
		return nil, err
	}
	if p.Len() < c.minSize {
		return nil, nil
	}

	raw, err := proto.Marshal(p.Proto())
	if err != nil {
		return nil, &parcel.SerializationError{Encoding: Encoding, Type: reflect.TypeOf(value), Cause: err}
	}
	return parcel.NewPayload(Encoding, encoder.EncodeAll(raw, nil), nil), nil
}

func (c *codec) Decode(p *parcel.Payload, valuePtr any) error {
	fail := func(err error) error {
		return &parcel.DeserializationError{Encoding: Encoding, Target: reflect.TypeOf(valuePtr), Payload: p, Cause: err}
	}
	if p.IsEmpty() {
		return fail(fmt.Errorf("empty %s payload", Encoding))
	}

	raw, err := decoder.DecodeAll(p.Data(), nil)
	if err != nil {
		return fail(fmt.Errorf("decompress: %w", err))
	}
	pb := &commonpb.Payload{}
	if err := proto.Unmarshal(raw, pb); err != nil {
		return fail(fmt.Errorf("inner payload: %w", err))
	}
	inner := parcel.PayloadFromProto(pb)
	if ic, ok := c.inner.(parcel.Codec); ok && inner.Encoding() != ic.Encoding() {
		return &parcel.UnknownEncodingError{Encoding: inner.Encoding()}
	}
	return c.inner.Decode(inner, valuePtr)
}
