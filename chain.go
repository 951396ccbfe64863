package parcel

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"time"
)

// Chain is an ordered list of codecs with a tag index for decoding.
// A Chain is immutable after construction and safe for concurrent use.
type Chain struct {
	codecs []Codec
	byTag  map[string]Codec
}

// NewChain builds a chain. Registration order decides which codec encodes
// a value, so place permissive codecs (JSON, SealedJSON, format codecs) last.
// Tags must be unique and non-empty.
func NewChain(codecs ...Codec) (*Chain, error) {
	byTag := make(map[string]Codec, len(codecs))
	for i, c := range codecs {
		if c == nil {
			return nil, fmt.Errorf("%w: codec %d is nil", ErrInvalidEncoding, i)
		}
		tag := c.Encoding()
		if tag == "" {
			return nil, fmt.Errorf("%w: codec %d (%T) has an empty tag", ErrInvalidEncoding, i, c)
		}
		if _, dup := byTag[tag]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateEncoding, tag)
		}
		byTag[tag] = c
	}

	chain := &Chain{
		codecs: slices.Clone(codecs),
		byTag:  byTag,
	}
	emitChainCreated(context.Background(), chain.Encodings())
	return chain, nil
}

// MustChain is like NewChain but panics on a configuration error.
func MustChain(codecs ...Codec) *Chain {
	c, err := NewChain(codecs...)
	if err != nil {
		panic("parcel: " + err.Error())
	}
	return c
}

// Codecs returns the registered codecs in order.
func (c *Chain) Codecs() []Codec {
	return slices.Clone(c.codecs)
}

// Encodings returns the registered tags in order.
func (c *Chain) Encodings() []string {
	tags := make([]string, len(c.codecs))
	for i, codec := range c.codecs {
		tags[i] = codec.Encoding()
	}
	return tags
}

// Codec returns the codec registered under tag.
func (c *Chain) Codec(tag string) (Codec, bool) {
	codec, ok := c.byTag[tag]
	return codec, ok
}

// Encode converts value with the first codec that accepts it.
func (c *Chain) Encode(value any) (*Payload, error) {
	start := time.Now()
	p, err := c.encode(value)
	emitEncodeComplete(context.Background(), p.Encoding(), typeString(reflect.TypeOf(value)),
		p.Len(), time.Since(start), err)
	return p, err
}

func (c *Chain) encode(value any) (*Payload, error) {
	for _, codec := range c.codecs {
		p, err := codec.Encode(value)
		if err != nil {
			return nil, err
		}
		if p != nil {
			return p, nil
		}
	}
	return nil, &NoConverterError{Type: reflect.TypeOf(value)}
}

// EncodeMany encodes each value independently. No values yields an empty,
// non-nil sequence. A failure is reported as an *ElementError.
func (c *Chain) EncodeMany(values ...any) (Payloads, error) {
	out := make(Payloads, 0, len(values))
	for i, v := range values {
		p, err := c.Encode(v)
		if err != nil {
			return nil, &ElementError{Index: i, Err: err}
		}
		out = append(out, p)
	}
	return out, nil
}

// Decode converts p into valuePtr using the codec named by p's encoding tag.
func (c *Chain) Decode(p *Payload, valuePtr any) error {
	start := time.Now()
	err := c.decode(p, valuePtr)
	emitDecodeComplete(context.Background(), p.Encoding(), typeString(reflect.TypeOf(valuePtr)),
		p.Len(), time.Since(start), err)
	return err
}

func (c *Chain) decode(p *Payload, valuePtr any) error {
	tag := p.Encoding()
	codec, ok := c.byTag[tag]
	if !ok {
		return &UnknownEncodingError{Encoding: tag}
	}
	return codec.Decode(p, valuePtr)
}

// DecodeAt decodes element index of ps. An index past the end leaves the
// zero value in valuePtr and returns nil, so trailing arguments can be added
// to a signature without breaking older callers.
func (c *Chain) DecodeAt(ps Payloads, index int, valuePtr any) error {
	if index < 0 {
		return &ElementError{Index: index, Err: errors.New("negative index")}
	}
	p, ok := ps.At(index)
	if !ok {
		if err := setZero(valuePtr); err != nil {
			return &ElementError{Index: index, Err: newDeserializationError("", nil, valuePtr, err)}
		}
		return nil
	}
	if err := c.Decode(p, valuePtr); err != nil {
		return &ElementError{Index: index, Err: err}
	}
	return nil
}
