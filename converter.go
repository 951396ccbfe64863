package parcel

import (
	"errors"

	commonpb "go.temporal.io/api/common/v1"
)

// DataConverter is the contract an orchestration runtime uses to marshal
// function arguments and results. Implementations never block and report
// every failure as a *ConversionError.
type DataConverter interface {
	ToPayload(value any) (*commonpb.Payload, error)
	FromPayload(payload *commonpb.Payload, valuePtr any) error
	ToPayloads(values ...any) (*commonpb.Payloads, error)
	FromPayloads(index int, payloads *commonpb.Payloads, valuePtr any) error
}

// Converter adapts a Chain to DataConverter.
type Converter struct {
	chain *Chain
}

var _ DataConverter = (*Converter)(nil)

// NewConverter returns a DataConverter over chain. A nil chain resolves to
// Default() on every call, so SetDefault takes effect immediately.
func NewConverter(chain *Chain) *Converter {
	return &Converter{chain: chain}
}

func (c *Converter) resolve() *Chain {
	if c.chain != nil {
		return c.chain
	}
	return Default()
}

// ToPayload encodes a single value.
func (c *Converter) ToPayload(value any) (*commonpb.Payload, error) {
	p, err := c.resolve().Encode(value)
	if err != nil {
		return nil, &ConversionError{Op: "ToPayload", Index: -1, Err: err}
	}
	return p.Proto(), nil
}

// FromPayload decodes a single payload into valuePtr.
func (c *Converter) FromPayload(payload *commonpb.Payload, valuePtr any) error {
	if err := c.resolve().Decode(PayloadFromProto(payload), valuePtr); err != nil {
		return &ConversionError{Op: "FromPayload", Index: -1, Err: err}
	}
	return nil
}

// ToPayloads encodes positional values. No values yields nil.
func (c *Converter) ToPayloads(values ...any) (*commonpb.Payloads, error) {
	if len(values) == 0 {
		return nil, nil
	}
	ps, err := c.resolve().EncodeMany(values...)
	if err != nil {
		return nil, &ConversionError{Op: "ToPayloads", Index: elementIndex(err), Err: err}
	}
	return ps.Proto(), nil
}

// FromPayloads decodes argument index. A nil or short sequence leaves the
// zero value in valuePtr.
func (c *Converter) FromPayloads(index int, payloads *commonpb.Payloads, valuePtr any) error {
	if err := c.resolve().DecodeAt(PayloadsFromProto(payloads), index, valuePtr); err != nil {
		return &ConversionError{Op: "FromPayloads", Index: index, Err: err}
	}
	return nil
}

func elementIndex(err error) int {
	var ee *ElementError
	if errors.As(err, &ee) {
		return ee.Index
	}
	return -1
}
