package parcel

import (
	"bytes"
	"maps"
	"slices"

	commonpb "go.temporal.io/api/common/v1"
)

// MetadataEncoding is the reserved metadata key holding the codec tag.
const MetadataEncoding = "encoding"

// MetadataMessageType carries the full protobuf message name for proto payloads.
const MetadataMessageType = "messageType"

// Reserved encoding tags. These strings must match on the wire.
const (
	EncodingNull      = "binary/null"
	EncodingBytes     = "binary/plain"
	EncodingProtoJSON = "json/protobuf"
	EncodingProto     = "binary/protobuf"
	EncodingJSON      = "json/plain"
)

// Payload is an encoded value tagged with the codec that produced it.
// A Payload is immutable: constructors and accessors copy their inputs and outputs.
type Payload struct {
	metadata map[string][]byte
	data     []byte
}

// NewPayload builds a payload for the given encoding tag.
// Entries in extra are copied; an "encoding" entry in extra is ignored.
func NewPayload(encoding string, data []byte, extra map[string][]byte) *Payload {
	md := make(map[string][]byte, len(extra)+1)
	for k, v := range extra {
		md[k] = bytes.Clone(v)
	}
	md[MetadataEncoding] = []byte(encoding)

	return &Payload{
		metadata: md,
		data:     bytes.Clone(data),
	}
}

// Encoding returns the codec tag, or "" when the payload carries none.
func (p *Payload) Encoding() string {
	if p == nil {
		return ""
	}
	return string(p.metadata[MetadataEncoding])
}

// Metadata returns a copy of the metadata value stored under key.
func (p *Payload) Metadata(key string) ([]byte, bool) {
	if p == nil {
		return nil, false
	}
	v, ok := p.metadata[key]
	if !ok {
		return nil, false
	}
	return bytes.Clone(v), true
}

// MetadataKeys returns the metadata keys in sorted order.
func (p *Payload) MetadataKeys() []string {
	if p == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(p.metadata))
}

// Data returns a copy of the encoded bytes.
func (p *Payload) Data() []byte {
	if p == nil {
		return nil
	}
	return bytes.Clone(p.data)
}

// Len returns the size of the encoded bytes.
func (p *Payload) Len() int {
	if p == nil {
		return 0
	}
	return len(p.data)
}

// IsEmpty reports whether the payload has no data.
func (p *Payload) IsEmpty() bool {
	return p.Len() == 0
}

// Proto converts the payload to its Temporal wire representation.
func (p *Payload) Proto() *commonpb.Payload {
	if p == nil {
		return nil
	}
	md := make(map[string][]byte, len(p.metadata))
	for k, v := range p.metadata {
		md[k] = bytes.Clone(v)
	}
	return &commonpb.Payload{
		Metadata: md,
		Data:     bytes.Clone(p.data),
	}
}

// PayloadFromProto copies a Temporal payload into a Payload.
// Unlike NewPayload it preserves a missing encoding entry so that decode can report it.
func PayloadFromProto(pb *commonpb.Payload) *Payload {
	if pb == nil {
		return nil
	}
	md := make(map[string][]byte, len(pb.GetMetadata()))
	for k, v := range pb.GetMetadata() {
		md[k] = bytes.Clone(v)
	}
	return &Payload{
		metadata: md,
		data:     bytes.Clone(pb.GetData()),
	}
}

// Payloads is an ordered sequence of payloads; index i holds argument i.
type Payloads []*Payload

// At returns the payload at index i, or false when i is outside the sequence.
func (ps Payloads) At(i int) (*Payload, bool) {
	if i < 0 || i >= len(ps) {
		return nil, false
	}
	return ps[i], true
}

// Proto converts the sequence to its Temporal wire representation.
// A nil sequence converts to nil.
func (ps Payloads) Proto() *commonpb.Payloads {
	if ps == nil {
		return nil
	}
	out := &commonpb.Payloads{Payloads: make([]*commonpb.Payload, len(ps))}
	for i, p := range ps {
		out.Payloads[i] = p.Proto()
	}
	return out
}

// PayloadsFromProto copies a Temporal payload sequence. A nil input yields nil.
func PayloadsFromProto(pb *commonpb.Payloads) Payloads {
	if pb == nil {
		return nil
	}
	out := make(Payloads, len(pb.GetPayloads()))
	for i, p := range pb.GetPayloads() {
		out[i] = PayloadFromProto(p)
	}
	return out
}
