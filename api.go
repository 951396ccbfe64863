// Package parcel converts Go values to tagged payloads and back.
//
// A Chain holds an ordered list of Codecs. Encoding asks each codec in turn
// and keeps the first payload produced; decoding reads the payload's
// "encoding" metadata and dispatches to the codec registered under that tag.
//
// # Codecs
//
// Builtin codecs and their wire tags:
//
//   - Null()        - binary/null    (nil values, empty data)
//   - Bytes()       - binary/plain   ([]byte passthrough)
//   - ProtoJSON()   - json/protobuf  (proto.Message as protojson)
//   - Proto()       - binary/protobuf (proto.Message as wire bytes)
//   - JSON()        - json/plain     (encoding/json, no encryption)
//   - SealedJSON()  - json/plain     (JSON with encrypted content)
//
// Additional formats are available as subpackages: yaml, msgpack, xml,
// bson and cbor. Package zstd compresses the output of any codec or chain.
// Register permissive codecs last; they accept every value.
//
// # Sealed JSON
//
// SealedJSON encrypts either the fields tagged `parcel:"encrypt"` or, when a
// type declares none, the whole document. Tagged fields are found through
// nested structs and through the elements of slices, arrays and maps. The payload carries the id of the
// key used, so decoding tries that key first and then falls back through
// the Keyring in priority order:
//
//	type UserInfo struct {
//	    UserName string `json:"userName"`
//	    Password string `json:"password" parcel:"encrypt"`
//	}
//
//	ring, _ := parcel.NewKeyring(
//	    parcel.PasswordKey("latest", latestSecret),
//	    []parcel.KeySpec{parcel.PasswordKey("oldKey1", oldSecret)},
//	)
//	sealed, _ := parcel.SealedJSON(ring)
//	chain, _ := parcel.NewChain(parcel.Null(), parcel.Bytes(), parcel.ProtoJSON(), sealed)
//
//	p, _ := chain.Encode(info)
//	var out UserInfo
//	err := chain.Decode(p, &out)
//
// # Key Rotation
//
// Keyrings are immutable. Rotate by promoting a new key and swapping the
// keyring on the codec; payloads written under older keys keep decoding
// while those keys remain in the keyring:
//
//	next, _ := ring.Promote(parcel.PasswordKey("2025-01", newSecret))
//	sealed.Rotate(next)
//
// # Runtime Boundary
//
// Converter adapts a Chain to the Temporal payload protos and reports every
// failure as a *ConversionError.
package parcel

// Codec converts values for one wire representation identified by a tag.
// Codecs hold no per-call state and must be safe for concurrent use.
type Codec interface {
	// Encoding returns the tag written to payload metadata.
	Encoding() string

	// Encode converts value to a payload. It returns nil, nil when this
	// codec cannot represent the value, letting the chain try the next one.
	Encode(value any) (*Payload, error)

	// Decode converts p into the value pointed to by valuePtr.
	Decode(p *Payload, valuePtr any) error
}

// Serializer is a plain marshal/unmarshal pair for one format.
// FromSerializer lifts a Serializer into a Codec.
type Serializer interface {
	// Encoding returns the tag for this format (e.g., "text/yaml").
	Encoding() string

	// Marshal encodes v into bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes data into v.
	Unmarshal(data []byte, v any) error
}
