// Package bson provides a BSON codec.
package bson

import (
	"github.com/zoobzio/parcel"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsonrw"
)

// Encoding is the payload tag written by this codec.
const Encoding = "binary/bson"

// bsonSerializer implements parcel.Serializer for BSON.
type bsonSerializer struct{}

// New returns a BSON codec. BSON documents are maps or structs; other
// values fail with a serialization error.
func New() parcel.Codec {
	return parcel.FromSerializer(bsonSerializer{})
}

// Encoding returns the BSON payload tag.
func (bsonSerializer) Encoding() string {
	return Encoding
}

// Marshal encodes v as BSON.
func (bsonSerializer) Marshal(v any) ([]byte, error) {
	return bson.Marshal(v)
}

// Unmarshal decodes BSON data into v. Documents landing in an untyped
// target (any, []any, map values) decode as bson.M rather than bson.D, so
// a generic value reads back as a map the way the other codecs produce.
func (bsonSerializer) Unmarshal(data []byte, v any) error {
	dec, err := bson.NewDecoder(bsonrw.NewBSONDocumentReader(data))
	if err != nil {
		return err
	}
	dec.DefaultDocumentM()
	return dec.Decode(v)
}
