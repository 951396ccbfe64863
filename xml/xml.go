// Package xml provides an XML codec.
package xml

import (
	"encoding/xml"

	"github.com/zoobzio/parcel"
)

// Encoding is the payload tag written by this codec.
const Encoding = "text/xml"

// xmlSerializer implements parcel.Serializer for XML.
type xmlSerializer struct{}

// New returns an XML codec. It accepts every value encoding/xml can marshal.
func New() parcel.Codec {
	return parcel.FromSerializer(xmlSerializer{})
}

// Encoding returns the XML payload tag.
func (xmlSerializer) Encoding() string {
	return Encoding
}

// Marshal encodes v as XML.
func (xmlSerializer) Marshal(v any) ([]byte, error) {
	return xml.Marshal(v)
}

// Unmarshal decodes XML data into v.
func (xmlSerializer) Unmarshal(data []byte, v any) error {
	return xml.Unmarshal(data, v)
}
