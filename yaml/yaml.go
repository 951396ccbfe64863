// Package yaml provides a YAML codec.
package yaml

import (
	"github.com/zoobzio/parcel"
	"gopkg.in/yaml.v3"
)

// Encoding is the payload tag written by this codec.
const Encoding = "text/yaml"

// yamlSerializer implements parcel.Serializer for YAML.
type yamlSerializer struct{}

// New returns a YAML codec. It accepts every value.
func New() parcel.Codec {
	return parcel.FromSerializer(yamlSerializer{})
}

// Encoding returns the YAML payload tag.
func (yamlSerializer) Encoding() string {
	return Encoding
}

// Marshal encodes v as YAML.
func (yamlSerializer) Marshal(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

// Unmarshal decodes YAML data into v.
func (yamlSerializer) Unmarshal(data []byte, v any) error {
	return yaml.Unmarshal(data, v)
}
