package parcel

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for these error types.
var (
	// ErrNoConverter indicates no registered codec accepted a value.
	ErrNoConverter = errors.New("no converter")

	// ErrUnknownEncoding indicates a payload tag with no matching codec.
	ErrUnknownEncoding = errors.New("unknown encoding")

	// ErrDeserialization indicates payload bytes did not parse as the target type.
	ErrDeserialization = errors.New("deserialization failed")

	// ErrSerialization indicates a codec accepted a value but failed to encode it.
	ErrSerialization = errors.New("serialization failed")

	// ErrDecryptionExhausted indicates every candidate key failed to decrypt a payload.
	ErrDecryptionExhausted = errors.New("decryption exhausted")

	// ErrInvalidKey indicates key material or a key id is unusable.
	ErrInvalidKey = errors.New("invalid key")

	// ErrKeyNotFound indicates a key id absent from the keyring.
	ErrKeyNotFound = errors.New("key not found")

	// ErrDuplicateKey indicates a key id registered twice.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrDuplicateEncoding indicates two codecs registered under one tag.
	ErrDuplicateEncoding = errors.New("duplicate encoding")

	// ErrInvalidEncoding indicates a codec with an empty tag.
	ErrInvalidEncoding = errors.New("invalid encoding")

	// ErrInvalidTag indicates a parcel struct tag has an invalid value.
	ErrInvalidTag = errors.New("invalid tag")
)

// NoConverterError reports a value that every codec in a chain declined.
type NoConverterError struct {
	Type reflect.Type // Runtime type of the rejected value (nil for untyped nil)
}

func (e *NoConverterError) Error() string {
	return fmt.Sprintf("%s for type %s", ErrNoConverter.Error(), typeString(e.Type))
}

func (e *NoConverterError) Unwrap() error {
	return ErrNoConverter
}

// UnknownEncodingError reports a payload whose tag is missing or unmapped.
type UnknownEncodingError struct {
	Encoding string // Tag found in the payload ("" when absent)
}

func (e *UnknownEncodingError) Error() string {
	if e.Encoding == "" {
		return ErrUnknownEncoding.Error() + ": payload has no encoding metadata"
	}
	return fmt.Sprintf("%s %q", ErrUnknownEncoding.Error(), e.Encoding)
}

func (e *UnknownEncodingError) Unwrap() error {
	return ErrUnknownEncoding
}

// DeserializationError reports bytes that could not be decoded into the target type.
// The payload is attached for diagnostics.
type DeserializationError struct {
	Encoding string       // Codec tag that attempted the decode
	Target   reflect.Type // Type of the value pointer passed to decode
	Payload  *Payload     // Payload being decoded
	Cause    error        // Original error from the decoder
}

func (e *DeserializationError) Error() string {
	msg := fmt.Sprintf("%s: %s into %s", ErrDeserialization.Error(), e.Encoding, typeString(e.Target))
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *DeserializationError) Unwrap() error {
	return ErrDeserialization
}

// SerializationError reports a codec that accepted a value but could not encode it.
type SerializationError struct {
	Encoding string
	Type     reflect.Type
	Cause    error
}

func (e *SerializationError) Error() string {
	msg := fmt.Sprintf("%s: %s from %s", ErrSerialization.Error(), e.Encoding, typeString(e.Type))
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *SerializationError) Unwrap() error {
	return ErrSerialization
}

// DecryptionExhaustedError reports that no candidate key could decrypt a payload.
// It is distinct from DeserializationError: the structure was readable, the key was not available.
type DecryptionExhaustedError struct {
	KeyID    string  // Key id embedded in the payload
	Attempts int     // Number of keys tried
	Causes   []error // One cause per attempt, in attempt order
}

func (e *DecryptionExhaustedError) Error() string {
	msg := fmt.Sprintf("%s: payload key %q, %d key(s) tried", ErrDecryptionExhausted.Error(), e.KeyID, e.Attempts)
	if len(e.Causes) > 0 {
		return msg + ": last error: " + e.Causes[len(e.Causes)-1].Error()
	}
	return msg
}

func (e *DecryptionExhaustedError) Unwrap() error {
	return ErrDecryptionExhausted
}

// ElementError adds positional context to a failure on one element of a sequence.
type ElementError struct {
	Index int
	Err   error
}

func (e *ElementError) Error() string {
	return fmt.Sprintf("element %d: %v", e.Index, e.Err)
}

func (e *ElementError) Unwrap() error {
	return e.Err
}

// ConversionError is the single error type returned across the DataConverter boundary.
// It wraps one of the errors above.
type ConversionError struct {
	Op    string // ToPayload, FromPayload, ToPayloads, FromPayloads
	Index int    // Argument position, -1 when not positional
	Err   error
}

func (e *ConversionError) Error() string {
	var b strings.Builder
	b.WriteString("parcel: ")
	b.WriteString(e.Op)
	if e.Index >= 0 {
		fmt.Fprintf(&b, " [%d]", e.Index)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// newDeserializationError creates a DeserializationError for a failed decode.
func newDeserializationError(encoding string, p *Payload, valuePtr any, cause error) error {
	return &DeserializationError{
		Encoding: encoding,
		Target:   reflect.TypeOf(valuePtr),
		Payload:  p,
		Cause:    cause,
	}
}

// newSerializationError creates a SerializationError for a failed encode.
func newSerializationError(encoding string, value any, cause error) error {
	return &SerializationError{
		Encoding: encoding,
		Type:     reflect.TypeOf(value),
		Cause:    cause,
	}
}

func typeString(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
