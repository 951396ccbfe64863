package parcel

// SealedFielder bypasses reflection when SealedJSON picks fields to encrypt.
// When a value implements it, the returned paths replace the `parcel`
// struct tags of its type.
//
// Each path is a dotted sequence of JSON member names from the document
// root (e.g., "userInfo.password"). A "*" segment matches every element of
// an array or member of an object ("creds.*.password"); a decimal segment
// selects one array element. Paths that are absent or null in the encoded
// document are skipped, and a path nested under another one is covered by
// it. A path that runs into a scalar fails the encode. Returning no paths encrypts the whole
// document, as for a type without tagged fields.
type SealedFielder interface {
	SealedFields() []string
}
