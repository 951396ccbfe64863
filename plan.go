package parcel

import (
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/zoobzio/sentinel"
)

// TagKey is the struct tag read by SealedJSON: `parcel:"encrypt"`.
const TagKey = "parcel"

// TagEncrypt marks a field for field-level encryption.
const TagEncrypt = "encrypt"

// Wildcard is the path segment matching every element of a JSON array or
// every member of a JSON object.
const Wildcard = "*"

var (
	jsonMarshalerType = reflect.TypeFor[json.Marshaler]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
)

func init() {
	// Register the parcel tag with sentinel
	sentinel.Tag(TagKey)
}

// sealPlan lists the JSON paths to encrypt for one type.
type sealPlan struct {
	typeName string
	paths    [][]string
}

// Register scans T ahead of first use so tag errors surface at startup
// and sentinel metadata is available for nested lookups. T must be a struct.
func Register[T any]() error {
	rt := reflect.TypeFor[T]()
	if rt.Kind() != reflect.Struct {
		return fmt.Errorf("%w: Register requires a struct type, got %s", ErrInvalidTag, rt)
	}
	sentinel.Scan[T]()
	_, err := planFor(rt)
	return err
}

// SealedPaths returns the dotted JSON paths SealedJSON encrypts for t.
func SealedPaths(t reflect.Type) ([]string, error) {
	plan, err := planFor(t)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(plan.paths))
	for i, p := range plan.paths {
		out[i] = strings.Join(p, ".")
	}
	return out, nil
}

// buildPlan creates the seal plan for t by scanning struct tags.
func buildPlan(t reflect.Type) (*sealPlan, error) {
	plan := &sealPlan{typeName: t.String()}
	if t.Kind() != reflect.Struct {
		return plan, nil
	}

	spec := scanType(t)
	if spec == nil {
		return plan, nil
	}
	w := &planWalk{plan: plan, onPath: map[reflect.Type]bool{t: true}, cyclic: map[reflect.Type]bool{}}
	if err := w.walk(t, *spec, nil); err != nil {
		return nil, err
	}
	if err := w.check(t, 0); err != nil {
		return nil, err
	}
	return plan, nil
}

// planWalk collects tagged paths for one root type. onPath holds the struct
// types on the current descent; cyclic records those reached again from
// below themselves.
type planWalk struct {
	plan   *sealPlan
	onPath map[reflect.Type]bool
	cyclic map[reflect.Type]bool
}

// check rejects a struct whose walk produced paths (beyond before) that
// cannot be trusted to cover every tagged value in its JSON.
func (w *planWalk) check(rt reflect.Type, before int) error {
	if len(w.plan.paths) == before {
		return nil
	}
	if w.cyclic[rt] {
		return fmt.Errorf("%w: recursive type %s carries sealed fields; seal the whole document instead", ErrInvalidTag, rt)
	}
	if customJSON(rt) {
		return fmt.Errorf("%w: %s marshals its own JSON and cannot carry sealed fields; implement SealedFielder", ErrInvalidTag, rt)
	}
	return nil
}

// walk visits fields and nested structs, recording tagged paths.
func (w *planWalk) walk(rt reflect.Type, spec sentinel.Metadata, prefix []string) error {
	for _, field := range spec.Fields {
		sf := rt.FieldByIndex(field.Index)
		name, ok := jsonName(sf)
		if !ok {
			continue
		}
		flatten := sf.Anonymous && !hasJSONName(sf)

		fullPath := prefix
		if !flatten {
			fullPath = append(slices.Clone(prefix), name)
		}

		val, tagged := field.Tags[TagKey]
		if !tagged {
			val, tagged = sf.Tag.Lookup(TagKey)
		}
		if tagged {
			if val != TagEncrypt {
				return fmt.Errorf("%w: %s:%q on field %s.%s", ErrInvalidTag, TagKey, val, rt.Name(), sf.Name)
			}
			if flatten {
				return fmt.Errorf("%w: embedded field %s.%s cannot be sealed without a json name", ErrInvalidTag, rt.Name(), sf.Name)
			}
			w.plan.paths = append(w.plan.paths, fullPath)
			continue
		}

		nested, segs := elemStruct(sf.Type)
		if nested == nil {
			continue
		}
		if w.onPath[nested] {
			w.cyclic[nested] = true
			continue
		}

		nestedSpec := scanType(nested)
		if nestedSpec == nil {
			continue
		}
		before := len(w.plan.paths)
		w.onPath[nested] = true
		err := w.walk(nested, *nestedSpec, slices.Concat(fullPath, segs))
		delete(w.onPath, nested)
		if err != nil {
			return err
		}
		if err := w.check(nested, before); err != nil {
			return err
		}
	}

	return nil
}

// scanType returns sentinel metadata for rt, scanning by reflection when
// the type was never registered with sentinel.
func scanType(rt reflect.Type) *sentinel.Metadata {
	if spec, ok := sentinel.Lookup(rt.String()); ok {
		return &spec
	}

	if rt.Kind() != reflect.Struct {
		return nil
	}

	spec := sentinel.Metadata{
		TypeName:    rt.Name(),
		PackageName: rt.PkgPath(),
		Fields:      make([]sentinel.FieldMetadata, 0, rt.NumField()),
	}

	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() && !(sf.Anonymous && sf.Type.Kind() == reflect.Struct) {
			continue
		}

		fm := sentinel.FieldMetadata{
			Name:        sf.Name,
			Type:        sf.Type.String(),
			ReflectType: sf.Type,
			Index:       sf.Index,
			Tags:        parseParcelTags(sf.Tag),
		}

		switch sf.Type.Kind() {
		case reflect.Struct:
			fm.Kind = sentinel.KindStruct
		case reflect.Ptr:
			fm.Kind = sentinel.KindPointer
		case reflect.Slice, reflect.Array:
			fm.Kind = sentinel.KindSlice
		case reflect.Map:
			fm.Kind = sentinel.KindMap
		case reflect.Interface:
			fm.Kind = sentinel.KindInterface
		default:
			fm.Kind = sentinel.KindScalar
		}

		spec.Fields = append(spec.Fields, fm)
	}

	return &spec
}

// elemStruct unwraps pointers, slices, arrays and maps down to a struct
// type, returning one Wildcard segment per slice, array or map level.
// Byte slices encode as base64 strings and are not descended.
func elemStruct(t reflect.Type) (reflect.Type, []string) {
	var segs []string
	for {
		switch t.Kind() {
		case reflect.Pointer:
			t = t.Elem()
		case reflect.Slice, reflect.Array:
			if t.Elem().Kind() == reflect.Uint8 {
				return nil, nil
			}
			segs = append(segs, Wildcard)
			t = t.Elem()
		case reflect.Map:
			segs = append(segs, Wildcard)
			t = t.Elem()
		case reflect.Struct:
			return t, segs
		default:
			return nil, nil
		}
	}
}

// customJSON reports whether t (or *t) replaces the encoding/json rendering
// of its fields, in which case tagged paths cannot be located in the output.
func customJSON(t reflect.Type) bool {
	pt := reflect.PointerTo(t)
	return t.Implements(jsonMarshalerType) || pt.Implements(jsonMarshalerType) ||
		t.Implements(textMarshalerType) || pt.Implements(textMarshalerType)
}

// parseParcelTags extracts the parcel tag from a struct tag.
func parseParcelTags(tag reflect.StructTag) map[string]string {
	tags := make(map[string]string, 1)
	if val, ok := tag.Lookup(TagKey); ok {
		tags[TagKey] = val
	}
	return tags
}

// jsonName returns the member name encoding/json uses for sf.
// ok is false when the field is omitted from JSON.
func jsonName(sf reflect.StructField) (string, bool) {
	tag := sf.Tag.Get("json")
	if tag == "-" {
		return "", false
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		name = sf.Name
	}
	return name, true
}

func hasJSONName(sf reflect.StructField) bool {
	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	return name != "" && name != "-"
}

// splitPaths converts dotted paths into segments, dropping empty ones.
func splitPaths(dotted []string) [][]string {
	out := make([][]string, 0, len(dotted))
	for _, d := range dotted {
		if d == "" {
			continue
		}
		out = append(out, strings.Split(d, "."))
	}
	return out
}
