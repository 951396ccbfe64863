package yaml

import (
	"errors"
	"testing"

	"github.com/zoobzio/parcel"
)

func TestEncoding(t *testing.T) {
	c := New()
	if c.Encoding() != "text/yaml" {
		t.Errorf("Encoding() = %q, want %q", c.Encoding(), "text/yaml")
	}
}

func TestEncodeDecode(t *testing.T) {
	c := New()

	type TestStruct struct {
		Name  string `yaml:"name"`
		Value int    `yaml:"value"`
	}

	original := TestStruct{Name: "test", Value: 42}

	p, err := c.Encode(original)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if p.Encoding() != Encoding {
		t.Errorf("payload encoding = %q, want %q", p.Encoding(), Encoding)
	}

	var restored TestStruct
	if err := c.Decode(p, &restored); err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if restored != original {
		t.Errorf("round-trip failed: got %+v, want %+v", restored, original)
	}
}

func TestEncodeNil(t *testing.T) {
	c := New()

	p, err := c.Encode(nil)
	if err != nil {
		t.Fatalf("Encode(nil) error: %v", err)
	}

	// YAML represents nil as "null\n"
	if string(p.Data()) != "null\n" {
		t.Errorf("Encode(nil) = %q, want %q", p.Data(), "null\n")
	}
}

func TestDecode_EmptyPayload(t *testing.T) {
	c := New()

	v := struct {
		Name string `yaml:"name"`
	}{Name: "stale"}

	if err := c.Decode(parcel.NewPayload(Encoding, nil, nil), &v); err != nil {
		t.Fatalf("Decode(empty) error: %v", err)
	}
	if v.Name != "" {
		t.Errorf("Decode(empty) left %q, want zero value", v.Name)
	}
}

func TestDecode_TypeMismatch(t *testing.T) {
	c := New()

	type TestStruct struct {
		Value int `yaml:"value"`
	}

	testCases := []struct {
		name  string
		input string
	}{
		{"string for int", "value: not_a_number"},
		{"array for int", "value:\n  - 1\n  - 2"},
		{"map for int", "value:\n  nested: true"},
		{"unclosed flow", "value: [1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var v TestStruct
			err := c.Decode(parcel.NewPayload(Encoding, []byte(tc.input), nil), &v)
			if !errors.Is(err, parcel.ErrDeserialization) {
				t.Errorf("Decode(%q) error = %v, want ErrDeserialization", tc.input, err)
			}
		})
	}
}

func TestDecode_NestedStructure(t *testing.T) {
	c := New()

	type Nested struct {
		Level int     `yaml:"level"`
		Child *Nested `yaml:"child"`
	}

	input := `level: 1
child:
  level: 2
  child:
    level: 3
    child: null`

	var v Nested
	if err := c.Decode(parcel.NewPayload(Encoding, []byte(input), nil), &v); err != nil {
		t.Fatalf("Decode(nested) error: %v", err)
	}
	if v.Level != 1 || v.Child == nil || v.Child.Level != 2 || v.Child.Child == nil || v.Child.Child.Level != 3 {
		t.Error("Decode(nested) did not correctly parse nested structure")
	}
}

func TestDecode_Anchors(t *testing.T) {
	c := New()

	input := `default: &default
  timeout: 30
  retries: 3
production:
  <<: *default
  timeout: 60`

	var v map[string]any
	if err := c.Decode(parcel.NewPayload(Encoding, []byte(input), nil), &v); err != nil {
		t.Fatalf("Decode(anchors) error: %v", err)
	}

	prod, ok := v["production"].(map[string]any)
	if !ok {
		t.Fatal("production key not found or wrong type")
	}
	if prod["timeout"] != 60 {
		t.Errorf("production.timeout = %v, want 60", prod["timeout"])
	}
	if prod["retries"] != 3 {
		t.Errorf("production.retries = %v, want 3", prod["retries"])
	}
}

func TestEncode_SpecialCharacters(t *testing.T) {
	c := New()

	type TestStruct struct {
		Text string `yaml:"text"`
	}

	testCases := []string{
		"colon: inside",
		"# not a comment",
		"line1\nline2",
		"unicode: 日本語",
		"'quoted'",
		"",
	}

	for _, text := range testCases {
		p, err := c.Encode(TestStruct{Text: text})
		if err != nil {
			t.Fatalf("Encode(%q) error: %v", text, err)
		}
		var restored TestStruct
		if err := c.Decode(p, &restored); err != nil {
			t.Fatalf("Decode(%q) error: %v", text, err)
		}
		if restored.Text != text {
			t.Errorf("round-trip: got %q, want %q", restored.Text, text)
		}
	}
}

func TestDecode_NilTarget(t *testing.T) {
	c := New()

	err := c.Decode(parcel.NewPayload(Encoding, []byte("a: 1"), nil), nil)
	if !errors.Is(err, parcel.ErrDeserialization) {
		t.Errorf("Decode(nil target) error = %v, want ErrDeserialization", err)
	}
}
