package parcel

import (
	"errors"
	"testing"

	commonpb "go.temporal.io/api/common/v1"
)

func TestConverter_ToFromPayload(t *testing.T) {
	conv := NewConverter(MustChain(Null(), Bytes(), ProtoJSON(), testSealed(t, testKeyring(t, "k1"))))

	pb, err := conv.ToPayload(testSignup())
	if err != nil {
		t.Fatalf("ToPayload() error: %v", err)
	}
	if string(pb.GetMetadata()[MetadataEncoding]) != EncodingJSON {
		t.Errorf("encoding = %q", pb.GetMetadata()[MetadataEncoding])
	}

	var got sealedSignup
	if err := conv.FromPayload(pb, &got); err != nil {
		t.Fatalf("FromPayload() error: %v", err)
	}
	if got != testSignup() {
		t.Errorf("FromPayload() = %+v", got)
	}
}

func TestConverter_ErrorsAreConversionErrors(t *testing.T) {
	conv := NewConverter(MustChain(Null(), Bytes()))

	_, err := conv.ToPayload(42)
	var ce *ConversionError
	if !errors.As(err, &ce) || ce.Op != "ToPayload" || ce.Index != -1 {
		t.Fatalf("ToPayload(42) error = %v, want ConversionError", err)
	}
	if !errors.Is(err, ErrNoConverter) {
		t.Error("ConversionError should unwrap to ErrNoConverter")
	}

	err = conv.FromPayload(&commonpb.Payload{Data: []byte("x")}, new(string))
	if !errors.As(err, &ce) || ce.Op != "FromPayload" || !errors.Is(err, ErrUnknownEncoding) {
		t.Errorf("FromPayload(untagged) error = %v", err)
	}

	_, err = conv.ToPayloads([]byte("ok"), 42)
	if !errors.As(err, &ce) || ce.Op != "ToPayloads" || ce.Index != 1 {
		t.Errorf("ToPayloads() error = %v, want ConversionError at index 1", err)
	}

	ps, _ := conv.ToPayloads([]byte("ok"))
	err = conv.FromPayloads(0, ps, new(string))
	if !errors.As(err, &ce) || ce.Op != "FromPayloads" || ce.Index != 0 || !errors.Is(err, ErrDeserialization) {
		t.Errorf("FromPayloads() error = %v", err)
	}
}

func TestConverter_ToPayloads(t *testing.T) {
	conv := NewConverter(MustChain(Null(), Bytes(), JSON()))

	ps, err := conv.ToPayloads()
	if err != nil || ps != nil {
		t.Errorf("ToPayloads() = %v, %v, want nil", ps, err)
	}

	ps, err = conv.ToPayloads(nil)
	if err != nil || len(ps.GetPayloads()) != 1 {
		t.Fatalf("ToPayloads(nil) = %v, %v", ps, err)
	}
	if string(ps.GetPayloads()[0].GetMetadata()[MetadataEncoding]) != EncodingNull {
		t.Error("a single nil argument is one binary/null payload")
	}
}

func TestConverter_FromPayloads_Missing(t *testing.T) {
	conv := NewConverter(MustChain(Null(), JSON()))

	s := "stale"
	if err := conv.FromPayloads(0, nil, &s); err != nil || s != "" {
		t.Errorf("FromPayloads(nil) = %q, %v", s, err)
	}

	ps, _ := conv.ToPayloads("a")
	n := 9
	if err := conv.FromPayloads(1, ps, &n); err != nil || n != 0 {
		t.Errorf("FromPayloads(1) = %d, %v", n, err)
	}
}

func TestConverter_NilChainUsesDefault(t *testing.T) {
	prev := Default()
	t.Cleanup(func() { SetDefault(prev) })

	conv := NewConverter(nil)

	pb, err := conv.ToPayload([]byte("x"))
	if err != nil || string(pb.GetMetadata()[MetadataEncoding]) != EncodingBytes {
		t.Fatalf("ToPayload() = %v, %v", pb, err)
	}

	SetDefault(MustChain(Null(), JSON()))
	pb, err = conv.ToPayload([]byte("x"))
	if err != nil || string(pb.GetMetadata()[MetadataEncoding]) != EncodingJSON {
		t.Errorf("after SetDefault, ToPayload() = %v, %v", pb, err)
	}
}
