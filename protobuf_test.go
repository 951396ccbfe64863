package parcel

import (
	"errors"
	"testing"

	commonpb "go.temporal.io/api/common/v1"
	"google.golang.org/protobuf/proto"
)

func TestProtoCodecs_RoundTrip(t *testing.T) {
	msg := &commonpb.WorkflowExecution{WorkflowId: "wf-1", RunId: "run-1"}

	for _, c := range []Codec{ProtoJSON(), Proto()} {
		t.Run(c.Encoding(), func(t *testing.T) {
			p, err := c.Encode(msg)
			if err != nil || p == nil {
				t.Fatalf("Encode() = %v, %v", p, err)
			}
			if p.Encoding() != c.Encoding() {
				t.Errorf("Encoding() = %q, want %q", p.Encoding(), c.Encoding())
			}
			if mt, _ := p.Metadata(MetadataMessageType); string(mt) != "temporal.api.common.v1.WorkflowExecution" {
				t.Errorf("messageType = %q", mt)
			}

			// Decode into a message.
			got := &commonpb.WorkflowExecution{}
			if err := c.Decode(p, got); err != nil {
				t.Fatalf("Decode(msg) error: %v", err)
			}
			if !proto.Equal(got, msg) {
				t.Errorf("Decode(msg) = %v, want %v", got, msg)
			}

			// Decode into a pointer to a message pointer.
			var ptr *commonpb.WorkflowExecution
			if err := c.Decode(p, &ptr); err != nil {
				t.Fatalf("Decode(&ptr) error: %v", err)
			}
			if !proto.Equal(ptr, msg) {
				t.Errorf("Decode(&ptr) = %v, want %v", ptr, msg)
			}
		})
	}
}

func TestProtoJSON_Tag(t *testing.T) {
	if ProtoJSON().Encoding() != "json/protobuf" {
		t.Errorf("Encoding() = %q", ProtoJSON().Encoding())
	}
	if Proto().Encoding() != "binary/protobuf" {
		t.Errorf("Encoding() = %q", Proto().Encoding())
	}
}

func TestProtoJSON_DeclinesNonMessages(t *testing.T) {
	for _, v := range []any{nil, "s", 1, struct{}{}, []byte("x")} {
		p, err := ProtoJSON().Encode(v)
		if err != nil || p != nil {
			t.Errorf("Encode(%T) = %v, %v, want decline", v, p, err)
		}
	}
}

func TestProtoJSON_TypeMismatch(t *testing.T) {
	p, err := ProtoJSON().Encode(&commonpb.Payload{Data: []byte("x")})
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	err = ProtoJSON().Decode(p, &commonpb.WorkflowExecution{})
	if !errors.Is(err, ErrDeserialization) {
		t.Errorf("Decode(other message) error = %v, want ErrDeserialization", err)
	}
}

func TestProtoJSON_BadTargets(t *testing.T) {
	p := NewPayload(EncodingProtoJSON, []byte(`{}`), nil)

	var nilMsg *commonpb.Payload
	tests := []struct {
		name   string
		target any
	}{
		{"nil", nil},
		{"nil message", nilMsg},
		{"not a message", new(string)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ProtoJSON().Decode(p, tt.target); !errors.Is(err, ErrDeserialization) {
				t.Errorf("Decode() error = %v, want ErrDeserialization", err)
			}
		})
	}
}

func TestProtoJSON_Malformed(t *testing.T) {
	p := NewPayload(EncodingProtoJSON, []byte(`{"workflowId":`), nil)
	if err := ProtoJSON().Decode(p, &commonpb.WorkflowExecution{}); !errors.Is(err, ErrDeserialization) {
		t.Errorf("Decode(malformed) error = %v, want ErrDeserialization", err)
	}
}

func TestProtoJSON_DiscardUnknown(t *testing.T) {
	p := NewPayload(EncodingProtoJSON, []byte(`{"workflowId":"a","addedLater":true}`), nil)
	got := &commonpb.WorkflowExecution{}
	if err := ProtoJSON().Decode(p, got); err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if got.GetWorkflowId() != "a" {
		t.Errorf("WorkflowId = %q", got.GetWorkflowId())
	}
}

func TestProtoJSON_EmptyData(t *testing.T) {
	p := NewPayload(EncodingProtoJSON, nil, nil)

	ptr := &commonpb.WorkflowExecution{WorkflowId: "stale"}
	if err := ProtoJSON().Decode(p, &ptr); err != nil {
		t.Fatalf("Decode(&ptr) error: %v", err)
	}
	if ptr != nil {
		t.Errorf("Decode(&ptr) = %v, want nil", ptr)
	}

	msg := &commonpb.WorkflowExecution{WorkflowId: "stale"}
	if err := ProtoJSON().Decode(p, msg); err != nil {
		t.Fatalf("Decode(msg) error: %v", err)
	}
	if msg.GetWorkflowId() != "" {
		t.Errorf("Decode(msg) left %q", msg.GetWorkflowId())
	}
}
