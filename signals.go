package parcel

import (
	"context"
	"strings"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for parcel events.
var (
	SignalChainCreated      = capitan.NewSignal("parcel.chain.created", "Converter chain instantiated")
	SignalDefaultReplaced   = capitan.NewSignal("parcel.default.replaced", "Process-wide default chain replaced")
	SignalEncodeComplete    = capitan.NewSignal("parcel.encode.complete", "Encode operation finished")
	SignalDecodeComplete    = capitan.NewSignal("parcel.decode.complete", "Decode operation finished")
	SignalKeyringCreated    = capitan.NewSignal("parcel.keyring.created", "Keyring loaded")
	SignalKeyringRotated    = capitan.NewSignal("parcel.keyring.rotated", "Keyring replaced by rotation")
	SignalKeyFallback       = capitan.NewSignal("parcel.key.fallback", "Decryption attempt with a key failed, trying the next")
	SignalDecryptExhausted  = capitan.NewSignal("parcel.decrypt.exhausted", "Every candidate key failed to decrypt a payload")
	SignalSealedKeyMismatch = capitan.NewSignal("parcel.key.mismatch", "Payload decrypted with a key other than the embedded one")
)

// Keys for typed event data.
var (
	KeyEncoding  = capitan.NewStringKey("encoding")
	KeyEncodings = capitan.NewStringKey("encodings")
	KeyTypeName  = capitan.NewStringKey("type_name")
	KeySize      = capitan.NewIntKey("size")
	KeyDuration  = capitan.NewDurationKey("duration")
	KeyError     = capitan.NewErrorKey("error")
	KeyKeyID     = capitan.NewStringKey("key_id")
	KeyUsedKeyID = capitan.NewStringKey("used_key_id")
	KeyKeyIDs    = capitan.NewStringKey("key_ids")
	KeyKeyCount  = capitan.NewIntKey("key_count")
	KeyAttempts  = capitan.NewIntKey("attempts")
	KeyCipher    = capitan.NewStringKey("cipher")
	KeyAction    = capitan.NewStringKey("action")
)

// emitChainCreated emits an event when a chain is built.
func emitChainCreated(ctx context.Context, encodings []string) {
	capitan.Emit(ctx, SignalChainCreated,
		KeyEncodings.Field(strings.Join(encodings, ",")),
	)
}

// emitDefaultReplaced emits an event when the default chain is swapped.
func emitDefaultReplaced(ctx context.Context, encodings []string) {
	capitan.Emit(ctx, SignalDefaultReplaced,
		KeyEncodings.Field(strings.Join(encodings, ",")),
	)
}

// emitEncodeComplete emits an event when encode finishes.
func emitEncodeComplete(ctx context.Context, encoding, typeName string, size int, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyEncoding.Field(encoding),
		KeyTypeName.Field(typeName),
		KeySize.Field(size),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalEncodeComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalEncodeComplete, fields...)
	}
}

// emitDecodeComplete emits an event when decode finishes.
func emitDecodeComplete(ctx context.Context, encoding, typeName string, size int, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyEncoding.Field(encoding),
		KeyTypeName.Field(typeName),
		KeySize.Field(size),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalDecodeComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalDecodeComplete, fields...)
	}
}

// emitKeyringCreated emits an event when a keyring is loaded.
// Only ids are emitted, never key material.
func emitKeyringCreated(ctx context.Context, r *Keyring) {
	capitan.Emit(ctx, SignalKeyringCreated,
		KeyKeyID.Field(r.Current().ID()),
		KeyKeyIDs.Field(strings.Join(r.IDs(), ",")),
		KeyKeyCount.Field(r.Len()),
		KeyCipher.Field(string(r.Cipher())),
	)
}

// emitKeyringRotated emits an event when a keyring is derived from another.
func emitKeyringRotated(ctx context.Context, r *Keyring, action, keyID string) {
	capitan.Emit(ctx, SignalKeyringRotated,
		KeyAction.Field(action),
		KeyKeyID.Field(keyID),
		KeyKeyIDs.Field(strings.Join(r.IDs(), ",")),
		KeyKeyCount.Field(r.Len()),
	)
}

// emitKeyFallback emits an event when one decryption attempt fails.
func emitKeyFallback(ctx context.Context, keyID string, attempt int, err error) {
	capitan.Emit(ctx, SignalKeyFallback,
		KeyKeyID.Field(keyID),
		KeyAttempts.Field(attempt),
		KeyError.Field(err),
	)
}

// emitKeyMismatch emits an event when a fallback key succeeded.
func emitKeyMismatch(ctx context.Context, embedded, used string, attempts int) {
	capitan.Emit(ctx, SignalSealedKeyMismatch,
		KeyKeyID.Field(embedded),
		KeyUsedKeyID.Field(used),
		KeyAttempts.Field(attempts),
	)
}

// emitDecryptExhausted emits an event when every key failed.
func emitDecryptExhausted(ctx context.Context, keyID string, attempts int, err error) {
	capitan.Error(ctx, SignalDecryptExhausted,
		KeyKeyID.Field(keyID),
		KeyAttempts.Field(attempts),
		KeyError.Field(err),
	)
}
