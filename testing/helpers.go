// Package parceltest provides test utilities for parcel.
package parceltest

import (
	"testing"

	"github.com/zoobzio/parcel"
)

// Key ids used by TestKeyring, newest first.
const (
	KeyLatest = "latest"
	KeyOld1   = "oldKey1"
	KeyOld2   = "oldKey2"
)

// TestKey returns a valid 32-byte AES key for testing.
func TestKey(tb testing.TB) []byte {
	tb.Helper()
	return []byte("32-byte-key-for-aes-256-encrypt!")
}

// TestEncryptor returns an AES encryptor configured for testing.
func TestEncryptor(tb testing.TB) parcel.Encryptor {
	tb.Helper()
	enc, err := parcel.AES(TestKey(tb))
	if err != nil {
		tb.Fatalf("AES() error: %v", err)
	}
	return enc
}

// CheapKDF returns Argon2id parameters fast enough for unit tests.
// Never use them outside tests.
func CheapKDF() parcel.Argon2Params {
	return parcel.Argon2Params{Time: 1, Memory: 64, Threads: 1}
}

// TestKeyring returns a keyring with current key "latest" and historical
// keys "oldKey1" and "oldKey2", derived from fixed passwords.
func TestKeyring(tb testing.TB, opts ...parcel.KeyringOption) *parcel.Keyring {
	tb.Helper()
	return NewKeyring(tb, []string{KeyLatest, KeyOld1, KeyOld2}, opts...)
}

// NewKeyring builds a keyring from ids in priority order. Each key's
// password is derived from its id, so two keyrings sharing an id can
// decrypt each other's payloads.
func NewKeyring(tb testing.TB, ids []string, opts ...parcel.KeyringOption) *parcel.Keyring {
	tb.Helper()
	if len(ids) == 0 {
		tb.Fatal("NewKeyring requires at least one id")
	}
	specs := make([]parcel.KeySpec, len(ids))
	for i, id := range ids {
		specs[i] = parcel.PasswordKey(id, "password-for-"+id)
	}
	opts = append([]parcel.KeyringOption{parcel.WithKDF(CheapKDF())}, opts...)
	ring, err := parcel.NewKeyring(specs[0], specs[1:], opts...)
	if err != nil {
		tb.Fatalf("NewKeyring(%v) error: %v", ids, err)
	}
	return ring
}

// RawKeyring returns a single-key keyring over TestKey, skipping key
// derivation. The key id is "raw".
func RawKeyring(tb testing.TB, opts ...parcel.KeyringOption) *parcel.Keyring {
	tb.Helper()
	ring, err := parcel.NewKeyring(parcel.RawKey("raw", TestKey(tb)), nil, opts...)
	if err != nil {
		tb.Fatalf("NewKeyring(raw) error: %v", err)
	}
	return ring
}

// SealedChain returns the builtin codecs followed by SealedJSON over ring.
func SealedChain(tb testing.TB, ring *parcel.Keyring, opts ...parcel.SealOption) *parcel.Chain {
	tb.Helper()
	sealed, err := parcel.SealedJSON(ring, opts...)
	if err != nil {
		tb.Fatalf("SealedJSON() error: %v", err)
	}
	chain, err := parcel.NewChain(parcel.Null(), parcel.Bytes(), parcel.ProtoJSON(), sealed)
	if err != nil {
		tb.Fatalf("NewChain() error: %v", err)
	}
	return chain
}

// UserInfo holds signup details. Password is sealed field-by-field.
type UserInfo struct {
	UserName string `json:"userName"`
	Password string `json:"password" parcel:"encrypt"`
	Address  string `json:"address"`
}

// Signup is the workflow argument used in end-to-end tests.
type Signup struct {
	ID       string   `json:"id"`
	UserInfo UserInfo `json:"userInfo"`
}

// TestSignup returns a populated Signup.
func TestSignup() Signup {
	return Signup{
		ID: "s1",
		UserInfo: UserInfo{
			UserName: "user1",
			Password: "Wow!123",
			Address:  "Chennai TN",
		},
	}
}

// SimpleUser is a test type with no sealed fields.
type SimpleUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
