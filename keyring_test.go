package parcel

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

// cheapKDF keeps password derivation fast in tests.
var cheapKDF = Argon2Params{Time: 1, Memory: 64, Threads: 1}

// testKeyring builds a keyring from ids in priority order, each with a
// password derived from its id.
func testKeyring(t *testing.T, ids ...string) *Keyring {
	t.Helper()
	ring, err := NewKeyring(testSpec(ids[0]), testSpecs(ids[1:]...), WithKDF(cheapKDF))
	if err != nil {
		t.Fatalf("NewKeyring(%v) error: %v", ids, err)
	}
	return ring
}

func testSpec(id string) KeySpec {
	return PasswordKey(id, "password-for-"+id)
}

func testSpecs(ids ...string) []KeySpec {
	specs := make([]KeySpec, len(ids))
	for i, id := range ids {
		specs[i] = testSpec(id)
	}
	return specs
}

func TestNewKeyring_Order(t *testing.T) {
	ring := testKeyring(t, "latest", "oldKey1", "oldKey2")

	if ring.Current().ID() != "latest" {
		t.Errorf("Current() = %q, want latest", ring.Current().ID())
	}
	if want := []string{"latest", "oldKey1", "oldKey2"}; !reflect.DeepEqual(ring.IDs(), want) {
		t.Errorf("IDs() = %v, want %v", ring.IDs(), want)
	}
	if ring.Len() != 3 {
		t.Errorf("Len() = %d, want 3", ring.Len())
	}

	cands := ring.Candidates()
	for i, k := range cands {
		if k.ID() != ring.IDs()[i] {
			t.Errorf("Candidates()[%d] = %q", i, k.ID())
		}
	}
	cands[0] = Key{id: "mutated"}
	if ring.Current().ID() != "latest" {
		t.Error("Candidates() must return a copy")
	}
}

func TestNewKeyring_Errors(t *testing.T) {
	tests := []struct {
		name    string
		current KeySpec
		hist    []KeySpec
		opts    []KeyringOption
		want    error
	}{
		{"empty id", PasswordKey("", "pw"), nil, nil, ErrInvalidKey},
		{"empty secret", PasswordKey("k", ""), nil, nil, ErrInvalidKey},
		{"duplicate id", testSpec("k"), testSpecs("k"), nil, ErrDuplicateKey},
		{"bad raw key", RawKey("k", []byte("short")), nil, nil, ErrInvalidKey},
		{"bad cipher", testSpec("k"), nil, []KeyringOption{WithCipher("rot13")}, ErrInvalidKey},
		{"bad fingerprint", testSpec("k"), nil, []KeyringOption{WithFingerprint("md5")}, ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append([]KeyringOption{WithKDF(cheapKDF)}, tt.opts...)
			_, err := NewKeyring(tt.current, tt.hist, opts...)
			if !errors.Is(err, tt.want) {
				t.Errorf("NewKeyring() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewKeyring_Ciphers(t *testing.T) {
	for _, c := range []Cipher{CipherAES, CipherEnvelope, CipherXChaCha} {
		t.Run(string(c), func(t *testing.T) {
			ring, err := NewKeyring(testSpec("k"), nil, WithKDF(cheapKDF), WithCipher(c))
			if err != nil {
				t.Fatalf("NewKeyring() error: %v", err)
			}
			if ring.Cipher() != c {
				t.Errorf("Cipher() = %q, want %q", ring.Cipher(), c)
			}
			enc := ring.Current().enc
			ct, err := enc.Encrypt([]byte("x"))
			if err != nil {
				t.Fatalf("Encrypt() error: %v", err)
			}
			if pt, err := enc.Decrypt(ct); err != nil || string(pt) != "x" {
				t.Errorf("Decrypt() = %q, %v", pt, err)
			}
		})
	}
}

func TestRawKey(t *testing.T) {
	raw := []byte("32-byte-key-for-aes-256-encrypt!")
	ring, err := NewKeyring(RawKey("raw", raw), nil)
	if err != nil {
		t.Fatalf("NewKeyring() error: %v", err)
	}
	if got, want := ring.Current().Fingerprint(), SHA256Hasher().Hash(raw); got != want {
		t.Errorf("Fingerprint() = %s, want %s", got, want)
	}

	raw[0] = 'X'
	if ring.Current().Fingerprint() == SHA256Hasher().Hash(raw) {
		t.Error("RawKey must copy the caller's slice")
	}
}

func TestKeySpec_NoSecretInString(t *testing.T) {
	specs := []KeySpec{PasswordKey("k1", "hunter2"), RawKey("k2", []byte("hunter2hunter2hu"))}
	for _, s := range specs {
		for _, out := range []string{s.String(), fmt.Sprintf("%v", s), fmt.Sprintf("%+v", s), fmt.Sprintf("%#v", s)} {
			if strings.Contains(out, "hunter2") {
				t.Errorf("formatted KeySpec leaks secret: %s", out)
			}
		}
	}
}

func TestKeyring_Fingerprints(t *testing.T) {
	ring := testKeyring(t, "a", "b")
	a, _ := ring.Lookup("a")
	b, _ := ring.Lookup("b")
	if a.Fingerprint() == "" || a.Fingerprint() == b.Fingerprint() {
		t.Errorf("fingerprints a=%q b=%q", a.Fingerprint(), b.Fingerprint())
	}

	blake, err := NewKeyring(testSpec("a"), nil, WithKDF(cheapKDF), WithFingerprint(HashBLAKE3))
	if err != nil {
		t.Fatalf("NewKeyring() error: %v", err)
	}
	if blake.Current().Fingerprint() == a.Fingerprint() {
		t.Error("fingerprint algorithm should change the fingerprint")
	}
}

func TestKeyring_Lookup(t *testing.T) {
	ring := testKeyring(t, "a", "b")
	if k, ok := ring.Lookup("b"); !ok || k.ID() != "b" {
		t.Errorf("Lookup(b) = %v, %v", k, ok)
	}
	if _, ok := ring.Lookup("c"); ok {
		t.Error("Lookup(c) should miss")
	}
}

func TestKeyring_Without(t *testing.T) {
	ring := testKeyring(t, "a", "b", "c")

	next, err := ring.Without("b")
	if err != nil {
		t.Fatalf("Without(b) error: %v", err)
	}
	if want := []string{"a", "c"}; !reflect.DeepEqual(next.IDs(), want) {
		t.Errorf("IDs() = %v, want %v", next.IDs(), want)
	}
	if ring.Len() != 3 {
		t.Error("Without must not mutate the receiver")
	}
	if _, ok := next.Lookup("c"); !ok {
		t.Error("index not rebuilt after removal")
	}

	if _, err := ring.Without("a"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Without(current) error = %v, want ErrInvalidKey", err)
	}
	if _, err := ring.Without("zzz"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Without(zzz) error = %v, want ErrKeyNotFound", err)
	}
}

func TestKeyring_Promote(t *testing.T) {
	ring := testKeyring(t, "a", "b")

	next, err := ring.Promote(testSpec("c"))
	if err != nil {
		t.Fatalf("Promote(c) error: %v", err)
	}
	if want := []string{"c", "a", "b"}; !reflect.DeepEqual(next.IDs(), want) {
		t.Errorf("IDs() = %v, want %v", next.IDs(), want)
	}
	if ring.Current().ID() != "a" {
		t.Error("Promote must not mutate the receiver")
	}

	if _, err := ring.Promote(testSpec("b")); !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("Promote(existing) error = %v, want ErrDuplicateKey", err)
	}
}
