package parcel

import (
	"bytes"
	"context"
	"fmt"
	"slices"
)

// KeySpec describes key material to load into a keyring.
// Its String form never includes the secret.
type KeySpec struct {
	ID       string
	secret   []byte
	password bool
}

// PasswordKey describes a key derived from password with Argon2id.
func PasswordKey(id, password string) KeySpec {
	return KeySpec{ID: id, secret: []byte(password), password: true}
}

// RawKey describes a key used as-is. The key must suit the keyring's cipher.
func RawKey(id string, key []byte) KeySpec {
	return KeySpec{ID: id, secret: bytes.Clone(key)}
}

func (s KeySpec) String() string {
	if s.password {
		return fmt.Sprintf("PasswordKey(%s)", s.ID)
	}
	return fmt.Sprintf("RawKey(%s)", s.ID)
}

// GoString keeps %#v from printing the secret.
func (s KeySpec) GoString() string {
	return s.String()
}

// Key is a loaded key. It exposes its id and a fingerprint of the
// derived material; the material itself stays inside the package.
type Key struct {
	id          string
	fingerprint string
	enc         Encryptor
}

// ID returns the key identifier embedded in sealed payloads.
func (k Key) ID() string { return k.id }

// Fingerprint returns a hex digest of the derived key material.
func (k Key) Fingerprint() string { return k.fingerprint }

func (k Key) String() string { return k.id }

// KeyringOption configures keyring construction.
type KeyringOption func(*keyringConfig)

type keyringConfig struct {
	cipher      Cipher
	kdf         Argon2Params
	fingerprint HashAlgo
}

// WithCipher selects the cipher used by every key. Defaults to CipherAES.
func WithCipher(c Cipher) KeyringOption {
	return func(cfg *keyringConfig) { cfg.cipher = c }
}

// WithKDF sets the Argon2id parameters for password keys.
func WithKDF(p Argon2Params) KeyringOption {
	return func(cfg *keyringConfig) { cfg.kdf = p }
}

// WithFingerprint selects the fingerprint hash. Defaults to HashSHA256.
func WithFingerprint(algo HashAlgo) KeyringOption {
	return func(cfg *keyringConfig) { cfg.fingerprint = algo }
}

// Keyring is an immutable, ordered set of keys: one current key used for
// every new encryption, followed by historical keys in descending recency.
// Rotation builds a new Keyring; an existing one is never mutated.
type Keyring struct {
	cfg   keyringConfig
	keys  []Key // priority order, keys[0] is current
	index map[string]int
}

// NewKeyring loads current and historical keys.
// historical must be ordered most recent first; that order is the decryption priority.
func NewKeyring(current KeySpec, historical []KeySpec, opts ...KeyringOption) (*Keyring, error) {
	cfg := keyringConfig{
		cipher:      CipherAES,
		kdf:         DefaultArgon2Params(),
		fingerprint: HashSHA256,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if !IsValidCipher(cfg.cipher) {
		return nil, fmt.Errorf("%w: unknown cipher %q", ErrInvalidKey, cfg.cipher)
	}
	hasher, err := hasherFor(cfg.fingerprint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}

	specs := append([]KeySpec{current}, historical...)
	keys := make([]Key, 0, len(specs))
	for _, spec := range specs {
		k, err := loadKey(spec, cfg, hasher)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}

	ring, err := newKeyring(cfg, keys)
	if err != nil {
		return nil, err
	}

	emitKeyringCreated(context.Background(), ring)
	return ring, nil
}

// newKeyring indexes already-loaded keys.
func newKeyring(cfg keyringConfig, keys []Key) (*Keyring, error) {
	index := make(map[string]int, len(keys))
	for i, k := range keys {
		if _, dup := index[k.id]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, k.id)
		}
		index[k.id] = i
	}
	return &Keyring{cfg: cfg, keys: keys, index: index}, nil
}

// loadKey derives and validates a single key.
func loadKey(spec KeySpec, cfg keyringConfig, hasher Hasher) (Key, error) {
	if spec.ID == "" {
		return Key{}, fmt.Errorf("%w: empty key id", ErrInvalidKey)
	}
	if len(spec.secret) == 0 {
		return Key{}, fmt.Errorf("%w: key %q has no secret", ErrInvalidKey, spec.ID)
	}

	material := spec.secret
	if spec.password {
		material = deriveKey(spec.ID, spec.secret, cfg.kdf)
		defer clear(material)
	}

	enc, err := newEncryptor(cfg.cipher, material)
	if err != nil {
		return Key{}, fmt.Errorf("%w: key %q: %w", ErrInvalidKey, spec.ID, err)
	}

	return Key{
		id:          spec.ID,
		fingerprint: hasher.Hash(material),
		enc:         enc,
	}, nil
}

// Current returns the key used for all new encryptions.
func (r *Keyring) Current() Key {
	return r.keys[0]
}

// Candidates returns every key in decryption priority order: current first,
// then historical keys in descending recency.
func (r *Keyring) Candidates() []Key {
	return slices.Clone(r.keys)
}

// Lookup returns the key with the given id.
func (r *Keyring) Lookup(id string) (Key, bool) {
	i, ok := r.index[id]
	if !ok {
		return Key{}, false
	}
	return r.keys[i], true
}

// Len returns the number of keys.
func (r *Keyring) Len() int {
	return len(r.keys)
}

// IDs returns key ids in priority order.
func (r *Keyring) IDs() []string {
	ids := make([]string, len(r.keys))
	for i, k := range r.keys {
		ids[i] = k.id
	}
	return ids
}

// Cipher returns the keyring's cipher.
func (r *Keyring) Cipher() Cipher {
	return r.cfg.cipher
}

// Without returns a new keyring lacking the historical key id.
// The current key cannot be removed; promote a replacement first.
func (r *Keyring) Without(id string) (*Keyring, error) {
	i, ok := r.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, id)
	}
	if i == 0 {
		return nil, fmt.Errorf("%w: cannot remove current key %q", ErrInvalidKey, id)
	}

	keys := slices.Delete(slices.Clone(r.keys), i, i+1)
	ring, err := newKeyring(r.cfg, keys)
	if err != nil {
		return nil, err
	}

	emitKeyringRotated(context.Background(), ring, "remove", id)
	return ring, nil
}

// Promote returns a new keyring whose current key is spec. The previous
// current key becomes the most recent historical key.
func (r *Keyring) Promote(spec KeySpec) (*Keyring, error) {
	hasher, err := hasherFor(r.cfg.fingerprint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}

	k, err := loadKey(spec, r.cfg, hasher)
	if err != nil {
		return nil, err
	}

	keys := append([]Key{k}, r.keys...)
	ring, err := newKeyring(r.cfg, keys)
	if err != nil {
		return nil, err
	}

	emitKeyringRotated(context.Background(), ring, "promote", spec.ID)
	return ring, nil
}
