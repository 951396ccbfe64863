package parcel

import (
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// KeyringConfig is the on-disk description of a keyring.
//
//	cipher: aes
//	fingerprint: sha256
//	keys:
//	  - id: latest
//	    password_env: PARCEL_KEY_LATEST
//	  - id: oldKey1
//	    raw_hex: 000102...
//
// The first key is current; the rest are historical, most recent first.
type KeyringConfig struct {
	Cipher      Cipher      `yaml:"cipher"`
	Fingerprint HashAlgo    `yaml:"fingerprint"`
	KDF         KDFConfig   `yaml:"kdf"`
	Keys        []KeyConfig `yaml:"keys"`
}

// KDFConfig overrides Argon2id parameters. Zero fields keep defaults.
type KDFConfig struct {
	Time    uint32 `yaml:"time"`
	Memory  uint32 `yaml:"memory"`
	Threads uint8  `yaml:"threads"`
}

// KeyConfig names one key and exactly one source for its secret.
type KeyConfig struct {
	ID          string `yaml:"id"`
	Password    string `yaml:"password"`
	PasswordEnv string `yaml:"password_env"`
	RawHex      string `yaml:"raw_hex"`
	RawEnv      string `yaml:"raw_env"`
}

// ParseKeyringConfig decodes a YAML keyring description.
func ParseKeyringConfig(data []byte) (KeyringConfig, error) {
	var cfg KeyringConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return KeyringConfig{}, fmt.Errorf("parse keyring config: %w", err)
	}
	return cfg, nil
}

// LoadKeyringConfig reads and decodes a YAML keyring description.
func LoadKeyringConfig(path string) (KeyringConfig, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path
	if err != nil {
		return KeyringConfig{}, fmt.Errorf("read keyring config: %w", err)
	}
	return ParseKeyringConfig(data)
}

// LoadKeyring reads the config at path and builds a keyring, resolving
// *_env entries from the process environment.
func LoadKeyring(path string) (*Keyring, error) {
	cfg, err := LoadKeyringConfig(path)
	if err != nil {
		return nil, err
	}
	return cfg.Build(os.LookupEnv)
}

// Build resolves secrets through lookup and constructs the keyring.
func (cfg KeyringConfig) Build(lookup func(string) (string, bool)) (*Keyring, error) {
	if len(cfg.Keys) == 0 {
		return nil, fmt.Errorf("%w: keyring config has no keys", ErrInvalidKey)
	}

	specs := make([]KeySpec, 0, len(cfg.Keys))
	for _, kc := range cfg.Keys {
		spec, err := kc.spec(lookup)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}

	var opts []KeyringOption
	if cfg.Cipher != "" {
		opts = append(opts, WithCipher(cfg.Cipher))
	}
	if cfg.Fingerprint != "" {
		opts = append(opts, WithFingerprint(cfg.Fingerprint))
	}
	opts = append(opts, WithKDF(Argon2Params{
		Time:    cfg.KDF.Time,
		Memory:  cfg.KDF.Memory,
		Threads: cfg.KDF.Threads,
	}))

	return NewKeyring(specs[0], specs[1:], opts...)
}

func (kc KeyConfig) spec(lookup func(string) (string, bool)) (KeySpec, error) {
	sources := 0
	for _, s := range []string{kc.Password, kc.PasswordEnv, kc.RawHex, kc.RawEnv} {
		if s != "" {
			sources++
		}
	}
	if sources != 1 {
		return KeySpec{}, fmt.Errorf("%w: key %q must set exactly one of password, password_env, raw_hex, raw_env", ErrInvalidKey, kc.ID)
	}

	env := func(name string) (string, error) {
		v, ok := lookup(name)
		if !ok || v == "" {
			return "", fmt.Errorf("%w: key %q: environment variable %s is not set", ErrInvalidKey, kc.ID, name)
		}
		return v, nil
	}
	raw := func(s string) (KeySpec, error) {
		b, err := hex.DecodeString(s)
		if err != nil {
			return KeySpec{}, fmt.Errorf("%w: key %q: %w", ErrInvalidKey, kc.ID, err)
		}
		return RawKey(kc.ID, b), nil
	}

	switch {
	case kc.Password != "":
		return PasswordKey(kc.ID, kc.Password), nil
	case kc.PasswordEnv != "":
		v, err := env(kc.PasswordEnv)
		if err != nil {
			return KeySpec{}, err
		}
		return PasswordKey(kc.ID, v), nil
	case kc.RawHex != "":
		return raw(kc.RawHex)
	default:
		v, err := env(kc.RawEnv)
		if err != nil {
			return KeySpec{}, err
		}
		return raw(v)
	}
}
