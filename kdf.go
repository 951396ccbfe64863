package parcel

import (
	"crypto/sha256"

	"golang.org/x/crypto/argon2"
)

// Argon2Params configures Argon2id derivation of keys from passwords.
type Argon2Params struct {
	Time    uint32 // Number of iterations
	Memory  uint32 // Memory usage in KiB
	Threads uint8  // Parallelism factor
	KeyLen  uint32 // Output key length
	SaltLen uint32 // Salt length
}

// DefaultArgon2Params returns recommended Argon2id parameters.
// Based on OWASP recommendations for password hashing.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Time:    1,
		Memory:  64 * 1024, // 64 MiB
		Threads: 4,
		KeyLen:  32,
		SaltLen: 16,
	}
}

// withDefaults fills zero fields from DefaultArgon2Params.
func (p Argon2Params) withDefaults() Argon2Params {
	d := DefaultArgon2Params()
	if p.Time == 0 {
		p.Time = d.Time
	}
	if p.Memory == 0 {
		p.Memory = d.Memory
	}
	if p.Threads == 0 {
		p.Threads = d.Threads
	}
	if p.KeyLen == 0 {
		p.KeyLen = d.KeyLen
	}
	if p.SaltLen == 0 {
		p.SaltLen = d.SaltLen
	}
	return p
}

// keySalt derives a stable salt from the key id.
// Derivation happens once per keyring, so the salt must be reproducible
// by every process that loads the same key.
func keySalt(id string, n uint32) []byte {
	sum := sha256.Sum256([]byte("parcel/key/" + id))
	if int(n) > len(sum) {
		n = uint32(len(sum))
	}
	return sum[:n]
}

// deriveKey stretches password into a symmetric key bound to id.
func deriveKey(id string, password []byte, params Argon2Params) []byte {
	p := params.withDefaults()
	return argon2.IDKey(password, keySalt(id, p.SaltLen), p.Time, p.Memory, p.Threads, p.KeyLen)
}
