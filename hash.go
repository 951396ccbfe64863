package parcel

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Hasher performs deterministic one-way hashing.
// Keyrings use it to fingerprint derived key material so keys can be
// identified in diagnostics without disclosing them.
type Hasher interface {
	// Hash returns the hex-encoded digest of data.
	Hash(data []byte) string
}

// sha256Hasher implements SHA-256 hashing.
type sha256Hasher struct{}

// SHA256Hasher returns a SHA-256 hasher.
// The result is a hex-encoded 64-character string.
func SHA256Hasher() Hasher {
	return &sha256Hasher{}
}

func (h *sha256Hasher) Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// sha512Hasher implements SHA-512 hashing.
type sha512Hasher struct{}

// SHA512Hasher returns a SHA-512 hasher.
// The result is a hex-encoded 128-character string.
func SHA512Hasher() Hasher {
	return &sha512Hasher{}
}

func (h *sha512Hasher) Hash(data []byte) string {
	sum := sha512.Sum512(data)
	return hex.EncodeToString(sum[:])
}

// blake3Hasher implements BLAKE3 hashing.
type blake3Hasher struct{}

// BLAKE3Hasher returns a BLAKE3 hasher.
// The result is a hex-encoded 64-character string.
func BLAKE3Hasher() Hasher {
	return &blake3Hasher{}
}

func (h *blake3Hasher) Hash(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// hasherFor returns the builtin hasher for algo.
func hasherFor(algo HashAlgo) (Hasher, error) {
	switch algo {
	case HashSHA256:
		return SHA256Hasher(), nil
	case HashSHA512:
		return SHA512Hasher(), nil
	case HashBLAKE3:
		return BLAKE3Hasher(), nil
	default:
		return nil, fmt.Errorf("unknown hash algorithm %q", algo)
	}
}
