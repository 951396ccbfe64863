package parcel

import "fmt"

// Cipher selects the symmetric construction used for every key in a keyring.
// Use these constants in configuration: `cipher: aes`
type Cipher string

const (
	// CipherAES uses AES-GCM with a random nonce per message.
	CipherAES Cipher = "aes"

	// CipherEnvelope uses envelope encryption with per-message data keys.
	CipherEnvelope Cipher = "envelope"

	// CipherXChaCha uses XChaCha20-Poly1305 with a random 24-byte nonce.
	CipherXChaCha Cipher = "xchacha"
)

// HashAlgo represents a supported fingerprint algorithm.
type HashAlgo string

const (
	// HashSHA256 uses SHA-256 (default).
	HashSHA256 HashAlgo = "sha256"

	// HashSHA512 uses SHA-512.
	HashSHA512 HashAlgo = "sha512"

	// HashBLAKE3 uses BLAKE3 with a 32-byte digest.
	HashBLAKE3 HashAlgo = "blake3"
)

// validCiphers contains all valid ciphers for configuration validation.
var validCiphers = map[Cipher]bool{
	CipherAES:      true,
	CipherEnvelope: true,
	CipherXChaCha:  true,
}

// validHashAlgos contains all valid hash algorithms for configuration validation.
var validHashAlgos = map[HashAlgo]bool{
	HashSHA256: true,
	HashSHA512: true,
	HashBLAKE3: true,
}

// IsValidCipher returns true if c is a known cipher.
func IsValidCipher(c Cipher) bool {
	return validCiphers[c]
}

// IsValidHashAlgo returns true if the algorithm is a known hash algorithm.
func IsValidHashAlgo(algo HashAlgo) bool {
	return validHashAlgos[algo]
}

// newEncryptor builds the encryptor for c over key.
func newEncryptor(c Cipher, key []byte) (Encryptor, error) {
	switch c {
	case CipherAES:
		return AES(key)
	case CipherEnvelope:
		return Envelope(key)
	case CipherXChaCha:
		return XChaCha(key)
	default:
		return nil, fmt.Errorf("%w: unknown cipher %q", ErrInvalidKey, c)
	}
}
