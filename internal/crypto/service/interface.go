// Package service provides the cryptographic services behind field-level
// PII protection: AEAD ciphers (AES-256-GCM, ChaCha20-Poly1305), per-field
// subkey derivation from versioned root keys, authenticated field encryption,
// and blind-index token computation for exact-match search.
package service

import (
	cryptoDomain "github.com/allisson/pii-vault/internal/crypto/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext and nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// KeyDeriver derives per-field subkeys from versioned root key material.
type KeyDeriver interface {
	// DeriveKey returns the 32-byte subkey for a field, root key version, and
	// purpose. Fails with ErrKeyVersionRetired for retired versions and
	// ErrKeyVersionNotFound for versions absent from the chain.
	DeriveKey(fieldName string, version uint, purpose cryptoDomain.KeyPurpose) ([]byte, error)

	// ActiveVersion returns the root key version used for new writes.
	ActiveVersion() uint
}

// FieldEncryptor transforms plaintext field values to and from authenticated ciphertext.
type FieldEncryptor interface {
	// Encrypt normalizes the plaintext per the field policy and encrypts it
	// under the active key version with a fresh random nonce.
	Encrypt(plaintext string, field cryptoDomain.FieldPolicy) (cryptoDomain.EncryptedValue, error)

	// EncryptWithVersion encrypts under an explicit key version. Used by the
	// rewrap job; regular writes use Encrypt.
	EncryptWithVersion(
		plaintext string,
		field cryptoDomain.FieldPolicy,
		version uint,
	) (cryptoDomain.EncryptedValue, error)

	// Decrypt recovers the plaintext, consulting the historical key version
	// recorded on the value. Tampered or wrong-key values fail with
	// ErrDecryptionFailed; tombstones fail with ErrValueErased.
	Decrypt(value cryptoDomain.EncryptedValue, field cryptoDomain.FieldPolicy) (string, error)
}

// BlindIndexer computes deterministic searchable tokens for field values.
type BlindIndexer interface {
	// Index normalizes the plaintext per the field policy and computes the
	// keyed one-way token under the active key version's index subkey.
	Index(plaintext string, field cryptoDomain.FieldPolicy) (cryptoDomain.BlindIndexToken, error)

	// IndexWithVersion computes the token under an explicit key version.
	IndexWithVersion(
		plaintext string,
		field cryptoDomain.FieldPolicy,
		version uint,
	) (cryptoDomain.BlindIndexToken, error)
}
