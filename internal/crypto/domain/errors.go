package domain

import (
	"github.com/allisson/pii-vault/internal/errors"
)

// Cryptographic operation error definitions.
//
// These domain-specific errors wrap standard errors from internal/errors
// to provide context for cryptographic failures. Configuration faults
// (missing or retired key versions) are surfaced to the operator and are
// never retried automatically.
var (
	// ErrUnsupportedAlgorithm indicates the requested encryption algorithm is not supported.
	//
	// Supported algorithms: AESGCM (AES-256-GCM), ChaCha20 (ChaCha20-Poly1305).
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidKeySize indicates the cryptographic key size is invalid.
	//
	// Root keys and derived subkeys must be exactly 32 bytes (256 bits).
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrDecryptionFailed indicates a decryption operation failed.
	//
	// This error can occur due to a wrong decryption key, tampered ciphertext
	// (authentication failure), an invalid nonce, or corrupted data. For security
	// reasons, the specific cause is not disclosed.
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")

	// ErrValueErased indicates the value is a tombstone left by GDPR erasure.
	//
	// Distinct from ErrDecryptionFailed: the ciphertext was deliberately
	// destroyed and no key will ever recover it.
	ErrValueErased = errors.Wrap(errors.ErrNotFound, "value erased")

	// ErrKeyVersionNotFound indicates no root key exists for the requested version.
	ErrKeyVersionNotFound = errors.Wrap(errors.ErrNotFound, "key version not found")

	// ErrKeyVersionRetired indicates the root key version was retired and its
	// material discarded. Records still referencing it cannot be decrypted and
	// point to a rotation that was finished prematurely.
	ErrKeyVersionRetired = errors.Wrap(errors.ErrNotFound, "key version retired")

	// ErrRootKeysNotSet indicates the ROOT_KEYS environment variable is not configured.
	ErrRootKeysNotSet = errors.New("ROOT_KEYS environment variable not set")

	// ErrActiveRootKeyVersionNotSet indicates ACTIVE_ROOT_KEY_VERSION is not configured.
	ErrActiveRootKeyVersionNotSet = errors.New("ACTIVE_ROOT_KEY_VERSION environment variable not set")

	// ErrInvalidRootKeysFormat indicates ROOT_KEYS is not in "version:base64key" format.
	ErrInvalidRootKeysFormat = errors.New("invalid ROOT_KEYS format, expected 'version:base64key'")

	// ErrInvalidRootKeyBase64 indicates a root key is not valid base64.
	ErrInvalidRootKeyBase64 = errors.New("invalid base64 in ROOT_KEYS")

	// ErrActiveRootKeyNotFound indicates the active version is not present in the chain.
	ErrActiveRootKeyNotFound = errors.New("active root key version not found in ROOT_KEYS")
)
