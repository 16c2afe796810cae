package domain

// Algorithm represents the cryptographic algorithm used for field encryption.
//
// All supported algorithms provide Authenticated Encryption with Associated Data (AEAD),
// ensuring both confidentiality and authenticity of encrypted values. Decryption
// dispatches on the algorithm identifier stored alongside each value, so records
// written under different algorithms can coexist.
type Algorithm string

const (
	// AESGCM represents the AES-256-GCM authenticated encryption algorithm.
	//
	// Uses a 256-bit key, a 12-byte random nonce per encryption, and a 16-byte
	// authentication tag. Preferred on CPUs with AES-NI hardware acceleration.
	AESGCM Algorithm = "aes-gcm"

	// ChaCha20 represents the ChaCha20-Poly1305 authenticated encryption algorithm.
	//
	// Uses a 256-bit key, a 12-byte nonce, and a 16-byte authentication tag.
	// Constant-time in software; preferred on platforms without AES acceleration.
	ChaCha20 Algorithm = "chacha20-poly1305"

	// Erased marks a tombstoned value whose plaintext has been destroyed.
	//
	// A tombstone is distinguishable from valid ciphertext by this algorithm
	// identifier. Decryption of an erased value always fails with ErrValueErased;
	// the original plaintext is never re-derivable.
	Erased Algorithm = "erased"
)

// KeyPurpose selects which per-field subkey to derive from a root key version.
//
// Encryption and indexing subkeys are derived independently so that compromise
// of an index key never yields the ability to decrypt stored ciphertext.
type KeyPurpose string

const (
	// PurposeEncrypt derives the subkey used for AEAD encryption of a field.
	PurposeEncrypt KeyPurpose = "encrypt"

	// PurposeIndex derives the subkey used for blind-index token computation.
	PurposeIndex KeyPurpose = "index"
)
