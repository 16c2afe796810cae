package service

import (
	"fmt"

	cryptoDomain "github.com/allisson/pii-vault/internal/crypto/domain"
)

// FieldEncryptorService implements FieldEncryptor over the key deriver and AEAD manager.
//
// Encryption is pure and stateless: it normalizes, derives (or pulls from
// cache) the field's encryption subkey for the target key version, and seals
// the value with a fresh random nonce. The field name is bound as AAD so a
// ciphertext lifted from one column cannot be replayed into another.
// Persistence is entirely the caller's job.
type FieldEncryptorService struct {
	keyDeriver  KeyDeriver
	aeadManager AEADManager
	algorithm   cryptoDomain.Algorithm
}

// NewFieldEncryptor creates a FieldEncryptorService writing with the given algorithm.
func NewFieldEncryptor(
	keyDeriver KeyDeriver,
	aeadManager AEADManager,
	algorithm cryptoDomain.Algorithm,
) *FieldEncryptorService {
	return &FieldEncryptorService{
		keyDeriver:  keyDeriver,
		aeadManager: aeadManager,
		algorithm:   algorithm,
	}
}

// Encrypt normalizes and encrypts a plaintext field value under the active key version.
func (f *FieldEncryptorService) Encrypt(
	plaintext string,
	field cryptoDomain.FieldPolicy,
) (cryptoDomain.EncryptedValue, error) {
	return f.EncryptWithVersion(plaintext, field, f.keyDeriver.ActiveVersion())
}

// EncryptWithVersion encrypts under an explicit root key version.
// Regular writes use Encrypt; the rewrap job targets the rotation's new version.
func (f *FieldEncryptorService) EncryptWithVersion(
	plaintext string,
	field cryptoDomain.FieldPolicy,
	version uint,
) (cryptoDomain.EncryptedValue, error) {
	subkey, err := f.keyDeriver.DeriveKey(field.Name, version, cryptoDomain.PurposeEncrypt)
	if err != nil {
		return cryptoDomain.EncryptedValue{}, err
	}

	cipher, err := f.aeadManager.CreateCipher(subkey, f.algorithm)
	if err != nil {
		return cryptoDomain.EncryptedValue{}, err
	}

	normalized := NormalizeField(plaintext, field)
	ciphertext, nonce, err := cipher.Encrypt([]byte(normalized), []byte(field.Name))
	if err != nil {
		return cryptoDomain.EncryptedValue{}, fmt.Errorf(
			"failed to encrypt field %s: %w", field.Name, err,
		)
	}

	return cryptoDomain.EncryptedValue{
		Ciphertext: ciphertext,
		Nonce:      nonce,
		KeyVersion: version,
		Algorithm:  f.algorithm,
	}, nil
}

// Decrypt recovers the plaintext of an encrypted field value.
//
// The key version recorded on the value selects the historical subkey; the
// current version is never assumed. Authentication-tag mismatch (tampering)
// and wrong-key failures both surface as ErrDecryptionFailed so corrupted
// plaintext is never returned silently. Tombstones fail with ErrValueErased.
func (f *FieldEncryptorService) Decrypt(
	value cryptoDomain.EncryptedValue,
	field cryptoDomain.FieldPolicy,
) (string, error) {
	if value.IsTombstone() || value.Algorithm == cryptoDomain.Erased {
		return "", cryptoDomain.ErrValueErased
	}

	subkey, err := f.keyDeriver.DeriveKey(field.Name, value.KeyVersion, cryptoDomain.PurposeEncrypt)
	if err != nil {
		return "", err
	}

	cipher, err := f.aeadManager.CreateCipher(subkey, value.Algorithm)
	if err != nil {
		return "", err
	}

	plaintext, err := cipher.Decrypt(value.Ciphertext, value.Nonce, []byte(field.Name))
	if err != nil {
		return "", cryptoDomain.ErrDecryptionFailed
	}

	return string(plaintext), nil
}
