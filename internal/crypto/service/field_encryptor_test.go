package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/pii-vault/internal/crypto/domain"
)

func testFieldEncryptor(t *testing.T) (*FieldEncryptorService, *KeyDeriverService) {
	t.Helper()
	deriver := NewKeyDeriver(testRootKeyChain(t, 2, 1, 2))
	encryptor := NewFieldEncryptor(deriver, NewAEADManager(), cryptoDomain.AESGCM)
	return encryptor, deriver
}

func TestFieldEncryptorService_RoundTrip(t *testing.T) {
	encryptor, _ := testFieldEncryptor(t)

	t.Run("decrypt(encrypt(p)) == normalized p", func(t *testing.T) {
		value, err := encryptor.Encrypt("  Alice@Example.com ", cryptoDomain.FieldEmail)
		require.NoError(t, err)

		assert.Equal(t, uint(2), value.KeyVersion)
		assert.Equal(t, cryptoDomain.AESGCM, value.Algorithm)
		assert.Len(t, value.Nonce, 12)

		plaintext, err := encryptor.Decrypt(value, cryptoDomain.FieldEmail)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", plaintext)
	})

	t.Run("case preserved for non-folded fields", func(t *testing.T) {
		value, err := encryptor.Encrypt("Alice Johnson", cryptoDomain.FieldFullName)
		require.NoError(t, err)

		plaintext, err := encryptor.Decrypt(value, cryptoDomain.FieldFullName)
		require.NoError(t, err)
		assert.Equal(t, "Alice Johnson", plaintext)
	})

	t.Run("same plaintext yields different ciphertext per call", func(t *testing.T) {
		a, err := encryptor.Encrypt("alice@example.com", cryptoDomain.FieldEmail)
		require.NoError(t, err)
		b, err := encryptor.Encrypt("alice@example.com", cryptoDomain.FieldEmail)
		require.NoError(t, err)
		assert.NotEqual(t, a.Ciphertext, b.Ciphertext)
		assert.NotEqual(t, a.Nonce, b.Nonce)
	})
}

func TestFieldEncryptorService_TamperDetection(t *testing.T) {
	encryptor, _ := testFieldEncryptor(t)

	value, err := encryptor.Encrypt("alice@example.com", cryptoDomain.FieldEmail)
	require.NoError(t, err)

	t.Run("every flipped ciphertext bit fails", func(t *testing.T) {
		for i := range value.Ciphertext {
			tampered := value
			tampered.Ciphertext = make([]byte, len(value.Ciphertext))
			copy(tampered.Ciphertext, value.Ciphertext)
			tampered.Ciphertext[i] ^= 0x01

			_, err := encryptor.Decrypt(tampered, cryptoDomain.FieldEmail)
			assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
		}
	})

	t.Run("tampered nonce fails", func(t *testing.T) {
		tampered := value
		tampered.Nonce = make([]byte, len(value.Nonce))
		copy(tampered.Nonce, value.Nonce)
		tampered.Nonce[0] ^= 0x01

		_, err := encryptor.Decrypt(tampered, cryptoDomain.FieldEmail)
		assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
	})

	t.Run("ciphertext bound to field name", func(t *testing.T) {
		_, err := encryptor.Decrypt(value, cryptoDomain.FieldPhone)
		assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
	})
}

func TestFieldEncryptorService_KeyVersions(t *testing.T) {
	encryptor, _ := testFieldEncryptor(t)

	t.Run("decrypts values written under older versions", func(t *testing.T) {
		value, err := encryptor.EncryptWithVersion("alice@example.com", cryptoDomain.FieldEmail, 1)
		require.NoError(t, err)
		assert.Equal(t, uint(1), value.KeyVersion)

		plaintext, err := encryptor.Decrypt(value, cryptoDomain.FieldEmail)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", plaintext)
	})

	t.Run("unknown version fails encryption", func(t *testing.T) {
		_, err := encryptor.EncryptWithVersion("x", cryptoDomain.FieldEmail, 9)
		assert.ErrorIs(t, err, cryptoDomain.ErrKeyVersionNotFound)
	})

	t.Run("value claiming unknown version fails decryption", func(t *testing.T) {
		value, err := encryptor.Encrypt("alice@example.com", cryptoDomain.FieldEmail)
		require.NoError(t, err)
		value.KeyVersion = 9

		_, err = encryptor.Decrypt(value, cryptoDomain.FieldEmail)
		assert.ErrorIs(t, err, cryptoDomain.ErrKeyVersionNotFound)
	})
}

func TestFieldEncryptorService_Tombstone(t *testing.T) {
	encryptor, _ := testFieldEncryptor(t)

	_, err := encryptor.Decrypt(cryptoDomain.Tombstone(), cryptoDomain.FieldEmail)
	assert.ErrorIs(t, err, cryptoDomain.ErrValueErased)
	assert.NotErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
}
