package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/pii-vault/internal/crypto/domain"
)

func testBlindIndexer(t *testing.T) *BlindIndexerService {
	t.Helper()
	return NewBlindIndexer(NewKeyDeriver(testRootKeyChain(t, 2, 1, 2)))
}

func TestBlindIndexerService_Determinism(t *testing.T) {
	indexer := testBlindIndexer(t)

	t.Run("normalized-equal inputs produce equal tokens", func(t *testing.T) {
		a, err := indexer.Index("Alice@Example.com", cryptoDomain.FieldEmail)
		require.NoError(t, err)
		b, err := indexer.Index("  alice@example.com  ", cryptoDomain.FieldEmail)
		require.NoError(t, err)

		assert.Equal(t, a.Token, b.Token)
		assert.Equal(t, "email", a.FieldName)
		assert.Equal(t, uint(2), a.KeyVersion)
	})

	t.Run("unequal inputs produce unequal tokens over large samples", func(t *testing.T) {
		seen := make(map[string]struct{}, 1000)
		for i := 0; i < 1000; i++ {
			token, err := indexer.Index(fmt.Sprintf("user%d@example.com", i), cryptoDomain.FieldEmail)
			require.NoError(t, err)
			_, dup := seen[token.Token]
			assert.False(t, dup, "collision at sample %d", i)
			seen[token.Token] = struct{}{}
		}
	})

	t.Run("case matters for case-preserving fields", func(t *testing.T) {
		a, err := indexer.Index("Alice Johnson", cryptoDomain.FieldFullName)
		require.NoError(t, err)
		b, err := indexer.Index("alice johnson", cryptoDomain.FieldFullName)
		require.NoError(t, err)
		assert.NotEqual(t, a.Token, b.Token)
	})
}

func TestBlindIndexerService_KeySeparation(t *testing.T) {
	chain := testRootKeyChain(t, 1, 1)
	deriver := NewKeyDeriver(chain)
	indexer := NewBlindIndexer(deriver)
	encryptor := NewFieldEncryptor(deriver, NewAEADManager(), cryptoDomain.AESGCM)

	t.Run("index key differs from encryption key", func(t *testing.T) {
		encKey, err := deriver.DeriveKey("email", 1, cryptoDomain.PurposeEncrypt)
		require.NoError(t, err)
		idxKey, err := deriver.DeriveKey("email", 1, cryptoDomain.PurposeIndex)
		require.NoError(t, err)
		assert.NotEqual(t, encKey, idxKey)
	})

	t.Run("same plaintext: token stable, ciphertext fresh", func(t *testing.T) {
		token1, err := indexer.Index("alice@example.com", cryptoDomain.FieldEmail)
		require.NoError(t, err)
		token2, err := indexer.Index("alice@example.com", cryptoDomain.FieldEmail)
		require.NoError(t, err)
		assert.Equal(t, token1.Token, token2.Token)

		value1, err := encryptor.Encrypt("alice@example.com", cryptoDomain.FieldEmail)
		require.NoError(t, err)
		value2, err := encryptor.Encrypt("alice@example.com", cryptoDomain.FieldEmail)
		require.NoError(t, err)
		assert.NotEqual(t, value1.Ciphertext, value2.Ciphertext)
	})

	t.Run("distinct fields produce distinct tokens for equal input", func(t *testing.T) {
		email, err := indexer.Index("555-0100", cryptoDomain.FieldEmail)
		require.NoError(t, err)
		phone, err := indexer.Index("555-0100", cryptoDomain.FieldPhone)
		require.NoError(t, err)
		assert.NotEqual(t, email.Token, phone.Token)
	})
}

func TestBlindIndexerService_Versions(t *testing.T) {
	indexer := testBlindIndexer(t)

	t.Run("tokens differ across key versions", func(t *testing.T) {
		v1, err := indexer.IndexWithVersion("alice@example.com", cryptoDomain.FieldEmail, 1)
		require.NoError(t, err)
		v2, err := indexer.IndexWithVersion("alice@example.com", cryptoDomain.FieldEmail, 2)
		require.NoError(t, err)
		assert.NotEqual(t, v1.Token, v2.Token)
	})

	t.Run("unknown version fails", func(t *testing.T) {
		_, err := indexer.IndexWithVersion("alice@example.com", cryptoDomain.FieldEmail, 9)
		assert.ErrorIs(t, err, cryptoDomain.ErrKeyVersionNotFound)
	})
}

func TestNormalizeField(t *testing.T) {
	assert.Equal(t, "alice@example.com", NormalizeField(" Alice@Example.COM ", cryptoDomain.FieldEmail))
	assert.Equal(t, "Alice Johnson", NormalizeField(" Alice Johnson ", cryptoDomain.FieldFullName))
	assert.Equal(t, "", NormalizeField("   ", cryptoDomain.FieldEmail))
}
