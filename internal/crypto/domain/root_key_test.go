package domain

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestNewRootKeyChain(t *testing.T) {
	t.Run("active version present", func(t *testing.T) {
		chain, err := NewRootKeyChain(2,
			&RootKey{Version: 1, Key: randomKey(t)},
			&RootKey{Version: 2, Key: randomKey(t)},
		)
		require.NoError(t, err)

		assert.Equal(t, uint(2), chain.ActiveVersion())
		_, ok := chain.Get(1)
		assert.True(t, ok)
	})

	t.Run("active version missing", func(t *testing.T) {
		_, err := NewRootKeyChain(3, &RootKey{Version: 1, Key: randomKey(t)})
		assert.ErrorIs(t, err, ErrActiveRootKeyNotFound)
	})

	t.Run("invalid key size", func(t *testing.T) {
		_, err := NewRootKeyChain(1, &RootKey{Version: 1, Key: make([]byte, 16)})
		assert.ErrorIs(t, err, ErrInvalidKeySize)
	})
}

func TestRootKeyChain_Retire(t *testing.T) {
	chain, err := NewRootKeyChain(2,
		&RootKey{Version: 1, Key: randomKey(t)},
		&RootKey{Version: 2, Key: randomKey(t)},
	)
	require.NoError(t, err)

	chain.Retire(1)

	_, ok := chain.Get(1)
	assert.False(t, ok)
	assert.True(t, chain.IsRetired(1))
	assert.False(t, chain.IsRetired(2))
}

func TestLoadRootKeyChainFromEnv(t *testing.T) {
	key1 := base64.StdEncoding.EncodeToString(randomKey(t))
	key2 := base64.StdEncoding.EncodeToString(randomKey(t))
	ctx := context.Background()

	t.Run("loads versioned keys", func(t *testing.T) {
		t.Setenv("ROOT_KEYS", fmt.Sprintf("1:%s,2:%s", key1, key2))
		t.Setenv("ACTIVE_ROOT_KEY_VERSION", "2")

		chain, err := LoadRootKeyChainFromEnv(ctx, nil)
		require.NoError(t, err)
		defer chain.Close()

		assert.Equal(t, uint(2), chain.ActiveVersion())
		rootKey, ok := chain.Get(1)
		require.True(t, ok)
		assert.Len(t, rootKey.Key, 32)
	})

	t.Run("missing ROOT_KEYS", func(t *testing.T) {
		t.Setenv("ROOT_KEYS", "")
		_, err := LoadRootKeyChainFromEnv(ctx, nil)
		assert.ErrorIs(t, err, ErrRootKeysNotSet)
	})

	t.Run("missing active version", func(t *testing.T) {
		t.Setenv("ROOT_KEYS", "1:"+key1)
		t.Setenv("ACTIVE_ROOT_KEY_VERSION", "")
		_, err := LoadRootKeyChainFromEnv(ctx, nil)
		assert.ErrorIs(t, err, ErrActiveRootKeyVersionNotSet)
	})

	t.Run("malformed entry", func(t *testing.T) {
		t.Setenv("ROOT_KEYS", "no-colon-here")
		t.Setenv("ACTIVE_ROOT_KEY_VERSION", "1")
		_, err := LoadRootKeyChainFromEnv(ctx, nil)
		assert.ErrorIs(t, err, ErrInvalidRootKeysFormat)
	})

	t.Run("invalid base64", func(t *testing.T) {
		t.Setenv("ROOT_KEYS", "1:!!!not-base64!!!")
		t.Setenv("ACTIVE_ROOT_KEY_VERSION", "1")
		_, err := LoadRootKeyChainFromEnv(ctx, nil)
		assert.ErrorIs(t, err, ErrInvalidRootKeyBase64)
	})

	t.Run("wrong key size", func(t *testing.T) {
		short := base64.StdEncoding.EncodeToString(make([]byte, 16))
		t.Setenv("ROOT_KEYS", "1:"+short)
		t.Setenv("ACTIVE_ROOT_KEY_VERSION", "1")
		_, err := LoadRootKeyChainFromEnv(ctx, nil)
		assert.ErrorIs(t, err, ErrInvalidKeySize)
	})

	t.Run("active version not in chain", func(t *testing.T) {
		t.Setenv("ROOT_KEYS", "1:"+key1)
		t.Setenv("ACTIVE_ROOT_KEY_VERSION", "9")
		_, err := LoadRootKeyChainFromEnv(ctx, nil)
		assert.ErrorIs(t, err, ErrActiveRootKeyNotFound)
	})
}

type fakeKeeper struct{}

// Decrypt reverses the one-byte XOR applied by the test wrapping below.
func (f *fakeKeeper) Decrypt(_ context.Context, ciphertext []byte) ([]byte, error) {
	out := make([]byte, len(ciphertext))
	for i, b := range ciphertext {
		out[i] = b ^ 0xFF
	}
	return out, nil
}

func TestLoadRootKeyChainFromEnv_KMSWrapped(t *testing.T) {
	plain := randomKey(t)
	wrapped := make([]byte, len(plain))
	for i, b := range plain {
		wrapped[i] = b ^ 0xFF
	}

	t.Setenv("ROOT_KEYS", "1:"+base64.StdEncoding.EncodeToString(wrapped))
	t.Setenv("ACTIVE_ROOT_KEY_VERSION", "1")

	chain, err := LoadRootKeyChainFromEnv(context.Background(), &fakeKeeper{})
	require.NoError(t, err)
	defer chain.Close()

	rootKey, ok := chain.Get(1)
	require.True(t, ok)
	assert.Equal(t, plain, rootKey.Key)
}

func TestTombstone(t *testing.T) {
	tombstone := Tombstone()
	assert.True(t, tombstone.IsTombstone())
	assert.Equal(t, Erased, tombstone.Algorithm)
	assert.Equal(t, uint(0), tombstone.KeyVersion)

	valid := EncryptedValue{Ciphertext: make([]byte, 33), Algorithm: AESGCM, KeyVersion: 1}
	assert.False(t, valid.IsTombstone())
}

func TestZero(t *testing.T) {
	b := []byte{1, 2, 3}
	Zero(b)
	assert.Equal(t, []byte{0, 0, 0}, b)
	Zero(nil)
}
