package domain

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// RootKey represents one version of the root key material from which all
// per-field encryption and index subkeys are derived.
//
// Root keys are injected as secrets (environment variables, or KMS-wrapped
// values unwrapped at startup) and are never embedded in source or persisted
// by this service. A RootKey is immutable once issued.
type RootKey struct {
	Version uint
	Key     []byte
}

// RootKeyChain manages versioned root keys with one version designated as active.
//
// The chain allows key rotation by holding multiple versions simultaneously:
// new values are encrypted and indexed under the active version while older
// versions remain available decrypt-only until the rewrap job has moved every
// record off them. Versions are added or retired by swapping entries, never by
// mutating key material in place, so concurrent readers never observe a
// half-updated key set.
//
// Thread safety: backed by sync.Map for lock-free concurrent reads.
type RootKeyChain struct {
	activeVersion uint
	keys          sync.Map // map[uint]*RootKey
	retired       sync.Map // map[uint]struct{}
}

// ActiveVersion returns the root key version used for new writes.
func (c *RootKeyChain) ActiveVersion() uint {
	return c.activeVersion
}

// Get retrieves a root key by version. The second return value reports
// whether the version exists in the chain.
func (c *RootKeyChain) Get(version uint) (*RootKey, bool) {
	if rootKey, ok := c.keys.Load(version); ok {
		return rootKey.(*RootKey), ok
	}
	return nil, false
}

// Versions returns every key version currently present in the chain, in no
// particular order. Search uses this to compute query tokens for records that
// have not yet been rewrapped to the active version.
func (c *RootKeyChain) Versions() []uint {
	var versions []uint
	c.keys.Range(func(key, _ any) bool {
		versions = append(versions, key.(uint))
		return true
	})
	return versions
}

// IsRetired reports whether the version was explicitly retired.
func (c *RootKeyChain) IsRetired(version uint) bool {
	_, ok := c.retired.Load(version)
	return ok
}

// Retire discards the key material for a version and marks it retired.
// Callers must first verify that no stored record still references the
// version; decryption attempts against a retired version fail permanently.
func (c *RootKeyChain) Retire(version uint) {
	if rootKey, ok := c.keys.LoadAndDelete(version); ok {
		Zero(rootKey.(*RootKey).Key)
	}
	c.retired.Store(version, struct{}{})
}

// Close securely clears all root keys from memory and resets the chain.
// Call during application shutdown to remove key material from memory.
func (c *RootKeyChain) Close() {
	c.keys.Range(func(key, value any) bool {
		Zero(value.(*RootKey).Key)
		c.keys.Delete(key)
		return true
	})
	c.activeVersion = 0
}

// NewRootKeyChain builds a chain from already-decoded root keys. Used by
// tests and by the KMS loader after unwrapping key material.
func NewRootKeyChain(activeVersion uint, keys ...*RootKey) (*RootKeyChain, error) {
	chain := &RootKeyChain{activeVersion: activeVersion}
	for _, rootKey := range keys {
		if len(rootKey.Key) != 32 {
			chain.Close()
			return nil, fmt.Errorf(
				"%w: root key version %d must be 32 bytes, got %d",
				ErrInvalidKeySize, rootKey.Version, len(rootKey.Key),
			)
		}
		chain.keys.Store(rootKey.Version, rootKey)
	}
	if _, ok := chain.Get(activeVersion); !ok {
		chain.Close()
		return nil, fmt.Errorf("%w: version %d", ErrActiveRootKeyNotFound, activeVersion)
	}
	return chain, nil
}

// KMSKeeper abstracts a KMS-backed secrets keeper used to unwrap root key
// material at startup. *secrets.Keeper from gocloud.dev implements it.
type KMSKeeper interface {
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

// LoadRootKeyChainFromEnv loads root keys from environment variables.
//
// Configuration:
//   - ROOT_KEYS: comma-separated entries in "version:base64key" format,
//     e.g. "1:YWJj...,2:MTIz..."
//   - ACTIVE_ROOT_KEY_VERSION: version used to encrypt and index new values
//
// Each key must decode to exactly 32 bytes. When keeper is non-nil the
// base64-decoded values are treated as KMS-wrapped ciphertext and unwrapped
// through the keeper before use, so plaintext key material never appears in
// the environment.
//
// Temporary decoded buffers are zeroed after the key is stored; on error the
// chain is closed to prevent partial initialization.
func LoadRootKeyChainFromEnv(ctx context.Context, keeper KMSKeeper) (*RootKeyChain, error) {
	raw := os.Getenv("ROOT_KEYS")
	if raw == "" {
		return nil, ErrRootKeysNotSet
	}

	activeRaw := os.Getenv("ACTIVE_ROOT_KEY_VERSION")
	if activeRaw == "" {
		return nil, ErrActiveRootKeyVersionNotSet
	}
	active, err := strconv.ParseUint(activeRaw, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: ACTIVE_ROOT_KEY_VERSION=%q", ErrInvalidRootKeysFormat, activeRaw)
	}

	chain := &RootKeyChain{activeVersion: uint(active)}

	for part := range strings.SplitSeq(raw, ",") {
		p := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(p) != 2 {
			chain.Close()
			return nil, fmt.Errorf("%w: %q", ErrInvalidRootKeysFormat, part)
		}
		version, err := strconv.ParseUint(p[0], 10, 32)
		if err != nil {
			chain.Close()
			return nil, fmt.Errorf("%w: version %q", ErrInvalidRootKeysFormat, p[0])
		}
		decoded, err := base64.StdEncoding.DecodeString(p[1])
		if err != nil {
			chain.Close()
			return nil, fmt.Errorf("%w for version %d: %v", ErrInvalidRootKeyBase64, version, err)
		}

		key := decoded
		if keeper != nil {
			key, err = keeper.Decrypt(ctx, decoded)
			Zero(decoded)
			if err != nil {
				chain.Close()
				return nil, fmt.Errorf("failed to unwrap root key version %d: %w", version, err)
			}
		}

		if len(key) != 32 {
			Zero(key)
			chain.Close()
			return nil, fmt.Errorf(
				"%w: root key version %d must be 32 bytes, got %d",
				ErrInvalidKeySize, version, len(key),
			)
		}

		keyCopy := make([]byte, 32)
		copy(keyCopy, key)
		chain.keys.Store(uint(version), &RootKey{Version: uint(version), Key: keyCopy})
		Zero(key)
	}

	if _, ok := chain.Get(uint(active)); !ok {
		chain.Close()
		return nil, fmt.Errorf("%w: ACTIVE_ROOT_KEY_VERSION=%d", ErrActiveRootKeyNotFound, active)
	}

	return chain, nil
}
