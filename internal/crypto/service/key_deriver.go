package service

import (
	"crypto/sha256"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/hkdf"

	cryptoDomain "github.com/allisson/pii-vault/internal/crypto/domain"
)

// KeyDeriverService implements KeyDeriver using HKDF-SHA256 over versioned root keys.
//
// Each (field, version, purpose) triple maps to an independent 32-byte subkey:
// the field name and purpose are bound into the HKDF info string, so the
// encryption subkey and index subkey of a field are unrelated, and no two
// fields ever share a key. Compromise of an index subkey therefore never
// yields the ability to decrypt stored ciphertext.
//
// Derivation is deterministic and cheap, but derived subkeys are cached in a
// sync.Map so hot fields skip the HKDF expansion. The cache only grows with
// the (small, static) set of field policies times key versions; entries are
// dropped when a version is retired along with its root key.
type KeyDeriverService struct {
	chain   *cryptoDomain.RootKeyChain
	subkeys sync.Map // map[string][]byte keyed by "version|field|purpose"
}

// NewKeyDeriver creates a KeyDeriverService over the given root key chain.
func NewKeyDeriver(chain *cryptoDomain.RootKeyChain) *KeyDeriverService {
	return &KeyDeriverService{chain: chain}
}

// ActiveVersion returns the root key version used for new writes.
func (k *KeyDeriverService) ActiveVersion() uint {
	return k.chain.ActiveVersion()
}

// DeriveKey returns the 32-byte subkey for a field, root key version, and purpose.
//
// Retired versions fail with ErrKeyVersionRetired; versions absent from the
// chain fail with ErrKeyVersionNotFound. Both are configuration faults that
// must surface to the operator rather than be retried.
func (k *KeyDeriverService) DeriveKey(
	fieldName string,
	version uint,
	purpose cryptoDomain.KeyPurpose,
) ([]byte, error) {
	cacheKey := fmt.Sprintf("%d|%s|%s", version, fieldName, purpose)
	if subkey, ok := k.subkeys.Load(cacheKey); ok {
		return subkey.([]byte), nil
	}

	rootKey, ok := k.chain.Get(version)
	if !ok {
		if k.chain.IsRetired(version) {
			return nil, fmt.Errorf("%w: version %d", cryptoDomain.ErrKeyVersionRetired, version)
		}
		return nil, fmt.Errorf("%w: version %d", cryptoDomain.ErrKeyVersionNotFound, version)
	}

	// Expand the root key into the per-field subkey. The info string binds
	// field name and purpose; no salt is needed because root keys are
	// uniformly random.
	info := fmt.Sprintf("pii-vault/v1/%s/%s", fieldName, purpose)
	reader := hkdf.New(sha256.New, rootKey.Key, nil, []byte(info))
	subkey := make([]byte, 32)
	if _, err := io.ReadFull(reader, subkey); err != nil {
		return nil, fmt.Errorf("failed to derive subkey for field %s: %w", fieldName, err)
	}

	k.subkeys.Store(cacheKey, subkey)
	return subkey, nil
}

// DropVersion removes cached subkeys for a retired root key version.
func (k *KeyDeriverService) DropVersion(version uint) {
	prefix := fmt.Sprintf("%d|", version)
	k.subkeys.Range(func(key, value any) bool {
		if s := key.(string); len(s) >= len(prefix) && s[:len(prefix)] == prefix {
			cryptoDomain.Zero(value.([]byte))
			k.subkeys.Delete(key)
		}
		return true
	})
}
