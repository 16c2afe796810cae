package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	cryptoDomain "github.com/allisson/pii-vault/internal/crypto/domain"
)

// BlindIndexerService implements BlindIndexer using HMAC-SHA256.
//
// The token is a deterministic keyed hash of the normalized plaintext under
// the field's index subkey, which is derived independently from the
// encryption subkey. Equal normalized inputs always produce equal tokens;
// unequal inputs collide only with negligible probability, and the token is
// one-way. Tokens support exact-match equality lookup only.
//
// The same NormalizeField call feeds both this service and the field
// encryptor; that coupling is what makes stored tokens match query tokens.
type BlindIndexerService struct {
	keyDeriver KeyDeriver
}

// NewBlindIndexer creates a BlindIndexerService over the given key deriver.
func NewBlindIndexer(keyDeriver KeyDeriver) *BlindIndexerService {
	return &BlindIndexerService{keyDeriver: keyDeriver}
}

// Index computes the blind-index token under the active key version.
func (b *BlindIndexerService) Index(
	plaintext string,
	field cryptoDomain.FieldPolicy,
) (cryptoDomain.BlindIndexToken, error) {
	return b.IndexWithVersion(plaintext, field, b.keyDeriver.ActiveVersion())
}

// IndexWithVersion computes the token under an explicit root key version.
// Search against historical data and the rewrap job both need this.
func (b *BlindIndexerService) IndexWithVersion(
	plaintext string,
	field cryptoDomain.FieldPolicy,
	version uint,
) (cryptoDomain.BlindIndexToken, error) {
	subkey, err := b.keyDeriver.DeriveKey(field.Name, version, cryptoDomain.PurposeIndex)
	if err != nil {
		return cryptoDomain.BlindIndexToken{}, err
	}

	mac := hmac.New(sha256.New, subkey)
	mac.Write([]byte(NormalizeField(plaintext, field)))

	return cryptoDomain.BlindIndexToken{
		Token:      hex.EncodeToString(mac.Sum(nil)),
		FieldName:  field.Name,
		KeyVersion: version,
	}, nil
}
