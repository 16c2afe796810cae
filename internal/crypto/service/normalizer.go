package service

import (
	"strings"

	cryptoDomain "github.com/allisson/pii-vault/internal/crypto/domain"
)

// NormalizeField applies the field policy's normalization to a plaintext value.
//
// This is the single normalization path shared by the field encryptor and the
// blind indexer. Whitespace is always trimmed; case folding applies only when
// the policy asks for it (e.g., email addresses). Any change here silently
// invalidates every stored blind-index token, so treat the behavior as part
// of the storage format.
func NormalizeField(plaintext string, field cryptoDomain.FieldPolicy) string {
	normalized := strings.TrimSpace(plaintext)
	if field.CaseFold {
		normalized = strings.ToLower(normalized)
	}
	return normalized
}
