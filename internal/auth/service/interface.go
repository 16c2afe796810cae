// Package service provides authentication primitives for subject sessions.
package service

// TokenService defines the contract for token generation and hashing.
type TokenService interface {
	// GenerateToken creates a new random token, returning the plain token
	// and its hash. Only the hash may be persisted.
	GenerateToken() (plainToken string, tokenHash string, err error)

	// HashToken hashes a plain token for storage lookup.
	HashToken(plainToken string) string

	// DigestAccount reduces an account identifier to an opaque digest usable
	// as a lockout principal key. The raw identifier never leaves this call.
	DigestAccount(accountID string) string
}
